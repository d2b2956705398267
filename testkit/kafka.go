package testkit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ceyewan/scoregate/connector"
)

// KafkaBrokersEnv 逗号分隔的 broker 列表
const KafkaBrokersEnv = "SCOREGATE_TEST_KAFKA_BROKERS"

// NewKafkaConfig 返回 Kafka 测试配置，规则同 NewRedisConfig
func NewKafkaConfig(t *testing.T) *connector.KafkaConfig {
	t.Helper()
	if brokers := os.Getenv(KafkaBrokersEnv); brokers != "" {
		return &connector.KafkaConfig{Name: "test-kafka", Seed: strings.Split(brokers, ",")}
	}
	if testing.Short() {
		t.Skip("kafka: skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkacontainer.WithClusterID("scoregate-test"),
	)
	require.NoError(t, err, "failed to start kafka container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	return &connector.KafkaConfig{
		Name:           "test-kafka",
		Seed:           brokers,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// NewKafkaConnector 创建并连接 Kafka 连接器，生命周期由 t.Cleanup 管理
func NewKafkaConnector(t *testing.T) connector.KafkaConnector {
	t.Helper()
	conn, err := connector.NewKafka(NewKafkaConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create kafka connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to kafka")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
