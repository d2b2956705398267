package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/ceyewan/scoregate/connector"
)

// NATSURLEnv 指定已有的 NATS 地址
const NATSURLEnv = "SCOREGATE_TEST_NATS_URL"

// NewNATSConfig 返回 NATS 测试配置，规则同 NewRedisConfig
func NewNATSConfig(t *testing.T) *connector.NATSConfig {
	t.Helper()
	if url := os.Getenv(NATSURLEnv); url != "" {
		return &connector.NATSConfig{Name: "test-nats", URL: url}
	}
	if testing.Short() {
		t.Skip("nats: skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := natscontainer.Run(ctx, "nats:2.10-alpine")
	require.NoError(t, err, "failed to start nats container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return &connector.NATSConfig{
		Name:          "test-nats",
		URL:           url,
		MaxReconnects: 10,
		ReconnectWait: 100 * time.Millisecond,
	}
}

// NewNATSConnector 创建并连接 NATS 连接器，生命周期由 t.Cleanup 管理
func NewNATSConnector(t *testing.T) connector.NATSConnector {
	t.Helper()
	conn, err := connector.NewNATS(NewNATSConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create nats connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to nats")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
