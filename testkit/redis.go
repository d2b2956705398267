package testkit

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/scoregate/connector"
)

// RedisAddrEnv 指定已有的 Redis 地址，设置后不再启动容器
const RedisAddrEnv = "SCOREGATE_TEST_REDIS_ADDR"

// NewRedisConfig 返回 Redis 测试配置
//
// 优先使用 SCOREGATE_TEST_REDIS_ADDR；未设置时启动 redis 容器，
// 在 -short 模式或 Docker 不可用时跳过测试。
func NewRedisConfig(t *testing.T) *connector.RedisConfig {
	t.Helper()
	if addr := os.Getenv(RedisAddrEnv); addr != "" {
		return &connector.RedisConfig{Name: "test-redis", Addr: addr, DB: 1}
	}
	if testing.Short() {
		t.Skip("redis: skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := rediscontainer.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return &connector.RedisConfig{Name: "test-redis", Addr: addr}
}

// NewRedisConnector 创建并连接 Redis 连接器，生命周期由 t.Cleanup 管理
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(NewRedisConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
