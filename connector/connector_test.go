package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/xerrors"
)

func TestConfigValidate(t *testing.T) {
	t.Run("Redis 缺少地址", func(t *testing.T) {
		_, err := NewRedis(&RedisConfig{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfig)
		assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
	})

	t.Run("Redis 默认值", func(t *testing.T) {
		cfg := &RedisConfig{Addr: "127.0.0.1:6379"}
		require.NoError(t, cfg.validate())
		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, 10, cfg.PoolSize)
	})

	t.Run("NATS 缺少 URL", func(t *testing.T) {
		_, err := NewNATS(&NATSConfig{})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("Kafka 缺少 seed", func(t *testing.T) {
		_, err := NewKafka(&KafkaConfig{})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("MySQL DSN 优先", func(t *testing.T) {
		cfg := &MySQLConfig{DSN: "u:p@tcp(db:3306)/x"}
		require.NoError(t, cfg.validate())
		assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.dsn())
	})

	t.Run("MySQL 字段拼接", func(t *testing.T) {
		cfg := &MySQLConfig{Host: "db", Username: "u", Password: "p", Database: "games"}
		require.NoError(t, cfg.validate())
		assert.Equal(t, "u:p@tcp(db:3306)/games?charset=utf8mb4&parseTime=True&loc=UTC", cfg.dsn())
	})

	t.Run("MySQL 缺少主机", func(t *testing.T) {
		_, err := NewMySQL(&MySQLConfig{Username: "u", Database: "d"})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("nil 配置", func(t *testing.T) {
		var cfg *SQLiteConfig
		assert.ErrorIs(t, cfg.validate(), ErrConfig)
	})
}

func TestSQLiteConnector(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLite(&SQLiteConfig{Name: "archive", Path: "file::memory:?cache=shared"})
	require.NoError(t, err)

	t.Run("连接前探活失败", func(t *testing.T) {
		err := conn.HealthCheck(ctx)
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.False(t, conn.IsHealthy())
		assert.Nil(t, conn.GetClient())
	})

	t.Run("连接与探活", func(t *testing.T) {
		require.NoError(t, conn.Connect(ctx))
		require.NoError(t, conn.Connect(ctx))
		assert.True(t, conn.IsHealthy())
		assert.NoError(t, conn.HealthCheck(ctx))
		assert.NotNil(t, conn.GetClient())
		assert.Equal(t, "archive", conn.Name())
	})

	t.Run("关闭后不再健康", func(t *testing.T) {
		require.NoError(t, conn.Close())
		assert.False(t, conn.IsHealthy())
		assert.Nil(t, conn.GetClient())
		assert.NoError(t, conn.Close())
	})
}

func TestRedisConnectorConnectFailure(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = conn.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.True(t, xerrors.Is(err, xerrors.ErrUnavailable))
	assert.False(t, conn.IsHealthy())
}
