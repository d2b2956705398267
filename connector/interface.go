// Package connector 管理 scoregate 依赖的外部连接：Redis、NATS、Kafka、SQLite 与 MySQL。
//
// 连接器只负责建立、探活与关闭连接，不承载业务逻辑。上层组件（缓存、限流、
// 事件投递、赛果归档）通过 GetClient 拿到原生客户端后自行使用。
//
//	conn, err := connector.NewRedis(&cfg, connector.WithLogger(logger))
//	if err != nil { ... }
//	if err := conn.Connect(ctx); err != nil { ... }
//	defer conn.Close()
package connector

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"gorm.io/gorm"
)

// Connector 所有连接器的公共接口
type Connector interface {
	// Connect 建立连接，重复调用是幂等的
	Connect(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error
	// IsHealthy 返回最近一次探活的结果，不发起网络请求
	IsHealthy() bool
	Name() string
}

// TypedConnector 暴露原生客户端的连接器
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// NATSConnector NATS 连接器
type NATSConnector interface {
	TypedConnector[*nats.Conn]
}

// KafkaConnector Kafka 连接器
type KafkaConnector interface {
	TypedConnector[*kgo.Client]
	Config() *KafkaConfig
}

// SQLiteConnector SQLite 连接器
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}

// MySQLConnector MySQL 连接器
type MySQLConnector interface {
	TypedConnector[*gorm.DB]
}
