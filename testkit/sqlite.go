package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/connector"
)

// NewSQLiteConnector 创建一个独立的内存 SQLite 连接器
//
// 每次调用使用不同的共享缓存名，同一测试内的多个连接看到同一份数据。
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(&connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: "file:" + NewID() + "?mode=memory&cache=shared",
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
