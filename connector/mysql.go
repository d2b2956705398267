package connector

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 创建 MySQL 连接器
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dsn := cfg.dsn()
	target := "dsn"
	if cfg.DSN == "" {
		target = fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	return newGormConnector("mysql", cfg.Name, target,
		func() gorm.Dialector { return mysql.Open(dsn) },
		&poolConfig{
			maxIdle:     cfg.MaxIdleConns,
			maxOpen:     cfg.MaxOpenConns,
			maxLifetime: cfg.ConnMaxLifetime,
		}, applyOptions(opts...)), nil
}
