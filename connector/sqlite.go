package connector

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建 SQLite 连接器，实际连接在 Connect 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	path := cfg.Path
	return newGormConnector("sqlite", cfg.Name, path,
		func() gorm.Dialector { return sqlite.Open(path) },
		nil, applyOptions(opts...)), nil
}
