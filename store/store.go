// Package store 把已结束的比赛归档到关系数据库，供 /api/archive 查询。
//
// 归档器借用 connector 的 *gorm.DB，不负责连接的生命周期。
// 它作为事件总线的异步订阅者工作：订阅 "*.fetched"，从事件 Payload 中取出
// 已结束的比赛，在一个事务中 upsert 到 game_records 表。
// 写入在独立的 goroutine 中完成，慢查询不会拖住发布事件的请求；归档失败只记录日志。
//
//	sqliteConn, _ := connector.NewSQLite(&cfg.SQLite, connector.WithLogger(logger))
//	archive, _ := store.New(&store.Config{Driver: "sqlite"},
//		store.WithSQLiteConnector(sqliteConn), store.WithLogger(logger))
//	detach := archive.Attach(bus)
//	defer detach()
//
//	g, err := archive.FindGame(ctx, "401772510")
package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/xerrors"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// FetchedPattern 归档器订阅的事件模式
const FetchedPattern = "*.fetched"

// Config 归档配置
type Config struct {
	Driver string `mapstructure:"driver"` // sqlite|mysql
	// AutoMigrate 启动时自动建表（默认：true）
	AutoMigrate *bool `mapstructure:"auto_migrate"`
	// Silent 关闭 SQL 日志
	Silent bool `mapstructure:"silent"`
	// Async 写入队列，默认 64 个事件、单次写入 5s
	Async eventbus.AsyncConfig `mapstructure:"async"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.AutoMigrate == nil {
		on := true
		c.AutoMigrate = &on
	}
}

// Archive 比赛归档
type Archive interface {
	// Save upsert 已结束的比赛，其余状态的比赛被忽略，返回写入条数
	Save(ctx context.Context, games ...game.Game) (int, error)
	// FindGame 按 id 读取归档，不存在时返回匹配 xerrors.ErrNotFound 的错误
	FindGame(ctx context.Context, id string) (*game.Game, error)
	// Attach 订阅总线上的 fetched 事件，返回取消订阅函数；
	// detach 会等待已入队的事件写完
	Attach(bus eventbus.Bus) (detach func())
	// Transaction 在事务中执行 fn，Save 的批量写入也经由这里
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error
	Close() error
}

type archive struct {
	db     *gorm.DB
	async  eventbus.AsyncConfig
	logger clog.Logger
	meter  metrics.Meter
	inst   *instruments
}

// New 创建归档器，按 Driver 使用对应的连接器
func New(cfg *Config, opts ...Option) (Archive, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()

	o := applyOptions(opts...)

	var db *gorm.DB
	switch c.Driver {
	case DriverSQLite:
		if o.sqliteConnector == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "sqlite")
		}
		db = o.sqliteConnector.GetClient()
	case DriverMySQL:
		if o.mysqlConnector == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "mysql")
		}
		db = o.mysqlConnector.GetClient()
	default:
		return nil, xerrors.Wrapf(ErrUnsupportedDriver, "%q", c.Driver)
	}
	if db == nil {
		return nil, ErrNotConnected
	}

	db = db.Session(&gorm.Session{Logger: newGormLogger(o.logger, c.Silent)})

	if *c.AutoMigrate {
		if err := db.AutoMigrate(&GameRecord{}); err != nil {
			return nil, xerrors.Wrap(err, "store: auto migrate")
		}
	}

	return &archive{
		db:     db,
		async:  c.Async,
		logger: o.logger.With(clog.String("driver", c.Driver)),
		meter:  o.meter,
		inst:   newInstruments(o.meter),
	}, nil
}

func (a *archive) Save(ctx context.Context, games ...game.Game) (int, error) {
	records := make([]GameRecord, 0, len(games))
	for i := range games {
		if games[i].IsCompleted() {
			records = append(records, fromGame(&games[i]))
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	// 同一事件的比赛要么全部写入，要么全部回滚
	err := a.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		for i := range records {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		a.inst.observe(ctx, outcomeError, len(records))
		return 0, xerrors.Wrap(err, "store: save games")
	}
	a.inst.observe(ctx, outcomeSuccess, len(records))
	return len(records), nil
}

func (a *archive) FindGame(ctx context.Context, id string) (*game.Game, error) {
	var rec GameRecord
	err := a.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if isNotFound(err) {
			return nil, xerrors.Wrapf(xerrors.ErrNotFound, "archived game %s", id)
		}
		return nil, xerrors.Wrap(err, "store: find game")
	}
	return rec.toGame(), nil
}

func (a *archive) Attach(bus eventbus.Bus) func() {
	return eventbus.SubscribeAsync(bus, FetchedPattern, a.handle, a.async,
		eventbus.WithLogger(a.logger), eventbus.WithMeter(a.meter))
}

// handle 处理 fetched 事件，Payload 为 []game.Game 或 *game.Game
func (a *archive) handle(ctx context.Context, ev eventbus.Event) error {
	var games []game.Game
	switch p := ev.Payload.(type) {
	case []game.Game:
		games = p
	case *game.Game:
		if p != nil {
			games = []game.Game{*p}
		}
	default:
		return nil
	}

	n, err := a.Save(ctx, games...)
	if err != nil {
		a.logger.WarnContext(ctx, "archive write failed",
			clog.String("event", ev.Name), clog.Error(err))
		return err
	}
	if n > 0 {
		a.logger.DebugContext(ctx, "archived games",
			clog.String("event", ev.Name), clog.Int("count", n))
	}
	return nil
}

func (a *archive) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// Close 连接由连接器管理，这里不需要关闭
func (a *archive) Close() error {
	return nil
}
