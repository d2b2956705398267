// Package app 组装 scoregate 的全部组件并管理它们的生命周期。
//
// 所有实例都在 New 中显式构造并注入，不存在包级单例：
//
//	logger → meter → tracer → connectors → cache → bus(+sink, archive)
//	       → limiter/breaker → provider → espn → use cases → http
//
// Run 按阶段启动（连接器 → 组件 → HTTP），阻塞到 ctx 结束后逆序停止。
package app

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/espn"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/ratelimit"
	"github.com/ceyewan/scoregate/server"
	"github.com/ceyewan/scoregate/store"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/usecase"
	"github.com/ceyewan/scoregate/xerrors"
)

// Option App 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 使用外部 Logger，不再按 cfg.Log 创建
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMeter 使用外部 Meter，不再按 cfg.Metrics 创建
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// UseCases 四个编排器
type UseCases struct {
	Scoreboard  *usecase.Scoreboard
	Schedule    *usecase.Schedule
	LiveGames   *usecase.LiveGames
	GameDetails *usecase.GameDetails
}

// App 应用容器
type App struct {
	cfg    Config
	logger clog.Logger
	meter  metrics.Meter

	bus      eventbus.Bus
	cache    cache.Cache
	provider *provider.Client
	espn     *espn.Client
	useCases UseCases
	server   *server.Server
	archive  archiveSlot

	lifecycle *LifecycleManager
}

// New 构造全部组件，不建立任何网络连接
func New(cfg *Config, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "app: config is nil")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{cfg: *cfg, lifecycle: NewLifecycleManager()}
	a.cfg.setDefaults()
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	c := &a.cfg

	// 构造失败时释放已创建的资源
	var cleanups []func(context.Context) error
	defer func() {
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				_ = cleanups[i](context.Background())
			}
		}
	}()

	// 日志
	a.logger = o.logger
	if a.logger == nil {
		a.logger, err = clog.New(&c.Log,
			clog.WithNamespace(c.App.Name),
			clog.WithStandardContext(),
			clog.WithTraceContext())
		if err != nil {
			return nil, xerrors.Wrap(err, "app: create logger")
		}
	}

	// 指标
	a.meter = o.meter
	if a.meter == nil {
		a.meter, err = metrics.New(&c.Metrics, metrics.WithLogger(a.logger))
		if err != nil {
			return nil, xerrors.Wrap(err, "app: create meter")
		}
		cleanups = append(cleanups, a.meter.Shutdown)
		a.lifecycle.Register("metrics", Hook{At: PhaseTelemetry, OnStop: a.meter.Shutdown})
	}

	// 链路
	shutdownTrace, err := trace.Init(&c.Trace)
	if err != nil {
		return nil, xerrors.Wrap(err, "app: init tracing")
	}
	cleanups = append(cleanups, shutdownTrace)
	a.lifecycle.Register("trace", Hook{At: PhaseTelemetry, OnStop: shutdownTrace})

	connOpts := []connector.Option{
		connector.WithLogger(a.logger),
		connector.WithMeter(a.meter),
		connector.WithTracing(c.Trace.Enabled),
	}

	// Redis
	var redisConn connector.RedisConnector
	if c.needsRedis() {
		redisConn, err = connector.NewRedis(&c.Redis, connOpts...)
		if err != nil {
			return nil, xerrors.Wrap(err, "app: create redis connector")
		}
		cleanups = append(cleanups, closer(redisConn))
		a.registerConnector("redis", redisConn)
	}

	// 缓存
	cacheOpts := []cache.Option{cache.WithLogger(a.logger), cache.WithMeter(a.meter)}
	if redisConn != nil {
		cacheOpts = append(cacheOpts, cache.WithRedisConnector(redisConn))
	}
	a.cache, err = cache.New(&c.Cache, cacheOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create cache")
	}
	cleanups = append(cleanups, closer(a.cache))
	a.lifecycle.Register("cache", Hook{At: PhaseComponent, OnStop: closer(a.cache)})

	// 事件总线
	a.bus = eventbus.New(eventbus.WithLogger(a.logger), eventbus.WithMeter(a.meter))
	eventLogger := a.logger.WithNamespace("events")
	a.bus.Subscribe("*", func(ctx context.Context, ev eventbus.Event) error {
		eventLogger.DebugContext(ctx, ev.Name, clog.Any("data", ev.Data))
		return nil
	})
	if err := a.buildSink(connOpts); err != nil {
		return nil, err
	}
	if err := a.buildArchive(connOpts); err != nil {
		return nil, err
	}

	// 上游
	limiterOpts := []ratelimit.Option{ratelimit.WithLogger(a.logger), ratelimit.WithMeter(a.meter)}
	if redisConn != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithRedisConnector(redisConn))
	}
	limiter, err := ratelimit.New(&c.Provider.RateLimit, limiterOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create rate limiter")
	}
	cleanups = append(cleanups, closer(limiter))
	a.lifecycle.Register("ratelimit", Hook{At: PhaseComponent, OnStop: closer(limiter)})

	brk, err := breaker.New(&c.Provider.Breaker, breaker.WithLogger(a.logger), breaker.WithMeter(a.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create breaker")
	}

	a.provider, err = provider.New(&c.Provider.Config, limiter, brk,
		provider.WithLogger(a.logger), provider.WithMeter(a.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create provider")
	}
	a.espn, err = espn.New(&c.Provider.ESPN, a.provider, espn.WithLogger(a.logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create espn client")
	}

	// 编排器
	ucOpts := []usecase.Option{usecase.WithLogger(a.logger), usecase.WithMeter(a.meter)}
	a.useCases = UseCases{
		Scoreboard:  usecase.NewScoreboard(a.espn, a.cache, a.bus, ucOpts...),
		Schedule:    usecase.NewSchedule(a.espn, a.cache, a.bus, ucOpts...),
		LiveGames:   usecase.NewLiveGames(a.espn, a.cache, a.bus, ucOpts...),
		GameDetails: usecase.NewGameDetails(a.espn, a.cache, a.bus, ucOpts...),
	}

	// HTTP
	httpCfg := c.HTTP
	a.server, err = server.New(&httpCfg, server.Deps{
		Scoreboard: a.useCases.Scoreboard,
		Schedule:   a.useCases.Schedule,
		LiveGames:  a.useCases.LiveGames,
		Game:       a.useCases.GameDetails,
		Archive:    &a.archive,
		Provider:   a.provider,
	}, server.WithLogger(a.logger), server.WithMeter(a.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create http server")
	}
	a.lifecycle.Register("http", a.server)

	a.logger.Info("application assembled",
		clog.String("cache", c.Cache.Driver),
		clog.String("rate_limit", c.Provider.RateLimit.Driver),
		clog.String("events_sink", c.Events.Sink),
		clog.Bool("archive", c.Archive.Enabled),
		clog.String("upstream", c.Provider.ESPN.BaseURL))
	return a, nil
}

// registerConnector 连接在启动阶段建立，停止时关闭
func (a *App) registerConnector(name string, conn connector.Connector) {
	a.lifecycle.Register(name, Hook{
		At:      PhaseConnector,
		OnStart: conn.Connect,
		OnStop:  closer(conn),
	})
}

// buildSink 按 events.sink 创建转发器，启动阶段挂到总线上
func (a *App) buildSink(connOpts []connector.Option) error {
	c := &a.cfg.Events
	sinkOpts := []eventbus.Option{eventbus.WithLogger(a.logger), eventbus.WithMeter(a.meter)}

	var sink eventbus.Sink
	switch strings.ToLower(c.Sink) {
	case SinkNATS:
		conn, err := connector.NewNATS(&c.NATS, connOpts...)
		if err != nil {
			return xerrors.Wrap(err, "app: create nats connector")
		}
		a.registerConnector("nats", conn)
		if sink, err = eventbus.NewNATSSink(conn, c.SubjectPrefix, sinkOpts...); err != nil {
			return err
		}
	case SinkKafka:
		if c.Kafka.Topic == "" {
			c.Kafka.Topic = c.Topic
		}
		conn, err := connector.NewKafka(&c.Kafka, connOpts...)
		if err != nil {
			return xerrors.Wrap(err, "app: create kafka connector")
		}
		a.registerConnector("kafka", conn)
		if sink, err = eventbus.NewKafkaSink(conn, c.Topic, sinkOpts...); err != nil {
			return err
		}
	default:
		return nil
	}

	var detach func()
	a.lifecycle.Register("events-sink", Hook{
		At: PhaseComponent,
		OnStart: func(context.Context) error {
			detach = eventbus.Attach(a.bus, c.Pattern, sink)
			return nil
		},
		OnStop: func(context.Context) error {
			if detach != nil {
				detach()
			}
			return sink.Close()
		},
	})
	return nil
}

// buildArchive 数据库连接建立后才能迁移表结构，因此归档器在启动阶段创建
func (a *App) buildArchive(connOpts []connector.Option) error {
	c := &a.cfg.Archive
	if !c.Enabled {
		return nil
	}

	storeOpts := []store.Option{store.WithLogger(a.logger), store.WithMeter(a.meter)}
	switch c.Driver {
	case store.DriverMySQL:
		conn, err := connector.NewMySQL(&c.MySQL, connOpts...)
		if err != nil {
			return xerrors.Wrap(err, "app: create mysql connector")
		}
		a.registerConnector("mysql", conn)
		storeOpts = append(storeOpts, store.WithMySQLConnector(conn))
	default:
		conn, err := connector.NewSQLite(&c.SQLite, connOpts...)
		if err != nil {
			return xerrors.Wrap(err, "app: create sqlite connector")
		}
		a.registerConnector("sqlite", conn)
		storeOpts = append(storeOpts, store.WithSQLiteConnector(conn))
	}

	var detach func()
	a.lifecycle.Register("archive", Hook{
		At: PhaseComponent,
		OnStart: func(context.Context) error {
			archive, err := store.New(&c.Config, storeOpts...)
			if err != nil {
				return err
			}
			a.archive.set(archive)
			detach = archive.Attach(a.bus)
			return nil
		},
		OnStop: func(context.Context) error {
			if detach != nil {
				detach()
			}
			if archive := a.archive.take(); archive != nil {
				return archive.Close()
			}
			return nil
		},
	})
	return nil
}

// Run 启动全部组件并阻塞到 ctx 结束，然后逆序停止
func (a *App) Run(ctx context.Context) error {
	if err := a.lifecycle.StartAll(ctx); err != nil {
		a.logger.Error("application start failed", clog.Error(err))
		return err
	}
	a.logger.Info("application started",
		clog.String("addr", a.server.Addr()),
		clog.Any("components", a.lifecycle.Names()))

	<-ctx.Done()

	a.logger.Info("application stopping")
	err := a.lifecycle.StopAll(context.WithoutCancel(ctx))
	if err != nil {
		a.logger.Error("application stopped with errors", clog.Error(err))
	} else {
		a.logger.Info("application stopped")
	}
	a.logger.Flush()
	return err
}

func (a *App) Logger() clog.Logger {
	return a.logger
}

func (a *App) Bus() eventbus.Bus {
	return a.bus
}

func (a *App) Cache() cache.Cache {
	return a.cache
}

func (a *App) Provider() *provider.Client {
	return a.provider
}

func (a *App) UseCases() UseCases {
	return a.useCases
}

func (a *App) Server() *server.Server {
	return a.server
}

type closable interface {
	Close() error
}

func closer(c closable) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}

// archiveSlot 归档器在启动后才可用，未启用或未启动时按不存在处理
type archiveSlot struct {
	v atomic.Pointer[store.Archive]
}

func (s *archiveSlot) set(a store.Archive) {
	s.v.Store(&a)
}

func (s *archiveSlot) take() store.Archive {
	if p := s.v.Swap(nil); p != nil {
		return *p
	}
	return nil
}

func (s *archiveSlot) FindGame(ctx context.Context, id string) (*game.Game, error) {
	p := s.v.Load()
	if p == nil {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "archive disabled")
	}
	return (*p).FindGame(ctx, id)
}

