// Package server 是 scoregate 的 HTTP 边界，基于 gin。
//
// 路由：
//
//	GET /api/scoreboard?season=&seasonType=&week=
//	GET /api/schedule?season=&seasonType=&week=
//	GET /api/games/live
//	GET /api/games/:id
//	GET /api/archive/games/:id
//	GET /healthz
//	GET /readyz
//	GET /metrics
//
// 中间件顺序：recovery → request id → otelgin → RED 指标 → 访问日志。
// 业务错误通过 xerrors 的哨兵类别映射为 HTTP 状态码。
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/metrics"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/usecase"
	"github.com/ceyewan/scoregate/xerrors"
)

// PhaseService 在容器中的启动阶段
const PhaseService = 30

// Config HTTP 服务配置
type Config struct {
	Addr              string        `mapstructure:"addr"`
	Mode              string        `mapstructure:"mode"` // debug|release|test
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	ServiceName       string        `mapstructure:"-"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "scoregate"
	}
}

// ScoreboardService 按周比分
type ScoreboardService interface {
	Get(ctx context.Context, q game.Query) (*usecase.Result[[]game.Game], error)
}

// LiveGamesService 进行中比赛
type LiveGamesService interface {
	Get(ctx context.Context) (*usecase.Result[[]game.Game], error)
}

// GameService 单场详情
type GameService interface {
	Get(ctx context.Context, id string) (*usecase.Result[*game.Game], error)
}

// ArchiveReader 归档查询
type ArchiveReader interface {
	FindGame(ctx context.Context, id string) (*game.Game, error)
}

// Deps 路由依赖，Archive 为 nil 时归档接口返回 404
type Deps struct {
	Scoreboard ScoreboardService
	Schedule   ScoreboardService
	LiveGames  LiveGamesService
	Game       GameService
	Archive    ArchiveReader
	Provider   *provider.Client
}

// Server HTTP 服务
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	srv    *http.Server
	logger clog.Logger
	meter  metrics.Meter

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// New 创建 HTTP 服务并注册路由
func New(cfg *Config, deps Deps, opts ...Option) (*Server, error) {
	if deps.Scoreboard == nil || deps.Schedule == nil || deps.LiveGames == nil || deps.Game == nil {
		return nil, ErrDepsMissing
	}
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	o := applyOptions(opts...)

	gin.SetMode(c.Mode)
	s := &Server{
		cfg:    c,
		deps:   deps,
		engine: gin.New(),
		logger: o.logger,
		meter:  o.meter,
	}

	httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter, c.ServiceName)
	if err != nil {
		return nil, xerrors.Wrap(err, "server: http metrics")
	}

	s.engine.Use(
		gin.CustomRecovery(s.recover),
		requestID(),
		trace.GinMiddleware(c.ServiceName),
		metrics.GinHTTPMiddleware(httpMetrics, "/healthz", "/readyz", "/metrics"),
		accessLog(s.logger),
	)
	s.routes()

	s.srv = &http.Server{
		Addr:              c.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/readyz", s.readyz)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler(s.meter)))

	api := s.engine.Group("/api")
	api.GET("/scoreboard", s.scoreboard)
	api.GET("/schedule", s.schedule)
	api.GET("/games/live", s.liveGames)
	api.GET("/games/:id", s.gameDetails)
	api.GET("/archive/games/:id", s.archivedGame)

	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, xerrors.Wrapf(xerrors.ErrNotFound, "route %s", c.Request.URL.Path))
	})
}

// Handler 返回根 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 监听地址，Start 之前返回配置值
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Start 监听端口并在后台提供服务
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return xerrors.Wrapf(err, "server: listen %s", s.cfg.Addr)
	}
	s.mu.Lock()
	s.listener = ln
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("http server listening", clog.String("addr", ln.Addr().String()))
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", clog.Error(err))
		}
	}()
	return nil
}

// Stop 在 ShutdownTimeout 内优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-done
	s.logger.Info("http server stopped")
	return err
}

func (s *Server) Phase() int {
	return PhaseService
}

func (s *Server) recover(c *gin.Context, rec any) {
	s.logger.ErrorContext(c.Request.Context(), "panic in http handler",
		clog.Any("panic", rec),
		clog.String("path", c.Request.URL.Path))
	writeError(c, xerrors.New("internal error"))
}
