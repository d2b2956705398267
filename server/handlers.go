package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/usecase"
	"github.com/ceyewan/scoregate/xerrors"
)

// scoreboardQuery /api/scoreboard 的查询参数
type scoreboardQuery struct {
	Season     int    `form:"season" binding:"required,min=1990,max=2100"`
	SeasonType string `form:"seasonType" binding:"omitempty,oneof=preseason regular postseason"`
	Week       int    `form:"week" binding:"required,min=1,max=25"`
}

// scheduleQuery week 可省略，表示整个赛季阶段
type scheduleQuery struct {
	Season     int    `form:"season" binding:"required,min=1990,max=2100"`
	SeasonType string `form:"seasonType" binding:"omitempty,oneof=preseason regular postseason"`
	Week       int    `form:"week" binding:"omitempty,min=1,max=25"`
}

type metadata struct {
	CachedAt   time.Time `json:"cachedAt"`
	TTLSeconds float64   `json:"ttlSeconds"`
	game.Counts
}

type envelope struct {
	Payload   any      `json:"payload"`
	FromCache bool     `json:"fromCache"`
	Metadata  metadata `json:"metadata"`
}

func respond[T any](c *gin.Context, res *usecase.Result[T]) {
	c.JSON(http.StatusOK, envelope{
		Payload:   res.Payload,
		FromCache: res.FromCache,
		Metadata: metadata{
			CachedAt:   res.Metadata.CachedAt,
			TTLSeconds: res.Metadata.TTL.Seconds(),
			Counts:     res.Metadata.Counts,
		},
	})
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		writeError(c, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

func seasonType(s string) game.SeasonType {
	if s == "" {
		return game.SeasonRegular
	}
	return game.SeasonType(s)
}

func (s *Server) scoreboard(c *gin.Context) {
	var q scoreboardQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := s.deps.Scoreboard.Get(c.Request.Context(), game.Query{
		Season:     q.Season,
		SeasonType: seasonType(q.SeasonType),
		Week:       q.Week,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) schedule(c *gin.Context) {
	var q scheduleQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := s.deps.Schedule.Get(c.Request.Context(), game.Query{
		Season:     q.Season,
		SeasonType: seasonType(q.SeasonType),
		Week:       q.Week,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) liveGames(c *gin.Context) {
	res, err := s.deps.LiveGames.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) gameDetails(c *gin.Context) {
	res, err := s.deps.Game.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, res)
}

func (s *Server) archivedGame(c *gin.Context) {
	if s.deps.Archive == nil {
		writeError(c, xerrors.Wrap(xerrors.ErrNotFound, "archive disabled"))
		return
	}
	g, err := s.deps.Archive.FindGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payload": g})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyz 熔断器打开时返回 503
func (s *Server) readyz(c *gin.Context) {
	p := s.deps.Provider
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	snap := p.Breaker().Metrics()
	tokens, err := p.Limiter().Available(c.Request.Context())
	body := gin.H{
		"status":   "ok",
		"provider": p.Name(),
		"breaker":  snap,
		"tokens":   tokens,
	}
	if err != nil {
		body["tokens"] = nil
		body["limiterError"] = err.Error()
	}

	status := http.StatusOK
	if snap.State == breaker.StateOpen.String() {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
