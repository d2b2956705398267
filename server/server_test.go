package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/breaker"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/ratelimit"
	"github.com/ceyewan/scoregate/testkit"
	"github.com/ceyewan/scoregate/usecase"
	"github.com/ceyewan/scoregate/xerrors"
)

var cachedAt = time.Date(2025, 11, 9, 20, 0, 0, 0, time.UTC)

type fakeWeek struct {
	err   error
	query game.Query
}

func (f *fakeWeek) Get(_ context.Context, q game.Query) (*usecase.Result[[]game.Game], error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	games := []game.Game{{ID: "401772510", Status: game.StatusFinal}}
	return &usecase.Result[[]game.Game]{
		Payload:   games,
		FromCache: true,
		Metadata:  usecase.Metadata{CachedAt: cachedAt, TTL: time.Hour, Counts: game.Count(games)},
	}, nil
}

type fakeLive struct{ err error }

func (f *fakeLive) Get(context.Context) (*usecase.Result[[]game.Game], error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.Result[[]game.Game]{Payload: []game.Game{}, Metadata: usecase.Metadata{TTL: 15 * time.Second}}, nil
}

type fakeGame struct{}

func (fakeGame) Get(_ context.Context, id string) (*usecase.Result[*game.Game], error) {
	switch id {
	case "panic":
		panic("boom")
	case "401772510":
		return &usecase.Result[*game.Game]{Payload: &game.Game{ID: id, Status: game.StatusLive}}, nil
	default:
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "game %s", id)
	}
}

type fakeArchive struct{}

func (fakeArchive) FindGame(_ context.Context, id string) (*game.Game, error) {
	if id == "1" {
		return &game.Game{ID: "1", Status: game.StatusFinal}, nil
	}
	return nil, xerrors.ErrNotFound
}

type fixture struct {
	srv        *Server
	scoreboard *fakeWeek
	schedule   *fakeWeek
	live       *fakeLive
	brk        breaker.Breaker
}

func newFixture(t *testing.T, archive ArchiveReader) *fixture {
	t.Helper()
	logger, meter := testkit.NewLogger(), testkit.NewMeter()

	limiter, err := ratelimit.New(&ratelimit.Config{Name: "espn", MaxRequests: 10, Window: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	brk, err := breaker.New(&breaker.Config{Name: "espn"})
	require.NoError(t, err)
	p, err := provider.New(&provider.Config{Name: "espn"}, limiter, brk)
	require.NoError(t, err)

	f := &fixture{scoreboard: &fakeWeek{}, schedule: &fakeWeek{}, live: &fakeLive{}, brk: brk}
	f.srv, err = New(&Config{Addr: "127.0.0.1:0", Mode: "test"}, Deps{
		Scoreboard: f.scoreboard,
		Schedule:   f.schedule,
		LiveGames:  f.live,
		Game:       fakeGame{},
		Archive:    archive,
		Provider:   p,
	}, WithLogger(logger), WithMeter(meter))
	require.NoError(t, err)
	return f
}

func (f *fixture) get(t *testing.T, target string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestNew(t *testing.T) {
	_, err := New(nil, Deps{})
	assert.ErrorIs(t, err, ErrDepsMissing)
}

func TestScoreboardRoute(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("返回信封", func(t *testing.T) {
		rec, body := f.get(t, "/api/scoreboard?season=2025&week=10")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, game.Query{Season: 2025, SeasonType: game.SeasonRegular, Week: 10}, f.scoreboard.query)

		assert.Equal(t, true, body["fromCache"])
		md := body["metadata"].(map[string]any)
		assert.Equal(t, 3600.0, md["ttlSeconds"])
		assert.Equal(t, 1.0, md["total"])
		assert.Equal(t, 1.0, md["completed"])
		assert.Len(t, body["payload"], 1)
	})

	t.Run("季后赛", func(t *testing.T) {
		rec, _ := f.get(t, "/api/scoreboard?season=2024&seasonType=postseason&week=2")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, game.SeasonPostseason, f.scoreboard.query.SeasonType)
	})

	for _, target := range []string{
		"/api/scoreboard?week=10",
		"/api/scoreboard?season=2025",
		"/api/scoreboard?season=1980&week=1",
		"/api/scoreboard?season=2025&week=26",
		"/api/scoreboard?season=2025&week=1&seasonType=spring",
		"/api/scoreboard?season=abc&week=1",
	} {
		t.Run("参数校验 "+target, func(t *testing.T) {
			rec, body := f.get(t, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, xerrors.CodeInvalidInput, errorCode(body))
		})
	}
}

func TestScheduleRoute(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.get(t, "/api/schedule?season=2025")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.schedule.query.Week)

	f.schedule.err = &provider.Error{Provider: "espn", Operation: "scoreboard", Err: provider.ErrUnavailable}
	rec, body := f.get(t, "/api/schedule?season=2025&week=3")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, xerrors.CodeUnavailable, errorCode(body))
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestGameRoutes(t *testing.T) {
	t.Run("详情", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, body := f.get(t, "/api/games/401772510")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "401772510", body["payload"].(map[string]any)["id"])
	})

	t.Run("不存在", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, body := f.get(t, "/api/games/0")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, xerrors.CodeNotFound, errorCode(body))
	})

	t.Run("进行中比赛", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, body := f.get(t, "/api/games/live")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, body["fromCache"])
	})

	t.Run("上游错误", func(t *testing.T) {
		f := newFixture(t, nil)
		f.live.err = &provider.Error{Provider: "espn", Operation: "current", Err: xerrors.Wrap(provider.ErrUpstream, "status 500")}
		rec, body := f.get(t, "/api/games/live")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, xerrors.CodeUpstream, errorCode(body))
	})

	t.Run("归档未启用", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, _ := f.get(t, "/api/archive/games/1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("归档", func(t *testing.T) {
		f := newFixture(t, fakeArchive{})
		rec, _ := f.get(t, "/api/archive/games/1")
		assert.Equal(t, http.StatusOK, rec.Code)
		rec, _ = f.get(t, "/api/archive/games/2")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("handler panic 返回 500", func(t *testing.T) {
		f := newFixture(t, nil)
		rec, body := f.get(t, "/api/games/panic")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, xerrors.CodeInternal, errorCode(body))
	})
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"不存在", xerrors.Wrap(xerrors.ErrNotFound, "game"), http.StatusNotFound},
		{"参数非法", xerrors.Wrap(xerrors.ErrInvalidInput, "week"), http.StatusBadRequest},
		{"熔断打开", provider.ErrUnavailable, http.StatusServiceUnavailable},
		{"限流超时", ratelimit.ErrAcquireTimeout, http.StatusServiceUnavailable},
		{"请求超时", xerrors.Join(provider.ErrRequestTimeout, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"上游错误", xerrors.Wrap(provider.ErrUpstream, "status 502"), http.StatusBadGateway},
		{"格式错误", provider.ErrTransform, http.StatusBadGateway},
		{"其它", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := statusOf(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestProbes(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.get(t, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", body["breaker"].(map[string]any)["state"])
	assert.Equal(t, 10.0, body["tokens"])

	f.brk.ForceState(breaker.StateOpen)
	rec, body = f.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])

	rec, _ = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.get(t, "/healthz", HeaderRequestID, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))

	rec, _ = f.get(t, "/healthz")
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)

	rec, body := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, body["error"].(map[string]any)["requestId"])
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := testkit.NewContext(t, 5*time.Second)

	require.NoError(t, f.srv.Start(ctx))
	resp, err := http.Get("http://" + f.srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.srv.Stop(ctx))
	assert.Equal(t, PhaseService, f.srv.Phase())
}
