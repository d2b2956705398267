package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/scoregate/testkit"
	"github.com/ceyewan/scoregate/xerrors"
)

const upstreamScoreboard = `{
  "season": {"year": 2025, "type": 2},
  "week": {"number": 10},
  "events": [{
    "id": "401772510",
    "date": "2025-11-09T18:00Z",
    "competitions": [{
      "competitors": [
        {"homeAway": "home", "winner": true, "score": "30", "team": {"id": "15", "abbreviation": "MIA", "displayName": "Miami Dolphins"}},
        {"homeAway": "away", "score": "13", "team": {"id": "2", "abbreviation": "BUF", "displayName": "Buffalo Bills"}}
      ],
      "status": {"period": 4, "type": {"name": "STATUS_FINAL", "state": "post", "completed": true, "shortDetail": "Final"}}
    }]
  }]
}`

// ======== 生命周期 ========

type recorder struct {
	calls []string
}

func (r *recorder) hook(name string, phase int, startErr error) Hook {
	return Hook{
		At: phase,
		OnStart: func(context.Context) error {
			r.calls = append(r.calls, "start:"+name)
			return startErr
		},
		OnStop: func(context.Context) error {
			r.calls = append(r.calls, "stop:"+name)
			return nil
		},
	}
}

func TestLifecycleManager(t *testing.T) {
	t.Run("按阶段启动并逆序停止", func(t *testing.T) {
		r := &recorder{}
		m := NewLifecycleManager()
		m.Register("http", r.hook("http", PhaseService, nil))
		m.Register("redis", r.hook("redis", PhaseConnector, nil))
		m.Register("cache", r.hook("cache", PhaseComponent, nil))
		m.Register("metrics", r.hook("metrics", PhaseTelemetry, nil))
		m.Register("nats", r.hook("nats", PhaseConnector, nil))

		require.NoError(t, m.StartAll(context.Background()))
		assert.Equal(t, []string{"metrics", "redis", "nats", "cache", "http"}, m.Names())
		require.NoError(t, m.StopAll(context.Background()))

		assert.Equal(t, []string{
			"start:metrics", "start:redis", "start:nats", "start:cache", "start:http",
			"stop:http", "stop:cache", "stop:nats", "stop:redis", "stop:metrics",
		}, r.calls)
	})

	t.Run("启动失败时回滚已启动的项", func(t *testing.T) {
		r := &recorder{}
		boom := errors.New("dial refused")
		m := NewLifecycleManager()
		m.Register("redis", r.hook("redis", PhaseConnector, nil))
		m.Register("kafka", r.hook("kafka", PhaseConnector, boom))
		m.Register("http", r.hook("http", PhaseService, nil))

		err := m.StartAll(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)

		var lerr *LifecycleError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, "kafka", lerr.Name)

		assert.Equal(t, []string{"start:redis", "start:kafka", "stop:redis"}, r.calls)
	})

	t.Run("停止错误被合并", func(t *testing.T) {
		m := NewLifecycleManager()
		m.Register("a", Hook{OnStop: func(context.Context) error { return errors.New("a") }})
		m.Register("b", Hook{OnStop: func(context.Context) error { return errors.New("b") }})
		require.NoError(t, m.StartAll(context.Background()))

		err := m.StopAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[a]")
		assert.Contains(t, err.Error(), "[b]")
	})
}

// ======== 配置 ========

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知事件转发方式", func(c *Config) { c.Events.Sink = "rabbitmq" }},
		{"未知缓存驱动", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"未知归档驱动", func(c *Config) { c.Archive.Enabled = true; c.Archive.Driver = "postgres" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaults()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), xerrors.ErrInvalidInput)
		})
	}

	t.Run("默认配置合法", func(t *testing.T) {
		cfg := &Config{}
		cfg.setDefaults()
		require.NoError(t, cfg.Validate())
		assert.False(t, cfg.needsRedis())
		assert.Equal(t, "scoregate", cfg.HTTP.ServiceName)
		assert.Equal(t, "espn", cfg.Provider.RateLimit.Name)
	})

	t.Run("Redis 缓存或限流需要 Redis 连接", func(t *testing.T) {
		cfg := &Config{}
		cfg.setDefaults()
		cfg.Provider.RateLimit.Driver = "redis"
		assert.True(t, cfg.needsRedis())
	})
}

func TestDefaultsCoverComponents(t *testing.T) {
	d := Defaults()
	for _, key := range []string{
		"http.addr", "cache.driver", "provider.espn.base_url",
		"provider.rate_limit.max_requests", "provider.breaker.failure_threshold",
		"events.sink", "archive.driver",
	} {
		assert.Contains(t, d, key)
	}
}

// ======== 组装 ========

func newTestConfig(t *testing.T, upstream string) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.Mode = "test"
	cfg.Provider.ESPN.BaseURL = upstream
	cfg.Provider.RequestTimeout = 2 * time.Second
	cfg.Archive.Enabled = true
	cfg.Archive.SQLite.Path = "file:" + testkit.NewID() + "?mode=memory&cache=shared"
	return cfg
}

func newUpstream(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(upstreamScoreboard))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Run("配置为空", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("配置非法", func(t *testing.T) {
		_, err := New(&Config{Events: EventsConfig{Sink: "rabbitmq"}}, WithLogger(testkit.NewLogger()))
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("组装完成后可直接处理请求", func(t *testing.T) {
		var calls atomic.Int32
		upstream := newUpstream(t, &calls)
		cfg := newTestConfig(t, upstream.URL)
		cfg.Archive.Enabled = false

		a, err := New(cfg, WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
		require.NoError(t, err)
		assert.Equal(t, []string{"trace", "cache", "ratelimit", "http"}, a.lifecycle.Names())

		for range 2 {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/scoreboard?season=2025&week=10", nil)
			a.Server().Handler().ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
		assert.Equal(t, int32(1), calls.Load(), "第二次请求命中缓存")

		w := httptest.NewRecorder()
		a.Server().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/archive/games/401772510", nil))
		assert.Equal(t, http.StatusNotFound, w.Code, "未启用归档")
	})
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	upstream := newUpstream(t, &calls)

	a, err := New(newTestConfig(t, upstream.URL), WithLogger(testkit.NewLogger()), WithMeter(testkit.NewMeter()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.Server().Addr() != "127.0.0.1:0"
	}, 5*time.Second, 10*time.Millisecond)
	base := "http://" + a.Server().Addr()

	get := func(path string) (int, map[string]any) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, _ := get("/healthz")
	assert.Equal(t, http.StatusOK, status)

	status, body := get("/api/scoreboard?season=2025&seasonType=regular&week=10")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["fromCache"])

	// 抓取成功的已完赛比赛经由事件总线异步写入归档
	require.Eventually(t, func() bool {
		status, body = get("/api/archive/games/401772510")
		return status == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	payload, ok := body["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "401772510", payload["id"])

	status, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run 未在 ctx 取消后返回")
	}
}
