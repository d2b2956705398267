package espn

import (
	"context"
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
	"github.com/ceyewan/scoregate/xerrors"
)

const scoreboardJSON = `{
  "season": {"year": 2025, "type": 2},
  "week": {"number": 10},
  "events": [
    {
      "id": "401772510",
      "date": "2025-11-09T18:00Z",
      "name": "Buffalo Bills at Miami Dolphins",
      "shortName": "BUF @ MIA",
      "season": {"year": 2025, "type": 2},
      "week": {"number": 10},
      "competitions": [{
        "venue": {"fullName": "Hard Rock Stadium"},
        "competitors": [
          {"homeAway": "home", "winner": true, "score": "30",
           "team": {"id": "15", "abbreviation": "MIA", "displayName": "Miami Dolphins"}},
          {"homeAway": "away", "winner": false, "score": "13",
           "team": {"id": "2", "abbreviation": "BUF", "displayName": "Buffalo Bills"}}
        ],
        "status": {"displayClock": "0:00", "period": 4,
          "type": {"name": "STATUS_FINAL", "state": "post", "completed": true, "detail": "Final", "shortDetail": "Final"}}
      }]
    },
    {
      "id": "401772511",
      "date": "2025-11-09T21:25:00Z",
      "name": "Detroit Lions at Washington Commanders",
      "shortName": "DET @ WSH",
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "score": "7", "team": {"id": "28", "abbreviation": "WSH", "displayName": "Washington Commanders"}},
          {"homeAway": "away", "score": "14", "team": {"id": "8", "abbreviation": "DET", "displayName": "Detroit Lions"}}
        ],
        "status": {"displayClock": "8:42", "period": 2,
          "type": {"name": "STATUS_IN_PROGRESS", "state": "in", "completed": false, "shortDetail": "8:42 - 2nd"}}
      }]
    }
  ]
}`

const summaryJSON = `{
  "header": {
    "id": "401772510",
    "season": {"year": 2025, "type": 2},
    "week": 10,
    "competitions": [{
      "date": "2025-11-09T18:00Z",
      "competitors": [
        {"homeAway": "home", "winner": true, "score": "30", "team": {"id": "15", "abbreviation": "MIA", "displayName": "Miami Dolphins"}},
        {"homeAway": "away", "score": "13", "team": {"id": "2", "abbreviation": "BUF", "displayName": "Buffalo Bills"}}
      ],
      "status": {"period": 4, "type": {"name": "STATUS_FINAL", "state": "post", "completed": true, "shortDetail": "Final"}}
    }]
  },
  "gameInfo": {"venue": {"fullName": "Hard Rock Stadium"}}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, breaker.Breaker) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := testkit.NewLogger()
	limiter, err := ratelimit.New(&ratelimit.Config{Name: "espn", MaxRequests: 100, Window: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })
	brk, err := breaker.New(&breaker.Config{Name: "espn", MinimumRequests: 3})
	require.NoError(t, err)
	exec, err := provider.New(&provider.Config{Name: "espn", RequestTimeout: 200 * time.Millisecond}, limiter, brk,
		provider.WithLogger(logger))
	require.NoError(t, err)

	c, err := New(&Config{BaseURL: srv.URL + "/"}, exec, WithLogger(logger))
	require.NoError(t, err)
	return c, brk
}

func TestFetchScoreboard(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scoreboard", r.URL.Path)
		assert.Equal(t, "dates=2025&seasontype=2&week=10", r.URL.RawQuery)
		_, _ = w.Write([]byte(scoreboardJSON))
	})

	games, err := c.FetchScoreboard(context.Background(), game.Query{Season: 2025, SeasonType: game.SeasonRegular, Week: 10})
	require.NoError(t, err)
	require.Len(t, games, 2)

	final := games[0]
	assert.Equal(t, "401772510", final.ID)
	assert.Equal(t, game.StatusFinal, final.Status)
	assert.Equal(t, time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC), final.ScheduledAt)
	assert.Equal(t, "MIA", final.Home.Team.Abbreviation)
	assert.Equal(t, 30, final.Home.Score)
	assert.True(t, final.Home.Winner)
	assert.Equal(t, 13, final.Away.Score)
	assert.Equal(t, "Hard Rock Stadium", final.Venue)
	assert.Empty(t, final.Clock)

	live := games[1]
	assert.Equal(t, game.StatusLive, live.Status)
	assert.Equal(t, "8:42", live.Clock)
	assert.Equal(t, 2025, live.Season, "事件缺少 season 时使用响应级 season")
	assert.Equal(t, 10, live.Week)
}

func TestFetchScoreboardWithoutWeek(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("week"))
		assert.Equal(t, "3", r.URL.Query().Get("seasontype"))
		_, _ = w.Write([]byte(`{"events": []}`))
	})
	games, err := c.FetchScoreboard(context.Background(), game.Query{Season: 2024, SeasonType: game.SeasonPostseason})
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestFetchCurrent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(scoreboardJSON))
	})
	games, err := c.FetchCurrent(context.Background())
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestFetchGame(t *testing.T) {
	t.Run("正常返回", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/summary", r.URL.Path)
			assert.Equal(t, "401772510", r.URL.Query().Get("event"))
			_, _ = w.Write([]byte(summaryJSON))
		})
		g, err := c.FetchGame(context.Background(), "401772510")
		require.NoError(t, err)
		assert.Equal(t, game.StatusFinal, g.Status)
		assert.Equal(t, 10, g.Week)
		assert.Equal(t, "Hard Rock Stadium", g.Venue)
		assert.Equal(t, "BUF @ MIA", g.ShortName)
	})

	t.Run("404 为 NotFound 且不计入熔断", func(t *testing.T) {
		c, brk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
		for range 5 {
			_, err := c.FetchGame(context.Background(), "0")
			require.ErrorIs(t, err, xerrors.ErrNotFound)
		}
		assert.Equal(t, breaker.StateClosed, brk.State())
	})

	t.Run("competitions 为空视为不存在", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"header": {"id": "1", "competitions": []}}`))
		})
		_, err := c.FetchGame(context.Background(), "1")
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})

	t.Run("空 id", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("不应发出请求")
		})
		_, err := c.FetchGame(context.Background(), "")
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestUpstreamErrors(t *testing.T) {
	t.Run("非 2xx 为上游错误并打开熔断", func(t *testing.T) {
		c, brk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		for range 3 {
			_, err := c.FetchCurrent(context.Background())
			require.ErrorIs(t, err, provider.ErrUpstream)
			assert.Equal(t, xerrors.CodeUpstream, xerrors.GetCode(err))
		}
		assert.Equal(t, breaker.StateOpen, brk.State())

		_, err := c.FetchCurrent(context.Background())
		assert.ErrorIs(t, err, xerrors.ErrUnavailable)
	})

	t.Run("非法 JSON 为转换错误", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"events": [`))
		})
		_, err := c.FetchCurrent(context.Background())
		assert.ErrorIs(t, err, provider.ErrTransform)
	})

	t.Run("缺少主客队为转换错误", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"events": [{"id": "1", "date": "2025-11-09T18:00Z", "competitions": [{"competitors": []}]}]}`))
		})
		_, err := c.FetchCurrent(context.Background())
		assert.ErrorIs(t, err, provider.ErrTransform)
	})

	t.Run("请求超时", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		_, err := c.FetchCurrent(context.Background())
		assert.ErrorIs(t, err, xerrors.ErrTimeout)
	})
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   statusType
		want game.Status
	}{
		{statusType{Name: "STATUS_SCHEDULED", State: "pre"}, game.StatusScheduled},
		{statusType{Name: "STATUS_IN_PROGRESS", State: "in"}, game.StatusLive},
		{statusType{Name: "STATUS_HALFTIME", State: "in"}, game.StatusLive},
		{statusType{Name: "STATUS_FINAL", State: "post"}, game.StatusFinal},
		{statusType{Name: "STATUS_POSTPONED", State: "post"}, game.StatusPostponed},
		{statusType{Name: "STATUS_CANCELED", State: "post"}, game.StatusCanceled},
		{statusType{}, game.StatusScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.in.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStatus(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2025-11-09T18:00Z", "2025-11-09T18:00:00Z", "2025-11-09T13:00-05:00"} {
		got, err := parseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Date(2025, 11, 9, 18, 0, 0, 0, time.UTC), got, s)
	}
	_, err := parseDate("next sunday")
	assert.ErrorIs(t, err, provider.ErrTransform)
}
