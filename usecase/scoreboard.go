package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
)

// 比分缓存时长
const (
	ScoreboardLiveTTL      = 30 * time.Second
	ScoreboardCompletedTTL = time.Hour
	ScoreboardScheduledTTL = 5 * time.Minute
	ScoreboardMixedTTL     = time.Minute

	scoreboardLiveMaxAge = 30 * time.Second
	scoreboardMaxAge     = 5 * time.Minute
)

// ScoreboardKey scoreboard:{season}:{seasonType}:{week}
func ScoreboardKey(q game.Query) string {
	return fmt.Sprintf("scoreboard:%d:%s:%s", q.Season, q.SeasonType, q.WeekKey())
}

// ScoreboardTTL 有进行中比赛 30s，全部结束 1h，全部未开始 5min，其余（含空列表）1min
func ScoreboardTTL(c game.Counts) time.Duration {
	switch {
	case c.Live > 0:
		return ScoreboardLiveTTL
	case c.Total > 0 && c.Completed == c.Total:
		return ScoreboardCompletedTTL
	case c.Total > 0 && c.Scheduled == c.Total:
		return ScoreboardScheduledTTL
	default:
		return ScoreboardMixedTTL
	}
}

func scoreboardStale(c game.Counts, age time.Duration) bool {
	if c.Live > 0 {
		return age > scoreboardLiveMaxAge
	}
	return age > scoreboardMaxAge
}

// Scoreboard 按周查询比分
type Scoreboard struct {
	source Source
	f      *fetcher[[]game.Game]
}

func NewScoreboard(source Source, c cache.Cache, bus eventbus.Bus, opts ...Option) *Scoreboard {
	return &Scoreboard{
		source: source,
		f: newFetcher(policy[[]game.Game]{
			domain: DomainScoreboard,
			counts: game.Count,
			stale:  scoreboardStale,
			ttl:    ScoreboardTTL,
		}, c, bus, applyOptions(opts...)),
	}
}

// Get 返回 q 对应周的全部比赛
func (s *Scoreboard) Get(ctx context.Context, q game.Query) (*Result[[]game.Game], error) {
	q, err := normalize(q)
	if err != nil {
		return nil, err
	}
	return s.f.get(ctx, ScoreboardKey(q), queryFields(q), func(ctx context.Context) ([]game.Game, error) {
		return s.source.FetchScoreboard(ctx, q)
	})
}

// normalize 补齐默认赛季阶段并校验
func normalize(q game.Query) (game.Query, error) {
	st, err := game.ParseSeasonType(string(q.SeasonType))
	if err != nil {
		return q, err
	}
	q.SeasonType = st
	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func queryFields(q game.Query) map[string]any {
	return map[string]any{
		"season":     q.Season,
		"seasonType": string(q.SeasonType),
		"week":       q.WeekKey(),
	}
}
