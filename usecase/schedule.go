package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
)

// ScheduleTTL 赛程缓存时长，同时也是最大新鲜年龄
const ScheduleTTL = 5 * time.Minute

// ScheduleKey schedule:{season}:{seasonType}:{week|all}
func ScheduleKey(q game.Query) string {
	return fmt.Sprintf("schedule:%d:%s:%s", q.Season, q.SeasonType, q.WeekKey())
}

// Schedule 查询尚未开始的比赛
type Schedule struct {
	source Source
	f      *fetcher[[]game.Game]
}

func NewSchedule(source Source, c cache.Cache, bus eventbus.Bus, opts ...Option) *Schedule {
	return &Schedule{
		source: source,
		f: newFetcher(policy[[]game.Game]{
			domain: DomainSchedule,
			counts: game.Count,
			stale:  func(_ game.Counts, age time.Duration) bool { return age > ScheduleTTL },
			ttl:    func(game.Counts) time.Duration { return ScheduleTTL },
		}, c, bus, applyOptions(opts...)),
	}
}

// Get 返回 q 范围内既未进行也未结束的比赛，按开赛时间升序。
// 未指定周次时缓存键为 "...:all"，内容是 ESPN 对该阶段默认返回的那一周
func (s *Schedule) Get(ctx context.Context, q game.Query) (*Result[[]game.Game], error) {
	q, err := normalize(q)
	if err != nil {
		return nil, err
	}
	return s.f.get(ctx, ScheduleKey(q), queryFields(q), func(ctx context.Context) ([]game.Game, error) {
		games, err := s.source.FetchScoreboard(ctx, q)
		if err != nil {
			return nil, err
		}
		return upcoming(games), nil
	})
}

func upcoming(games []game.Game) []game.Game {
	out := make([]game.Game, 0, len(games))
	for _, g := range games {
		if !g.IsLive() && !g.IsCompleted() {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
