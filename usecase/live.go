package usecase

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
)

const (
	// LiveGamesKey 进行中比赛的缓存 key
	LiveGamesKey = "games:live"
	// LiveGamesTTL 进行中比赛缓存时长，缓存存在即视为新鲜
	LiveGamesTTL = 15 * time.Second
)

// LiveGames 查询当前进行中的比赛
type LiveGames struct {
	source Source
	f      *fetcher[[]game.Game]
}

func NewLiveGames(source Source, c cache.Cache, bus eventbus.Bus, opts ...Option) *LiveGames {
	return &LiveGames{
		source: source,
		f: newFetcher(policy[[]game.Game]{
			domain: DomainLiveGames,
			counts: game.Count,
			ttl:    func(game.Counts) time.Duration { return LiveGamesTTL },
		}, c, bus, applyOptions(opts...)),
	}
}

func (l *LiveGames) Get(ctx context.Context) (*Result[[]game.Game], error) {
	return l.f.get(ctx, LiveGamesKey, nil, func(ctx context.Context) ([]game.Game, error) {
		games, err := l.source.FetchCurrent(ctx)
		if err != nil {
			return nil, err
		}
		live := make([]game.Game, 0, len(games))
		for _, g := range games {
			if g.IsLive() {
				live = append(live, g)
			}
		}
		return live, nil
	})
}
