package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/ceyewan/scoregate/cache"
	"github.com/ceyewan/scoregate/eventbus"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/xerrors"
)

// 单场详情缓存时长，同时也是对应状态下的最大新鲜年龄
const (
	GameLiveTTL      = 15 * time.Second
	GameCompletedTTL = time.Hour
	GameDefaultTTL   = 5 * time.Minute
)

// GameKey game:{id}
func GameKey(id string) string {
	return "game:" + id
}

// GameTTL 按比赛状态决定缓存时长
func GameTTL(c game.Counts) time.Duration {
	switch {
	case c.Live > 0:
		return GameLiveTTL
	case c.Completed > 0:
		return GameCompletedTTL
	default:
		return GameDefaultTTL
	}
}

// GameDetails 查询单场比赛
type GameDetails struct {
	source Source
	f      *fetcher[*game.Game]
}

func NewGameDetails(source Source, c cache.Cache, bus eventbus.Bus, opts ...Option) *GameDetails {
	return &GameDetails{
		source: source,
		f: newFetcher(policy[*game.Game]{
			domain: DomainGame,
			counts: countOne,
			stale:  func(c game.Counts, age time.Duration) bool { return age > GameTTL(c) },
			ttl:    GameTTL,
		}, c, bus, applyOptions(opts...)),
	}
}

// Get 按 id 返回比赛，不存在时返回匹配 xerrors.ErrNotFound 的错误
func (d *GameDetails) Get(ctx context.Context, id string) (*Result[*game.Game], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "usecase: empty game id")
	}
	return d.f.get(ctx, GameKey(id), map[string]any{"id": id}, func(ctx context.Context) (*game.Game, error) {
		return d.source.FetchGame(ctx, id)
	})
}

func countOne(g *game.Game) game.Counts {
	if g == nil {
		return game.Counts{}
	}
	return game.Count([]game.Game{*g})
}
