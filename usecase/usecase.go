// Package usecase 实现 scoregate 的四个请求编排器：按周比分、赛程、进行中比赛与单场详情。
//
// 所有编排器共享同一套模板：
//
//	构造 key → 读缓存 → 新鲜则直接返回（FromCache=true）
//	         → 未命中或过期：经 Source 拉取 → 过滤 → 计算 TTL → 写缓存 → 发布事件 → 返回
//
// 同一 key 的并发未命中由 singleflight 合并为一次上游请求。
// 缓存与事件总线都是尽力而为：读失败按未命中处理，写失败只记录日志，
// 订阅者的错误由总线自己吸收。上游错误原样向上返回。
package usecase

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/game"
)

// Source 上游比赛数据源，espn.Client 实现了该接口
type Source interface {
	// FetchScoreboard 拉取指定周（Week 为 0 时整个赛季阶段）的全部比赛，空列表不是错误
	FetchScoreboard(ctx context.Context, q game.Query) ([]game.Game, error)
	// FetchCurrent 拉取上游认定的当前周比赛
	FetchCurrent(ctx context.Context) ([]game.Game, error)
	// FetchGame 拉取单场比赛，不存在时返回匹配 xerrors.ErrNotFound 的错误
	FetchGame(ctx context.Context, id string) (*game.Game, error)
}

// Metadata 结果元数据，随快照一起缓存
type Metadata struct {
	CachedAt time.Time     `json:"cachedAt"`
	TTL      time.Duration `json:"ttl"`
	game.Counts
}

// Snapshot 写入缓存的内容，不包含 FromCache
type Snapshot[T any] struct {
	Payload  T        `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// Result 编排器返回的结果
type Result[T any] struct {
	Payload   T
	FromCache bool
	Metadata  Metadata
}

// Age 快照在 now 时刻的年龄
func (m Metadata) Age(now time.Time) time.Duration {
	return now.Sub(m.CachedAt)
}

// 事件动作
const (
	ActionCacheHit    = "cache-hit"
	ActionFetched     = "fetched"
	ActionFetchFailed = "fetch-failed"
)

// 事件域
const (
	DomainScoreboard = "scoreboard"
	DomainSchedule   = "schedule"
	DomainLiveGames  = "live-games"
	DomainGame       = "game"
)

// EventName 拼接事件名 "<domain>.<action>"
func EventName(domain, action string) string {
	return domain + "." + action
}
