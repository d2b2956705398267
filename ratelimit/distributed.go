package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/xerrors"
)

// acquireScript 基于时间戳的令牌桶
//
// KEYS[1]: 桶 key，值为"下一次可放行时间"（秒，浮点）
// ARGV[1]: 每秒补充令牌数  ARGV[2]: 容量  ARGV[3]: 当前时间（秒）  ARGV[4]: 消耗令牌数
// 返回 {allowed, remaining, wait_ms}
const acquireScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local interval = 1 / rate
local fill_time = capacity * interval

local last = tonumber(redis.call("GET", KEYS[1]))
if last == nil then
  last = now
end

local next_available = math.max(last, now)
local new_next = next_available + requested * interval
local allow_at_most = now + fill_time

if new_next <= allow_at_most then
  if requested > 0 then
    redis.call("SET", KEYS[1], new_next, "EX", math.ceil(fill_time * 2))
  end
  return {1, math.floor((allow_at_most - new_next) / interval), 0}
end

return {0, math.floor((allow_at_most - next_available) / interval), math.ceil((new_next - allow_at_most) * 1000)}
`

// redisBucket 分布式令牌桶，桶状态保存在 Redis，Lua 脚本保证补充与扣减原子
type redisBucket struct {
	cfg    *Config
	client *redis.Client
	key    string
	script *redis.Script
	logger clog.Logger
	inst   *instruments
}

func newRedisBucket(cfg *Config, conn connector.RedisConnector, logger clog.Logger, inst *instruments) *redisBucket {
	b := &redisBucket{
		cfg:    cfg,
		client: conn.GetClient(),
		key:    cfg.Prefix + cfg.Name,
		script: redis.NewScript(acquireScript),
		logger: logger,
		inst:   inst,
	}
	logger.Info("redis token bucket created",
		clog.String("key", b.key),
		clog.Int("max_requests", cfg.MaxRequests),
		clog.Duration("window", cfg.Window))
	return b
}

// run 执行脚本，requested 为 0 时只查询不扣减
func (b *redisBucket) run(ctx context.Context, requested int) (allowed bool, remaining int64, wait time.Duration, err error) {
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := b.script.Run(ctx, b.client, []string{b.key}, b.cfg.ratePerSecond(), b.cfg.MaxRequests, now, requested).Int64Slice()
	if err != nil {
		b.inst.errors.Inc(ctx)
		return false, 0, 0, xerrors.Wrap(err, "ratelimit: execute lua script")
	}
	if len(res) != 3 {
		return false, 0, 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: unexpected script result %v", res)
	}
	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}

func (b *redisBucket) try(ctx context.Context) (bool, time.Duration, error) {
	ok, remaining, wait, err := b.run(ctx, 1)
	if err != nil {
		b.logger.Error("redis token bucket failed", clog.Error(err))
		return false, 0, err
	}

	result := ResultDenied
	if ok {
		result = ResultAllowed
	}
	b.inst.observe(ctx, b.cfg.Name, DriverRedis, result)
	b.logger.Debug("redis token bucket checked", clog.Bool("allowed", ok), clog.Int64("remaining", remaining))
	return ok, wait, nil
}

func (b *redisBucket) TryAcquire(ctx context.Context) (bool, error) {
	ok, _, err := b.try(ctx)
	return ok, err
}

func (b *redisBucket) Acquire(ctx context.Context, timeout time.Duration) error {
	waited, err := pollAcquire(ctx, timeout, b.try)
	b.inst.observeWait(ctx, b.cfg.Name, DriverRedis, waited)
	if xerrors.Is(err, ErrAcquireTimeout) {
		b.inst.observe(ctx, b.cfg.Name, DriverRedis, ResultTimeout)
	}
	return err
}

func (b *redisBucket) Available(ctx context.Context) (float64, error) {
	_, remaining, _, err := b.run(ctx, 0)
	if err != nil {
		return 0, err
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > int64(b.cfg.MaxRequests) {
		remaining = int64(b.cfg.MaxRequests)
	}
	return float64(remaining), nil
}

func (b *redisBucket) Reset(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return xerrors.Wrap(err, "ratelimit: reset")
	}
	b.logger.Info("redis token bucket reset", clog.String("key", b.key))
	return nil
}

func (b *redisBucket) Name() string {
	return b.cfg.Name
}

// Close 连接由 connector 管理，这里不关闭
func (b *redisBucket) Close() error {
	return nil
}
