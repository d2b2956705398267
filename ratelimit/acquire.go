package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/scoregate/xerrors"
)

const (
	maxBackoff = 50 * time.Millisecond
	minBackoff = time.Millisecond
)

// tryFunc 尝试取一个令牌；失败时返回距离下一个令牌的时间
type tryFunc func(ctx context.Context) (ok bool, next time.Duration, err error)

// pollAcquire 反复尝试直到成功、超时或 ctx 结束
//
// 两次尝试之间休眠 min(下一个令牌时间的 10%, 50ms)，且不超过剩余超时。
func pollAcquire(ctx context.Context, timeout time.Duration, try tryFunc) (time.Duration, error) {
	start := time.Now()
	for {
		ok, next, err := try(ctx)
		if err != nil {
			return time.Since(start), err
		}
		if ok {
			return time.Since(start), nil
		}

		elapsed := time.Since(start)
		remaining := timeout - elapsed
		if remaining <= 0 {
			return elapsed, xerrors.Wrapf(ErrAcquireTimeout, "waited %s", elapsed.Round(time.Millisecond))
		}

		sleep := backoff(next)
		if sleep > remaining {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Since(start), xerrors.Wrap(ctx.Err(), "ratelimit: acquire cancelled")
		case <-timer.C:
		}
	}
}

func backoff(next time.Duration) time.Duration {
	d := next / 10
	if d > maxBackoff {
		d = maxBackoff
	}
	if d < minBackoff {
		d = minBackoff
	}
	return d
}
