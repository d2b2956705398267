package breaker

import (
	"sync"
	"time"

	"github.com/ceyewan/scoregate/clog"
)

// circuitBreaker 基于计数的熔断器，所有字段由 mu 保护
type circuitBreaker struct {
	cfg    *Config
	logger clog.Logger
	inst   *instruments
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	requestCount  int
	nextAttemptAt time.Time
}

func newCircuitBreaker(cfg *Config, opt *options) *circuitBreaker {
	return &circuitBreaker{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("breaker", cfg.Name)),
		inst:   newInstruments(opt.meter),
		now:    opt.now,
		state:  StateClosed,
	}
}

func (b *circuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Before(b.nextAttemptAt) {
			b.inst.reject(b.cfg.Name)
			return false
		}
		b.successCount = 0
		b.transitionLocked(StateHalfOpen)
		return true
	default:
		return true
	}
}

func (b *circuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		// 计入请求数，失败次数清零
		b.requestCount++
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.resetCountsLocked()
			b.transitionLocked(StateClosed)
		}
	}
}

func (b *circuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount++
		b.requestCount++
		if b.requestCount < b.cfg.MinimumRequests {
			return
		}
		rate := float64(b.failureCount) / float64(b.requestCount) * 100
		if rate >= b.cfg.FailureThreshold {
			b.openLocked()
		}
	case StateHalfOpen:
		b.openLocked()
	}
}

func (b *circuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *circuitBreaker) Metrics() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Name:         b.cfg.Name,
		State:        b.state.String(),
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		RequestCount: b.requestCount,
	}
	if b.state == StateOpen {
		s.NextAttemptAt = b.nextAttemptAt
	}
	return s
}

func (b *circuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetCountsLocked()
	b.nextAttemptAt = time.Time{}
	b.transitionLocked(StateClosed)
}

func (b *circuitBreaker) ForceState(state State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch state {
	case StateOpen:
		b.openLocked()
	case StateHalfOpen:
		b.successCount = 0
		b.transitionLocked(StateHalfOpen)
	default:
		b.resetCountsLocked()
		b.transitionLocked(StateClosed)
	}
}

func (b *circuitBreaker) Name() string {
	return b.cfg.Name
}

// openLocked 进入 OPEN 并开始新的等待窗口
func (b *circuitBreaker) openLocked() {
	b.nextAttemptAt = b.now().Add(b.cfg.ResetTimeout)
	b.transitionLocked(StateOpen)
}

func (b *circuitBreaker) resetCountsLocked() {
	b.failureCount = 0
	b.successCount = 0
	b.requestCount = 0
}

func (b *circuitBreaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if from == to {
		return
	}
	b.inst.transition(b.cfg.Name, from, to)

	fields := []clog.Field{
		clog.String("from", from.String()),
		clog.String("to", to.String()),
		clog.Int("failures", b.failureCount),
		clog.Int("requests", b.requestCount),
	}
	if to == StateOpen {
		fields = append(fields, clog.Time("next_attempt_at", b.nextAttemptAt))
		b.logger.Warn("circuit breaker state changed", fields...)
		return
	}
	b.logger.Info("circuit breaker state changed", fields...)
}
