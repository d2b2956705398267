// Package breaker 提供按失败率熔断的熔断器，保护 scoregate 对上游数据源的调用。
//
// 每个 Provider 持有独立的 Breaker，不在 Provider 之间共享。状态机：
//
//	CLOSED    正常放行；累计请求数达到 MinimumRequests 且失败率 >= FailureThreshold% 时打开
//	OPEN      全部拒绝，直到 ResetTimeout 到期；到期后的第一次 Allow 进入 HALF_OPEN 并放行
//	HALF_OPEN 一次失败立即重新打开；成功次数达到 SuccessThreshold 时关闭并清零计数
//
// 调用方负责在请求结束后调用 RecordSuccess 或 RecordFailure：
//
//	if !brk.Allow() {
//		return ErrUnavailable
//	}
//	if err := call(); err != nil {
//		brk.RecordFailure()
//		return err
//	}
//	brk.RecordSuccess()
package breaker

import (
	"time"

	"github.com/ceyewan/scoregate/clog"
)

// Breaker 熔断器接口，所有方法并发安全
type Breaker interface {
	// Allow 判断当前请求是否放行，OPEN 到期时会转入 HALF_OPEN
	Allow() bool
	RecordSuccess()
	RecordFailure()

	State() State
	// Metrics 返回当前计数与状态的快照
	Metrics() Snapshot

	// Reset 回到 CLOSED 并清零所有计数
	Reset()
	// ForceState 强制切换状态，用于运维恢复与测试
	ForceState(state State)

	Name() string
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中）
	StateOpen
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Snapshot 熔断器状态快照
type Snapshot struct {
	Name          string    `json:"name"`
	State         string    `json:"state"`
	FailureCount  int       `json:"failureCount"`
	SuccessCount  int       `json:"successCount"`
	RequestCount  int       `json:"requestCount"`
	NextAttemptAt time.Time `json:"nextAttemptAt,omitzero"`
}

// Config 熔断器配置
type Config struct {
	// Name 熔断器名称，通常与 Provider 同名
	Name string `mapstructure:"name"`

	// FailureThreshold 失败率阈值，百分比（默认：50）
	FailureThreshold float64 `mapstructure:"failure_threshold"`

	// MinimumRequests 计算失败率前需要的最少请求数（默认：5）
	MinimumRequests int `mapstructure:"minimum_requests"`

	// ResetTimeout OPEN 状态持续时间（默认：60s）
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`

	// SuccessThreshold HALF_OPEN 下关闭所需的成功次数（默认：1）
	SuccessThreshold int `mapstructure:"success_threshold"`
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 50
	}
	if c.MinimumRequests <= 0 {
		c.MinimumRequests = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 60 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.FailureThreshold > 100 {
		return ErrInvalidThreshold
	}
	return nil
}

// New 创建熔断器，cfg 中未设置的字段使用默认值
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	if err := c.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	b := newCircuitBreaker(&c, &opt)
	b.logger.Info("circuit breaker created",
		clog.Float64("failure_threshold", c.FailureThreshold),
		clog.Int("minimum_requests", c.MinimumRequests),
		clog.Duration("reset_timeout", c.ResetTimeout),
		clog.Int("success_threshold", c.SuccessThreshold))
	return b, nil
}
