package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/ceyewan/scoregate/xerrors"
)

// 启动阶段，越小越先启动、越晚停止
const (
	PhaseTelemetry = 0  // 日志、指标、链路
	PhaseConnector = 10 // Redis / NATS / Kafka / 数据库连接
	PhaseComponent = 20 // 缓存、事件转发、归档
	PhaseService   = 30 // HTTP 服务
)

// Lifecycle 可由 App 管理生命周期的对象
type Lifecycle interface {
	// Start 启动服务，Phase 越小越先启动
	Start(ctx context.Context) error
	// Stop 关闭服务，按启动的逆序调用
	Stop(ctx context.Context) error
	// Phase 返回启动阶段，用于排序
	Phase() int
}

// Hook 用函数实现 Lifecycle，Start/Stop 可以为 nil
type Hook struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
	At      int
}

func (h Hook) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hook) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

func (h Hook) Phase() int {
	return h.At
}

type lifecycleItem struct {
	name     string
	instance Lifecycle
}

// LifecycleManager 按阶段启动、逆序停止
type LifecycleManager struct {
	items   []lifecycleItem
	started int
}

func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{}
}

// Register 注册生命周期对象，同阶段内保持注册顺序
func (m *LifecycleManager) Register(name string, instance Lifecycle) {
	m.items = append(m.items, lifecycleItem{name: name, instance: instance})
}

// StartAll 按阶段顺序启动；某一项失败时停止已启动的项并返回 *LifecycleError
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	sort.SliceStable(m.items, func(i, j int) bool {
		return m.items[i].instance.Phase() < m.items[j].instance.Phase()
	})

	for i, item := range m.items {
		if err := item.instance.Start(ctx); err != nil {
			m.started = i
			_ = m.StopAll(context.WithoutCancel(ctx))
			return &LifecycleError{Phase: item.instance.Phase(), Name: item.name, Cause: err}
		}
	}
	m.started = len(m.items)
	return nil
}

// StopAll 逆序停止已启动的对象，返回合并后的错误
func (m *LifecycleManager) StopAll(ctx context.Context) error {
	var errs []error
	for i := m.started - 1; i >= 0; i-- {
		item := m.items[i]
		if err := item.instance.Stop(ctx); err != nil {
			errs = append(errs, &LifecycleError{Phase: item.instance.Phase(), Name: item.name, Cause: err})
		}
	}
	m.started = 0
	return xerrors.Combine(errs...)
}

// Names 当前的启动顺序
func (m *LifecycleManager) Names() []string {
	names := make([]string, len(m.items))
	for i, item := range m.items {
		names[i] = item.name
	}
	return names
}

// LifecycleError 生命周期错误
type LifecycleError struct {
	Phase int
	Name  string
	Cause error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle error in phase %d [%s]: %v", e.Phase, e.Name, e.Cause)
}

func (e *LifecycleError) Unwrap() error {
	return e.Cause
}
