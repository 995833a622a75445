// hooks/hooks.go
package hooks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// HookFunc 钩子函数类型
type HookFunc func(ctx context.Context) error

// Phase 生命周期阶段
type Phase string

const (
	BeforeStart    Phase = "before_start"
	AfterStart     Phase = "after_start"
	BeforeShutdown Phase = "before_shutdown"
	AfterShutdown  Phase = "after_shutdown"
)

// Hook 钩子; Priority 数值越小越先执行.
type Hook struct {
	Name     string
	Phase    Phase
	Function HookFunc
	Priority int
}

// Manager 钩子管理器
type Manager struct {
	hooks map[Phase][]*Hook
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{hooks: make(map[Phase][]*Hook)}
}

func (m *Manager) Register(hook *Hook) error {
	if hook == nil || hook.Function == nil {
		return fmt.Errorf("hook and hook function cannot be nil")
	}
	switch hook.Phase {
	case BeforeStart, AfterStart, BeforeShutdown, AfterShutdown:
	default:
		return fmt.Errorf("invalid hook phase: %s", hook.Phase)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	list := append(m.hooks[hook.Phase], hook)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
	m.hooks[hook.Phase] = list
	return nil
}

// Execute 依优先级执行某阶段全部钩子, 第一个错误即返回.
func (m *Manager) Execute(ctx context.Context, phase Phase) error {
	m.mutex.RLock()
	list := make([]*Hook, len(m.hooks[phase]))
	copy(list, m.hooks[phase])
	m.mutex.RUnlock()

	for _, hook := range list {
		if err := hook.Function(ctx); err != nil {
			return fmt.Errorf("hook %s failed: %w", hook.Name, err)
		}
	}
	return nil
}

// Count returns the number of hooks registered for a phase.
func (m *Manager) Count(phase Phase) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.hooks[phase])
}

var globalHookManager = newDefaultManager()

func newDefaultManager() *Manager {
	m := NewManager()
	logHook := func(msg string) HookFunc {
		return func(ctx context.Context) error {
			log.Println(msg)
			return nil
		}
	}
	_ = m.Register(&Hook{Name: "log_startup", Phase: BeforeStart, Function: logHook("Application is starting..."), Priority: 100})
	_ = m.Register(&Hook{Name: "log_started", Phase: AfterStart, Function: logHook("Application started successfully"), Priority: 100})
	_ = m.Register(&Hook{Name: "log_shutdown", Phase: BeforeShutdown, Function: logHook("Application is shutting down..."), Priority: 100})
	_ = m.Register(&Hook{Name: "log_shutdown_complete", Phase: AfterShutdown, Function: logHook("Application shutdown completed"), Priority: 100})
	return m
}

// RegisterHook 向全局钩子管理器注册钩子
func RegisterHook(name string, phase Phase, function HookFunc, priority int) error {
	return globalHookManager.Register(&Hook{Name: name, Phase: phase, Function: function, Priority: priority})
}

// GetGlobalHookManager 获取全局钩子管理器
func GetGlobalHookManager() *Manager { return globalHookManager }
