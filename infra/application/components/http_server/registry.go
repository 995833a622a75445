package http_server

import (
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

// RouteRegisterFunc 在 router 上注册路由; container 用于解析业务组件.
type RouteRegisterFunc func(r chi.Router, c *core.Container) error

var (
	registryMu sync.RWMutex
	registrars []RouteRegisterFunc
)

// RegisterRoutes 通常在 controller 的 init() 中调用.
func RegisterRoutes(fn RouteRegisterFunc) {
	if fn == nil {
		return
	}
	registryMu.Lock()
	registrars = append(registrars, fn)
	registryMu.Unlock()
}

func snapshot() []RouteRegisterFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()
	cp := make([]RouteRegisterFunc, len(registrars))
	copy(cp, registrars)
	return cp
}
