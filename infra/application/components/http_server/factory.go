package http_server

import (
	"fmt"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type Factory struct {
	container *core.Container
}

func NewFactory(c *core.Container) *Factory { return &Factory{container: c} }

func (f *Factory) Create(cfg *HTTPServerConfig) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("http_server component disabled")
	}
	cfg.applyDefaults()
	return NewHTTPServerComponent(cfg, f.container), nil
}
