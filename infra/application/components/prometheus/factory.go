package prometheus

import (
	"fmt"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(c *Config) (core.Component, error) {
	if c == nil || !c.Enabled {
		return nil, fmt.Errorf("prometheus component disabled")
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
	t := true
	if c.CollectGoMetrics == nil {
		c.CollectGoMetrics = &t
	}
	if c.CollectProcess == nil {
		c.CollectProcess = &t
	}
	return NewComponent(c), nil
}
