package telemetry

import (
	"fmt"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

// Create serviceName 为 app_info.app_name, cfg.ServiceName 为空时使用.
func (f *Factory) Create(cfg *Config, serviceName string) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("telemetry component disabled")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	return NewTelemetryComponent(cfg), nil
}
