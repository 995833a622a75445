package gormdb

import (
	"fmt"
	"strings"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(cfg *Config) (core.Component, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("gorm component disabled")
	}
	if len(cfg.DataSources) == 0 {
		return nil, fmt.Errorf("gorm component has no data_sources")
	}
	for name, ds := range cfg.DataSources {
		if ds == nil {
			return nil, fmt.Errorf("datasource %s config is nil", name)
		}
		if ds.Driver == "" {
			ds.Driver = DriverMySQL
		}
		switch strings.ToLower(ds.Driver) {
		case DriverMySQL, DriverPostgres, DriverSQLite:
		default:
			return nil, fmt.Errorf("datasource %s: unsupported driver %q", name, ds.Driver)
		}
		if ds.MigrateEnabled && strings.TrimSpace(ds.MigrateDir) == "" {
			return nil, fmt.Errorf("datasource %s migrate_enabled=true but migrate_dir empty", name)
		}
	}
	return NewGormComponent(cfg), nil
}
