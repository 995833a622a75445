package registry

import (
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_client"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_server"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/prometheus"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/redis"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/telemetry"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

func init() {
	Register(consts.COMPONENT_LOGGING, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Logging == nil || !cfg.Logging.Enabled {
			return false, nil, nil
		}
		comp, err := logging.NewFactory().Create(cfg.Logging)
		return true, comp, err
	})

	Register(consts.COMPONENT_TELEMETRY, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Telemetry == nil || !cfg.Telemetry.Enabled {
			return false, nil, nil
		}
		comp, err := telemetry.NewFactory().Create(cfg.Telemetry, appName(cfg))
		return true, comp, err
	})

	Register(consts.COMPONENT_PROMETHEUS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Prometheus == nil || !cfg.Prometheus.Enabled {
			return false, nil, nil
		}
		comp, err := prometheus.NewFactory().Create(cfg.Prometheus)
		return true, comp, err
	})

	Register(consts.COMPONENT_GORM, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.GormDB == nil || !cfg.GormDB.Enabled {
			return false, nil, nil
		}
		comp, err := gormdb.NewFactory().Create(cfg.GormDB)
		return true, comp, err
	})

	Register(consts.COMPONENT_REDIS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.Redis == nil || !cfg.Redis.Enabled {
			return false, nil, nil
		}
		comp, err := redis.NewFactory().Create(cfg.Redis)
		return true, comp, err
	})

	Register(consts.COMPONENT_HTTP_CLIENTS, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPClients == nil || !cfg.HTTPClients.Enabled {
			return false, nil, nil
		}
		comp, err := http_client.NewFactory().Create(cfg.HTTPClients)
		return true, comp, err
	})

	Register(consts.COMPONENT_HTTP_SERVER, func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		if cfg.HTTPServer == nil || !cfg.HTTPServer.Enabled {
			return false, nil, nil
		}
		cfg.HTTPServer.ServiceName = appName(cfg)
		comp, err := http_server.NewFactory(c).Create(cfg.HTTPServer)
		return true, comp, err
	})
}

func appName(cfg *config.AppConfig) string {
	if cfg.APPInfo == nil {
		return ""
	}
	return cfg.APPInfo.APPName
}
