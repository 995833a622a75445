package registry_ext

import (
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/registry"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/controller"
)

// controller 只在 http_server 启用时注册; CLI 子命令不需要.
func httpEnabled(cfg *config.AppConfig) bool {
	return cfg.HTTPServer != nil && cfg.HTTPServer.Enabled
}

func init() {
	// 路由在 http_server 启动时解析, 服务需先于它启动
	registry.ExtendRuntimeDependencies(consts.COMPONENT_HTTP_SERVER,
		bizConsts.COMP_CTRL_FILE_TYPE, bizConsts.COMP_CTRL_IMPORT, bizConsts.COMP_CTRL_CONCEPT)

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		return httpEnabled(cfg), controller.NewFileTypeController(), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return httpEnabled(cfg), controller.NewImportController(bc.Import.MaxUploadBytes), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return httpEnabled(cfg), controller.NewConceptController(normalizer(bc)), nil
	})
}
