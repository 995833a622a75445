package registry_ext

import (
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/registry"
	"github.com/peakcary/stock-analysis-system-sub001/internal/dao"
)

func init() {
	// 数据源名称来自 config.yaml -> gorm_db.data_sources, 由 biz_config.data_source 指定
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, dao.NewFileTypeDao(bc.DataSource), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, dao.NewStockConceptDao(bc.DataSource), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, dao.NewTableManager(bc.DataSource), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, dao.NewMappingGenerator(bc.Import.BatchSize), nil
	})
}
