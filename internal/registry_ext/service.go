package registry_ext

import (
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/registry"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

func init() {
	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, service.NewImportLocker(bc.Import.DistributedLock, bc.Import.LockTTL), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, service.NewConceptResolver(bc.Concept, normalizer(bc)), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, service.NewFileTypeRegistry(bc.DataSource, bc.FileTypes), nil
	})

	registry.RegisterAuto(func(cfg *config.AppConfig, c *core.Container) (bool, core.Component, error) {
		bc, err := settings()
		if err != nil {
			return false, nil, err
		}
		return true, service.NewImportService(bc.DataSource, bc.Import, normalizer(bc)), nil
	})
}
