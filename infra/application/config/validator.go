// config/validator.go
package config

import (
	"fmt"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
)

// Validator 配置验证器
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) ValidateAppConfig(cfg *AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if cfg.APPInfo == nil || cfg.APPInfo.APPName == "" {
		return fmt.Errorf("app_info.app_name is required")
	}
	if err := v.validateEnv(cfg.APPInfo.ENV); err != nil {
		return err
	}
	if cfg.HTTPServer != nil && cfg.HTTPServer.Enabled && (cfg.Logging == nil || !cfg.Logging.Enabled) {
		return fmt.Errorf("http_server requires logging to be enabled")
	}
	if g := cfg.GormDB; g != nil && g.Enabled && len(g.DataSources) == 0 {
		return fmt.Errorf("gorm.enabled=true but no data_sources configured")
	}
	return nil
}

func (v *Validator) validateConfigFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("config file path cannot be empty")
	}
	if len(path) > 255 {
		return fmt.Errorf("config file path is too long")
	}
	if !fileExists(path) {
		return fmt.Errorf("config file does not exist: %s", path)
	}
	return nil
}

func (v *Validator) validateEnv(env string) error {
	switch env {
	case consts.ENV_PRODUCTION, consts.ENV_DEVELOPMENT, consts.ENV_TEST:
		return nil
	}
	return fmt.Errorf("running environment is not valid: %q", env)
}
