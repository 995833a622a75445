package registry_ext

import (
	"fmt"

	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

// settings 读取 biz_config (由 main 通过 app.SetBizConfig 交给加载器), 补默认值后校验.
func settings() (*bizConfig.BizConfig, error) {
	bc := bizConfig.GetBizConfig()
	bc.ApplyDefaults()
	if err := bc.Validate(); err != nil {
		return nil, fmt.Errorf("biz_config: %w", err)
	}
	return bc, nil
}

func normalizer(bc *bizConfig.BizConfig) *service.CodeNormalizer {
	return service.NewCodeNormalizer(bc.Normalize.MarketPrefixes)
}
