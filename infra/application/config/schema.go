// config/schema.go
package config

import (
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_client"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_server"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/prometheus"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/redis"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/telemetry"
)

// AppConfig 应用程序配置结构, 每个小节对应一个基础组件, 缺省或 enabled=false 即不注册.
type AppConfig struct {
	APPInfo     *APPInfo                       `yaml:"app_info" json:"app_info"`
	Logging     *logging.LoggingConfig         `yaml:"logging" json:"logging"`
	GormDB      *gormdb.Config                 `yaml:"gorm" json:"gorm"`
	Redis       *redis.Config                  `yaml:"redis" json:"redis"`
	Prometheus  *prometheus.Config             `yaml:"prometheus" json:"prometheus"`
	Telemetry   *telemetry.Config              `yaml:"telemetry" json:"telemetry"`
	HTTPServer  *http_server.HTTPServerConfig  `yaml:"http_server" json:"http_server"`
	HTTPClients *http_client.HTTPClientsConfig `yaml:"http_clients" json:"http_clients"`

	// BizConfig 业务配置, 通过 SetBizConfig 提供目标指针
	BizConfig any `yaml:"biz_config" json:"biz_config"`
}

type APPInfo struct {
	APPName string `yaml:"app_name" json:"app_name"`
	ENV     string `yaml:"env" json:"env"`
}
