package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/peakcary/stock-analysis-system-sub001/internal/consts"
)

var bizConfig = &BizConfig{}

// GetBizConfig 返回进程级业务配置指针; main 在 Boot 前通过 app.SetBizConfig 交给加载器填充.
func GetBizConfig() *BizConfig {
	return bizConfig
}

type BizConfig struct {
	DataSource string          `yaml:"data_source" json:"data_source"`
	Import     ImportConfig    `yaml:"import" json:"import"`
	Concept    ConceptConfig   `yaml:"concept" json:"concept"`
	Normalize  NormalizeConfig `yaml:"normalize" json:"normalize"`
	FileTypes  []FileTypeSeed  `yaml:"file_types" json:"file_types"`
}

type ImportConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	DateLayouts    []string      `yaml:"date_layouts" json:"date_layouts"`
	NewHighWindow  int           `yaml:"new_high_window" json:"new_high_window"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" json:"max_upload_bytes"`
	Delimiter      string        `yaml:"delimiter" json:"delimiter"`
	LockTTL        time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
	// DistributedLock 为 true 且 redis 组件启用时, 额外使用 redis 锁.
	DistributedLock bool `yaml:"distributed_lock" json:"distributed_lock"`
}

type ConceptConfig struct {
	Source     string        `yaml:"source" json:"source"` // db | http
	HTTPClient string        `yaml:"http_client" json:"http_client"`
	URL        string        `yaml:"url" json:"url"`
	CacheTTL   time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

type NormalizeConfig struct {
	MarketPrefixes []string `yaml:"market_prefixes" json:"market_prefixes"`
}

// FileTypeSeed 启动时自动注册的文件类型
type FileTypeSeed struct {
	Key         string `yaml:"key" json:"key"`
	TablePrefix string `yaml:"table_prefix" json:"table_prefix"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`
}

func (c *BizConfig) ApplyDefaults() {
	if c.DataSource == "" {
		c.DataSource = "stock"
	}
	im := &c.Import
	if im.Timeout <= 0 {
		im.Timeout = 5 * time.Minute
	}
	if len(im.DateLayouts) == 0 {
		im.DateLayouts = []string{consts.DateLayout, "20060102", "2006/01/02"}
	}
	if im.NewHighWindow <= 0 {
		im.NewHighWindow = 20
	}
	if im.BatchSize <= 0 {
		im.BatchSize = 1000
	}
	if im.MaxUploadBytes <= 0 {
		im.MaxUploadBytes = 64 << 20
	}
	if im.Delimiter == "" {
		im.Delimiter = "\t"
	}
	if im.LockTTL <= 0 {
		im.LockTTL = im.Timeout + time.Minute
	}
	if c.Concept.Source == "" {
		c.Concept.Source = consts.ConceptSourceDB
	}
	if c.Concept.CacheTTL < 0 {
		c.Concept.CacheTTL = 0
	}
	if len(c.Normalize.MarketPrefixes) == 0 {
		c.Normalize.MarketPrefixes = []string{"SH", "SZ", "BJ"}
	}
}

func (c *BizConfig) Validate() error {
	switch c.Concept.Source {
	case consts.ConceptSourceDB:
	case consts.ConceptSourceHTTP:
		if strings.TrimSpace(c.Concept.URL) == "" {
			return fmt.Errorf("concept.url is required when concept.source=http")
		}
	default:
		return fmt.Errorf("unsupported concept.source %q", c.Concept.Source)
	}
	if c.Import.Delimiter == "\n" {
		return fmt.Errorf("import.delimiter cannot be a newline")
	}
	seen := map[string]bool{}
	for _, s := range c.FileTypes {
		k := strings.ToLower(strings.TrimSpace(s.Key))
		if seen[k] {
			return fmt.Errorf("duplicate file type seed %q", s.Key)
		}
		seen[k] = true
	}
	return nil
}
