// config/loader.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
)

// Loader 配置加载器
type Loader struct {
	env        string
	configPath string
	bizConfig  any
	lookupEnv  func(string) (string, bool)
}

func NewLoader(env string, configPath string) *Loader {
	if env == "" {
		env = consts.ENV_DEVELOPMENT
	}
	if configPath == "" {
		configPath = consts.DEFAULT_CONFIG_PATH
	}
	return &Loader{env: env, configPath: configPath, lookupEnv: os.LookupEnv}
}

// SetBizConfig 注入业务配置结构指针 (例如 &MyBizConfig{}), 需在 LoadConfig 之前调用.
func (l *Loader) SetBizConfig(b any) {
	if b == nil {
		return
	}
	if reflect.TypeOf(b).Kind() != reflect.Ptr {
		panic("SetBizConfig expects a pointer, e.g. &MyBizConfig{}")
	}
	l.bizConfig = b
}

// LoadConfig 读取文件, 展开 ${VAR} / ${VAR:-default}, 解析 AppConfig,
// 再把 biz_config 子树二次反序列化到业务指针 (保留业务方默认值).
func (l *Loader) LoadConfig() (*AppConfig, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	data = []byte(l.expandEnv(string(data)))

	var cfg AppConfig
	ext := strings.ToLower(filepath.Ext(l.configPath))
	if err := unmarshal(ext, data, &cfg); err != nil {
		return nil, err
	}

	if l.bizConfig != nil {
		if cfg.BizConfig != nil {
			if err := decodeBizSection(ext, cfg.BizConfig, l.bizConfig); err != nil {
				return nil, fmt.Errorf("decode biz_config failed: %w", err)
			}
		}
		cfg.BizConfig = l.bizConfig
	}

	l.applyEnv(&cfg)
	return &cfg, nil
}

func unmarshal(ext string, data []byte, out any) error {
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	return nil
}

func decodeBizSection(ext string, raw any, target any) error {
	var (
		b   []byte
		err error
	)
	if ext == ".json" {
		b, err = json.Marshal(raw)
	} else {
		b, err = yaml.Marshal(raw)
	}
	if err != nil {
		return fmt.Errorf("re-marshal biz_config failed: %w", err)
	}
	return unmarshal(ext, b, target)
}

// expandEnv 替换 ${VAR} 与 ${VAR:-default}; 未设置且无默认值时替换为空串.
func (l *Loader) expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDef := strings.Cut(key, ":-")
		if v, ok := l.lookupEnv(name); ok && (v != "" || !hasDef) {
			return v
		}
		if hasDef {
			return def
		}
		if key == "$" {
			return "$"
		}
		return ""
	})
}

// applyEnv 运行环境: APP_ENV > 文件 app_info.env > 构造参数.
func (l *Loader) applyEnv(cfg *AppConfig) {
	if cfg.APPInfo == nil {
		cfg.APPInfo = &APPInfo{}
	}
	if v, ok := l.lookupEnv(consts.ENV_APP_ENV); ok && v != "" {
		cfg.APPInfo.ENV = v
	}
	if cfg.APPInfo.ENV == "" {
		cfg.APPInfo.ENV = l.env
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
