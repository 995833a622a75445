package service

import (
	"regexp"
	"strings"

	"gorm.io/datatypes"

	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

var (
	keyPattern    = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
	prefixPattern = regexp.MustCompile(`^[a-z0-9_]{0,32}$`)
)

// maxTableNameLen mysql 标识符上限
const maxTableNameLen = 64

// NormalizeKey 文件类型 key 不区分大小写, 登记与查询都以小写形式为准.
func NormalizeKey(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

// ValidateFileType 纯校验, 返回规范化后的副本; registered 为当前已登记的全部配置.
func ValidateFileType(cfg *model.FileTypeConfig, registered []*model.FileTypeConfig) (*model.FileTypeConfig, error) {
	if cfg == nil {
		return nil, errs.Newf(errs.KindConfig, "validate", "", "config is nil")
	}
	out := *cfg
	out.Key = NormalizeKey(cfg.Key)
	out.TablePrefix = strings.ToLower(strings.TrimSpace(cfg.TablePrefix))
	out.DisplayName = strings.TrimSpace(cfg.DisplayName)
	out.Description = strings.TrimSpace(cfg.Description)

	if !keyPattern.MatchString(out.Key) {
		return nil, errs.Newf(errs.KindConfig, "validate", out.Key, "key must match %s", keyPattern)
	}
	if !prefixPattern.MatchString(out.TablePrefix) {
		return nil, errs.Newf(errs.KindConfig, "validate", out.Key, "table_prefix %q must match %s", out.TablePrefix, prefixPattern)
	}
	if len(out.TablePrefix)+model.MaxTableSuffixLen > maxTableNameLen {
		return nil, errs.Newf(errs.KindConfig, "validate", out.Key, "table_prefix %q too long", out.TablePrefix)
	}
	if out.DisplayName == "" {
		out.DisplayName = out.Key
	}

	layout := cfg.Layout()
	if len(layout) == 0 {
		layout = model.UniversalLayout()
	}
	if !layout.Equal(model.UniversalLayout()) {
		return nil, errs.Newf(errs.KindConfig, "validate", out.Key,
			"unsupported column_layout: only stock_code:string, trade_date:date, trading_volume:integer is accepted")
	}
	out.ColumnLayout = datatypes.NewJSONType(layout)

	for _, r := range registered {
		if r.Key == out.Key {
			return nil, errs.Newf(errs.KindConfig, "validate", out.Key, "key already registered")
		}
		if r.TablePrefix == out.TablePrefix {
			return nil, errs.Newf(errs.KindConfig, "validate", out.Key, "table_prefix %q already used by %s", out.TablePrefix, r.Key)
		}
	}
	return &out, nil
}
