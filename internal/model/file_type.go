package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/peakcary/stock-analysis-system-sub001/internal/consts"
)

// Column 列定义, Type 取值 string/date/integer.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ColumnLayout []Column

// UniversalLayout 通用导入格式: 无表头, 固定三列.
func UniversalLayout() ColumnLayout {
	return ColumnLayout{
		{Name: "stock_code", Type: "string"},
		{Name: "trade_date", Type: "date"},
		{Name: "trading_volume", Type: "integer"},
	}
}

func (l ColumnLayout) Equal(o ColumnLayout) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// FileTypeConfig 文件类型注册信息.
//
// Key 全局唯一; TablePrefix 决定该类型的 5 张表名, 建表后 ColumnLayout 不再允许修改.
// 停用 (IsActive=false) 的类型保留表和数据, 只是不能再作为导入目标.
type FileTypeConfig struct {
	Key          string                           `gorm:"primaryKey;type:varchar(32);not null" json:"key"`
	TablePrefix  string                           `gorm:"type:varchar(32);not null" json:"table_prefix"`
	DisplayName  string                           `gorm:"type:varchar(64);not null" json:"display_name"`
	Description  string                           `gorm:"type:varchar(255);not null" json:"description"`
	ColumnLayout datatypes.JSONType[ColumnLayout] `json:"column_layout"`
	IsActive     bool                             `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

func (FileTypeConfig) TableName() string { return "file_type_config" }

func (c *FileTypeConfig) Layout() ColumnLayout { return c.ColumnLayout.Data() }

func (c *FileTypeConfig) Tables() TableSet { return TableNames(c.TablePrefix) }

// TableHealth 单表检查结果
type TableHealth struct {
	Table     string `json:"table"`
	Exists    bool   `json:"exists"`
	Queryable bool   `json:"queryable"`
	Error     string `json:"error,omitempty"`
}

type HealthReport struct {
	Key    string              `json:"key"`
	Status consts.HealthStatus `json:"status"`
	Tables []TableHealth       `json:"tables"`
}

// FileTypeSummary 运维视图: 各表行数, 最近导入时间, 健康度.
type FileTypeSummary struct {
	Key          string              `json:"key"`
	DisplayName  string              `json:"display_name"`
	TablePrefix  string              `json:"table_prefix"`
	IsActive     bool                `json:"is_active"`
	RowCounts    map[string]int64    `json:"row_counts"`
	LastImportAt *time.Time          `json:"last_import_at,omitempty"`
	Health       consts.HealthStatus `json:"health"`
}
