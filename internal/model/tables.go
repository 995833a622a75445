package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	suffixTrading      = "trading"
	suffixSummary      = "concept_daily_summary"
	suffixRanking      = "stock_concept_ranking"
	suffixHighRecord   = "concept_high_record"
	suffixImportRecord = "import_record"
)

// TableSet 某个前缀下的 5 张物理表名.
type TableSet struct {
	Trading      string
	Summary      string
	Ranking      string
	HighRecord   string
	ImportRecord string
}

func TableNames(prefix string) TableSet {
	return TableSet{
		Trading:      prefix + suffixTrading,
		Summary:      prefix + suffixSummary,
		Ranking:      prefix + suffixRanking,
		HighRecord:   prefix + suffixHighRecord,
		ImportRecord: prefix + suffixImportRecord,
	}
}

func (t TableSet) All() []string {
	return []string{t.Trading, t.Summary, t.Ranking, t.HighRecord, t.ImportRecord}
}

// MaxTableSuffixLen 最长表名后缀, 用于校验前缀长度.
const MaxTableSuffixLen = len(suffixSummary)

// TableTemplate 建表模板: 表名, 对应的 gorm 模型, 需要的二级索引列.
type TableTemplate struct {
	Name         string
	Model        any
	IndexColumns []string
}

// IndexName 索引名带表名, sqlite/postgres 的索引名在库内全局唯一.
func IndexName(table, column string) string { return "idx_" + table + "_" + column }

func Templates(prefix string) []TableTemplate {
	t := TableNames(prefix)
	return []TableTemplate{
		{Name: t.Trading, Model: &TradingRecord{}, IndexColumns: []string{"trade_date"}},
		{Name: t.Summary, Model: &ConceptDailySummary{}, IndexColumns: []string{"trade_date"}},
		{Name: t.Ranking, Model: &StockConceptRanking{}, IndexColumns: []string{"trade_date"}},
		{Name: t.HighRecord, Model: &ConceptHighRecord{}},
		{Name: t.ImportRecord, Model: &ImportRecord{}, IndexColumns: []string{"trade_date"}},
	}
}

// TradingRecord 每股每日一行. StockCode 为去掉市场前缀后的代码, OriginalCode 保留文件中的原始写法.
type TradingRecord struct {
	StockCode     string    `gorm:"primaryKey;type:varchar(16);not null" json:"stock_code"`
	TradeDate     string    `gorm:"primaryKey;type:varchar(10);not null" json:"trade_date"`
	OriginalCode  string    `gorm:"type:varchar(32);not null" json:"original_code"`
	TradingVolume int64     `gorm:"not null" json:"trading_volume"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConceptDailySummary 概念日汇总, 全部由 TradingRecord 推导.
type ConceptDailySummary struct {
	Concept       string          `gorm:"primaryKey;type:varchar(64);not null" json:"concept"`
	TradeDate     string          `gorm:"primaryKey;type:varchar(10);not null" json:"trade_date"`
	TotalVolume   int64           `gorm:"not null" json:"total_volume"`
	StockCount    int             `gorm:"not null" json:"stock_count"`
	AverageVolume decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"average_volume"`
	PreviousHigh  int64           `gorm:"not null" json:"previous_high"`
	IsNewHigh     bool            `gorm:"not null" json:"is_new_high"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockConceptRanking 概念内排名, 1..N, 成交量降序, 同量按代码升序.
type StockConceptRanking struct {
	Concept   string    `gorm:"primaryKey;type:varchar(64);not null" json:"concept"`
	TradeDate string    `gorm:"primaryKey;type:varchar(10);not null" json:"trade_date"`
	StockCode string    `gorm:"primaryKey;type:varchar(16);not null" json:"stock_code"`
	Rank      int       `gorm:"column:rank_within_concept;not null" json:"rank_within_concept"`
	Volume    int64     `gorm:"column:volume_that_day;not null" json:"volume_that_day"`
	CreatedAt time.Time `json:"created_at"`
}

// ConceptHighRecord 创新高记录
type ConceptHighRecord struct {
	Concept      string    `gorm:"primaryKey;type:varchar(64);not null" json:"concept"`
	TradeDate    string    `gorm:"primaryKey;type:varchar(10);not null" json:"trade_date"`
	TotalVolume  int64     `gorm:"not null" json:"total_volume"`
	PreviousHigh int64     `gorm:"not null" json:"previous_high"`
	WindowDays   int       `gorm:"not null" json:"window_days"`
	StockCount   int       `gorm:"not null" json:"stock_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImportRecord 每次导入尝试一行.
type ImportRecord struct {
	ID          string     `gorm:"primaryKey;type:varchar(36);not null" json:"id"`
	FileTypeKey string     `gorm:"type:varchar(32);not null" json:"file_type_key"`
	Filename    string     `gorm:"type:varchar(255);not null" json:"filename"`
	TradeDate   string     `gorm:"type:varchar(10);not null" json:"trade_date"`
	Mode        string     `gorm:"type:varchar(16);not null" json:"mode"`
	RowCount    int        `gorm:"not null" json:"row_count"`
	ErrorCount  int        `gorm:"not null" json:"error_count"`
	Status      string     `gorm:"type:varchar(16);not null" json:"status"`
	Message     string     `gorm:"type:varchar(1024);not null" json:"message,omitempty"`
	ImportedAt  time.Time  `gorm:"not null" json:"imported_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DurationMs  int64      `gorm:"not null" json:"duration_ms"`
}

// StockConcept 股票与概念的成员关系 (共享表, 不按文件类型隔离).
type StockConcept struct {
	StockCode string    `gorm:"primaryKey;type:varchar(16);not null" json:"stock_code"`
	Concept   string    `gorm:"primaryKey;type:varchar(64);not null" json:"concept"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StockConcept) TableName() string { return "stock_concept" }
