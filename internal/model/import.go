package model

import (
	"io"
	"time"

	"github.com/peakcary/stock-analysis-system-sub001/internal/consts"
)

type ImportRequest struct {
	FileTypeKey string
	TradeDate   string
	Mode        consts.ImportMode
	Filename    string
	Body        io.Reader
}

// RowError 单行解析错误, Line 从 1 开始.
type RowError struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult 即使有坏行也会返回; 只有事务或可用性错误才返回 error.
type ImportResult struct {
	ImportID    string              `json:"import_id"`
	FileTypeKey string              `json:"file_type_key"`
	TradeDate   string              `json:"trade_date"`
	Mode        consts.ImportMode   `json:"mode"`
	RowCount    int                 `json:"row_count"`
	ErrorCount  int                 `json:"error_count"`
	Status      consts.ImportStatus `json:"status"`
	Message     string              `json:"message,omitempty"`
	Errors      []RowError          `json:"errors,omitempty"`
	Concepts    int                 `json:"concepts"`
	Duration    time.Duration       `json:"duration_ns"`
}

type RecomputeResult struct {
	FileTypeKey string `json:"file_type_key"`
	TradeDate   string `json:"trade_date"`
	Stocks      int    `json:"stocks"`
	Concepts    int    `json:"concepts"`
	Rankings    int    `json:"rankings"`
	NewHighs    int    `json:"new_highs"`
}

// ImportStats DAO 层对 import_record 的聚合.
type ImportStats struct {
	Imports       int64
	FailedImports int64
	DatesImported int64
	TotalRows     int64
	TotalErrors   int64
}

type ImportStatistics struct {
	FileTypeKey   string     `json:"file_type_key"`
	DatesImported int64      `json:"dates_imported"`
	TotalRows     int64      `json:"total_rows"`
	TotalErrors   int64      `json:"total_errors"`
	Imports       int64      `json:"imports"`
	FailedImports int64      `json:"failed_imports"`
	LastImportAt  *time.Time `json:"last_import_at,omitempty"`
}

// DayView 某日的概念汇总与排名
type DayView struct {
	FileTypeKey string                `json:"file_type_key"`
	TradeDate   string                `json:"trade_date"`
	Summaries   []ConceptDailySummary `json:"summaries"`
	Rankings    []StockConceptRanking `json:"rankings"`
	HighRecords []ConceptHighRecord   `json:"high_records"`
}
