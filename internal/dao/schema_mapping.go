package dao

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// codeChunk IN 查询的最大参数个数
const codeChunk = 500

// SchemaMapping 绑定到某个文件类型物理表的仓储对象.
// 所有方法都接收要执行的 *gorm.DB (基础句柄或已开启的事务), 自身不持有连接.
type SchemaMapping struct {
	Key       string
	Prefix    string
	Tables    model.TableSet
	BatchSize int
	BuiltAt   time.Time
}

func NewSchemaMapping(cfg *model.FileTypeConfig, batchSize int) *SchemaMapping {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &SchemaMapping{
		Key:       cfg.Key,
		Prefix:    cfg.TablePrefix,
		Tables:    cfg.Tables(),
		BatchSize: batchSize,
		BuiltAt:   time.Now(),
	}
}

func (m *SchemaMapping) InsertTrading(db *gorm.DB, rows []*model.TradingRecord) error {
	if len(rows) == 0 {
		return nil
	}
	return db.Table(m.Tables.Trading).CreateInBatches(rows, m.BatchSize).Error
}

func (m *SchemaMapping) DeleteTradingByDate(db *gorm.DB, date string) (int64, error) {
	res := db.Table(m.Tables.Trading).Where("trade_date = ?", date).Delete(&model.TradingRecord{})
	return res.RowsAffected, res.Error
}

// ExistingCodes 返回 codes 中当日已存在的代码
func (m *SchemaMapping) ExistingCodes(db *gorm.DB, date string, codes []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for start := 0; start < len(codes); start += codeChunk {
		end := min(start+codeChunk, len(codes))
		var found []string
		err := db.Table(m.Tables.Trading).
			Where("trade_date = ? AND stock_code IN ?", date, codes[start:end]).
			Pluck("stock_code", &found).Error
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			out[c] = true
		}
	}
	return out, nil
}

func (m *SchemaMapping) TradingByDate(db *gorm.DB, date string) ([]model.TradingRecord, error) {
	var rows []model.TradingRecord
	err := db.Table(m.Tables.Trading).Where("trade_date = ?", date).Order("stock_code ASC").Find(&rows).Error
	return rows, err
}

// ReplaceDerived 整日替换汇总, 排名和创新高记录.
func (m *SchemaMapping) ReplaceDerived(db *gorm.DB, date string, summaries []*model.ConceptDailySummary,
	rankings []*model.StockConceptRanking, highs []*model.ConceptHighRecord) error {
	if err := db.Table(m.Tables.Summary).Where("trade_date = ?", date).Delete(&model.ConceptDailySummary{}).Error; err != nil {
		return fmt.Errorf("clear %s: %w", m.Tables.Summary, err)
	}
	if err := db.Table(m.Tables.Ranking).Where("trade_date = ?", date).Delete(&model.StockConceptRanking{}).Error; err != nil {
		return fmt.Errorf("clear %s: %w", m.Tables.Ranking, err)
	}
	if err := db.Table(m.Tables.HighRecord).Where("trade_date = ?", date).Delete(&model.ConceptHighRecord{}).Error; err != nil {
		return fmt.Errorf("clear %s: %w", m.Tables.HighRecord, err)
	}
	if len(summaries) > 0 {
		if err := db.Table(m.Tables.Summary).CreateInBatches(summaries, m.BatchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", m.Tables.Summary, err)
		}
	}
	if len(rankings) > 0 {
		if err := db.Table(m.Tables.Ranking).CreateInBatches(rankings, m.BatchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", m.Tables.Ranking, err)
		}
	}
	if len(highs) > 0 {
		if err := db.Table(m.Tables.HighRecord).CreateInBatches(highs, m.BatchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", m.Tables.HighRecord, err)
		}
	}
	return nil
}

// PrecedingMax 每个概念在 date 之前最近 window 个有汇总的交易日内的最大总成交量.
func (m *SchemaMapping) PrecedingMax(db *gorm.DB, date string, window int) (map[string]int64, error) {
	out := make(map[string]int64)
	if window <= 0 {
		return out, nil
	}
	var dates []string
	err := db.Table(m.Tables.Summary).Distinct("trade_date").
		Where("trade_date < ?", date).Order("trade_date DESC").Limit(window).
		Pluck("trade_date", &dates).Error
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return out, nil
	}
	var rows []struct {
		Concept string
		MaxVol  int64
	}
	err = db.Table(m.Tables.Summary).Select("concept, MAX(total_volume) AS max_vol").
		Where("trade_date IN ?", dates).Group("concept").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Concept] = r.MaxVol
	}
	return out, nil
}

func (m *SchemaMapping) SummariesByDate(db *gorm.DB, date string) ([]model.ConceptDailySummary, error) {
	var rows []model.ConceptDailySummary
	err := db.Table(m.Tables.Summary).Where("trade_date = ?", date).
		Order("total_volume DESC").Order("concept ASC").Find(&rows).Error
	return rows, err
}

func (m *SchemaMapping) RankingsByDate(db *gorm.DB, date string) ([]model.StockConceptRanking, error) {
	var rows []model.StockConceptRanking
	err := db.Table(m.Tables.Ranking).Where("trade_date = ?", date).
		Order("concept ASC").Order("rank_within_concept ASC").Find(&rows).Error
	return rows, err
}

func (m *SchemaMapping) HighRecordsByDate(db *gorm.DB, date string) ([]model.ConceptHighRecord, error) {
	var rows []model.ConceptHighRecord
	err := db.Table(m.Tables.HighRecord).Where("trade_date = ?", date).Order("concept ASC").Find(&rows).Error
	return rows, err
}

// TradeDatesBetween 闭区间内有交易数据的日期, 升序
func (m *SchemaMapping) TradeDatesBetween(db *gorm.DB, from, to string) ([]string, error) {
	var dates []string
	err := db.Table(m.Tables.Trading).Distinct("trade_date").
		Where("trade_date >= ? AND trade_date <= ?", from, to).Order("trade_date ASC").
		Pluck("trade_date", &dates).Error
	return dates, err
}

func (m *SchemaMapping) CreateImportRecord(db *gorm.DB, rec *model.ImportRecord) error {
	return db.Table(m.Tables.ImportRecord).Create(rec).Error
}

// FinishImportRecord 写入终态
func (m *SchemaMapping) FinishImportRecord(db *gorm.DB, rec *model.ImportRecord) error {
	return db.Table(m.Tables.ImportRecord).Where("id = ?", rec.ID).Updates(map[string]any{
		"row_count":   rec.RowCount,
		"error_count": rec.ErrorCount,
		"status":      rec.Status,
		"message":     rec.Message,
		"finished_at": rec.FinishedAt,
		"duration_ms": rec.DurationMs,
	}).Error
}

func (m *SchemaMapping) ImportRecords(db *gorm.DB, limit int) ([]model.ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.ImportRecord
	err := db.Table(m.Tables.ImportRecord).Order("imported_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (m *SchemaMapping) ImportStats(db *gorm.DB) (*model.ImportStats, error) {
	var s model.ImportStats
	err := db.Table(m.Tables.ImportRecord).Select(
		"COUNT(*) AS imports, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed_imports, "+
			"COUNT(DISTINCT CASE WHEN status = ? THEN trade_date END) AS dates_imported, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN row_count ELSE 0 END), 0) AS total_rows, "+
			"COALESCE(SUM(error_count), 0) AS total_errors",
		string(bizConsts.ImportFailed), string(bizConsts.ImportSuccess), string(bizConsts.ImportSuccess),
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LastImportAt 最近一次成功导入的时间, 没有则为 nil
func (m *SchemaMapping) LastImportAt(db *gorm.DB) (*time.Time, error) {
	var rows []model.ImportRecord
	err := db.Table(m.Tables.ImportRecord).Where("status = ?", string(bizConsts.ImportSuccess)).
		Order("imported_at DESC").Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	t := rows[0].ImportedAt
	return &t, nil
}
