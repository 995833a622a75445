package dao

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// StockConceptDao 股票-概念成员关系表 stock_concept
type StockConceptDao interface {
	core.Component
	ConceptsByCodes(ctx context.Context, codes []string) (map[string][]string, error)
	Upsert(ctx context.Context, rows []*model.StockConcept) error
	ReplaceAll(ctx context.Context, membership map[string][]string) (int, error)
	Count(ctx context.Context) (int64, error)
}

type stockConceptDaoImpl struct {
	*core.BaseComponent
	GormComp *gormdb.GormComponent `infra:"dep:gorm_db"`
	db       *gorm.DB
	dsName   string
}

func NewStockConceptDao(dsName string) StockConceptDao {
	return &stockConceptDaoImpl{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_DAO_STOCK_CONCEPT, consts.COMPONENT_LOGGING),
		dsName:        dsName,
	}
}

func (d *stockConceptDaoImpl) Start(ctx context.Context) error {
	db, err := d.GormComp.GetDB(d.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", d.dsName, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.StockConcept{}); err != nil {
		return fmt.Errorf("migrate stock_concept failed: %w", err)
	}
	d.db = db
	return d.BaseComponent.Start(ctx)
}

// ConceptsByCodes 返回 code -> 概念列表 (按名称排序); 没有概念的代码不出现在结果中.
func (d *stockConceptDaoImpl) ConceptsByCodes(ctx context.Context, codes []string) (map[string][]string, error) {
	out := make(map[string][]string)
	db := d.db.WithContext(ctx)
	for start := 0; start < len(codes); start += codeChunk {
		end := min(start+codeChunk, len(codes))
		var rows []model.StockConcept
		if err := db.Where("stock_code IN ?", codes[start:end]).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.StockCode] = append(out[r.StockCode], r.Concept)
		}
	}
	for _, list := range out {
		sort.Strings(list)
	}
	return out, nil
}

func (d *stockConceptDaoImpl) Upsert(ctx context.Context, rows []*model.StockConcept) error {
	if len(rows) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(rows, 1000).Error
}

// ReplaceAll 事务内清空后全量写入
func (d *stockConceptDaoImpl) ReplaceAll(ctx context.Context, membership map[string][]string) (int, error) {
	now := time.Now()
	codes := make([]string, 0, len(membership))
	for code := range membership {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	rows := make([]*model.StockConcept, 0, len(membership))
	for _, code := range codes {
		seen := map[string]bool{}
		for _, concept := range membership[code] {
			if concept == "" || seen[concept] {
				continue
			}
			seen[concept] = true
			rows = append(rows, &model.StockConcept{StockCode: code, Concept: concept, UpdatedAt: now})
		}
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.StockConcept{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 1000).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (d *stockConceptDaoImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&model.StockConcept{}).Count(&n).Error
	return n, err
}
