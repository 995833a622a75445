package dao

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// TableManager 管理每个文件类型的 5 张物理表.
//
// 建表按表逐个执行, 不包在事务里 (多数库的 DDL 不可回滚); 中途失败后再次调用
// EnsureTables 会补齐缺失的表, 已存在的表和其中的数据不受影响.
type TableManager interface {
	core.Component
	EnsureTables(ctx context.Context, cfg *model.FileTypeConfig) error
	DropTables(ctx context.Context, cfg *model.FileTypeConfig) error
	Inspect(ctx context.Context, prefix string) []model.TableHealth
	RowCounts(ctx context.Context, prefix string) (map[string]int64, error)
}

type tableManagerImpl struct {
	*core.BaseComponent
	GormComp *gormdb.GormComponent `infra:"dep:gorm_db"`
	db       *gorm.DB
	dsName   string
	ddlMu    sync.Mutex
}

func NewTableManager(dsName string) TableManager {
	return &tableManagerImpl{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_TABLE_MANAGER, consts.COMPONENT_LOGGING),
		dsName:        dsName,
	}
}

func (m *tableManagerImpl) Start(ctx context.Context) error {
	db, err := m.GormComp.GetDB(m.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", m.dsName, err)
	}
	m.db = db
	return m.BaseComponent.Start(ctx)
}

func (m *tableManagerImpl) EnsureTables(ctx context.Context, cfg *model.FileTypeConfig) error {
	m.ddlMu.Lock()
	defer m.ddlMu.Unlock()

	db := m.db.WithContext(ctx)
	created := 0
	for _, tpl := range model.Templates(cfg.TablePrefix) {
		isNew, err := ensureTable(db, tpl)
		if err != nil {
			return errs.New(errs.KindProvision, "ensure_tables", cfg.Key, fmt.Errorf("table %s: %w", tpl.Name, err))
		}
		if isNew {
			created++
		}
	}
	if created > 0 {
		logging.Infof(ctx, "[table_manager] file type %s: created %d tables (prefix=%q)", cfg.Key, created, cfg.TablePrefix)
	}
	return nil
}

// ensureTable 创建缺失的表; 表已存在时只补齐缺失的列和索引, 从不修改或删除已有列.
func ensureTable(db *gorm.DB, tpl model.TableTemplate) (bool, error) {
	mig := db.Table(tpl.Name).Migrator()
	created := false
	if !mig.HasTable(tpl.Name) {
		if err := mig.CreateTable(tpl.Model); err != nil {
			return false, fmt.Errorf("create: %w", err)
		}
		created = true
	} else {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(tpl.Model); err != nil {
			return false, fmt.Errorf("parse template: %w", err)
		}
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" || mig.HasColumn(tpl.Model, f.DBName) {
				continue
			}
			if err := mig.AddColumn(tpl.Model, f.DBName); err != nil {
				return false, fmt.Errorf("add column %s: %w", f.DBName, err)
			}
		}
	}
	for _, col := range tpl.IndexColumns {
		idx := model.IndexName(tpl.Name, col)
		if mig.HasIndex(tpl.Model, idx) {
			continue
		}
		err := db.Exec("CREATE INDEX ? ON ? (?)",
			clause.Table{Name: idx}, clause.Table{Name: tpl.Name}, clause.Column{Name: col}).Error
		if err != nil {
			return created, fmt.Errorf("create index %s: %w", idx, err)
		}
	}
	return created, nil
}

func (m *tableManagerImpl) DropTables(ctx context.Context, cfg *model.FileTypeConfig) error {
	m.ddlMu.Lock()
	defer m.ddlMu.Unlock()

	db := m.db.WithContext(ctx)
	var existing, nonEmpty []string
	for _, name := range cfg.Tables().All() {
		if !db.Migrator().HasTable(name) {
			continue
		}
		var n int64
		if err := db.Table(name).Count(&n).Error; err != nil {
			return errs.New(errs.KindProvision, "drop_tables", cfg.Key, fmt.Errorf("count %s: %w", name, err))
		}
		if n > 0 {
			nonEmpty = append(nonEmpty, fmt.Sprintf("%s(%d)", name, n))
		}
		existing = append(existing, name)
	}
	if len(nonEmpty) > 0 {
		return errs.Newf(errs.KindProvision, "drop_tables", cfg.Key, "refusing to drop non-empty tables: %s", strings.Join(nonEmpty, ", "))
	}
	for _, name := range existing {
		if err := db.Migrator().DropTable(name); err != nil {
			return errs.New(errs.KindProvision, "drop_tables", cfg.Key, fmt.Errorf("drop %s: %w", name, err))
		}
	}
	logging.Infof(ctx, "[table_manager] file type %s: dropped %d tables", cfg.Key, len(existing))
	return nil
}

func (m *tableManagerImpl) Inspect(ctx context.Context, prefix string) []model.TableHealth {
	db := m.db.WithContext(ctx)
	tables := model.TableNames(prefix).All()
	out := make([]model.TableHealth, 0, len(tables))
	for _, name := range tables {
		h := model.TableHealth{Table: name, Exists: db.Migrator().HasTable(name)}
		if h.Exists {
			var one int
			if err := db.Raw("SELECT 1 FROM ? LIMIT 1", clause.Table{Name: name}).Scan(&one).Error; err != nil {
				h.Error = err.Error()
			} else {
				h.Queryable = true
			}
		}
		out = append(out, h)
	}
	return out
}

func (m *tableManagerImpl) RowCounts(ctx context.Context, prefix string) (map[string]int64, error) {
	db := m.db.WithContext(ctx)
	out := make(map[string]int64)
	for _, name := range model.TableNames(prefix).All() {
		if !db.Migrator().HasTable(name) {
			continue
		}
		var n int64
		if err := db.Table(name).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out[name] = n
	}
	return out, nil
}
