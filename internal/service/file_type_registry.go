package service

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/dao"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

// FileTypeRegistry 文件类型的管理入口: 注册, 启停, 健康检查, 修复.
type FileTypeRegistry struct {
	*core.BaseComponent
	GormComp *gormdb.GormComponent `infra:"dep:gorm_db"`
	Dao      dao.FileTypeDao       `infra:"dep:file_type_dao"`
	Tables   dao.TableManager      `infra:"dep:table_manager"`
	Mappings *dao.MappingGenerator `infra:"dep:mapping_generator"`

	dsName string
	seeds  []bizConfig.FileTypeSeed
	db     *gorm.DB
	// 串行化管理操作, 避免并发注册时前缀校验失效
	mu sync.Mutex
}

func NewFileTypeRegistry(dsName string, seeds []bizConfig.FileTypeSeed) *FileTypeRegistry {
	return &FileTypeRegistry{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_FILE_TYPE, consts.COMPONENT_LOGGING),
		dsName:        dsName,
		seeds:         seeds,
	}
}

func (r *FileTypeRegistry) Start(ctx context.Context) error {
	db, err := r.GormComp.GetDB(r.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", r.dsName, err)
	}
	r.db = db
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	return r.BaseComponent.Start(ctx)
}

// bootstrap 注册配置文件中尚未登记的文件类型; 已登记的只补齐表结构.
func (r *FileTypeRegistry) bootstrap(ctx context.Context) error {
	for _, seed := range r.seeds {
		existing, err := r.Dao.Get(ctx, seed.Key)
		switch {
		case err == nil:
			if existing.IsActive {
				if err := r.Tables.EnsureTables(ctx, existing); err != nil {
					return fmt.Errorf("bootstrap file type %s: %w", seed.Key, err)
				}
			}
		case errs.KindOf(err) == errs.KindNotFound:
			cfg := &model.FileTypeConfig{
				Key: seed.Key, TablePrefix: seed.TablePrefix,
				DisplayName: seed.DisplayName, Description: seed.Description,
			}
			if _, err := r.Register(ctx, cfg); err != nil {
				return fmt.Errorf("bootstrap file type %s: %w", seed.Key, err)
			}
		default:
			return fmt.Errorf("bootstrap file type %s: %w", seed.Key, err)
		}
	}
	return nil
}

// Register 校验 -> 持久化 -> 建表; 建表失败时删除已写入的配置.
func (r *FileTypeRegistry) Register(ctx context.Context, cfg *model.FileTypeConfig) (*model.FileTypeConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered, err := r.Dao.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list file types: %w", err)
	}
	normalized, err := ValidateFileType(cfg, registered)
	if err != nil {
		return nil, err
	}
	normalized.IsActive = true
	if err := r.Dao.Create(ctx, normalized); err != nil {
		return nil, fmt.Errorf("persist file type %s: %w", normalized.Key, err)
	}
	if err := r.Tables.EnsureTables(ctx, normalized); err != nil {
		if delErr := r.Dao.Delete(context.WithoutCancel(ctx), normalized.Key); delErr != nil {
			logging.Errorf(ctx, "[file_type] rollback of %s failed: %v", normalized.Key, delErr)
		}
		return nil, err
	}
	r.Mappings.Invalidate(normalized.Key)
	logging.Infof(ctx, "[file_type] registered %s prefix=%q", normalized.Key, normalized.TablePrefix)
	return normalized, nil
}

func (r *FileTypeRegistry) Get(ctx context.Context, key string) (*model.FileTypeConfig, error) {
	return r.Dao.Get(ctx, NormalizeKey(key))
}

func (r *FileTypeRegistry) List(ctx context.Context, activeOnly bool) ([]*model.FileTypeConfig, error) {
	return r.Dao.List(ctx, activeOnly)
}

func (r *FileTypeRegistry) Deactivate(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.Dao.Get(ctx, key); err != nil {
		return err
	}
	if err := r.Dao.SetActive(ctx, key, false); err != nil {
		return err
	}
	r.Mappings.Invalidate(key)
	logging.Infof(ctx, "[file_type] deactivated %s", key)
	return nil
}

func (r *FileTypeRegistry) Reactivate(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.Dao.Get(ctx, key)
	if err != nil {
		return err
	}
	if cfg.IsActive {
		return nil
	}
	active, err := r.Dao.List(ctx, true)
	if err != nil {
		return err
	}
	for _, a := range active {
		if a.TablePrefix == cfg.TablePrefix {
			return errs.Newf(errs.KindConfig, "reactivate", key, "table_prefix %q is in use by active file type %s", cfg.TablePrefix, a.Key)
		}
	}
	if err := r.Dao.SetActive(ctx, key, true); err != nil {
		return err
	}
	r.Mappings.Invalidate(key)
	logging.Infof(ctx, "[file_type] reactivated %s", key)
	return nil
}

// FileTypeUpdate 只允许修改展示信息; 前缀和列布局建表后不可变.
type FileTypeUpdate struct {
	DisplayName  *string            `json:"display_name"`
	Description  *string            `json:"description"`
	TablePrefix  *string            `json:"table_prefix"`
	ColumnLayout model.ColumnLayout `json:"column_layout"`
}

func (r *FileTypeRegistry) Update(ctx context.Context, key string, u FileTypeUpdate) (*model.FileTypeConfig, error) {
	key = NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.Dao.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if u.TablePrefix != nil && *u.TablePrefix != cfg.TablePrefix {
		return nil, errs.Newf(errs.KindConfig, "update", key, "table_prefix cannot change; register a new file type instead")
	}
	if len(u.ColumnLayout) > 0 && !u.ColumnLayout.Equal(cfg.Layout()) {
		return nil, errs.Newf(errs.KindConfig, "update", key, "column_layout cannot change; register a new file type instead")
	}
	if u.DisplayName != nil {
		cfg.DisplayName = *u.DisplayName
	}
	if u.Description != nil {
		cfg.Description = *u.Description
	}
	if err := r.Dao.UpdateMeta(ctx, key, cfg.DisplayName, cfg.Description); err != nil {
		return nil, err
	}
	return r.Dao.Get(ctx, key)
}

// Remove 物理删除; 要求已停用且所有表为空.
func (r *FileTypeRegistry) Remove(ctx context.Context, key string) error {
	key = NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.Dao.Get(ctx, key)
	if err != nil {
		return err
	}
	if cfg.IsActive {
		return errs.Newf(errs.KindConfig, "remove", key, "file type is active; deactivate it first")
	}
	if err := r.Tables.DropTables(ctx, cfg); err != nil {
		return err
	}
	r.Mappings.Invalidate(key)
	if err := r.Dao.Delete(ctx, key); err != nil {
		return err
	}
	logging.Infof(ctx, "[file_type] removed %s", key)
	return nil
}

// CheckHealth 配置缺失时返回 broken 而不是错误.
func (r *FileTypeRegistry) CheckHealth(ctx context.Context, key string) (*model.HealthReport, error) {
	key = NormalizeKey(key)
	cfg, err := r.Dao.Get(ctx, key)
	if errs.KindOf(err) == errs.KindNotFound {
		return &model.HealthReport{Key: key, Status: bizConsts.HealthBroken}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.health(ctx, cfg), nil
}

func (r *FileTypeRegistry) health(ctx context.Context, cfg *model.FileTypeConfig) *model.HealthReport {
	tables := r.Tables.Inspect(ctx, cfg.TablePrefix)
	healthy := 0
	for _, t := range tables {
		if t.Exists && t.Queryable {
			healthy++
		}
	}
	status := bizConsts.HealthDegraded
	switch healthy {
	case len(tables):
		status = bizConsts.HealthOK
	case 0:
		status = bizConsts.HealthBroken
	}
	return &model.HealthReport{Key: cfg.Key, Status: status, Tables: tables}
}

// Repair 重新执行建表, 不恢复数据.
func (r *FileTypeRegistry) Repair(ctx context.Context, key string) (*model.HealthReport, error) {
	key = NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.Dao.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := r.Tables.EnsureTables(ctx, cfg); err != nil {
		return nil, err
	}
	r.Mappings.Invalidate(key)
	report := r.health(ctx, cfg)
	logging.Infof(ctx, "[file_type] repaired %s status=%s", key, report.Status)
	return report, nil
}

func (r *FileTypeRegistry) Summary(ctx context.Context) ([]model.FileTypeSummary, error) {
	list, err := r.Dao.List(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.FileTypeSummary, 0, len(list))
	for _, cfg := range list {
		counts, err := r.Tables.RowCounts(ctx, cfg.TablePrefix)
		if err != nil {
			return nil, fmt.Errorf("row counts for %s: %w", cfg.Key, err)
		}
		s := model.FileTypeSummary{
			Key: cfg.Key, DisplayName: cfg.DisplayName, TablePrefix: cfg.TablePrefix,
			IsActive: cfg.IsActive, RowCounts: counts, Health: r.health(ctx, cfg).Status,
		}
		if _, ok := counts[cfg.Tables().ImportRecord]; ok {
			last, err := dao.NewSchemaMapping(cfg, 0).LastImportAt(r.db.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("last import for %s: %w", cfg.Key, err)
			}
			s.LastImportAt = last
		}
		out = append(out, s)
	}
	return out, nil
}

// ResolveActive 导入前的可用性检查: 已登记, 已启用, 表结构完整.
func (r *FileTypeRegistry) ResolveActive(ctx context.Context, key string) (*model.FileTypeConfig, *dao.SchemaMapping, error) {
	key = NormalizeKey(key)
	cfg, err := r.Dao.Get(ctx, key)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, nil, errs.Newf(errs.KindUnavailable, "resolve", key, "file type not registered")
		}
		return nil, nil, err
	}
	if !cfg.IsActive {
		return nil, nil, errs.Newf(errs.KindUnavailable, "resolve", key, "file type is inactive")
	}
	if h := r.health(ctx, cfg); h.Status != bizConsts.HealthOK {
		return nil, nil, errs.Newf(errs.KindUnavailable, "resolve", key, "file type health is %s", h.Status)
	}
	m, err := r.Mappings.Get(ctx, key)
	if err != nil {
		return nil, nil, errs.New(errs.KindUnavailable, "resolve", key, err)
	}
	return cfg, m, nil
}

// Mapping 只读查询用, 不要求启用.
func (r *FileTypeRegistry) Mapping(ctx context.Context, key string) (*dao.SchemaMapping, error) {
	return r.Mappings.Get(ctx, NormalizeKey(key))
}

// NewFileType 以通用布局构造配置
func NewFileType(key, prefix, displayName string) *model.FileTypeConfig {
	return &model.FileTypeConfig{
		Key: key, TablePrefix: prefix, DisplayName: displayName,
		ColumnLayout: datatypes.NewJSONType(model.UniversalLayout()),
	}
}
