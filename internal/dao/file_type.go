package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

type FileTypeDao interface {
	core.Component
	Create(ctx context.Context, cfg *model.FileTypeConfig) error
	Get(ctx context.Context, key string) (*model.FileTypeConfig, error)
	List(ctx context.Context, activeOnly bool) ([]*model.FileTypeConfig, error)
	SetActive(ctx context.Context, key string, active bool) error
	UpdateMeta(ctx context.Context, key, displayName, description string) error
	Delete(ctx context.Context, key string) error
}

type fileTypeDaoImpl struct {
	*core.BaseComponent
	GormComp *gormdb.GormComponent `infra:"dep:gorm_db"`
	db       *gorm.DB
	dsName   string
}

func NewFileTypeDao(dsName string) FileTypeDao {
	return &fileTypeDaoImpl{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_DAO_FILE_TYPE, consts.COMPONENT_LOGGING),
		dsName:        dsName,
	}
}

func (d *fileTypeDaoImpl) Start(ctx context.Context) error {
	db, err := d.GormComp.GetDB(d.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", d.dsName, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.FileTypeConfig{}); err != nil {
		return fmt.Errorf("migrate file_type_config failed: %w", err)
	}
	d.db = db
	return d.BaseComponent.Start(ctx)
}

func (d *fileTypeDaoImpl) Create(ctx context.Context, cfg *model.FileTypeConfig) error {
	return d.db.WithContext(ctx).Create(cfg).Error
}

func (d *fileTypeDaoImpl) Get(ctx context.Context, key string) (*model.FileTypeConfig, error) {
	var cfg model.FileTypeConfig
	err := d.db.WithContext(ctx).Where(byKey(key)).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "get_file_type", key, "file type not registered")
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (d *fileTypeDaoImpl) List(ctx context.Context, activeOnly bool) ([]*model.FileTypeConfig, error) {
	var list []*model.FileTypeConfig
	q := d.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *fileTypeDaoImpl) SetActive(ctx context.Context, key string, active bool) error {
	return d.updates(ctx, key, map[string]any{"is_active": active})
}

func (d *fileTypeDaoImpl) UpdateMeta(ctx context.Context, key, displayName, description string) error {
	return d.updates(ctx, key, map[string]any{"display_name": displayName, "description": description})
}

func (d *fileTypeDaoImpl) updates(ctx context.Context, key string, values map[string]any) error {
	return d.db.WithContext(ctx).Model(&model.FileTypeConfig{}).Where(byKey(key)).Updates(values).Error
}

func (d *fileTypeDaoImpl) Delete(ctx context.Context, key string) error {
	return d.db.WithContext(ctx).Where(byKey(key)).Delete(&model.FileTypeConfig{}).Error
}

// key 在 mysql 中是保留字, 交给方言负责引用
func byKey(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
