package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/autowire"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/dao"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
	"github.com/peakcary/stock-analysis-system-sub001/internal/testkit"
)

type env struct {
	db       *gorm.DB
	cfg      *bizConfig.BizConfig
	registry *FileTypeRegistry
	imports  *ImportService
	locker   *ImportLocker
	resolver *ConceptResolver
	concepts dao.StockConceptDao
}

type envOption func(*bizConfig.BizConfig, *envParts)

// envParts 在注入前预置的字段, autowire 不会覆盖已设置的值.
type envParts struct {
	lookup    ConceptLookup
	ensureErr error
}

func withLookup(l ConceptLookup) envOption {
	return func(_ *bizConfig.BizConfig, p *envParts) { p.lookup = l }
}

func withEnsureError(err error) envOption {
	return func(_ *bizConfig.BizConfig, p *envParts) { p.ensureErr = err }
}

func withConfig(fn func(*bizConfig.BizConfig)) envOption {
	return func(c *bizConfig.BizConfig, _ *envParts) { fn(c) }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	ctx := context.Background()
	cfg := &bizConfig.BizConfig{}
	parts := &envParts{}
	for _, o := range opts {
		o(cfg, parts)
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	c := core.NewContainer()
	gc := testkit.NewGorm(t)
	require.NoError(t, c.Register(consts.COMPONENT_GORM, gc))

	norm := NewCodeNormalizer(cfg.Normalize.MarketPrefixes)
	fileTypes := dao.NewFileTypeDao(testkit.DataSource)
	tables := dao.NewTableManager(testkit.DataSource)
	conceptDao := dao.NewStockConceptDao(testkit.DataSource)
	mappings := dao.NewMappingGenerator(cfg.Import.BatchSize)
	locker := NewImportLocker(false, cfg.Import.LockTTL)
	resolver := NewConceptResolver(cfg.Concept, norm)
	registry := NewFileTypeRegistry(testkit.DataSource, cfg.FileTypes)
	imports := NewImportService(testkit.DataSource, cfg.Import, norm)
	if parts.lookup != nil {
		imports.Concepts = parts.lookup
	}

	comps := []core.Component{fileTypes, tables, conceptDao, mappings, locker, resolver, registry, imports}
	for _, comp := range comps {
		require.NoError(t, c.Register(comp.Name(), comp))
	}
	require.NoError(t, autowire.InjectAll(c))
	if parts.ensureErr != nil {
		registry.Tables = faultyTables{TableManager: tables, ensureErr: parts.ensureErr}
	}
	for _, comp := range comps {
		require.NoError(t, comp.Start(ctx), comp.Name())
	}
	t.Cleanup(func() {
		for i := len(comps) - 1; i >= 0; i-- {
			_ = comps[i].Stop(ctx)
		}
	})
	return &env{
		db: testkit.DB(t, gc), cfg: cfg, registry: registry, imports: imports,
		locker: locker, resolver: resolver, concepts: conceptDao,
	}
}

// faultyTables 让 EnsureTables 失败, 其余方法走真实实现.
type faultyTables struct {
	dao.TableManager
	ensureErr error
}

func (f faultyTables) EnsureTables(ctx context.Context, cfg *model.FileTypeConfig) error {
	return f.ensureErr
}

func (e *env) register(t *testing.T, key, prefix string) *model.FileTypeConfig {
	t.Helper()
	cfg, err := e.registry.Register(context.Background(), NewFileType(key, prefix, ""))
	require.NoError(t, err)
	return cfg
}

func (e *env) membership(t *testing.T, m map[string][]string) {
	t.Helper()
	_, err := e.concepts.ReplaceAll(context.Background(), m)
	require.NoError(t, err)
}

func (e *env) importFile(t *testing.T, key, date, mode string, lines ...string) (*model.ImportResult, error) {
	t.Helper()
	return e.imports.Import(context.Background(), &model.ImportRequest{
		FileTypeKey: key, TradeDate: date, Mode: bizConsts.ImportMode(mode), Filename: key + "_" + date + ".txt",
		Body: strings.NewReader(strings.Join(lines, "\n") + "\n"),
	})
}

func (e *env) trading(t *testing.T, table, date string) []model.TradingRecord {
	t.Helper()
	var rows []model.TradingRecord
	require.NoError(t, e.db.Table(table).Where("trade_date = ?", date).Order("stock_code").Find(&rows).Error)
	for i := range rows {
		rows[i].CreatedAt = time.Time{}
	}
	return rows
}
