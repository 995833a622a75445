package dao

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
	"github.com/peakcary/stock-analysis-system-sub001/internal/testkit"
)

type fixture struct {
	db       *gorm.DB
	fileType FileTypeDao
	tables   TableManager
	mappings *MappingGenerator
	concepts StockConceptDao
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	gc := testkit.NewGorm(t)

	ft := NewFileTypeDao(testkit.DataSource).(*fileTypeDaoImpl)
	ft.GormComp = gc
	require.NoError(t, ft.Start(ctx))

	tm := NewTableManager(testkit.DataSource).(*tableManagerImpl)
	tm.GormComp = gc
	require.NoError(t, tm.Start(ctx))

	sc := NewStockConceptDao(testkit.DataSource).(*stockConceptDaoImpl)
	sc.GormComp = gc
	require.NoError(t, sc.Start(ctx))

	gen := NewMappingGenerator(2)
	gen.FileTypes, gen.Tables = ft, tm
	require.NoError(t, gen.Start(ctx))

	return &fixture{db: testkit.DB(t, gc), fileType: ft, tables: tm, mappings: gen, concepts: sc}
}

func fileType(key, prefix string) *model.FileTypeConfig {
	return &model.FileTypeConfig{
		Key: key, TablePrefix: prefix, DisplayName: key, IsActive: true,
		ColumnLayout: datatypes.NewJSONType(model.UniversalLayout()),
	}
}

func countTables(t *testing.T, db *gorm.DB, pattern string) int64 {
	var n int64
	require.NoError(t, db.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name LIKE ?", pattern).Scan(&n).Error)
	return n
}

func TestEnsureTablesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")

	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	require.NoError(t, f.tables.EnsureTables(ctx, cfg))

	assert.EqualValues(t, 5, countTables(t, f.db, "ttv_%"))
	for _, h := range f.tables.Inspect(ctx, "ttv_") {
		assert.True(t, h.Exists, h.Table)
		assert.True(t, h.Queryable, h.Table)
	}
	assert.True(t, f.db.Table("ttv_trading").Migrator().HasIndex(&model.TradingRecord{}, "idx_ttv_trading_trade_date"))
}

func TestTwoPrefixesDoNotCollide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tables.EnsureTables(ctx, fileType("ttv", "ttv_")))
	require.NoError(t, f.tables.EnsureTables(ctx, fileType("eee", "eee_")))
	require.NoError(t, f.tables.EnsureTables(ctx, fileType("txt", "")))

	assert.True(t, f.db.Migrator().HasTable("trading"))
	assert.True(t, f.db.Migrator().HasTable("eee_import_record"))
	assert.True(t, f.db.Table("eee_trading").Migrator().HasIndex(&model.TradingRecord{}, "idx_eee_trading_trade_date"))
}

func TestEnsureTablesResumesPartialProvisioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")

	// 模拟上一次只建了一部分: trading 表缺少 created_at 列, 其余表不存在
	require.NoError(t, f.db.Exec("CREATE TABLE ttv_trading (stock_code varchar(16) NOT NULL, trade_date varchar(10) NOT NULL, "+
		"original_code varchar(32) NOT NULL, trading_volume integer NOT NULL, PRIMARY KEY (stock_code, trade_date))").Error)
	require.NoError(t, f.db.Exec("INSERT INTO ttv_trading VALUES ('600000', '2024-02-20', 'SH600000', 1500000)").Error)

	health := f.tables.Inspect(ctx, "ttv_")
	assert.True(t, health[0].Exists)
	assert.False(t, health[1].Exists)

	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	assert.EqualValues(t, 5, countTables(t, f.db, "ttv_%"))
	assert.True(t, f.db.Table("ttv_trading").Migrator().HasColumn(&model.TradingRecord{}, "created_at"))

	var rows []model.TradingRecord
	require.NoError(t, f.db.Table("ttv_trading").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1500000), rows[0].TradingVolume)
}

func TestDropTablesRefusesWhileDataExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")
	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	require.NoError(t, f.db.Table("ttv_trading").Create(&model.TradingRecord{StockCode: "600000", TradeDate: "2024-02-20", TradingVolume: 1}).Error)

	err := f.tables.DropTables(ctx, cfg)
	require.Error(t, err)
	assert.Equal(t, errs.KindProvision, errs.KindOf(err))
	assert.Contains(t, err.Error(), "ttv_trading(1)")
	assert.EqualValues(t, 5, countTables(t, f.db, "ttv_%"))

	require.NoError(t, f.db.Exec("DELETE FROM ttv_trading").Error)
	require.NoError(t, f.tables.DropTables(ctx, cfg))
	assert.EqualValues(t, 0, countTables(t, f.db, "ttv_%"))

	counts, err := f.tables.RowCounts(ctx, "ttv_")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMappingGeneratorCachesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mappings.Get(ctx, "ttv")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	cfg := fileType("ttv", "ttv_")
	require.NoError(t, f.fileType.Create(ctx, cfg))
	_, err = f.mappings.Get(ctx, "ttv")
	assert.Equal(t, errs.KindProvision, errs.KindOf(err))
	assert.False(t, f.mappings.Cached("ttv"))

	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	m1, err := f.mappings.Get(ctx, "ttv")
	require.NoError(t, err)
	assert.Equal(t, "ttv_trading", m1.Tables.Trading)
	m2, err := f.mappings.Get(ctx, "ttv")
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	f.mappings.Invalidate("ttv")
	assert.False(t, f.mappings.Cached("ttv"))
	m3, err := f.mappings.Get(ctx, "ttv")
	require.NoError(t, err)
	assert.NotSame(t, m1, m3)
}

func TestMappingGeneratorConcurrentGetBuildsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")
	require.NoError(t, f.fileType.Create(ctx, cfg))
	require.NoError(t, f.tables.EnsureTables(ctx, cfg))

	const n = 16
	got := make([]*SchemaMapping, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := f.mappings.Get(ctx, "ttv")
			assert.NoError(t, err)
			got[i] = m
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
}

func TestSchemaMappingQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")
	require.NoError(t, f.fileType.Create(ctx, cfg))
	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	m, err := f.mappings.Get(ctx, "ttv")
	require.NoError(t, err)

	require.NoError(t, m.InsertTrading(f.db, []*model.TradingRecord{
		{StockCode: "600000", TradeDate: "2024-02-19", TradingVolume: 10},
		{StockCode: "600000", TradeDate: "2024-02-20", TradingVolume: 20},
		{StockCode: "000001", TradeDate: "2024-02-20", TradingVolume: 30},
		{StockCode: "000002", TradeDate: "2024-02-21", TradingVolume: 40},
	}))

	existing, err := m.ExistingCodes(f.db, "2024-02-20", []string{"600000", "300750"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"600000": true}, existing)

	dates, err := m.TradeDatesBetween(f.db, "2024-02-20", "2024-02-21")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-20", "2024-02-21"}, dates)

	rows, err := m.TradingByDate(f.db, "2024-02-20")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "000001", rows[0].StockCode)

	n, err := m.DeleteTradingByDate(f.db, "2024-02-20")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// 三个交易日的汇总, 窗口 2 只看最近两天
	for date, vol := range map[string]int64{"2024-02-14": 900, "2024-02-15": 100, "2024-02-16": 200} {
		require.NoError(t, m.ReplaceDerived(f.db, date, []*model.ConceptDailySummary{{Concept: "AI", TradeDate: date, TotalVolume: vol, StockCount: 1}}, nil, nil))
	}
	highs, err := m.PrecedingMax(f.db, "2024-02-19", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AI": 200}, highs)
	highs, err = m.PrecedingMax(f.db, "2024-02-19", 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AI": 900}, highs)
	highs, err = m.PrecedingMax(f.db, "2024-02-14", 3)
	require.NoError(t, err)
	assert.Empty(t, highs)
}

func TestImportStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := fileType("ttv", "ttv_")
	require.NoError(t, f.tables.EnsureTables(ctx, cfg))
	m := NewSchemaMapping(cfg, 100)

	last, err := m.LastImportAt(f.db)
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	recs := []*model.ImportRecord{
		{ID: "a", FileTypeKey: "ttv", TradeDate: "2024-02-19", Mode: "overwrite", RowCount: 5, ErrorCount: 1, Status: string(bizConsts.ImportSuccess), ImportedAt: base},
		{ID: "b", FileTypeKey: "ttv", TradeDate: "2024-02-19", Mode: "overwrite", RowCount: 5, ErrorCount: 0, Status: string(bizConsts.ImportSuccess), ImportedAt: base.Add(time.Minute)},
		{ID: "c", FileTypeKey: "ttv", TradeDate: "2024-02-20", Mode: "append", RowCount: 0, ErrorCount: 3, Status: string(bizConsts.ImportFailed), ImportedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range recs {
		require.NoError(t, m.CreateImportRecord(f.db, r))
	}

	stats, err := m.ImportStats(f.db)
	require.NoError(t, err)
	assert.Equal(t, model.ImportStats{Imports: 3, FailedImports: 1, DatesImported: 1, TotalRows: 10, TotalErrors: 4}, *stats)

	last, err = m.LastImportAt(f.db)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(base.Add(time.Minute)))

	list, err := m.ImportRecords(f.db, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
}

func TestStockConceptDao(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.concepts.ReplaceAll(ctx, map[string][]string{
		"600000": {"银行", "上证50", "银行"},
		"000001": {"银行"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := f.concepts.ConceptsByCodes(ctx, []string{"600000", "000001", "300750"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"600000": {"上证50", "银行"}, "000001": {"银行"}}, got)

	require.NoError(t, f.concepts.Upsert(ctx, []*model.StockConcept{{StockCode: "300750", Concept: "锂电池"}, {StockCode: "000001", Concept: "银行"}}))
	total, err := f.concepts.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)

	n, err = f.concepts.ReplaceAll(ctx, map[string][]string{"300750": {"锂电池"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	total, err = f.concepts.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestFileTypeDao(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.fileType.Create(ctx, fileType("ttv", "ttv_")))
	require.NoError(t, f.fileType.Create(ctx, fileType("eee", "eee_")))
	require.NoError(t, f.fileType.SetActive(ctx, "eee", false))

	active, err := f.fileType.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ttv", active[0].Key)
	assert.True(t, model.UniversalLayout().Equal(active[0].Layout()))

	all, err := f.fileType.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, f.fileType.UpdateMeta(ctx, "ttv", "TTV 数据", "desc"))
	got, err := f.fileType.Get(ctx, "ttv")
	require.NoError(t, err)
	assert.Equal(t, "TTV 数据", got.DisplayName)

	require.NoError(t, f.fileType.Delete(ctx, "ttv"))
	_, err = f.fileType.Get(ctx, "ttv")
	assert.True(t, errs.KindOf(err) == errs.KindNotFound)
}
