package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

var ttvDay = []string{
	"SH600000\t2024-02-20\t1500000",
	"SZ000001\t2024-02-20\t2100000",
	"SH600519\t2024-02-20\t800000",
	"SZ000858\t2024-02-20\t950000",
	"SZ300750\t2024-02-20\t3000000",
}

var ttvConcepts = map[string][]string{
	"600000": {"银行"},
	"000001": {"银行", "深圳本地"},
	"600519": {"白酒"},
	"000858": {"白酒", "深圳本地"},
	"300750": {"新能源"},
}

// failingLookup 在 fail 置位后返回错误, 用于模拟重算中途失败.
type failingLookup struct {
	inner ConceptLookup
	fail  atomic.Bool
}

func (f *failingLookup) Lookup(ctx context.Context, codes []string) (map[string][]string, error) {
	if f.fail.Load() {
		return nil, errors.New("injected concept failure")
	}
	return f.inner.Lookup(ctx, codes)
}

type staticLookup map[string][]string

func (s staticLookup) Lookup(_ context.Context, codes []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, c := range codes {
		if l, ok := s[c]; ok {
			out[c] = l
		}
	}
	return out, nil
}

type blockingLookup struct{}

func (blockingLookup) Lookup(ctx context.Context, _ []string) (map[string][]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestImportExampleScenario(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)

	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	assert.Equal(t, bizConsts.ImportSuccess, res.Status)
	assert.Equal(t, 5, res.RowCount)
	assert.Equal(t, 0, res.ErrorCount)
	assert.Equal(t, 4, res.Concepts)
	assert.NotEmpty(t, res.ImportID)

	rows := e.trading(t, "ttv_trading", "2024-02-20")
	require.Len(t, rows, 5)
	assert.Equal(t, model.TradingRecord{StockCode: "000001", TradeDate: "2024-02-20", OriginalCode: "SZ000001", TradingVolume: 2100000}, rows[0])
	assert.Equal(t, model.TradingRecord{StockCode: "600000", TradeDate: "2024-02-20", OriginalCode: "SH600000", TradingVolume: 1500000}, rows[3])

	res, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	assert.Equal(t, 5, res.RowCount)
	assert.Len(t, e.trading(t, "ttv_trading", "2024-02-20"), 5)

	view, err := e.imports.DayView(context.Background(), "ttv", "20240220")
	require.NoError(t, err)
	summaries := map[string]model.ConceptDailySummary{}
	for _, s := range view.Summaries {
		summaries[s.Concept] = s
	}
	require.Len(t, summaries, 4)
	assert.Equal(t, int64(3600000), summaries["银行"].TotalVolume)
	assert.Equal(t, 2, summaries["银行"].StockCount)
	assert.True(t, decimal.NewFromInt(1800000).Equal(summaries["银行"].AverageVolume))
	assert.Equal(t, int64(3050000), summaries["深圳本地"].TotalVolume)
	assert.False(t, summaries["银行"].IsNewHigh)

	var bank []model.StockConceptRanking
	for _, r := range view.Rankings {
		if r.Concept == "银行" {
			bank = append(bank, r)
		}
	}
	require.Len(t, bank, 2)
	assert.Equal(t, "000001", bank[0].StockCode)
	assert.Equal(t, 1, bank[0].Rank)
	assert.Equal(t, "600000", bank[1].StockCode)
	assert.Equal(t, 2, bank[1].Rank)
}

func TestImportIsolatesFileTypes(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alpha", "a_")
	e.register(t, "beta", "b_")
	e.membership(t, ttvConcepts)

	_, err := e.importFile(t, "alpha", "2024-02-20", "overwrite", "SH600000\t2024-02-20\t100")
	require.NoError(t, err)
	assert.Empty(t, e.trading(t, "b_trading", "2024-02-20"))

	_, err = e.importFile(t, "beta", "2024-02-20", "overwrite", "SH600000\t2024-02-20\t999")
	require.NoError(t, err)

	a := e.trading(t, "a_trading", "2024-02-20")
	b := e.trading(t, "b_trading", "2024-02-20")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, int64(100), a[0].TradingVolume)
	assert.Equal(t, int64(999), b[0].TradingVolume)

	var n int64
	require.NoError(t, e.db.Table("a_import_record").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOverwriteIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)
	ctx := context.Background()

	snapshot := func() (*model.DayView, []model.TradingRecord) {
		v, err := e.imports.DayView(ctx, "ttv", "2024-02-20")
		require.NoError(t, err)
		for i := range v.Summaries {
			v.Summaries[i].CreatedAt = time.Time{}
		}
		for i := range v.Rankings {
			v.Rankings[i].CreatedAt = time.Time{}
		}
		return v, e.trading(t, "ttv_trading", "2024-02-20")
	}

	_, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	v1, rows1 := snapshot()
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	v2, rows2 := snapshot()

	assert.Equal(t, rows1, rows2)
	assert.Equal(t, v1.Summaries, v2.Summaries)
	assert.Equal(t, v1.Rankings, v2.Rankings)
}

func TestOverwriteReplacesWholeDay(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)

	_, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", "SH600000\t2024-02-20\t10")
	require.NoError(t, err)

	rows := e.trading(t, "ttv_trading", "2024-02-20")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0].TradingVolume)

	view, err := e.imports.DayView(context.Background(), "ttv", "2024-02-20")
	require.NoError(t, err)
	require.Len(t, view.Summaries, 1)
	assert.Equal(t, "银行", view.Summaries[0].Concept)
	assert.Len(t, view.Rankings, 1)
}

func TestAppendSkipsExistingRows(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)

	_, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", "SH600000\t2024-02-20\t100")
	require.NoError(t, err)

	res, err := e.importFile(t, "ttv", "2024-02-20", "append",
		"SH600000\t2024-02-20\t999",
		"SZ000001\t2024-02-20\t50",
	)
	require.NoError(t, err)
	assert.Equal(t, bizConsts.ImportSuccess, res.Status)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, 1, res.ErrorCount)

	rows := e.trading(t, "ttv_trading", "2024-02-20")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(50), rows[0].TradingVolume)
	assert.Equal(t, int64(100), rows[1].TradingVolume)

	view, err := e.imports.DayView(context.Background(), "ttv", "2024-02-20")
	require.NoError(t, err)
	for _, s := range view.Summaries {
		if s.Concept == "银行" {
			assert.Equal(t, int64(150), s.TotalVolume)
		}
	}
}

func TestRecomputeFailureRollsBack(t *testing.T) {
	lookup := &failingLookup{inner: staticLookup(ttvConcepts)}
	e := newEnv(t, withLookup(lookup))
	e.register(t, "ttv", "ttv_")

	_, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	before := e.trading(t, "ttv_trading", "2024-02-20")

	lookup.fail.Store(true)
	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", "SH600000\t2024-02-20\t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRecompute))
	require.NotNil(t, res)
	assert.Equal(t, bizConsts.ImportFailed, res.Status)
	assert.Contains(t, res.Message, "injected concept failure")

	assert.Equal(t, before, e.trading(t, "ttv_trading", "2024-02-20"))
	view, err := e.imports.DayView(context.Background(), "ttv", "2024-02-20")
	require.NoError(t, err)
	assert.Len(t, view.Summaries, 4)

	records, err := e.imports.ListImports(context.Background(), "ttv", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	statuses := []string{records[0].Status, records[1].Status}
	assert.ElementsMatch(t, []string{"success", "failed"}, statuses)
}

func TestImportTimeoutRollsBack(t *testing.T) {
	e := newEnv(t, withLookup(blockingLookup{}), withConfig(func(c *bizConfig.BizConfig) {
		c.Import.Timeout = 100 * time.Millisecond
	}))
	e.register(t, "ttv", "ttv_")

	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
	assert.Equal(t, bizConsts.ImportFailed, res.Status)
	assert.Empty(t, e.trading(t, "ttv_trading", "2024-02-20"))
	assert.Equal(t, 0, e.locker.Held())

	records, err := e.imports.ListImports(context.Background(), "ttv", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	assert.NotNil(t, records[0].FinishedAt)
}

func TestImportRejectsConcurrentSameDay(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	ctx := context.Background()

	release, err := e.locker.TryLock(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.Error(t, err)
	assert.Equal(t, errs.KindBusy, errs.KindOf(err))

	// 其他日期不受影响
	_, err = e.importFile(t, "ttv", "2024-02-21", "overwrite", "SH600000\t2024-02-21\t1")
	require.NoError(t, err)

	release()
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
}

func TestImportRequiresHealthyActiveType(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.importFile(t, "ghost", "2024-02-20", "overwrite", ttvDay...)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))

	e.register(t, "ttv", "ttv_")
	require.NoError(t, e.registry.Deactivate(ctx, "ttv"))
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))

	require.NoError(t, e.registry.Reactivate(ctx, "ttv"))
	require.NoError(t, e.db.Migrator().DropTable("ttv_concept_high_record"))
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))

	_, err = e.registry.Repair(ctx, "ttv")
	require.NoError(t, err)
	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
}

func TestImportValidatesArguments(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")

	_, err := e.importFile(t, "ttv", "2024-02-20", "merge", ttvDay...)
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
	_, err = e.importFile(t, "ttv", "20th Feb", "overwrite", ttvDay...)
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
	_, err = e.imports.Import(context.Background(), &model.ImportRequest{FileTypeKey: "ttv", TradeDate: "2024-02-20", Mode: bizConsts.ModeAppend})
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
}

func TestImportCountsBadRows(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)

	res, err := e.importFile(t, "ttv", "2024/02/20", "overwrite",
		"SH600000\t2024-02-20\t1500000",
		"SH600000\t2024-02-20\t7",
		"SZ000001\t2024-02-21\t10",
		"XX12\t2024-02-20\t10",
		"SZ000858\t2024-02-20\t-5",
		"SH600519\t2024-02-20",
		"",
		"数据来源:通达信",
	)
	require.NoError(t, err)
	assert.Equal(t, bizConsts.ImportSuccess, res.Status)
	assert.Equal(t, "2024-02-20", res.TradeDate)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, 5, res.ErrorCount)
	assert.Len(t, res.Errors, 5)
	assert.Equal(t, 2, res.Errors[0].Line)
}

func TestImportWithoutValidRowsFails(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")

	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", "garbage", "more garbage")
	require.NoError(t, err)
	assert.Equal(t, bizConsts.ImportFailed, res.Status)
	assert.Equal(t, "no valid rows", res.Message)
	assert.Equal(t, 2, res.ErrorCount)
}

func TestImportRejectsOversizedUpload(t *testing.T) {
	e := newEnv(t, withConfig(func(c *bizConfig.BizConfig) { c.Import.MaxUploadBytes = 16 }))
	e.register(t, "ttv", "ttv_")

	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
	assert.Equal(t, bizConsts.ImportFailed, res.Status)
}

func TestNewHighAcrossDays(t *testing.T) {
	e := newEnv(t, withConfig(func(c *bizConfig.BizConfig) { c.Import.NewHighWindow = 2 }))
	e.register(t, "ttv", "ttv_")
	e.membership(t, map[string][]string{"600000": {"银行"}})
	ctx := context.Background()

	for _, d := range []struct{ date, vol string }{
		{"2024-02-19", "100"}, {"2024-02-20", "300"}, {"2024-02-21", "200"}, {"2024-02-22", "250"},
	} {
		_, err := e.importFile(t, "ttv", d.date, "overwrite", "SH600000\t"+d.date+"\t"+d.vol)
		require.NoError(t, err)
	}

	expect := map[string]struct {
		high bool
		prev int64
	}{
		"2024-02-19": {false, 0},
		"2024-02-20": {true, 100},
		"2024-02-21": {false, 300},
		// 窗口为 2: 只看 02-20 和 02-21
		"2024-02-22": {false, 300},
	}
	for date, want := range expect {
		view, err := e.imports.DayView(ctx, "ttv", date)
		require.NoError(t, err)
		require.Len(t, view.Summaries, 1, date)
		assert.Equal(t, want.high, view.Summaries[0].IsNewHigh, date)
		assert.Equal(t, want.prev, view.Summaries[0].PreviousHigh, date)
		assert.Equal(t, want.high, len(view.HighRecords) == 1, date)
	}

	_, err := e.importFile(t, "ttv", "2024-02-23", "overwrite", "SH600000\t2024-02-23\t260")
	require.NoError(t, err)
	view, err := e.imports.DayView(ctx, "ttv", "2024-02-23")
	require.NoError(t, err)
	assert.True(t, view.Summaries[0].IsNewHigh)
	assert.Equal(t, int64(250), view.Summaries[0].PreviousHigh)
	require.Len(t, view.HighRecords, 1)
	assert.Equal(t, 2, view.HighRecords[0].WindowDays)
}

func TestRecalculateAfterMembershipChange(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)
	ctx := context.Background()

	_, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)

	e.membership(t, map[string][]string{"600000": {"沪股通"}, "600519": {"沪股通"}})
	rc, err := e.imports.Recalculate(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	assert.Equal(t, 5, rc.Stocks)
	assert.Equal(t, 1, rc.Concepts)
	assert.Equal(t, 2, rc.Rankings)

	view, err := e.imports.DayView(ctx, "ttv", "2024-02-20")
	require.NoError(t, err)
	require.Len(t, view.Summaries, 1)
	assert.Equal(t, int64(2300000), view.Summaries[0].TotalVolume)
	assert.Len(t, e.trading(t, "ttv_trading", "2024-02-20"), 5)
}

func TestRecalculateRange(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)
	ctx := context.Background()

	for _, d := range []string{"2024-02-19", "2024-02-21"} {
		_, err := e.importFile(t, "ttv", d, "overwrite", "SH600000\t"+d+"\t100")
		require.NoError(t, err)
	}
	out, err := e.imports.RecalculateRange(ctx, "ttv", "2024-02-18", "2024-02-28")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-02-19", out[0].TradeDate)
	assert.Equal(t, "2024-02-21", out[1].TradeDate)

	_, err = e.imports.RecalculateRange(ctx, "ttv", "2024-02-28", "2024-02-18")
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
}

func TestStatistics(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)
	ctx := context.Background()

	st, err := e.imports.Statistics(ctx, "ttv")
	require.NoError(t, err)
	assert.Zero(t, st.Imports)
	assert.Nil(t, st.LastImportAt)

	_, err = e.importFile(t, "ttv", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	_, err = e.importFile(t, "ttv", "2024-02-21", "overwrite", "SH600000\t2024-02-21\t1", "bad")
	require.NoError(t, err)
	_, err = e.importFile(t, "ttv", "2024-02-22", "overwrite", "bad")
	require.NoError(t, err)

	st, err = e.imports.Statistics(ctx, "ttv")
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Imports)
	assert.Equal(t, int64(1), st.FailedImports)
	assert.Equal(t, int64(2), st.DatesImported)
	assert.Equal(t, int64(6), st.TotalRows)
	assert.Equal(t, int64(2), st.TotalErrors)
	assert.NotNil(t, st.LastImportAt)

	_, err = e.imports.Statistics(ctx, "ghost")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestImportAcceptsBOMAndWhitespace(t *testing.T) {
	e := newEnv(t, withConfig(func(c *bizConfig.BizConfig) { c.Import.Delimiter = " " }))
	e.register(t, "ttv", "ttv_")

	body := "\ufeff" + strings.Join([]string{"600000.SH   2024-02-20  1,500", "sz000001 20240220 20"}, "\r\n")
	res, err := e.imports.Import(context.Background(), &model.ImportRequest{
		FileTypeKey: "ttv", TradeDate: "2024-02-20", Mode: bizConsts.ModeOverwrite, Body: strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	rows := e.trading(t, "ttv_trading", "2024-02-20")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1500), rows[1].TradingVolume)
}

func TestImportSkipsOverlongLine(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")

	lines := append(append([]string{}, ttvDay...), "SH600001\t2024-02-20\t"+strings.Repeat("9", 2<<20))
	res, err := e.importFile(t, "ttv", "2024-02-20", "overwrite", lines...)
	require.NoError(t, err)
	assert.Equal(t, bizConsts.ImportSuccess, res.Status)
	assert.Equal(t, 5, res.RowCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 6, res.Errors[0].Line)
	assert.Len(t, e.trading(t, "ttv_trading", "2024-02-20"), 5)
}

func TestImportDifferentDatesConcurrently(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ttv", "ttv_")
	e.membership(t, ttvConcepts)

	const days, perDay = 8, 500
	dates := make([]string, days)
	results := make([]*model.ImportResult, days)
	failures := make([]error, days)
	var wg sync.WaitGroup
	for i := range dates {
		dates[i] = fmt.Sprintf("2024-03-%02d", i+1)
		lines := make([]string, perDay)
		for j := range lines {
			lines[j] = fmt.Sprintf("SH%06d\t%s\t%d", 600000+j, dates[i], 1000+i*perDay+j)
		}
		wg.Add(1)
		go func(i int, lines []string) {
			defer wg.Done()
			results[i], failures[i] = e.importFile(t, "ttv", dates[i], "overwrite", lines...)
		}(i, lines)
	}
	wg.Wait()

	for i, d := range dates {
		require.NoError(t, failures[i], d)
		assert.Equal(t, bizConsts.ImportSuccess, results[i].Status, d)
		assert.Equal(t, perDay, results[i].RowCount, d)
		assert.Len(t, e.trading(t, "ttv_trading", d), perDay, d)
	}
	st, err := e.imports.Statistics(context.Background(), "ttv")
	require.NoError(t, err)
	assert.Equal(t, int64(days), st.Imports)
	assert.Equal(t, int64(0), st.FailedImports)
	assert.Equal(t, int64(days*perDay), st.TotalRows)
	assert.Equal(t, 0, e.locker.Held())
}

func TestFileTypeKeyIsCaseInsensitive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cfg, err := e.registry.Register(ctx, NewFileType(" TTV ", "ttv_", ""))
	require.NoError(t, err)
	assert.Equal(t, "ttv", cfg.Key)

	res, err := e.importFile(t, "TTV", "2024-02-20", "overwrite", ttvDay...)
	require.NoError(t, err)
	assert.Equal(t, "ttv", res.FileTypeKey)
	assert.Equal(t, 5, res.RowCount)

	st, err := e.imports.Statistics(ctx, "Ttv")
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Imports)

	got, err := e.registry.Get(ctx, "TTV")
	require.NoError(t, err)
	assert.Equal(t, "ttv", got.Key)

	require.NoError(t, e.registry.Deactivate(ctx, " TTV"))
	_, err = e.importFile(t, "ttv", "2024-02-21", "overwrite", "SH600000\t2024-02-21\t1")
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
}
