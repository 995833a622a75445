package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	promComp "github.com/peakcary/stock-analysis-system-sub001/infra/application/components/prometheus"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/telemetry"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/dao"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
)

const maxErrorSamples = 20

// ImportService 通用导入: 解析 -> 整日写入 -> 重算派生数据, 全部在一个事务内.
type ImportService struct {
	*core.BaseComponent
	GormComp  *gormdb.GormComponent         `infra:"dep:gorm_db"`
	Registry  *FileTypeRegistry             `infra:"dep:file_type_registry"`
	Locker    *ImportLocker                 `infra:"dep:import_locker"`
	Concepts  ConceptLookup                 `infra:"dep:concept_resolver"`
	Prom      *promComp.Component           `infra:"dep:prometheus?"`
	Telemetry *telemetry.TelemetryComponent `infra:"dep:telemetry?"`

	dsName     string
	cfg        bizConfig.ImportConfig
	normalizer *CodeNormalizer
	db         *gorm.DB
	tracer     trace.Tracer
	metrics    *importMetrics
	now        func() time.Time
}

func NewImportService(dsName string, cfg bizConfig.ImportConfig, normalizer *CodeNormalizer) *ImportService {
	return &ImportService{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_IMPORT, consts.COMPONENT_LOGGING),
		dsName:        dsName,
		cfg:           cfg,
		normalizer:    normalizer,
		now:           time.Now,
	}
}

func (s *ImportService) Start(ctx context.Context) error {
	db, err := s.GormComp.GetDB(s.dsName)
	if err != nil {
		return fmt.Errorf("get gorm db %s failed: %w", s.dsName, err)
	}
	s.db = db
	if s.Telemetry != nil {
		s.tracer = s.Telemetry.Tracer("import_service")
	} else {
		s.tracer = otel.Tracer("import_service")
	}
	s.metrics = newImportMetrics(s.Prom)
	return s.BaseComponent.Start(ctx)
}

func (s *ImportService) normalizeDate(op, key, raw string) (string, error) {
	date, err := ParseTradeDate(raw, s.cfg.DateLayouts)
	if err != nil {
		return "", errs.New(errs.KindInvalid, op, key, err)
	}
	return date, nil
}

// Import 导入一个交易日的文件.
//
// 坏行计入 ErrorCount 但不阻止其余行写入; 写入或重算失败时整个事务回滚,
// 该交易日保持导入前的状态. 返回的 ImportResult 在失败时也非空 (参数校验失败除外).
func (s *ImportService) Import(ctx context.Context, req *model.ImportRequest) (*model.ImportResult, error) {
	start := s.now()
	key := NormalizeKey(req.FileTypeKey)
	ctx, span := s.tracer.Start(ctx, "import.file", trace.WithAttributes(
		attribute.String("file_type", key),
		attribute.String("mode", string(req.Mode)),
	))
	defer span.End()

	if !req.Mode.Valid() {
		return nil, errs.Newf(errs.KindInvalid, "import", key, "unsupported import mode %q", req.Mode)
	}
	if req.Body == nil {
		return nil, errs.Newf(errs.KindInvalid, "import", key, "empty upload")
	}
	date, err := s.normalizeDate("import", key, req.TradeDate)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("trade_date", date))

	_, mapping, err := s.Registry.ResolveActive(ctx, key)
	if err != nil {
		return nil, err
	}
	release, err := s.Locker.TryLock(ctx, key, date)
	if err != nil {
		return nil, err
	}
	defer release()
	defer s.metrics.begin(key)()

	rec := &model.ImportRecord{
		ID: uuid.NewString(), FileTypeKey: key, Filename: req.Filename, TradeDate: date,
		Mode: string(req.Mode), Status: string(bizConsts.ImportPending), ImportedAt: start,
	}
	if err := mapping.CreateImportRecord(s.db.WithContext(ctx), rec); err != nil {
		return nil, errs.New(errs.KindWrite, "import", key, fmt.Errorf("create import record: %w", err))
	}
	result := &model.ImportResult{ImportID: rec.ID, FileTypeKey: key, TradeDate: date, Mode: req.Mode}
	logging.Info(ctx, "[import] started", zap.String("import_id", rec.ID), zap.String("file_type", key),
		zap.String("trade_date", date), zap.String("mode", string(req.Mode)), zap.String("filename", req.Filename))

	data, err := io.ReadAll(io.LimitReader(req.Body, s.cfg.MaxUploadBytes+1))
	if err == nil && int64(len(data)) > s.cfg.MaxUploadBytes {
		err = fmt.Errorf("upload exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	if err != nil {
		s.finish(ctx, mapping, rec, result, start, err)
		return result, errs.New(errs.KindInvalid, "import", key, err)
	}

	parsed, err := ParseTradingFile(bytes.NewReader(data), ParseOptions{
		TradeDate: date, DateLayouts: s.cfg.DateLayouts, Delimiter: s.cfg.Delimiter,
		Normalizer: s.normalizer, MaxErrorSamples: maxErrorSamples,
	})
	if err != nil {
		s.finish(ctx, mapping, rec, result, start, err)
		return result, errs.New(errs.KindParse, "import", key, err)
	}
	result.ErrorCount = parsed.ErrorCount
	result.Errors = parsed.Errors
	if len(parsed.Rows) == 0 {
		// 没有可写入的行: 记为失败, 不触碰已有数据
		s.finish(ctx, mapping, rec, result, start, errors.New("no valid rows"))
		return result, nil
	}

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	var (
		written, skipped int
		rc               *model.RecomputeResult
	)
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		rows := toTradingRecords(parsed.Rows, date)
		if req.Mode == bizConsts.ModeOverwrite {
			deleted, err := mapping.DeleteTradingByDate(tx, date)
			if err != nil {
				return errs.New(errs.KindWrite, "import", key, fmt.Errorf("clear %s: %w", date, err))
			}
			logging.Debugf(txCtx, "[import] %s overwrite cleared %d rows for %s", key, deleted, date)
		} else {
			codes := make([]string, len(rows))
			for i, r := range rows {
				codes[i] = r.StockCode
			}
			existing, err := mapping.ExistingCodes(tx, date, codes)
			if err != nil {
				return errs.New(errs.KindWrite, "import", key, fmt.Errorf("check existing rows: %w", err))
			}
			kept := rows[:0]
			for _, r := range rows {
				if existing[r.StockCode] {
					skipped++
					continue
				}
				kept = append(kept, r)
			}
			rows = kept
		}
		if err := mapping.InsertTrading(tx, rows); err != nil {
			return errs.New(errs.KindWrite, "import", key, fmt.Errorf("insert trading rows: %w", err))
		}
		written = len(rows)

		var err error
		rc, err = s.recompute(txCtx, tx, key, mapping, date)
		return err
	})
	s.metrics.observeRecompute(key, err)
	if err != nil {
		err = s.wrapTimeout(txCtx, err)
		s.finish(ctx, mapping, rec, result, start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	result.RowCount = written
	result.ErrorCount += skipped
	result.Concepts = rc.Concepts
	s.finish(ctx, mapping, rec, result, start, nil)
	return result, nil
}

// wrapTimeout 超时导致的失败同时保留 context.DeadlineExceeded 和原始错误类型.
func (s *ImportService) wrapTimeout(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("timed out after %s: %w: %w", s.cfg.Timeout, ctxErr, err)
}

// finish 用不可取消的 ctx 落库导入结果, 保证超时后仍能记录失败状态.
func (s *ImportService) finish(ctx context.Context, mapping *dao.SchemaMapping, rec *model.ImportRecord,
	result *model.ImportResult, start time.Time, cause error) {
	end := s.now()
	result.Duration = end.Sub(start)
	result.Status = bizConsts.ImportSuccess
	if cause != nil {
		result.Status = bizConsts.ImportFailed
		result.Message = clip(cause.Error(), 1024)
	}

	rec.RowCount, rec.ErrorCount = result.RowCount, result.ErrorCount
	rec.Status, rec.Message = string(result.Status), result.Message
	rec.FinishedAt = &end
	rec.DurationMs = result.Duration.Milliseconds()
	if err := mapping.FinishImportRecord(s.db.WithContext(context.WithoutCancel(ctx)), rec); err != nil {
		logging.Errorf(ctx, "[import] finish record %s failed: %v", rec.ID, err)
	}

	s.metrics.observeImport(&importOutcome{
		key: rec.FileTypeKey, mode: rec.Mode, status: rec.Status,
		written: result.RowCount, errors: result.ErrorCount, elapsed: result.Duration,
	})
	fields := []zap.Field{
		zap.String("import_id", rec.ID), zap.String("status", rec.Status),
		zap.Int("rows", result.RowCount), zap.Int("errors", result.ErrorCount),
		zap.Duration("elapsed", result.Duration),
	}
	if cause != nil {
		logging.Warn(ctx, "[import] failed: "+result.Message, fields...)
		return
	}
	logging.Info(ctx, "[import] finished", fields...)
}

// recompute 在事务内整日重算概念汇总, 排名和新高记录.
func (s *ImportService) recompute(ctx context.Context, tx *gorm.DB, key string,
	mapping *dao.SchemaMapping, date string) (*model.RecomputeResult, error) {
	fail := func(step string, err error) (*model.RecomputeResult, error) {
		return nil, errs.New(errs.KindRecompute, "recompute", key, fmt.Errorf("%s for %s: %w", step, date, err))
	}
	rows, err := mapping.TradingByDate(tx, date)
	if err != nil {
		return fail("load trading rows", err)
	}
	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.StockCode
	}
	membership, err := s.Concepts.Lookup(ctx, codes)
	if err != nil {
		return fail("resolve concepts", err)
	}
	prev, err := mapping.PrecedingMax(tx, date, s.cfg.NewHighWindow)
	if err != nil {
		return fail("load previous highs", err)
	}
	d := ComputeDerived(date, rows, membership, prev, s.cfg.NewHighWindow)
	if err := mapping.ReplaceDerived(tx, date, d.Summaries, d.Rankings, d.Highs); err != nil {
		return fail("write derived rows", err)
	}
	return &model.RecomputeResult{
		FileTypeKey: key, TradeDate: date, Stocks: len(rows),
		Concepts: len(d.Summaries), Rankings: len(d.Rankings), NewHighs: len(d.Highs),
	}, nil
}

// Recalculate 按现有交易数据重算某日派生数据, 不修改交易数据.
func (s *ImportService) Recalculate(ctx context.Context, key, tradeDate string) (*model.RecomputeResult, error) {
	key = NormalizeKey(key)
	date, err := s.normalizeDate("recalculate", key, tradeDate)
	if err != nil {
		return nil, err
	}
	_, mapping, err := s.Registry.ResolveActive(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.recalculateOne(ctx, key, mapping, date)
}

func (s *ImportService) recalculateOne(ctx context.Context, key string, mapping *dao.SchemaMapping, date string) (*model.RecomputeResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.recalculate", trace.WithAttributes(
		attribute.String("file_type", key), attribute.String("trade_date", date)))
	defer span.End()

	release, err := s.Locker.TryLock(ctx, key, date)
	if err != nil {
		return nil, err
	}
	defer release()

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	var rc *model.RecomputeResult
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var err error
		rc, err = s.recompute(txCtx, tx, key, mapping, date)
		return err
	})
	s.metrics.observeRecompute(key, err)
	if err != nil {
		err = s.wrapTimeout(txCtx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logging.Infof(ctx, "[import] recalculated %s %s: concepts=%d new_highs=%d", key, date, rc.Concepts, rc.NewHighs)
	return rc, nil
}

// RecalculateRange 依日期升序逐日重算, 使后续日期的新高判断看到更新后的汇总.
func (s *ImportService) RecalculateRange(ctx context.Context, key, from, to string) ([]*model.RecomputeResult, error) {
	key = NormalizeKey(key)
	fromDate, err := s.normalizeDate("recalculate", key, from)
	if err != nil {
		return nil, err
	}
	toDate, err := s.normalizeDate("recalculate", key, to)
	if err != nil {
		return nil, err
	}
	if fromDate > toDate {
		return nil, errs.Newf(errs.KindInvalid, "recalculate", key, "from %s is after to %s", fromDate, toDate)
	}
	_, mapping, err := s.Registry.ResolveActive(ctx, key)
	if err != nil {
		return nil, err
	}
	dates, err := mapping.TradeDatesBetween(s.db.WithContext(ctx), fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list trade dates: %w", err)
	}
	out := make([]*model.RecomputeResult, 0, len(dates))
	for _, d := range dates {
		rc, err := s.recalculateOne(ctx, key, mapping, d)
		if err != nil {
			return out, err
		}
		out = append(out, rc)
	}
	return out, nil
}

// Statistics 汇总某文件类型的导入历史; 停用的类型同样可查.
func (s *ImportService) Statistics(ctx context.Context, key string) (*model.ImportStatistics, error) {
	key = NormalizeKey(key)
	mapping, err := s.Registry.Mapping(ctx, key)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	st, err := mapping.ImportStats(db)
	if err != nil {
		return nil, fmt.Errorf("import stats for %s: %w", key, err)
	}
	last, err := mapping.LastImportAt(db)
	if err != nil {
		return nil, fmt.Errorf("last import for %s: %w", key, err)
	}
	return &model.ImportStatistics{
		FileTypeKey: key, DatesImported: st.DatesImported, TotalRows: st.TotalRows,
		TotalErrors: st.TotalErrors, Imports: st.Imports, FailedImports: st.FailedImports,
		LastImportAt: last,
	}, nil
}

func (s *ImportService) ListImports(ctx context.Context, key string, limit int) ([]model.ImportRecord, error) {
	key = NormalizeKey(key)
	mapping, err := s.Registry.Mapping(ctx, key)
	if err != nil {
		return nil, err
	}
	return mapping.ImportRecords(s.db.WithContext(ctx), limit)
}

func (s *ImportService) DayView(ctx context.Context, key, tradeDate string) (*model.DayView, error) {
	key = NormalizeKey(key)
	date, err := s.normalizeDate("day_view", key, tradeDate)
	if err != nil {
		return nil, err
	}
	mapping, err := s.Registry.Mapping(ctx, key)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	view := &model.DayView{FileTypeKey: key, TradeDate: date}
	if view.Summaries, err = mapping.SummariesByDate(db, date); err != nil {
		return nil, err
	}
	if view.Rankings, err = mapping.RankingsByDate(db, date); err != nil {
		return nil, err
	}
	if view.HighRecords, err = mapping.HighRecordsByDate(db, date); err != nil {
		return nil, err
	}
	return view, nil
}

func toTradingRecords(rows []ParsedRow, date string) []*model.TradingRecord {
	out := make([]*model.TradingRecord, len(rows))
	for i, r := range rows {
		out[i] = &model.TradingRecord{StockCode: r.Code, TradeDate: date, OriginalCode: r.Original, TradingVolume: r.Volume}
	}
	return out
}
