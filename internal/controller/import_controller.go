package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

// multipart 表单在内存中保留的上限, 超出部分落临时文件
const formMemory = 32 << 20

type ImportController struct {
	*core.BaseComponent
	Svc *service.ImportService `infra:"dep:import_service"`

	maxUpload int64
}

func NewImportController(maxUpload int64) *ImportController {
	return &ImportController{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_IMPORT),
		maxUpload:     maxUpload,
	}
}

func (c *ImportController) Start(ctx context.Context) error { return c.BaseComponent.Start(ctx) }
func (c *ImportController) Stop(ctx context.Context) error  { return c.BaseComponent.Stop(ctx) }

// POST /api/v1/imports/{key}  multipart: file, trade_date, mode
func (c *ImportController) Import(w http.ResponseWriter, r *http.Request, key string) {
	if c.maxUpload > 0 {
		// 预留表单字段和 multipart 边界的开销
		r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload+1<<20)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		if statusOf(err) == http.StatusRequestEntityTooLarge {
			writeErr(w, err)
			return
		}
		badRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing form file \"file\"")
		return
	}
	defer file.Close()

	mode := bizConsts.ImportMode(r.FormValue("mode"))
	if mode == "" {
		mode = bizConsts.ModeOverwrite
	}
	res, err := c.Svc.Import(r.Context(), &model.ImportRequest{
		FileTypeKey: key, TradeDate: r.FormValue("trade_date"), Mode: mode,
		Filename: header.Filename, Body: file,
	})
	if err != nil {
		if res != nil {
			writeJSON(w, statusOf(err), struct {
				apiError
				Data *model.ImportResult `json:"data"`
			}{apiError{Error: err.Error(), Kind: string(errs.KindOf(err))}, res})
			return
		}
		writeErr(w, err)
		return
	}
	writeOK(w, res)
}

type recalculateRequest struct {
	TradeDate string `json:"trade_date"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// POST /api/v1/imports/{key}/recalculate  {"trade_date": "..."}
func (c *ImportController) Recalculate(w http.ResponseWriter, r *http.Request, key string) {
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	rc, err := c.Svc.Recalculate(r.Context(), key, req.TradeDate)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, rc)
}

// POST /api/v1/imports/{key}/recalculate-range  {"from": "...", "to": "..."}
func (c *ImportController) RecalculateRange(w http.ResponseWriter, r *http.Request, key string) {
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	out, err := c.Svc.RecalculateRange(r.Context(), key, req.From, req.To)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, out)
}

// GET /api/v1/imports/{key}/statistics
func (c *ImportController) Statistics(w http.ResponseWriter, r *http.Request, key string) {
	st, err := c.Svc.Statistics(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, st)
}

// GET /api/v1/imports/{key}/records?limit=50
func (c *ImportController) Records(w http.ResponseWriter, r *http.Request, key string) {
	list, err := c.Svc.ListImports(r.Context(), key, parseLimit(r, 50))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, list)
}

// GET /api/v1/imports/{key}/days/{date}
func (c *ImportController) Day(w http.ResponseWriter, r *http.Request, key, date string) {
	view, err := c.Svc.DayView(r.Context(), key, date)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, view)
}
