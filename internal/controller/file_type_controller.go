package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"gorm.io/datatypes"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
	"github.com/peakcary/stock-analysis-system-sub001/internal/model"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

type FileTypeController struct {
	*core.BaseComponent
	Registry *service.FileTypeRegistry `infra:"dep:file_type_registry"`
}

func NewFileTypeController() *FileTypeController {
	return &FileTypeController{BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_FILE_TYPE)}
}

func (c *FileTypeController) Start(ctx context.Context) error { return c.BaseComponent.Start(ctx) }
func (c *FileTypeController) Stop(ctx context.Context) error  { return c.BaseComponent.Stop(ctx) }

type createFileTypeRequest struct {
	Key          string             `json:"key"`
	TablePrefix  string             `json:"table_prefix"`
	DisplayName  string             `json:"display_name"`
	Description  string             `json:"description"`
	ColumnLayout model.ColumnLayout `json:"column_layout"`
}

// GET /api/v1/file-types?active=true
func (c *FileTypeController) List(w http.ResponseWriter, r *http.Request) {
	list, err := c.Registry.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, list)
}

// POST /api/v1/file-types
func (c *FileTypeController) Create(w http.ResponseWriter, r *http.Request) {
	var req createFileTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	cfg, err := c.Registry.Register(r.Context(), &model.FileTypeConfig{
		Key: req.Key, TablePrefix: req.TablePrefix, DisplayName: req.DisplayName,
		Description: req.Description, ColumnLayout: datatypes.NewJSONType(req.ColumnLayout),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse[any]{Data: cfg})
}

// GET /api/v1/file-types/summary
func (c *FileTypeController) Summary(w http.ResponseWriter, r *http.Request) {
	list, err := c.Registry.Summary(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, list)
}

// GET /api/v1/file-types/{key}
func (c *FileTypeController) Get(w http.ResponseWriter, r *http.Request, key string) {
	cfg, err := c.Registry.Get(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, cfg)
}

// PATCH /api/v1/file-types/{key}
func (c *FileTypeController) Update(w http.ResponseWriter, r *http.Request, key string) {
	var req service.FileTypeUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	cfg, err := c.Registry.Update(r.Context(), key, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, cfg)
}

// DELETE /api/v1/file-types/{key}
func (c *FileTypeController) Remove(w http.ResponseWriter, r *http.Request, key string) {
	if err := c.Registry.Remove(r.Context(), key); err != nil {
		// 表里还有数据
		if errs.KindOf(err) == errs.KindProvision {
			writeErrStatus(w, http.StatusConflict, err)
			return
		}
		writeErr(w, err)
		return
	}
	writeOK(w, "ok")
}

// POST /api/v1/file-types/{key}/deactivate
func (c *FileTypeController) Deactivate(w http.ResponseWriter, r *http.Request, key string) {
	if err := c.Registry.Deactivate(r.Context(), key); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, "ok")
}

// POST /api/v1/file-types/{key}/reactivate
func (c *FileTypeController) Reactivate(w http.ResponseWriter, r *http.Request, key string) {
	if err := c.Registry.Reactivate(r.Context(), key); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, "ok")
}

// GET /api/v1/file-types/{key}/health
func (c *FileTypeController) Health(w http.ResponseWriter, r *http.Request, key string) {
	report, err := c.Registry.CheckHealth(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, report)
}

// POST /api/v1/file-types/{key}/repair
func (c *FileTypeController) Repair(w http.ResponseWriter, r *http.Request, key string) {
	report, err := c.Registry.Repair(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, report)
}
