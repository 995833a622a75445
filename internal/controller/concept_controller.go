package controller

import (
	"context"
	"net/http"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/service"
)

type ConceptController struct {
	*core.BaseComponent
	Resolver *service.ConceptResolver `infra:"dep:concept_resolver"`

	normalizer *service.CodeNormalizer
}

func NewConceptController(normalizer *service.CodeNormalizer) *ConceptController {
	return &ConceptController{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_CTRL_CONCEPT),
		normalizer:    normalizer,
	}
}

func (c *ConceptController) Start(ctx context.Context) error { return c.BaseComponent.Start(ctx) }
func (c *ConceptController) Stop(ctx context.Context) error  { return c.BaseComponent.Stop(ctx) }

type conceptMembership struct {
	Code     string   `json:"code"`
	Concepts []string `json:"concepts"`
}

// GET /api/v1/concepts?code=SH600000
func (c *ConceptController) Lookup(w http.ResponseWriter, r *http.Request) {
	code, _, err := c.normalizer.Normalize(r.URL.Query().Get("code"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := c.Resolver.Lookup(r.Context(), []string{code})
	if err != nil {
		writeErr(w, err)
		return
	}
	concepts := m[code]
	if concepts == nil {
		concepts = []string{}
	}
	writeOK(w, conceptMembership{Code: code, Concepts: concepts})
}

// POST /api/v1/concepts/refresh
func (c *ConceptController) Refresh(w http.ResponseWriter, r *http.Request) {
	n, err := c.Resolver.Refresh(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, map[string]int{"memberships": n})
}
