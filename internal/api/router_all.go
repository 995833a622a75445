package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_server"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/controller"
)

func init() {
	http_server.RegisterRoutes(Mount)
}

func resolve[T core.Component](c *core.Container, name string) (T, error) {
	var zero T
	comp, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := comp.(T)
	if !ok {
		return zero, fmt.Errorf("component %s has unexpected type %T", name, comp)
	}
	return typed, nil
}

// keyed 把 {key} 路径参数交给 handler
func keyed(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		h(w, req, chi.URLParam(req, "key"))
	}
}

// Mount 挂载全部业务路由.
func Mount(r chi.Router, c *core.Container) error {
	fileTypes, err := resolve[*controller.FileTypeController](c, bizConsts.COMP_CTRL_FILE_TYPE)
	if err != nil {
		return err
	}
	imports, err := resolve[*controller.ImportController](c, bizConsts.COMP_CTRL_IMPORT)
	if err != nil {
		return err
	}
	concepts, err := resolve[*controller.ConceptController](c, bizConsts.COMP_CTRL_CONCEPT)
	if err != nil {
		return err
	}

	r.Route("/api/v1/file-types", func(r chi.Router) {
		r.Get("/", fileTypes.List)
		r.Post("/", fileTypes.Create)
		r.Get("/summary", fileTypes.Summary)

		r.Get("/{key}", keyed(fileTypes.Get))
		r.Patch("/{key}", keyed(fileTypes.Update))
		r.Delete("/{key}", keyed(fileTypes.Remove))
		r.Post("/{key}/deactivate", keyed(fileTypes.Deactivate))
		r.Post("/{key}/reactivate", keyed(fileTypes.Reactivate))
		r.Get("/{key}/health", keyed(fileTypes.Health))
		r.Post("/{key}/repair", keyed(fileTypes.Repair))
	})

	r.Route("/api/v1/imports/{key}", func(r chi.Router) {
		r.Post("/", keyed(imports.Import))
		r.Post("/recalculate", keyed(imports.Recalculate))
		r.Post("/recalculate-range", keyed(imports.RecalculateRange))
		r.Get("/statistics", keyed(imports.Statistics))
		r.Get("/records", keyed(imports.Records))
		r.Get("/days/{date}", func(w http.ResponseWriter, req *http.Request) {
			imports.Day(w, req, chi.URLParam(req, "key"), chi.URLParam(req, "date"))
		})
	})

	r.Route("/api/v1/concepts", func(r chi.Router) {
		r.Get("/", concepts.Lookup)
		r.Post("/refresh", concepts.Refresh)
	})
	return nil
}
