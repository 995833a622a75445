package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type HTTPServerComponent struct {
	*core.BaseComponent
	cfg       *HTTPServerConfig
	container *core.Container
	router    chi.Router
	server    *http.Server
	extras    []RouteRegisterFunc
	addr      string
}

func NewHTTPServerComponent(cfg *HTTPServerConfig, c *core.Container) *HTTPServerComponent {
	return &HTTPServerComponent{
		BaseComponent: core.NewBaseComponent(
			consts.COMPONENT_HTTP_SERVER,
			consts.COMPONENT_LOGGING,
			consts.COMPONENT_TELEMETRY,
			consts.COMPONENT_PROMETHEUS,
		),
		cfg:       cfg,
		container: c,
	}
}

// AddRouteRegistrar 追加路由注册函数, 需在 Start 之前调用.
func (hc *HTTPServerComponent) AddRouteRegistrar(fn RouteRegisterFunc) error {
	if fn == nil {
		return nil
	}
	if hc.IsActive() {
		return fmt.Errorf("cannot register route: http_server already started")
	}
	hc.extras = append(hc.extras, fn)
	return nil
}

func (hc *HTTPServerComponent) Router() chi.Router { return hc.router }

// Addr 返回实际监听地址 (address 配置为 ":0" 时有用).
func (hc *HTTPServerComponent) Addr() string { return hc.addr }

// BuildRouter 构建完整路由但不监听, 供 Start 与 httptest 使用.
func (hc *HTTPServerComponent) BuildRouter() (chi.Router, error) {
	r := chi.NewRouter()
	hc.setupMiddlewares(r)
	if hc.cfg.EnableHealth {
		r.Get("/healthz", hc.healthHandler)
	}
	if hc.cfg.EnableMetrics {
		if err := hc.mountMetrics(r); err != nil {
			return nil, err
		}
	}
	for _, fn := range append(snapshot(), hc.extras...) {
		if err := fn(r, hc.container); err != nil {
			return nil, fmt.Errorf("route register failed: %w", err)
		}
	}
	return r, nil
}

func (hc *HTTPServerComponent) Start(ctx context.Context) error {
	if hc.cfg == nil || !hc.cfg.Enabled {
		return errors.New("http_server component enabled flag mismatch")
	}
	hc.cfg.applyDefaults()
	router, err := hc.BuildRouter()
	if err != nil {
		return err
	}
	hc.router = router

	ln, err := net.Listen("tcp", hc.cfg.Address)
	if err != nil {
		return fmt.Errorf("http_server listen %s: %w", hc.cfg.Address, err)
	}
	hc.addr = ln.Addr().String()
	hc.server = &http.Server{
		ReadTimeout:  hc.cfg.ReadTimeout,
		WriteTimeout: hc.cfg.WriteTimeout,
		IdleTimeout:  hc.cfg.IdleTimeout,
		Handler:      hc.router,
	}
	go func() {
		logging.Infof(ctx, "http_server listening on %s", hc.addr)
		if err := hc.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf(ctx, "http_server server error: %v", err)
		}
	}()
	return hc.BaseComponent.Start(ctx)
}

func (hc *HTTPServerComponent) Stop(ctx context.Context) error {
	defer func() { _ = hc.BaseComponent.Stop(ctx) }()
	if hc.server == nil {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, hc.cfg.GracefulTimeout)
	defer cancel()
	if err := hc.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("http_server graceful shutdown failed: %w", err)
	}
	logging.Infof(ctx, "http_server server stopped")
	return nil
}

func (hc *HTTPServerComponent) HealthCheck() error {
	if err := hc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if hc.server == nil {
		return fmt.Errorf("http_server server not started")
	}
	return nil
}

func (hc *HTTPServerComponent) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type metricsProvider interface {
	Handler() http.Handler
	Path() string
}

func (hc *HTTPServerComponent) mountMetrics(r chi.Router) error {
	if hc.container == nil || !hc.container.Has(consts.COMPONENT_PROMETHEUS) {
		return nil
	}
	comp, err := hc.container.Resolve(consts.COMPONENT_PROMETHEUS)
	if err != nil {
		return err
	}
	mp, ok := comp.(metricsProvider)
	if !ok {
		return fmt.Errorf("component %s does not expose a metrics handler", consts.COMPONENT_PROMETHEUS)
	}
	r.Method(http.MethodGet, mp.Path(), mp.Handler())
	return nil
}

func (hc *HTTPServerComponent) setupMiddlewares(r chi.Router) {
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(hc.cfg.RequestTimeout))

	serviceName := hc.cfg.ServiceName
	if serviceName == "" {
		serviceName = hc.cfg.Address
	}
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(accessLog)
}

// accessLog 记录状态码与耗时; 有 span 时回写 W3C traceparent.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := trace.SpanContextFromContext(r.Context())
		if sc.IsValid() {
			w.Header().Set("traceparent", fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), sc.TraceFlags()))
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Duration("dur", time.Since(start)),
		}
		if sc.IsValid() {
			fields = append(fields, zap.String("span_id", sc.SpanID().String()))
		}
		logging.Info(r.Context(), "http_access", fields...)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
