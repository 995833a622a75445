package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	promComp "github.com/peakcary/stock-analysis-system-sub001/infra/application/components/prometheus"
)

type importMetrics struct {
	imports    *prometheus.CounterVec
	rows       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	recomputes *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
}

func newImportMetrics(c *promComp.Component) *importMetrics {
	if c == nil {
		return nil
	}
	return &importMetrics{
		imports:    c.NewCounter("imports_total", "Import attempts by file type, mode and final status.", []string{"file_type", "mode", "status"}),
		rows:       c.NewCounter("import_rows_total", "Rows written or rejected by imports.", []string{"file_type", "kind"}),
		duration:   c.NewHistogram("import_duration_seconds", "Wall time of a single import.", []string{"file_type"}, prometheus.ExponentialBuckets(0.05, 2, 12)),
		recomputes: c.NewCounter("recomputes_total", "Derived-data recomputations by status.", []string{"file_type", "status"}),
		inFlight:   c.NewGauge("imports_in_flight", "Imports currently holding a (file_type, trade_date) lock.", []string{"file_type"}),
	}
}

// nil receiver 表示未启用 prometheus
func (m *importMetrics) observeImport(r *importOutcome) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(r.key, r.mode, r.status).Inc()
	m.rows.WithLabelValues(r.key, "written").Add(float64(r.written))
	m.rows.WithLabelValues(r.key, "error").Add(float64(r.errors))
	m.duration.WithLabelValues(r.key).Observe(r.elapsed.Seconds())
}

// begin 返回结束回调
func (m *importMetrics) begin(key string) func() {
	if m == nil {
		return func() {}
	}
	g := m.inFlight.WithLabelValues(key)
	g.Inc()
	return g.Dec
}

func (m *importMetrics) observeRecompute(key string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.recomputes.WithLabelValues(key, status).Inc()
}

type importOutcome struct {
	key, mode, status string
	written, errors   int
	elapsed           time.Duration
}
