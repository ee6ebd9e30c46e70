// Package metrics exposes the Prometheus instrumentation for the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UploadMetrics counts upload outcomes and ingested rows.
type UploadMetrics struct {
	registry *prometheus.Registry

	// UploadsTotal is labeled by kind (workbook, csv) and final status.
	UploadsTotal *prometheus.CounterVec
	// RowsIngested is labeled by destination (stock, cost, generic).
	RowsIngested *prometheus.CounterVec
	// HTTPRequests is labeled by route and status class.
	HTTPRequests *prometheus.CounterVec
}

// New creates the metric set on a private registry, so tests can create as
// many instances as they want without duplicate-registration panics.
func New() *UploadMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &UploadMetrics{
		registry: reg,
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "uploads_total",
			Help:      "Uploads processed, by kind and final status.",
		}, []string{"kind", "status"}),
		RowsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "rows_ingested_total",
			Help:      "Normalized rows written, by destination.",
		}, []string{"destination"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status class.",
		}, []string{"route", "class"}),
	}
}

// Handler serves the scrape endpoint for this metric set.
func (m *UploadMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
