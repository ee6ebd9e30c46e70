package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// newRouter wires the HTTP surface: uploads, reports, exports and health.
func newRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/uploads/estoque", deps.UploadHandler.UploadWorkbook)
	mux.HandleFunc("POST /v1/uploads/csv", deps.UploadHandler.UploadCsv)
	mux.HandleFunc("GET /v1/uploads", deps.UploadHandler.ListJobs)

	mux.HandleFunc("GET /v1/reports/uf-costs", deps.ExportHandler.UfCostMap)
	mux.HandleFunc("GET /v1/exports/stock-entries.csv", deps.ExportHandler.StockEntriesCSV)
	mux.HandleFunc("GET /v1/exports/uf-costs.csv", deps.ExportHandler.UfCostsCSV)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	limiter := rate.NewLimiter(
		rate.Limit(deps.Config.Server.RateLimitPerSecond),
		deps.Config.Server.RateLimitBurst,
	)

	return c.Handler(rateLimit(limiter, countRequests(deps, mux)))
}

// rateLimit sheds load once the global request budget is exhausted.
func rateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Muitas requisições. Tente novamente em instantes.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func countRequests(deps *Dependencies, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		class := "2xx"
		switch {
		case rec.status >= 500:
			class = "5xx"
		case rec.status >= 400:
			class = "4xx"
		case rec.status >= 300:
			class = "3xx"
		}
		deps.Metrics.HTTPRequests.WithLabelValues(r.URL.Path, class).Inc()
	})
}
