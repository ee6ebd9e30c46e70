package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ExportHandler serves the CSV downloads and the cost report.
type ExportHandler struct {
	service *ExportService
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{service: service, logger: logger}
}

// StockEntriesCSV handles GET /v1/exports/stock-entries.csv.
func (h *ExportHandler) StockEntriesCSV(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.StockEntriesCSV(r.Context())
	if err != nil {
		h.fail(w, "estoque", err)
		return
	}
	writeCSV(w, "estoque", body)
}

// UfCostsCSV handles GET /v1/exports/uf-costs.csv.
func (h *ExportHandler) UfCostsCSV(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.UfCostsCSV(r.Context())
	if err != nil {
		h.fail(w, "custos", err)
		return
	}
	writeCSV(w, "custos", body)
}

// UfCostMap handles GET /v1/reports/uf-costs.
func (h *ExportHandler) UfCostMap(w http.ResponseWriter, r *http.Request) {
	costs, err := h.service.UfCostMap(r.Context())
	if err != nil {
		h.fail(w, "custos", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"uf_costs": costs})
}

func (h *ExportHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("falha ao gerar exportação", slog.String("tipo", what), slog.Any("err", err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Erro ao gerar exportação."})
}

func writeCSV(w http.ResponseWriter, name string, body []byte) {
	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
