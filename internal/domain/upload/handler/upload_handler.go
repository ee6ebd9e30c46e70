// Package handler exposes the upload flows over HTTP multipart endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
	"github.com/estoque-labs/estoque-api/internal/domain/upload/service"
)

const defaultMaxUploadBytes = 32 << 20

// UploadHandler serves the multipart upload endpoints and the job log view.
type UploadHandler struct {
	service  *service.UploadService
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler creates a new upload handler. maxBytes caps the request
// body; zero or negative selects the default.
func NewUploadHandler(svc *service.UploadService, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadHandler{service: svc, maxBytes: maxBytes, logger: logger}
}

// UploadWorkbook handles POST /v1/uploads/estoque. Form fields: "file" (the
// workbook) and optional "mode" ("insert" or "upsert", default insert).
func (h *UploadHandler) UploadWorkbook(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	mode, err := parseMode(r.FormValue("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.UploadWorkbook(r.Context(), header.Filename, mode, file)
	if err != nil {
		h.writeUploadError(w, r, err, summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// UploadCsv handles POST /v1/uploads/csv. Form fields: "file", optional
// "report_type" (default "logistics") and optional "expected_headers", a
// comma-separated header list overriding the report type's dictionary.
func (h *UploadHandler) UploadCsv(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	reportType := strings.TrimSpace(r.FormValue("report_type"))
	if reportType == "" {
		reportType = "logistics"
	}
	expected := splitHeaderList(r.FormValue("expected_headers"))
	contentType := header.Header.Get("Content-Type")

	summary, err := h.service.UploadCsv(r.Context(), header.Filename, contentType, reportType, expected, file)
	if err != nil {
		h.writeUploadError(w, r, err, summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListJobs handles GET /v1/uploads.
func (h *UploadHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	jobs, err := h.service.ListJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error("falha ao listar uploads", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Erro ao listar uploads.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *UploadHandler) readFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Arquivo excede o tamanho máximo permitido.")
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "Formulário inválido: envie o arquivo no campo 'file'.")
		return nil, nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Nenhum arquivo enviado no campo 'file'.")
		return nil, nil, false
	}
	return f, header, true
}

// splitHeaderList parses a comma-separated header list form value.
func splitHeaderList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// writeUploadError maps the ingestion error taxonomy onto status codes. The
// summary, when present, is returned alongside so the caller can see what did
// land before the failure.
func (h *UploadHandler) writeUploadError(w http.ResponseWriter, r *http.Request, err error, summary *service.UploadSummary) {
	status := http.StatusInternalServerError

	var (
		formatErr  *ingest.FormatError
		structErr  *ingest.StructuralError
		schemaErr  *ingest.SchemaError
		parseErr   *ingest.ParseError
		delimErr   *ingest.DelimiterError
		shapeErr   *ingest.RowShapeError
		emptyErr   *ingest.EmptyFileError
		noRowsErr  *ingest.NoValidRowsError
		unknownErr *ingest.UnknownReportTypeError
	)
	switch {
	case errors.Is(err, service.ErrUploadInFlight):
		status = http.StatusConflict
	case errors.As(err, &formatErr),
		errors.As(err, &structErr),
		errors.As(err, &schemaErr),
		errors.As(err, &parseErr),
		errors.As(err, &delimErr),
		errors.As(err, &shapeErr),
		errors.As(err, &emptyErr),
		errors.As(err, &noRowsErr),
		errors.As(err, &unknownErr):
		status = http.StatusUnprocessableEntity
	}

	h.logger.Warn("upload falhou",
		slog.String("rota", r.URL.Path),
		slog.Int("status", status),
		slog.String("err", err.Error()))

	body := map[string]any{"error": err.Error()}
	if summary != nil {
		body["summary"] = summary
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseMode(raw string) (ingest.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "insert":
		return ingest.ModeInsert, nil
	case "upsert":
		return ingest.ModeUpsert, nil
	default:
		return 0, errors.New("Modo inválido: use 'insert' ou 'upsert'.")
	}
}
