// Package service orchestrates the upload flows: archive the raw file, parse
// it, persist the results and record the outcome in the job log.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
	"github.com/estoque-labs/estoque-api/internal/domain/upload/repository"
	"github.com/estoque-labs/estoque-api/pkg/metrics"
	"github.com/estoque-labs/estoque-api/pkg/storage"
)

// ErrUploadInFlight signals that another upload is still being processed.
// The dashboard submits one file at a time; a second concurrent submission is
// a double click, not a workload.
var ErrUploadInFlight = errors.New("já existe um upload em processamento. Aguarde a conclusão.")

var workbookExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// csvContentTypes are the MIME types legacy exporters attach to CSV files;
// Excel-produced downloads commonly arrive as vnd.ms-excel or text/plain.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
}

// acceptsCsv admits a file by extension or by declared MIME type, so a
// text/csv upload named "relatorio.txt" is still processed.
func acceptsCsv(filename, contentType string) bool {
	if strings.ToLower(filepath.Ext(filename)) == ".csv" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return csvContentTypes[strings.ToLower(mediaType)]
}

// UploadSummary reports what one upload produced. Counts are valid even when
// an error is returned alongside: a workbook persists its two destinations
// independently, so one side may have landed.
type UploadSummary struct {
	JobID       string                `json:"job_id"`
	StockRows   int                   `json:"stock_rows,omitempty"`
	CostRows    int                   `json:"cost_rows,omitempty"`
	GenericRows int                   `json:"generic_rows,omitempty"`
	UfCosts     []ingest.UfCostRecord `json:"uf_costs,omitempty"`
}

// UploadService drives workbook and CSV ingestion end to end.
type UploadService struct {
	repo    repository.UploadRepository
	files   storage.Storage
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.UploadMetrics

	inFlight atomic.Bool
}

// NewUploadService creates a new upload service
func NewUploadService(repo repository.UploadRepository, files storage.Storage, m *metrics.UploadMetrics, logger *slog.Logger) *UploadService {
	return &UploadService{
		repo:    repo,
		files:   files,
		logger:  logger,
		tracer:  otel.Tracer("upload"),
		metrics: m,
	}
}

// UploadWorkbook ingests a two-sheet stock/cost workbook. Both destinations
// are written concurrently and both outcomes are always collected: a failure
// on one side never cancels or hides the other.
func (s *UploadService) UploadWorkbook(ctx context.Context, filename string, mode ingest.Mode, r io.Reader) (*UploadSummary, error) {
	ctx, span := s.tracer.Start(ctx, "UploadWorkbook",
		trace.WithAttributes(
			attribute.String("upload.filename", filename),
			attribute.String("upload.mode", mode.String()),
		))
	defer span.End()

	if ext := strings.ToLower(filepath.Ext(filename)); !workbookExtensions[ext] {
		return nil, &ingest.FormatError{
			Filename: filename,
			Detail:   "Formato inválido. Envie um arquivo .xlsx ou .xls.",
		}
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer s.inFlight.Store(false)

	job, raw, err := s.openJob(ctx, filename, repository.JobKindWorkbook, mode.String(), r)
	if err != nil {
		return nil, err
	}

	result, err := ingest.NewWorkbookIngestor(mode, s.logger).Ingest(bytes.NewReader(raw))
	if err != nil {
		s.failJob(ctx, job, err)
		s.metrics.UploadsTotal.WithLabelValues("workbook", "failed").Inc()
		return nil, err
	}

	summary := &UploadSummary{JobID: job.ID.String()}

	// Both writes always run to completion so a partial import is reported
	// as exactly that, naming the side that failed.
	var (
		wg       sync.WaitGroup
		stockErr error
		costErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := s.repo.InsertStockEntries(ctx, result.StockEntries)
		summary.StockRows = n
		if err != nil {
			stockErr = &ingest.PersistenceError{Destination: "Estoque", Err: err}
		}
	}()
	go func() {
		defer wg.Done()
		n, err := s.repo.UpsertUfCosts(ctx, result.UfCosts)
		summary.CostRows = n
		if err != nil {
			costErr = &ingest.PersistenceError{Destination: "Custos", Err: err}
		}
	}()
	wg.Wait()

	job.StockRows = summary.StockRows
	job.CostRows = summary.CostRows

	if stockErr != nil || costErr != nil {
		job.Status = repository.JobStatusPartial
		if stockErr != nil && costErr != nil {
			job.Status = repository.JobStatusFailed
		}
		aggErr := aggregatePersistence(stockErr, costErr)
		msg := aggErr.Error()
		job.ErrorMessage = &msg
		s.closeJob(ctx, job)
		s.metrics.UploadsTotal.WithLabelValues("workbook", string(job.Status)).Inc()
		return summary, aggErr
	}

	job.Status = repository.JobStatusSucceeded
	s.closeJob(ctx, job)

	s.metrics.UploadsTotal.WithLabelValues("workbook", "succeeded").Inc()
	s.metrics.RowsIngested.WithLabelValues("stock").Add(float64(summary.StockRows))
	s.metrics.RowsIngested.WithLabelValues("cost").Add(float64(summary.CostRows))

	s.logger.Info("workbook processado",
		slog.String("arquivo", filename),
		slog.String("modo", mode.String()),
		slog.Int("estoque", summary.StockRows),
		slog.Int("custos", summary.CostRows))

	return summary, nil
}

// UploadCsv ingests a delimiter-separated report file into generic rows.
// expectedHeaders overrides the report type's header dictionary when non-nil.
func (s *UploadService) UploadCsv(ctx context.Context, filename, contentType, reportType string, expectedHeaders []string, r io.Reader) (*UploadSummary, error) {
	ctx, span := s.tracer.Start(ctx, "UploadCsv",
		trace.WithAttributes(
			attribute.String("upload.filename", filename),
			attribute.String("upload.report_type", reportType),
		))
	defer span.End()

	if !acceptsCsv(filename, contentType) {
		return nil, &ingest.FormatError{
			Filename: filename,
			Detail:   "Formato inválido. Envie um arquivo .csv.",
		}
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer s.inFlight.Store(false)

	job, raw, err := s.openJob(ctx, filename, repository.JobKindCsv, reportType, r)
	if err != nil {
		return nil, err
	}

	result, err := ingest.NewCsvIngestor(s.logger).Ingest(bytes.NewReader(raw), reportType, expectedHeaders)
	if err != nil {
		s.failJob(ctx, job, err)
		s.metrics.UploadsTotal.WithLabelValues("csv", "failed").Inc()
		return nil, err
	}

	n, err := s.repo.InsertGenericRows(ctx, reportType, result.Rows)
	if err != nil {
		persErr := &ingest.PersistenceError{Destination: "Relatório", Err: err}
		s.failJob(ctx, job, persErr)
		s.metrics.UploadsTotal.WithLabelValues("csv", "failed").Inc()
		return nil, persErr
	}

	job.GenericRows = n
	job.Status = repository.JobStatusSucceeded
	s.closeJob(ctx, job)

	s.metrics.UploadsTotal.WithLabelValues("csv", "succeeded").Inc()
	s.metrics.RowsIngested.WithLabelValues("generic").Add(float64(n))

	s.logger.Info("csv processado",
		slog.String("arquivo", filename),
		slog.String("tipo", reportType),
		slog.Int("linhas", n))

	return &UploadSummary{JobID: job.ID.String(), GenericRows: n}, nil
}

// ListJobs returns the most recent upload jobs for the audit view.
func (s *UploadService) ListJobs(ctx context.Context, limit int) ([]*repository.UploadJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListJobs(ctx, limit)
}

// PurgeOlderThan removes job log rows and archived files past the retention
// window. Run by the nightly scheduler.
func (s *UploadService) PurgeOlderThan(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	jobs, err := s.repo.PurgeJobsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge job log: %w", err)
	}
	files, err := s.files.PurgeBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge stored files: %w", err)
	}

	s.logger.Info("retenção aplicada",
		slog.Int64("jobs_removidos", jobs),
		slog.Int("arquivos_removidos", files))
	return nil
}

// openJob archives the raw upload and opens a job log row. The file is read
// fully up front: it is both archived and parsed, and multipart bodies cannot
// be read twice.
func (s *UploadService) openJob(ctx context.Context, filename string, kind repository.JobKind, mode string, r io.Reader) (*repository.UploadJob, []byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &ingest.ParseError{Err: err}
	}

	job := &repository.UploadJob{
		Filename: filename,
		Kind:     kind,
		Mode:     mode,
	}

	info, err := s.files.Save(ctx, filename, contentTypeFor(kind), bytes.NewReader(raw))
	if err != nil {
		// Archival is best effort; the import itself still proceeds.
		s.logger.Warn("falha ao arquivar upload", slog.String("arquivo", filename), slog.Any("err", err))
	} else {
		job.StorageID = &info.ID
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, nil, err
	}
	return job, raw, nil
}

func (s *UploadService) failJob(ctx context.Context, job *repository.UploadJob, cause error) {
	job.Status = repository.JobStatusFailed
	msg := cause.Error()
	job.ErrorMessage = &msg
	s.closeJob(ctx, job)
}

func (s *UploadService) closeJob(ctx context.Context, job *repository.UploadJob) {
	if err := s.repo.FinishJob(ctx, job); err != nil {
		s.logger.Error("falha ao registrar fim do job",
			slog.String("job_id", job.ID.String()),
			slog.Any("err", err))
	}
}

// aggregatePersistence joins the two settled workbook outcomes into one
// message, in stock-then-cost order.
func aggregatePersistence(stockErr, costErr error) error {
	if stockErr != nil && costErr != nil {
		return fmt.Errorf("%w | %w", stockErr, costErr)
	}
	if stockErr != nil {
		return stockErr
	}
	return costErr
}

func contentTypeFor(kind repository.JobKind) string {
	if kind == repository.JobKindCsv {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
