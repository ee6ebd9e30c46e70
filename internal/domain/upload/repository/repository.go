// Package repository provides database operations for uploads: normalized
// stock entries, per-UF average costs, generic report rows and the job log.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
)

// JobStatus tracks the lifecycle of one upload.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	// JobStatusPartial means one of the two workbook destinations persisted
	// and the other failed.
	JobStatusPartial JobStatus = "partial"
	JobStatusFailed  JobStatus = "failed"
)

// JobKind distinguishes the two upload flows.
type JobKind string

const (
	JobKindWorkbook JobKind = "workbook"
	JobKindCsv      JobKind = "csv"
)

// UploadJob is one row of the upload audit log.
type UploadJob struct {
	ID           uuid.UUID
	Filename     string
	Kind         JobKind
	Mode         string
	Status       JobStatus
	StockRows    int
	CostRows     int
	GenericRows  int
	ErrorMessage *string
	StorageID    *uuid.UUID
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// UploadRepository defines the persistence operations behind the upload flows
type UploadRepository interface {
	// Workbook destinations
	InsertStockEntries(ctx context.Context, entries []ingest.StockEntryRecord) (int, error)
	UpsertUfCosts(ctx context.Context, costs []ingest.UfCostRecord) (int, error)

	// Generic CSV destination
	InsertGenericRows(ctx context.Context, reportType string, rows []ingest.GenericCsvRow) (int, error)

	// Read-back for reports and exports
	ListStockEntries(ctx context.Context) ([]ingest.StockEntryRecord, error)
	ListUfCosts(ctx context.Context) ([]ingest.UfCostRecord, error)

	// Job log
	CreateJob(ctx context.Context, job *UploadJob) error
	FinishJob(ctx context.Context, job *UploadJob) error
	ListJobs(ctx context.Context, limit int) ([]*UploadJob, error)
	PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
