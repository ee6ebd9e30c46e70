package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
)

// PGXQuerier is the subset of pgxpool.Pool the repository needs. Tests
// substitute a pgxmock pool through it.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresUploadRepository implements UploadRepository using PostgreSQL
type PostgresUploadRepository struct {
	pool PGXQuerier
}

// NewPostgresUploadRepository creates a new PostgreSQL upload repository
func NewPostgresUploadRepository(pool PGXQuerier) *PostgresUploadRepository {
	return &PostgresUploadRepository{pool: pool}
}

// InsertStockEntries appends normalized stock rows in a single batch.
func (r *PostgresUploadRepository) InsertStockEntries(ctx context.Context, entries []ingest.StockEntryRecord) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO local_stock_entries (contract, uf, entry_date, status_capital, partner, resend_count)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.Contract, e.UF, e.EntryDate, e.StatusCapital, string(e.Partner), e.ResendCount)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to insert stock entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}

// UpsertUfCosts writes per-UF average costs; an existing UF has its value
// replaced, so the last file uploaded wins.
func (r *PostgresUploadRepository) UpsertUfCosts(ctx context.Context, costs []ingest.UfCostRecord) (int, error) {
	if len(costs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO uf_average_costs (uf, average_cost, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (uf) DO UPDATE
		SET average_cost = EXCLUDED.average_cost, updated_at = now()`

	batch := &pgx.Batch{}
	for _, c := range costs {
		batch.Queue(query, c.UF, c.AverageCost)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range costs {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert uf cost %d: %w", i, err)
		}
	}
	return len(costs), nil
}

// InsertGenericRows stores CSV report rows as JSONB documents keyed by report
// type, so new report layouts need no migration.
func (r *PostgresUploadRepository) InsertGenericRows(ctx context.Context, reportType string, rows []ingest.GenericCsvRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO generic_report_rows (report_type, payload)
		VALUES ($1, $2)`

	batch := &pgx.Batch{}
	for _, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal report row: %w", err)
		}
		batch.Queue(query, reportType, payload)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to insert report row %d: %w", i, err)
		}
	}
	return len(rows), nil
}

// ListStockEntries retrieves every stored stock entry, newest first.
func (r *PostgresUploadRepository) ListStockEntries(ctx context.Context) ([]ingest.StockEntryRecord, error) {
	query := `
		SELECT contract, uf, entry_date::text, status_capital, partner, resend_count
		FROM local_stock_entries
		ORDER BY entry_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock entries: %w", err)
	}
	defer rows.Close()

	var entries []ingest.StockEntryRecord
	for rows.Next() {
		var e ingest.StockEntryRecord
		var partner string
		if err := rows.Scan(&e.Contract, &e.UF, &e.EntryDate, &e.StatusCapital, &partner, &e.ResendCount); err != nil {
			return nil, fmt.Errorf("failed to scan stock entry: %w", err)
		}
		e.Partner = ingest.Partner(partner)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListUfCosts retrieves the current average cost per UF.
func (r *PostgresUploadRepository) ListUfCosts(ctx context.Context) ([]ingest.UfCostRecord, error) {
	query := `
		SELECT uf, average_cost
		FROM uf_average_costs
		ORDER BY uf ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list uf costs: %w", err)
	}
	defer rows.Close()

	var costs []ingest.UfCostRecord
	for rows.Next() {
		var c ingest.UfCostRecord
		if err := rows.Scan(&c.UF, &c.AverageCost); err != nil {
			return nil, fmt.Errorf("failed to scan uf cost: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// CreateJob inserts a new upload job in processing state.
func (r *PostgresUploadRepository) CreateJob(ctx context.Context, job *UploadJob) error {
	query := `
		INSERT INTO upload_jobs (id, filename, kind, mode, status, storage_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusProcessing
	}

	err := r.pool.QueryRow(ctx, query,
		job.ID,
		job.Filename,
		job.Kind,
		job.Mode,
		job.Status,
		job.StorageID,
	).Scan(&job.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create upload job: %w", err)
	}
	return nil
}

// FinishJob records the final status and row counts of a job.
func (r *PostgresUploadRepository) FinishJob(ctx context.Context, job *UploadJob) error {
	query := `
		UPDATE upload_jobs
		SET status = $2, stock_rows = $3, cost_rows = $4, generic_rows = $5,
		    error_message = $6, finished_at = now()
		WHERE id = $1
		RETURNING finished_at`

	err := r.pool.QueryRow(ctx, query,
		job.ID,
		job.Status,
		job.StockRows,
		job.CostRows,
		job.GenericRows,
		job.ErrorMessage,
	).Scan(&job.FinishedAt)

	if err != nil {
		return fmt.Errorf("failed to finish upload job: %w", err)
	}
	return nil
}

// ListJobs retrieves the most recent upload jobs.
func (r *PostgresUploadRepository) ListJobs(ctx context.Context, limit int) ([]*UploadJob, error) {
	query := `
		SELECT id, filename, kind, mode, status, stock_rows, cost_rows, generic_rows,
		       error_message, storage_id, created_at, finished_at
		FROM upload_jobs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*UploadJob
	for rows.Next() {
		job := &UploadJob{}
		err := rows.Scan(
			&job.ID,
			&job.Filename,
			&job.Kind,
			&job.Mode,
			&job.Status,
			&job.StockRows,
			&job.CostRows,
			&job.GenericRows,
			&job.ErrorMessage,
			&job.StorageID,
			&job.CreatedAt,
			&job.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// PurgeJobsBefore deletes job log rows older than the cutoff.
func (r *PostgresUploadRepository) PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM upload_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge upload jobs: %w", err)
	}
	return result.RowsAffected(), nil
}
