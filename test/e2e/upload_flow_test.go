// Package e2etest exercises the upload flows end to end: multipart request,
// parsing, persistence and read-back through the export surface.
package e2etest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	exportdomain "github.com/estoque-labs/estoque-api/internal/domain/export"
	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
	uploadhandler "github.com/estoque-labs/estoque-api/internal/domain/upload/handler"
	uploadrepo "github.com/estoque-labs/estoque-api/internal/domain/upload/repository"
	uploadservice "github.com/estoque-labs/estoque-api/internal/domain/upload/service"
	"github.com/estoque-labs/estoque-api/pkg/metrics"
	"github.com/estoque-labs/estoque-api/pkg/storage"
)

// memoryRepo is an in-memory UploadRepository good enough for flow tests:
// costs are keyed by UF so re-uploads overwrite, like the SQL upsert.
type memoryRepo struct {
	mu      sync.Mutex
	stock   []ingest.StockEntryRecord
	costs   map[string]float64
	generic []ingest.GenericCsvRow
	jobs    []*uploadrepo.UploadJob
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{costs: make(map[string]float64)}
}

func (m *memoryRepo) InsertStockEntries(_ context.Context, entries []ingest.StockEntryRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock = append(m.stock, entries...)
	return len(entries), nil
}

func (m *memoryRepo) UpsertUfCosts(_ context.Context, costs []ingest.UfCostRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range costs {
		m.costs[c.UF] = c.AverageCost
	}
	return len(costs), nil
}

func (m *memoryRepo) InsertGenericRows(_ context.Context, _ string, rows []ingest.GenericCsvRow) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generic = append(m.generic, rows...)
	return len(rows), nil
}

func (m *memoryRepo) ListStockEntries(context.Context) ([]ingest.StockEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ingest.StockEntryRecord{}, m.stock...), nil
}

func (m *memoryRepo) ListUfCosts(context.Context) ([]ingest.UfCostRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ingest.UfCostRecord, 0, len(m.costs))
	for uf, cost := range m.costs {
		out = append(out, ingest.UfCostRecord{UF: uf, AverageCost: cost})
	}
	return out, nil
}

func (m *memoryRepo) CreateJob(_ context.Context, job *uploadrepo.UploadJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uuid.New()
	job.Status = uploadrepo.JobStatusProcessing
	job.CreatedAt = time.Now()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memoryRepo) FinishJob(_ context.Context, job *uploadrepo.UploadJob) error {
	now := time.Now()
	job.FinishedAt = &now
	return nil
}

func (m *memoryRepo) ListJobs(_ context.Context, limit int) ([]*uploadrepo.UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	return m.jobs[:limit], nil
}

func (m *memoryRepo) PurgeJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.jobs[:0]
	var purged int64
	for _, j := range m.jobs {
		if j.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, j)
	}
	m.jobs = kept
	return purged, nil
}

type stack struct {
	repo    *memoryRepo
	service *uploadservice.UploadService
	uploads *uploadhandler.UploadHandler
	exports *exportdomain.ExportHandler
}

func newStack(t *testing.T) *stack {
	t.Helper()
	repo := newMemoryRepo()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := uploadservice.NewUploadService(repo, files, metrics.New(), logger)
	exportSvc := exportdomain.NewExportService(repo)

	return &stack{
		repo:    repo,
		service: svc,
		uploads: uploadhandler.NewUploadHandler(svc, 0, logger),
		exports: exportdomain.NewExportHandler(exportSvc, logger),
	}
}

func buildWorkbook(t *testing.T, stock, costs [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range stock {
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
	}
	_, err := f.NewSheet("Custos")
	require.NoError(t, err)
	for i, row := range costs {
		require.NoError(t, f.SetSheetRow("Custos", fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func postFile(t *testing.T, h http.HandlerFunc, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestWorkbookUploadFlow(t *testing.T) {
	s := newStack(t)

	workbook := buildWorkbook(t,
		[][]any{
			{"CONTRATO", "UF", "DATA", "STATUS CAPITAL", "REENVIO"},
			{"CT-1", "SP", "2024-03-07", "Entregue FLASH", 1},
			{"CT-2", "RJ", "2024-03-08", "rota interlog", 0},
			{"CT-3", "", "2024-03-08", "pendente", 0},
		},
		[][]any{
			{"UF", "MEDIA DE VALORES"},
			{"SP", "R$ 1.234,56"},
			{"RJ", "R$ 89,90"},
		})

	rec := postFile(t, s.uploads.UploadWorkbook, "/v1/uploads/estoque", "estoque.xlsx", workbook, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Insert mode drops the row without UF.
	require.Len(t, s.repo.stock, 2)
	assert.Equal(t, ingest.PartnerFlash, s.repo.stock[0].Partner)
	assert.Equal(t, ingest.PartnerInterlog, s.repo.stock[1].Partner)
	assert.Equal(t, 1234.56, s.repo.costs["SP"])

	// Re-upload with a new SP value overwrites it.
	workbook2 := buildWorkbook(t,
		[][]any{
			{"CONTRATO", "UF", "DATA", "STATUS CAPITAL", "REENVIO"},
			{"CT-9", "SP", "2024-04-01", "ok", 0},
		},
		[][]any{
			{"UF", "MEDIA DE VALORES"},
			{"SP", "R$ 2.000,00"},
		})
	rec = postFile(t, s.uploads.UploadWorkbook, "/v1/uploads/estoque", "estoque2.xlsx", workbook2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000.0, s.repo.costs["SP"])

	// The cost report reflects the overwrite, formatted for display.
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/uf-costs", nil)
	repRec := httptest.NewRecorder()
	s.exports.UfCostMap(repRec, req)
	require.Equal(t, http.StatusOK, repRec.Code)
	assert.Contains(t, repRec.Body.String(), `"R$ 2.000,00"`)

	// The stock export carries every surviving row under display headers.
	req = httptest.NewRequest(http.MethodGet, "/v1/exports/stock-entries.csv", nil)
	csvRec := httptest.NewRecorder()
	s.exports.StockEntriesCSV(csvRec, req)
	require.Equal(t, http.StatusOK, csvRec.Code)
	assert.Contains(t, csvRec.Header().Get("Content-Disposition"), "estoque_")
	assert.Contains(t, csvRec.Body.String(), "CONTRATO,UF,DATA,STATUS CAPITAL,PARCEIRO,REENVIO")
	assert.Contains(t, csvRec.Body.String(), "CT-1")

	// Every upload left a finished job behind.
	jobs, err := s.service.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, uploadrepo.JobStatusSucceeded, j.Status)
		assert.NotNil(t, j.FinishedAt)
	}
}

func TestUpsertModeFlow(t *testing.T) {
	s := newStack(t)

	workbook := buildWorkbook(t,
		[][]any{
			{"CONTRATO", "UF", "DATA", "STATUS CAPITAL", "REENVIO"},
			{"CT-1", "", "2024-03-07", "ok", 0},
			{"", "SP", "2024-03-07", "ok", 0},
		},
		[][]any{
			{"UF", "MEDIA DE VALORES"},
			{"SP", 10},
		})

	rec := postFile(t, s.uploads.UploadWorkbook, "/v1/uploads/estoque", "estoque.xlsx", workbook,
		map[string]string{"mode": "upsert"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Contract row survives with the UF placeholder; contract-less row drops.
	require.Len(t, s.repo.stock, 1)
	assert.Equal(t, ingest.UFNotAvailable, s.repo.stock[0].UF)
}

func TestCsvUploadFlow(t *testing.T) {
	s := newStack(t)

	csvBody := []byte("Total de Tentativas;UF;Último Status;Qtde. Reenvios;Tipo de Baixa;Conta;Contrato;CPF;Esteira\r\n" +
		"3;SP;Entregue;1;Normal;A1;C1;11122233344;Padrão\r\n" +
		"1;RJ;Devolvido;0;Manual;A2;C2;22233344455;Expressa\r\n")

	rec := postFile(t, s.uploads.UploadCsv, "/v1/uploads/csv", "relatorio.csv", csvBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, s.repo.generic, 2)
	assert.Equal(t, "Entregue", s.repo.generic[0]["ultimo_status"])
	assert.Equal(t, "Expressa", s.repo.generic[1]["esteira"])
}

func TestSchemaErrorSurfacesEveryMissingHeader(t *testing.T) {
	s := newStack(t)

	workbook := buildWorkbook(t,
		[][]any{
			{"CONTRATO", "DATA"},
			{"CT-1", "2024-03-07"},
		},
		[][]any{
			{"UF", "MEDIA DE VALORES"},
			{"SP", 10},
		})

	rec := postFile(t, s.uploads.UploadWorkbook, "/v1/uploads/estoque", "estoque.xlsx", workbook, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	msg := rec.Body.String()
	assert.Contains(t, msg, "UF")
	assert.Contains(t, msg, "STATUS CAPITAL")
	assert.Contains(t, msg, "REENVIO")
	assert.True(t, strings.Contains(msg, "Cabeçalhos ausentes"), msg)
}
