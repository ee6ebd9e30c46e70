// Package export produces the dashboard read-back views: CSV downloads of the
// stored data and the per-UF cost map.
package export

import (
	"context"
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/estoque-labs/estoque-api/internal/domain/ingest"
	"github.com/estoque-labs/estoque-api/pkg/money"
)

// utf8BOM prefixes downloads so Excel opens accented headers correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DataReader is the slice of the upload repository the export layer needs.
type DataReader interface {
	ListStockEntries(ctx context.Context) ([]ingest.StockEntryRecord, error)
	ListUfCosts(ctx context.Context) ([]ingest.UfCostRecord, error)
}

// UfCostView is one entry of the cost map, with the value pre-formatted for
// display.
type UfCostView struct {
	AverageCost float64 `json:"average_cost"`
	Display     string  `json:"display"`
}

// ExportService renders stored data as CSV files and report payloads.
type ExportService struct {
	reader DataReader
}

// NewExportService creates a new export service
func NewExportService(reader DataReader) *ExportService {
	return &ExportService{reader: reader}
}

// StockEntriesCSV renders every stored stock entry under its display headers.
func (s *ExportService) StockEntriesCSV(ctx context.Context) ([]byte, error) {
	entries, err := s.reader.ListStockEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock entries: %w", err)
	}

	body, err := gocsv.MarshalBytes(&entries)
	if err != nil {
		return nil, fmt.Errorf("failed to render stock csv: %w", err)
	}
	return append(append([]byte{}, utf8BOM...), body...), nil
}

// ufCostRow is the CSV shape of one cost line, money formatted as the source
// sheets write it.
type ufCostRow struct {
	UF          string `csv:"UF"`
	AverageCost string `csv:"MEDIA DE VALORES"`
}

// UfCostsCSV renders the current cost table with BRL-formatted values.
func (s *ExportService) UfCostsCSV(ctx context.Context) ([]byte, error) {
	costs, err := s.reader.ListUfCosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read uf costs: %w", err)
	}

	rows := make([]ufCostRow, len(costs))
	for i, c := range costs {
		rows[i] = ufCostRow{UF: c.UF, AverageCost: money.FormatBRL(c.AverageCost)}
	}

	body, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to render cost csv: %w", err)
	}
	return append(append([]byte{}, utf8BOM...), body...), nil
}

// UfCostMap returns the cost table keyed by UF for the dashboard.
func (s *ExportService) UfCostMap(ctx context.Context) (map[string]UfCostView, error) {
	costs, err := s.reader.ListUfCosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read uf costs: %w", err)
	}

	out := make(map[string]UfCostView, len(costs))
	for _, c := range costs {
		out[c.UF] = UfCostView{
			AverageCost: c.AverageCost,
			Display:     money.FormatBRL(c.AverageCost),
		}
	}
	return out, nil
}
