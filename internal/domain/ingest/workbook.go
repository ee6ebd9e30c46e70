package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet roles are positional: the first sheet carries stock entries,
// the second carries per-UF average costs, whatever their names.
const (
	stockSheetLabel = "aba 1 (Estoque)"
	costSheetLabel  = "aba 2 (Custos)"
)

// WorkbookResult holds everything extracted from one two-sheet workbook.
type WorkbookResult struct {
	StockEntries []StockEntryRecord
	UfCosts      []UfCostRecord
}

// WorkbookIngestor parses a stock/cost workbook into normalized records.
// Row-level defects are logged and skipped; file-level defects abort.
type WorkbookIngestor struct {
	mode       Mode
	logger     *slog.Logger
	classifier *PartnerClassifier
}

func NewWorkbookIngestor(mode Mode, logger *slog.Logger) *WorkbookIngestor {
	return &WorkbookIngestor{
		mode:       mode,
		logger:     logger,
		classifier: NewPartnerClassifier(),
	}
}

// Ingest reads a workbook and returns the normalized stock entries and UF
// costs. The two sheets are validated independently so a schema problem in
// one is reported even when the other is fine.
func (w *WorkbookIngestor) Ingest(r io.Reader) (*WorkbookResult, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, &StructuralError{
			Detail: "Arquivo precisa conter pelo menos 2 abas (Estoque e Custos).",
		}
	}

	stockRows, err := w.readSheet(f, sheets[0], stockSheetLabel)
	if err != nil {
		return nil, err
	}
	costRows, err := w.readSheet(f, sheets[1], costSheetLabel)
	if err != nil {
		return nil, err
	}

	stockIdx, err := ValidateHeaders(stockRows[0], StockSchema, stockSheetLabel)
	if err != nil {
		return nil, err
	}
	costIdx, err := ValidateHeaders(costRows[0], CostSchema, costSheetLabel)
	if err != nil {
		return nil, err
	}

	return &WorkbookResult{
		StockEntries: w.buildStockEntries(stockRows[1:], stockIdx),
		UfCosts:      w.buildUfCosts(costRows[1:], costIdx),
	}, nil
}

// readSheet loads a sheet as typed cells, dropping rows where every cell is
// empty. A sheet without at least a header and one data row is a structural
// failure.
func (w *WorkbookIngestor) readSheet(f *excelize.File, name, label string) ([][]RawCell, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	rows := make([][]RawCell, 0, len(raw))
	for _, line := range raw {
		typed := make([]RawCell, len(line))
		empty := true
		for i, cell := range line {
			typed[i] = typeCell(cell)
			if typed[i] != nil {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, typed)
	}

	if len(rows) < 2 {
		return nil, &StructuralError{
			Sheet:  name,
			Detail: fmt.Sprintf("Aba %q vazia ou só com cabeçalho.", label),
		}
	}
	return rows, nil
}

// typeCell converts a raw string cell into the RawCell domain: empty cells
// become nil and numeric text (including date serials) becomes float64, so
// downstream coercers see the same shapes a typed reader would produce.
func typeCell(cell string) RawCell {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return cell
}

func cellAt(row []RawCell, idx int) RawCell {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func (w *WorkbookIngestor) buildStockEntries(rows [][]RawCell, idx HeaderIndexMap) []StockEntryRecord {
	entries := make([]StockEntryRecord, 0, len(rows))
	for i, row := range rows {
		// Rows shorter than the schema are trailing-blank padding, not data.
		if len(row) < len(idx) {
			continue
		}
		uf := FormatUF(cellAt(row, idx["UF"]))
		date := ParseDate(cellAt(row, idx["DATA"]))
		contract := CellString(cellAt(row, idx["CONTRATO"]))

		switch w.mode {
		case ModeUpsert:
			if contract == "" || date == "" {
				w.logger.Warn("linha de estoque descartada",
					slog.Int("linha", i+2),
					slog.String("motivo", "contrato ou data ausente"),
					slog.String("modo", w.mode.String()))
				continue
			}
			if uf == "" {
				uf = UFNotAvailable
			}
		default:
			if uf == "" || date == "" {
				w.logger.Warn("linha de estoque descartada",
					slog.Int("linha", i+2),
					slog.String("motivo", "uf ou data ausente"),
					slog.String("modo", w.mode.String()))
				continue
			}
		}

		entry := StockEntryRecord{
			UF:          uf,
			EntryDate:   date,
			Partner:     w.classifier.Classify(cellAt(row, idx["STATUS CAPITAL"])),
			ResendCount: ParseCount(cellAt(row, idx["REENVIO"])),
		}
		if contract != "" {
			entry.Contract = &contract
		}
		if status := CellString(cellAt(row, idx["STATUS CAPITAL"])); status != "" {
			entry.StatusCapital = &status
		}
		entries = append(entries, entry)
	}
	return entries
}

func (w *WorkbookIngestor) buildUfCosts(rows [][]RawCell, idx HeaderIndexMap) []UfCostRecord {
	costs := make([]UfCostRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < len(idx) {
			continue
		}
		uf := FormatUF(cellAt(row, idx["UF"]))
		if uf == "" {
			w.logger.Warn("linha de custo descartada",
				slog.Int("linha", i+2),
				slog.String("motivo", "uf ausente"))
			continue
		}
		cost := ParseCurrency(cellAt(row, idx["MEDIA DE VALORES"]))
		if cost == nil {
			w.logger.Warn("linha de custo descartada",
				slog.Int("linha", i+2),
				slog.String("uf", uf),
				slog.String("motivo", "valor médio inválido"))
			continue
		}
		costs = append(costs, UfCostRecord{UF: uf, AverageCost: *cost})
	}
	return costs
}
