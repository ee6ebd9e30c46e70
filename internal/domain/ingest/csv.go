package ingest

import (
	"bytes"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const csvLabel = "planilha CSV"

// CsvResult holds the outcome of one generic CSV ingestion.
type CsvResult struct {
	ReportType string
	Columns    []string // resolved db columns, in file order
	Rows       []GenericCsvRow
}

// CsvIngestor parses delimiter-separated report files into generic rows keyed
// by database column. Unlike the workbook path, a malformed data line aborts
// the whole file: silently dropping lines from an operational report would
// skew the numbers it feeds.
type CsvIngestor struct {
	logger *slog.Logger
}

func NewCsvIngestor(logger *slog.Logger) *CsvIngestor {
	return &CsvIngestor{logger: logger}
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Ingest reads a CSV export and maps every data line onto database columns.
// The caller may supply the expected headers; when nil they default to the
// report type's dictionary, and a report type with no dictionary is rejected
// rather than validated against nothing.
func (c *CsvIngestor) Ingest(r io.Reader, reportType string, expected []string) (*CsvResult, error) {
	if len(expected) == 0 {
		expected = DefaultExpectedHeaders(reportType)
	}
	if len(expected) == 0 {
		return nil, &UnknownReportTypeError{ReportType: reportType}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	text := decodeCsvBytes(raw)

	lines := make([]string, 0, 64)
	for _, l := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil, &EmptyFileError{}
	}

	delim, err := detectDelimiter(lines[0])
	if err != nil {
		return nil, err
	}

	headers := splitLine(lines[0], delim)
	headerCells := make([]RawCell, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if _, err := ValidateHeaders(headerCells, expected, csvLabel); err != nil {
		return nil, err
	}

	columns := make([]string, len(headers))
	for i, h := range headers {
		columns[i] = ToDBColumn(h, reportType)
	}

	rows := make([]GenericCsvRow, 0, len(lines)-1)
	for i, line := range lines[1:] {
		fields := splitLine(line, delim)
		if len(fields) != len(headers) {
			return nil, &RowShapeError{
				Line:      i + 2,
				Fields:    len(fields),
				Headers:   len(headers),
				Delimiter: delim,
			}
		}
		// A line of bare delimiters has the right shape but no data.
		if allEmpty(fields) {
			continue
		}
		row := make(GenericCsvRow, len(columns))
		for j, col := range columns {
			row[col] = fields[j]
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &NoValidRowsError{}
	}

	c.logger.Info("csv processado",
		slog.String("tipo", reportType),
		slog.Int("colunas", len(columns)),
		slog.Int("linhas", len(rows)))

	return &CsvResult{ReportType: reportType, Columns: columns, Rows: rows}, nil
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// detectDelimiter tries comma first and falls back to semicolon, the two
// shapes these exports actually arrive in.
func detectDelimiter(header string) (rune, error) {
	if strings.Contains(header, ",") {
		return ',', nil
	}
	if strings.Contains(header, ";") {
		return ';', nil
	}
	return 0, &DelimiterError{}
}

// splitLine is a plain positional split: these exports never quote fields,
// and a full CSV grammar would mask the field-count mismatches we want to
// surface as errors.
func splitLine(line string, delim rune) []string {
	parts := strings.Split(line, string(delim))
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(p, "\ufeff"))
	}
	return parts
}

// decodeCsvBytes strips a UTF-8 BOM and transparently decodes Latin-1 files,
// which legacy exporters on Windows still produce.
func decodeCsvBytes(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
