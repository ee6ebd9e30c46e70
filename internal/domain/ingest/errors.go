package ingest

import (
	"fmt"
	"strings"
)

// The ingestion error taxonomy. Every type carries a short Portuguese
// message a business user can act on; callers match with errors.As.

// FormatError rejects a file by extension or MIME type before any parsing.
type FormatError struct {
	Filename string
	Detail   string
}

func (e *FormatError) Error() string {
	return e.Detail
}

// StructuralError reports a workbook with too few sheets or an empty sheet.
type StructuralError struct {
	Sheet  string // sheet name when the problem is sheet-local
	Detail string
}

func (e *StructuralError) Error() string {
	return e.Detail
}

// SchemaError reports every expected header missing from a sheet or CSV,
// optionally with close matches found in the file (wrong accents/case).
type SchemaError struct {
	Sheet       string
	Missing     []string
	Expected    []string
	Suggestions map[string]string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("Cabeçalhos ausentes na %s: %s. Esperados: %s",
		e.Sheet, strings.Join(e.Missing, ", "), strings.Join(e.Expected, ", "))
	if len(e.Suggestions) == 0 {
		return msg
	}
	hints := make([]string, 0, len(e.Suggestions))
	for _, m := range e.Missing {
		if got, ok := e.Suggestions[m]; ok {
			hints = append(hints, fmt.Sprintf("%q parece ser %q", got, m))
		}
	}
	if len(hints) == 0 {
		return msg
	}
	return msg + ". Verifique maiúsculas/minúsculas e acentos: " + strings.Join(hints, "; ")
}

// UnknownReportTypeError reports a CSV upload whose report type has no header
// dictionary and whose caller supplied no expected headers, so the file could
// not be validated against anything.
type UnknownReportTypeError struct {
	ReportType string
}

func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("Tipo de relatório desconhecido: %q. Informe os cabeçalhos esperados do arquivo.", e.ReportType)
}

// ParseError wraps a reader failure on corrupt workbook bytes.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Falha ao processar arquivo: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DelimiterError reports that neither comma nor semicolon split the CSV
// header into more than one field.
type DelimiterError struct{}

func (e *DelimiterError) Error() string {
	return "Não foi possível detectar o delimitador do CSV (vírgula ou ponto e vírgula). Verifique o formato do arquivo."
}

// RowShapeError reports a CSV data line whose field count does not match the
// header. The whole ingestion fails; no partial CSV results are produced.
type RowShapeError struct {
	Line      int // 1-based line number in the file
	Fields    int
	Headers   int
	Delimiter rune
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("Linha %d: número de campos (%d) não corresponde ao número de cabeçalhos (%d). Verifique a linha e o delimitador ('%c').",
		e.Line, e.Fields, e.Headers, e.Delimiter)
}

// EmptyFileError reports a CSV without at least a header and one data line.
type EmptyFileError struct{}

func (e *EmptyFileError) Error() string {
	return "O arquivo CSV deve conter pelo menos um cabeçalho e uma linha de dados."
}

// NoValidRowsError reports that no data rows survived mapping.
type NoValidRowsError struct{}

func (e *NoValidRowsError) Error() string {
	return "Nenhuma linha de dados válida encontrada no arquivo após o cabeçalho."
}

// PersistenceError wraps a storage failure for one destination collection so
// the caller can tell which write failed after both have settled.
type PersistenceError struct {
	Destination string // "Estoque" or "Custos"
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("Erro %s: %v", e.Destination, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
