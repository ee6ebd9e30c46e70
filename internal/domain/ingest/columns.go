package ingest

// columnPair ties a display header (as it appears in exported files) to the
// database column it is stored under.
type columnPair struct {
	Display string
	DB      string
}

// logisticsColumns is the column dictionary for the logistics tracking CSV.
// Order matters: it is the canonical column order for exports.
var logisticsColumns = []columnPair{
	{"Total de Tentativas", "total_tentativas"},
	{"UF", "uf"},
	{"Último Status", "ultimo_status"},
	{"Qtde. Reenvios", "qtde_reenvios"},
	{"Tipo de Baixa", "tipo_baixa"},
	{"Conta", "conta"},
	{"Contrato", "contrato"},
	{"CPF", "cpf"},
	{"Esteira", "esteira"},
}

var columnsByReport = map[string][]columnPair{
	"logistics": logisticsColumns,
}

// ToDBColumn resolves a display header to its database column. A header
// outside the report's dictionary is returned unchanged, so unexpected extra
// columns are kept under the name the file gave them.
func ToDBColumn(display, reportType string) string {
	for _, p := range columnsByReport[reportType] {
		if p.Display == display {
			return p.DB
		}
	}
	return display
}

// ToDisplayHeader resolves a database column back to its display header for
// exports. Unknown columns are returned unchanged.
func ToDisplayHeader(db, reportType string) string {
	for _, p := range columnsByReport[reportType] {
		if p.DB == db {
			return p.Display
		}
	}
	return db
}

// DefaultExpectedHeaders returns the display headers a report's CSV must
// contain, in dictionary order.
func DefaultExpectedHeaders(reportType string) []string {
	pairs := columnsByReport[reportType]
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Display
	}
	return out
}
