// Package ingest implements the spreadsheet ingestion and normalization
// pipeline: header canonicalization, cell coercion, schema validation and
// record shaping for stock/cost workbooks and generic CSV reports.
package ingest

// RawCell is an untyped value read from a sheet or CSV cell. It is nil when
// the cell is absent, a float64 for numeric cells (including date serials),
// a time.Time when the reader produced a typed date, or a string otherwise.
type RawCell = any

// Partner classifies the logistics fulfillment partner derived from the
// free-text status-capital field.
type Partner string

const (
	PartnerFlash        Partner = "FLASH"
	PartnerInterlog     Partner = "INTERLOG"
	PartnerOutro        Partner = "OUTRO"
	PartnerDesconhecido Partner = "DESCONHECIDO"
)

// Mode selects the row-acceptance policy for the stock sheet. The two
// policies come from the two upload flows the dashboard supports: a full
// initial load (insert) and an incremental reconciliation (upsert).
type Mode int

const (
	// ModeInsert keeps a row only when it carries a UF and a valid date.
	ModeInsert Mode = iota
	// ModeUpsert keeps a row when it carries a contract and a valid date;
	// a missing UF is replaced with the UFNotAvailable sentinel.
	ModeUpsert
)

func (m Mode) String() string {
	if m == ModeUpsert {
		return "upsert"
	}
	return "insert"
}

// UFNotAvailable is the sentinel stored when an upsert-mode row has no UF.
const UFNotAvailable = "ND"

// StockEntryRecord is a normalized row from the stock sheet. The csv tags
// carry the display headers used by the report export.
type StockEntryRecord struct {
	Contract      *string `json:"contract" csv:"CONTRATO"`
	UF            string  `json:"uf" csv:"UF"`
	EntryDate     string  `json:"entry_date" csv:"DATA"`
	StatusCapital *string `json:"status_capital" csv:"STATUS CAPITAL"`
	Partner       Partner `json:"partner" csv:"PARCEIRO"`
	ResendCount   int     `json:"resend_count" csv:"REENVIO"`
}

// UfCostRecord is a normalized row from the cost sheet. Duplicate UFs within
// one file are resolved downstream by the upsert key (last value wins).
type UfCostRecord struct {
	UF          string  `json:"uf"`
	AverageCost float64 `json:"average_cost"`
}

// GenericCsvRow maps resolved database column names to raw string values,
// one per non-empty CSV data line.
type GenericCsvRow map[string]string
