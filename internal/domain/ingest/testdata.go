package ingest

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// brazilianUFs are the 26 state codes plus the federal district.
var brazilianUFs = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS",
	"MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC",
	"SP", "SE", "TO",
}

var statusSamples = []string{
	"Entregue FLASH",
	"Em rota INTERLOG",
	"Aguardando coleta",
	"Devolvido ao remetente",
	"Extraviado",
}

// TestDataGenerator produces realistic records for tests and fixtures.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed so fixtures are
// reproducible across runs.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// StockEntry generates one plausible normalized stock row.
func (g *TestDataGenerator) StockEntry() StockEntryRecord {
	contract := fmt.Sprintf("CT-%06d", g.faker.Number(1, 999999))
	status := g.faker.RandomString(statusSamples)
	date := g.faker.DateRange(
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	).UTC().Format("2006-01-02")

	return StockEntryRecord{
		Contract:      &contract,
		UF:            g.UF(),
		EntryDate:     date,
		StatusCapital: &status,
		Partner:       DerivePartner(status),
		ResendCount:   g.faker.Number(0, 5),
	}
}

// StockEntries generates n stock rows.
func (g *TestDataGenerator) StockEntries(n int) []StockEntryRecord {
	out := make([]StockEntryRecord, n)
	for i := range out {
		out[i] = g.StockEntry()
	}
	return out
}

// UfCost generates one plausible per-UF cost row.
func (g *TestDataGenerator) UfCost() UfCostRecord {
	return UfCostRecord{
		UF:          g.UF(),
		AverageCost: g.faker.Float64Range(10, 5000),
	}
}

// UF picks a random Brazilian state code.
func (g *TestDataGenerator) UF() string {
	return g.faker.RandomString(brazilianUFs)
}

// CurrencyCell renders an amount the way the cost sheet writes it,
// e.g. "R$ 1.234,56".
func (g *TestDataGenerator) CurrencyCell(reais float64) string {
	cents := int64(reais * 100)
	intPart := cents / 100
	frac := cents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("R$ %d,%02d", intPart, frac)
}
