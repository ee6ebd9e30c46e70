// Package money handles the monetary values of the dashboard. Everything is
// BRL: amounts are carried as integer centavos and formatted the way the
// spreadsheets and reports write them ("R$ 1.234,56").
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the only currency this API deals in.
const BRL = money.BRL

// Money represents a BRL value in centavos. It wraps go-money for safe
// arithmetic and shopspring/decimal for precise conversion.
type Money struct {
	m *money.Money
}

// New creates a Money value from centavos.
func New(centavos int64) *Money {
	return &Money{m: money.New(centavos, BRL)}
}

// NewFromFloat creates Money from a float amount in reais, rounding to the
// nearest centavo through decimal so 1234.56 never lands on 123455.
func NewFromFloat(reais float64) *Money {
	cents := decimal.NewFromFloat(reais).Mul(decimal.New(1, 2)).Round(0).IntPart()
	return New(cents)
}

// Amount returns the value in centavos.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// ToDecimal returns the value in reais as an exact decimal.
func (m *Money) ToDecimal() decimal.Decimal {
	return decimal.New(m.Amount(), -2)
}

// Add sums two BRL values.
func (m *Money) Add(other *Money) *Money {
	if m == nil || m.m == nil {
		return other
	}
	if other == nil || other.m == nil {
		return m
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return m
	}
	return &Money{m: sum}
}

// IsNegative reports whether the value is below zero.
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Display formats the value as Brazilian currency: "R$ 1.234,56".
func (m *Money) Display() string {
	cents := m.Amount()
	neg := cents < 0
	if neg {
		cents = -cents
	}

	d := decimal.New(cents, -2).StringFixed(2) // "1234.56"
	parts := strings.SplitN(d, ".", 2)

	intPart := groupThousands(parts[0])
	out := "R$ " + intPart + "," + parts[1]
	if neg {
		out = "-" + out
	}
	return out
}

// FormatBRL formats a float amount in reais as Brazilian currency.
func FormatBRL(reais float64) string {
	return NewFromFloat(reais).Display()
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
