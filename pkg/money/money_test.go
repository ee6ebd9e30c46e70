package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFromFloat(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"simple decimal", 12.34, 1234},
		{"whole number", 100.00, 10000},
		{"zero", 0.0, 0},
		{"negative", -50.99, -5099},
		{"one centavo", 0.01, 1},
		{"rounds to nearest centavo", 12.345, 1235},
		{"float noise", 1234.56, 123456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFromFloat(tt.amount).Amount())
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name     string
		centavos int64
		want     string
	}{
		{"with thousands separator", 123456, "R$ 1.234,56"},
		{"millions", 123456789, "R$ 1.234.567,89"},
		{"under a thousand", 89990, "R$ 899,90"},
		{"under a real", 5, "R$ 0,05"},
		{"zero", 0, "R$ 0,00"},
		{"negative", -123456, "-R$ 1.234,56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.centavos).Display())
		})
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatBRL(1234.56))
	assert.Equal(t, "R$ 10,00", FormatBRL(10))
}

func TestAdd(t *testing.T) {
	total := New(1000).Add(New(256))
	assert.Equal(t, int64(1256), total.Amount())
	assert.Equal(t, "R$ 12,56", total.Display())
}

func TestToDecimal(t *testing.T) {
	d := New(123456).ToDecimal()
	assert.Equal(t, "1234.56", d.String())
}
