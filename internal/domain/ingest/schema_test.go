package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeaders(t *testing.T) {
	t.Run("maps headers regardless of order", func(t *testing.T) {
		idx, err := ValidateHeaders([]RawCell{"b", "a"}, ExpectedSchema{"A", "B"}, "aba 1")
		require.NoError(t, err)
		assert.Equal(t, HeaderIndexMap{"A": 1, "B": 0}, idx)
	})

	t.Run("matches on normalized form", func(t *testing.T) {
		idx, err := ValidateHeaders(
			[]RawCell{" contrato ", "uf", "Data", "status capital", "Reenvio"},
			StockSchema, "aba 1")
		require.NoError(t, err)
		assert.Equal(t, 0, idx["CONTRATO"])
		assert.Equal(t, 3, idx["STATUS CAPITAL"])
	})

	t.Run("reports every missing header at once", func(t *testing.T) {
		_, err := ValidateHeaders([]RawCell{"a"}, ExpectedSchema{"A", "B", "C"}, "aba 2")
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, []string{"B", "C"}, schemaErr.Missing)
		assert.Equal(t, "aba 2", schemaErr.Sheet)
		assert.Contains(t, schemaErr.Error(), "Cabeçalhos ausentes")
		assert.Contains(t, schemaErr.Error(), "B, C")
	})

	t.Run("duplicate header resolves to first occurrence", func(t *testing.T) {
		idx, err := ValidateHeaders([]RawCell{"UF", "DATA", "UF"}, ExpectedSchema{"UF", "DATA"}, "aba 1")
		require.NoError(t, err)
		assert.Equal(t, 0, idx["UF"])
	})

	t.Run("suggests near matches for typos", func(t *testing.T) {
		_, err := ValidateHeaders(
			[]RawCell{"CONTRATO", "UF", "DATA", "STATUS CAPTAL", "REENVIO"},
			StockSchema, "aba 1")
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		require.Contains(t, schemaErr.Suggestions, "STATUS CAPITAL")
		assert.Equal(t, "STATUS CAPTAL", schemaErr.Suggestions["STATUS CAPITAL"])
	})

	t.Run("no suggestion when nothing is close", func(t *testing.T) {
		_, err := ValidateHeaders([]RawCell{"CONTRATO"}, ExpectedSchema{"CONTRATO", "MEDIA DE VALORES"}, "aba 2")
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.NotContains(t, schemaErr.Suggestions, "MEDIA DE VALORES")
	})

	t.Run("nil cells are ignored", func(t *testing.T) {
		_, err := ValidateHeaders([]RawCell{nil, "UF", "MEDIA DE VALORES"}, CostSchema, "aba 2")
		assert.NoError(t, err)
	})

	t.Run("error type survives wrapping", func(t *testing.T) {
		_, err := ValidateHeaders([]RawCell{}, CostSchema, "aba 2")
		wrapped := errors.Join(err)
		var schemaErr *SchemaError
		assert.ErrorAs(t, wrapped, &schemaErr)
	})
}
