package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const logisticsHeaderLine = "Total de Tentativas,UF,Último Status,Qtde. Reenvios,Tipo de Baixa,Conta,Contrato,CPF,Esteira"

func TestCsvIngestor(t *testing.T) {
	ing := NewCsvIngestor(testLogger())

	t.Run("comma delimited file", func(t *testing.T) {
		src := logisticsHeaderLine + "\n" +
			"3,SP,Entregue,1,Normal,A1,C1,11122233344,Padrão\n"
		got, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		require.NoError(t, err)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, "SP", got.Rows[0]["uf"])
		assert.Equal(t, "Entregue", got.Rows[0]["ultimo_status"])
		assert.Equal(t, "1", got.Rows[0]["qtde_reenvios"])
		assert.Equal(t, []string{
			"total_tentativas", "uf", "ultimo_status", "qtde_reenvios",
			"tipo_baixa", "conta", "contrato", "cpf", "esteira",
		}, got.Columns)
	})

	t.Run("falls back to semicolon delimiter", func(t *testing.T) {
		src := strings.ReplaceAll(logisticsHeaderLine, ",", ";") + "\r\n" +
			"3;SP;Entregue;1;Normal;A1;C1;11122233344;Padrão\r\n"
		got, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		require.NoError(t, err)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, "C1", got.Rows[0]["contrato"])
	})

	t.Run("no recognizable delimiter", func(t *testing.T) {
		_, err := ing.Ingest(strings.NewReader("coluna\nvalor\n"), "logistics", nil)
		var delimErr *DelimiterError
		require.ErrorAs(t, err, &delimErr)
		assert.Contains(t, err.Error(), "delimitador")
	})

	t.Run("byte order mark is stripped", func(t *testing.T) {
		src := "\ufeff" + logisticsHeaderLine + "\n" +
			"3,SP,Entregue,1,Normal,A1,C1,11122233344,Padrão\n"
		got, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		require.NoError(t, err)
		assert.Equal(t, "3", got.Rows[0]["total_tentativas"])
	})

	t.Run("latin1 file is decoded", func(t *testing.T) {
		encoded, err := charmap.ISO8859_1.NewEncoder().String(
			logisticsHeaderLine + "\n3,SP,Não entregue,1,Normal,A1,C1,11122233344,Padrão\n")
		require.NoError(t, err)
		got, err := ing.Ingest(strings.NewReader(encoded), "logistics", nil)
		require.NoError(t, err)
		assert.Equal(t, "Não entregue", got.Rows[0]["ultimo_status"])
	})

	t.Run("field count mismatch aborts with line number", func(t *testing.T) {
		src := logisticsHeaderLine + "\n" +
			"3,SP,Entregue,1,Normal,A1,C1,11122233344,Padrão\n" +
			"3,SP,Entregue\n"
		_, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		var shapeErr *RowShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, 3, shapeErr.Line)
		assert.Equal(t, 3, shapeErr.Fields)
		assert.Equal(t, 9, shapeErr.Headers)
		assert.Contains(t, err.Error(), "Linha 3")
	})

	t.Run("missing expected headers", func(t *testing.T) {
		src := "Total de Tentativas,UF\n3,SP\n"
		_, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Contains(t, schemaErr.Missing, "Último Status")
	})

	t.Run("header only file is empty", func(t *testing.T) {
		_, err := ing.Ingest(strings.NewReader(logisticsHeaderLine+"\n"), "logistics", nil)
		var emptyErr *EmptyFileError
		assert.ErrorAs(t, err, &emptyErr)
	})

	t.Run("blank lines are ignored", func(t *testing.T) {
		src := logisticsHeaderLine + "\n\n" +
			"3,SP,Entregue,1,Normal,A1,C1,11122233344,Padrão\n\n"
		got, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		require.NoError(t, err)
		assert.Len(t, got.Rows, 1)
	})

	t.Run("extra columns keep their display name", func(t *testing.T) {
		src := logisticsHeaderLine + ",Observação Extra\n" +
			"3,SP,Entregue,1,Normal,A1,C1,11122233344,Padrão,nota\n"
		got, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		require.NoError(t, err)
		assert.Equal(t, "nota", got.Rows[0]["Observação Extra"])
	})

	t.Run("unknown report type without expected headers is rejected", func(t *testing.T) {
		src := "qualquer,coisa\n1,2\n"
		_, err := ing.Ingest(strings.NewReader(src), "tipo-desconhecido", nil)
		var unknownErr *UnknownReportTypeError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "tipo-desconhecido", unknownErr.ReportType)
		assert.Contains(t, err.Error(), "Tipo de relatório desconhecido")
	})

	t.Run("caller supplied headers validate any report type", func(t *testing.T) {
		src := "Pedido,Valor\nP1,10\n"
		got, err := ing.Ingest(strings.NewReader(src), "faturamento", []string{"Pedido", "Valor"})
		require.NoError(t, err)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, "P1", got.Rows[0]["Pedido"])

		_, err = ing.Ingest(strings.NewReader(src), "faturamento", []string{"Pedido", "Valor", "Cliente"})
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Contains(t, schemaErr.Missing, "Cliente")
	})

	t.Run("only bare delimiter lines yields no valid rows", func(t *testing.T) {
		src := strings.ReplaceAll(logisticsHeaderLine, ",", ";") + "\n" +
			";;;;;;;;\n" +
			";;;;;;;;\n"
		_, err := ing.Ingest(strings.NewReader(src), "logistics", nil)
		var noRowsErr *NoValidRowsError
		assert.ErrorAs(t, err, &noRowsErr)
	})
}
