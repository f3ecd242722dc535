package excel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTemplateSchema(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMessages, SheetInstructions}, f.GetSheetList())

	rows, err := f.GetRows(SheetMessages)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, Columns, rows[0])
	assert.Len(t, rows, 1+len(exampleRows))
}

func TestTemplateRoundTripsThroughParser(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	rows, err := ParseRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "51987654321", rows[0].NumeroDestino)
	assert.Empty(t, rows[0].ImageURL)
	assert.Equal(t, "https://picsum.photos/400/300", rows[1].ImageURL)
}

func buildSheet(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		row := row
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseRowsToleratesColumnOrderAndBlanks(t *testing.T) {
	data := buildSheet(t,
		[]interface{}{"Mensaje", "NumeroDestino"},
		[]interface{}{"hola", "51 987 654 321"},
		[]interface{}{"", ""},
		[]interface{}{"adiós", "34600111222"},
	)

	rows, err := ParseRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Line: 2, NumeroDestino: "51 987 654 321", Mensaje: "hola"}, rows[0])
	assert.Equal(t, 4, rows[1].Line)
}

func TestParseRowsErrors(t *testing.T) {
	_, err := ParseRows(bytes.NewReader(buildSheet(t, []interface{}{"telefono", "texto"}, []interface{}{"1", "2"})))
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, err = ParseRows(bytes.NewReader(buildSheet(t, []interface{}{ColumnPhone, ColumnMessage})))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ParseRows(bytes.NewReader([]byte("definitely not a zip")))
	assert.Error(t, err)
}
