package excel

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	SheetMessages     = "Mensajes"
	SheetInstructions = "Instrucciones"

	ColumnPhone   = "numeroDestino"
	ColumnMessage = "mensaje"
	ColumnImage   = "imageUrl"

	FileName    = "plantilla-whatsapp.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns is the fixed schema of the bulk template, in order.
var Columns = []string{ColumnPhone, ColumnMessage, ColumnImage}

var (
	ErrNoSheet       = errors.New("workbook has no sheets")
	ErrMissingHeader = errors.New("sheet is missing a required column")
	ErrNoRows        = errors.New("sheet has no data rows")
)

var exampleRows = [][]interface{}{
	{"51987654321", "¡Hola! Este es un mensaje de prueba 📱", ""},
	{"+1 (555) 123-4567", "¡Mira esta imagen! 🖼️", "https://picsum.photos/400/300"},
}

var instructions = []string{
	"Complete una fila por destinatario en la hoja " + SheetMessages + ".",
	ColumnPhone + ": número en formato internacional, sin 0 inicial. Se ignoran espacios, guiones, puntos, paréntesis y el signo +.",
	ColumnMessage + ": texto del mensaje. Obligatorio. Si hay imagen se usa como pie de foto.",
	ColumnImage + ": opcional. URL http(s) de una imagen pública.",
	"No cambie los nombres de las columnas de la primera fila.",
}

// Row is one recipient read from a bulk sheet. Line is the 1-based sheet row.
type Row struct {
	Line          int    `json:"line"`
	NumeroDestino string `json:"numeroDestino"`
	Mensaje       string `json:"mensaje"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// Template builds the bulk-send workbook.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMessages); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetMessages, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range exampleRows {
		row := row
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetMessages, cell, &row); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"128C7E"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(SheetMessages, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}
	// numbers stay text so leading + and separators survive
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}
	if err := f.SetColStyle(SheetMessages, "A", textStyle); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetMessages, "A", "A", 22)
	_ = f.SetColWidth(SheetMessages, "B", "B", 60)
	_ = f.SetColWidth(SheetMessages, "C", "C", 45)
	if err := f.SetPanes(SheetMessages, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetInstructions); err != nil {
		return nil, err
	}
	for i, line := range instructions {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellStr(SheetInstructions, cell, line); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetInstructions, "A", "A", 110)

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseRows reads recipients from the first sheet named like the template,
// falling back to the first sheet of the workbook. Blank rows are skipped.
func ParseRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, SheetMessages) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	index := make(map[string]int, len(Columns))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{ColumnPhone, ColumnMessage} {
		if _, ok := index[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, required)
		}
	}

	cell := func(row []string, column string) string {
		i, ok := index[strings.ToLower(column)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Row
	for i, row := range rows[1:] {
		parsed := Row{
			Line:          i + 2,
			NumeroDestino: cell(row, ColumnPhone),
			Mensaje:       cell(row, ColumnMessage),
			ImageURL:      cell(row, ColumnImage),
		}
		if parsed.NumeroDestino == "" && parsed.Mensaje == "" && parsed.ImageURL == "" {
			continue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
