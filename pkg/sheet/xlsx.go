package sheet

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXOptions tunes the workbook layout.
type XLSXOptions struct {
	// ColumnWidths is indexed by column position; missing entries keep the default width.
	ColumnWidths []float64
	// WrapText enables wrapping for multi-line cells.
	WrapText bool
	// NumericColumns names headers whose integer cells are stored as numbers. Only
	// canonical integers convert, so a label such as "05" or "V" stays text.
	NumericColumns []string
}

// XLSXRenderer renders datasets into a single-sheet workbook with a bold header row.
type XLSXRenderer struct {
	opts XLSXOptions
}

// NewXLSXRenderer builds an xlsx renderer.
func NewXLSXRenderer(opts XLSXOptions) *XLSXRenderer {
	return &XLSXRenderer{opts: opts}
}

// Render writes the dataset to an in-memory workbook.
func (r *XLSXRenderer) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheetName := data.Sheet
	if sheetName == "" {
		sheetName = defaultSheet
	}
	if sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	numeric := make(map[string]bool, len(r.opts.NumericColumns))
	for _, name := range r.opts.NumericColumns {
		numeric[name] = true
	}
	for rowIdx, row := range data.Rows {
		for colIdx, header := range data.Headers {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			var value interface{} = row[header]
			if numeric[header] {
				if n, err := strconv.Atoi(row[header]); err == nil && strconv.Itoa(n) == row[header] {
					value = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	for i, width := range r.opts.ColumnWidths {
		if width <= 0 || i >= len(data.Headers) {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set width of %s: %w", col, err)
		}
	}

	if r.opts.WrapText && len(data.Rows) > 0 {
		wrapStyle, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return nil, fmt.Errorf("create wrap style: %w", err)
		}
		lastCell, _ := excelize.CoordinatesToCellName(len(data.Headers), len(data.Rows)+1)
		if err := f.SetCellStyle(sheetName, "A2", lastCell, wrapStyle); err != nil {
			return nil, fmt.Errorf("style body: %w", err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
