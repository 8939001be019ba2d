package sheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const lineHeight = 5.0

// PDFRenderer renders datasets into a landscape tabular PDF. Cells may hold several
// lines separated by newlines; every row grows to its tallest cell.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render creates a PDF document with an optional title and table body.
func (r *PDFRenderer) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	usable := pageWidth - left - right
	widths := columnWidths(len(data.Headers), usable)

	pdf.SetFont("Arial", "B", 9)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		cells := make([][][]byte, len(data.Headers))
		maxLines := 1
		for i, header := range data.Headers {
			cells[i] = pdf.SplitLines([]byte(tr(row[header])), widths[i]-2)
			if len(cells[i]) > maxLines {
				maxLines = len(cells[i])
			}
		}
		rowHeight := float64(maxLines) * lineHeight

		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
		}

		x, y := pdf.GetXY()
		for i := range data.Headers {
			pdf.Rect(x, y, widths[i], rowHeight, "D")
			lines := make([]string, len(cells[i]))
			for j, line := range cells[i] {
				lines[j] = string(line)
			}
			pdf.SetXY(x+1, y)
			pdf.MultiCell(widths[i]-2, lineHeight, strings.Join(lines, "\n"), "", "L", false)
			x += widths[i]
		}
		pdf.SetXY(left, y+rowHeight)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths keeps the first column narrow since it usually carries a short label.
func columnWidths(n int, usable float64) []float64 {
	widths := make([]float64, n)
	if n == 1 {
		widths[0] = usable
		return widths
	}
	first := usable * 0.08
	rest := (usable - first) / float64(n-1)
	widths[0] = first
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}
