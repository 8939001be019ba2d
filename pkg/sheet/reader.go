package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Format identifies a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
)

// ErrUnsupportedFormat is returned when a file is neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ContentType returns the MIME type used when serving a file of this format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return mimeXLSX
}

// ParseFormat maps a user supplied format name, defaulting to xlsx.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, raw)
	}
}

// DetectFormat sniffs the content and falls back to the file extension. A generic zip
// archive only counts as a workbook when it carries a workbook extension, so .docx and
// .zip uploads are rejected.
func DetectFormat(content []byte, filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	detected := mimetype.Detect(content)
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case m.Is(mimeXLSX):
			return FormatXLSX, nil
		case m.Is(mimeZip):
			if isWorkbookExt(ext) {
				return FormatXLSX, nil
			}
			return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filename, detected.String())
		case m.Is(mimeCSV):
			return FormatCSV, nil
		case m.Is(mimeText):
			if ext == ".csv" || ext == "" {
				return FormatCSV, nil
			}
		}
	}

	switch {
	case isWorkbookExt(ext):
		return FormatXLSX, nil
	case ext == ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

func isWorkbookExt(ext string) bool {
	return ext == ".xlsx" || ext == ".xlsm"
}

// Read loads the first sheet of an xlsx or csv file. The first row becomes the header.
func Read(r io.Reader, filename string) (*Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	format, err := DetectFormat(content, filename)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(content)
	default:
		rows, err = readCSV(content)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return NewTable(nil, nil), nil
	}
	return NewTable(rows[0], rows[1:]), nil
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return rows, nil
}

func readCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}
