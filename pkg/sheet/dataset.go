// Package sheet reads and renders the tabular files exchanged with administrators and
// the external scheduler: xlsx and csv workbooks, plus PDF printouts.
package sheet

import (
	"strings"
)

// Dataset is a header-ordered table. Each row maps a header to its cell value.
type Dataset struct {
	Sheet   string
	Headers []string
	Rows    []map[string]string
}

// Table is the raw content of the first sheet of an uploaded workbook.
type Table struct {
	Headers []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table and its header index. Headers are matched case-insensitively
// with surrounding whitespace ignored.
func NewTable(headers []string, rows [][]string) *Table {
	t := &Table{Headers: headers, Rows: rows, index: make(map[string]int, len(headers))}
	for i, h := range headers {
		key := normalizeHeader(h)
		if _, exists := t.index[key]; !exists && key != "" {
			t.index[key] = i
		}
	}
	return t
}

// HasColumn reports whether the header row carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[normalizeHeader(name)]
	return ok
}

// Value returns the cell of row under the named column, or "" when either is missing.
func (t *Table) Value(row []string, column string) string {
	idx, ok := t.index[normalizeHeader(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
