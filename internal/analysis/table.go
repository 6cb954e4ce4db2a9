package analysis

import (
	"strings"
)

// Table is a raw record table: normalized column names plus string rows.
// Every row holds exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a Table, normalizing headers (upper case, trimmed) and
// padding or truncating rows to the header width.
func NewTable(header []string, rows [][]string) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = NormalizeHeader(h)
	}
	t := &Table{Columns: cols, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(cols)))
	}
	return t
}

// NormalizeHeader upper-cases and trims a column name.
func NormalizeHeader(s string) string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if t == nil || name == "" {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func fitRow(rec []string, n int) []string {
	row := make([]string, n)
	copy(row, rec)
	return row
}

func normValue(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
