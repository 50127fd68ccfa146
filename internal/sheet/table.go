package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the loosely-typed tabular shape a spreadsheet decodes into.
// Headers are whitespace-trimmed; cells stay raw strings until the
// reconciliation pass coerces them. Never hand a Table to anything
// downstream of internal/billing.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Cell returns the value at row i for the named column, or "" when the
// column is absent or the row is short.
func (t *Table) Cell(i int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return ""
	}
	return t.CellAt(i, idx)
}

// CellAt returns the value at row i, column idx, tolerating ragged rows.
func (t *Table) CellAt(i, idx int) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ColumnIndex returns the position of an exact header match, or -1.
func (t *Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Decode parses file content into a Table based on the file extension.
// Supported: .xlsx (excelize, first sheet) and .csv. Legacy binary .xls
// is not parseable here and reports a shape error.
func Decode(name string, content []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return decodeXLSX(name, content)
	case ".csv":
		return decodeCSV(name, bytes.NewReader(content))
	case ".xls":
		return nil, fmt.Errorf("decode %s: legacy .xls format is not supported, re-save as .xlsx", name)
	default:
		return nil, fmt.Errorf("decode %s: unsupported file type", name)
	}
}

func decodeXLSX(name string, content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("decode %s: workbook has no sheets", name)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return fromRows(name, rows)
}

func decodeCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return fromRows(name, rows)
}

func fromRows(name string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("decode %s: file is empty", name)
	}
	columns := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		columns[i] = strings.TrimSpace(c)
	}
	return &Table{Name: name, Columns: columns, Rows: rows[1:]}, nil
}
