package features

import (
	"math"
	"strconv"
)

// LabelColumn is the churn label carried as the last matrix column
const LabelColumn = "churn"

// Matrix is the assembled feature table: one row per customer, columns in a
// fixed order. A Matrix is not modified after assembly; filters return
// new matrices.
type Matrix struct {
	IDs     []string
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows
func (m *Matrix) Len() int {
	return len(m.Rows)
}

// ColumnIndex returns the position of name, or -1
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column
func (m *Matrix) Column(name string) ([]float64, bool) {
	j := m.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[j]
	}
	return out, true
}

// Row returns the row for a customer id
func (m *Matrix) Row(id string) ([]float64, bool) {
	for i, rid := range m.IDs {
		if rid == id {
			return m.Rows[i], true
		}
	}
	return nil, false
}

// DropIncomplete returns a matrix without the rows holding NaN or Inf
// values, and the number of rows removed
func (m *Matrix) DropIncomplete() (*Matrix, int) {
	out := &Matrix{Columns: m.Columns}
	dropped := 0
	for i, row := range m.Rows {
		if !finiteRow(row) {
			dropped++
			continue
		}
		out.IDs = append(out.IDs, m.IDs[i])
		out.Rows = append(out.Rows, row)
	}
	return out, dropped
}

// FirstNonFinite locates the first NaN or Inf cell in row-major order
func (m *Matrix) FirstNonFinite() (row, col int, ok bool) {
	for i, r := range m.Rows {
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Header returns the CSV header: id followed by the columns
func (m *Matrix) Header() []string {
	return append([]string{"id"}, m.Columns...)
}

// Records renders the rows as CSV records. NaN becomes an empty cell.
func (m *Matrix) Records() [][]string {
	records := make([][]string, len(m.Rows))
	for i, row := range m.Rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, m.IDs[i])
		for _, v := range row {
			rec = append(rec, formatValue(v))
		}
		records[i] = rec
	}
	return records
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
