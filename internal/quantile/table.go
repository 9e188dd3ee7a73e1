// Package quantile implements tie-aware quantile normalization of a numeric
// table whose rows are features and whose columns are samples.
package quantile

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Missing marks an absent cell. Any NaN is treated as missing.
var Missing = math.NaN()

func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Table is a dense rows x columns grid with ordered, unique row and column
// identifiers. Identifiers are carried through unchanged and never
// interpreted. A Table is immutable once built; every accessor returns a copy.
type Table struct {
	rowIDs []string
	colIDs []string
	data   *mat.Dense
}

// NewTable builds a table from column-major values: columns[j] holds the
// values of column colIDs[j] in rowIDs order.
func NewTable(rowIDs, colIDs []string, columns [][]float64) (*Table, error) {
	if err := validateAxes(rowIDs, colIDs); err != nil {
		return nil, err
	}
	if len(columns) != len(colIDs) {
		return nil, invalidf("got %d columns of values for %d column identifiers", len(columns), len(colIDs))
	}

	data := mat.NewDense(len(rowIDs), len(colIDs), nil)
	for j, col := range columns {
		if len(col) != len(rowIDs) {
			return nil, invalidf("column %q has %d values, expected %d", colIDs[j], len(col), len(rowIDs))
		}
		if err := checkFinite(col, colIDs[j]); err != nil {
			return nil, err
		}
		data.SetCol(j, col)
	}

	return &Table{
		rowIDs: cloneStrings(rowIDs),
		colIDs: cloneStrings(colIDs),
		data:   data,
	}, nil
}

// NewTableFromDense builds a table around a copy of m.
func NewTableFromDense(rowIDs, colIDs []string, m *mat.Dense) (*Table, error) {
	if err := validateAxes(rowIDs, colIDs); err != nil {
		return nil, err
	}
	if m == nil || m.IsEmpty() {
		return nil, invalidf("matrix is empty")
	}
	rows, cols := m.Dims()
	if rows != len(rowIDs) || cols != len(colIDs) {
		return nil, invalidf("matrix is %dx%d but identifiers describe %dx%d", rows, cols, len(rowIDs), len(colIDs))
	}
	for j := range cols {
		if err := checkFinite(mat.Col(nil, j, m), colIDs[j]); err != nil {
			return nil, err
		}
	}

	return &Table{
		rowIDs: cloneStrings(rowIDs),
		colIDs: cloneStrings(colIDs),
		data:   mat.DenseCopyOf(m),
	}, nil
}

func validateAxes(rowIDs, colIDs []string) error {
	if len(rowIDs) == 0 {
		return invalidf("table has no rows")
	}
	if len(colIDs) == 0 {
		return invalidf("table has no columns")
	}
	if dup, ok := firstDuplicate(rowIDs); ok {
		return invalidf("duplicate row identifier %q", dup)
	}
	if dup, ok := firstDuplicate(colIDs); ok {
		return invalidf("duplicate column identifier %q", dup)
	}
	return nil
}

func checkFinite(col []float64, colID string) error {
	for i, v := range col {
		if math.IsInf(v, 0) {
			return invalidf("column %q row %d holds an infinite value", colID, i)
		}
	}
	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (t *Table) Dims() (rows, cols int) {
	return t.data.Dims()
}

func (t *Table) RowIDs() []string {
	return cloneStrings(t.rowIDs)
}

func (t *Table) ColIDs() []string {
	return cloneStrings(t.colIDs)
}

func (t *Table) At(i, j int) float64 {
	return t.data.At(i, j)
}

func (t *Table) Column(j int) []float64 {
	return mat.Col(nil, j, t.data)
}

func (t *Table) Row(i int) []float64 {
	return mat.Row(nil, i, t.data)
}

// Columns returns every column in order.
func (t *Table) Columns() [][]float64 {
	_, cols := t.Dims()
	out := make([][]float64, cols)
	for j := range cols {
		out[j] = t.Column(j)
	}
	return out
}

func (t *Table) Dense() *mat.Dense {
	return mat.DenseCopyOf(t.data)
}

func (t *Table) HasMissing() bool {
	return len(t.MissingRows()) > 0
}

// MissingRows returns, in ascending order, the indices of rows holding at
// least one missing cell.
func (t *Table) MissingRows() []int {
	rows, cols := t.Dims()
	var missing []int
	for i := range rows {
		for j := range cols {
			if IsMissing(t.data.At(i, j)) {
				missing = append(missing, i)
				break
			}
		}
	}
	return missing
}

// DropRows returns a table without the given row indices. The relative order
// of the remaining rows is kept. Dropping every row is rejected.
func (t *Table) DropRows(drop []int) (*Table, error) {
	rows, _ := t.Dims()
	skip := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		if i < 0 || i >= rows {
			return nil, invalidf("row index %d out of range [0,%d)", i, rows)
		}
		skip[i] = struct{}{}
	}

	keep := make([]int, 0, rows-len(skip))
	for i := range rows {
		if _, ok := skip[i]; !ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, invalidf("no rows left after dropping %d of %d", len(skip), rows)
	}
	return t.selectRows(keep), nil
}

// Permute returns a table whose i-th row is row order[i] of t.
func (t *Table) Permute(order []int) (*Table, error) {
	rows, _ := t.Dims()
	if len(order) != rows {
		return nil, invalidf("permutation has %d entries for %d rows", len(order), rows)
	}
	seen := make([]bool, rows)
	for _, i := range order {
		if i < 0 || i >= rows || seen[i] {
			return nil, invalidf("order is not a permutation of [0,%d)", rows)
		}
		seen[i] = true
	}
	return t.selectRows(order), nil
}

func (t *Table) selectRows(keep []int) *Table {
	_, cols := t.Dims()
	data := mat.NewDense(len(keep), cols, nil)
	rowIDs := make([]string, len(keep))
	for dst, src := range keep {
		data.SetRow(dst, mat.Row(nil, src, t.data))
		rowIDs[dst] = t.rowIDs[src]
	}
	return &Table{
		rowIDs: rowIDs,
		colIDs: cloneStrings(t.colIDs),
		data:   data,
	}
}
