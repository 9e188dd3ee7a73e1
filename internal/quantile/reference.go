package quantile

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// BuildReference sorts every column ascending and returns the position-wise
// mean across columns: entry p is the mean of the p-th smallest value of each
// column. The result has one entry per row and is itself ascending.
func BuildReference(t *Table, workers int) []float64 {
	rows, cols := t.Dims()
	sorted := make([][]float64, cols)

	forEachColumn(cols, workers, func(j int) {
		col := t.Column(j)
		sort.Float64s(col)
		sorted[j] = col
	})

	// Scale before accumulating so large finite inputs cannot overflow.
	reference := make([]float64, rows)
	weight := 1.0 / float64(cols)
	for _, col := range sorted {
		floats.AddScaled(reference, weight, col)
	}

	return reference
}
