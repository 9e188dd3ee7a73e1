package quantile

import (
	"gonum.org/v1/gonum/floats"
)

// AssignRanks returns the 1-based competition rank of every value in column:
// rank(x) = 1 + number of values strictly less than x, so tied values share
// the lowest rank of their group. The column must not hold missing values.
func AssignRanks(column []float64) []int {
	n := len(column)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, column)
	inds := make([]int, n)
	floats.Argsort(sorted, inds)

	ranks := make([]int, n)
	for pos := range n {
		if pos > 0 && sorted[pos] == sorted[pos-1] {
			ranks[inds[pos]] = ranks[inds[pos-1]]
			continue
		}
		ranks[inds[pos]] = pos + 1
	}

	return ranks
}

// RankTable ranks every column of t independently.
func RankTable(t *Table, workers int) [][]int {
	_, cols := t.Dims()
	ranks := make([][]int, cols)

	forEachColumn(cols, workers, func(j int) {
		ranks[j] = AssignRanks(t.Column(j))
	})

	return ranks
}
