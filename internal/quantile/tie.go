package quantile

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// TieGroup is the set of rows of one column that share a rank. Its members
// occupy sorted positions Rank .. Rank+Size-1 of that column.
type TieGroup struct {
	Rank int
	Size int
	Rows []int
}

// TieGroups groups row indices by rank, in ascending rank order. Rows inside
// a group keep their original relative order.
func TieGroups(ranks []int) []TieGroup {
	order := make([]int, len(ranks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ranks[a], ranks[b])
	})

	var groups []TieGroup
	for start := 0; start < len(order); {
		rank := ranks[order[start]]
		end := start + 1
		for end < len(order) && ranks[order[end]] == rank {
			end++
		}
		groups = append(groups, TieGroup{
			Rank: rank,
			Size: end - start,
			Rows: order[start:end:end],
		})
		start = end
	}

	return groups
}

// AverageTies maps one column's ranks onto the reference distribution. Every
// row of a tie group with rank r and size k receives the mean of
// reference[r-1 : r-1+k].
func AverageTies(ranks []int, reference []float64) ([]float64, error) {
	return poolGroups(TieGroups(ranks), len(ranks), reference)
}

// poolGroups walks the groups in ascending rank order. Each group consumes the
// reference window that starts right where the previous one ended, so every
// reference entry is summed exactly once.
func poolGroups(groups []TieGroup, rows int, reference []float64) ([]float64, error) {
	if rows != len(reference) {
		return nil, invalidf("column has %d ranks but the reference has %d entries", rows, len(reference))
	}

	out := make([]float64, rows)
	next := 1
	for _, g := range groups {
		if g.Rank != next {
			return nil, invalidf("rank %d is not a competition rank, expected %d", g.Rank, next)
		}

		lo, hi := g.Rank-1, g.Rank-1+g.Size
		pooled := windowMean(reference[lo:hi])
		for _, row := range g.Rows {
			out[row] = pooled
		}

		next = hi + 1
	}

	return out, nil
}

// windowMean averages w. The plain sum is exact for integer-valued data and
// is kept unless it overflows, in which case the terms are scaled first.
func windowMean(w []float64) float64 {
	k := float64(len(w))
	if sum := floats.Sum(w); !math.IsInf(sum, 0) {
		return sum / k
	}

	var mean float64
	for _, v := range w {
		mean += v / k
	}
	return mean
}
