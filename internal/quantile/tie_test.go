package quantile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieGroups(t *testing.T) {
	groups := TieGroups([]int{4, 1, 4, 1, 3})

	assert.Equal(t, []TieGroup{
		{Rank: 1, Size: 2, Rows: []int{1, 3}},
		{Rank: 3, Size: 1, Rows: []int{4}},
		{Rank: 4, Size: 2, Rows: []int{0, 2}},
	}, groups)

	assert.Empty(t, TieGroups(nil))
}

func TestAverageTies(t *testing.T) {
	reference := []float64{1, 3, 4.5}

	cases := []struct {
		name  string
		ranks []int
		want  []float64
	}{
		{"no ties", []int{3, 1, 2}, []float64{4.5, 1, 3}},
		{"pair tie", []int{2, 1, 2}, []float64{3.75, 1, 3.75}},
		{"all tied", []int{1, 1, 1}, []float64{17.0 / 6, 17.0 / 6, 17.0 / 6}},
		{"low tie", []int{1, 1, 3}, []float64{2, 2, 4.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AverageTies(tc.ranks, reference)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.want, got, 1e-12)
		})
	}
}

func TestAverageTiesRejectsBadRanks(t *testing.T) {
	reference := []float64{1, 2, 3}

	_, err := AverageTies([]int{1, 2}, reference)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// dense ranks leave a gap where the tie group should have ended
	_, err = AverageTies([]int{1, 1, 2}, reference)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = AverageTies([]int{2, 3, 4}, reference)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = AverageTies([]int{0, 1, 2}, reference)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// A column of N identical values is a single window spanning the whole
// reference. This must stay linear after grouping; with N = 200k a per-value
// rescan would not finish in reasonable time.
func TestAverageTiesLargeTieGroup(t *testing.T) {
	const n = 200_000
	ranks := make([]int, n)
	reference := make([]float64, n)
	for i := range n {
		ranks[i] = 1
		reference[i] = float64(i)
	}

	got, err := AverageTies(ranks, reference)
	require.NoError(t, err)

	want := float64(n-1) / 2
	assert.InDelta(t, want, got[0], 1e-9)
	assert.InDelta(t, want, got[n-1], 1e-9)
}

func TestAverageTiesNearMaxFloat(t *testing.T) {
	big := math.MaxFloat64 / 1.5

	got, err := AverageTies([]int{1, 1}, []float64{big, big})
	require.NoError(t, err)
	assert.Equal(t, []float64{big, big}, got)

	got, err = AverageTies([]int{2, 1, 2}, []float64{1, big, math.MaxFloat64})
	require.NoError(t, err)
	assert.False(t, math.IsInf(got[0], 0))
	assert.InEpsilon(t, big/2+math.MaxFloat64/2, got[0], 1e-12)
	assert.Equal(t, got[0], got[2])
	assert.Equal(t, 1.0, got[1])
}
