package quantile

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/qnorm/internal/utils/logger"
)

// MissingPolicy decides what happens to rows holding missing values.
type MissingPolicy string

const (
	// PolicyDrop removes every row with at least one missing cell before
	// normalizing and leaves it out of the output.
	PolicyDrop MissingPolicy = "drop"
	// PolicyError rejects any table holding a missing cell.
	PolicyError MissingPolicy = "error"
)

func ParseMissingPolicy(s string) (MissingPolicy, error) {
	p := MissingPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", invalidf("unknown missing value policy %q, want %q or %q", s, PolicyDrop, PolicyError)
	}
	return p, nil
}

func (p MissingPolicy) Valid() bool {
	return p == PolicyDrop || p == PolicyError
}

type Normalizer struct {
	Policy  MissingPolicy
	Workers int
}

type NormalizerOption func(*Normalizer)

func WithMissingPolicy(policy MissingPolicy) NormalizerOption {
	return func(n *Normalizer) {
		n.Policy = policy
	}
}

// WithWorkers bounds the number of columns processed concurrently. Values
// below one fall back to GOMAXPROCS.
func WithWorkers(workers int) NormalizerOption {
	return func(n *Normalizer) {
		n.Workers = workers
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		Policy:  PolicyError,
		Workers: DefaultWorkers(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// ColumnTies summarises the tie groups found in one column.
type ColumnTies struct {
	Column  string `json:"column"`
	Groups  int    `json:"groups"`
	Largest int    `json:"largest"`
}

// Report describes one normalization run.
type Report struct {
	Policy      MissingPolicy `json:"policy"`
	RowsIn      int           `json:"rows_in"`
	RowsOut     int           `json:"rows_out"`
	DroppedRows []string      `json:"dropped_rows"`
	Reference   []float64     `json:"reference"`
	Ties        []ColumnTies  `json:"ties"`
	Elapsed     time.Duration `json:"elapsed"`
}

type Result struct {
	Table  *Table
	Report Report
}

// Normalize quantile-normalizes t with the given missing value policy.
func Normalize(t *Table, policy MissingPolicy) (*Table, error) {
	return NewNormalizer(WithMissingPolicy(policy)).Normalize(t)
}

func (n *Normalizer) Normalize(t *Table) (*Table, error) {
	res, err := n.NormalizeWithReport(t)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// NormalizeWithReport normalizes t and describes the run. The output keeps
// t's column order and t's row order minus any dropped rows. On error no
// output is produced.
func (n *Normalizer) NormalizeWithReport(t *Table) (*Result, error) {
	startTime := time.Now()

	if t == nil || t.data == nil {
		return nil, invalidf("table is nil")
	}
	if !n.Policy.Valid() {
		return nil, invalidf("unknown missing value policy %q", n.Policy)
	}

	rowsIn, cols := t.Dims()
	logger.Sugar().Debugw("Normalizing table", "rows", rowsIn, "cols", cols, "policy", n.Policy, "workers", n.Workers)

	work, dropped, err := n.applyMissingPolicy(t)
	if err != nil {
		return nil, err
	}
	rows, _ := work.Dims()

	var (
		ranks     [][]int
		reference []float64
		wg        sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ranks = RankTable(work, n.Workers)
	}()
	go func() {
		defer wg.Done()
		reference = BuildReference(work, n.Workers)
	}()
	wg.Wait()

	columns := make([][]float64, cols)
	ties := make([]ColumnTies, cols)
	errs := make([]error, cols)
	forEachColumn(cols, n.Workers, func(j int) {
		groups := TieGroups(ranks[j])
		columns[j], errs[j] = poolGroups(groups, rows, reference)

		largest := 0
		for _, g := range groups {
			largest = max(largest, g.Size)
		}
		ties[j] = ColumnTies{Column: work.colIDs[j], Groups: len(groups), Largest: largest}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out, err := NewTable(work.rowIDs, work.colIDs, columns)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(startTime)
	log.Debug().
		Int("rows_in", rowsIn).
		Int("rows_out", rows).
		Int("cols", cols).
		Int("dropped", len(dropped)).
		Dur("elapsed", elapsed).
		Msg("Normalized table")

	return &Result{
		Table: out,
		Report: Report{
			Policy:      n.Policy,
			RowsIn:      rowsIn,
			RowsOut:     rows,
			DroppedRows: dropped,
			Reference:   reference,
			Ties:        ties,
			Elapsed:     elapsed,
		},
	}, nil
}

func (n *Normalizer) applyMissingPolicy(t *Table) (*Table, []string, error) {
	missing := t.MissingRows()
	if len(missing) == 0 {
		return t, nil, nil
	}

	switch n.Policy {
	case PolicyDrop:
		kept, err := t.DropRows(missing)
		if err != nil {
			return nil, nil, err
		}
		dropped := make([]string, len(missing))
		for k, i := range missing {
			dropped[k] = t.rowIDs[i]
		}
		log.Debug().Int("dropped", len(dropped)).Strs("rows", dropped).Msg("Dropped rows with missing values")
		return kept, dropped, nil
	default:
		return nil, nil, invalidf("table holds missing values in %d row(s), first in row %q", len(missing), t.rowIDs[missing[0]])
	}
}
