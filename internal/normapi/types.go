// Package normapi exposes quantile normalization over the schnitz transport.
package normapi

import (
	"github.com/tensorplex-labs/qnorm/internal/quantile"
)

// NormalizeRequest carries a table column by column. A null cell is a
// missing value. An empty MissingPolicy uses the server default.
type NormalizeRequest struct {
	RowIDs        []string     `json:"row_ids"`
	ColIDs        []string     `json:"col_ids"`
	Columns       [][]*float64 `json:"columns"`
	MissingPolicy string       `json:"missing_policy,omitempty"`
}

type NormalizeResponse struct {
	RowIDs      []string    `json:"row_ids"`
	ColIDs      []string    `json:"col_ids"`
	Columns     [][]float64 `json:"columns"`
	DroppedRows []string    `json:"dropped_rows,omitempty"`
	Reference   []float64   `json:"reference"`
	Cached      bool        `json:"cached"`
}

func NewNormalizeRequest(t *quantile.Table, policy quantile.MissingPolicy) NormalizeRequest {
	columns := t.Columns()
	wire := make([][]*float64, len(columns))
	for j, col := range columns {
		wire[j] = make([]*float64, len(col))
		for i := range col {
			if !quantile.IsMissing(col[i]) {
				wire[j][i] = &col[i]
			}
		}
	}

	return NormalizeRequest{
		RowIDs:        t.RowIDs(),
		ColIDs:        t.ColIDs(),
		Columns:       wire,
		MissingPolicy: string(policy),
	}
}

func (r NormalizeRequest) Table() (*quantile.Table, error) {
	columns := make([][]float64, len(r.Columns))
	for j, col := range r.Columns {
		columns[j] = make([]float64, len(col))
		for i, v := range col {
			if v == nil {
				columns[j][i] = quantile.Missing
				continue
			}
			columns[j][i] = *v
		}
	}
	return quantile.NewTable(r.RowIDs, r.ColIDs, columns)
}

func newNormalizeResponse(res *quantile.Result) NormalizeResponse {
	return NormalizeResponse{
		RowIDs:      res.Table.RowIDs(),
		ColIDs:      res.Table.ColIDs(),
		Columns:     res.Table.Columns(),
		DroppedRows: res.Report.DroppedRows,
		Reference:   res.Report.Reference,
	}
}

func (r NormalizeResponse) Table() (*quantile.Table, error) {
	return quantile.NewTable(r.RowIDs, r.ColIDs, r.Columns)
}
