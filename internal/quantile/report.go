package quantile

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// PrintReport writes a plain-text summary of a normalization run.
func PrintReport(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\nQuantile normalization (%s policy)\n", r.Policy)
	fmt.Fprintf(&b, "Rows in: %d, rows out: %d, elapsed: %s\n", r.RowsIn, r.RowsOut, r.Elapsed)
	if len(r.DroppedRows) > 0 {
		fmt.Fprintf(&b, "Dropped rows: %s\n", strings.Join(r.DroppedRows, ", "))
	}

	// The reference is ascending, which is what stat.Quantile expects.
	if len(r.Reference) > 0 {
		fmt.Fprintf(&b, "Reference: min=%.6f median=%.6f max=%.6f\n",
			r.Reference[0],
			stat.Quantile(0.5, stat.Empirical, r.Reference, nil),
			r.Reference[len(r.Reference)-1],
		)
	}

	b.WriteString("Column               | Tie groups | Largest group\n")
	b.WriteString("---------------------|------------|" + strings.Repeat("-", 14) + "\n")
	for _, ct := range r.Ties {
		fmt.Fprintf(&b, "%-20s | %10d | %13d\n", ct.Column, ct.Groups, ct.Largest)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
