package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/qnorm/internal/quantile"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var (
		opts    ioOpts
		workers int
		report  bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Quantile-normalize a delimited table locally",
		Example: `  qnorm normalize -i counts.tsv -o normalized.tsv --missing drop
  cat counts.csv | qnorm normalize -d , --report > normalized.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := opts.missingPolicy(a.cfg)
			if err != nil {
				return err
			}
			if workers == 0 && a.cfg != nil {
				workers = a.cfg.Workers
			}

			table, err := opts.readTable()
			if err != nil {
				return err
			}

			res, err := quantile.NewNormalizer(
				quantile.WithMissingPolicy(policy),
				quantile.WithWorkers(workers),
			).NormalizeWithReport(table)
			if err != nil {
				return err
			}

			if err := opts.writeTable(res.Table); err != nil {
				return err
			}

			log.Info().
				Int("rows", res.Report.RowsOut).
				Int("dropped", len(res.Report.DroppedRows)).
				Dur("elapsed", res.Report.Elapsed).
				Msg("Table normalized")

			if report {
				return quantile.PrintReport(cmd.ErrOrStderr(), res.Report)
			}
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "columns processed concurrently, 0 for QNORM_WORKERS or GOMAXPROCS")
	cmd.Flags().BoolVar(&report, "report", false, "print a run summary to stderr")

	return cmd
}
