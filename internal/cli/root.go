// Package cli implements the qnorm command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/qnorm/internal/config"
	"github.com/tensorplex-labs/qnorm/internal/quantile"
	"github.com/tensorplex-labs/qnorm/internal/tableio"
	"github.com/tensorplex-labs/qnorm/internal/utils/logger"
)

type app struct {
	logLevel string
	cfg      *config.AppConfig
}

// NewRootCommand builds the qnorm command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "qnorm",
		Short:         "Quantile-normalize numeric tables with tie-aware pooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logger.Configure(a.logLevel, cfg.Environment)
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default from ENVIRONMENT)")

	root.AddCommand(newNormalizeCmd(a))
	root.AddCommand(newRemoteCmd(a))

	return root
}

// ioOpts holds the flags shared by every command that reads and writes a
// table.
type ioOpts struct {
	input     string
	output    string
	delimiter string
	indexName string
	precision int
	policy    string
}

func (o *ioOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", tableio.Stdio, "input table, - for stdin")
	cmd.Flags().StringVarP(&o.output, "output", "o", tableio.Stdio, "output table, - for stdout")
	cmd.Flags().StringVarP(&o.delimiter, "delimiter", "d", `\t`, "field delimiter")
	cmd.Flags().StringVar(&o.indexName, "index-name", tableio.DefaultIndexName, "header of the row identifier column in the output")
	cmd.Flags().IntVar(&o.precision, "precision", 0, "decimals to write, 0 for shortest round-trip form")
	cmd.Flags().StringVar(&o.policy, "missing", "", "missing value policy: drop or error (default from QNORM_MISSING_POLICY)")
}

// missingPolicy resolves the flag, falling back to the environment default.
func (o *ioOpts) missingPolicy(cfg *config.AppConfig) (quantile.MissingPolicy, error) {
	policy := o.policy
	if policy == "" && cfg != nil {
		policy = cfg.MissingPolicy
	}
	if policy == "" {
		return quantile.PolicyError, nil
	}
	return quantile.ParseMissingPolicy(policy)
}

func (o *ioOpts) readTable() (*quantile.Table, error) {
	delim, err := tableio.ParseDelimiter(o.delimiter)
	if err != nil {
		return nil, err
	}
	return tableio.ReadFile(o.input, tableio.ReadOptions{Delimiter: delim})
}

func (o *ioOpts) writeTable(t *quantile.Table) error {
	delim, err := tableio.ParseDelimiter(o.delimiter)
	if err != nil {
		return err
	}
	return tableio.WriteFile(o.output, t, tableio.WriteOptions{
		Delimiter: delim,
		IndexName: o.indexName,
		Precision: o.precision,
	})
}
