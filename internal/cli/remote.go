package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tensorplex-labs/qnorm/internal/config"
	"github.com/tensorplex-labs/qnorm/internal/normapi"
)

func newRemoteCmd(a *app) *cobra.Command {
	var (
		opts   ioOpts
		server string
	)

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Quantile-normalize a delimited table on a qnorm server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := opts.missingPolicy(a.cfg)
			if err != nil {
				return err
			}

			clientCfg := config.ClientEnvConfig{}
			if a.cfg != nil {
				clientCfg = a.cfg.ClientEnvConfig
			}
			if server != "" {
				clientCfg.ServerURL = server
			}

			client, err := normapi.NewClient(&clientCfg)
			if err != nil {
				return err
			}
			defer client.Close()

			table, err := opts.readTable()
			if err != nil {
				return err
			}

			out, resp, err := client.Normalize(cmd.Context(), table, policy)
			if err != nil {
				return err
			}

			log.Info().
				Str("server", clientCfg.ServerURL).
				Int("dropped", len(resp.DroppedRows)).
				Bool("cached", resp.Cached).
				Msg("Table normalized remotely")

			return opts.writeTable(out)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&server, "server", "", "server base URL (default from QNORM_SERVER_URL)")

	return cmd
}
