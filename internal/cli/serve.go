package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/internal/server"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the schematic pipeline and the layer store over HTTP.

Settings come from the environment (optionally loaded from --env-file):
  ` + server.EnvAddr + `            listen address (default ` + server.DefaultAddr + `)
  ` + server.EnvCacheURL + `       result cache URL
  ` + server.EnvLayerURL + `       layer store URL
  ` + server.EnvRedisURL + `       Redis URL used for both when the above are unset
  ` + server.EnvMongoURI + `       MongoDB URI used for the layer store
  ` + server.EnvAllowedOrigins + ` comma-separated CORS origins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := server.ConfigFromEnv(envFile)
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			s, err := server.Open(ctx, cfg, c.Logger)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "environment file to load")

	return cmd
}
