package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/pkg/layer"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// openLayers opens the layer store at rawURL, or the default store.
func (c *CLI) openLayers(ctx context.Context, rawURL string) (layer.Store, error) {
	if rawURL == "" {
		rawURL = defaultLayerURL()
	}
	s, err := layer.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opened layer store", "store", layer.Describe(rawURL))
	return s, nil
}

// layerCommand creates the layer management command.
func (c *CLI) layerCommand() *cobra.Command {
	var storeURL string

	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Read and write stored network layers",
		Long: `Manage named networks in a layer store.

The store is chosen by --store, then $` + envLayerURL + `, then a file store in
the user data directory. Supported URLs: mem://, file:///dir, redis://host/db,
mongodb://host/database.`,
	}
	cmd.PersistentFlags().StringVar(&storeURL, "store", "", "layer store URL")

	cmd.AddCommand(c.layerGetCommand(&storeURL))
	cmd.AddCommand(c.layerSetCommand(&storeURL))
	cmd.AddCommand(c.layerListCommand(&storeURL))
	cmd.AddCommand(c.layerDeleteCommand(&storeURL))
	cmd.AddCommand(c.layerBackendsCommand())

	return cmd
}

// layerGetCommand creates the "layer get" subcommand.
func (c *CLI) layerGetCommand(storeURL *string) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Export a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openLayers(ctx, *storeURL)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				statusOut = os.Stderr
				output = "-"
			}
			artifacts, err := pipeline.Render(ctx, n, []string{format}, pipeline.RenderOptions{})
			if err != nil {
				return err
			}
			return c.writeArtifacts(artifacts, []string{format}, output, args[0])
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatJSON, "export format")
	return cmd
}

// layerSetCommand creates the "layer set" subcommand.
func (c *CLI) layerSetCommand(storeURL *string) *cobra.Command {
	var inputFormat string

	cmd := &cobra.Command{
		Use:   "set <id> <file>",
		Short: "Store a network file as a layer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := pipeline.Load(args[1], inputFormat)
			if err != nil {
				return err
			}
			s, err := c.openLayers(ctx, *storeURL)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Set(ctx, args[0], n); err != nil {
				return err
			}
			printStored(args[0], len(n.Segments), len(n.Stations()))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input format: segments or geojson (default: detect)")
	return cmd
}

// layerListCommand creates the "layer list" subcommand.
func (c *CLI) layerListCommand(storeURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openLayers(ctx, *storeURL)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := s.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No layers stored")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(c.out(), id)
			}
			return nil
		},
	}
}

// layerDeleteCommand creates the "layer delete" subcommand.
func (c *CLI) layerDeleteCommand(storeURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openLayers(ctx, *storeURL)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted layer %s", args[0])
			return nil
		},
	}
}

// layerBackendsCommand creates the "layer list-backends" subcommand.
func (c *CLI) layerBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-backends",
		Short: "List supported layer store URL schemes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range layer.Backends {
				fmt.Fprintln(c.out(), b)
			}
			printDetail("default: %s", layer.Describe(defaultLayerURL()))
			return nil
		},
	}
}
