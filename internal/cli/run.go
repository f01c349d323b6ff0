package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	"github.com/matzehuels/transitmap/pkg/layer"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// runOpts holds the command-line flags for the run command.
type runOpts struct {
	output      string // output file (single format) or base path
	formats     string // comma-separated output formats
	inputFormat string // "", "segments" or "geojson"
	config      string // TOML options file
	fromLayer   string // read input from this layer
	toLayer     string // store the schematic under this layer
	layerURL    string // layer store URL
	noCache     bool
	render      pipeline.RenderOptions

	// Pipeline overrides; applied only when the flag was set.
	seed           uint64
	attempts       int
	searcher       string
	collapseCap    float64
	weightGap      float64
	skipCorrection bool
	skipCompaction bool
	skipWeights    bool
	refresh        bool
}

// runCommand creates the run command: input network in, schematic out.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Turn a transit network into a schematic",
		Long: `Run the schematic pipeline on a network.

The input is segment JSON or GeoJSON (detected from the content), read from a
file, from stdin ("-") or from a stored layer (--from-layer). Options come from
built-in defaults, then --config, then individual flags.`,
		Example: `  transitmap run network.json
  transitmap run network.geojson -f json,svg -o out/berlin
  transitmap run --from-layer berlin --to-layer berlin-schematic --seed 7
  transitmap run network.json --config tuned.toml -f svg -o - > map.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			if input == "" && opts.fromLayer == "" {
				return errors.New(errors.ErrCodeInvalidInput, "need an input file or --from-layer")
			}
			pipeOpts, err := opts.pipelineOptions(cmd)
			if err != nil {
				return err
			}
			return c.runSchematic(cmd.Context(), input, &opts, pipeOpts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", `output file (single format), base path, or "-" for stdout`)
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s): json (default), routes, geojson, svg, dot, topology, png, pdf")
	f.StringVar(&opts.inputFormat, "input-format", "", "input format: segments or geojson (default: detect)")
	f.StringVarP(&opts.config, "config", "c", "", "TOML options file")
	f.StringVar(&opts.fromLayer, "from-layer", "", "read the input network from this layer")
	f.StringVar(&opts.toLayer, "to-layer", "", "store the schematic under this layer")
	f.StringVar(&opts.layerURL, "layer-store", "", "layer store URL (default $"+envLayerURL+" or a local file store)")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	f.BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")

	f.Uint64Var(&opts.seed, "seed", pipeline.DefaultSeed, "random seed")
	f.IntVar(&opts.attempts, "attempts", 0, "search attempts (default 500)")
	f.StringVar(&opts.searcher, "searcher", "", "search strategy: random-restart (default), greedy")
	f.Float64Var(&opts.collapseCap, "collapse-cap", 0, "longest U bridge that is collapsed (default 2.5)")
	f.Float64Var(&opts.weightGap, "weight-gap", 0, "largest weight difference that still merges")
	f.BoolVar(&opts.skipCorrection, "skip-correction", false, "skip U-shape correction")
	f.BoolVar(&opts.skipCompaction, "skip-compaction", false, "skip staple compaction")
	f.BoolVar(&opts.skipWeights, "skip-weights", false, "skip weight simplification")

	f.BoolVar(&opts.render.Detailed, "detailed", false, "label stations in drawings")
	f.BoolVar(&opts.render.Interactive, "interactive", false, "highlight routes on hover in SVG output")
	f.Float64Var(&opts.render.CellSize, "cell", 0, "SVG grid cell size in pixels (default 40)")
	f.Float64Var(&opts.render.Scale, "scale", 0, "PNG scale factor (default 2)")

	return cmd
}

// pipelineOptions merges the config file with the flags that were set.
func (o *runOpts) pipelineOptions(cmd *cobra.Command) (pipeline.Options, error) {
	var opts pipeline.Options
	if o.config != "" {
		loaded, err := pipeline.LoadOptions(o.config)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}
	f := cmd.Flags()
	if f.Changed("seed") || opts.Seed == 0 {
		opts.Seed = o.seed
	}
	if f.Changed("attempts") {
		opts.Attempts = o.attempts
	}
	if f.Changed("searcher") {
		opts.Searcher = o.searcher
	}
	if f.Changed("collapse-cap") {
		opts.CollapseCap = o.collapseCap
	}
	if f.Changed("weight-gap") {
		opts.WeightGap = o.weightGap
	}
	if f.Changed("skip-correction") {
		opts.SkipCorrection = o.skipCorrection
	}
	if f.Changed("skip-compaction") {
		opts.SkipCompaction = o.skipCompaction
	}
	if f.Changed("skip-weights") {
		opts.SkipWeights = o.skipWeights
	}
	opts.Refresh = o.refresh
	return opts, nil
}

func (c *CLI) runSchematic(ctx context.Context, input string, o *runOpts, opts pipeline.Options) error {
	if o.output == "-" {
		statusOut = os.Stderr
	}
	formats := parseFormats(o.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	var store layer.Store
	if o.fromLayer != "" || o.toLayer != "" {
		s, err := c.openLayers(ctx, o.layerURL)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	n, err := c.loadInput(ctx, store, input, o)
	if err != nil {
		return err
	}
	if input == "" {
		input = o.fromLayer
	}

	runner, err := c.newRunner(ctx, o.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spin := newSpinner(ctx, fmt.Sprintf("Schematizing %d segments...", len(n.Segments)))
	spin.Start()
	res, hit, err := runner.ExecuteWithCacheInfo(ctx, n, opts)
	spin.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	printSuccess("Schematic ready")
	printStats(res.Stats, hit)
	if res.Stats.Fallbacks > 0 {
		printWarning("%d links could not satisfy every constraint", res.Stats.Fallbacks)
	}

	artifacts, err := runner.Render(ctx, res.Network, formats, o.render)
	if err != nil {
		return err
	}
	if o.output != "" || o.toLayer == "" {
		if err := c.writeArtifacts(artifacts, formats, o.output, input); err != nil {
			return err
		}
	}

	if o.toLayer != "" {
		if err := store.Set(ctx, o.toLayer, res.Network); err != nil {
			return err
		}
		printStored(o.toLayer, len(res.Network.Segments), len(res.Network.Stations()))
	}
	return nil
}

func (c *CLI) loadInput(ctx context.Context, store layer.Store, input string, o *runOpts) (*network.Network, error) {
	if o.fromLayer != "" {
		n, err := store.Get(ctx, o.fromLayer)
		if err != nil {
			return nil, err
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		c.Logger.Debug("loaded layer", "layer", o.fromLayer, "segments", len(n.Segments))
		return n, nil
	}
	n, err := pipeline.Load(input, o.inputFormat)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded network", "file", input, "segments", len(n.Segments), "points", n.PointCount())
	return n, nil
}
