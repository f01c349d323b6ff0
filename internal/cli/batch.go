package cli

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// batchResult records the outcome of one batch input.
type batchResult struct {
	input  string
	stats  pipeline.Stats
	cached bool
	err    error
}

// batchCommand creates the batch command, which schematizes many files with
// a bounded number of concurrent pipelines.
func (c *CLI) batchCommand() *cobra.Command {
	var (
		opts     runOpts
		jobs     int
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>...",
		Short: "Schematize many network files concurrently",
		Long: `Run the pipeline on every input file. Each file is written next to its input
(or under --output as a directory prefix) in every requested format.`,
		Example: `  transitmap batch cities/*.json -f json,svg
  transitmap batch a.geojson b.geojson -j 2 --fail-fast`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeOpts, err := opts.pipelineOptions(cmd)
			if err != nil {
				return err
			}
			formats := parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			check := pipeOpts
			if err := check.ValidateAndSetDefaults(); err != nil {
				return err
			}
			if jobs <= 0 {
				jobs = runtime.NumCPU()
			}
			return c.runBatch(cmd.Context(), args, &opts, pipeOpts, formats, jobs, failFast)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s)")
	f.StringVar(&opts.inputFormat, "input-format", "", "input format: segments or geojson (default: detect)")
	f.StringVarP(&opts.config, "config", "c", "", "TOML options file")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	f.BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")
	f.Uint64Var(&opts.seed, "seed", pipeline.DefaultSeed, "random seed")
	f.IntVar(&opts.attempts, "attempts", 0, "search attempts (default 500)")
	f.StringVar(&opts.searcher, "searcher", "", "search strategy: random-restart (default), greedy")
	f.BoolVar(&opts.render.Detailed, "detailed", false, "label stations in drawings")
	f.IntVarP(&jobs, "jobs", "j", 0, "concurrent pipelines (default: number of CPUs)")
	f.BoolVar(&failFast, "fail-fast", false, "stop at the first failing input")

	return cmd
}

func (c *CLI) runBatch(ctx context.Context, inputs []string, o *runOpts, opts pipeline.Options, formats []string, jobs int, failFast bool) error {
	runner, err := c.newRunner(ctx, o.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, fmt.Sprintf("Schematizing %d networks...", len(inputs)))
	spin.Start()

	results := make([]batchResult, len(inputs))
	var finished atomic.Int32
	var mu sync.Mutex // serializes file output lines

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, input := range inputs {
		g.Go(func() error {
			res := c.batchOne(gctx, runner, input, o, opts, formats, &mu)
			results[i] = res
			done := finished.Add(1)
			spin.Update(fmt.Sprintf("Schematizing networks... %d/%d", done, len(inputs)))
			if res.err != nil && failFast {
				return fmt.Errorf("%s: %w", input, res.err)
			}
			return nil
		})
	}
	err = g.Wait()
	spin.Stop()

	failed := 0
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			printError("%s: %s", r.input, r.err)
		case r.input != "":
			printSuccess("%s", r.input)
			printStats(r.stats, r.cached)
		}
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Schematized %d of %d networks", len(inputs)-failed, len(inputs)))
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(inputs))
	}
	return nil
}

func (c *CLI) batchOne(ctx context.Context, runner *pipeline.Runner, input string, o *runOpts, opts pipeline.Options, formats []string, mu *sync.Mutex) batchResult {
	res := batchResult{input: input}
	n, err := pipeline.Load(input, o.inputFormat)
	if err != nil {
		res.err = err
		return res
	}
	out, hit, err := runner.ExecuteWithCacheInfo(ctx, n, opts)
	if err != nil {
		res.err = err
		return res
	}
	res.stats, res.cached = out.Stats, hit

	artifacts, err := runner.Render(ctx, out.Network, formats, o.render)
	if err != nil {
		res.err = err
		return res
	}
	mu.Lock()
	defer mu.Unlock()
	res.err = c.writeArtifacts(artifacts, formats, "", input)
	return res
}
