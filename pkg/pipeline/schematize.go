package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/transitmap/pkg/core/compact"
	"github.com/matzehuels/transitmap/pkg/core/correct"
	"github.com/matzehuels/transitmap/pkg/core/grid"
	"github.com/matzehuels/transitmap/pkg/core/inject"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/normalize"
	"github.com/matzehuels/transitmap/pkg/core/synth"
	"github.com/matzehuels/transitmap/pkg/core/weights"
	"github.com/matzehuels/transitmap/pkg/errors"
	"github.com/matzehuels/transitmap/pkg/observability"
)

// Schematize runs every stage on n and returns the schematic. The input is
// not modified. Runs with equal input and options give equal output.
//
// Errors carry codes from pkg/errors: INVALID_CONFIG for bad options,
// INPUT_SHAPE for unusable input, TIMEOUT when ctx ends between stages and
// INTERNAL_ERROR when a stage breaks point/node parity.
func Schematize(ctx context.Context, n *network.Network, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()

	res := &Result{RunID: uuid.NewString()}
	st := &res.Stats
	st.Segments = len(n.Segments)
	st.Points = n.PointCount()
	st.Stations = len(n.Stations())
	st.Durations = make(map[string]time.Duration, len(Stages))
	st.CrossingsBefore = synth.CountCrossings(n, opts.Epsilon)

	r := &run{ctx: ctx, opts: &opts, stats: st, cur: n}

	r.stage(StageQuantize, func(in *network.Network) (*network.Network, error) {
		out, rep, err := grid.Quantize(in, grid.Options{Epsilon: opts.Epsilon, MinUnit: opts.MinUnit})
		st.Grid = rep
		return out, err
	})
	r.stage(StageStraighten, func(in *network.Network) (*network.Network, error) {
		return grid.Straighten(in, opts.Epsilon), nil
	})

	var solved synth.Result
	r.stage(StageSynthesize, func(in *network.Network) (*network.Network, error) {
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef))
		solved = synth.Solve(in, searcher(opts), rng, synth.Options{
			Attempts:             opts.Attempts,
			ZCandidates:          opts.ZCandidates,
			CornerMin:            opts.CornerMin,
			CornerMax:            opts.CornerMax,
			ImprovementThreshold: opts.ImprovementThreshold,
			Epsilon:              opts.Epsilon,
		})
		st.Links = len(solved.Links)
		st.Corridors = solved.Corridors
		st.Fallbacks = solved.Solution.Fallbacks
		st.Attempts = solved.Solution.Attempts
		return in, nil
	})
	r.stage(StageInject, func(in *network.Network) (*network.Network, error) {
		return inject.Apply(in, solved.Links, solved.Paths, opts.Epsilon)
	})
	if !opts.SkipCorrection {
		r.stage(StageCorrect, func(in *network.Network) (*network.Network, error) {
			out, rep := correct.Correct(in, correct.Options{
				Passes:                opts.CorrectionPasses,
				CollapseCap:           opts.CollapseCap,
				AntiparallelTolerance: opts.AntiparallelTolerance,
				Epsilon:               opts.Epsilon,
			})
			st.Correction = rep
			return out, nil
		})
	}
	if !opts.SkipCompaction {
		r.stage(StageCompact, func(in *network.Network) (*network.Network, error) {
			out, rep := compact.Compact(in, compact.Options{
				Iterations: opts.CompactionIterations,
				MinLeg:     opts.MinLeg,
				Epsilon:    opts.Epsilon,
			})
			st.Compaction = rep
			return out, nil
		})
	}
	r.stage(StageNormalize, func(in *network.Network) (*network.Network, error) {
		return normalize.Compress(in, opts.Epsilon), nil
	})
	if !opts.SkipWeights {
		r.stage(StageSimplify, func(in *network.Network) (*network.Network, error) {
			out, rep := weights.Simplify(in, weights.Options{
				Gap:     opts.WeightGap,
				Passes:  opts.WeightPasses,
				Epsilon: opts.Epsilon,
			})
			st.Weights = rep
			return out, nil
		})
	}
	if r.err != nil {
		return nil, r.err
	}

	res.Network = r.cur
	st.CrossingsAfter = synth.CountCrossings(r.cur, opts.Epsilon)
	st.OverlapsAfter = synth.CountOverlaps(r.cur, opts.Epsilon)
	st.Total = time.Since(start)

	if st.Fallbacks > 0 {
		observability.Pipeline().OnFallback(ctx, res.RunID, st.Fallbacks)
		logger.Warn("some links violate hard constraints",
			"code", errors.ErrCodeConstraintUnsatisfiable,
			"links", st.Fallbacks,
			"run", res.RunID)
	}
	logger.Info("schematic complete",
		"run", res.RunID,
		"segments", len(r.cur.Segments),
		"crossings", st.CrossingsAfter,
		"overlaps", st.OverlapsAfter,
		"duration", st.Total)
	return res, nil
}

func searcher(opts Options) synth.Searcher {
	if opts.Searcher == SearcherGreedy {
		return synth.Greedy{}
	}
	return synth.RandomRestart{Attempts: opts.Attempts, ImprovementThreshold: opts.ImprovementThreshold}
}

// run threads a network through stages and stops at the first error.
type run struct {
	ctx   context.Context
	opts  *Options
	stats *Stats
	cur   *network.Network
	err   error
}

func (r *run) stage(name string, fn func(*network.Network) (*network.Network, error)) {
	if r.err != nil {
		return
	}
	if err := r.ctx.Err(); err != nil {
		r.err = errors.Wrap(errors.ErrCodeTimeout, err, "before %s", name)
		return
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(r.ctx, name, len(r.cur.Segments))
	start := time.Now()

	out, err := fn(r.cur)
	if err == nil {
		err = out.CheckParity()
	}
	elapsed := time.Since(start)
	r.stats.Durations[name] = elapsed

	segments := len(r.cur.Segments)
	if out != nil {
		segments = len(out.Segments)
	}
	hooks.OnStageComplete(r.ctx, name, segments, elapsed, err)
	if err != nil {
		r.err = err
		return
	}
	r.opts.Logger.Debug("stage done", "stage", name, "segments", segments, "duration", elapsed)
	r.cur = out
}
