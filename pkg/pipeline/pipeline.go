// Package pipeline turns a geographic transit network into an orthogonal
// schematic.
//
// This package composes the stage packages under pkg/core into one run that
// the CLI, the batch mode and the API server all share. Centralizing the
// composition keeps defaults, validation and caching identical across entry
// points.
//
// # Architecture
//
// A run executes these stages in order. Each takes the previous network and
// returns a new one; the input is never modified.
//
//  1. quantize: snap coordinates to an integer grid (grid.Quantize)
//  2. straighten: spread points evenly between key nodes (grid.Straighten)
//  3. synthesize: pick an orthogonal path per link (synth.Solve)
//  4. inject: put stations back at their arc-length ratio (inject.Apply)
//  5. correct: collapse U-shaped detours (correct.Correct)
//  6. compact: slide staples inward with ghost moves (compact.Compact)
//  7. simplify: merge similar weight intervals and compress coordinates
//     (weights.Simplify)
//
// Points and nodes stay in lockstep after every stage; a mismatch aborts the
// run with INTERNAL_ERROR.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, n, pipeline.Options{Seed: 7})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stats.CrossingsAfter)
//
// Run without a cache:
//
//	result, err := pipeline.Schematize(ctx, n, opts)
//
// Render the output:
//
//	artifacts, err := pipeline.Render(ctx, result.Network, []string{"json", "svg"}, renderOpts)
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/core/compact"
	"github.com/matzehuels/transitmap/pkg/core/correct"
	"github.com/matzehuels/transitmap/pkg/core/grid"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/synth"
	"github.com/matzehuels/transitmap/pkg/core/weights"
	"github.com/matzehuels/transitmap/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Batch
// =============================================================================

const (
	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultSearcher is the default path search strategy.
	DefaultSearcher = SearcherRandomRestart
)

// Search strategies.
const (
	SearcherRandomRestart = "random-restart"
	SearcherGreedy        = "greedy"
)

// ValidSearchers is the set of supported search strategies.
var ValidSearchers = map[string]bool{
	SearcherRandomRestart: true,
	SearcherGreedy:        true,
}

// Stage names, in execution order.
const (
	StageQuantize   = "quantize"
	StageStraighten = "straighten"
	StageSynthesize = "synthesize"
	StageInject     = "inject"
	StageCorrect    = "correct"
	StageCompact    = "compact"
	StageNormalize  = "normalize"
	StageSimplify   = "simplify"
)

// Stages lists the stage names in execution order.
var Stages = []string{
	StageQuantize, StageStraighten, StageSynthesize, StageInject,
	StageCorrect, StageCompact, StageNormalize, StageSimplify,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains every tunable of a run. Zero values take the defaults of
// the stage packages. Options decode from TOML files ([LoadOptions]) and
// JSON API requests.
type Options struct {
	Seed     uint64 `toml:"seed" json:"seed,omitempty"`
	Searcher string `toml:"searcher" json:"searcher,omitempty"`

	// Path synthesis
	Attempts             int     `toml:"attempts" json:"attempts,omitempty"`
	ZCandidates          int     `toml:"z_candidates" json:"z_candidates,omitempty"` // negative disables Z paths
	CornerMin            float64 `toml:"corner_min" json:"corner_min,omitempty"`
	CornerMax            float64 `toml:"corner_max" json:"corner_max,omitempty"`
	ImprovementThreshold float64 `toml:"improvement_threshold" json:"improvement_threshold,omitempty"`

	// Topology correction
	CollapseCap           float64 `toml:"collapse_cap" json:"collapse_cap,omitempty"`
	CorrectionPasses      int     `toml:"correction_passes" json:"correction_passes,omitempty"`
	AntiparallelTolerance float64 `toml:"antiparallel_tolerance" json:"antiparallel_tolerance,omitempty"`

	// Compaction
	CompactionIterations int     `toml:"compaction_iterations" json:"compaction_iterations,omitempty"`
	MinLeg               float64 `toml:"min_leg" json:"min_leg,omitempty"`

	// Weight simplification
	WeightGap    float64 `toml:"weight_gap" json:"weight_gap,omitempty"`
	WeightPasses int     `toml:"weight_passes" json:"weight_passes,omitempty"`

	// Numerics
	Epsilon float64 `toml:"epsilon" json:"epsilon,omitempty"`
	MinUnit float64 `toml:"min_unit" json:"min_unit,omitempty"`

	// Optional stages
	SkipCorrection bool `toml:"skip_correction" json:"skip_correction,omitempty"`
	SkipCompaction bool `toml:"skip_compaction" json:"skip_compaction,omitempty"`
	SkipWeights    bool `toml:"skip_weights" json:"skip_weights,omitempty"`

	// Refresh ignores cached results (the fresh result is still stored).
	Refresh bool `toml:"-" json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a run.
type Result struct {
	// RunID identifies the run in logs and API responses.
	RunID string `json:"run_id"`

	// Network is the schematic network.
	Network *network.Network `json:"-"`

	// InputHash is the content hash of the input network.
	InputHash string `json:"input_hash"`

	// Stats contains per-stage reports and timings.
	Stats Stats `json:"stats"`

	// CacheInfo tells whether the run came from the cache.
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains run statistics.
type Stats struct {
	Segments        int `json:"segments"`
	Points          int `json:"points"`
	Stations        int `json:"stations"`
	Links           int `json:"links"`
	Corridors       int `json:"corridors"`
	CrossingsBefore int `json:"crossings_before"`
	CrossingsAfter  int `json:"crossings_after"`
	OverlapsAfter   int `json:"overlaps_after"`

	// Fallbacks counts links placed from the unfiltered candidate pool
	// (CONSTRAINT_UNSATISFIABLE).
	Fallbacks int `json:"fallbacks"`
	Attempts  int `json:"attempts"`

	Grid       grid.Report    `json:"grid"`
	Correction correct.Report `json:"correction"`
	Compaction compact.Report `json:"compaction"`
	Weights    weights.Report `json:"weights"`

	Durations map[string]time.Duration `json:"durations"`
	Total     time.Duration            `json:"total"`
}

// CacheInfo tracks cache use for a run.
type CacheInfo struct {
	Hit bool   `json:"hit"`
	Key string `json:"key,omitempty"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateSearcher checks that a search strategy is known.
func ValidateSearcher(name string) error {
	if !ValidSearchers[name] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid searcher: %q (must be one of: %s, %s)", name, SearcherRandomRestart, SearcherGreedy)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults applies defaults and validates the result.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults fills zero fields with the stage defaults.
func (o *Options) SetDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Searcher == "" {
		o.Searcher = DefaultSearcher
	}
	if o.Attempts == 0 {
		o.Attempts = synth.DefaultAttempts
	}
	if o.ZCandidates == 0 {
		o.ZCandidates = synth.DefaultZCandidates
	}
	if o.CornerMin == 0 && o.CornerMax == 0 {
		o.CornerMin, o.CornerMax = synth.DefaultCornerMin, synth.DefaultCornerMax
	}
	if o.ImprovementThreshold == 0 {
		o.ImprovementThreshold = synth.DefaultImprovementThreshold
	}
	if o.CollapseCap == 0 {
		o.CollapseCap = correct.DefaultCollapseCap
	}
	if o.CorrectionPasses == 0 {
		o.CorrectionPasses = correct.DefaultPasses
	}
	if o.AntiparallelTolerance == 0 {
		o.AntiparallelTolerance = correct.DefaultAntiparallelTolerance
	}
	if o.CompactionIterations == 0 {
		o.CompactionIterations = compact.DefaultIterations
	}
	if o.MinLeg == 0 {
		o.MinLeg = compact.DefaultMinLeg
	}
	if o.WeightPasses == 0 {
		o.WeightPasses = weights.DefaultPasses
	}
	if o.Epsilon == 0 {
		o.Epsilon = network.DefaultEpsilon
	}
	if o.MinUnit == 0 {
		o.MinUnit = grid.DefaultMinUnit
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks ranges. Call it after SetDefaults.
func (o *Options) Validate() error {
	if err := ValidateSearcher(o.Searcher); err != nil {
		return err
	}
	switch {
	case o.Attempts < 0:
		return invalid("attempts", o.Attempts, "must be positive")
	case o.CornerMin <= 0 || o.CornerMax >= 1 || o.CornerMin >= o.CornerMax:
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid corner range [%g, %g] (need 0 < corner_min < corner_max < 1)", o.CornerMin, o.CornerMax)
	case o.ImprovementThreshold < 0:
		return invalid("improvement_threshold", o.ImprovementThreshold, "must not be negative")
	case o.CollapseCap < 0:
		return invalid("collapse_cap", o.CollapseCap, "must not be negative")
	case o.CorrectionPasses < 0:
		return invalid("correction_passes", o.CorrectionPasses, "must be positive")
	case o.AntiparallelTolerance < 0 || o.AntiparallelTolerance > 2:
		return invalid("antiparallel_tolerance", o.AntiparallelTolerance, "must be in [0, 2]")
	case o.CompactionIterations < 0:
		return invalid("compaction_iterations", o.CompactionIterations, "must be positive")
	case o.MinLeg < 0:
		return invalid("min_leg", o.MinLeg, "must not be negative")
	case o.WeightGap < 0:
		return invalid("weight_gap", o.WeightGap, "must not be negative")
	case o.WeightPasses < 0:
		return invalid("weight_passes", o.WeightPasses, "must be positive")
	case o.Epsilon <= 0:
		return invalid("epsilon", o.Epsilon, "must be positive")
	case o.MinUnit <= 0:
		return invalid("min_unit", o.MinUnit, "must be positive")
	}
	return nil
}

func invalid(field string, v any, why string) error {
	return errors.New(errors.ErrCodeInvalidConfig, "invalid %s: %v (%s)", field, v, why)
}

// KeyOpts returns the cache key options for a run.
func (o *Options) KeyOpts() cache.SchematicKeyOpts {
	return cache.SchematicKeyOpts{
		Seed:                  o.Seed,
		Searcher:              o.Searcher,
		Attempts:              o.Attempts,
		ZCandidates:           o.ZCandidates,
		CornerMin:             o.CornerMin,
		CornerMax:             o.CornerMax,
		ImprovementThreshold:  o.ImprovementThreshold,
		CollapseCap:           o.CollapseCap,
		CorrectionPasses:      o.CorrectionPasses,
		AntiparallelTolerance: o.AntiparallelTolerance,
		CompactionIterations:  o.CompactionIterations,
		MinLeg:                o.MinLeg,
		WeightGap:             o.WeightGap,
		WeightPasses:          o.WeightPasses,
		Epsilon:               o.Epsilon,
		MinUnit:               o.MinUnit,
		SkipCorrection:        o.SkipCorrection,
		SkipCompaction:        o.SkipCompaction,
		SkipWeights:           o.SkipWeights,
	}
}

// =============================================================================
// Options Files
// =============================================================================

// LoadOptions decodes a TOML options file. Unknown keys are an
// INVALID_CONFIG error so that typos do not silently fall back to defaults.
//
//	seed = 7
//	attempts = 200
//	collapse_cap = 3.0
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "options file %s", path)
		}
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	return DecodeOptions(data)
}

// DecodeOptions is [LoadOptions] for in-memory TOML.
func DecodeOptions(data []byte) (Options, error) {
	var opts Options
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode options")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Options{}, errors.New(errors.ErrCodeInvalidConfig, "unknown option %q", undecoded[0].String())
	}
	return opts, nil
}

// EncodeOptions writes opts as TOML. Runtime fields are omitted.
func EncodeOptions(w io.Writer, opts Options) error {
	return toml.NewEncoder(w).Encode(opts)
}
