package cache

// Keyer builds cache keys. Implementations must be deterministic: equal
// inputs always give equal keys.
type Keyer interface {
	// SchematicKey is the key of a full pipeline run.
	SchematicKey(networkHash string, opts SchematicKeyOpts) string

	// ArtifactKey is the key of a rendered export of a network.
	ArtifactKey(networkHash string, opts ArtifactKeyOpts) string
}

// SchematicKeyOpts lists every option that changes the output of a run.
type SchematicKeyOpts struct {
	Seed                  uint64  `json:"seed"`
	Searcher              string  `json:"searcher"`
	Attempts              int     `json:"attempts"`
	ZCandidates           int     `json:"z_candidates"`
	CornerMin             float64 `json:"corner_min"`
	CornerMax             float64 `json:"corner_max"`
	ImprovementThreshold  float64 `json:"improvement_threshold"`
	CollapseCap           float64 `json:"collapse_cap"`
	CorrectionPasses      int     `json:"correction_passes"`
	AntiparallelTolerance float64 `json:"antiparallel_tolerance"`
	CompactionIterations  int     `json:"compaction_iterations"`
	MinLeg                float64 `json:"min_leg"`
	WeightGap             float64 `json:"weight_gap"`
	WeightPasses          int     `json:"weight_passes"`
	Epsilon               float64 `json:"epsilon"`
	MinUnit               float64 `json:"min_unit"`
	SkipCorrection        bool    `json:"skip_correction"`
	SkipCompaction        bool    `json:"skip_compaction"`
	SkipWeights           bool    `json:"skip_weights"`
}

// ArtifactKeyOpts lists the options of an export.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Detailed    bool    `json:"detailed"`
	CellSize    float64 `json:"cell_size,omitempty"`
	Interactive bool    `json:"interactive,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SchematicKey returns "schematic:<sha256>".
func (DefaultKeyer) SchematicKey(networkHash string, opts SchematicKeyOpts) string {
	return hashKey("schematic", networkHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(networkHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", networkHash, opts)
}
