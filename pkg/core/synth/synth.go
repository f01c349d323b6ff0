package synth

import (
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
)

// Defaults for [Options].
const (
	DefaultAttempts             = 500
	DefaultZCandidates          = 4
	DefaultCornerMin            = 0.1
	DefaultCornerMax            = 0.9
	DefaultImprovementThreshold = 20.0
)

// Options tunes candidate generation and the search.
type Options struct {
	Attempts             int
	ZCandidates          int
	CornerMin            float64
	CornerMax            float64
	ImprovementThreshold float64
	Epsilon              float64
}

// SetDefaults fills zero fields. A negative ZCandidates disables Z paths.
func (o *Options) SetDefaults() {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.ZCandidates == 0 {
		o.ZCandidates = DefaultZCandidates
	}
	if o.CornerMin <= 0 && o.CornerMax <= 0 {
		o.CornerMin, o.CornerMax = DefaultCornerMin, DefaultCornerMax
	}
	if o.ImprovementThreshold <= 0 {
		o.ImprovementThreshold = DefaultImprovementThreshold
	}
	if o.Epsilon <= 0 {
		o.Epsilon = network.DefaultEpsilon
	}
}

// Result is the synthesized skeleton of a network: one orthogonal path per
// link, ready for station injection.
type Result struct {
	Links     []topology.Link
	Paths     [][]orb.Point
	Corridors int
	Solution  Solution
}

// Solve cuts n into links at its key nodes and searches for orthogonal
// paths. A nil searcher uses [RandomRestart] configured from opts. The best
// solution found is always returned, even when it still crosses.
func Solve(n *network.Network, s Searcher, rng *rand.Rand, opts Options) Result {
	opts.SetDefaults()
	if s == nil {
		s = RandomRestart{Attempts: opts.Attempts, ImprovementThreshold: opts.ImprovementThreshold}
	}
	keys := topology.KeyNodes(n, opts.Epsilon)
	links := topology.Links(n, keys, opts.Epsilon)

	p := NewProblem(links, opts)
	sol := s.Search(p, rng)
	return Result{
		Links:     links,
		Paths:     p.LinkPaths(sol),
		Corridors: p.Corridors(),
		Solution:  sol,
	}
}

// CountCrossings counts proper crossings between all pieces of n.
func CountCrossings(n *network.Network, eps float64) int {
	return geom.CountCrossings(pieces(n), eps)
}

// CountOverlaps counts collinear overlaps between all pieces of n.
func CountOverlaps(n *network.Network, eps float64) int {
	return geom.CountOverlaps(pieces(n), eps)
}

func pieces(n *network.Network) []geom.Piece {
	var out []geom.Piece
	for _, s := range n.Segments {
		out = append(out, geom.Pieces(s.Points)...)
	}
	return out
}
