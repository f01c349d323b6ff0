// Package weights merges adjacent demand intervals of similar magnitude.
package weights

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/normalize"
)

// DefaultPasses caps the merge loop.
const DefaultPasses = 100

// Options tunes the simplifier.
type Options struct {
	Gap     float64 // largest weight difference that still merges; zero merges equal weights only
	Passes  int
	Epsilon float64
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Passes <= 0 {
		o.Passes = DefaultPasses
	}
	if o.Gap < 0 {
		o.Gap = 0
	}
	if o.Epsilon <= 0 {
		o.Epsilon = network.DefaultEpsilon
	}
}

// Report counts what the simplifier did.
type Report struct {
	Passes int `json:"passes"`
	Merged int `json:"merged"`
}

// Simplify merges weight intervals a, b of one segment when a ends where b
// starts, the station between them is not a transfer and their values differ
// by at most Gap. The merged interval keeps the larger value. Passes repeat
// until nothing merges, compressing coordinates after each pass.
func Simplify(n *network.Network, opts Options) (*network.Network, Report) {
	opts.SetDefaults()
	out := n.Clone()
	var rep Report
	for rep.Passes < opts.Passes {
		rep.Passes++
		merged := 0
		for si := range out.Segments {
			merged += mergeOnce(&out.Segments[si], opts.Gap)
		}
		out = normalize.Compress(out, opts.Epsilon)
		rep.Merged += merged
		if merged == 0 {
			break
		}
	}
	return out, rep
}

// mergeOnce runs one left-to-right merge sweep over a segment's weights.
func mergeOnce(s *network.Segment, gap float64) int {
	if len(s.Weights) < 2 {
		return 0
	}
	ws := slices.Clone(s.Weights)
	slices.SortStableFunc(ws, func(a, b network.Weight) int { return cmp.Compare(a.Start, b.Start) })

	out := ws[:1]
	merged := 0
	for _, w := range ws[1:] {
		last := &out[len(out)-1]
		if last.End == w.Start && !transferAt(s, w.Start) && math.Abs(last.Value-w.Value) <= gap {
			last.End = w.End
			last.Value = math.Max(last.Value, w.Value)
			merged++
			continue
		}
		out = append(out, w)
	}
	s.Weights = out
	return merged
}

func transferAt(s *network.Segment, i int) bool {
	return i >= 0 && i < len(s.Nodes) && s.Nodes[i].IsTransfer()
}
