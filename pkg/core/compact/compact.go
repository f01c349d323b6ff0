// Package compact removes slack from an orthogonal layout with ghost moves.
//
// A staple is a leg of a stitched chain whose two neighbouring legs leave it
// toward the same side. Sliding the middle leg toward that side shortens both
// neighbours by the same amount. The ghost move for a staple slides the
// middle leg by the shorter neighbour's length minus MinLeg. It is legal
// only when:
//
//   - it creates no new collinear overlap involving a moved piece
//   - no other point of the network lies inside or on the swept rectangle
//   - no piece anywhere becomes diagonal
//
// Each iteration applies the smallest legal move and starts over. Every move
// shortens the network, so the loop reaches a fixpoint.
package compact

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Defaults for [Options].
const (
	DefaultIterations = 150
	DefaultMinLeg     = 1.0
)

// Options tunes compaction.
type Options struct {
	Iterations int
	MinLeg     float64 // neighbour legs never get shorter than this
	Epsilon    float64
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.MinLeg <= 0 {
		o.MinLeg = DefaultMinLeg
	}
	if o.Epsilon <= 0 {
		o.Epsilon = network.DefaultEpsilon
	}
}

// Report counts what compaction did.
type Report struct {
	Iterations int     `json:"iterations"`
	Moves      int     `json:"moves"`
	Shortened  float64 `json:"shortened"` // total length removed
}

// Move is a ghost move: the chain points From..To slide by Delta.
type Move struct {
	Chain    int
	From, To int
	Delta    orb.Point
	Size     float64
}

// Staples lists the ghost moves available in the chains, smallest first.
func Staples(chains []network.Chain, opts Options) []Move {
	opts.SetDefaults()
	eps := opts.Epsilon
	var out []Move
	for ci, c := range chains {
		p := c.Points
		corners := geom.Corners(p, eps)
		for j := 0; j+3 < len(corners); j++ {
			a0, b0, b1, c1 := corners[j], corners[j+1], corners[j+2], corners[j+3]
			first := sub(p[a0], p[b0])  // middle leg toward the first neighbour's far end
			second := sub(p[c1], p[b1]) // middle leg toward the second neighbour's far end
			la, lc := norm(first), norm(second)
			if la <= eps || lc <= eps {
				continue
			}
			if (first[0]*second[0]+first[1]*second[1])/(la*lc) < 1-eps {
				continue
			}
			size := math.Min(la, lc) - opts.MinLeg
			if size <= eps {
				continue
			}
			u := orb.Point{first[0] / la, first[1] / la}
			out = append(out, Move{
				Chain: ci,
				From:  b0,
				To:    b1,
				Delta: orb.Point{u[0] * size, u[1] * size},
				Size:  size,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Move) int { return cmp.Compare(a.Size, b.Size) })
	return out
}

// Compact applies legal ghost moves, smallest first, until none is left or
// the iteration cap is reached. The input is not modified.
func Compact(n *network.Network, opts Options) (*network.Network, Report) {
	opts.SetDefaults()
	eps := opts.Epsilon
	out := n.Clone()
	var rep Report

	for rep.Iterations < opts.Iterations {
		rep.Iterations++
		chains := network.Stitch(out, eps)
		applied := false
		for _, m := range Staples(chains, opts) {
			if next, ok := tryMove(out, chains[m.Chain], m, eps); ok {
				out = next
				rep.Moves++
				rep.Shortened += 2 * m.Size
				applied = true
				break
			}
		}
		if !applied {
			break
		}
		out.Cleanup(eps)
	}
	return out, rep
}

// tryMove evaluates a ghost move against n and returns the moved copy when
// the move is legal.
func tryMove(n *network.Network, c network.Chain, m Move, eps float64) (*network.Network, bool) {
	moves := make(map[network.Key]orb.Point)
	var before, after []orb.Point
	for i := m.From; i <= m.To; i++ {
		p := c.Points[i]
		k := network.KeyOf(p, eps)
		if _, dup := moves[k]; dup {
			continue
		}
		q := orb.Point{p[0] + m.Delta[0], p[1] + m.Delta[1]}
		moves[k] = q
		before = append(before, p)
		after = append(after, q)
	}

	// Area interference: nothing but the moved points may touch the swept
	// rectangle.
	swept := orb.MultiPoint(append(slices.Clone(before), after...)).Bound().Pad(eps)
	for _, s := range n.Segments {
		for _, p := range s.Points {
			if _, moving := moves[network.KeyOf(p, eps)]; moving {
				continue
			}
			if swept.Contains(p) {
				return nil, false
			}
		}
	}

	trial := n.Clone()
	network.MoveKeys(trial, moves, eps)
	if !trial.AllAxisAligned(eps) {
		return nil, false
	}
	if overlapsAt(trial, after, eps) > overlapsAt(n, before, eps) {
		return nil, false
	}
	return trial, true
}

// overlapsAt counts collinear overlaps between pieces touching one of the
// given points and every other piece of n.
func overlapsAt(n *network.Network, at []orb.Point, eps float64) int {
	touching := make(map[network.Key]bool, len(at))
	for _, p := range at {
		touching[network.KeyOf(p, eps)] = true
	}
	var moved, all []geom.Piece
	for _, s := range n.Segments {
		for _, pc := range geom.Pieces(s.Points) {
			all = append(all, pc)
			if touching[network.KeyOf(pc.A, eps)] || touching[network.KeyOf(pc.B, eps)] {
				moved = append(moved, pc)
			}
		}
	}
	count := 0
	for _, a := range moved {
		for _, b := range all {
			if a != b && geom.CollinearOverlap(a, b, eps) {
				count++
			}
		}
	}
	return count
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func norm(v orb.Point) float64 { return planar.Distance(orb.Point{}, v) }
