// Package normalize collapses sparse layout coordinates onto consecutive
// integers.
//
// Each axis is handled on its own: the distinct values that occur are sorted
// and replaced by their rank. Relative order on each axis is preserved, so
// orthogonality and crossings are unchanged. Applying it twice is a no-op.
package normalize

import (
	"math"
	"slices"
	"sort"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Compressor maps coordinates to their rank on each axis.
type Compressor struct {
	xs, ys []float64
	eps    float64
}

// NewCompressor collects the distinct coordinates of n. Values within eps of
// each other count as one.
func NewCompressor(n *network.Network, eps float64) *Compressor {
	if eps <= 0 {
		eps = network.DefaultEpsilon
	}
	var xs, ys []float64
	for _, s := range n.Segments {
		for _, p := range s.Points {
			xs = append(xs, p[0])
			ys = append(ys, p[1])
		}
	}
	return &Compressor{xs: distinct(xs, eps), ys: distinct(ys, eps), eps: eps}
}

func distinct(vs []float64, eps float64) []float64 {
	slices.Sort(vs)
	out := vs[:0]
	for _, v := range vs {
		if len(out) == 0 || v-out[len(out)-1] > eps {
			out = append(out, v)
		}
	}
	return slices.Clip(out)
}

// Size returns the number of distinct columns and rows.
func (c *Compressor) Size() (cols, rows int) { return len(c.xs), len(c.ys) }

// Map returns the ranks of p. Values missing from the table map to the rank
// of the nearest known value.
func (c *Compressor) Map(p orb.Point) orb.Point {
	return orb.Point{float64(rank(c.xs, p[0])), float64(rank(c.ys, p[1]))}
}

func rank(table []float64, v float64) int {
	if len(table) == 0 {
		return 0
	}
	i := sort.SearchFloat64s(table, v)
	switch {
	case i == 0:
		return 0
	case i == len(table):
		return len(table) - 1
	case math.Abs(table[i]-v) < math.Abs(v-table[i-1]):
		return i
	default:
		return i - 1
	}
}

// Compress returns a copy of n with every coordinate replaced by its rank.
func Compress(n *network.Network, eps float64) *network.Network {
	c := NewCompressor(n, eps)
	out := n.Clone()
	for si := range out.Segments {
		pts := out.Segments[si].Points
		for i, p := range pts {
			pts[i] = c.Map(p)
		}
	}
	return out
}
