package network

import (
	"math"

	"github.com/paulmach/orb"
)

// AxisAligned reports whether the piece a→b is horizontal or vertical within eps.
func AxisAligned(a, b orb.Point, eps float64) bool {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return math.Abs(a[0]-b[0]) <= eps || math.Abs(a[1]-b[1]) <= eps
}

// AllAxisAligned reports whether every consecutive pair of points in every
// segment is horizontal or vertical.
func (n *Network) AllAxisAligned(eps float64) bool {
	_, _, ok := n.FirstDiagonal(eps)
	return ok
}

// FirstDiagonal returns the first non-axis-aligned piece as (segment, index of
// its first point). ok is true when there is none.
func (n *Network) FirstDiagonal(eps float64) (seg, idx int, ok bool) {
	for si, s := range n.Segments {
		for i := 1; i < len(s.Points); i++ {
			if !AxisAligned(s.Points[i-1], s.Points[i], eps) {
				return si, i - 1, false
			}
		}
	}
	return -1, -1, true
}

// RealKeys returns the keys of all points carrying a real node.
func (n *Network) RealKeys(eps float64) map[Key]bool {
	out := make(map[Key]bool)
	for _, s := range n.Segments {
		for i, nd := range s.Nodes {
			if nd.IsReal() && i < len(s.Points) {
				out[KeyOf(s.Points[i], eps)] = true
			}
		}
	}
	return out
}

// MoveKeys relocates every point, in every segment, whose key appears in
// moves. Moving by key keeps shared vertices shared. It mutates n and returns
// the number of points moved.
func MoveKeys(n *Network, moves map[Key]orb.Point, eps float64) int {
	if len(moves) == 0 {
		return 0
	}
	moved := 0
	for si := range n.Segments {
		pts := n.Segments[si].Points
		for i, p := range pts {
			if to, ok := moves[KeyOf(p, eps)]; ok {
				pts[i] = to
				moved++
			}
		}
	}
	return moved
}

// DropDuplicates removes consecutive points that quantize to the same key,
// keeping the real node when one of the pair is real. Two distinct real
// nodes are never merged. Weight indices are remapped and ranges that
// collapse to a single point are dropped. A segment is never reduced below
// two points. It reports whether anything changed.
func (s *Segment) DropDuplicates(eps float64) bool {
	if len(s.Points) < 2 || len(s.Points) != len(s.Nodes) {
		return false
	}
	index := make([]int, len(s.Points))
	points := make([]orb.Point, 0, len(s.Points))
	nodes := make([]Node, 0, len(s.Nodes))

	for i, p := range s.Points {
		nd := s.Nodes[i]
		if last := len(points) - 1; last >= 0 && Same(points[last], p, eps) {
			kept := nodes[last]
			switch {
			case !nd.IsReal():
				index[i] = last
				continue
			case !kept.IsReal():
				nodes[last] = nd
				index[i] = last
				continue
			case kept.Identity() == nd.Identity():
				index[i] = last
				continue
			}
		}
		index[i] = len(points)
		points = append(points, p)
		nodes = append(nodes, nd)
	}

	if len(points) == len(s.Points) {
		return false
	}
	if len(points) < 2 {
		// Keep a zero-length two point segment rather than lose the end node.
		last := len(s.Points) - 1
		points = append(points, s.Points[last])
		nodes = append(nodes, s.Nodes[last])
		index[last] = 1
		if len(nodes) == 2 && nodes[0].IsReal() && nodes[1].IsReal() && nodes[0].Identity() == nodes[1].Identity() {
			nodes[1] = Geometry()
		}
	}

	s.Points = points
	s.Nodes = nodes
	s.Weights = RemapWeights(s.Weights, index)
	return true
}

// RemapWeights rewrites weight ranges through an old→new index table. Ranges
// whose ends collapse onto the same new index are dropped.
func RemapWeights(ws []Weight, index []int) []Weight {
	if len(ws) == 0 {
		return ws
	}
	out := make([]Weight, 0, len(ws))
	for _, w := range ws {
		if w.Start < 0 || w.End >= len(index) {
			continue
		}
		nw := Weight{Start: index[w.Start], End: index[w.End], Value: w.Value}
		if nw.Start < nw.End {
			out = append(out, nw)
		}
	}
	return out
}

// Degenerate reports whether every point of s shares one key.
func (s *Segment) Degenerate(eps float64) bool {
	if len(s.Points) == 0 {
		return true
	}
	first := KeyOf(s.Points[0], eps)
	for _, p := range s.Points[1:] {
		if KeyOf(p, eps) != first {
			return false
		}
	}
	return true
}

// Cleanup drops consecutive duplicates in every segment and removes
// degenerate segments that carry no real node. It returns the number of
// segments removed.
func (n *Network) Cleanup(eps float64) int {
	kept := n.Segments[:0]
	removed := 0
	for _, s := range n.Segments {
		s.DropDuplicates(eps)
		if s.Degenerate(eps) && !hasReal(s.Nodes) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	n.Segments = kept
	return removed
}

func hasReal(nodes []Node) bool {
	for _, nd := range nodes {
		if nd.IsReal() {
			return true
		}
	}
	return false
}
