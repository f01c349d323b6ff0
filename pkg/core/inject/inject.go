// Package inject puts the stations a link carries back onto its redrawn
// skeleton.
//
// Each carried station keeps its normalized arc position: a station found at
// ratio r of the original chain is placed at arc length r·L of a skeleton of
// length L. Skeleton corners become geometry nodes, except where a station
// lands exactly on a corner, in which case the station takes its place.
// Placement is pure, never drops a station and never changes their order.
package inject

import (
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
	"github.com/matzehuels/transitmap/pkg/errors"
)

// Placed is a link redrawn with its stations. Source[i] is the index of the
// original segment point that ended up at Points[i], or -1 for a new corner.
type Placed struct {
	Points []orb.Point
	Nodes  []network.Node
	Source []int
}

// Place distributes the link's carried stations over skeleton, which must run
// from l.From to l.To. The skeleton's ends carry l.FromNode and l.ToNode.
func Place(skeleton []orb.Point, l topology.Link, eps float64) Placed {
	if eps <= 0 {
		eps = network.DefaultEpsilon
	}
	n := len(skeleton)
	out := Placed{
		Points: make([]orb.Point, 0, n+len(l.Carried)),
		Nodes:  make([]network.Node, 0, n+len(l.Carried)),
		Source: make([]int, 0, n+len(l.Carried)),
	}
	emit := func(p orb.Point, nd network.Node, src int) {
		out.Points = append(out.Points, p)
		out.Nodes = append(out.Nodes, nd.Clone())
		out.Source = append(out.Source, src)
	}
	if n == 0 {
		return out
	}

	cum := geom.ArcLengths(skeleton)
	total := cum[n-1]
	emit(skeleton[0], l.FromNode, l.Start)

	vi := 1
	last := 0.0
	for _, c := range l.Carried {
		r := math.Max(math.Min(c.Ratio, 1), last)
		last = r
		s := r * total

		for vi < n-1 && cum[vi] < s-eps {
			emit(skeleton[vi], network.Geometry(), -1)
			vi++
		}
		if vi < n-1 && math.Abs(cum[vi]-s) <= eps {
			emit(skeleton[vi], c.Node, c.Index)
			vi++
			continue
		}
		p, _ := geom.At(skeleton, cum, s)
		emit(p, c.Node, c.Index)
	}
	for ; vi < n-1; vi++ {
		emit(skeleton[vi], network.Geometry(), -1)
	}
	if n > 1 {
		emit(skeleton[n-1], l.ToNode, l.End)
	}
	return out
}

// Apply rebuilds every segment of n from the placed links. paths[i] is the
// skeleton of links[i]. Weight ranges are remapped to the new indices. The
// input is not modified.
func Apply(n *network.Network, links []topology.Link, paths [][]orb.Point, eps float64) (*network.Network, error) {
	if len(links) != len(paths) {
		return nil, errors.New(errors.ErrCodeInternal, "%d links but %d paths", len(links), len(paths))
	}
	bySegment := make(map[int][]int)
	for i, l := range links {
		bySegment[l.Segment] = append(bySegment[l.Segment], i)
	}

	out := n.Clone()
	for si := range out.Segments {
		ids := bySegment[si]
		if len(ids) == 0 {
			continue
		}
		slices.SortFunc(ids, func(a, b int) int { return links[a].Start - links[b].Start })

		s := &out.Segments[si]
		var points []orb.Point
		var nodes []network.Node
		index := make([]int, len(s.Points))
		for i := range index {
			index[i] = -1
		}

		for _, li := range ids {
			pl := Place(paths[li], links[li], eps)
			if len(pl.Points) == 0 {
				return nil, errors.New(errors.ErrCodeInternal, "link %d has an empty path", links[li].ID)
			}
			from := 0
			if len(points) > 0 {
				// The joint is the previous link's last point.
				from = 1
			}
			for k := from; k < len(pl.Points); k++ {
				if src := pl.Source[k]; src >= 0 && src < len(index) {
					index[src] = len(points)
				}
				points = append(points, pl.Points[k])
				nodes = append(nodes, pl.Nodes[k])
			}
		}

		// Dropped waypoints take the index of the point before them.
		prev := 0
		for i := range index {
			if index[i] < 0 {
				index[i] = prev
			}
			prev = index[i]
		}

		s.Weights = network.RemapWeights(s.Weights, index)
		s.Points = points
		s.Nodes = nodes
	}
	if err := out.CheckParity(); err != nil {
		return nil, err
	}
	return out, nil
}
