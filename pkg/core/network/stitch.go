package network

import "github.com/paulmach/orb"

// Ref points back from a chain vertex to the segment point it came from.
type Ref struct {
	Segment int
	Index   int
}

// Chain is a continuous polyline assembled from one route's segments.
// Points[i] was taken from Refs[i]; the joint between two stitched segments
// appears once.
type Chain struct {
	Route  string
	Points []orb.Point
	Refs   []Ref
}

// Stitch joins the segments of each route into continuous chains. Segments
// are chained through endpoints shared by exactly two segment ends of the
// same route, and reversed when their direction disagrees with the chain.
// Chains start at route ends or branch points; closed loops start at their
// first segment.
func Stitch(n *Network, eps float64) []Chain {
	var chains []Chain
	for _, ids := range routeSegments(n) {
		chains = append(chains, stitchRoute(n, ids, eps)...)
	}
	return chains
}

func routeSegments(n *Network) [][]int {
	index := make(map[string]int)
	var out [][]int
	for i, s := range n.Segments {
		ri, ok := index[s.RouteName]
		if !ok {
			ri = len(out)
			index[s.RouteName] = ri
			out = append(out, nil)
		}
		out[ri] = append(out[ri], i)
	}
	return out
}

func stitchRoute(n *Network, ids []int, eps float64) []Chain {
	incidence := make(map[Key][]int)
	for _, si := range ids {
		pts := n.Segments[si].Points
		if len(pts) == 0 {
			continue
		}
		incidence[KeyOf(pts[0], eps)] = append(incidence[KeyOf(pts[0], eps)], si)
		incidence[KeyOf(pts[len(pts)-1], eps)] = append(incidence[KeyOf(pts[len(pts)-1], eps)], si)
	}

	used := make(map[int]bool, len(ids))
	var chains []Chain

	grow := func(si int, reversed bool) {
		c := Chain{Route: n.Segments[si].RouteName}
		appendSegment(&c, n, si, reversed, eps)
		used[si] = true
		for {
			end := KeyOf(c.Points[len(c.Points)-1], eps)
			if len(incidence[end]) != 2 {
				break
			}
			next := -1
			for _, cand := range incidence[end] {
				if !used[cand] {
					next = cand
					break
				}
			}
			if next < 0 {
				break
			}
			first := KeyOf(n.Segments[next].Points[0], eps)
			appendSegment(&c, n, next, first != end, eps)
			used[next] = true
		}
		chains = append(chains, c)
	}

	// Open chains first: start at an end that is not a simple joint.
	for _, si := range ids {
		if used[si] || len(n.Segments[si].Points) == 0 {
			continue
		}
		pts := n.Segments[si].Points
		head := KeyOf(pts[0], eps)
		tail := KeyOf(pts[len(pts)-1], eps)
		switch {
		case len(incidence[head]) != 2:
			grow(si, false)
		case len(incidence[tail]) != 2:
			grow(si, true)
		}
	}
	// Whatever is left is part of a closed loop.
	for _, si := range ids {
		if !used[si] && len(n.Segments[si].Points) > 0 {
			grow(si, false)
		}
	}
	return chains
}

func appendSegment(c *Chain, n *Network, si int, reversed bool, eps float64) {
	pts := n.Segments[si].Points
	for k := range pts {
		i := k
		if reversed {
			i = len(pts) - 1 - k
		}
		if len(c.Points) > 0 && k == 0 && Same(c.Points[len(c.Points)-1], pts[i], eps) {
			continue
		}
		c.Points = append(c.Points, pts[i])
		c.Refs = append(c.Refs, Ref{Segment: si, Index: i})
	}
}
