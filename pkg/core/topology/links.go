package topology

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
)

// KeyNodes returns the layout anchors of n: points shared by at least two
// segment ends, points carrying a transfer marker, and points where routes
// branch (graph degree of three or more).
func KeyNodes(n *network.Network, eps float64) map[network.Key]bool {
	ends := make(map[network.Key]int)
	keys := make(map[network.Key]bool)
	for _, s := range n.Segments {
		if len(s.Points) == 0 {
			continue
		}
		ends[network.KeyOf(s.Points[0], eps)]++
		ends[network.KeyOf(s.Points[len(s.Points)-1], eps)]++
		for i, nd := range s.Nodes {
			if nd.IsTransfer() && i < len(s.Points) {
				keys[network.KeyOf(s.Points[i], eps)] = true
			}
		}
	}
	for k, c := range ends {
		if c >= 2 {
			keys[k] = true
		}
	}
	g := Build(n, eps)
	for k := range g.adj {
		if g.Degree(k) >= 3 {
			keys[k] = true
		}
	}
	return keys
}

// Carried is a real station riding on a link between its anchors.
type Carried struct {
	Index int          // point index in the original segment
	Node  network.Node // station or transfer
	Ratio float64      // normalized arc position on the original chain, in [0, 1]
}

// Link is the chain of one segment between two consecutive anchors. It is
// the unit of path synthesis.
type Link struct {
	ID       int
	Segment  int
	Route    string
	Start    int // index of the first anchor in the segment
	End      int // index of the second anchor in the segment
	From, To orb.Point
	FromNode network.Node
	ToNode   network.Node
	Length   float64 // arc length of the original chain
	Carried  []Carried
}

// Count returns the number of points the link covers in its segment.
func (l Link) Count() int { return l.End - l.Start + 1 }

// Links splits every segment of n at the given anchors. Segment ends always
// anchor, so every point belongs to at least one link. Links are numbered in
// segment order.
func Links(n *network.Network, keys map[network.Key]bool, eps float64) []Link {
	var links []Link
	for si, s := range n.Segments {
		if len(s.Points) < 2 {
			continue
		}
		anchors := []int{0}
		for i := 1; i < len(s.Points)-1; i++ {
			if keys[network.KeyOf(s.Points[i], eps)] {
				anchors = append(anchors, i)
			}
		}
		anchors = append(anchors, len(s.Points)-1)
		anchors = splitLoops(s.Points, anchors, eps)

		cum := geom.ArcLengths(s.Points)
		for j := 1; j < len(anchors); j++ {
			a, b := anchors[j-1], anchors[j]
			l := Link{
				ID:       len(links),
				Segment:  si,
				Route:    s.RouteName,
				Start:    a,
				End:      b,
				From:     s.Points[a],
				To:       s.Points[b],
				FromNode: s.Nodes[a],
				ToNode:   s.Nodes[b],
				Length:   cum[b] - cum[a],
			}
			for i := a + 1; i < b; i++ {
				if !s.Nodes[i].IsReal() {
					continue
				}
				var r float64
				if l.Length > 0 {
					r = (cum[i] - cum[a]) / l.Length
				} else {
					r = float64(i-a) / float64(b-a)
				}
				l.Carried = append(l.Carried, Carried{Index: i, Node: s.Nodes[i], Ratio: r})
			}
			links = append(links, l)
		}
	}
	return links
}

// splitLoops adds the middle index as an anchor wherever two consecutive
// anchors share a key but enclose other points, so no link starts and ends
// at the same place.
func splitLoops(pts []orb.Point, anchors []int, eps float64) []int {
	out := make([]int, 0, len(anchors)+1)
	out = append(out, anchors[0])
	for j := 1; j < len(anchors); j++ {
		a, b := anchors[j-1], anchors[j]
		if b-a >= 2 && network.Same(pts[a], pts[b], eps) {
			out = append(out, (a+b)/2)
		}
		out = append(out, b)
	}
	return out
}
