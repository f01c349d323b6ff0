package topology

import (
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Graph is the undirected point adjacency of a network. Vertices are
// quantized [network.Key] values; consecutive points of every segment are
// linked. It is derived on demand and never stored on a network.
type Graph struct {
	eps    float64
	adj    map[network.Key]map[network.Key]struct{}
	routes map[pair]map[string]struct{}
	points map[network.Key]orb.Point
}

type pair struct{ a, b network.Key }

func newPair(a, b network.Key) pair {
	if b.Less(a) {
		a, b = b, a
	}
	return pair{a, b}
}

// Build derives the adjacency graph of n. Zero-length pieces are ignored.
func Build(n *network.Network, eps float64) *Graph {
	g := &Graph{
		eps:    eps,
		adj:    make(map[network.Key]map[network.Key]struct{}),
		routes: make(map[pair]map[string]struct{}),
		points: make(map[network.Key]orb.Point),
	}
	for _, s := range n.Segments {
		for i, p := range s.Points {
			k := network.KeyOf(p, eps)
			if _, ok := g.points[k]; !ok {
				g.points[k] = p
				g.adj[k] = make(map[network.Key]struct{})
			}
			if i == 0 {
				continue
			}
			prev := network.KeyOf(s.Points[i-1], eps)
			if prev == k {
				continue
			}
			g.adj[prev][k] = struct{}{}
			g.adj[k][prev] = struct{}{}
			e := newPair(prev, k)
			if g.routes[e] == nil {
				g.routes[e] = make(map[string]struct{})
			}
			g.routes[e][s.RouteName] = struct{}{}
		}
	}
	return g
}

// NodeCount returns the number of distinct vertices.
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of distinct undirected adjacencies.
func (g *Graph) EdgeCount() int { return len(g.routes) }

// Nodes returns every vertex in key order.
func (g *Graph) Nodes() []network.Key {
	keys := make([]network.Key, 0, len(g.adj))
	for k := range g.adj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, network.Key.Compare)
	return keys
}

// Point returns the first coordinate seen for k.
func (g *Graph) Point(k network.Key) orb.Point { return g.points[k] }

// Has reports whether k is a vertex of the graph.
func (g *Graph) Has(k network.Key) bool {
	_, ok := g.adj[k]
	return ok
}

// Degree returns the number of distinct neighbours of k.
func (g *Graph) Degree(k network.Key) int { return len(g.adj[k]) }

// Neighbors returns the neighbours of k in key order.
func (g *Graph) Neighbors(k network.Key) []network.Key {
	out := make([]network.Key, 0, len(g.adj[k]))
	for nb := range g.adj[k] {
		out = append(out, nb)
	}
	slices.SortFunc(out, network.Key.Compare)
	return out
}

// RouteNames returns the sorted names of routes running along a→b.
func (g *Graph) RouteNames(a, b network.Key) []string {
	set := g.routes[newPair(a, b)]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// IsTopological reports whether k anchors the logical graph: its degree is
// not 2, or its two incident adjacencies carry different route sets.
func (g *Graph) IsTopological(k network.Key) bool {
	if g.Degree(k) != 2 {
		return true
	}
	nb := g.Neighbors(k)
	return !slices.Equal(g.RouteNames(k, nb[0]), g.RouteNames(k, nb[1]))
}

// Edge is one logical edge between two topological nodes. Path lists every
// vertex from From to To inclusive.
type Edge struct {
	From, To network.Key
	Path     []network.Key
	Routes   []string
}

// Edges walks from every topological node along degree-2 chains to the next
// topological node. Each chain is reported once. Cycles with no topological
// node are anchored at their smallest key.
func (g *Graph) Edges() []Edge {
	used := make(map[pair]bool)
	var edges []Edge

	walk := func(start, first network.Key, stop func(network.Key) bool) Edge {
		path := []network.Key{start, first}
		used[newPair(start, first)] = true
		prev, cur := start, first
		for !stop(cur) {
			next, ok := g.other(cur, prev)
			if !ok || used[newPair(cur, next)] {
				break
			}
			used[newPair(cur, next)] = true
			path = append(path, next)
			prev, cur = cur, next
		}
		return Edge{From: start, To: cur, Path: path, Routes: g.RouteNames(start, first)}
	}

	nodes := g.Nodes()
	for _, k := range nodes {
		if !g.IsTopological(k) {
			continue
		}
		for _, nb := range g.Neighbors(k) {
			if used[newPair(k, nb)] {
				continue
			}
			edges = append(edges, walk(k, nb, g.IsTopological))
		}
	}
	for _, k := range nodes {
		for _, nb := range g.Neighbors(k) {
			if used[newPair(k, nb)] {
				continue
			}
			anchor := k
			edges = append(edges, walk(k, nb, func(c network.Key) bool { return c == anchor }))
		}
	}
	return edges
}

// other returns the neighbour of a degree-2 vertex that is not prev.
func (g *Graph) other(cur, prev network.Key) (network.Key, bool) {
	for nb := range g.adj[cur] {
		if nb != prev {
			return nb, true
		}
	}
	return network.Key{}, false
}

// Summary counts the structural features of a graph.
type Summary struct {
	Nodes       int `json:"nodes"`
	Adjacencies int `json:"adjacencies"`
	Topological int `json:"topological"`
	Edges       int `json:"edges"`
	Junctions   int `json:"junctions"`
	Termini     int `json:"termini"`
}

// Summarize reports node, edge and junction counts.
func (g *Graph) Summarize() Summary {
	s := Summary{Nodes: g.NodeCount(), Adjacencies: g.EdgeCount(), Edges: len(g.Edges())}
	for k := range g.adj {
		if g.IsTopological(k) {
			s.Topological++
		}
		switch d := g.Degree(k); {
		case d >= 3:
			s.Junctions++
		case d == 1:
			s.Termini++
		}
	}
	return s
}
