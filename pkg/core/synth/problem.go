package synth

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
)

// corridor is a set of links drawn with one shared path: same endpoints and
// the same carried stations, possibly in opposite directions.
type corridor struct {
	from, to orb.Point
	members  []int  // link indices
	reversed []bool // member runs to→from
}

// Problem is the input of a [Searcher]: the links to draw and the stations
// a path must never enclose.
type Problem struct {
	Links    []topology.Link
	Stations []orb.Point
	Options  Options

	corridors []corridor
}

// NewProblem groups links into corridors and collects the anchor stations.
func NewProblem(links []topology.Link, opts Options) *Problem {
	opts.SetDefaults()
	p := &Problem{Links: links, Options: opts}
	eps := opts.Epsilon

	index := make(map[corridorKey][]int)
	seen := make(map[network.Key]bool)
	for li, l := range links {
		id, rev := corridorID(l, eps)
		ci := -1
		for _, cand := range index[id] {
			if !p.hasSegment(cand, l.Segment) {
				ci = cand
				break
			}
		}
		if ci < 0 {
			ci = len(p.corridors)
			index[id] = append(index[id], ci)
			from, to := l.From, l.To
			if rev {
				from, to = to, from
			}
			p.corridors = append(p.corridors, corridor{from: from, to: to})
		}
		c := &p.corridors[ci]
		c.members = append(c.members, li)
		c.reversed = append(c.reversed, rev)

		for _, end := range []struct {
			pt orb.Point
			nd network.Node
		}{{l.From, l.FromNode}, {l.To, l.ToNode}} {
			k := network.KeyOf(end.pt, eps)
			if end.nd.IsReal() && !seen[k] {
				seen[k] = true
				p.Stations = append(p.Stations, end.pt)
			}
		}
	}
	return p
}

type corridorKey struct {
	a, b     network.Key
	stations string
}

// corridorID canonicalizes a link by its endpoint keys and carried station
// identities. rev reports whether the link runs against the canonical order.
func corridorID(l topology.Link, eps float64) (corridorKey, bool) {
	a, b := network.KeyOf(l.From, eps), network.KeyOf(l.To, eps)
	ids := make([]string, len(l.Carried))
	for i, c := range l.Carried {
		ids[i] = c.Node.Identity()
	}
	rev := b.Less(a)
	if rev {
		a, b = b, a
		slices.Reverse(ids)
	}
	return corridorKey{a: a, b: b, stations: strings.Join(ids, "\x00")}, rev
}

// hasSegment reports whether corridor ci already holds a link of segment si.
// Two links of one segment never share a path.
func (p *Problem) hasSegment(ci, si int) bool {
	for _, li := range p.corridors[ci].members {
		if p.Links[li].Segment == si {
			return true
		}
	}
	return false
}

// Corridors returns the number of distinct paths the problem asks for.
func (p *Problem) Corridors() int { return len(p.corridors) }

// legal reports whether the candidate passes both hard filters against the
// pieces placed so far: no collinear overlap, and no foreign station on or
// inside the closed path. Foreign stations are the link-endpoint stations in
// p.Stations; stations carried inside a link are left out on purpose, since
// re-injection moves them onto whatever path their link receives.
func (p *Problem) legal(c Candidate, placed []geom.Piece) bool {
	eps := p.Options.Epsilon
	for _, cp := range geom.Pieces(c.Points) {
		for _, q := range placed {
			if geom.CollinearOverlap(cp, q, eps) {
				return false
			}
		}
	}
	for _, st := range p.Stations {
		if geom.Encloses(c.Points, st, eps) {
			return false
		}
	}
	return true
}

func (p *Problem) crossings(c Candidate, placed []geom.Piece) int {
	eps := p.Options.Epsilon
	n := 0
	for _, cp := range geom.Pieces(c.Points) {
		for _, q := range placed {
			if geom.ProperCross(cp, q, eps) {
				n++
			}
		}
	}
	return n
}

// better orders scored candidates: fewer crossings, then fewer bends, then
// shorter, then earlier generated.
func better(a Candidate, ac int, b Candidate, bc int) bool {
	if ac != bc {
		return ac < bc
	}
	if a.Bends != b.Bends {
		return a.Bends < b.Bends
	}
	if a.Length != b.Length {
		return a.Length < b.Length
	}
	return a.Order < b.Order
}

// place draws every corridor greedily in the given order.
func (p *Problem) place(order []int, rng *rand.Rand) Solution {
	o := p.Options
	sol := Solution{Paths: make([][]orb.Point, len(p.corridors))}
	var placed []geom.Piece

	for _, ci := range order {
		c := p.corridors[ci]
		cands := Candidates(c.from, c.to, o.ZCandidates, o.CornerMin, o.CornerMax, rng, o.Epsilon)

		pool := make([]Candidate, 0, len(cands))
		for _, cand := range cands {
			if p.legal(cand, placed) {
				pool = append(pool, cand)
			}
		}
		if len(pool) == 0 {
			pool = cands
			sol.Fallbacks++
		}

		best, bestX := pool[0], p.crossings(pool[0], placed)
		for _, cand := range pool[1:] {
			if x := p.crossings(cand, placed); better(cand, x, best, bestX) {
				best, bestX = cand, x
			}
		}
		sol.Paths[ci] = best.Points
		sol.Cost += best.Length
		sol.Bends += best.Bends
		placed = append(placed, geom.Pieces(best.Points)...)
	}

	sol.Crossings = geom.CountCrossings(placed, o.Epsilon)
	sol.Overlaps = geom.CountOverlaps(placed, o.Epsilon)
	sol.Score = sol.Crossings + sol.Overlaps
	return sol
}

// LinkPaths expands a solution's corridor paths to one path per link, each
// running from the link's From to its To.
func (p *Problem) LinkPaths(sol Solution) [][]orb.Point {
	out := make([][]orb.Point, len(p.Links))
	for ci, c := range p.corridors {
		path := sol.Paths[ci]
		for j, li := range c.members {
			pts := slices.Clone(path)
			if c.reversed[j] {
				slices.Reverse(pts)
			}
			// Corners are computed from canonical ends; restore the exact
			// link endpoints.
			if len(pts) > 0 {
				pts[0] = p.Links[li].From
				pts[len(pts)-1] = p.Links[li].To
			}
			out[li] = pts
		}
	}
	return out
}
