// Package grid snaps a geographic network onto an integer grid and
// straightens the chains between key nodes.
//
// The grid unit is the smallest distance between two distinct stations, so no
// two stations can share a cell unless they coincide to begin with. When snapping would still put a station into a cell
// already taken by a different station, the station is frozen: it keeps its
// unfloored grid-space coordinate and [network.Node.Frozen] is set.
package grid

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
	"github.com/matzehuels/transitmap/pkg/errors"
)

// DefaultMinUnit replaces a grid unit of zero.
const DefaultMinUnit = 1e-6

// snapSlack keeps exact multiples of the unit from flooring one cell short.
const snapSlack = 1e-9

// Options configures quantization.
type Options struct {
	Epsilon float64 // key quantum; zero uses network.DefaultEpsilon
	MinUnit float64 // substituted for a zero unit; zero uses DefaultMinUnit
}

func (o Options) minUnit() float64 {
	if o.MinUnit > 0 {
		return o.MinUnit
	}
	return DefaultMinUnit
}

// Report describes what Quantize did.
type Report struct {
	Unit     float64   `json:"unit"`
	Origin   orb.Point `json:"origin"`
	Stations int       `json:"stations"`
	Frozen   int       `json:"frozen"`
}

// site is one station at one position. A station shared by several segments
// is a single site; two stations with different identities are two sites even
// when their coordinates coincide.
type site struct {
	key network.Key
	id  string
}

// stationSites returns the distinct sites of n in first-seen order along with
// the first coordinate seen for each.
func stationSites(n *network.Network, eps float64) ([]site, []orb.Point) {
	seen := make(map[site]bool)
	var sites []site
	var pts []orb.Point
	for _, st := range n.Stations() {
		s := site{key: network.KeyOf(st.Point, eps), id: st.Node.Identity()}
		if seen[s] {
			continue
		}
		seen[s] = true
		sites = append(sites, s)
		pts = append(pts, st.Point)
	}
	return sites, pts
}

// Unit returns the minimum distance between two distinct station sites.
// It fails with an input shape error when fewer than two sites exist. A zero
// distance, from two different stations at the same coordinate, is replaced
// by minUnit.
func Unit(n *network.Network, eps, minUnit float64) (float64, error) {
	sites, positions := stationSites(n, eps)
	if len(sites) < 2 {
		return 0, errors.New(errors.ErrCodeInputShape,
			"need at least 2 distinct stations to derive a grid unit, got %d", len(sites))
	}

	// Coincident sites are found here; the tree only sees unique coordinates.
	byPoint := make(map[orb.Point]string, len(positions))
	var pts kdtree.Points
	for i, p := range positions {
		id, ok := byPoint[p]
		if !ok {
			byPoint[p] = sites[i].id
			pts = append(pts, kdtree.Point{p[0], p[1]})
			continue
		}
		if id != sites[i].id {
			return minUnit, nil
		}
	}
	if len(pts) < 2 {
		return minUnit, nil
	}

	// kdtree.New reorders its input, so queries use the original positions.
	tree := kdtree.New(append(kdtree.Points(nil), pts...), false)

	best := math.Inf(1)
	for _, q := range pts {
		keep := kdtree.NewNKeeper(2)
		tree.NearestSet(keep, q)
		for _, cd := range keep.Heap {
			if cd.Comparable == nil || cd.Dist <= 0 {
				continue
			}
			best = math.Min(best, cd.Dist)
		}
	}

	unit := math.Sqrt(best)
	if math.IsInf(unit, 0) || unit <= 0 {
		unit = minUnit
	}
	return unit, nil
}

// Quantize maps every point of n to floor((c - min) / unit) on both axes.
// The first station to reach a cell owns it; any other station snapping into
// an owned cell is frozen instead. The input is not modified.
func Quantize(n *network.Network, opts Options) (*network.Network, Report, error) {
	eps := opts.Epsilon
	unit, err := Unit(n, eps, opts.minUnit())
	if err != nil {
		return nil, Report{}, err
	}

	out := n.Clone()
	origin := minCorner(out)
	rep := Report{Unit: unit, Origin: origin}

	scale := func(p orb.Point) orb.Point {
		return orb.Point{(p[0] - origin[0]) / unit, (p[1] - origin[1]) / unit}
	}
	snap := func(p orb.Point) orb.Point {
		s := scale(p)
		return orb.Point{math.Floor(s[0] + snapSlack), math.Floor(s[1] + snapSlack)}
	}

	// Decide each site once so shared vertices stay shared across segments.
	type placement struct {
		at     orb.Point
		frozen bool
	}
	placed := make(map[site]placement)
	atKey := make(map[network.Key]placement) // first placement per position, for waypoints
	owner := make(map[network.Key]string)    // snapped cell -> owning station
	for _, st := range out.Stations() {
		s := site{key: network.KeyOf(st.Point, eps), id: st.Node.Identity()}
		if _, ok := placed[s]; ok {
			continue
		}
		rep.Stations++
		cell := snap(st.Point)
		ck := network.KeyOf(cell, eps)
		if prev, taken := owner[ck]; taken && prev != s.id {
			placed[s] = placement{at: scale(st.Point), frozen: true}
			rep.Frozen++
			continue
		}
		owner[ck] = s.id
		placed[s] = placement{at: cell}
		if _, ok := atKey[s.key]; !ok {
			atKey[s.key] = placed[s]
		}
	}

	for si := range out.Segments {
		seg := &out.Segments[si]
		for i, p := range seg.Points {
			k := network.KeyOf(p, eps)
			nd := seg.Nodes[i]
			if nd.IsReal() {
				pl := placed[site{key: k, id: nd.Identity()}]
				seg.Points[i] = pl.at
				if pl.frozen {
					seg.Nodes[i].Frozen = true
				}
				continue
			}
			if pl, ok := atKey[k]; ok {
				seg.Points[i] = pl.at
				continue
			}
			seg.Points[i] = snap(p)
		}
	}
	return out, rep, nil
}

func minCorner(n *network.Network) orb.Point {
	lo := orb.Point{math.Inf(1), math.Inf(1)}
	for _, s := range n.Segments {
		for _, p := range s.Points {
			lo[0] = math.Min(lo[0], p[0])
			lo[1] = math.Min(lo[1], p[1])
		}
	}
	return lo
}

// Straighten replaces the points between every pair of adjacent key nodes
// with evenly spaced points on the straight line joining them. The number of
// points, and therefore the node at every index, is unchanged.
func Straighten(n *network.Network, eps float64) *network.Network {
	out := n.Clone()
	keys := topology.KeyNodes(out, eps)
	for _, l := range topology.Links(out, keys, eps) {
		span := l.End - l.Start
		if span < 2 {
			continue
		}
		pts := out.Segments[l.Segment].Points
		for i := l.Start + 1; i < l.End; i++ {
			t := float64(i-l.Start) / float64(span)
			pts[i] = orb.Point{
				l.From[0] + t*(l.To[0]-l.From[0]),
				l.From[1] + t*(l.To[1]-l.From[1]),
			}
		}
	}
	return out
}
