// Package geom holds the planar primitives shared by the layout stages:
// orientation tests, proper crossings, collinear overlap, enclosure and
// arc-length interpolation.
//
// All predicates take an epsilon so callers can use the same tolerance they
// use for [network.Key] quantization.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
)

// Piece is a single straight piece of a polyline.
type Piece struct {
	A, B orb.Point
}

// Length returns the Euclidean length of the piece.
func (p Piece) Length() float64 { return planar.Distance(p.A, p.B) }

// Bound returns the axis-aligned bounding box of the piece.
func (p Piece) Bound() orb.Bound { return orb.MultiPoint{p.A, p.B}.Bound() }

// Pieces splits a polyline into its consecutive pieces.
func Pieces(pts []orb.Point) []Piece {
	if len(pts) < 2 {
		return nil
	}
	out := make([]Piece, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		out = append(out, Piece{A: pts[i-1], B: pts[i]})
	}
	return out
}

// Orient returns the cross product (b-a)×(c-a). Positive means c lies to the
// left of a→b.
func Orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func sign(v, eps float64) int {
	switch {
	case v > eps:
		return 1
	case v < -eps:
		return -1
	default:
		return 0
	}
}

func near(a, b orb.Point, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}

// SharesEndpoint reports whether the two pieces touch at an endpoint.
func SharesEndpoint(p, q Piece, eps float64) bool {
	return near(p.A, q.A, eps) || near(p.A, q.B, eps) || near(p.B, q.A, eps) || near(p.B, q.B, eps)
}

// BoundsOverlap is the cheap pre-rejection test for crossing checks.
func BoundsOverlap(p, q Piece, eps float64) bool {
	return math.Min(p.A[0], p.B[0]) <= math.Max(q.A[0], q.B[0])+eps &&
		math.Min(q.A[0], q.B[0]) <= math.Max(p.A[0], p.B[0])+eps &&
		math.Min(p.A[1], p.B[1]) <= math.Max(q.A[1], q.B[1])+eps &&
		math.Min(q.A[1], q.B[1]) <= math.Max(p.A[1], p.B[1])+eps
}

// ProperCross reports whether p and q cross at a single interior point of
// both. Touching, collinear contact and shared endpoints are not crossings.
func ProperCross(p, q Piece, eps float64) bool {
	if !BoundsOverlap(p, q, eps) || SharesEndpoint(p, q, eps) {
		return false
	}
	d1 := sign(Orient(p.A, p.B, q.A), eps)
	d2 := sign(Orient(p.A, p.B, q.B), eps)
	d3 := sign(Orient(q.A, q.B, p.A), eps)
	d4 := sign(Orient(q.A, q.B, p.B), eps)
	return d1*d2 < 0 && d3*d4 < 0
}

// Horizontal reports whether the piece runs along the x axis.
func (p Piece) Horizontal(eps float64) bool { return math.Abs(p.A[1]-p.B[1]) <= eps }

// Vertical reports whether the piece runs along the y axis.
func (p Piece) Vertical(eps float64) bool { return math.Abs(p.A[0]-p.B[0]) <= eps }

// Degenerate reports whether the piece has (near) zero length.
func (p Piece) Degenerate(eps float64) bool { return near(p.A, p.B, eps) }

// CollinearOverlap reports whether two axis-aligned pieces lie on the same
// line and share a stretch longer than eps. Touching end to end is allowed.
func CollinearOverlap(p, q Piece, eps float64) bool {
	if p.Degenerate(eps) || q.Degenerate(eps) {
		return false
	}
	switch {
	case p.Horizontal(eps) && q.Horizontal(eps) && math.Abs(p.A[1]-q.A[1]) <= eps:
		return overlap1D(p.A[0], p.B[0], q.A[0], q.B[0]) > eps
	case p.Vertical(eps) && q.Vertical(eps) && math.Abs(p.A[0]-q.A[0]) <= eps:
		return overlap1D(p.A[1], p.B[1], q.A[1], q.B[1]) > eps
	}
	return false
}

func overlap1D(a1, a2, b1, b2 float64) float64 {
	lo := math.Max(math.Min(a1, a2), math.Min(b1, b2))
	hi := math.Min(math.Max(a1, a2), math.Max(b1, b2))
	return hi - lo
}

// Encloses reports whether the polyline, closed back to its first point,
// contains p on its boundary or inside. Points coinciding with either end of
// the polyline are never enclosed. A polyline with zero area encloses
// nothing.
func Encloses(path []orb.Point, p orb.Point, eps float64) bool {
	if len(path) < 3 {
		return false
	}
	if near(p, path[0], eps) || near(p, path[len(path)-1], eps) {
		return false
	}
	ring := make(orb.Ring, 0, len(path)+1)
	ring = append(ring, path...)
	ring = append(ring, path[0])
	if math.Abs(planar.Area(ring)) <= eps {
		return false
	}
	return planar.RingContains(ring, p)
}

// ArcLengths returns the cumulative distance from the first point to every
// point of pts. The result has the same length as pts.
func ArcLengths(pts []orb.Point) []float64 {
	if len(pts) == 0 {
		return nil
	}
	steps := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		steps[i] = planar.Distance(pts[i-1], pts[i])
	}
	return floats.CumSum(make([]float64, len(pts)), steps)
}

// Length returns the total length of the polyline.
func Length(pts []orb.Point) float64 {
	cum := ArcLengths(pts)
	if len(cum) == 0 {
		return 0
	}
	return cum[len(cum)-1]
}

// At returns the point at arc distance s along pts, using the cumulative
// lengths in cum (as returned by [ArcLengths]). It also returns the index of
// the piece the point lies on. s is clamped to [0, total].
func At(pts []orb.Point, cum []float64, s float64) (orb.Point, int) {
	n := len(pts)
	switch {
	case n == 0:
		return orb.Point{}, -1
	case n == 1 || s <= 0:
		return pts[0], 0
	case s >= cum[n-1]:
		return pts[n-1], n - 2
	}
	for i := 1; i < n; i++ {
		if s > cum[i] {
			continue
		}
		span := cum[i] - cum[i-1]
		if span <= 0 {
			return pts[i], i - 1
		}
		t := (s - cum[i-1]) / span
		return orb.Point{
			pts[i-1][0] + t*(pts[i][0]-pts[i-1][0]),
			pts[i-1][1] + t*(pts[i][1]-pts[i-1][1]),
		}, i - 1
	}
	return pts[n-1], n - 2
}

// Bends counts the interior vertices where the direction changes.
func Bends(pts []orb.Point, eps float64) int {
	bends := 0
	for i := 1; i+1 < len(pts); i++ {
		if sign(Orient(pts[i-1], pts[i], pts[i+1]), eps) != 0 {
			bends++
		}
	}
	return bends
}

// CountCrossings counts the proper crossings among pieces, pairwise.
func CountCrossings(pieces []Piece, eps float64) int {
	total := 0
	for i := range pieces {
		for j := i + 1; j < len(pieces); j++ {
			if ProperCross(pieces[i], pieces[j], eps) {
				total++
			}
		}
	}
	return total
}

// CountOverlaps counts collinear overlaps among pieces, pairwise.
func CountOverlaps(pieces []Piece, eps float64) int {
	total := 0
	for i := range pieces {
		for j := i + 1; j < len(pieces); j++ {
			if CollinearOverlap(pieces[i], pieces[j], eps) {
				total++
			}
		}
	}
	return total
}

// Corners returns the indices of the vertices where a polyline starts, ends,
// turns or doubles back. Runs of coincident points report their first index.
// Consecutive corners bound the straight legs of the polyline.
func Corners(pts []orb.Point, eps float64) []int {
	if len(pts) == 0 {
		return nil
	}
	out := []int{0}
	prev := 0 // last distinct vertex
	for i := 1; i < len(pts)-1; i++ {
		if near(pts[i], pts[prev], eps) {
			continue
		}
		next := i + 1
		for next < len(pts)-1 && near(pts[next], pts[i], eps) {
			next++
		}
		if near(pts[next], pts[i], eps) {
			break
		}
		a, b, c := pts[prev], pts[i], pts[next]
		turn := sign(Orient(a, b, c), eps) != 0
		back := (b[0]-a[0])*(c[0]-b[0])+(b[1]-a[1])*(c[1]-b[1]) < 0
		if turn || back {
			out = append(out, i)
		}
		prev = i
	}
	if last := len(pts) - 1; last > 0 && out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
