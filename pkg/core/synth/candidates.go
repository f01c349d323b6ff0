package synth

import (
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Kind is the shape family of a candidate path.
type Kind int

const (
	// Straight is the direct piece between two axis-aligned endpoints.
	Straight Kind = iota
	// LHorizontal bends once, moving along x first.
	LHorizontal
	// LVertical bends once, moving along y first.
	LVertical
	// ZHorizontal bends twice, moving along x first.
	ZHorizontal
	// ZVertical bends twice, moving along y first.
	ZVertical
)

func (k Kind) String() string {
	switch k {
	case Straight:
		return "straight"
	case LHorizontal:
		return "l-horizontal"
	case LVertical:
		return "l-vertical"
	case ZHorizontal:
		return "z-horizontal"
	case ZVertical:
		return "z-vertical"
	default:
		return "unknown"
	}
}

// Candidate is one orthogonal path proposal for a link.
type Candidate struct {
	Kind   Kind
	Order  int // generation order, the final tie-break
	Points []orb.Point
	Bends  int
	Length float64
}

func newCandidate(kind Kind, order int, pts []orb.Point, eps float64) Candidate {
	return Candidate{
		Kind:   kind,
		Order:  order,
		Points: pts,
		Bends:  geom.Bends(pts, eps),
		Length: geom.Length(pts),
	}
}

// Candidates proposes orthogonal paths from a to b. An axis-aligned pair
// yields only the straight piece. Otherwise the two L paths come first,
// followed by zCount Z paths whose middle leg sits at a uniformly sampled
// fraction of the span in (cornerMin, cornerMax), alternating between x-first
// and y-first.
func Candidates(a, b orb.Point, zCount int, cornerMin, cornerMax float64, rng *rand.Rand, eps float64) []Candidate {
	if network.AxisAligned(a, b, eps) {
		return []Candidate{newCandidate(Straight, 0, []orb.Point{a, b}, eps)}
	}

	out := make([]Candidate, 0, 2+max(zCount, 0))
	out = append(out,
		newCandidate(LHorizontal, 0, []orb.Point{a, {b[0], a[1]}, b}, eps),
		newCandidate(LVertical, 1, []orb.Point{a, {a[0], b[1]}, b}, eps),
	)

	dx, dy := b[0]-a[0], b[1]-a[1]
	for i := 0; i < zCount; i++ {
		t := cornerMin + rng.Float64()*(cornerMax-cornerMin)
		order := len(out)
		if i%2 == 0 {
			x := a[0] + t*dx
			out = append(out, newCandidate(ZHorizontal, order,
				[]orb.Point{a, {x, a[1]}, {x, b[1]}, b}, eps))
		} else {
			y := a[1] + t*dy
			out = append(out, newCandidate(ZVertical, order,
				[]orb.Point{a, {a[0], y}, {b[0], y}, b}, eps))
		}
	}
	return out
}
