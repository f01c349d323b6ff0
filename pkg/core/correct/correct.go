// Package correct removes U-shaped artifacts left by path synthesis.
//
// A U is three consecutive legs of a stitched route chain where the two outer
// legs run in (nearly) opposite directions and the bridge between them is
// shorter than a cap. Collapsing a U translates one outer leg by the bridge
// vector so the bridge shrinks to a point.
//
// A bridge end that carries a real station or transfer never moves. When only
// one end is protected the other leg moves; when both are, the U is left
// alone; when neither is, the shorter leg moves first. Every move is tried
// on a copy and committed only if no piece anywhere in the network becomes
// diagonal.
package correct

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
)

// Defaults for [Options].
const (
	DefaultPasses                = 10
	DefaultCollapseCap           = 2.5
	DefaultAntiparallelTolerance = 1e-3
)

// Options tunes the corrector.
type Options struct {
	Passes                int     // maximum detection passes
	CollapseCap           float64 // bridges must be strictly shorter
	AntiparallelTolerance float64 // outer legs qualify when 1 + cos(angle) is at most this
	Epsilon               float64
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Passes <= 0 {
		o.Passes = DefaultPasses
	}
	if o.CollapseCap <= 0 {
		o.CollapseCap = DefaultCollapseCap
	}
	if o.AntiparallelTolerance <= 0 {
		o.AntiparallelTolerance = DefaultAntiparallelTolerance
	}
	if o.Epsilon <= 0 {
		o.Epsilon = network.DefaultEpsilon
	}
}

// Report counts what the corrector did.
type Report struct {
	Passes    int `json:"passes"`
	Found     int `json:"found"`
	Collapsed int `json:"collapsed"`
	Protected int `json:"protected"` // skipped, both bridge ends carry stations
	Rejected  int `json:"rejected"`  // every option broke axis alignment
	Removed   int `json:"removed"`   // degenerate segments dropped afterwards
}

// U is one detected U shape. The chain indices refer to the stitched chain it
// was found in.
type U struct {
	Chain  int
	Legs   [4]int // corner indices: outer leg, bridge, outer leg
	Bridge float64
}

// Detect lists the U shapes in the chains.
func Detect(chains []network.Chain, opts Options) []U {
	opts.SetDefaults()
	var out []U
	for ci, c := range chains {
		corners := geom.Corners(c.Points, opts.Epsilon)
		for j := 0; j+3 < len(corners); j++ {
			a0, a1, b1, c1 := corners[j], corners[j+1], corners[j+2], corners[j+3]
			p := c.Points
			bridge := planar.Distance(p[a1], p[b1])
			if bridge <= opts.Epsilon || bridge >= opts.CollapseCap {
				continue
			}
			if !antiparallel(sub(p[a1], p[a0]), sub(p[c1], p[b1]), opts.AntiparallelTolerance) {
				continue
			}
			out = append(out, U{Chain: ci, Legs: [4]int{a0, a1, b1, c1}, Bridge: bridge})
		}
	}
	return out
}

// Correct collapses U shapes until none is left or the pass cap is reached.
// The input is not modified.
func Correct(n *network.Network, opts Options) (*network.Network, Report) {
	opts.SetDefaults()
	eps := opts.Epsilon
	out := n.Clone()
	var rep Report

	for rep.Passes < opts.Passes {
		rep.Passes++
		chains := network.Stitch(out, eps)
		us := Detect(chains, opts)
		rep.Found += len(us)

		committed := 0
		for _, u := range us {
			next, outcome := collapse(out, chains[u.Chain], u, opts)
			switch outcome {
			case collapsed:
				out = next
				committed++
			case protected:
				rep.Protected++
			case rejected:
				rep.Rejected++
			}
		}
		rep.Collapsed += committed
		rep.Removed += out.Cleanup(eps)
		if committed == 0 {
			break
		}
	}
	return out, rep
}

type outcome int

const (
	stale outcome = iota
	collapsed
	protected
	rejected
)

// collapse tries to fold one U in n. The chain's back-references are read
// against the current network, so a U already changed by an earlier commit in
// the same pass is detected as stale and skipped.
func collapse(n *network.Network, c network.Chain, u U, opts Options) (*network.Network, outcome) {
	eps := opts.Epsilon
	pt := func(i int) orb.Point {
		r := c.Refs[i]
		return n.Segments[r.Segment].Points[r.Index]
	}
	for i := u.Legs[0]; i <= u.Legs[3]; i++ {
		if !network.Same(pt(i), c.Points[i], eps) {
			return nil, stale
		}
	}

	anchored := n.RealKeys(eps)
	aEnd, cEnd := pt(u.Legs[1]), pt(u.Legs[2])
	aProt := anchored[network.KeyOf(aEnd, eps)]
	cProt := anchored[network.KeyOf(cEnd, eps)]
	if aProt && cProt {
		return nil, protected
	}

	// A move translates chain points [from, to] by v.
	type option struct {
		from, to int
		v        orb.Point
	}
	moveA := option{u.Legs[0], u.Legs[1], sub(cEnd, aEnd)}
	moveC := option{u.Legs[2], u.Legs[3], sub(aEnd, cEnd)}

	var choices []option
	switch {
	case aProt:
		choices = []option{moveC}
	case cProt:
		choices = []option{moveA}
	default:
		lenA := planar.Distance(pt(u.Legs[0]), aEnd)
		lenC := planar.Distance(cEnd, pt(u.Legs[3]))
		if lenC < lenA {
			choices = []option{moveC, moveA}
		} else {
			choices = []option{moveA, moveC}
		}
	}

	for _, o := range choices {
		moves := make(map[network.Key]orb.Point)
		for i := o.from; i <= o.to; i++ {
			p := pt(i)
			moves[network.KeyOf(p, eps)] = orb.Point{p[0] + o.v[0], p[1] + o.v[1]}
		}
		trial := n.Clone()
		network.MoveKeys(trial, moves, eps)
		if trial.AllAxisAligned(eps) {
			return trial, collapsed
		}
	}
	return nil, rejected
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func antiparallel(a, b orb.Point, tol float64) bool {
	la, lb := planar.Distance(orb.Point{}, a), planar.Distance(orb.Point{}, b)
	if la == 0 || lb == 0 {
		return false
	}
	cos := (a[0]*b[0] + a[1]*b[1]) / (la * lb)
	return 1+cos <= tol
}
