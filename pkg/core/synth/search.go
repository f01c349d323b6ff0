package synth

import (
	"math/rand/v2"

	"github.com/paulmach/orb"
)

// Solution is the outcome of one search: a path per corridor and the
// quality measures the searchers compare.
type Solution struct {
	Paths     [][]orb.Point
	Score     int     // crossings plus collinear overlaps
	Crossings int     // proper crossings among all placed pieces
	Overlaps  int     // collinear overlaps among all placed pieces
	Cost      float64 // total path length
	Bends     int
	Fallbacks int // corridors drawn from the unfiltered pool
	Attempts  int
}

// Searcher finds a low-score solution for a problem. Implementations must
// draw all randomness from rng so a fixed seed reproduces the result.
type Searcher interface {
	Search(p *Problem, rng *rand.Rand) Solution
}

// Greedy places every corridor once, in problem order.
type Greedy struct{}

// Search implements [Searcher].
func (Greedy) Search(p *Problem, rng *rand.Rand) Solution {
	sol := p.place(identity(len(p.corridors)), rng)
	sol.Attempts = 1
	return sol
}

// RandomRestart repeats greedy placement over shuffled corridor orders and
// keeps the best attempt. The first attempt uses problem order.
//
// A later attempt replaces the incumbent when its score is lower, or when the
// scores tie and its total path cost is lower by at least
// ImprovementThreshold. The search stops as soon as an attempt scores zero.
type RandomRestart struct {
	Attempts             int
	ImprovementThreshold float64
}

// Search implements [Searcher].
func (r RandomRestart) Search(p *Problem, rng *rand.Rand) Solution {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	order := identity(len(p.corridors))
	var best Solution
	for a := 0; a < attempts; a++ {
		if a > 0 {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		sol := p.place(order, rng)
		if a == 0 || sol.Score < best.Score ||
			(sol.Score == best.Score && best.Cost-sol.Cost >= r.ImprovementThreshold) {
			best = sol
		}
		best.Attempts = a + 1
		if best.Score == 0 {
			break
		}
	}
	return best
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
