// Package synth redraws every link of a network as an orthogonal path.
//
// # Overview
//
// A link is the chain of one segment between two key nodes (see
// [topology.Links]). Links with the same endpoints and the same carried
// stations form a corridor and are drawn with one shared path.
//
// For every corridor, [Candidates] proposes the straight piece when the
// endpoints are already axis-aligned, otherwise two L paths and a number of
// randomized Z paths. Candidates are filtered by two hard constraints:
//
//   - no collinear overlap with a piece placed earlier
//   - no foreign anchor station on or inside the path closed back to its start
//
// When nothing survives, the corridor falls back to the unfiltered pool and
// [Solution.Fallbacks] is incremented. The survivors are scored by the
// number of proper crossings with placed pieces; ties go to fewer bends,
// then shorter length, then generation order.
//
// # Search
//
// A [Searcher] decides in which order corridors are placed. [Greedy] places
// them once in input order. [RandomRestart] repeats the greedy pass over
// shuffled orders, keeps the attempt with the fewest crossings plus overlaps,
// and stops early at zero. All randomness comes from the *rand.Rand handed
// to [Solve], so a fixed seed reproduces the layout.
//
// The search is an anytime heuristic: the best solution found is always
// returned, even when it still crosses.
package synth
