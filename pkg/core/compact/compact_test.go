package compact

import (
	"slices"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

func staple() network.Segment {
	return network.Segment{
		Points: []orb.Point{{0, 0}, {0, 3}, {4, 3}, {4, 0}},
		Nodes: []network.Node{
			network.Station("a", "A"), network.Geometry(), network.Geometry(), network.Station("b", "B"),
		},
		RouteName: "red",
	}
}

func TestCompactShrinksStaple(t *testing.T) {
	out, rep := Compact(network.New([]network.Segment{staple()}), Options{MinLeg: 1})
	if rep.Moves != 1 || rep.Shortened != 4 {
		t.Fatalf("report = %+v, want one move shortening by 4", rep)
	}
	want := []orb.Point{{0, 0}, {0, 1}, {4, 1}, {4, 0}}
	if !slices.Equal(out.Segments[0].Points, want) {
		t.Errorf("Points = %v, want %v", out.Segments[0].Points, want)
	}
	if !out.AllAxisAligned(network.DefaultEpsilon) {
		t.Error("compaction created a diagonal")
	}
}

func TestCompactNeverSweepsOverThirdStation(t *testing.T) {
	third := network.Segment{
		Points:    []orb.Point{{1, 2}, {3, 2}},
		Nodes:     []network.Node{network.Station("x", "X"), network.Station("y", "Y")},
		RouteName: "blue",
	}
	in := network.New([]network.Segment{staple(), third})
	out, rep := Compact(in, Options{MinLeg: 1})
	if rep.Moves != 0 {
		t.Fatalf("Moves = %d, want 0", rep.Moves)
	}
	if !slices.Equal(out.Segments[0].Points, in.Segments[0].Points) {
		t.Errorf("red changed: %v", out.Segments[0].Points)
	}
	for _, s := range out.Segments {
		if s.RouteName != "red" {
			continue
		}
		for _, p := range s.Points {
			if p == (orb.Point{1, 2}) || p == (orb.Point{3, 2}) {
				t.Errorf("red now runs through a blue station at %v", p)
			}
		}
	}
}

func TestCompactRespectsMinLeg(t *testing.T) {
	s := staple()
	s.Points = []orb.Point{{0, 0}, {0, 1}, {4, 1}, {4, 0}}
	_, rep := Compact(network.New([]network.Segment{s}), Options{MinLeg: 1})
	if rep.Moves != 0 {
		t.Errorf("Moves = %d, want 0", rep.Moves)
	}
}

func TestStaplesIgnoresZShapes(t *testing.T) {
	n := network.New([]network.Segment{{
		Points:    []orb.Point{{0, 0}, {0, 3}, {4, 3}, {4, 6}},
		Nodes:     []network.Node{network.Geometry(), network.Geometry(), network.Geometry(), network.Geometry()},
		RouteName: "red",
	}})
	if moves := Staples(network.Stitch(n, 0), Options{}); len(moves) != 0 {
		t.Errorf("Staples() = %+v, want none", moves)
	}
}
