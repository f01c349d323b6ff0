package inject

import (
	"math"
	"slices"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/geom"
	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
)

const eps = network.DefaultEpsilon

func link(from, to orb.Point, carried ...topology.Carried) topology.Link {
	return topology.Link{
		From:     from,
		To:       to,
		FromNode: network.Station("a", "A"),
		ToNode:   network.Station("b", "B"),
		Start:    0,
		End:      len(carried) + 1,
		Carried:  carried,
	}
}

func identities(nodes []network.Node) []string {
	var out []string
	for _, nd := range nodes {
		if nd.IsReal() {
			out = append(out, nd.Identity())
		}
	}
	return out
}

func TestPlaceHalfway(t *testing.T) {
	l := link(orb.Point{0, 0}, orb.Point{4, 1},
		topology.Carried{Index: 1, Node: network.Station("m", "M"), Ratio: 0.5})
	skeleton := []orb.Point{{0, 0}, {0, 1}, {4, 1}}

	pl := Place(skeleton, l, eps)
	total := geom.Length(skeleton)

	var at int
	for i, nd := range pl.Nodes {
		if nd.ID == "m" {
			at = i
		}
	}
	arc := geom.Length(pl.Points[:at+1])
	if math.Abs(arc-total/2) > 1e-9 {
		t.Errorf("station at arc %v, want %v", arc, total/2)
	}
	if pl.Points[at] != (orb.Point{1.5, 1}) {
		t.Errorf("station at %v, want (1.5, 1)", pl.Points[at])
	}
}

func TestPlaceReplacesCorner(t *testing.T) {
	l := link(orb.Point{0, 0}, orb.Point{4, 4},
		topology.Carried{Index: 1, Node: network.Station("m", "M"), Ratio: 0.5})
	pl := Place([]orb.Point{{0, 0}, {4, 0}, {4, 4}}, l, eps)

	if len(pl.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3 (corner replaced)", len(pl.Points))
	}
	if pl.Nodes[1].ID != "m" || pl.Points[1] != (orb.Point{4, 0}) {
		t.Errorf("corner = %v %+v, want station m at (4,0)", pl.Points[1], pl.Nodes[1])
	}
	if !slices.Equal(pl.Source, []int{0, 1, 2}) {
		t.Errorf("Source = %v", pl.Source)
	}
}

func TestPlacePreservesIdentitiesAndOrder(t *testing.T) {
	l := link(orb.Point{0, 0}, orb.Point{6, 3},
		topology.Carried{Index: 1, Node: network.Station("x", ""), Ratio: 0.2},
		topology.Carried{Index: 2, Node: network.Transfer("hub", "", ""), Ratio: 0.2},
		topology.Carried{Index: 3, Node: network.Station("y", ""), Ratio: 0.1}, // out of order, clamped forward
		topology.Carried{Index: 4, Node: network.Station("z", ""), Ratio: 1.7},
	)
	skeleton := []orb.Point{{0, 0}, {3, 0}, {3, 3}, {6, 3}}
	pl := Place(skeleton, l, eps)

	want := []string{"station:a", "station:x", "transfer:hub", "station:y", "station:z", "station:b"}
	if got := identities(pl.Nodes); !slices.Equal(got, want) {
		t.Errorf("identities = %v, want %v", got, want)
	}
	if len(pl.Points) != len(pl.Nodes) {
		t.Errorf("parity: %d points, %d nodes", len(pl.Points), len(pl.Nodes))
	}

	again := Place(skeleton, l, eps)
	if !slices.Equal(pl.Points, again.Points) {
		t.Errorf("Place is not repeatable: %v vs %v", pl.Points, again.Points)
	}

	cum := geom.ArcLengths(pl.Points)
	for i := 1; i < len(cum); i++ {
		if cum[i] < cum[i-1] {
			t.Fatalf("points go backwards at %d", i)
		}
	}
}

func TestApplyRemapsWeights(t *testing.T) {
	s := network.Segment{
		Points: []orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}},
		Nodes: []network.Node{
			network.Station("a", ""), network.Geometry(), network.Station("m", ""),
			network.Geometry(), network.Station("b", ""),
		},
		RouteName: "red",
		Weights:   []network.Weight{{Start: 0, End: 2, Value: 3}, {Start: 2, End: 4, Value: 5}},
	}
	n := network.New([]network.Segment{s})
	links := topology.Links(n, nil, eps)
	out, err := Apply(n, links, [][]orb.Point{{{0, 0}, {4, 0}, {4, 4}}}, eps)
	if err != nil {
		t.Fatal(err)
	}
	got := out.Segments[0]
	if !slices.Equal(got.Points, []orb.Point{{0, 0}, {4, 0}, {4, 4}}) {
		t.Errorf("Points = %v", got.Points)
	}
	want := []network.Weight{{Start: 0, End: 1, Value: 3}, {Start: 1, End: 2, Value: 5}}
	if !slices.Equal(got.Weights, want) {
		t.Errorf("Weights = %v, want %v", got.Weights, want)
	}
	if len(n.Segments[0].Points) != 5 {
		t.Error("input network was modified")
	}
}

func TestApplyJoinsLinks(t *testing.T) {
	s := network.Segment{
		Points:    []orb.Point{{0, 0}, {2, 1}, {4, 0}},
		Nodes:     []network.Node{network.Station("a", ""), network.Transfer("t", "", ""), network.Station("b", "")},
		RouteName: "red",
	}
	n := network.New([]network.Segment{s})
	keys := topology.KeyNodes(n, eps)
	links := topology.Links(n, keys, eps)
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	out, err := Apply(n, links, [][]orb.Point{{{0, 0}, {2, 0}, {2, 1}}, {{2, 1}, {4, 1}, {4, 0}}}, eps)
	if err != nil {
		t.Fatal(err)
	}
	want := []orb.Point{{0, 0}, {2, 0}, {2, 1}, {4, 1}, {4, 0}}
	if !slices.Equal(out.Segments[0].Points, want) {
		t.Errorf("Points = %v, want %v", out.Segments[0].Points, want)
	}
	if out.Segments[0].Nodes[2].ConnectID != "t" {
		t.Errorf("joint node = %+v, want transfer t", out.Segments[0].Nodes[2])
	}
}
