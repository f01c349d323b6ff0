package dot

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

func junction() *network.Network {
	return network.New([]network.Segment{
		{
			Points:    []orb.Point{{0, 0}, {1, 0}, {2, 0}},
			Nodes:     []network.Node{network.Station("a", "Alpha"), network.Geometry(), network.Transfer("hub", "", "Hub")},
			RouteName: "red",
			Tags:      map[string]string{"color": "#e00"},
		},
		{
			Points:    []orb.Point{{2, 0}, {2, 2}},
			Nodes:     []network.Node{network.Transfer("hub", "", "Hub"), network.Station("c", "Gamma")},
			RouteName: "blue",
		},
	})
}

func TestToDOT(t *testing.T) {
	src := ToDOT(junction(), Options{})

	for _, want := range []string{
		"graph G {",
		`label="Alpha"`,
		`label="Hub"`,
		`label="red"`,
		`color="#e00"`,
		`pos="1.50,0.00!"`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("ToDOT() missing %s:\n%s", want, src)
		}
	}
	if got := strings.Count(src, " -- "); got != 2 {
		t.Errorf("edges = %d, want 2 (the degree-2 waypoint collapses)", got)
	}
	if strings.Contains(src, `pos="0.75,0.00!"`) {
		t.Error("waypoint at (1,0) should not be a node")
	}
}

func TestToDOTDetailed(t *testing.T) {
	src := ToDOT(junction(), Options{Detailed: true, Scale: 1})
	if !strings.Contains(src, `deg 1`) || !strings.Contains(src, `(2, 2)`) {
		t.Errorf("detailed labels missing:\n%s", src)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
}
