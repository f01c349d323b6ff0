package geom

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

const eps = 1e-9

func TestProperCross(t *testing.T) {
	tests := []struct {
		name string
		p, q Piece
		want bool
	}{
		{"x crossing", Piece{orb.Point{0, 0}, orb.Point{2, 2}}, Piece{orb.Point{0, 2}, orb.Point{2, 0}}, true},
		{"plus crossing", Piece{orb.Point{-1, 0}, orb.Point{1, 0}}, Piece{orb.Point{0, -1}, orb.Point{0, 1}}, true},
		{"shared endpoint", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{2, 0}, orb.Point{2, 2}}, false},
		{"t junction", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{1, 0}, orb.Point{1, 2}}, false},
		{"disjoint bounds", Piece{orb.Point{0, 0}, orb.Point{1, 1}}, Piece{orb.Point{5, 5}, orb.Point{6, 4}}, false},
		{"parallel", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{0, 1}, orb.Point{2, 1}}, false},
		{"collinear overlap", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{1, 0}, orb.Point{3, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProperCross(tt.p, tt.q, eps); got != tt.want {
				t.Errorf("ProperCross() = %v, want %v", got, tt.want)
			}
			if got := ProperCross(tt.q, tt.p, eps); got != tt.want {
				t.Errorf("ProperCross() swapped = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollinearOverlap(t *testing.T) {
	tests := []struct {
		name string
		p, q Piece
		want bool
	}{
		{"horizontal overlap", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{3, 0}, orb.Point{1, 0}}, true},
		{"vertical overlap", Piece{orb.Point{1, 0}, orb.Point{1, 5}}, Piece{orb.Point{1, 4}, orb.Point{1, 9}}, true},
		{"end to end", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{2, 0}, orb.Point{4, 0}}, false},
		{"different lines", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{0, 1}, orb.Point{2, 1}}, false},
		{"different axes", Piece{orb.Point{0, 0}, orb.Point{2, 0}}, Piece{orb.Point{1, 0}, orb.Point{1, 2}}, false},
		{"degenerate", Piece{orb.Point{1, 0}, orb.Point{1, 0}}, Piece{orb.Point{0, 0}, orb.Point{2, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollinearOverlap(tt.p, tt.q, eps); got != tt.want {
				t.Errorf("CollinearOverlap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncloses(t *testing.T) {
	path := []orb.Point{{0, 0}, {4, 0}, {4, 4}}
	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"inside", orb.Point{3, 1}, true},
		{"outside", orb.Point{1, 3}, false},
		{"own start", orb.Point{0, 0}, false},
		{"own end", orb.Point{4, 4}, false},
		{"far away", orb.Point{10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encloses(path, tt.p, eps); got != tt.want {
				t.Errorf("Encloses(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if Encloses([]orb.Point{{0, 0}, {2, 0}, {4, 0}}, orb.Point{1, 0}, eps) {
		t.Error("zero-area path must not enclose anything")
	}
}

func TestArcLengthsAndAt(t *testing.T) {
	pts := []orb.Point{{0, 0}, {3, 0}, {3, 4}}
	cum := ArcLengths(pts)
	want := []float64{0, 3, 7}
	for i := range want {
		if math.Abs(cum[i]-want[i]) > eps {
			t.Fatalf("ArcLengths() = %v, want %v", cum, want)
		}
	}

	tests := []struct {
		s     float64
		want  orb.Point
		piece int
	}{
		{-1, orb.Point{0, 0}, 0},
		{1.5, orb.Point{1.5, 0}, 0},
		{3, orb.Point{3, 0}, 0},
		{5, orb.Point{3, 2}, 1},
		{99, orb.Point{3, 4}, 1},
	}
	for _, tt := range tests {
		got, piece := At(pts, cum, tt.s)
		if math.Abs(got[0]-tt.want[0]) > eps || math.Abs(got[1]-tt.want[1]) > eps || piece != tt.piece {
			t.Errorf("At(%v) = %v piece %d, want %v piece %d", tt.s, got, piece, tt.want, tt.piece)
		}
	}
}

func TestBends(t *testing.T) {
	tests := []struct {
		pts  []orb.Point
		want int
	}{
		{[]orb.Point{{0, 0}, {5, 0}}, 0},
		{[]orb.Point{{0, 0}, {2, 0}, {5, 0}}, 0},
		{[]orb.Point{{0, 0}, {5, 0}, {5, 5}}, 1},
		{[]orb.Point{{0, 0}, {2, 0}, {2, 5}, {5, 5}}, 2},
	}
	for _, tt := range tests {
		if got := Bends(tt.pts, eps); got != tt.want {
			t.Errorf("Bends(%v) = %d, want %d", tt.pts, got, tt.want)
		}
	}
}

func ExampleCountCrossings() {
	a := Pieces([]orb.Point{{0, 0}, {2, 2}})
	b := Pieces([]orb.Point{{0, 2}, {2, 0}})
	fmt.Println(CountCrossings(append(a, b...), 1e-9))
	// Output: 1
}

func TestCorners(t *testing.T) {
	tests := []struct {
		name string
		pts  []orb.Point
		want []int
	}{
		{"straight with waypoints", []orb.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, []int{0, 3}},
		{"u shape", []orb.Point{{0, 2}, {0, 1}, {0, 0}, {1, 0}, {1, 2}}, []int{0, 2, 3, 4}},
		{"duplicate corner", []orb.Point{{0, 0}, {2, 0}, {2, 0}, {2, 2}}, []int{0, 1, 3}},
		{"doubles back", []orb.Point{{0, 0}, {2, 0}, {1, 0}}, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Corners(tt.pts, eps)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Corners() = %v, want %v", got, tt.want)
			}
		})
	}
}
