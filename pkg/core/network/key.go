package network

import (
	"cmp"
	"math"

	"github.com/paulmach/orb"
)

// Key is a coordinate quantized to integer multiples of an epsilon. It is the
// only form in which coordinates are used as map keys.
type Key struct {
	X, Y int64
}

// KeyOf quantizes p by eps. A non-positive eps uses [DefaultEpsilon].
func KeyOf(p orb.Point, eps float64) Key {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return Key{X: int64(math.Round(p[0] / eps)), Y: int64(math.Round(p[1] / eps))}
}

// Compare orders keys by X, then Y.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.X, o.X); c != 0 {
		return c
	}
	return cmp.Compare(k.Y, o.Y)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Point returns the representative coordinate of the key.
func (k Key) Point(eps float64) orb.Point {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return orb.Point{float64(k.X) * eps, float64(k.Y) * eps}
}

// Same reports whether a and b quantize to the same key.
func Same(a, b orb.Point, eps float64) bool {
	return KeyOf(a, eps) == KeyOf(b, eps)
}
