// Package svg draws a schematic network as a standalone SVG document.
//
// Routes are stroked in their color tag (or a palette color), stations are
// drawn as dots, and transfers as white rings. The y axis is flipped so that
// grid coordinates read the way they do on a map.
package svg

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

const routeInteractionCSS = `
    .route { transition: stroke-width 0.2s ease, opacity 0.2s ease; }
    .route.dim { opacity: 0.2; }
    .route.highlight { stroke-width: 10; }`

const routeInteractionJS = `
    document.querySelectorAll('.route').forEach(el => {
      el.addEventListener('mouseenter', () => document.querySelectorAll('.route').forEach(r => {
        r.classList.toggle('highlight', r.dataset.route === el.dataset.route);
        r.classList.toggle('dim', r.dataset.route !== el.dataset.route);
      }));
      el.addEventListener('mouseleave', () => document.querySelectorAll('.route').forEach(r => r.classList.remove('highlight', 'dim')));
    });`

// palette colors routes without a color tag, in first-seen order.
var palette = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#42d4f4", "#f032e6", "#9a6324"}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	cell        float64
	margin      float64
	labels      bool
	interactive bool
}

// WithCellSize sets the size of one grid unit in pixels.
func WithCellSize(px float64) Option { return func(r *renderer) { r.cell = px } }

// WithLabels draws station names.
func WithLabels() Option { return func(r *renderer) { r.labels = true } }

// WithInteraction adds hover highlighting of routes.
func WithInteraction() Option { return func(r *renderer) { r.interactive = true } }

// RenderSVG renders n.
func RenderSVG(n *network.Network, opts ...Option) []byte {
	r := renderer{cell: 40, margin: 40}
	for _, opt := range opts {
		opt(&r)
	}

	bound := bounds(n)
	w := (bound.Max[0]-bound.Min[0])*r.cell + 2*r.margin
	h := (bound.Max[1]-bound.Min[1])*r.cell + 2*r.margin
	project := func(p orb.Point) (float64, float64) {
		return (p[0]-bound.Min[0])*r.cell + r.margin, (bound.Max[1]-p[1])*r.cell + r.margin
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", routeInteractionCSS)
	}

	colors := routeColors(n)
	for _, s := range n.Segments {
		fmt.Fprintf(&buf, `  <polyline class="route" data-route="%s" fill="none" stroke="%s" stroke-width="6" stroke-linejoin="round" stroke-linecap="round" points="`,
			html.EscapeString(s.RouteName), colors[s.RouteName])
		for i, p := range s.Points {
			x, y := project(p)
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%.1f,%.1f", x, y)
		}
		buf.WriteString(`"/>` + "\n")
	}

	seen := make(map[network.Key]bool)
	for _, st := range n.Stations() {
		k := network.KeyOf(st.Point, network.DefaultEpsilon)
		if seen[k] {
			continue
		}
		seen[k] = true
		x, y := project(st.Point)
		if st.Node.IsTransfer() {
			fmt.Fprintf(&buf, `  <circle class="transfer" cx="%.1f" cy="%.1f" r="7" fill="white" stroke="black" stroke-width="2"/>`+"\n", x, y)
		} else {
			fmt.Fprintf(&buf, `  <circle class="station" cx="%.1f" cy="%.1f" r="4" fill="white" stroke="black" stroke-width="1.5"/>`+"\n", x, y)
		}
		if r.labels && st.Node.Name != "" {
			fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" font-family="sans-serif" font-size="11">%s</text>`+"\n",
				x+9, y-9, html.EscapeString(st.Node.Name))
		}
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <script>%s\n  </script>\n", routeInteractionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func bounds(n *network.Network) orb.Bound {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, s := range n.Segments {
		for _, p := range s.Points {
			b = b.Extend(p)
		}
	}
	if b.Min[0] > b.Max[0] {
		return orb.Bound{}
	}
	return b
}

func routeColors(n *network.Network) map[string]string {
	out := make(map[string]string)
	for _, s := range n.Segments {
		if _, ok := out[s.RouteName]; ok {
			continue
		}
		if c := s.Tags["color"]; c != "" {
			out[s.RouteName] = c
			continue
		}
		out[s.RouteName] = palette[len(out)%len(palette)]
	}
	return out
}
