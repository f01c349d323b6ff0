package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/topology"
)

// DefaultScale converts network units to Graphviz points.
const DefaultScale = 0.75

// Options configures DOT export.
type Options struct {
	Detailed bool
	Scale    float64
	Epsilon  float64
}

// ToDOT converts the topology of n to an undirected Graphviz graph.
//
// Only topological nodes (junctions, termini, route changes) appear. Each
// logical edge is labeled with its route names and colored with the first
// route's color tag when there is one. Stations keep their names as labels.
func ToDOT(n *network.Network, opts Options) string {
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = network.DefaultEpsilon
	}
	g := topology.Build(n, opts.Epsilon)
	names := stationNames(n, opts.Epsilon)
	colors := routeColors(n)

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=10, width=0.2, fixedsize=false];\n")
	buf.WriteString("  edge [penwidth=3];\n")
	buf.WriteString("\n")

	for _, k := range g.Nodes() {
		if !g.IsTopological(k) {
			continue
		}
		p := g.Point(k)
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(k), strings.Join(nodeAttrs(g, k, p, names[k], opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := []string{fmt.Sprintf("label=%q", strings.Join(e.Routes, ","))}
		if len(e.Routes) > 0 {
			if c, ok := colors[e.Routes[0]]; ok {
				attrs = append(attrs, fmt.Sprintf("color=%q", c))
			}
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", nodeID(e.From), nodeID(e.To), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(k network.Key) string {
	return fmt.Sprintf("n%d_%d", k.X, k.Y)
}

func nodeAttrs(g *topology.Graph, k network.Key, p orb.Point, name string, opts Options) []string {
	label := name
	if opts.Detailed {
		label = fmt.Sprintf("%s\ndeg %d\n(%g, %g)", name, g.Degree(k), p[0], p[1])
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("pos=\"%s,%s!\"", ftoa(p[0]*opts.Scale), ftoa(p[1]*opts.Scale)),
	}
	if name == "" {
		attrs = append(attrs, "shape=point")
	}
	return attrs
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// stationNames maps keys to the joined names of the real nodes there.
func stationNames(n *network.Network, eps float64) map[network.Key]string {
	seen := make(map[network.Key][]string)
	for _, st := range n.Stations() {
		k := network.KeyOf(st.Point, eps)
		name := st.Node.Name
		if name == "" {
			name = st.Node.ID
		}
		if name != "" && !slices.Contains(seen[k], name) {
			seen[k] = append(seen[k], name)
		}
	}
	out := make(map[network.Key]string, len(seen))
	for k, names := range seen {
		out[k] = strings.Join(names, " / ")
	}
	return out
}

func routeColors(n *network.Network) map[string]string {
	out := make(map[string]string)
	for _, s := range n.Segments {
		if c := s.Tags["color"]; c != "" {
			if _, ok := out[s.RouteName]; !ok {
				out[s.RouteName] = c
			}
		}
	}
	return out
}

// RenderSVG lays out a DOT graph with neato and renders it to SVG.
func RenderSVG(ctx context.Context, src string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized svg tag with one whose
// width and height match the viewBox, so the drawing scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
