// Package dot exports the logical topology of a transit network to Graphviz.
//
// # Overview
//
// The topology graph collapses every chain of degree-2 vertices into one
// logical edge, so the export shows which stations are junctions and termini
// and which routes share a corridor. It is a debugging aid for the schematic
// pipeline and a hand-off to external renderers.
//
// # Usage
//
//	src := dot.ToDOT(n, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
//
// Nodes are pinned at their network coordinates (pos="x,y!") and laid out
// with the neato engine, so a schematic output renders as a grid drawing.
//
// # Options
//
//   - Detailed: label nodes with their degree and coordinates
//   - Scale: multiply coordinates before pinning; zero uses [DefaultScale]
//   - Epsilon: key quantum for building the graph
package dot
