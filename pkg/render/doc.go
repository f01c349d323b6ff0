// Package render turns pipeline output into pictures.
//
// The schematic pipeline never calls a renderer; hosts do, after a run.
//
//   - [svg] draws the schematic network itself
//   - [dot] exports the logical topology graph to Graphviz
//
// [ToPDF] and [ToPNG] convert any SVG using the external rsvg-convert tool
// from librsvg:
//
//	out := svg.RenderSVG(result.Network, svg.WithLabels())
//	pdf, err := render.ToPDF(out)
//	png, err := render.ToPNG(out, 2.0)  // 2x scale
//
// [svg]: github.com/matzehuels/transitmap/pkg/render/svg
// [dot]: github.com/matzehuels/transitmap/pkg/render/dot
package render
