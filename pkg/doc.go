// Package pkg holds the transitmap libraries.
//
// Transitmap turns geographic transit line geometry into an orthogonal
// metro-map schematic. Every station, transfer and route of the input
// survives; only coordinates change.
//
// # Layout
//
//   - [core] holds the data model and one package per pipeline stage
//   - [pipeline] chains the stages and adds caching and rendering
//   - [io] reads and writes segment JSON and GeoJSON
//   - [render] draws schematics (SVG, PNG, PDF) and topology graphs (DOT)
//   - [cache] and [layer] are the storage backends
//   - [errors] and [observability] are shared by everything above
//
// # Data Flow
//
//	segment JSON / GeoJSON
//	         ↓
//	    [io] package (decode into a network)
//	         ↓
//	    [core/grid] quantize to the grid, straighten the geometry
//	         ↓
//	    [core/synth] draw each link as an orthogonal path
//	         ↓
//	    [core/inject] put the stations back on the paths
//	         ↓
//	    [core/correct] and [core/compact] remove detours
//	         ↓
//	    [core/weights] merges weights, [core/normalize] compresses coordinates
//	         ↓
//	    schematic network → JSON, SVG, DOT, PNG, PDF
//
// # Quick Start
//
//	n, err := pipeline.Load("network.json", pipeline.InputAuto)
//	if err != nil {
//	    return err
//	}
//	res, err := pipeline.Schematize(ctx, n, pipeline.Options{Seed: 7})
//	if err != nil {
//	    return err
//	}
//	out, err := pipeline.Render(ctx, res.Network, []string{"svg"}, pipeline.RenderOptions{})
//
// [core]: github.com/matzehuels/transitmap/pkg/core
// [core/grid]: github.com/matzehuels/transitmap/pkg/core/grid
// [core/normalize]: github.com/matzehuels/transitmap/pkg/core/normalize
// [core/synth]: github.com/matzehuels/transitmap/pkg/core/synth
// [core/inject]: github.com/matzehuels/transitmap/pkg/core/inject
// [core/correct]: github.com/matzehuels/transitmap/pkg/core/correct
// [core/compact]: github.com/matzehuels/transitmap/pkg/core/compact
// [core/weights]: github.com/matzehuels/transitmap/pkg/core/weights
// [pipeline]: github.com/matzehuels/transitmap/pkg/pipeline
// [io]: github.com/matzehuels/transitmap/pkg/io
// [render]: github.com/matzehuels/transitmap/pkg/render
// [cache]: github.com/matzehuels/transitmap/pkg/cache
// [layer]: github.com/matzehuels/transitmap/pkg/layer
// [errors]: github.com/matzehuels/transitmap/pkg/errors
// [observability]: github.com/matzehuels/transitmap/pkg/observability
package pkg
