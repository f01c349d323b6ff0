package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
	"github.com/matzehuels/transitmap/pkg/render"
	"github.com/matzehuels/transitmap/pkg/render/dot"
	"github.com/matzehuels/transitmap/pkg/render/svg"
)

// Output formats.
const (
	FormatJSON     = "json"     // flat segment array
	FormatRoutes   = "routes"   // segments grouped by route
	FormatGeoJSON  = "geojson"  // FeatureCollection
	FormatSVG      = "svg"      // schematic drawing
	FormatDOT      = "dot"      // Graphviz source of the topological graph
	FormatTopology = "topology" // topological graph laid out by Graphviz, as SVG
	FormatPNG      = "png"      // schematic drawing, needs rsvg-convert
	FormatPDF      = "pdf"      // schematic drawing, needs rsvg-convert
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true, FormatRoutes: true, FormatGeoJSON: true, FormatSVG: true,
	FormatDOT: true, FormatTopology: true, FormatPNG: true, FormatPDF: true,
}

// FormatExt maps formats to file extensions.
var FormatExt = map[string]string{
	FormatJSON:     ".json",
	FormatRoutes:   ".routes.json",
	FormatGeoJSON:  ".geojson",
	FormatSVG:      ".svg",
	FormatDOT:      ".dot",
	FormatTopology: ".topology.svg",
	FormatPNG:      ".png",
	FormatPDF:      ".pdf",
}

// ValidateFormat checks that a format is known.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid format: %q (must be one of: json, routes, geojson, svg, dot, topology, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks every format in the list.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// RenderOptions configures exports.
type RenderOptions struct {
	// Detailed adds station labels to drawings and route labels to DOT edges.
	Detailed bool `toml:"detailed" json:"detailed,omitempty"`

	// CellSize is the SVG grid cell size in pixels (zero uses the renderer default).
	CellSize float64 `toml:"cell_size" json:"cell_size,omitempty"`

	// Interactive adds route highlighting on hover to SVG output.
	Interactive bool `toml:"interactive" json:"interactive,omitempty"`

	// Scale is the PNG resolution factor (zero means 2).
	Scale float64 `toml:"scale" json:"scale,omitempty"`
}

// Render produces one artifact per requested format.
func Render(ctx context.Context, n *network.Network, formats []string, opts RenderOptions) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(formats))
	var drawing []byte
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = writeTo(n, pkgio.WriteSegments)
		case FormatRoutes:
			data, err = writeTo(n, pkgio.WriteRoutes)
		case FormatGeoJSON:
			data, err = writeTo(n, pkgio.WriteGeoJSON)
		case FormatDOT:
			data = []byte(dot.ToDOT(n, dot.Options{Detailed: opts.Detailed}))
		case FormatTopology:
			data, err = dot.RenderSVG(ctx, dot.ToDOT(n, dot.Options{Detailed: opts.Detailed}))
		case FormatSVG, FormatPNG, FormatPDF:
			if drawing == nil {
				drawing = svg.RenderSVG(n, svgOptions(opts)...)
			}
			switch format {
			case FormatSVG:
				data = drawing
			case FormatPNG:
				scale := opts.Scale
				if scale <= 0 {
					scale = 2
				}
				data, err = render.ToPNG(drawing, scale)
			default:
				data, err = render.ToPDF(drawing)
			}
		}

		if err != nil {
			if errors.GetCode(err) != "" {
				return nil, err
			}
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func svgOptions(opts RenderOptions) []svg.Option {
	var out []svg.Option
	if opts.CellSize > 0 {
		out = append(out, svg.WithCellSize(opts.CellSize))
	}
	if opts.Detailed {
		out = append(out, svg.WithLabels())
	}
	if opts.Interactive {
		out = append(out, svg.WithInteraction())
	}
	return out
}

func writeTo(n *network.Network, write func(*network.Network, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(n, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
