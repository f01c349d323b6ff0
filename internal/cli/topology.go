package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/core/synth"
	"github.com/matzehuels/transitmap/pkg/core/topology"
	"github.com/matzehuels/transitmap/pkg/errors"
	"github.com/matzehuels/transitmap/pkg/pipeline"
	"github.com/matzehuels/transitmap/pkg/render/dot"
)

// topologyCommand creates the topology command, which draws the logical
// graph of a network with Graphviz.
func (c *CLI) topologyCommand() *cobra.Command {
	var (
		output      string
		format      string
		inputFormat string
		detailed    bool
	)

	cmd := &cobra.Command{
		Use:   "topology <file>",
		Short: "Draw the topological graph of a network",
		Long: `Reduce a network to its junctions, termini and route changes and draw the
result with Graphviz, as DOT source or as SVG.`,
		Example: `  transitmap topology network.json -o network.topology.svg
  transitmap topology network.json -f dot -o - | dot -Tpng > topo.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format != "dot" && format != "svg" {
				return errors.New(errors.ErrCodeInvalidConfig, "invalid format %q (must be dot or svg)", format)
			}
			n, err := pipeline.Load(args[0], inputFormat)
			if err != nil {
				return err
			}

			src := dot.ToDOT(n, dot.Options{Detailed: detailed})
			data := []byte(src)
			if format == "svg" {
				if data, err = dot.RenderSVG(ctx, src); err != nil {
					return err
				}
			}

			if output == "-" {
				_, err := c.out().Write(data)
				return err
			}
			if output == "" {
				output = basePath("", args[0]) + ".topology." + format
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file or "-" for stdout`)
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "dot or svg")
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input format: segments or geojson (default: detect)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label edges with route names")

	return cmd
}

// crossingsReport is the JSON form of the crossings command output.
type crossingsReport struct {
	Segments  int              `json:"segments"`
	Stations  int              `json:"stations"`
	Crossings int              `json:"crossings"`
	Overlaps  int              `json:"overlaps"`
	Diagonal  bool             `json:"diagonal"`
	Topology  topology.Summary `json:"topology"`
}

func analyze(n *network.Network) crossingsReport {
	eps := network.DefaultEpsilon
	return crossingsReport{
		Segments:  len(n.Segments),
		Stations:  len(n.Stations()),
		Crossings: synth.CountCrossings(n, eps),
		Overlaps:  synth.CountOverlaps(n, eps),
		Diagonal:  !n.AllAxisAligned(eps),
		Topology:  topology.Build(n, eps).Summarize(),
	}
}

// crossingsCommand creates the crossings command, which reports crossing
// and overlap counts for a network or schematic.
func (c *CLI) crossingsCommand() *cobra.Command {
	var (
		inputFormat string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "crossings <file>",
		Short: "Count crossings and overlaps in a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := pipeline.Load(args[0], inputFormat)
			if err != nil {
				return err
			}
			r := analyze(n)

			if asJSON {
				enc := json.NewEncoder(c.out())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}

			printKeyValue("Segments", fmt.Sprint(r.Segments))
			printKeyValue("Stations", fmt.Sprint(r.Stations))
			printKeyValue("Crossings", fmt.Sprint(r.Crossings))
			printKeyValue("Overlaps", fmt.Sprint(r.Overlaps))
			printKeyValue("Junctions", fmt.Sprint(r.Topology.Junctions))
			printKeyValue("Termini", fmt.Sprint(r.Topology.Termini))
			if r.Diagonal {
				printDetail("network has diagonal pieces; run it through the pipeline for a schematic")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input format: segments or geojson (default: detect)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}
