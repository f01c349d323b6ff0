package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

// importCommand creates the import command: GeoJSON in, segment JSON out.
func (c *CLI) importCommand() *cobra.Command {
	var (
		output    string
		tolerance float64
		layerID   string
		layerURL  string
	)

	cmd := &cobra.Command{
		Use:   "import <file.geojson>",
		Short: "Convert GeoJSON line and station features to segment JSON",
		Long: `Convert a GeoJSON FeatureCollection into the segment format.

LineString and MultiLineString features become segments, Point features become
stations attached to the nearest line vertex within the snap tolerance.`,
		Example: `  transitmap import lines.geojson -o network.json
  transitmap import lines.geojson --tolerance 0.001 --to-layer berlin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input := args[0]

			f, err := os.Open(input)
			if err != nil {
				if os.IsNotExist(err) {
					return errors.New(errors.ErrCodeFileNotFound, "file not found: %s", input)
				}
				return err
			}
			defer f.Close()

			n, report, err := pkgio.ReadGeoJSON(f, pkgio.GeoJSONOptions{SnapTolerance: tolerance})
			if err != nil {
				return err
			}
			c.Logger.Debug("imported geojson", "file", input, "lines", report.Lines, "skipped", report.Skipped)

			printSuccess("Imported %d lines", report.Lines)
			printKeyValue("Stations", strconv.Itoa(report.Stations))
			printKeyValue("Attached", strconv.Itoa(report.Attached))
			printKeyValue("Transfers", strconv.Itoa(report.Transfers))
			if len(report.Unattached) > 0 {
				printWarning("%d stations had no line vertex within tolerance: %s",
					len(report.Unattached), strings.Join(report.Unattached, ", "))
			}

			if layerID != "" {
				s, err := c.openLayers(ctx, layerURL)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.Set(ctx, layerID, n); err != nil {
					return err
				}
				printStored(layerID, len(n.Segments), len(n.Stations()))
				if output == "" {
					return nil
				}
			}

			if output == "" {
				output = strings.TrimSuffix(input, ".geojson") + ".json"
			}
			if err := pkgio.ExportSegments(n, output); err != nil {
				return err
			}
			printFile(output)
			printNextStep("Schematize it", "transitmap run "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with .json)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", pkgio.DefaultSnapTolerance, "station snap tolerance in input units")
	cmd.Flags().StringVar(&layerID, "to-layer", "", "also store the network under this layer")
	cmd.Flags().StringVar(&layerURL, "layer-store", "", "layer store URL")

	return cmd
}
