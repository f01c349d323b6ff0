package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
)

// Input formats accepted by [Load].
const (
	InputAuto     = ""
	InputSegments = "segments"
	InputGeoJSON  = "geojson"
)

// Load reads a network from path ("-" reads stdin) and validates it. With
// InputAuto, a document whose first non-space byte is '{' is GeoJSON.
func Load(path, format string) (*network.Network, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data, format)
}

// Decode parses an in-memory network document and validates it.
func Decode(data []byte, format string) (*network.Network, error) {
	if format == InputAuto {
		format = InputSegments
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			format = InputGeoJSON
		}
	}

	var n *network.Network
	var err error
	switch format {
	case InputSegments:
		n, err = pkgio.UnmarshalNetwork(data)
	case InputGeoJSON:
		n, _, err = pkgio.UnmarshalGeoJSON(data, pkgio.GeoJSONOptions{})
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown input format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
