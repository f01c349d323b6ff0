package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
)

// ReadSegments decodes segment JSON from r.
//
// The input is either an array of segment records or an array of route
// groups ({"route_name", "segments"}). Segments inside a group without a
// route_name tag inherit the group's name. Node records are unified as
// described in the package documentation.
//
// A missing nodes array, or one shorter than points, is filled from the
// third element of each point and otherwise with geometry nodes. A nodes
// array longer than points is an INVALID_FORMAT error.
//
// ReadSegments only checks the encoding; call [network.Network.Validate] for
// pipeline input checks.
func ReadSegments(r io.Reader) (*network.Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return UnmarshalNetwork(data)
}

// UnmarshalNetwork is [ReadSegments] for an in-memory document.
func UnmarshalNetwork(data []byte) (*network.Network, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode segment array")
	}

	var segs []network.Segment
	for i, item := range items {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "item %d", i)
		}
		if _, grouped := probe["segments"]; grouped {
			var g routeRecord
			if err := json.Unmarshal(item, &g); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "route group %d", i)
			}
			for j, rec := range g.Segments {
				s, err := decodeSegment(rec)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "route %q segment %d", g.RouteName, j)
				}
				if s.RouteName == "" {
					s.RouteName = g.RouteName
				}
				segs = append(segs, s)
			}
			continue
		}
		var rec segmentRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "segment %d", i)
		}
		s, err := decodeSegment(rec)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "segment %d", i)
		}
		segs = append(segs, s)
	}
	return network.New(segs), nil
}

func decodeSegment(rec segmentRecord) (network.Segment, error) {
	if len(rec.Nodes) > len(rec.Points) {
		return network.Segment{}, fmt.Errorf("%d nodes for %d points", len(rec.Nodes), len(rec.Points))
	}
	s := network.Segment{
		Points:  make([]orb.Point, 0, len(rec.Points)),
		Nodes:   make([]network.Node, 0, len(rec.Points)),
		Weights: rec.StationWeights,
	}
	for i, raw := range rec.Points {
		p, inline, err := parsePoint(raw)
		if err != nil {
			return network.Segment{}, fmt.Errorf("point %d: %w", i, err)
		}
		var listed attrs
		if i < len(rec.Nodes) {
			if listed, err = parseAttrs(rec.Nodes[i]); err != nil {
				return network.Segment{}, fmt.Errorf("node %d: %w", i, err)
			}
		}
		s.Points = append(s.Points, p)
		s.Nodes = append(s.Nodes, merge(listed, inline).node())
	}
	for k, v := range rec.WayProperties.Tags {
		if k == "route_name" {
			s.RouteName = fmt.Sprint(v)
			continue
		}
		if s.Tags == nil {
			s.Tags = make(map[string]string)
		}
		if str, ok := v.(string); ok {
			s.Tags[k] = str
		} else {
			s.Tags[k] = fmt.Sprint(v)
		}
	}
	return s, nil
}

// ImportSegments reads a network file at path. A document whose first
// non-space byte is '{' is read as GeoJSON, anything else as segment JSON.
func ImportSegments(path string) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		n, _, err := UnmarshalGeoJSON(data, GeoJSONOptions{})
		return n, err
	}
	return UnmarshalNetwork(data)
}
