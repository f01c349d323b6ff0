package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

type segmentOut struct {
	Points         [][2]float64     `json:"points"`
	Nodes          []map[string]any `json:"nodes"`
	WayProperties  wayProperties    `json:"way_properties"`
	StationWeights []network.Weight `json:"station_weights,omitempty"`
}

type routeOut struct {
	RouteName string       `json:"route_name"`
	Segments  []segmentOut `json:"segments"`
}

func encodeSegment(s network.Segment) segmentOut {
	out := segmentOut{
		Points:         make([][2]float64, len(s.Points)),
		Nodes:          make([]map[string]any, len(s.Nodes)),
		WayProperties:  wayProperties{Tags: routeTags(s)},
		StationWeights: s.Weights,
	}
	for i, p := range s.Points {
		out.Points[i] = [2]float64{p[0], p[1]}
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = nodeRecord(n)
	}
	return out
}

// MarshalNetwork encodes n as a flat segment array.
func MarshalNetwork(n *network.Network) ([]byte, error) {
	out := make([]segmentOut, len(n.Segments))
	for i, s := range n.Segments {
		out[i] = encodeSegment(s)
	}
	return json.Marshal(out)
}

// WriteSegments encodes n as an indented flat segment array and writes it
// to w. The output can be re-read with [ReadSegments].
func WriteSegments(n *network.Network, w io.Writer) error {
	out := make([]segmentOut, len(n.Segments))
	for i, s := range n.Segments {
		out[i] = encodeSegment(s)
	}
	return encode(w, out)
}

// WriteRoutes writes n grouped by route, in first-seen route order.
func WriteRoutes(n *network.Network, w io.Writer) error {
	routes := n.Routes()
	out := make([]routeOut, len(routes))
	for i, r := range routes {
		out[i] = routeOut{RouteName: r.Name, Segments: make([]segmentOut, len(r.Segments))}
		for j, s := range r.Segments {
			out[i].Segments[j] = encodeSegment(s)
		}
	}
	return encode(w, out)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportSegments writes n to a segment JSON file at path.
func ExportSegments(n *network.Network, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteSegments(n, f)
}
