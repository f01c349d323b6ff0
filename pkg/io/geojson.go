package io

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/transitmap/pkg/core/network"
	"github.com/matzehuels/transitmap/pkg/errors"
)

// DefaultSnapTolerance is the largest distance, in input coordinate units,
// between a station point and the line vertex it attaches to.
const DefaultSnapTolerance = 5e-4

// GeoJSONOptions configures GeoJSON import.
type GeoJSONOptions struct {
	SnapTolerance float64 // zero uses DefaultSnapTolerance
}

// GeoJSONReport describes a GeoJSON import.
type GeoJSONReport struct {
	Lines      int      `json:"lines"`
	Stations   int      `json:"stations"`
	Attached   int      `json:"attached"`
	Transfers  int      `json:"transfers"`
	Unattached []string `json:"unattached,omitempty"`
	Skipped    int      `json:"skipped"` // features with other geometry types
}

type stationFeature struct {
	point orb.Point
	props geojson.Properties
	id    string
}

// ReadGeoJSON decodes a GeoJSON FeatureCollection from r.
//
// LineString and MultiLineString features become segments. The route name
// comes from the route_name, ref or name property; color or colour becomes a
// route tag. Each Point feature attaches to the nearest vertex of every
// segment that has one within the snap tolerance. A station attached to
// segments of more than one route becomes a transfer whose connect_id is the
// station id.
func ReadGeoJSON(r io.Reader, opts GeoJSONOptions) (*network.Network, GeoJSONReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, GeoJSONReport{}, fmt.Errorf("read: %w", err)
	}
	return UnmarshalGeoJSON(data, opts)
}

// UnmarshalGeoJSON is [ReadGeoJSON] for an in-memory document.
func UnmarshalGeoJSON(data []byte, opts GeoJSONOptions) (*network.Network, GeoJSONReport, error) {
	tol := opts.SnapTolerance
	if tol <= 0 {
		tol = DefaultSnapTolerance
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, GeoJSONReport{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode GeoJSON")
	}

	var rep GeoJSONReport
	var segs []network.Segment
	var stations []stationFeature
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			rep.Lines++
			segs = append(segs, lineSegment(g, f.Properties))
		case orb.MultiLineString:
			rep.Lines++
			for _, ls := range g {
				segs = append(segs, lineSegment(ls, f.Properties))
			}
		case orb.Point:
			rep.Stations++
			id := f.Properties.MustString("id", "")
			if id == "" && f.ID != nil {
				id = fmt.Sprint(f.ID)
			}
			if id == "" {
				id = fmt.Sprintf("station-%d", i)
			}
			stations = append(stations, stationFeature{point: g, props: f.Properties, id: id})
		default:
			rep.Skipped++
		}
	}

	for _, st := range stations {
		hits := attach(segs, st.point, tol)
		if len(hits) == 0 {
			rep.Unattached = append(rep.Unattached, st.id)
			continue
		}
		routes := make(map[string]bool)
		for _, h := range hits {
			routes[segs[h.seg].RouteName] = true
		}
		node := network.Station(st.id, st.props.MustString("name", ""))
		if len(routes) > 1 {
			node = network.Transfer(st.id, st.id, node.Name)
			rep.Transfers++
		}
		for _, h := range hits {
			if segs[h.seg].Nodes[h.idx].IsReal() {
				continue
			}
			segs[h.seg].Nodes[h.idx] = node.Clone()
		}
		rep.Attached++
	}
	return network.New(segs), rep, nil
}

func lineSegment(ls orb.LineString, props geojson.Properties) network.Segment {
	s := network.Segment{
		Points: make([]orb.Point, len(ls)),
		Nodes:  make([]network.Node, len(ls)),
	}
	copy(s.Points, ls)
	for i := range s.Nodes {
		s.Nodes[i] = network.Geometry()
	}
	for _, k := range []string{"route_name", "ref", "name"} {
		if v := props.MustString(k, ""); v != "" {
			s.RouteName = v
			break
		}
	}
	for _, k := range []string{"color", "colour"} {
		if v := props.MustString(k, ""); v != "" {
			s.Tags = map[string]string{"color": v}
			break
		}
	}
	return s
}

type vertexRef struct{ seg, idx int }

// attach finds, per segment, the vertex nearest to p within tol.
func attach(segs []network.Segment, p orb.Point, tol float64) []vertexRef {
	var out []vertexRef
	for si, s := range segs {
		best, bestDist := -1, math.Inf(1)
		for i, q := range s.Points {
			if d := planar.Distance(p, q); d <= tol && d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			out = append(out, vertexRef{si, best})
		}
	}
	return out
}

// WriteGeoJSON writes n as a FeatureCollection: one LineString per segment
// and one Point per distinct station position.
func WriteGeoJSON(n *network.Network, w io.Writer) error {
	fc := geojson.NewFeatureCollection()
	seen := make(map[network.Key]bool)
	for _, s := range n.Segments {
		f := geojson.NewFeature(orb.LineString(s.Points))
		for k, v := range routeTags(s) {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	for _, st := range n.Stations() {
		k := network.KeyOf(st.Point, network.DefaultEpsilon)
		if seen[k] {
			continue
		}
		seen[k] = true
		f := geojson.NewFeature(st.Point)
		for key, v := range nodeRecord(st.Node) {
			f.Properties[key] = v
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}
