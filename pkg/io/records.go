package io

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/core/network"
)

type segmentRecord struct {
	Points         []json.RawMessage `json:"points"`
	Nodes          []json.RawMessage `json:"nodes"`
	WayProperties  wayProperties     `json:"way_properties"`
	StationWeights []network.Weight  `json:"station_weights,omitempty"`
}

type wayProperties struct {
	Tags map[string]any `json:"tags,omitempty"`
}

type routeRecord struct {
	RouteName string          `json:"route_name"`
	Segments  []segmentRecord `json:"segments"`
}

// Attribute names that make up a node's identity. Everything else goes to
// Node.Tags.
var (
	kindKeys      = []string{"node_type", "type", "kind"}
	idKeys        = []string{"id", "station_id", "stop_id"}
	nameKeys      = []string{"name", "station_name", "stop_name"}
	connectIDKeys = []string{"connect_id", "connectId", "transfer_id"}
	reservedKeys  = map[string]bool{"tags": true, "frozen": true}
)

func init() {
	for _, group := range [][]string{kindKeys, idKeys, nameKeys, connectIDKeys} {
		for _, k := range group {
			reservedKeys[k] = true
		}
	}
}

// stationTagValues are OSM-style tag values that mark a station when the
// record has no explicit node type.
var stationTagValues = map[string]map[string]bool{
	"public_transport": {"station": true, "stop_position": true, "platform": true},
	"railway":          {"station": true, "halt": true, "stop": true},
	"station":          {"yes": true, "subway": true, "light_rail": true, "train": true},
}

// attrs is one node record flattened for lookup: attributes on the record
// win over attributes nested in tags.
type attrs struct {
	top, nested map[string]any
}

func (a attrs) get(keys ...string) (any, bool) {
	for _, m := range []map[string]any{a.top, a.nested} {
		for _, k := range keys {
			if v, ok := m[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func (a attrs) str(keys ...string) string {
	v, ok := a.get(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func (a attrs) empty() bool { return len(a.top) == 0 && len(a.nested) == 0 }

func parseAttrs(raw json.RawMessage) (attrs, error) {
	var top map[string]any
	if len(raw) == 0 || string(raw) == "null" {
		return attrs{}, nil
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return attrs{}, err
	}
	a := attrs{top: top}
	if nested, ok := top["tags"].(map[string]any); ok {
		a.nested = nested
	}
	return a, nil
}

// merge combines two records of the same point; a wins.
func merge(a, b attrs) attrs {
	if b.empty() {
		return a
	}
	if a.empty() {
		return b
	}
	top := make(map[string]any, len(a.top)+len(b.top))
	maps.Copy(top, b.top)
	maps.Copy(top, a.top)
	nested := make(map[string]any, len(a.nested)+len(b.nested))
	maps.Copy(nested, b.nested)
	maps.Copy(nested, a.nested)
	return attrs{top: top, nested: nested}
}

func (a attrs) kind() network.NodeKind {
	if k := strings.ToLower(a.str(kindKeys...)); k != "" {
		switch k {
		case "station", "stop":
			return network.NodeStation
		case "transfer", "interchange":
			return network.NodeTransfer
		case "geometry", "node", "waypoint":
			return network.NodeGeometry
		}
	}
	if a.str(connectIDKeys...) != "" {
		return network.NodeTransfer
	}
	for tag, values := range stationTagValues {
		if values[strings.ToLower(a.str(tag))] {
			return network.NodeStation
		}
	}
	return network.NodeGeometry
}

// node unifies a record into a Node.
func (a attrs) node() network.Node {
	n := network.Node{Kind: a.kind()}
	if n.Kind != network.NodeGeometry {
		n.ID = a.str(idKeys...)
		n.Name = a.str(nameKeys...)
	}
	if n.Kind == network.NodeTransfer {
		n.ConnectID = a.str(connectIDKeys...)
	}
	if v, ok := a.get("frozen"); ok {
		n.Frozen, _ = v.(bool)
	}
	for _, m := range []map[string]any{a.nested, a.top} {
		for k, v := range m {
			if reservedKeys[k] {
				continue
			}
			if _, isStationTag := stationTagValues[k]; isStationTag {
				continue
			}
			if n.Tags == nil {
				n.Tags = make(map[string]any)
			}
			n.Tags[k] = v
		}
	}
	return n
}

// parsePoint decodes [x, y] or [x, y, {attributes}].
func parsePoint(raw json.RawMessage) (orb.Point, attrs, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return orb.Point{}, attrs{}, err
	}
	if len(parts) < 2 {
		return orb.Point{}, attrs{}, fmt.Errorf("point needs 2 coordinates, got %d", len(parts))
	}
	var p orb.Point
	for i := range 2 {
		if err := json.Unmarshal(parts[i], &p[i]); err != nil {
			return orb.Point{}, attrs{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
	}
	if len(parts) < 3 {
		return p, attrs{}, nil
	}
	a, err := parseAttrs(parts[2])
	return p, a, err
}

func nodeRecord(n network.Node) map[string]any {
	rec := make(map[string]any, 4+len(n.Tags))
	maps.Copy(rec, n.Tags)
	rec["node_type"] = n.Kind.String()
	if n.ID != "" {
		rec["id"] = n.ID
	}
	if n.Name != "" {
		rec["name"] = n.Name
	}
	if n.ConnectID != "" {
		rec["connect_id"] = n.ConnectID
	}
	if n.Frozen {
		rec["frozen"] = true
	}
	return rec
}

func routeTags(s network.Segment) map[string]any {
	tags := make(map[string]any, len(s.Tags)+1)
	for k, v := range s.Tags {
		tags[k] = v
	}
	if s.RouteName != "" {
		tags["route_name"] = s.RouteName
	}
	return tags
}
