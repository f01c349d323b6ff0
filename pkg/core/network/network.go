package network

import (
	"maps"
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/transitmap/pkg/errors"
)

// DefaultEpsilon is the coordinate quantum used for keys and equality tests
// when a caller passes a non-positive epsilon.
const DefaultEpsilon = 1e-4

// NodeKind distinguishes geometric waypoints from stations and transfers.
type NodeKind int

const (
	// NodeGeometry is a purely geometric waypoint or corner.
	NodeGeometry NodeKind = iota
	// NodeStation is a real station.
	NodeStation
	// NodeTransfer is an interchange shared between routes.
	NodeTransfer
)

// String returns the lowercase name used in JSON and logs.
func (k NodeKind) String() string {
	switch k {
	case NodeStation:
		return "station"
	case NodeTransfer:
		return "transfer"
	default:
		return "geometry"
	}
}

// ParseNodeKind is the inverse of [NodeKind.String]. Unknown names map to
// [NodeGeometry].
func ParseNodeKind(s string) NodeKind {
	switch s {
	case "station":
		return NodeStation
	case "transfer":
		return NodeTransfer
	default:
		return NodeGeometry
	}
}

// Node is the per-point metadata of a segment.
type Node struct {
	Kind      NodeKind
	ID        string         // station identifier (stations and transfers)
	Name      string         // display name
	ConnectID string         // transfer identifier shared across routes
	Frozen    bool           // excluded from grid snapping to avoid a collision
	Tags      map[string]any // pass-through attributes (color, etc.)
}

// Geometry returns a neutral waypoint node.
func Geometry() Node { return Node{Kind: NodeGeometry} }

// Station returns a station node.
func Station(id, name string) Node { return Node{Kind: NodeStation, ID: id, Name: name} }

// Transfer returns a transfer node. The id and name are optional.
func Transfer(connectID, id, name string) Node {
	return Node{Kind: NodeTransfer, ConnectID: connectID, ID: id, Name: name}
}

// IsReal reports whether the node carries a station or transfer identity.
func (n Node) IsReal() bool { return n.Kind == NodeStation || n.Kind == NodeTransfer }

// IsStation reports whether the node is a plain station.
func (n Node) IsStation() bool { return n.Kind == NodeStation }

// IsTransfer reports whether the node is a transfer.
func (n Node) IsTransfer() bool { return n.Kind == NodeTransfer }

// Identity returns a string that identifies the station a node stands for.
// Geometry nodes have an empty identity.
func (n Node) Identity() string {
	switch n.Kind {
	case NodeStation:
		if n.ID != "" {
			return "station:" + n.ID
		}
		return "station-name:" + n.Name
	case NodeTransfer:
		if n.ConnectID != "" {
			return "transfer:" + n.ConnectID
		}
		if n.ID != "" {
			return "transfer-id:" + n.ID
		}
		return "transfer-name:" + n.Name
	default:
		return ""
	}
}

// Clone returns a copy of n that shares no maps with it.
func (n Node) Clone() Node {
	if n.Tags != nil {
		n.Tags = maps.Clone(n.Tags)
	}
	return n
}

// Weight is a demand magnitude attached to the point range [Start, End] of a
// segment. Both ends are station indices.
type Weight struct {
	Start int     `json:"start_idx"`
	End   int     `json:"end_idx"`
	Value float64 `json:"weight"`
}

// Segment is one polyline of a route.
type Segment struct {
	Points    []orb.Point
	Nodes     []Node
	RouteName string
	Tags      map[string]string
	Weights   []Weight
}

// Len returns the number of points.
func (s *Segment) Len() int { return len(s.Points) }

// Clone returns a deep copy of s.
func (s Segment) Clone() Segment {
	out := Segment{
		Points:    slices.Clone(s.Points),
		Nodes:     make([]Node, len(s.Nodes)),
		RouteName: s.RouteName,
		Tags:      maps.Clone(s.Tags),
		Weights:   slices.Clone(s.Weights),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Route is a named collection of segments.
type Route struct {
	Name     string
	Segments []Segment
}

// Network is the unit of work handed between pipeline stages.
type Network struct {
	Segments []Segment
}

// New wraps segments in a network without copying them.
func New(segments []Segment) *Network {
	return &Network{Segments: segments}
}

// FromRoutes flattens routes into a network. Segments without a route name
// inherit the route's name.
func FromRoutes(routes []Route) *Network {
	var segs []Segment
	for _, r := range routes {
		for _, s := range r.Segments {
			if s.RouteName == "" {
				s.RouteName = r.Name
			}
			segs = append(segs, s)
		}
	}
	return New(segs)
}

// Routes groups the segments by route name, in first-seen order.
func (n *Network) Routes() []Route {
	index := make(map[string]int)
	var routes []Route
	for _, s := range n.Segments {
		i, ok := index[s.RouteName]
		if !ok {
			i = len(routes)
			index[s.RouteName] = i
			routes = append(routes, Route{Name: s.RouteName})
		}
		routes[i].Segments = append(routes[i].Segments, s)
	}
	return routes
}

// PointCount returns the total number of points over all segments.
func (n *Network) PointCount() int {
	total := 0
	for _, s := range n.Segments {
		total += len(s.Points)
	}
	return total
}

// Clone returns an independent copy of n. Points and nodes of all segments
// are copied into two shared backing arrays; each segment slice is capped so
// appending to one segment never writes into its neighbour.
func (n *Network) Clone() *Network {
	if n == nil {
		return nil
	}
	var totalPoints, totalNodes int
	for _, s := range n.Segments {
		totalPoints += len(s.Points)
		totalNodes += len(s.Nodes)
	}
	points := make([]orb.Point, 0, totalPoints)
	nodes := make([]Node, 0, totalNodes)

	segs := make([]Segment, len(n.Segments))
	for i, s := range n.Segments {
		ps, ns := len(points), len(nodes)
		points = append(points, s.Points...)
		for _, nd := range s.Nodes {
			nodes = append(nodes, nd.Clone())
		}
		segs[i] = Segment{
			Points:    points[ps:len(points):len(points)],
			Nodes:     nodes[ns:len(nodes):len(nodes)],
			RouteName: s.RouteName,
			Tags:      maps.Clone(s.Tags),
			Weights:   slices.Clone(s.Weights),
		}
	}
	return &Network{Segments: segs}
}

// StationRef locates a real node inside a network.
type StationRef struct {
	Segment int
	Index   int
	Node    Node
	Point   orb.Point
}

// Stations returns every real (station or transfer) node in segment order.
// A station shared by several segments appears once per occurrence.
func (n *Network) Stations() []StationRef {
	var out []StationRef
	for si, s := range n.Segments {
		for i, nd := range s.Nodes {
			if nd.IsReal() && i < len(s.Points) {
				out = append(out, StationRef{Segment: si, Index: i, Node: nd, Point: s.Points[i]})
			}
		}
	}
	return out
}

// CheckParity verifies that every segment has as many nodes as points.
// Stages call it on their output; a failure is an internal error.
func (n *Network) CheckParity() error {
	for i, s := range n.Segments {
		if len(s.Points) != len(s.Nodes) {
			return errors.New(errors.ErrCodeInternal,
				"segment %d (%s): %d points but %d nodes", i, s.RouteName, len(s.Points), len(s.Nodes))
		}
	}
	return nil
}

// Validate checks that n is usable as pipeline input.
func (n *Network) Validate() error {
	if n == nil || len(n.Segments) == 0 {
		return errors.New(errors.ErrCodeInputShape, "network has no segments")
	}
	for i, s := range n.Segments {
		if len(s.Points) != len(s.Nodes) {
			return errors.New(errors.ErrCodeInputShape,
				"segment %d (%s): %d points but %d nodes", i, s.RouteName, len(s.Points), len(s.Nodes))
		}
		if len(s.Points) < 2 {
			return errors.New(errors.ErrCodeInputShape,
				"segment %d (%s): need at least 2 points, got %d", i, s.RouteName, len(s.Points))
		}
		for j, p := range s.Points {
			if !finite(p[0]) || !finite(p[1]) {
				return errors.New(errors.ErrCodeInputShape,
					"segment %d (%s): point %d is not finite", i, s.RouteName, j)
			}
		}
		for _, w := range s.Weights {
			if w.Start < 0 || w.End >= len(s.Points) || w.Start > w.End {
				return errors.New(errors.ErrCodeInputShape,
					"segment %d (%s): weight range [%d, %d] out of bounds", i, s.RouteName, w.Start, w.End)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
