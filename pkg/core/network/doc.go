// Package network defines the in-memory transit network handed between
// pipeline stages.
//
// # Overview
//
// A [Network] is a flat list of [Segment] records. Each segment is an ordered
// polyline ([Segment.Points]) with a strictly parallel [Segment.Nodes] slice:
// the node at index i describes the point at index i. The two slices always
// have the same length, and every stage in the pipeline preserves that.
//
// Nodes are a tagged variant ([NodeKind]):
//
//   - [NodeGeometry]: a purely geometric waypoint or corner
//   - [NodeStation]: a real station with an ID and display name
//   - [NodeTransfer]: an interchange carrying a connect ID shared across routes
//
// Segments belong to a named route ([Segment.RouteName]) and may carry demand
// weights ([Weight]) as index ranges into their points.
//
// # Keys
//
// Coordinates are never used as map keys directly. [KeyOf] quantizes a point
// by an epsilon into an integer [Key], which makes adjacency maps and dedup
// sets stable under floating-point noise.
//
// # Lifecycle
//
// Each stage receives a network, works on [Network.Clone] and returns the new
// network. Clone copies all points and nodes into two shared arenas, so one
// stage can never alias another stage's data.
package network
