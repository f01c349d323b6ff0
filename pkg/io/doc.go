// Package io reads and writes transit networks as segment JSON and GeoJSON.
//
// # Segment JSON
//
// A network is an array of segment records, optionally grouped by route:
//
//	[
//	  {
//	    "points": [[0, 0], [2, 0], [4, 1]],
//	    "nodes": [
//	      {"node_type": "station", "id": "a", "name": "Alpha"},
//	      {"node_type": "geometry"},
//	      {"node_type": "transfer", "connect_id": "hub", "name": "Hub"}
//	    ],
//	    "way_properties": {"tags": {"route_name": "red", "color": "#e00"}},
//	    "station_weights": [{"start_idx": 0, "end_idx": 2, "weight": 3}]
//	  }
//	]
//
//	[{"route_name": "red", "segments": [ ... ]}]
//
// # Node Records
//
// Producers disagree on where node attributes live. [ReadSegments] accepts all
// of these and unifies them into one [network.Node]:
//
//   - on the node record itself: {"node_type": "station", "id": "a"}
//   - nested under tags: {"tags": {"public_transport": "station", "name": "Alpha"}}
//   - as a third element of the point: [x, y, {"node_type": "station", "id": "a"}]
//
// A record with a connect_id is a transfer. Attributes that are not part of
// the node identity are kept in [network.Node.Tags] and written back on
// export.
//
// # GeoJSON
//
// [ReadGeoJSON] turns LineString and MultiLineString features into segments
// and attaches Point features to the nearest line vertex within a tolerance.
// [WriteGeoJSON] exports a network as a FeatureCollection for map tooling.
package io
