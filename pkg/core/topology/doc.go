// Package topology derives the logical structure of a transit network from
// its geometry.
//
// # Overview
//
// [Build] links consecutive points of every segment into an undirected
// adjacency [Graph] keyed by [network.Key]. A vertex is topological when its
// degree is not 2, or when its two incident adjacencies are served by
// different routes. [Graph.Edges] collapses the degree-2 chains between
// topological vertices into logical edges.
//
// Layout stages use a slightly different anchor set, the key nodes returned
// by [KeyNodes]: points shared by several segment ends, transfer points and
// branch points. [Links] cuts every segment at those anchors; each [Link]
// keeps the real stations it carries together with their normalized arc
// position, so they can be placed again once the link has been redrawn.
package topology
