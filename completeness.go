package main

import (
	"strconv"

	graph "github.com/Emeline-1/basic_graph"
)

// CheckComplete verifies that the edges in d's arena form a single
// connected mass, with no part of the DAG left detached by a partial
// load or partial merge. It mirrors overlays_processing.go's exact use of
// basic_graph: every edge is mirrored into an undirected graph keyed
// by decimal node ids, then Set_iterator/Next_connected_component
// walks its connected components. Anything other than exactly one
// component (when there is at least one edge) means the input is
// incomplete. root is not used by the check, and a node with no edge
// at all is not seen by it.
func (d *MADAG) CheckComplete(root NodeId) error {
	g := graph.New()
	edgeCount := 0
	for _, e := range d.Edges {
		g.Add_edge(strconv.Itoa(int(e.Parent)), strconv.Itoa(int(e.Child)))
		edgeCount++
	}
	if edgeCount == 0 {
		return nil // single node, trivially complete
	}

	g.Set_iterator()
	components := 0
	for g.Next_connected_component() {
		components++
		g.Connected_component()
	}
	if components != 1 {
		return newErr(ErrInvariantViolation, "DAG is not a single connected component")
	}
	return nil
}
