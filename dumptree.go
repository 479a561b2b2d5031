package main

import (
	"fmt"
	"io"

	"github.com/larchgo/larch/tree"
)

// buildTreePaths collects the root-to-leaf label sequence of every
// leaf reachable from root, walking each clade in turn. A DAG with
// shared substructure (more than one parent edge into some node)
// yields one path per distinct root-to-leaf walk, same as a normal
// tree traversal would for its tree special case.
func buildTreePaths(d *MADAG, root NodeId) [][]string {
	var paths [][]string
	var walk func(NodeId, []string)
	walk = func(id NodeId, prefix []string) {
		n := d.Node(id)
		path := append(append([]string{}, prefix...), nodeTreeLabel(n))
		if n.IsLeaf() {
			paths = append(paths, path)
			return
		}
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				walk(d.Edge(eid).Child, path)
			}
		}
	}
	walk(root, nil)
	return paths
}

func nodeTreeLabel(n *Node) string {
	if n.SampleId != nil {
		return *n.SampleId
	}
	return fmt.Sprintf("node%d", n.Id)
}

// DumpTree renders d rooted at root as an indented ASCII box tree, for
// quick visual inspection of a sampled or merged DAG. Adapted from the
// teacher's path-keyed Tree (tree/tree.go), originally built to
// visualize AS-path trees one hop label at a time; repurposed here to
// walk root-to-leaf sample-id paths through a MADAG instead.
func DumpTree(w io.Writer, d *MADAG, root NodeId) {
	t := tree.Tree{}
	noop := func(string, interface{}) {}
	for _, path := range buildTreePaths(d, root) {
		t.Add(path, noop, noop, nil)
	}
	t.Fprint(w, true, "")
}
