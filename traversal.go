package main

import "fmt"

// PreOrder walks the DAG starting at root, calling visit once per
// node the first time it is discovered (nodes with multiple parents
// are visited once, not once per incoming path). Returning false from
// visit stops the walk early.
func (d *MADAG) PreOrder(root NodeId, visit func(*Node) bool) {
	visited := make(map[NodeId]bool, len(d.Nodes))
	var walk func(NodeId) bool
	walk = func(id NodeId) bool {
		if visited[id] {
			return true
		}
		visited[id] = true
		if !visit(d.Node(id)) {
			return false
		}
		for _, clade := range d.Node(id).ChildClades {
			for _, eid := range clade {
				if !walk(d.Edge(eid).Child) {
					return false
				}
			}
		}
		return true
	}
	walk(root)
}

// PostOrder walks the DAG starting at root, calling visit on a node
// only after all of its children have been visited. Each node is
// visited exactly once, memoized by id (DAG nodes may be reached via
// multiple paths but represent one subtree — §4.3 calls this out as
// mandatory for the weight DP, and it is equally required here).
func (d *MADAG) PostOrder(root NodeId, visit func(*Node)) {
	visited := make(map[NodeId]bool, len(d.Nodes))
	var walk func(NodeId)
	walk = func(id NodeId) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, clade := range d.Node(id).ChildClades {
			for _, eid := range clade {
				walk(d.Edge(eid).Child)
			}
		}
		visit(d.Node(id))
	}
	walk(root)
}

// ComputeLeafSets derives and interns the LeafSet of every node
// reachable from root, bottom-up. Leaves get a singleton clade of
// themselves; internal nodes get one clade per ChildClades entry,
// each clade's leaves being the union of its edges' children's LS
// leaves (the clade-union rule of §3).
func (d *MADAG) ComputeLeafSets(root NodeId) map[NodeId]*LeafSet {
	result := make(map[NodeId]*LeafSet, len(d.Nodes))
	d.PostOrder(root, func(n *Node) {
		if n.IsLeaf() {
			result[n.Id] = globalLSTable.Intern(LeafLeafSet(*n.SampleId))
			return
		}
		clades := make([][]string, 0, len(n.ChildClades))
		for _, clade := range n.ChildClades {
			var leaves []string
			for _, eid := range clade {
				child := d.Edge(eid).Child
				leaves = append(leaves, result[child].Leaves()...)
			}
			clades = append(clades, leaves)
		}
		result[n.Id] = globalLSTable.Intern(UnionLeafSet(clades))
	})
	return result
}

// ComputeCompactGenomes derives every node's CG from root's CG via
// cg_extend_by_edge, top-down (preorder), for inputs that only carry
// edge mutations (§4.2 phase 1). root's own CG must already be set.
func (d *MADAG) ComputeCompactGenomes(root NodeId) {
	d.PreOrder(root, func(n *Node) bool {
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				e := d.Edge(eid)
				child := d.Node(e.Child)
				if child.CG == nil {
					child.CG = CGExtendByEdge(n.CG, e.Mutations, d.Ref)
				}
			}
		}
		return true
	})
}

// ReachableEdges returns every edge reachable from the UA node via
// ChildClades, each included exactly once even if reached through
// multiple parents. Unlike ranging over d.Edges directly, this leaves
// out any edge id still present in the arena but no longer wired into
// any node's adjacency — e.g. the old parent edge an SPR move detaches
// (spr.go's ApplySPR) — which is the set callers that fold a DAG's
// structure into another (merge.go's AddMany) should actually walk.
func (d *MADAG) ReachableEdges() []*Edge {
	seen := make(map[EdgeId]bool)
	var out []*Edge
	d.PreOrder(d.UA, func(n *Node) bool {
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				if !seen[eid] {
					seen[eid] = true
					out = append(out, d.Edge(eid))
				}
			}
		}
		return true
	})
	return out
}

// RecomputeEdgeMutations fills in every edge's Mutations from its
// endpoints' CGs, the inverse derivation used once full CGs are known
// (e.g. after loading a JSON DAG, which stores CGs directly).
func (d *MADAG) RecomputeEdgeMutations() error {
	for _, e := range d.Edges {
		pn, cn := d.Node(e.Parent), d.Node(e.Child)
		m, err := EdgeMutationsFromEndpoints(pn.CG, cn.CG, d.Ref)
		if err != nil {
			return err
		}
		e.Mutations = m
	}
	return nil
}

// CheckAcyclic reports an InvariantViolation if the DAG (restricted to
// nodes reachable from root) contains a cycle, via a standard
// three-color DFS.
func (d *MADAG) CheckAcyclic(root NodeId) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeId]int, len(d.Nodes))
	var walk func(NodeId) error
	walk = func(id NodeId) error {
		color[id] = gray
		for _, clade := range d.Node(id).ChildClades {
			for _, eid := range clade {
				child := d.Edge(eid).Child
				switch color[child] {
				case gray:
					return newErr(ErrInvariantViolation, fmt.Sprintf("cycle detected through node %d", child))
				case white:
					if err := walk(child); err != nil {
						return err
					}
				}
			}
		}
		color[id] = black
		return nil
	}
	return walk(root)
}
