package main

// CondenseLeaves and UncondenseLeaves implement the condensed/
// uncondensed leaves feature original_source carries on MAT::Tree
// (usher_optimize.cpp's uncondense_leaves, mat_view.hpp's
// CondensedViewBase): groups of sibling leaves with identical compact
// genomes are collapsed into one representative node during
// optimization (fewer nodes to score moves against), then expanded
// back to individual per-sample leaves before the result is written
// out.

// CondenseLeaves rewrites d in place, replacing every group of
// sibling leaves (same parent clade) that share an identical compact
// genome with a single leaf carrying the group's first sample id as
// SampleId and the rest in CondensedIds.
func CondenseLeaves(d *MADAG) {
	for _, n := range d.Nodes {
		for cladeIdx, clade := range n.ChildClades {
			groups := make(map[uint64][]EdgeId)
			var order []uint64
			for _, eid := range clade {
				child := d.Node(d.Edge(eid).Child)
				if !child.IsLeaf() {
					continue
				}
				h := child.CG.Hash()
				if _, ok := groups[h]; !ok {
					order = append(order, h)
				}
				groups[h] = append(groups[h], eid)
			}
			for _, h := range order {
				edges := groups[h]
				if len(edges) < 2 {
					continue
				}
				condenseGroup(d, n, cladeIdx, edges)
			}
		}
	}
}

// condenseGroup folds the leaves reached by edges (all siblings in one
// clade, all with equal compact genomes) into the first one.
func condenseGroup(d *MADAG, parent *Node, cladeIdx int, edges []EdgeId) {
	keepEdge := edges[0]
	keep := d.Node(d.Edge(keepEdge).Child)
	var folded []string
	folded = append(folded, keep.CondensedIds...)
	for _, eid := range edges[1:] {
		dropped := d.Node(d.Edge(eid).Child)
		if dropped.SampleId != nil {
			folded = append(folded, *dropped.SampleId)
		}
		folded = append(folded, dropped.CondensedIds...)
	}
	keep.CondensedIds = folded

	remaining := parent.ChildClades[cladeIdx][:0]
	drop := make(map[EdgeId]bool, len(edges)-1)
	for _, eid := range edges[1:] {
		drop[eid] = true
	}
	for _, eid := range parent.ChildClades[cladeIdx] {
		if !drop[eid] {
			remaining = append(remaining, eid)
		}
	}
	parent.ChildClades[cladeIdx] = remaining
}

// UncondenseLeaves rewrites d in place, expanding every condensed leaf
// back into one leaf node per sample id (the representative plus each
// id in CondensedIds), each a sibling in the same clade with the same
// compact genome, whose new edge carries the same mutations as the
// representative's edge.
func UncondenseLeaves(d *MADAG) error {
	for _, n := range d.Nodes {
		for cladeIdx, clade := range n.ChildClades {
			var expanded []EdgeId
			for _, eid := range clade {
				e := d.Edge(eid)
				child := d.Node(e.Child)
				if len(child.CondensedIds) == 0 {
					expanded = append(expanded, eid)
					continue
				}
				expanded = append(expanded, eid)
				ids := child.CondensedIds
				child.CondensedIds = nil
				for _, id := range ids {
					sampleId := id
					newId := d.AddNode(child.CG, &sampleId)
					newEdge, err := d.AddEdge(n.Id, newId, cladeIdx)
					if err != nil {
						return err
					}
					d.SetMutations(newEdge, e.Mutations)
					expanded = append(expanded, newEdge)
				}
			}
			n.ChildClades[cladeIdx] = expanded
		}
	}
	return nil
}
