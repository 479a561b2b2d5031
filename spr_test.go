package main

import "testing"

func TestLCAFindsCommonAncestor(t *testing.T) {
	d, _ := buildSimpleTree(t)
	lca, err := LCA(d, 2, 3)
	if err != nil {
		t.Fatalf("LCA: %v", err)
	}
	if lca != 1 {
		t.Errorf("LCA(leafA, leafB) = %d, want 1 (root)", lca)
	}
}

func TestValidateMoveAcceptsLegalMove(t *testing.T) {
	d, _ := buildSimpleTree(t)
	if err := ValidateMove(d, SPRMove{Src: 2, Dst: 3}); err != nil {
		t.Errorf("ValidateMove on a legal move: %v", err)
	}
}

func TestValidateMoveRejectsSameNode(t *testing.T) {
	d, _ := buildSimpleTree(t)
	if err := ValidateMove(d, SPRMove{Src: 2, Dst: 2}); !IsKind(err, ErrIllegalMove) {
		t.Errorf("ValidateMove(src==dst) = %v, want ErrIllegalMove", err)
	}
}

func TestValidateMoveRejectsNoSibling(t *testing.T) {
	d, ref := buildSimpleTree(t)
	// hang a single child below leafA: its parent (leafA) has no other
	// child, and dst (leafB) is neither a descendant nor its parent.
	onlySample := "only"
	only := d.AddNode(mustCG(t, "ACGA", ref), &onlySample)
	if _, err := d.AddEdge(2, only, 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := ValidateMove(d, SPRMove{Src: only, Dst: 3}); !IsKind(err, ErrIllegalMove) {
		t.Errorf("ValidateMove(src with no sibling) = %v, want ErrIllegalMove", err)
	}
}

func TestValidateMoveRejectsRootDst(t *testing.T) {
	d, _ := buildSimpleTree(t)
	if err := ValidateMove(d, SPRMove{Src: 2, Dst: 0}); !IsKind(err, ErrIllegalMove) {
		t.Errorf("ValidateMove(dst==UA) = %v, want ErrIllegalMove", err)
	}
}

func TestApplySPRRewiresOverlay(t *testing.T) {
	d, _ := buildSimpleTree(t)
	o := NewOverlay(d)
	newNode, err := ApplySPR(o, SPRMove{Src: 2, Dst: 3})
	if err != nil {
		t.Fatalf("ApplySPR: %v", err)
	}

	root := o.Node(1)
	foundNew := false
	for _, clade := range root.ChildClades {
		for _, eid := range clade {
			if o.Edge(eid).Child == newNode {
				foundNew = true
			}
		}
	}
	if !foundNew {
		t.Fatalf("root should have an edge to the freshly created internal node")
	}

	n := o.Node(newNode)
	var children []NodeId
	for _, clade := range n.ChildClades {
		for _, eid := range clade {
			children = append(children, o.Edge(eid).Child)
		}
	}
	if len(children) != 2 {
		t.Fatalf("new node should have exactly 2 children, got %d", len(children))
	}
	if !(children[0] == 2 || children[1] == 2) || !(children[0] == 3 || children[1] == 3) {
		t.Errorf("new node's children = %v, want src(2) and dst(3)", children)
	}
}

func TestMaterializeMoveProducesValidTree(t *testing.T) {
	d, _ := buildSimpleTree(t)
	fragment, err := MaterializeMove(d, SPRMove{Src: 2, Dst: 3})
	if err != nil {
		t.Fatalf("MaterializeMove: %v", err)
	}
	if len(fragment.ChangedNodes) == 0 {
		t.Errorf("expected at least one changed node from PropagateFragment")
	}
	if err := fragment.Tree.Validate(); err != nil {
		t.Errorf("Validate() on the materialized post-move tree: %v", err)
	}
	if !fragment.Tree.IsTree() {
		t.Errorf("materialized fragment should still be a tree")
	}
}

func TestApplySPRLeavesSrcAndDstWithExactlyOneParentEdge(t *testing.T) {
	d, _ := buildSimpleTree(t)
	o := NewOverlay(d)
	if _, err := ApplySPR(o, SPRMove{Src: 2, Dst: 3}); err != nil {
		t.Fatalf("ApplySPR: %v", err)
	}
	if got := len(o.Node(2).ParentEdges); got != 1 {
		t.Errorf("src's ParentEdges = %d entries, want exactly 1 (stale edge must be dropped, not just appended over)", got)
	}
	if got := len(o.Node(3).ParentEdges); got != 1 {
		t.Errorf("dst's ParentEdges = %d entries, want exactly 1", got)
	}
}

func TestMaterializeMoveFragmentIncidentEdgesExcludeStaleParentEdge(t *testing.T) {
	d, _ := buildSimpleTree(t)
	fragment, err := MaterializeMove(d, SPRMove{Src: 2, Dst: 3})
	if err != nil {
		t.Fatalf("MaterializeMove: %v", err)
	}
	if len(fragment.IncidentEdges) == 0 {
		t.Fatalf("expected at least one incident edge")
	}
	// edge 1 (root -> leafA, i.e. src's pre-move parent edge) must not
	// survive into the fragment's incident set: ApplySPR detaches it from
	// both endpoints, so it is no longer wired into any touched node's
	// adjacency.
	for _, eid := range fragment.IncidentEdges {
		if eid == 1 {
			t.Errorf("IncidentEdges should not include the stale pre-move parent edge, got %v", fragment.IncidentEdges)
		}
	}
}

func TestParsimonyMoveScorerScoresAMove(t *testing.T) {
	d, _ := buildSimpleTree(t)
	fragment, err := MaterializeMove(d, SPRMove{Src: 2, Dst: 3})
	if err != nil {
		t.Fatalf("MaterializeMove: %v", err)
	}
	if _, err := (ParsimonyMoveScorer{}).Score(d, SPRMove{Src: 2, Dst: 3}, fragment); err != nil {
		t.Errorf("ParsimonyMoveScorer.Score: %v", err)
	}
}

func TestMLMoveScorerIsUnavailable(t *testing.T) {
	if _, err := (MLMoveScorer{}).Score(nil, SPRMove{}, nil); !IsKind(err, ErrUnsupportedFeature) {
		t.Errorf("MLMoveScorer.Score = %v, want ErrUnsupportedFeature", err)
	}
}
