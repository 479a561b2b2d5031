package main

import "testing"

// buildTreeWithDuplicateLeaves builds UA -> root -> {leafA, leafB,
// leafC} where leafA and leafB share an identical compact genome,
// distinct from leafC's.
func buildTreeWithDuplicateLeaves(t *testing.T) *MADAG {
	t.Helper()
	ref := mustRef(t, "ACGT")
	d := NewMADAG(ref)
	rootId := d.AddNode(emptyCG, nil)
	if _, err := d.AddEdge(d.UA, rootId, 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	dupCG, _ := CGFromSequence("ACGA", ref)
	otherCG, _ := CGFromSequence("ACGC", ref)

	sampleA, sampleB, sampleC := "leafA", "leafB", "leafC"
	leafA := d.AddNode(dupCG, &sampleA)
	leafB := d.AddNode(dupCG, &sampleB)
	leafC := d.AddNode(otherCG, &sampleC)

	for _, leaf := range []NodeId{leafA, leafB, leafC} {
		if _, err := d.AddEdge(rootId, leaf, 0); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return d
}

func TestCondenseLeavesFoldsIdenticalSiblings(t *testing.T) {
	d := buildTreeWithDuplicateLeaves(t)
	CondenseLeaves(d)

	root := d.Node(1)
	if len(root.ChildClades[0]) != 2 {
		t.Fatalf("expected 2 remaining child edges after condensing, got %d", len(root.ChildClades[0]))
	}

	var kept *Node
	for _, eid := range root.ChildClades[0] {
		child := d.Node(d.Edge(eid).Child)
		if len(child.CondensedIds) > 0 {
			kept = child
		}
	}
	if kept == nil {
		t.Fatalf("expected one surviving node to carry CondensedIds")
	}
	if *kept.SampleId != "leafA" {
		t.Errorf("kept representative SampleId = %q, want leafA", *kept.SampleId)
	}
	if len(kept.CondensedIds) != 1 || kept.CondensedIds[0] != "leafB" {
		t.Errorf("CondensedIds = %v, want [leafB]", kept.CondensedIds)
	}
}

func TestUncondenseLeavesExpandsBack(t *testing.T) {
	d := buildTreeWithDuplicateLeaves(t)
	CondenseLeaves(d)
	if err := UncondenseLeaves(d); err != nil {
		t.Fatalf("UncondenseLeaves: %v", err)
	}

	root := d.Node(1)
	if len(root.ChildClades[0]) != 3 {
		t.Fatalf("expected 3 child edges after uncondensing, got %d", len(root.ChildClades[0]))
	}
	seen := make(map[string]bool)
	for _, eid := range root.ChildClades[0] {
		child := d.Node(d.Edge(eid).Child)
		if child.SampleId == nil {
			t.Fatalf("every uncondensed leaf should carry a sample id")
		}
		seen[*child.SampleId] = true
		if len(child.CondensedIds) != 0 {
			t.Errorf("uncondensed leaves should not carry CondensedIds")
		}
	}
	for _, want := range []string{"leafA", "leafB", "leafC"} {
		if !seen[want] {
			t.Errorf("expected sample %q among uncondensed leaves", want)
		}
	}
}
