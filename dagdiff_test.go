package main

import "testing"

func TestDiffDAGsIdentical(t *testing.T) {
	a, _ := buildSimpleTree(t)
	b, _ := buildSimpleTree(t)
	res, err := DiffDAGs(a, b)
	if err != nil {
		t.Fatalf("DiffDAGs: %v", err)
	}
	if res.OnlyInLHS != 0 || res.OnlyInRHS != 0 {
		t.Errorf("two structurally identical DAGs should have an empty symmetric difference, got %+v", res)
	}
	if res.SharedNodeLabels == 0 {
		t.Errorf("expected shared node labels between identical DAGs")
	}
}

func TestDiffDAGsDivergent(t *testing.T) {
	a, _ := buildSimpleTree(t)
	b := buildTreeWithDuplicateLeaves(t)
	res, err := DiffDAGs(a, b)
	if err != nil {
		t.Fatalf("DiffDAGs: %v", err)
	}
	if res.OnlyInLHS == 0 && res.OnlyInRHS == 0 {
		t.Errorf("differently shaped DAGs should report a nonzero symmetric difference, got %+v", res)
	}
	if res.LHSNodes != len(a.Nodes) || res.RHSNodes != len(b.Nodes) {
		t.Errorf("node counts should match the input DAGs exactly")
	}
}
