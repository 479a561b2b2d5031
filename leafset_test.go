package main

import "testing"

func TestNewLeafSetNormalizesOrder(t *testing.T) {
	a := NewLeafSet([][]string{{"b", "a"}, {"c"}})
	b := NewLeafSet([][]string{{"c"}, {"a", "b"}})
	if !a.Equal(b) {
		t.Errorf("LeafSets with the same clades in different order should be equal")
	}
	if a.Hash() != b.Hash() {
		t.Errorf("LeafSets with the same clades in different order should hash equal")
	}
}

func TestLeafSetNotEqualDifferentClades(t *testing.T) {
	a := NewLeafSet([][]string{{"a"}, {"b"}})
	b := NewLeafSet([][]string{{"a", "b"}})
	if a.Equal(b) {
		t.Errorf("different clade structure should not be equal")
	}
}

func TestLeafLeafSet(t *testing.T) {
	ls := LeafLeafSet("sample1")
	if len(ls.Clades) != 1 || len(ls.Clades[0]) != 1 || ls.Clades[0][0] != "sample1" {
		t.Errorf("LeafLeafSet(%q) = %+v, want a singleton clade", "sample1", ls.Clades)
	}
}

func TestUnionLeafSet(t *testing.T) {
	ls := UnionLeafSet([][]string{{"a", "b"}, {"c"}})
	leaves := ls.Leaves()
	if len(leaves) != 3 {
		t.Fatalf("Leaves() = %v, want 3 entries", leaves)
	}
}

func TestNodeLabelKeyDistinguishesLeafFromInternal(t *testing.T) {
	ls := LeafLeafSet("sample1")
	sample := "sample1"
	leafLabel := NodeLabel{CG: emptyCG, LS: ls, SampleId: &sample}
	internalLabel := NodeLabel{CG: emptyCG, LS: ls}
	if leafLabel.Equal(internalLabel) {
		t.Errorf("a leaf label and an internal label over the same LS should not be equal")
	}
}

func TestNodeLabelEqual(t *testing.T) {
	ls := NewLeafSet([][]string{{"a"}})
	l1 := NodeLabel{CG: emptyCG, LS: ls}
	l2 := NodeLabel{CG: emptyCG, LS: ls}
	if !l1.Equal(l2) {
		t.Errorf("labels built from the same interned CG/LS pointers should be equal")
	}
}
