package main

import (
	"sort"
	"strings"
)

// LeafSet is the canonical clade structure used for node identity
// during merging: one sorted list of sample ids per clade, the outer
// list itself sorted so two nodes with the same clades in a different
// order still compare equal.
type LeafSet struct {
	Clades [][]string
	hash   uint64
}

// NewLeafSet builds a LeafSet from per-clade sample-id slices,
// normalizing (sorting) both levels before hashing.
func NewLeafSet(clades [][]string) *LeafSet {
	norm := make([][]string, len(clades))
	for i, c := range clades {
		cc := append([]string(nil), c...)
		sort.Strings(cc)
		norm[i] = cc
	}
	sort.Slice(norm, func(i, j int) bool {
		return strings.Join(norm[i], "\x00") < strings.Join(norm[j], "\x00")
	})
	ls := &LeafSet{Clades: norm}
	ls.hash = ls.computeHash()
	return ls
}

// LeafLeafSet is the LS of a leaf node: a single clade containing
// only itself.
func LeafLeafSet(sampleId string) *LeafSet {
	return NewLeafSet([][]string{{sampleId}})
}

func (ls *LeafSet) computeHash() uint64 {
	var sb strings.Builder
	for _, clade := range ls.Clades {
		for _, s := range clade {
			sb.WriteString(s)
			sb.WriteByte(0)
		}
		sb.WriteByte(1)
	}
	return fnvString(sb.String())
}

// Hash returns the cached structural hash.
func (ls *LeafSet) Hash() uint64 { return ls.hash }

// Equal compares two LeafSets structurally.
func (ls *LeafSet) Equal(other *LeafSet) bool {
	if ls == other {
		return true
	}
	if ls == nil || other == nil {
		return false
	}
	if ls.hash != other.hash || len(ls.Clades) != len(other.Clades) {
		return false
	}
	for i := range ls.Clades {
		if len(ls.Clades[i]) != len(other.Clades[i]) {
			return false
		}
		for j := range ls.Clades[i] {
			if ls.Clades[i][j] != other.Clades[i][j] {
				return false
			}
		}
	}
	return true
}

// Leaves returns the flattened sample ids below this node: its clades
// concatenated in order. Duplicates are not removed.
func (ls *LeafSet) Leaves() []string {
	var out []string
	for _, c := range ls.Clades {
		out = append(out, c...)
	}
	return out
}

// UnionLeafSet builds the LS of a node from its children's LS values,
// one clade per child, used by the merge engine's leaf-set phase.
func UnionLeafSet(childLeaves [][]string) *LeafSet {
	return NewLeafSet(childLeaves)
}
