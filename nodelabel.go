package main

// NodeLabel is the canonical identity the merge engine deduplicates
// nodes by: (CG, LS) for internal nodes, (SampleId, LS) for leaves.
// CG/LS/SampleId are always interned pointers by the time a NodeLabel
// is constructed, so the label's equality reduces to pointer/string
// comparison — no deep structural comparison needed at merge time.
type NodeLabel struct {
	CG       *CompactGenome
	LS       *LeafSet
	SampleId *string
}

// key returns a comparable Go value usable as a map key. Because CG
// and LS are always the interned representative pointer (see
// intern.go), pointer identity already implies structural equality;
// SampleId is dereferenced since two distinct *string values from
// different interning calls would otherwise break the map-key
// contract the spec's equality rule expects.
type nodeLabelKey struct {
	cg     *CompactGenome
	ls     *LeafSet
	sample string
	isLeaf bool
}

func (l NodeLabel) key() nodeLabelKey {
	if l.SampleId != nil {
		return nodeLabelKey{ls: l.LS, sample: *l.SampleId, isLeaf: true}
	}
	return nodeLabelKey{cg: l.CG, ls: l.LS}
}

// Equal compares two labels per the spec's leaf/internal split.
func (l NodeLabel) Equal(other NodeLabel) bool {
	return l.key() == other.key()
}
