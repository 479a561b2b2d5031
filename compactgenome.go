package main

import (
	"fmt"
	"hash/fnv"
	"sort"

	radix "github.com/Emeline-1/radix"
)

// MutationPosition is a 1-indexed site into the reference sequence.
type MutationPosition int

// posKey renders a position as a fixed-width, zero-padded decimal
// string so that radix key order (byte-lexicographic) coincides with
// numeric position order. 9 digits comfortably covers any reference
// this system is meant to handle (whole mitochondrial/viral/bacterial
// genomes, and SARS-CoV-2-scale alignments with room to spare).
func posKey(pos MutationPosition) string {
	return fmt.Sprintf("%09d", int(pos))
}

func keyPos(key string) MutationPosition {
	var n int
	fmt.Sscanf(key, "%d", &n)
	return MutationPosition(n)
}

// CompactGenome is a sparse, ordered diff against the reference: an
// entry at pos never equals Reference.At(pos). Backed by the
// teacher's radix trie (overlays_processing.go's ordered-walk idiom)
// so entries iterate in position order for free and hashing/equality
// are cheap structural operations over that order.
type CompactGenome struct {
	tree *radix.Tree
	hash uint64
	size int
}

// CGEntry is one (position, base) pair of a CompactGenome, always
// distinct from the reference base at that position.
type CGEntry struct {
	Pos  MutationPosition
	Base Base
}

// emptyCG is the canonical interned singleton denoting "identical to
// the reference" (§3 Lifecycle).
var emptyCG = &CompactGenome{tree: radix.New()}

func newCompactGenomeBuilder() *compactGenomeBuilder {
	return &compactGenomeBuilder{tree: radix.New()}
}

// compactGenomeBuilder accumulates entries before the CG is frozen and
// interned; CompactGenome values themselves are treated as immutable
// once built; this mirrors the spec's "CGs are hashed... the canonical
// empty singleton is shared" lifecycle.
type compactGenomeBuilder struct {
	tree *radix.Tree
	size int
}

func (b *compactGenomeBuilder) set(pos MutationPosition, base Base) {
	if _, existed := b.tree.Insert(posKey(pos), base); !existed {
		b.size++
	}
}

func (b *compactGenomeBuilder) build() *CompactGenome {
	if b.size == 0 {
		return emptyCG
	}
	cg := &CompactGenome{tree: b.tree, size: b.size}
	cg.hash = cg.computeHash()
	return cg
}

func (cg *CompactGenome) computeHash() uint64 {
	h := fnv.New64a()
	cg.tree.Walk_post(func(parent *radix.LeafNode, children []*radix.LeafNode) {
		// Walk_post visits every leaf exactly once as a "parent" with
		// no children of its own in a flat key space (no key is a
		// prefix of another fixed-width key), so this collects every
		// entry in ascending position order.
		if parent == nil {
			return
		}
		base, _ := parent.Val.(Base)
		fmt.Fprintf(h, "%s:%d;", parent.Key, base)
	})
	return h.Sum64()
}

// Hash returns the order-sensitive combined hash used for interning.
func (cg *CompactGenome) Hash() uint64 { return cg.hash }

// Len reports the number of non-reference entries.
func (cg *CompactGenome) Len() int { return cg.size }

// Get returns the base stored at pos, if any.
func (cg *CompactGenome) Get(pos MutationPosition) (Base, bool) {
	v, ok := cg.tree.Get(posKey(pos))
	if !ok {
		return 0, false
	}
	b, _ := v.(Base)
	return b, true
}

// Entries returns all (position, base) pairs in ascending position
// order.
func (cg *CompactGenome) Entries() []CGEntry {
	entries := make([]CGEntry, 0, cg.size)
	cg.tree.Walk_post(func(parent *radix.LeafNode, children []*radix.LeafNode) {
		if parent == nil {
			return
		}
		base, _ := parent.Val.(Base)
		entries = append(entries, CGEntry{Pos: keyPos(parent.Key), Base: base})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Pos < entries[j].Pos })
	return entries
}

// Equal compares two CGs by their entry maps, per §3.
func (cg *CompactGenome) Equal(other *CompactGenome) bool {
	if cg == other {
		return true
	}
	if cg == nil || other == nil {
		return false
	}
	if cg.hash != other.hash || cg.size != other.size {
		return false
	}
	a, b := cg.Entries(), other.Entries()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolvedAt returns the base at pos after resolving against ref:
// the CG's own entry if present, else the reference base.
func (cg *CompactGenome) resolvedAt(pos MutationPosition, ref *Reference) Base {
	if b, ok := cg.Get(pos); ok {
		return b
	}
	return ref.At(pos)
}

// CGFromSequence implements cg_from_sequence: for every position where
// seq differs from ref, record the observed base.
func CGFromSequence(seq string, ref *Reference) (*CompactGenome, error) {
	if len(seq) != ref.Len() {
		return nil, newErr(ErrInputFormat, fmt.Sprintf(
			"sequence length %d does not match reference length %d", len(seq), ref.Len()))
	}
	b := newCompactGenomeBuilder()
	for i := 0; i < len(seq); i++ {
		base, err := BaseFromByte(seq[i])
		if err != nil {
			return nil, err
		}
		pos := MutationPosition(i + 1)
		if base != ref.At(pos) {
			b.set(pos, base)
		}
	}
	return b.build(), nil
}

// CGToSequence implements cg_to_sequence: reference overwritten at the
// CG's entries.
func CGToSequence(cg *CompactGenome, ref *Reference) (string, error) {
	out := []byte(ref.Raw)
	for _, e := range cg.Entries() {
		if int(e.Pos) < 1 || int(e.Pos) > len(out) {
			return "", newErr(ErrInvariantViolation, "compact genome position out of range")
		}
		out[e.Pos-1] = e.Base.Byte()
	}
	return string(out), nil
}

// CGExtendByEdge implements cg_extend_by_edge: seed child_cg as
// parent_cg union M, then drop entries that returned to reference.
func CGExtendByEdge(parentCG *CompactGenome, m EdgeMutations, ref *Reference) *CompactGenome {
	b := newCompactGenomeBuilder()
	for _, e := range parentCG.Entries() {
		b.set(e.Pos, e.Base)
	}
	for _, mu := range m.entries {
		if mu.ChildBase == ref.At(mu.Pos) {
			b.tree.Delete(posKey(mu.Pos))
		} else {
			b.set(mu.Pos, mu.ChildBase)
		}
	}
	return rebuildAfterDeletes(b)
}

// rebuildAfterDeletes recomputes size/hash after Delete calls, since
// compactGenomeBuilder.size only tracks Insert-driven growth.
func rebuildAfterDeletes(b *compactGenomeBuilder) *CompactGenome {
	size := 0
	b.tree.Walk_post(func(parent *radix.LeafNode, children []*radix.LeafNode) {
		if parent != nil {
			size++
		}
	})
	b.size = size
	return b.build()
}

// MutationEntry is one (position, parent_base, child_base) triple of
// an EdgeMutations value, with parent_base != child_base.
type MutationEntry struct {
	Pos        MutationPosition
	ParentBase Base
	ChildBase  Base
}

// EdgeMutations is the ordered symmetric difference between two
// endpoint CGs, resolved against the reference.
type EdgeMutations struct {
	entries []MutationEntry
}

// Entries returns the mutations in ascending position order.
func (m EdgeMutations) Entries() []MutationEntry { return m.entries }

// Len reports the number of mutations on the edge.
func (m EdgeMutations) Len() int { return len(m.entries) }

// EdgeMutationsFromEndpoints implements
// edge_mutations_from_endpoints.
func EdgeMutationsFromEndpoints(parentCG, childCG *CompactGenome, ref *Reference) (EdgeMutations, error) {
	positions := unionPositions(parentCG, childCG)
	entries := make([]MutationEntry, 0, len(positions))
	for _, pos := range positions {
		pb := parentCG.resolvedAt(pos, ref)
		cb := childCG.resolvedAt(pos, ref)
		if pb.CompatibleWith(cb) {
			// Sharing a bit (including equality) is not a difference
			// requiring a mutation record; only incompatible resolved
			// bases are (spec.md §4.1: "must not be compatible").
			continue
		}
		entries = append(entries, MutationEntry{Pos: pos, ParentBase: pb, ChildBase: cb})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Pos < entries[j].Pos })
	return EdgeMutations{entries: entries}, nil
}

func unionPositions(a, b *CompactGenome) []MutationPosition {
	seen := make(map[MutationPosition]struct{}, a.Len()+b.Len())
	for _, e := range a.Entries() {
		seen[e.Pos] = struct{}{}
	}
	for _, e := range b.Entries() {
		seen[e.Pos] = struct{}{}
	}
	out := make([]MutationPosition, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CGIsCompatible implements cg_is_compatible.
func CGIsCompatible(lhs, rhs *CompactGenome, ref *Reference) bool {
	for _, pos := range unionPositions(lhs, rhs) {
		if !lhs.resolvedAt(pos, ref).CompatibleWith(rhs.resolvedAt(pos, ref)) {
			return false
		}
	}
	return true
}

// CGDifferingSites implements cg_differing_sites: the positions where
// lhs and rhs resolve to incompatible bases against ref, the same
// resolution EdgeMutationsFromEndpoints/CGIsCompatible use (a position
// present on only one side resolves the other side to ref's own base,
// so "differing" always goes through ref rather than raw entry
// presence).
func CGDifferingSites(lhs, rhs *CompactGenome, ref *Reference) []MutationPosition {
	var out []MutationPosition
	for _, pos := range unionPositions(lhs, rhs) {
		if !lhs.resolvedAt(pos, ref).CompatibleWith(rhs.resolvedAt(pos, ref)) {
			out = append(out, pos)
		}
	}
	return out
}
