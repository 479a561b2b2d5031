package main

import (
	"math/rand"
	"testing"
)

func TestBigWeightArithmetic(t *testing.T) {
	a := newBigWeight(3)
	b := newBigWeight(4)
	if got := a.Add(b); got.String() != "7" {
		t.Errorf("Add = %s, want 7", got.String())
	}
	if got := a.Mul(b); got.String() != "12" {
		t.Errorf("Mul = %s, want 12", got.String())
	}
	if !a.Less(b) || b.Less(a) {
		t.Errorf("Less(3,4) should be true and Less(4,3) false")
	}
	if !a.Equal(newBigWeight(3)) {
		t.Errorf("Equal should hold for equal values")
	}
	if newBigWeight(0).Sign() != 0 || newBigWeight(-1).Sign() != -1 || newBigWeight(1).Sign() != 1 {
		t.Errorf("Sign() mismatched for 0/-1/1")
	}
}

func TestBigWeightRandBelowStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bound := newBigWeight(10)
	for i := 0; i < 20; i++ {
		got := bound.RandBelow(rng)
		if !got.Less(bound) || got.Sign() < 0 {
			t.Fatalf("RandBelow(10) produced %s, out of [0,10)", got.String())
		}
	}
}

func TestParsimonyScoreWithinCladeAccumOptimumPicksAllTies(t *testing.T) {
	best, idxs := ParsimonyScore{}.WithinCladeAccumOptimum([]int{3, 1, 1, 2})
	if best != 1 {
		t.Fatalf("best = %d, want 1", best)
	}
	if len(idxs) != 2 || idxs[0] != 1 || idxs[1] != 2 {
		t.Errorf("idxs = %v, want [1 2]", idxs)
	}
}

func TestParsimonyScoreBetweenCladesSumsAndAboveNodeAdds(t *testing.T) {
	if got := ParsimonyScore{}.BetweenClades([]int{1, 2, 3}); got != 6 {
		t.Errorf("BetweenClades = %d, want 6", got)
	}
	if got := ParsimonyScore{}.AboveNode(2, 3); got != 5 {
		t.Errorf("AboveNode = %d, want 5", got)
	}
}

func TestBinaryParsimonyScoreCountsMutatedEdgesOnly(t *testing.T) {
	d, _ := buildSimpleTree(t)
	edgeA := d.Edge(1)
	edgeUA := d.Edge(0)
	ops := BinaryParsimonyScore{}
	if got := ops.ComputeEdge(edgeA); got != 1 {
		t.Errorf("ComputeEdge(mutated edge) = %d, want 1", got)
	}
	if got := ops.ComputeEdge(edgeUA); got != 0 {
		t.Errorf("ComputeEdge(empty-mutation edge) = %d, want 0", got)
	}
}

func TestTreeCountSemiringCombinesAdditivelyAndMultiplicatively(t *testing.T) {
	ops := TreeCount{}
	within, idxs := ops.WithinCladeAccumOptimum([]*bigWeight{newBigWeight(2), newBigWeight(3)})
	if within.String() != "5" {
		t.Errorf("WithinCladeAccumOptimum = %s, want 5", within.String())
	}
	if len(idxs) != 2 {
		t.Errorf("TreeCount should report every candidate as usable, got %v", idxs)
	}
	between := ops.BetweenClades([]*bigWeight{newBigWeight(5), newBigWeight(4)})
	if between.String() != "20" {
		t.Errorf("BetweenClades = %s, want 20", between.String())
	}
	above := ops.AboveNode(newBigWeight(2), newBigWeight(6))
	if above.String() != "12" {
		t.Errorf("AboveNode = %s, want 12", above.String())
	}
}

func TestWeightAccumulatorDelegatesToSuppliedFuncs(t *testing.T) {
	acc := WeightAccumulator[int]{
		Leaf: func(n *Node) int { return 1 },
		Edge: func(e *Edge) int { return e.Mutations.Len() },
		WithinOptimum: func(ws []int) (int, []int) {
			return ParsimonyScore{}.WithinCladeAccumOptimum(ws)
		},
		Between: func(cs []int) int { return ParsimonyScore{}.BetweenClades(cs) },
		Above:   func(e, c int) int { return e + c },
		LessFn:  func(a, b int) bool { return a < b },
	}
	if acc.ComputeLeaf(nil) != 1 {
		t.Errorf("ComputeLeaf should delegate to Leaf")
	}
	if !acc.Less(1, 2) {
		t.Errorf("Less should delegate to LessFn")
	}
	if acc.AboveNode(2, 3) != 5 {
		t.Errorf("AboveNode should delegate to Above")
	}
}

func TestPairOpsTracksWeightAndCountTogether(t *testing.T) {
	p := pairOps[int]{inner: ParsimonyScore{}}
	cheap := Pair[int]{Weight: 1, Count: newBigWeight(2)}
	costly := Pair[int]{Weight: 3, Count: newBigWeight(5)}
	tied := Pair[int]{Weight: 1, Count: newBigWeight(4)}

	best, idxs := p.WithinCladeAccumOptimum([]Pair[int]{cheap, costly, tied})
	if best.Weight != 1 {
		t.Fatalf("best.Weight = %d, want 1", best.Weight)
	}
	if len(idxs) != 2 {
		t.Fatalf("expected the two tied-optimum candidates, got %v", idxs)
	}
	if best.Count.String() != "6" {
		t.Errorf("tied optimum counts should sum: got %s, want 6 (2+4)", best.Count.String())
	}

	combined := p.BetweenClades([]Pair[int]{cheap, costly})
	if combined.Weight != 4 {
		t.Errorf("BetweenClades.Weight = %d, want 4", combined.Weight)
	}
	if combined.Count.String() != "10" {
		t.Errorf("BetweenClades.Count should multiply: got %s, want 10", combined.Count.String())
	}

	if !p.Less(cheap, costly) {
		t.Errorf("cheap should be Less than costly by weight")
	}
	if !p.Less(Pair[int]{Weight: 1, Count: newBigWeight(1)}, tied) {
		t.Errorf("equal weights should break ties by count")
	}
}

func TestSankoffVariableSitesCollectsAllMutatedPositions(t *testing.T) {
	d, _ := buildSimpleTree(t)
	sites := SankoffVariableSites(d)
	if len(sites) == 0 {
		t.Fatalf("expected at least one variable site from buildSimpleTree's mutated edges")
	}
}

func TestSankoffWeightOpsScoresSubstitutionAtAVariableSite(t *testing.T) {
	ref := mustRef(t, "ACGT")
	leaf := &Node{CG: mustCG(t, "ACGA", ref)}
	ops := SankoffWeightOps{Ref: ref, Cost: DefaultSankoffCost, Sites: []MutationPosition{4}}
	leafVec := ops.ComputeLeaf(leaf)
	idxT := sankoffStateIndex(BaseT)
	idxA := sankoffStateIndex(BaseA)
	if leafVec[4][idxA] != 0 {
		t.Errorf("leaf resolved to A should cost 0 for fixing parent to A, got %d", leafVec[4][idxA])
	}
	if leafVec[4][idxT] == 0 {
		t.Errorf("leaf resolved to A should not cost 0 for fixing parent to T")
	}

	above := ops.AboveNode(SankoffVector{4: [sankoffStateCount]int{}}, leafVec)
	total := ops.TotalCost(above)
	if total != 0 {
		t.Errorf("parent free to choose A should make the above-edge cost 0, got %d", total)
	}
}

func TestSankoffReconstructPicksRootsCheapestState(t *testing.T) {
	ref := mustRef(t, "A")
	d := NewMADAG(ref)
	rootId := d.AddNode(emptyCG, nil)
	if _, err := d.AddEdge(d.UA, rootId, 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	ops := SankoffWeightOps{Ref: ref, Cost: DefaultSankoffCost, Sites: []MutationPosition{1}}
	below := map[NodeId]SankoffVector{
		rootId: {1: [sankoffStateCount]int{0, 10, 10, 10}},
	}
	resolved := ops.Reconstruct(d, rootId, below)
	if got := resolved[rootId][1]; got != BaseA {
		t.Errorf("root should resolve to its uniquely cheapest state A, got %v", got)
	}
}

func TestSankoffReconstructPrefersParentsBaseAmongTiedMinima(t *testing.T) {
	ref := mustRef(t, "A")
	d := NewMADAG(ref)
	rootId := d.AddNode(emptyCG, nil)
	if _, err := d.AddEdge(d.UA, rootId, 0); err != nil {
		t.Fatalf("AddEdge(UA, root): %v", err)
	}
	childSample := "child"
	childId := d.AddNode(emptyCG, &childSample)
	if _, err := d.AddEdge(rootId, childId, 0); err != nil {
		t.Fatalf("AddEdge(root, child): %v", err)
	}

	ops := SankoffWeightOps{Ref: ref, Cost: DefaultSankoffCost, Sites: []MutationPosition{1}}
	below := map[NodeId]SankoffVector{
		// root resolves uniquely to C (index 1).
		rootId: {1: [sankoffStateCount]int{10, 0, 10, 10}},
		// child's own cost vector ties A and C once the parent-transition
		// cost is added in: picking A costs 1 (mismatch) + 0 (child's own
		// A cost) = 1; picking C costs 0 (match) + 1 (child's own C
		// cost) = 1. A naive lowest-index tie-break would pick A (index
		// 0); the reconstruction must prefer C, matching root.
		childId: {1: [sankoffStateCount]int{0, 1, 100, 100}},
	}

	resolved := ops.Reconstruct(d, rootId, below)
	if got := resolved[rootId][1]; got != BaseC {
		t.Fatalf("root = %v, want BaseC", got)
	}
	if got := resolved[childId][1]; got != BaseC {
		t.Errorf("child = %v, want BaseC (root's base, preferred among tied minima)", got)
	}
}

func TestSankoffReconstructAncestorsRunsDPAndTracebackTogether(t *testing.T) {
	d, _ := buildSimpleTree(t)
	root, err := d.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	sites := SankoffVariableSites(d)
	ops := SankoffWeightOps{Ref: d.Ref, Cost: DefaultSankoffCost, Sites: sites}
	resolved, err := SankoffReconstructAncestors(d, root, ops)
	if err != nil {
		t.Fatalf("SankoffReconstructAncestors: %v", err)
	}
	for _, leaf := range d.Leaves() {
		n := d.Node(leaf)
		for _, pos := range sites {
			want := n.CG.resolvedAt(pos, d.Ref)
			got := resolved[leaf][pos]
			if !want.CompatibleWith(got) {
				t.Errorf("leaf %d site %d resolved to %v, want a base compatible with %v", leaf, pos, got, want)
			}
		}
	}
}

func mustCG(t *testing.T, seq string, ref *Reference) *CompactGenome {
	t.Helper()
	cg, err := CGFromSequence(seq, ref)
	if err != nil {
		t.Fatalf("CGFromSequence(%q): %v", seq, err)
	}
	return cg
}
