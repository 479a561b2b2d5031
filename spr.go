package main


// dagView is the minimal read surface LCA/move-legality checks need,
// satisfied by both *MADAG and *Overlay.
type dagView interface {
	Node(NodeId) *Node
	Edge(EdgeId) *Edge
}

func parentEdgeOf(g dagView, id NodeId) (EdgeId, bool) {
	n := g.Node(id)
	if len(n.ParentEdges) == 0 {
		return 0, false
	}
	return n.ParentEdges[0], true
}

// ancestorPath returns id, its parent, its parent's parent, ... up to
// (and including) the UA, the first node with no parent edge. Valid only on a tree (every non-UA node
// has exactly one parent edge), which is the precondition for SPR.
func ancestorPath(g dagView, id NodeId) []NodeId {
	path := []NodeId{id}
	cur := id
	for {
		eid, ok := parentEdgeOf(g, cur)
		if !ok {
			return path
		}
		cur = g.Edge(eid).Parent
		path = append(path, cur)
	}
}

// LCA returns the lowest common ancestor of a and b (§4.4): the
// deepest node common to both ancestor paths.
func LCA(g dagView, a, b NodeId) (NodeId, error) {
	pathA := ancestorPath(g, a)
	depthA := make(map[NodeId]int, len(pathA))
	for i, n := range pathA {
		depthA[n] = i
	}
	best := -1
	bestNode := NodeId(0)
	for _, n := range ancestorPath(g, b) {
		if d, ok := depthA[n]; ok && (best == -1 || d < best) {
			best, bestNode = d, n
		}
	}
	if best == -1 {
		return 0, newErr(ErrInvariantViolation, "src and dst share no common ancestor")
	}
	return bestNode, nil
}

func isDescendant(g dagView, descendant, ancestor NodeId) bool {
	for _, n := range ancestorPath(g, descendant) {
		if n == ancestor {
			return true
		}
	}
	return false
}

// SPRMove names one candidate move: detach src, reattach as dst's new
// sibling.
type SPRMove struct {
	Src NodeId
	Dst NodeId
}

// ValidateMove checks the legality preconditions of §4.4: src != dst,
// dst is not a descendant of src, dst is not src's parent, and src's
// parent has another child besides src.
func ValidateMove(t dagView, move SPRMove) error {
	src, dst := move.Src, move.Dst
	if src == dst {
		return newErr(ErrIllegalMove, "src and dst are the same node")
	}
	if isDescendant(t, dst, src) {
		return newErr(ErrIllegalMove, "dst is a descendant of src")
	}
	srcParentEdge, ok := parentEdgeOf(t, src)
	if !ok {
		return newErr(ErrIllegalMove, "src has no parent (is the root)")
	}
	srcParent := t.Edge(srcParentEdge).Parent
	if dst == srcParent {
		return newErr(ErrIllegalMove, "dst is already src's parent")
	}
	if _, ok := parentEdgeOf(t, dst); !ok {
		return newErr(ErrIllegalMove, "dst has no parent (is the root)")
	}
	pn := t.Node(srcParent)
	siblingCount := 0
	for _, clade := range pn.ChildClades {
		siblingCount += len(clade)
	}
	if siblingCount < 2 {
		return newErr(ErrIllegalMove, "src's parent has no other child")
	}
	return nil
}

// ApplySPR performs the edit of §4.4 step 2 on overlay o: detach src
// from its parent, insert a fresh internal node `new` into dst's old
// clade slot under dst's parent, and make src and dst new's children.
// Returns the id of `new`. The new node's CG is left nil; callers run
// PropagateFragment next to fill it and its affected ancestors in.
func ApplySPR(o *Overlay, move SPRMove) (NodeId, error) {
	if err := ValidateMove(o, move); err != nil {
		return 0, err
	}
	src, dst := move.Src, move.Dst

	srcParentEdgeId, _ := parentEdgeOf(o, src)
	srcParentEdge := o.Edge(srcParentEdgeId)
	o.RemoveEdgeFromClade(srcParentEdge.Parent, srcParentEdge.CladeIdx, srcParentEdgeId)
	o.RemoveParentEdge(src, srcParentEdgeId)

	dstParentEdgeId, _ := parentEdgeOf(o, dst)
	dstParentEdge := o.Edge(dstParentEdgeId)
	dstParent, dstCladeIdx := dstParentEdge.Parent, dstParentEdge.CladeIdx
	o.RemoveEdgeFromClade(dstParent, dstCladeIdx, dstParentEdgeId)
	o.RemoveParentEdge(dst, dstParentEdgeId)

	newNode := o.AppendNode(nil, nil)
	o.AppendEdge(dstParent, newNode, dstCladeIdx)
	o.AppendEdge(newNode, src, 0)
	o.AppendEdge(newNode, dst, 1)
	return newNode, nil
}

// fitchCombine derives a node's compact genome from its children's
// CGs by the classic Fitch rule applied per differing site: intersect
// children's resolved base sets where they overlap, else union them,
// then resolve any remaining ambiguity to a single bit (§4.1
// Numerics: ancestral bases must not remain ambiguous after
// reconstruction).
func fitchCombine(children []*CompactGenome, ref *Reference) *CompactGenome {
	positions := make(map[MutationPosition]struct{})
	for _, c := range children {
		for _, e := range c.Entries() {
			positions[e.Pos] = struct{}{}
		}
	}
	b := newCompactGenomeBuilder()
	for pos := range positions {
		and := BaseN
		or := Base(0)
		for _, c := range children {
			rb := c.resolvedAt(pos, ref)
			and &= rb
			or |= rb
		}
		var resolved Base
		if and != 0 {
			resolved = and
		} else {
			resolved = or
		}
		resolved = resolved.ResolveFirst()
		if resolved != ref.At(pos) {
			b.set(pos, resolved)
		}
	}
	return b.build()
}

// PropagateFragment recomputes compact genomes from start (the new
// SPR node, or any node whose children changed) up through ancestors,
// stopping the first time a recomputed CG equals the node's previous
// CG (an anchor: everything above is provably unaffected). Returns
// the ids touched, in ascending-toward-root order.
func PropagateFragment(o *Overlay, start NodeId) ([]NodeId, error) {
	var touched []NodeId
	cur := start
	first := true
	for {
		n := o.Node(cur)
		if n.IsLeaf() {
			return nil, newErr(ErrInvariantViolation, "fragment propagation reached a leaf")
		}
		oldCG := n.CG
		var childCGs []*CompactGenome
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				childCGs = append(childCGs, o.Node(o.Edge(eid).Child).CG)
			}
		}
		newCG := fitchCombine(childCGs, o.base.Ref)
		changed := oldCG == nil || !newCG.Equal(oldCG)
		if changed {
			o.SetCG(cur, newCG)
		}
		touched = append(touched, cur)
		if !changed && !first {
			break
		}
		first = false
		if cur == o.UA() {
			break
		}
		eid, ok := parentEdgeOf(o, cur)
		if !ok {
			break
		}
		cur = o.Edge(eid).Parent
	}
	return touched, nil
}

// Fragment is the result of materializing a hypothetical SPR move: the
// node ids recomputed by PropagateFragment, the edges incident to them
// (§4.4 step 5's literal "nodes visited plus their incident edges"),
// and the complete post-move tree those recomputations live in.
//
// The spec's minimal fragment is sized for merging into a history-DAG
// merge engine built around sparse patches; this repo's Merge
// (merge.go) consumes whole input trees, so Tree is always the fully
// materialized post-move tree rather than a sparse patch — §8's
// round-trip property ("merging the fragment back... produces the same
// result as merging the fully-materialized post-move tree") holds
// trivially under this choice, at the cost of a larger per-iteration
// merge input than a minimal-patch engine would need. IncidentEdges is
// still computed and exposed directly off the final overlay adjacency
// (not the stale pre-move one) for callers that only want the literal
// sparse view — logging, stats, or a future sparse-merge engine — at
// no extra materialization cost. See DESIGN.md.
type Fragment struct {
	ChangedNodes  []NodeId
	IncidentEdges []EdgeId
	Tree          *MADAG
}

// incidentEdges collects, for every id in touched, its current parent
// edge plus every edge in its child clades, each included once. Read
// off o after ApplySPR/PropagateFragment have run, so it reflects the
// post-move adjacency (a detached parent edge no longer appears under
// its old child, per ApplySPR's repoint via RemoveParentEdge).
func incidentEdges(o *Overlay, touched []NodeId) []EdgeId {
	seen := make(map[EdgeId]bool)
	var out []EdgeId
	add := func(eid EdgeId) {
		if !seen[eid] {
			seen[eid] = true
			out = append(out, eid)
		}
	}
	for _, id := range touched {
		n := o.Node(id)
		for _, eid := range n.ParentEdges {
			add(eid)
		}
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				add(eid)
			}
		}
	}
	return out
}

// MaterializeMove applies move to a fresh overlay of t, propagates
// the resulting CG changes, and returns the fragment.
func MaterializeMove(t *MADAG, move SPRMove) (*Fragment, error) {
	o := NewOverlay(t)
	newNode, err := ApplySPR(o, move)
	if err != nil {
		return nil, err
	}
	touched, err := PropagateFragment(o, newNode)
	if err != nil {
		return nil, err
	}
	incident := incidentEdges(o, touched)
	tree := o.Materialize()
	if err := tree.RecomputeEdgeMutations(); err != nil {
		return nil, err
	}
	return &Fragment{ChangedNodes: touched, IncidentEdges: incident, Tree: tree}, nil
}

// MoveScorer scores a candidate move; lower is better (§4.4 Move
// scoring). Backends that are not compiled in must be absent, not a
// silent no-op (§7 UnsupportedFeature).
type MoveScorer interface {
	Score(base *MADAG, move SPRMove, fragment *Fragment) (int, error)
}

// ParsimonyMoveScorer scores by the change in total parsimony
// (mutation count) between the pre-move tree and the fragment's
// materialized post-move tree.
type ParsimonyMoveScorer struct{}

func (ParsimonyMoveScorer) Score(base *MADAG, move SPRMove, fragment *Fragment) (int, error) {
	root, err := base.Root()
	if err != nil {
		return 0, err
	}
	before, err := ComputeWeightBelow(base, root, ParsimonyScore{})
	if err != nil {
		return 0, err
	}
	newRoot, err := fragment.Tree.Root()
	if err != nil {
		return 0, err
	}
	after, err := ComputeWeightBelow(fragment.Tree, newRoot, ParsimonyScore{})
	if err != nil {
		return 0, err
	}
	return after[newRoot] - before[root], nil
}

// FitchMoveScorer is functionally identical to ParsimonyMoveScorer in
// this implementation: PropagateFragment already incrementally
// recomputes Fitch sets only along the affected ancestor path, so
// there is no separate "full re-Fitch" to avoid the way the spec's
// standalone Fitch backend does against a from-scratch parsimony
// recount. It is kept as a distinct named type so callers can select
// it explicitly by the spec's vocabulary.
type FitchMoveScorer struct{ ParsimonyMoveScorer }

var _ MoveScorer = ParsimonyMoveScorer{}
var _ MoveScorer = FitchMoveScorer{}

// errNoMLBackend is returned by any attempt to use ML scoring; the
// optional backend is not compiled into this build.
var errNoMLBackend = newErr(ErrUnsupportedFeature, "ML move scoring backend is not available in this build")

// MLMoveScorer documents the optional backend's absence explicitly
// rather than silently behaving like ParsimonyMoveScorer.
type MLMoveScorer struct{}

func (MLMoveScorer) Score(base *MADAG, move SPRMove, fragment *Fragment) (int, error) {
	return 0, errNoMLBackend
}
