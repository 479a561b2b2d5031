package main

import "math/rand"

// MoveProposer is the collaborator interface Design Notes describes
// as replacing the legacy matOptimize link: "propose_moves(tree) ->
// stream<move>". RandomSPRProposer below is the native implementation
// that satisfies it without any external dependency.
type MoveProposer interface {
	ProposeMoves(t *MADAG, radius int, rng *rand.Rand, k int) ([]SPRMove, error)
}

// RandomSPRProposer generates legal random SPR moves within a given
// radius (§4.5 step 3a): |path(src->lca)| + |path(dst->lca)| <= r.
// SubtreeMin/SubtreeMax, when both positive, restrict candidate move
// endpoints to nodes whose subtree (by leaf count) falls in that
// range, the `--subtree-min`/`--subtree-max` bounds of §6 — moves
// proposed against a huge or trivial subtree are not useful to score.
type RandomSPRProposer struct {
	SubtreeMin, SubtreeMax int
}

// subtreeLeafCounts returns, for every node reachable from t's root,
// the number of leaves in its subtree.
func subtreeLeafCounts(t *MADAG) map[NodeId]int {
	root, err := t.Root()
	if err != nil {
		return nil
	}
	counts := make(map[NodeId]int, len(t.Nodes))
	t.PostOrder(root, func(n *Node) {
		if n.IsLeaf() {
			counts[n.Id] = 1
			return
		}
		sum := 0
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				sum += counts[t.Edge(eid).Child]
			}
		}
		counts[n.Id] = sum
	})
	return counts
}

func pathLenToAncestor(t dagView, node, ancestor NodeId) int {
	n := 0
	for _, a := range ancestorPath(t, node) {
		if a == ancestor {
			return n
		}
		n++
	}
	return -1
}

// ProposeMoves draws up to k candidate moves uniformly from the
// non-UA, non-root node pairs (src, dst) satisfying the radius bound
// and ValidateMove's legality checks; it gives up after a bounded
// number of rejected samples rather than looping forever on a tree
// too small for the requested radius and count.
func (p RandomSPRProposer) ProposeMoves(t *MADAG, radius int, rng *rand.Rand, k int) ([]SPRMove, error) {
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	var leafCounts map[NodeId]int
	if p.SubtreeMin > 0 && p.SubtreeMax > 0 {
		leafCounts = subtreeLeafCounts(t)
	}
	var candidates []NodeId
	t.PreOrder(root, func(n *Node) bool {
		if n.Id != root {
			if leafCounts != nil {
				c := leafCounts[n.Id]
				if c < p.SubtreeMin || c > p.SubtreeMax {
					return true
				}
			}
			candidates = append(candidates, n.Id)
		}
		return true
	})
	if len(candidates) < 2 {
		return nil, nil
	}

	moves := make([]SPRMove, 0, k)
	maxAttempts := k * 20
	if maxAttempts < 50 {
		maxAttempts = 50
	}
	for attempt := 0; attempt < maxAttempts && len(moves) < k; attempt++ {
		src := candidates[rng.Intn(len(candidates))]
		dst := candidates[rng.Intn(len(candidates))]
		move := SPRMove{Src: src, Dst: dst}
		if err := ValidateMove(t, move); err != nil {
			continue
		}
		lca, err := LCA(t, src, dst)
		if err != nil {
			continue
		}
		d := pathLenToAncestor(t, src, lca) + pathLenToAncestor(t, dst, lca)
		if d > radius {
			continue
		}
		moves = append(moves, move)
	}
	return moves, nil
}

// treeDepth returns the longest root-to-leaf path length, used to
// bound the radius schedule at 2*tree_depth(T) (§4.5 Radius
// schedule).
func treeDepth(t *MADAG, root NodeId) int {
	max := 0
	t.PreOrder(root, func(n *Node) bool {
		d := pathLenToAncestor(t, n.Id, root)
		if d > max {
			max = d
		}
		return true
	})
	return max
}
