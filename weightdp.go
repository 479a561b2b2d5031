package main

import (
	"math/rand"
)

// WeightOps is the pluggable semiring the subtree-weight DP evaluates
// (§4.3). Weight is the ordered value type the semiring computes over;
// ParsimonyScore, TreeCount, and Sankoff in semirings.go are concrete instances.
type WeightOps[W any] interface {
	ComputeLeaf(n *Node) W
	ComputeEdge(e *Edge) W
	// WithinCladeAccumOptimum picks the best weight among a clade's
	// candidate edge weights (e.g. min for parsimony, sum for tree
	// count) and reports which indices achieve it.
	WithinCladeAccumOptimum(weights []W) (W, []int)
	BetweenClades(clades []W) W
	AboveNode(edgeWeight, childWeight W) W
	Less(a, b W) bool
}

// ComputeWeightBelow runs the bottom-up DP of §4.3:
// compute_weight_below. Results are memoized per node id because DAG
// nodes may have multiple parents but represent one subtree — the DP
// must not recompute a node's weight once per incoming edge.
func ComputeWeightBelow[W any](d *MADAG, root NodeId, ops WeightOps[W]) (map[NodeId]W, error) {
	if len(d.Nodes) == 0 {
		return nil, newErr(ErrEmptyGraph, "cannot run the weight DP on an empty DAG")
	}
	memo := make(map[NodeId]W, len(d.Nodes))
	var walkErr error
	d.PostOrder(root, func(n *Node) {
		if walkErr != nil {
			return
		}
		if n.IsLeaf() {
			memo[n.Id] = ops.ComputeLeaf(n)
			return
		}
		cladeWeights := make([]W, 0, len(n.ChildClades))
		for _, clade := range n.ChildClades {
			if len(clade) == 0 {
				continue
			}
			edgeWeights := make([]W, len(clade))
			for i, eid := range clade {
				e := d.Edge(eid)
				childW, ok := memo[e.Child]
				if !ok {
					walkErr = newErr(ErrUnreachableNode, "child weight missing during postorder DP")
					return
				}
				edgeWeights[i] = ops.AboveNode(ops.ComputeEdge(e), childW)
			}
			best, _ := ops.WithinCladeAccumOptimum(edgeWeights)
			cladeWeights = append(cladeWeights, best)
		}
		memo[n.Id] = ops.BetweenClades(cladeWeights)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return memo, nil
}

// optimaByClade recomputes, for one node, the per-clade optimal weight
// and which edge indices within the clade achieve it; used by both the
// sampler and the trimmer so they agree on what "optimal" means at
// that node without re-deriving the whole-DAG memo table.
func optimaByClade[W any](d *MADAG, n *Node, memo map[NodeId]W, ops WeightOps[W]) [][]int {
	out := make([][]int, 0, len(n.ChildClades))
	for _, clade := range n.ChildClades {
		if len(clade) == 0 {
			out = append(out, nil)
			continue
		}
		edgeWeights := make([]W, len(clade))
		for i, eid := range clade {
			e := d.Edge(eid)
			edgeWeights[i] = ops.AboveNode(ops.ComputeEdge(e), memo[e.Child])
		}
		_, idxs := ops.WithinCladeAccumOptimum(edgeWeights)
		out = append(out, idxs)
	}
	return out
}

// sampleTreeGeneric implements both sample_tree/min_weight_sample_tree
// (choosePerClade picks uniformly among WithinCladeAccumOptimum's
// optima) and uniform_sample_tree (choosePerClade picks proportional
// to subtree counts) by parameterizing the per-clade edge choice.
func sampleTreeGeneric(d *MADAG, root NodeId, rng *rand.Rand, choosePerClade func(n *Node, clade []EdgeId) (EdgeId, error)) (*MADAG, error) {
	out := NewMADAG(d.Ref)
	resultId := make(map[NodeId]NodeId)
	resultId[d.UA] = out.UA

	var walk func(NodeId) error
	walk = func(id NodeId) error {
		n := d.Node(id)
		myId := resultId[id]
		if n.IsLeaf() {
			return nil
		}
		for _, clade := range n.ChildClades {
			if len(clade) == 0 {
				continue
			}
			eid, err := choosePerClade(n, clade)
			if err != nil {
				return err
			}
			e := d.Edge(eid)
			childId, seen := resultId[e.Child]
			if !seen {
				cn := d.Node(e.Child)
				childId = out.AddNode(cn.CG, cn.SampleId)
				resultId[e.Child] = childId
			}
			newEdgeId, err := out.AddEdge(myId, childId, len(out.Node(myId).ChildClades))
			if err != nil {
				return err
			}
			out.SetMutations(newEdgeId, e.Mutations)
			if !seen {
				if err := walk(e.Child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// MinWeightSampleTree chooses uniformly among each clade's
// weight-optimal edges, per ops.
func MinWeightSampleTree[W any](d *MADAG, root NodeId, ops WeightOps[W], rng *rand.Rand) (*MADAG, error) {
	memo, err := ComputeWeightBelow(d, root, ops)
	if err != nil {
		return nil, err
	}
	return sampleTreeGeneric(d, root, rng, func(n *Node, clade []EdgeId) (EdgeId, error) {
		edgeWeights := make([]W, len(clade))
		for i, eid := range clade {
			e := d.Edge(eid)
			edgeWeights[i] = ops.AboveNode(ops.ComputeEdge(e), memo[e.Child])
		}
		_, idxs := ops.WithinCladeAccumOptimum(edgeWeights)
		if len(idxs) == 0 {
			return 0, newErr(ErrInvariantViolation, "clade has no optimal edge")
		}
		return clade[idxs[rng.Intn(len(idxs))]], nil
	})
}

// SampleTree samples any tree (not necessarily weight-optimal),
// choosing uniformly among every edge in a clade.
func SampleTree(d *MADAG, root NodeId, rng *rand.Rand) (*MADAG, error) {
	return sampleTreeGeneric(d, root, rng, func(n *Node, clade []EdgeId) (EdgeId, error) {
		return clade[rng.Intn(len(clade))], nil
	})
}

// UniformSampleTree samples a tree, choosing each clade's edge with
// probability proportional to the number of trees below its child
// (TreeCount weighs the candidates). No weight function is involved,
// so the sample is not restricted to weight-optimal trees.
func UniformSampleTree(d *MADAG, root NodeId, rng *rand.Rand) (*MADAG, error) {
	counts, err := ComputeWeightBelow(d, root, TreeCount{})
	if err != nil {
		return nil, err
	}
	return sampleTreeGeneric(d, root, rng, func(n *Node, clade []EdgeId) (EdgeId, error) {
		weights := make([]*bigWeight, len(clade))
		total := newBigWeight(0)
		for i, eid := range clade {
			w := counts[d.Edge(eid).Child]
			weights[i] = w
			total = total.Add(w)
		}
		if total.Sign() == 0 {
			return clade[rng.Intn(len(clade))], nil
		}
		target := total.RandBelow(rng)
		running := newBigWeight(0)
		for i, w := range weights {
			running = running.Add(w)
			if target.Less(running) {
				return clade[i], nil
			}
		}
		return clade[len(clade)-1], nil
	})
}

// TrimToMinWeight implements trim_to_min_weight: return a new DAG
// containing exactly the edges that participate in at least one
// minimum-weight tree.
func TrimToMinWeight[W any](d *MADAG, root NodeId, ops WeightOps[W]) (*MADAG, error) {
	memo, err := ComputeWeightBelow(d, root, ops)
	if err != nil {
		return nil, err
	}
	out := NewMADAG(d.Ref)
	resultId := map[NodeId]NodeId{d.UA: out.UA}
	visited := make(map[NodeId]bool)

	var walk func(NodeId) error
	walk = func(id NodeId) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		n := d.Node(id)
		myId := resultId[id]
		optima := optimaByClade(d, n, memo, ops)
		for ci, clade := range n.ChildClades {
			for _, idx := range optima[ci] {
				eid := clade[idx]
				e := d.Edge(eid)
				childId, seen := resultId[e.Child]
				if !seen {
					cn := d.Node(e.Child)
					childId = out.AddNode(cn.CG, cn.SampleId)
					resultId[e.Child] = childId
				}
				newEdgeId, err := out.AddEdge(myId, childId, ci)
				if err != nil {
					return err
				}
				out.SetMutations(newEdgeId, e.Mutations)
				if err := walk(e.Child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// MinWeightCount implements min_weight_count: combine weights using a
// lexicographic (Weight, count) pair so the DP simultaneously reports
// the optimum and how many optimum-achieving subtrees exist below
// each node.
func MinWeightCount[W any](d *MADAG, root NodeId, ops WeightOps[W]) (map[NodeId]Pair[W], error) {
	pairOps := pairOps[W]{inner: ops}
	return ComputeWeightBelow(d, root, pairOps)
}
