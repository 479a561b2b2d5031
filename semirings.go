package main

import (
	"math/big"
	"math/rand"
)

// bigWeight wraps math/big.Int so TreeCount (the number of distinct
// trees folded into a DAG can exceed any fixed-width integer on real
// inputs) and min_weight_count's secondary count can share one
// arbitrary-precision arithmetic type without leaking *big.Int
// mutability into the WeightOps contract.
type bigWeight struct{ v *big.Int }

func newBigWeight(n int64) *bigWeight { return &bigWeight{v: big.NewInt(n)} }

func (w *bigWeight) Add(other *bigWeight) *bigWeight {
	return &bigWeight{v: new(big.Int).Add(w.v, other.v)}
}

func (w *bigWeight) Mul(other *bigWeight) *bigWeight {
	return &bigWeight{v: new(big.Int).Mul(w.v, other.v)}
}

func (w *bigWeight) Less(other *bigWeight) bool { return w.v.Cmp(other.v) < 0 }
func (w *bigWeight) Equal(other *bigWeight) bool { return w.v.Cmp(other.v) == 0 }
func (w *bigWeight) Sign() int                   { return w.v.Sign() }
func (w *bigWeight) String() string              { return w.v.String() }

// RandBelow returns a uniform pseudo-random value in [0, w).
func (w *bigWeight) RandBelow(rng *rand.Rand) *bigWeight {
	return &bigWeight{v: new(big.Int).Rand(rng, w.v)}
}

// ParsimonyScore is the classic Fitch/Sankoff-count semiring: Weight
// is the total number of mutations on the sampled tree. Within a
// clade the cheapest edge wins; between clades, across the node,
// costs add.
type ParsimonyScore struct{}

func (ParsimonyScore) ComputeLeaf(n *Node) int { return 0 }
func (ParsimonyScore) ComputeEdge(e *Edge) int { return e.Mutations.Len() }

func (ParsimonyScore) WithinCladeAccumOptimum(weights []int) (int, []int) {
	best := weights[0]
	for _, w := range weights[1:] {
		if w < best {
			best = w
		}
	}
	var idxs []int
	for i, w := range weights {
		if w == best {
			idxs = append(idxs, i)
		}
	}
	return best, idxs
}

func (ParsimonyScore) BetweenClades(clades []int) int {
	total := 0
	for _, c := range clades {
		total += c
	}
	return total
}

func (ParsimonyScore) AboveNode(edgeWeight, childWeight int) int { return edgeWeight + childWeight }
func (ParsimonyScore) Less(a, b int) bool                        { return a < b }

// BinaryParsimonyScore counts mutated edges rather than mutated sites:
// an edge contributes 1 if it carries any mutation at all, 0
// otherwise. Used when comparing topologies without weighting by how
// many sites happened to change on one branch.
type BinaryParsimonyScore struct{}

func (BinaryParsimonyScore) ComputeLeaf(n *Node) int { return 0 }
func (BinaryParsimonyScore) ComputeEdge(e *Edge) int {
	if e.Mutations.Len() > 0 {
		return 1
	}
	return 0
}

func (BinaryParsimonyScore) WithinCladeAccumOptimum(weights []int) (int, []int) {
	return ParsimonyScore{}.WithinCladeAccumOptimum(weights)
}
func (BinaryParsimonyScore) BetweenClades(clades []int) int { return ParsimonyScore{}.BetweenClades(clades) }
func (BinaryParsimonyScore) AboveNode(edgeWeight, childWeight int) int {
	return edgeWeight + childWeight
}
func (BinaryParsimonyScore) Less(a, b int) bool { return a < b }

// TreeCount counts the number of distinct embedded trees below a
// node: one leaf is one tree, a clade's count is the sum of its
// candidate edges' subtree counts (any of them may be chosen), and a
// node's count is the product across its clades (independent
// choices combine multiplicatively).
type TreeCount struct{}

func (TreeCount) ComputeLeaf(n *Node) *bigWeight { return newBigWeight(1) }
func (TreeCount) ComputeEdge(e *Edge) *bigWeight { return newBigWeight(1) }

func (TreeCount) WithinCladeAccumOptimum(weights []*bigWeight) (*bigWeight, []int) {
	total := newBigWeight(0)
	idxs := make([]int, len(weights))
	for i, w := range weights {
		total = total.Add(w)
		idxs[i] = i
	}
	return total, idxs
}

func (TreeCount) BetweenClades(clades []*bigWeight) *bigWeight {
	total := newBigWeight(1)
	for _, c := range clades {
		total = total.Mul(c)
	}
	return total
}

func (TreeCount) AboveNode(edgeWeight, childWeight *bigWeight) *bigWeight {
	return edgeWeight.Mul(childWeight)
}

func (TreeCount) Less(a, b *bigWeight) bool { return a.Less(b) }

// WeightAccumulator lets a caller assemble an ad hoc WeightOps[W] from
// plain functions instead of declaring a named type, for one-off
// weight functions that don't warrant their own semiring (e.g. a
// scratch weighting used by a single optimization run).
type WeightAccumulator[W any] struct {
	Leaf          func(*Node) W
	Edge          func(*Edge) W
	WithinOptimum func([]W) (W, []int)
	Between       func([]W) W
	Above         func(edgeWeight, childWeight W) W
	LessFn        func(a, b W) bool
}

func (w WeightAccumulator[W]) ComputeLeaf(n *Node) W { return w.Leaf(n) }
func (w WeightAccumulator[W]) ComputeEdge(e *Edge) W { return w.Edge(e) }
func (w WeightAccumulator[W]) WithinCladeAccumOptimum(weights []W) (W, []int) {
	return w.WithinOptimum(weights)
}
func (w WeightAccumulator[W]) BetweenClades(clades []W) W           { return w.Between(clades) }
func (w WeightAccumulator[W]) AboveNode(edgeWeight, childWeight W) W { return w.Above(edgeWeight, childWeight) }
func (w WeightAccumulator[W]) Less(a, b W) bool                     { return w.LessFn(a, b) }

// Pair combines an inner semiring's weight with a tree count, so
// MinWeightCount can report both the optimum and how many
// optimum-achieving subtrees produce it in a single DP pass.
type Pair[W any] struct {
	Weight W
	Count  *bigWeight
}

type pairOps[W any] struct{ inner WeightOps[W] }

func (p pairOps[W]) ComputeLeaf(n *Node) Pair[W] {
	return Pair[W]{Weight: p.inner.ComputeLeaf(n), Count: newBigWeight(1)}
}

func (p pairOps[W]) ComputeEdge(e *Edge) Pair[W] {
	return Pair[W]{Weight: p.inner.ComputeEdge(e), Count: newBigWeight(1)}
}

func (p pairOps[W]) WithinCladeAccumOptimum(weights []Pair[W]) (Pair[W], []int) {
	plain := make([]W, len(weights))
	for i, w := range weights {
		plain[i] = w.Weight
	}
	best, idxs := p.inner.WithinCladeAccumOptimum(plain)
	count := newBigWeight(0)
	for _, i := range idxs {
		count = count.Add(weights[i].Count)
	}
	return Pair[W]{Weight: best, Count: count}, idxs
}

func (p pairOps[W]) BetweenClades(clades []Pair[W]) Pair[W] {
	plain := make([]W, len(clades))
	count := newBigWeight(1)
	for i, c := range clades {
		plain[i] = c.Weight
		count = count.Mul(c.Count)
	}
	return Pair[W]{Weight: p.inner.BetweenClades(plain), Count: count}
}

func (p pairOps[W]) AboveNode(edgeWeight, childWeight Pair[W]) Pair[W] {
	return Pair[W]{Weight: p.inner.AboveNode(edgeWeight.Weight, childWeight.Weight), Count: childWeight.Count}
}

func (p pairOps[W]) Less(a, b Pair[W]) bool {
	if p.inner.Less(a.Weight, b.Weight) {
		return true
	}
	if p.inner.Less(b.Weight, a.Weight) {
		return false
	}
	return a.Count.Less(b.Count)
}

// sankoffStateCount is the number of unambiguous bases the Sankoff DP
// tracks a cost for at each variable site.
const sankoffStateCount = 4

var sankoffBases = [sankoffStateCount]Base{BaseA, BaseC, BaseG, BaseT}

func sankoffStateIndex(b Base) int {
	for i, sb := range sankoffBases {
		if b == sb {
			return i
		}
	}
	return -1
}

// SankoffCostMatrix is a symmetric substitution cost table indexed by
// sankoffStateIndex; DefaultSankoffCost charges 1 for any change, 0
// for staying put (equivalent to ParsimonyScore generalized to
// ambiguous leaves).
type SankoffCostMatrix [sankoffStateCount][sankoffStateCount]int

var DefaultSankoffCost = func() SankoffCostMatrix {
	var m SankoffCostMatrix
	for i := 0; i < sankoffStateCount; i++ {
		for j := 0; j < sankoffStateCount; j++ {
			if i != j {
				m[i][j] = 1
			}
		}
	}
	return m
}()

// SankoffVector holds, per tracked variable site, the minimum cost of
// the subtree below a node given that the node is fixed to each of
// the four unambiguous states at that site.
type SankoffVector map[MutationPosition][sankoffStateCount]int

// SankoffWeightOps implements the generalized Sankoff algorithm
// (§4.3's semiring generalization) over a fixed, caller-supplied set
// of variable sites, with a substitution cost matrix instead of a
// flat per-mutation count; this is what ParsimonyScore approximates
// when every base is fully resolved.
type SankoffWeightOps struct {
	Ref   *Reference
	Cost  SankoffCostMatrix
	Sites []MutationPosition
}

func (s SankoffWeightOps) siteCostsAt(cg *CompactGenome, pos MutationPosition) [sankoffStateCount]int {
	var out [sankoffStateCount]int
	observed := cg.resolvedAt(pos, s.Ref)
	for i, state := range sankoffBases {
		if observed.CompatibleWith(state) {
			out[i] = 0
		} else {
			out[i] = 1 << 20 // effectively infinite: incompatible fixed leaf state
		}
	}
	return out
}

func (s SankoffWeightOps) ComputeLeaf(n *Node) SankoffVector {
	v := make(SankoffVector, len(s.Sites))
	for _, pos := range s.Sites {
		v[pos] = s.siteCostsAt(n.CG, pos)
	}
	return v
}

func (s SankoffWeightOps) ComputeEdge(e *Edge) SankoffVector { return nil }

func (s SankoffWeightOps) WithinCladeAccumOptimum(weights []SankoffVector) (SankoffVector, []int) {
	if len(weights) == 0 {
		return SankoffVector{}, nil
	}
	out := make(SankoffVector, len(s.Sites))
	for _, pos := range s.Sites {
		var best [sankoffStateCount]int
		for st := 0; st < sankoffStateCount; st++ {
			min := weights[0][pos][st]
			for _, w := range weights[1:] {
				if w[pos][st] < min {
					min = w[pos][st]
				}
			}
			best[st] = min
		}
		out[pos] = best
	}
	// Candidate-edge selection (which index achieves the clade
	// optimum) is evaluated per site by the caller via AboveNode sums;
	// report every index as a candidate since optimality is site-local,
	// not uniform across the whole vector.
	idxs := make([]int, len(weights))
	for i := range weights {
		idxs[i] = i
	}
	return out, idxs
}

func (s SankoffWeightOps) BetweenClades(clades []SankoffVector) SankoffVector {
	out := make(SankoffVector, len(s.Sites))
	for _, pos := range s.Sites {
		var sum [sankoffStateCount]int
		for _, c := range clades {
			v := c[pos]
			for st := 0; st < sankoffStateCount; st++ {
				sum[st] += v[st]
			}
		}
		out[pos] = sum
	}
	return out
}

func (s SankoffWeightOps) AboveNode(edgeWeight, childWeight SankoffVector) SankoffVector {
	out := make(SankoffVector, len(s.Sites))
	for _, pos := range s.Sites {
		child := childWeight[pos]
		var above [sankoffStateCount]int
		for parentState := 0; parentState < sankoffStateCount; parentState++ {
			min := -1
			for childState := 0; childState < sankoffStateCount; childState++ {
				cost := s.Cost[parentState][childState] + child[childState]
				if min == -1 || cost < min {
					min = cost
				}
			}
			above[parentState] = min
		}
		out[pos] = above
	}
	return out
}

func (s SankoffWeightOps) Less(a, b SankoffVector) bool {
	var sa, sb int
	for _, pos := range s.Sites {
		for st := 0; st < sankoffStateCount; st++ {
			sa += a[pos][st]
			sb += b[pos][st]
		}
	}
	return sa < sb
}

// TotalCost sums the best per-site cost at the root vector (minimum
// over root states), giving the overall Sankoff parsimony score.
func (s SankoffWeightOps) TotalCost(root SankoffVector) int {
	total := 0
	for _, pos := range s.Sites {
		v := root[pos]
		min := v[0]
		for _, c := range v[1:] {
			if c < min {
				min = c
			}
		}
		total += min
	}
	return total
}

// Reconstruct implements the top-down half of §4.3's generalized
// Sankoff algorithm: given the bottom-up cost vectors already computed
// by ComputeWeightBelow(d, root, s), walk from root down assigning
// every node a concrete resolved base per tracked site. root picks
// whichever state achieves its own minimum (lowest state index breaks
// a tie, since root has no parent to prefer); every other node picks
// the state minimizing its transition cost from its parent's chosen
// base, preferring the parent's own base among ties so ancestral
// reconstructions stay maximally stable down the tree.
func (s SankoffWeightOps) Reconstruct(d *MADAG, root NodeId, below map[NodeId]SankoffVector) map[NodeId]map[MutationPosition]Base {
	resolved := make(map[NodeId]map[MutationPosition]Base, len(below))

	rootStates := make(map[MutationPosition]Base, len(s.Sites))
	rootVec := below[root]
	for _, pos := range s.Sites {
		v := rootVec[pos]
		bestCost, bestState := v[0], 0
		for st := 1; st < sankoffStateCount; st++ {
			if v[st] < bestCost {
				bestCost, bestState = v[st], st
			}
		}
		rootStates[pos] = sankoffBases[bestState]
	}
	resolved[root] = rootStates

	d.PreOrder(root, func(n *Node) bool {
		parentStates := resolved[n.Id]
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				child := d.Edge(eid).Child
				if _, done := resolved[child]; done {
					continue
				}
				childVec := below[child]
				childStates := make(map[MutationPosition]Base, len(s.Sites))
				for _, pos := range s.Sites {
					parentState := sankoffStateIndex(parentStates[pos])
					v := childVec[pos]
					bestCost, bestState := -1, 0
					for st := 0; st < sankoffStateCount; st++ {
						cost := s.Cost[parentState][st] + v[st]
						if bestCost == -1 || cost < bestCost {
							bestCost, bestState = cost, st
						}
					}
					if s.Cost[parentState][parentState]+v[parentState] == bestCost {
						bestState = parentState
					}
					childStates[pos] = sankoffBases[bestState]
				}
				resolved[child] = childStates
			}
		}
		return true
	})
	return resolved
}

// SankoffReconstructAncestors runs the bottom-up Sankoff DP and its
// top-down traceback together, returning the resolved base assigned to
// every node at every tracked variable site.
func SankoffReconstructAncestors(d *MADAG, root NodeId, s SankoffWeightOps) (map[NodeId]map[MutationPosition]Base, error) {
	below, err := ComputeWeightBelow(d, root, s)
	if err != nil {
		return nil, err
	}
	return s.Reconstruct(d, root, below), nil
}

// SankoffVariableSites collects every position where some node's
// edge mutations touch the site, the caller-supplied set
// SankoffWeightOps.Sites is normally built from.
func SankoffVariableSites(d *MADAG) []MutationPosition {
	seen := make(map[MutationPosition]struct{})
	for _, e := range d.Edges {
		for _, mu := range e.Mutations.Entries() {
			seen[mu.Pos] = struct{}{}
		}
	}
	out := make([]MutationPosition, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	return out
}
