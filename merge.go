package main

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

const mergeShardCount = 64

// pendingNode is everything the connection phase needs to materialize
// one result node, collected (possibly concurrently) during the
// node-assignment phase.
type pendingNode struct {
	label NodeLabel
}

// edgeLabel is the canonical identity of a result edge: which result
// nodes it connects and in which of the parent's clades.
type edgeLabel struct {
	parent   NodeId
	child    NodeId
	cladeIdx int
}

type pendingEdge struct {
	label edgeLabel
}

type nodeShard struct {
	mu      sync.Mutex
	buckets map[nodeLabelKey]NodeId
}

type edgeShard struct {
	mu      sync.Mutex
	buckets map[edgeLabel]EdgeId
}

// Merge is the accumulator of §4.2: repeated calls to AddMany grow one
// result DAG without rebuilding, deduplicating nodes/edges by label.
type Merge struct {
	ref *Reference

	nodeShards [mergeShardCount]*nodeShard
	edgeShards [mergeShardCount]*edgeShard
	nextNodeId uint32
	nextEdgeId uint32

	// writeMu is the single writer lock guarding pendingNodes/
	// pendingEdges growth and the final adjacency rebuild (§5:
	// "the merge accumulator's adjacency-rebuild phase (single
	// writer)").
	writeMu      sync.Mutex
	pendingNodes []*pendingNode
	pendingEdges []*pendingEdge

	db *mergeStateDB // optional incremental-merge checkpoint, may be nil
}

// NewMerge creates an empty accumulator over ref, with the UA node
// pre-registered at id 0.
func NewMerge(ref *Reference) *Merge {
	m := &Merge{ref: ref}
	for i := range m.nodeShards {
		m.nodeShards[i] = &nodeShard{buckets: make(map[nodeLabelKey]NodeId)}
	}
	for i := range m.edgeShards {
		m.edgeShards[i] = &edgeShard{buckets: make(map[edgeLabel]EdgeId)}
	}
	m.pendingNodes = append(m.pendingNodes, &pendingNode{label: NodeLabel{CG: emptyCG, LS: nil}})
	m.nextNodeId = 1
	return m
}

func shardIndex(h uint64) uint64 { return h % mergeShardCount }

func labelHash(l NodeLabel) uint64 {
	if l.SampleId != nil {
		return fnvString(*l.SampleId) ^ l.LS.Hash()
	}
	return l.CG.Hash() ^ l.LS.Hash()*31
}

// internNode returns the result NodeId for label, assigning a fresh
// one if this label has not been seen before. This is the
// node-assignment phase (§4.2 step 3): concurrent insertion is
// serialized by per-bucket locks, and the winner gets the next node
// id from the atomic counter.
func (m *Merge) internNode(label NodeLabel) NodeId {
	key := label.key()
	shard := m.nodeShards[shardIndex(labelHash(label))]

	shard.mu.Lock()
	if id, ok := shard.buckets[key]; ok {
		shard.mu.Unlock()
		return id
	}
	id := NodeId(atomic.AddUint32(&m.nextNodeId, 1) - 1)
	shard.buckets[key] = id
	shard.mu.Unlock()

	m.writeMu.Lock()
	for len(m.pendingNodes) <= int(id) {
		m.pendingNodes = append(m.pendingNodes, nil)
	}
	m.pendingNodes[id] = &pendingNode{label: label}
	m.writeMu.Unlock()
	return id
}

// internEdge returns the result EdgeId for label, assigning a fresh
// one if unseen (§4.2 step 4).
func (m *Merge) internEdge(label edgeLabel) EdgeId {
	h := uint64(label.parent)*1000003 + uint64(label.child)*97 + uint64(label.cladeIdx)
	shard := m.edgeShards[shardIndex(h)]

	shard.mu.Lock()
	if id, ok := shard.buckets[label]; ok {
		shard.mu.Unlock()
		return id
	}
	id := EdgeId(atomic.AddUint32(&m.nextEdgeId, 1) - 1)
	shard.buckets[label] = id
	shard.mu.Unlock()

	m.writeMu.Lock()
	for len(m.pendingEdges) <= int(id) {
		m.pendingEdges = append(m.pendingEdges, nil)
	}
	m.pendingEdges[id] = &pendingEdge{label: label}
	m.writeMu.Unlock()
	return id
}

// AddMany adds every input DAG to the accumulator using nThreads
// worker goroutines per phase (the teacher's own
// pool.Launch_pool(nThreads, ...) batching idiom, via pool_adapt.go).
// Already-interned labels map to existing node/edge ids; unseen labels
// get fresh ones, so repeated calls implement incremental merge
// without rebuilding anything already committed.
func (m *Merge) AddMany(dags []*MADAG, nThreads int) error {
	if nThreads <= 0 {
		nThreads = 1
	}
	roots := make([]NodeId, len(dags))
	leafSets := make([]map[NodeId]*LeafSet, len(dags))

	for _, dag := range dags {
		if !m.ref.Equal(dag.Ref) {
			return newErr(ErrRefMismatch, "input DAG reference does not match accumulator reference")
		}
	}

	// Phase 1: parallel compact-genome derivation.
	var phase1Err error
	var phase1Mu sync.Mutex
	parallelOverIndices(nThreads, len(dags), func(i int) {
		dag := dags[i]
		root, err := dag.Root()
		if err != nil {
			phase1Mu.Lock()
			phase1Err = err
			phase1Mu.Unlock()
			return
		}
		roots[i] = root
		if dag.Node(root).CG == nil {
			dag.Node(root).CG = emptyCG
		}
		dag.ComputeCompactGenomes(root)
	})
	if phase1Err != nil {
		return phase1Err
	}

	// Phase 2: parallel leaf-set derivation.
	var phase2Err error
	parallelOverIndices(nThreads, len(dags), func(i int) {
		dag := dags[i]
		for _, leaf := range dag.Leaves() {
			if dag.Node(leaf).SampleId == nil {
				phase2Mu.Lock()
				if phase2Err == nil {
					phase2Err = newErr(ErrMissingSampleId, fmt.Sprintf("leaf node %d has no sample id", leaf))
				}
				phase2Mu.Unlock()
				return
			}
		}
		leafSets[i] = dag.ComputeLeafSets(roots[i])
	})
	if phase2Err != nil {
		return phase2Err
	}

	// Phase 3: node assignment. UA nodes of every input map directly
	// onto the shared result UAId (§4.2: "The result's UA node has...
	// LS = [union-of-all-leaves]"); every other node goes through
	// label interning, intern CG/LS/SampleId first so map keys compare
	// by pointer.
	resultNodeId := make([]map[NodeId]NodeId, len(dags))
	parallelOverIndices(nThreads, len(dags), func(i int) {
		dag := dags[i]
		mapping := make(map[NodeId]NodeId, len(dag.Nodes))
		mapping[dag.UA] = m.result_UA()
		for _, n := range dag.Nodes {
			if n.Id == dag.UA {
				continue
			}
			cg := globalCGTable.Intern(n.CG)
			ls := leafSets[i][n.Id]
			var sample *string
			if n.SampleId != nil {
				sample = globalSampleTable.Intern(*n.SampleId)
			}
			label := NodeLabel{CG: cg, LS: ls, SampleId: sample}
			mapping[n.Id] = m.internNode(label)
		}
		resultNodeId[i] = mapping
	})

	// Phase 4: parallel edge assignment, flattened across all inputs.
	// Walked via ReachableEdges rather than dag.Edges directly: an input
	// DAG's arena can carry edge ids no longer wired into any node's
	// adjacency (e.g. a just-applied SPR move's detached parent edge),
	// and those must not be folded into the merge result as if they
	// were still live structure.
	type edgeRef struct {
		dagIdx int
		edge   *Edge
	}
	var flat []edgeRef
	for i, dag := range dags {
		for _, e := range dag.ReachableEdges() {
			flat = append(flat, edgeRef{dagIdx: i, edge: e})
		}
	}
	parallelOverIndices(nThreads, len(flat), func(i int) {
		ref := flat[i]
		dag := dags[ref.dagIdx]
		mapping := resultNodeId[ref.dagIdx]
		parentRes, childRes := mapping[ref.edge.Parent], mapping[ref.edge.Child]

		cladeIdx := 0
		if dag.Node(ref.edge.Parent).Id != dag.UA {
			cladeIdx = m.deriveCladeIdx(parentRes, childRes)
		}
		m.internEdge(edgeLabel{parent: parentRes, child: childRes, cladeIdx: cladeIdx})
	})

	return nil
}

var phase2Mu sync.Mutex

// result_UA returns the accumulator's fixed UA node id.
func (m *Merge) result_UA() NodeId { return UAId }

// deriveCladeIdx assigns a canonical clade index by the resolved
// leaf-set content of parent/child, not by any input-local index: two
// different input trees may number the same parent's clades
// differently, but the sorted LeafSet clade position is stable once a
// node is interned. Children that happen to cover the exact same leaf
// set under one parent collide onto the same clade index, which is
// the accepted limit of this simplified derivation.
func (m *Merge) deriveCladeIdx(parent, child NodeId) int {
	pnode := m.pendingNodes[parent]
	cnode := m.pendingNodes[child]
	if pnode.label.LS == nil || cnode.label.LS == nil {
		return 0
	}
	childLeaves := append([]string(nil), cnode.label.LS.Leaves()...)
	sort.Strings(childLeaves)
	for idx, clade := range pnode.label.LS.Clades {
		if stringsEqual(clade, childLeaves) {
			return idx
		}
	}
	return 0
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Result materializes the accumulator's current state into a
// standalone *MADAG. This is the "adjacency rebuild" the single writer
// lock protects (§5): it runs serially over the committed pending
// tables.
func (m *Merge) Result() (*MADAG, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	d := NewMADAG(m.ref)
	// NewMADAG already allocated UA at id 0; grow to match nextNodeId.
	for id := 1; id < len(m.pendingNodes); id++ {
		pn := m.pendingNodes[id]
		if pn == nil {
			return nil, newErr(ErrInvariantViolation, fmt.Sprintf("node id %d was never committed", id))
		}
		got := d.AddNode(pn.label.CG, pn.label.SampleId)
		if int(got) != id {
			return nil, newErr(ErrInvariantViolation, "node id allocation is not contiguous")
		}
	}

	for id := 0; id < len(m.pendingEdges); id++ {
		pe := m.pendingEdges[id]
		if pe == nil {
			return nil, newErr(ErrInvariantViolation, fmt.Sprintf("edge id %d was never committed", id))
		}
		eid, err := d.AddEdge(pe.label.parent, pe.label.child, pe.label.cladeIdx)
		if err != nil {
			return nil, err
		}
		if int(eid) != id {
			return nil, newErr(ErrInvariantViolation, "edge id allocation is not contiguous")
		}
	}

	if err := d.RecomputeEdgeMutations(); err != nil {
		return nil, err
	}
	return d, nil
}
