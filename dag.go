package main

import "fmt"

// NodeId and EdgeId are dense arena indices (Design Notes: "raw
// pointer graphs... become arena indices"). UAId is the dedicated
// sentinel for the universal-ancestor root, never allocated to
// another node.
type NodeId uint32
type EdgeId uint32

const UAId NodeId = 0
const noId = ^uint32(0)

// Node is one vertex of a MADAG: an ancestral-sequence hypothesis
// (possibly empty, meaning "identical to the reference"), plus the
// derived adjacency the rest of the system consumes.
type Node struct {
	Id          NodeId
	CG          *CompactGenome
	SampleId    *string // nil on internal nodes, required on leaves
	ParentEdges []EdgeId
	ChildClades [][]EdgeId // one entry per clade; edges within a clade share a child subtree's leaf set

	// CondensedIds holds the sample ids of other leaves CondenseLeaves
	// folded into this one (identical sibling compact genomes); nil on
	// every node that hasn't been condensed.
	CondensedIds []string
}

// IsLeaf reports whether the node has no outgoing edges and carries a
// sample id.
func (n *Node) IsLeaf() bool { return n.SampleId != nil && len(n.ChildClades) == 0 }

// Edge is one arc of a MADAG, belonging to exactly one of its
// parent's clades.
type Edge struct {
	Id        EdgeId
	Parent    NodeId
	Child     NodeId
	CladeIdx  int
	Mutations EdgeMutations
}

// MADAG is the arena of nodes and edges over one reference sequence.
// Values are move-only in spirit (exclusive ownership); callers that
// need a read-only view should hold a *MADAG, never copy the struct.
type MADAG struct {
	Ref   *Reference
	Nodes []*Node
	Edges []*Edge
	UA    NodeId
}

// NewMADAG creates an empty arena over ref, with the UA node already
// present (id 0, empty CG, no sample id, no clades yet).
func NewMADAG(ref *Reference) *MADAG {
	d := &MADAG{Ref: ref, UA: UAId}
	ua := &Node{Id: UAId, CG: emptyCG}
	d.Nodes = append(d.Nodes, ua)
	return d
}

// AddNode appends a new node and returns its id.
func (d *MADAG) AddNode(cg *CompactGenome, sampleId *string) NodeId {
	id := NodeId(len(d.Nodes))
	d.Nodes = append(d.Nodes, &Node{Id: id, CG: cg, SampleId: sampleId})
	return id
}

// AddEdge appends an edge from parent to child in clade slot
// cladeIdx, growing the parent's ChildClades/child's ParentEdges as
// needed. Mutations may be filled in later via SetMutations once
// endpoint CGs are known.
func (d *MADAG) AddEdge(parent, child NodeId, cladeIdx int) (EdgeId, error) {
	if int(parent) >= len(d.Nodes) || int(child) >= len(d.Nodes) {
		return 0, newErr(ErrInvariantViolation, "edge endpoint out of range")
	}
	id := EdgeId(len(d.Edges))
	e := &Edge{Id: id, Parent: parent, Child: child, CladeIdx: cladeIdx}
	d.Edges = append(d.Edges, e)

	pn := d.Nodes[parent]
	for len(pn.ChildClades) <= cladeIdx {
		pn.ChildClades = append(pn.ChildClades, nil)
	}
	pn.ChildClades[cladeIdx] = append(pn.ChildClades[cladeIdx], id)

	cn := d.Nodes[child]
	cn.ParentEdges = append(cn.ParentEdges, id)
	return id, nil
}

// SetMutations fills in an edge's mutation set, typically derived
// from its endpoint CGs via EdgeMutationsFromEndpoints.
func (d *MADAG) SetMutations(id EdgeId, m EdgeMutations) {
	d.Edges[id].Mutations = m
}

// Node/Edge are simple index lookups; panics here would indicate an
// internal bug (an out-of-range id constructed by this package's own
// code), not a recoverable user error, so no Error wrapping.
func (d *MADAG) Node(id NodeId) *Node { return d.Nodes[id] }
func (d *MADAG) Edge(id EdgeId) *Edge { return d.Edges[id] }

// Root returns the MADAG's single root: the UA's sole child. If the UA
// has no child yet it returns an ErrEmptyGraph error.
func (d *MADAG) Root() (NodeId, error) {
	ua := d.Node(d.UA)
	if len(ua.ChildClades) == 0 {
		return 0, newErr(ErrEmptyGraph, "DAG has no root")
	}
	if len(ua.ChildClades) != 1 {
		return 0, newErr(ErrInvariantViolation, "UA node must have exactly one clade")
	}
	clade := ua.ChildClades[0]
	if len(clade) == 0 {
		return 0, newErr(ErrEmptyGraph, "DAG has no root")
	}
	return d.Edge(clade[0]).Child, nil
}

// Leaves returns every leaf node id.
func (d *MADAG) Leaves() []NodeId {
	var out []NodeId
	for _, n := range d.Nodes {
		if n.IsLeaf() {
			out = append(out, n.Id)
		}
	}
	return out
}

// IsTree reports whether every non-UA node has exactly one parent
// edge (the "tree" special case of §3).
func (d *MADAG) IsTree() bool {
	for _, n := range d.Nodes {
		if n.Id == d.UA {
			continue
		}
		if len(n.ParentEdges) != 1 {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of §3 that are cheap to
// verify directly from adjacency (acyclicity and connectivity are
// checked separately by traversal.go's CheckAcyclic and
// completeness.go's CheckComplete, which require a full walk; the
// clade-union rule is not checked).
func (d *MADAG) Validate() error {
	for _, n := range d.Nodes {
		if n.Id != d.UA && len(n.ParentEdges) == 0 {
			return newErr(ErrInvariantViolation, fmt.Sprintf("node %d has no parent", n.Id))
		}
		if n.Id != d.UA && len(n.ChildClades) == 0 && n.SampleId == nil {
			return newErr(ErrMissingSampleId, fmt.Sprintf("leaf node %d has no sample id", n.Id))
		}
		if len(n.ChildClades) > 0 && n.SampleId != nil {
			return newErr(ErrInvariantViolation, fmt.Sprintf("node %d carries a sample id but has children", n.Id))
		}
	}
	for _, e := range d.Edges {
		pn, cn := d.Node(e.Parent), d.Node(e.Child)
		expected, err := EdgeMutationsFromEndpoints(pn.CG, cn.CG, d.Ref)
		if err != nil {
			return err
		}
		if !edgeMutationsEqual(expected, e.Mutations) {
			return newErr(ErrInvariantViolation, fmt.Sprintf("edge %d mutations inconsistent with endpoint CGs", e.Id))
		}
	}
	return nil
}

func edgeMutationsEqual(a, b EdgeMutations) bool {
	if len(a.entries) != len(b.entries) {
		return false
	}
	for i := range a.entries {
		if a.entries[i] != b.entries[i] {
			return false
		}
	}
	return true
}
