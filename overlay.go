package main

// Overlay is a copy-on-write view over a base MADAG (§4.4 C6): a node
// or edge is "pass-through" (read straight from base) until the first
// write promotes it into the overlay's own map. New nodes/edges get
// fresh ids above the base's arena, so the base is never touched.
//
// This generalizes the arena-index pattern dag.go already uses for
// MADAG itself; overlays_processing.go's own "overlay" is a routing
// concept (BGP path overlays checked for connectivity via
// basic_graph), not a copy-on-write data structure, so this type's
// mechanics are new rather than adapted teacher code — see DESIGN.md.
type Overlay struct {
	base *MADAG

	nodes map[NodeId]*Node
	edges map[EdgeId]*Edge

	nextNodeId NodeId
	nextEdgeId EdgeId
}

// NewOverlay wraps base; base is never mutated through the returned
// Overlay.
func NewOverlay(base *MADAG) *Overlay {
	return &Overlay{
		base:       base,
		nodes:      make(map[NodeId]*Node),
		edges:      make(map[EdgeId]*Edge),
		nextNodeId: NodeId(len(base.Nodes)),
		nextEdgeId: EdgeId(len(base.Edges)),
	}
}

// UA returns the overlay's root sentinel (shared with base; the UA
// itself is never reassigned by an SPR move).
func (o *Overlay) UA() NodeId { return o.base.UA }

// Node returns the overlay's current view of id: the overridden copy
// if one exists, else the base's node.
func (o *Overlay) Node(id NodeId) *Node {
	if n, ok := o.nodes[id]; ok {
		return n
	}
	return o.base.Node(id)
}

// Edge is the edge analogue of Node.
func (o *Overlay) Edge(id EdgeId) *Edge {
	if e, ok := o.edges[id]; ok {
		return e
	}
	return o.base.Edge(id)
}

// promoteNode clones the current view of id into the overlay's own
// map (a no-op if already promoted), auto-promoting on first write.
func (o *Overlay) promoteNode(id NodeId) *Node {
	if n, ok := o.nodes[id]; ok {
		return n
	}
	src := o.Node(id)
	cp := &Node{Id: src.Id, CG: src.CG, SampleId: src.SampleId}
	cp.ParentEdges = append([]EdgeId(nil), src.ParentEdges...)
	cp.ChildClades = make([][]EdgeId, len(src.ChildClades))
	for i, c := range src.ChildClades {
		cp.ChildClades[i] = append([]EdgeId(nil), c...)
	}
	o.nodes[id] = cp
	return cp
}

func (o *Overlay) promoteEdge(id EdgeId) *Edge {
	if e, ok := o.edges[id]; ok {
		return e
	}
	cp := *o.Edge(id)
	o.edges[id] = &cp
	return &cp
}

// SetCG overlays a node's compact genome.
func (o *Overlay) SetCG(id NodeId, cg *CompactGenome) { o.promoteNode(id).CG = cg }

// SetSampleId overlays a node's sample id.
func (o *Overlay) SetSampleId(id NodeId, s *string) { o.promoteNode(id).SampleId = s }

// RemoveEdgeFromClade drops edgeId out of node id's cladeIdx clade,
// auto-promoting the node.
func (o *Overlay) RemoveEdgeFromClade(id NodeId, cladeIdx int, edgeId EdgeId) {
	n := o.promoteNode(id)
	clade := n.ChildClades[cladeIdx]
	out := clade[:0]
	for _, e := range clade {
		if e != edgeId {
			out = append(out, e)
		}
	}
	n.ChildClades[cladeIdx] = out
}

// RemoveParentEdge drops edgeId out of node id's ParentEdges,
// auto-promoting the node. Detaching an edge always means dropping it
// from both endpoints: the parent's clade (RemoveEdgeFromClade) and
// the child's ParentEdges (this), otherwise the child is left pointing
// at an edge no longer wired into its former parent's adjacency.
func (o *Overlay) RemoveParentEdge(id NodeId, edgeId EdgeId) {
	n := o.promoteNode(id)
	out := n.ParentEdges[:0]
	for _, e := range n.ParentEdges {
		if e != edgeId {
			out = append(out, e)
		}
	}
	n.ParentEdges = out
}

// AppendNode adds a brand-new node in the overlay-only id space.
func (o *Overlay) AppendNode(cg *CompactGenome, sampleId *string) NodeId {
	id := o.nextNodeId
	o.nextNodeId++
	o.nodes[id] = &Node{Id: id, CG: cg, SampleId: sampleId}
	return id
}

// AppendEdge adds a brand-new edge in the overlay-only id space,
// wiring it into both endpoints' adjacency (auto-promoting them).
func (o *Overlay) AppendEdge(parent, child NodeId, cladeIdx int) EdgeId {
	id := o.nextEdgeId
	o.nextEdgeId++
	o.edges[id] = &Edge{Id: id, Parent: parent, Child: child, CladeIdx: cladeIdx}

	pn := o.promoteNode(parent)
	for len(pn.ChildClades) <= cladeIdx {
		pn.ChildClades = append(pn.ChildClades, nil)
	}
	pn.ChildClades[cladeIdx] = append(pn.ChildClades[cladeIdx], id)

	cn := o.promoteNode(child)
	cn.ParentEdges = append(cn.ParentEdges, id)
	return id
}

// SetEdgeMutations overlays an edge's mutation set.
func (o *Overlay) SetEdgeMutations(id EdgeId, m EdgeMutations) { o.promoteEdge(id).Mutations = m }

// Materialize flattens the overlay into a standalone *MADAG: every id
// in [0, nextId) resolves through the overlay's pass-through rule and
// is copied into a fresh arena. The base is untouched and the overlay
// remains usable afterward.
func (o *Overlay) Materialize() *MADAG {
	d := &MADAG{Ref: o.base.Ref, UA: o.base.UA}
	d.Nodes = make([]*Node, int(o.nextNodeId))
	for i := range d.Nodes {
		src := o.Node(NodeId(i))
		cp := *src
		cp.ParentEdges = append([]EdgeId(nil), src.ParentEdges...)
		cp.ChildClades = make([][]EdgeId, len(src.ChildClades))
		for j, c := range src.ChildClades {
			cp.ChildClades[j] = append([]EdgeId(nil), c...)
		}
		d.Nodes[i] = &cp
	}
	d.Edges = make([]*Edge, int(o.nextEdgeId))
	for i := range d.Edges {
		cp := *o.Edge(EdgeId(i))
		d.Edges[i] = &cp
	}
	return d
}
