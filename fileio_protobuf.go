package main

import (
	"os"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Legacy protobuf DAG/tree formats (§6): read with hand-written
// protowire primitives rather than generated code, since this repo's
// only protobuf need is reading files a prior C++ version wrote and
// writing semantically equivalent ones back (spec.md: "not specified
// bit-exactly here"). Field numbers below reconstruct the layout
// implied by the original's StoreDAGToProtobuf/StoreTreeToProtobuf
// (dag_loader_impl.hpp) field-setter order; they are internally
// consistent for this package's own round trip, not guaranteed to
// match an externally produced .proto wire layout byte-for-byte. See
// DESIGN.md.
//
// ProtoDAG.data:   reference_seq=1 string, node_names=2 repeated Node,
//                  edges=3 repeated Edge
// ProtoDAG.Node:   node_id=1 int64, condensed_leaves=2 repeated string
// ProtoDAG.Edge:   edge_id=1 int64, parent_node=2 int64, child_node=3
//                  int64, parent_clade=4 int64, edge_mutations=5
//                  repeated Mutation
// ProtoDAG.Mutation: position=1 int32, par_nuc=2 int32, mut_nuc=3
//                  repeated int32
//
// Parsimony.data:  newick=1 string, node_mutations=2 repeated NodeMuts
// Parsimony.NodeMuts: mutation=1 repeated Mutation
// Parsimony.Mutation: position=1 int32, ref_nuc=2 int32, par_nuc=3
//                  int32, mut_nuc=4 repeated int32, chromosome=5 string

func pbBaseCode(b Base) (uint64, error) {
	switch b {
	case BaseA:
		return 0, nil
	case BaseC:
		return 1, nil
	case BaseG:
		return 2, nil
	case BaseT:
		return 3, nil
	default:
		return 0, newErr(ErrInputFormat, "protobuf formats cannot encode an ambiguous base")
	}
}

func pbBaseFromCode(code uint64) (Base, error) {
	switch code {
	case 0:
		return BaseA, nil
	case 1:
		return BaseC, nil
	case 2:
		return BaseG, nil
	case 3:
		return BaseT, nil
	default:
		return 0, newErr(ErrInputFormat, "invalid protobuf base code")
	}
}

// pbField is one decoded top-level field of a protobuf message: Raw
// holds the varint value for VarintType fields, or the inner bytes for
// BytesType (string/sub-message) fields.
type pbField struct {
	Num protowire.Number
	Typ protowire.Type
	Raw uint64
	Buf []byte
}

func pbParseFields(b []byte) ([]pbField, error) {
	var fields []pbField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, newErr(ErrInputFormat, "malformed protobuf tag")
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n2 := protowire.ConsumeVarint(b)
			if n2 < 0 {
				return nil, newErr(ErrInputFormat, "malformed protobuf varint field")
			}
			b = b[n2:]
			fields = append(fields, pbField{Num: num, Typ: typ, Raw: v})
		case protowire.BytesType:
			v, n2 := protowire.ConsumeBytes(b)
			if n2 < 0 {
				return nil, newErr(ErrInputFormat, "malformed protobuf length-delimited field")
			}
			b = b[n2:]
			fields = append(fields, pbField{Num: num, Typ: typ, Buf: v})
		case protowire.Fixed32Type:
			_, n2 := protowire.ConsumeFixed32(b)
			if n2 < 0 {
				return nil, newErr(ErrInputFormat, "malformed protobuf fixed32 field")
			}
			b = b[n2:]
		case protowire.Fixed64Type:
			_, n2 := protowire.ConsumeFixed64(b)
			if n2 < 0 {
				return nil, newErr(ErrInputFormat, "malformed protobuf fixed64 field")
			}
			b = b[n2:]
		default:
			return nil, newErr(ErrInputFormat, "unsupported protobuf wire type")
		}
	}
	return fields, nil
}

func appendPBString(buf []byte, num protowire.Number, s string) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

func appendPBVarint(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendPBMessage(buf []byte, num protowire.Number, msg []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, msg)
}

func encodeProtoMutation(pos MutationPosition, par, mut Base) ([]byte, error) {
	parCode, err := pbBaseCode(par)
	if err != nil {
		return nil, err
	}
	mutCode, err := pbBaseCode(mut)
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf = appendPBVarint(buf, 1, uint64(pos))
	buf = appendPBVarint(buf, 2, parCode)
	buf = appendPBVarint(buf, 3, mutCode)
	return buf, nil
}

func encodeProtoEdge(e *Edge) ([]byte, error) {
	var buf []byte
	buf = appendPBVarint(buf, 1, uint64(e.Id))
	buf = appendPBVarint(buf, 2, uint64(e.Parent))
	buf = appendPBVarint(buf, 3, uint64(e.Child))
	buf = appendPBVarint(buf, 4, uint64(e.CladeIdx))
	for _, m := range e.Mutations.Entries() {
		mm, err := encodeProtoMutation(m.Pos, m.ParentBase, m.ChildBase)
		if err != nil {
			return nil, err
		}
		buf = appendPBMessage(buf, 5, mm)
	}
	return buf, nil
}

func encodeProtoNode(n *Node) []byte {
	var buf []byte
	buf = appendPBVarint(buf, 1, uint64(n.Id))
	if n.IsLeaf() {
		buf = appendPBString(buf, 2, *n.SampleId)
	}
	return buf
}

// SaveProtobufDAG writes d in the legacy protobuf DAG dialect.
func SaveProtobufDAG(d *MADAG, filename string) error {
	var buf []byte
	buf = appendPBString(buf, 1, d.Ref.Raw)
	for _, n := range d.Nodes {
		buf = appendPBMessage(buf, 2, encodeProtoNode(n))
	}
	for _, e := range d.Edges {
		em, err := encodeProtoEdge(e)
		if err != nil {
			return err
		}
		buf = appendPBMessage(buf, 3, em)
	}
	if err := os.WriteFile(filename, buf, 0o644); err != nil {
		return wrapErr(ErrInputFormat, "writing "+filename, err)
	}
	return nil
}

func decodeProtoMutation(buf []byte) (MutationEntry, error) {
	fields, err := pbParseFields(buf)
	if err != nil {
		return MutationEntry{}, err
	}
	var pos MutationPosition
	var par, mut Base
	for _, f := range fields {
		switch f.Num {
		case 1:
			pos = MutationPosition(f.Raw)
		case 2:
			par, err = pbBaseFromCode(f.Raw)
		case 3:
			mut, err = pbBaseFromCode(f.Raw)
		}
		if err != nil {
			return MutationEntry{}, err
		}
	}
	return MutationEntry{Pos: pos, ParentBase: par, ChildBase: mut}, nil
}

// LoadProtobufDAG implements §6's legacy protobuf DAG format. Node
// index 0 is the UA, matching the original's own node-index
// convention; neither format stores per-node compact genomes, so CGs
// are rebuilt from edge mutations after load.
func LoadProtobufDAG(filename string) (*MADAG, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading "+filename, err)
	}
	fields, err := pbParseFields(raw)
	if err != nil {
		return nil, err
	}

	var refSeq string
	type protoNode struct {
		id     int
		sample *string
	}
	var nodes []protoNode
	type protoEdge struct {
		parent, child, clade int
		muts                 []MutationEntry
	}
	var edges []protoEdge

	for _, f := range fields {
		switch f.Num {
		case 1:
			refSeq = string(f.Buf)
		case 2:
			nf, err := pbParseFields(f.Buf)
			if err != nil {
				return nil, err
			}
			n := protoNode{}
			for _, sub := range nf {
				switch sub.Num {
				case 1:
					n.id = int(sub.Raw)
				case 2:
					s := string(sub.Buf)
					if n.sample == nil {
						n.sample = &s
					}
				}
			}
			nodes = append(nodes, n)
		case 3:
			ef, err := pbParseFields(f.Buf)
			if err != nil {
				return nil, err
			}
			e := protoEdge{}
			for _, sub := range ef {
				switch sub.Num {
				case 2:
					e.parent = int(sub.Raw)
				case 3:
					e.child = int(sub.Raw)
				case 4:
					e.clade = int(sub.Raw)
				case 5:
					m, err := decodeProtoMutation(sub.Buf)
					if err != nil {
						return nil, err
					}
					e.muts = append(e.muts, m)
				}
			}
			edges = append(edges, e)
		}
	}
	if refSeq == "" || len(nodes) == 0 {
		return nil, newErr(ErrInputFormat, "protobuf DAG is missing a reference sequence or nodes")
	}

	ref, err := NewReference("reference", refSeq)
	if err != nil {
		return nil, err
	}
	d := NewMADAG(ref)
	for _, n := range nodes {
		for int(n.id) >= len(d.Nodes) {
			d.AddNode(nil, nil)
		}
		if n.sample != nil {
			d.Node(NodeId(n.id)).SampleId = n.sample
		}
	}
	for _, e := range edges {
		id, err := d.AddEdge(NodeId(e.parent), NodeId(e.child), e.clade)
		if err != nil {
			return nil, err
		}
		d.SetMutations(id, EdgeMutations{entries: e.muts})
	}
	if err := recomputeCGFromEdgeMutations(d); err != nil {
		return nil, err
	}
	return d, nil
}

// newickNode is a minimal parsed Newick tree node (the label is the
// only leaf decoration this format's writer emits; no branch length).
type newickNode struct {
	Label    string
	Children []*newickNode
}

// parseNewick is a small recursive-descent reader for the subset of
// Newick this repo's own writer produces: nested parenthesized clades
// of comma-separated children, each optionally labeled, terminated by
// a semicolon. Branch-length suffixes (":<float>") are accepted and
// discarded, since edge lengths here are carried by mutation lists,
// not branch lengths.
func parseNewick(s string) (*newickNode, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	pos := 0
	var parseNode func() (*newickNode, error)
	parseLabel := func() string {
		start := pos
		for pos < len(s) && s[pos] != ',' && s[pos] != ')' && s[pos] != '(' && s[pos] != ':' {
			pos++
		}
		label := s[start:pos]
		if pos < len(s) && s[pos] == ':' {
			pos++
			for pos < len(s) && s[pos] != ',' && s[pos] != ')' {
				pos++
			}
		}
		return label
	}
	parseNode = func() (*newickNode, error) {
		n := &newickNode{}
		if pos < len(s) && s[pos] == '(' {
			pos++
			for {
				child, err := parseNode()
				if err != nil {
					return nil, err
				}
				n.Children = append(n.Children, child)
				if pos >= len(s) {
					return nil, newErr(ErrInputFormat, "unterminated newick clade")
				}
				if s[pos] == ',' {
					pos++
					continue
				}
				if s[pos] == ')' {
					pos++
					break
				}
				return nil, newErr(ErrInputFormat, "malformed newick clade")
			}
		}
		n.Label = parseLabel()
		return n, nil
	}
	root, err := parseNode()
	if err != nil {
		return nil, err
	}
	return root, nil
}

// writeNewick renders a tree the same shape parseNewick reads, using
// sampleId for leaves and "inner_<id>" for internal nodes, mirroring
// the original's to_newick fallback naming.
func writeNewick(t *MADAG, n *Node) string {
	var b strings.Builder
	var walk func(n *Node)
	walk = func(n *Node) {
		if !n.IsLeaf() {
			b.WriteByte('(')
			for i, clade := range n.ChildClades {
				if i > 0 {
					b.WriteByte(',')
				}
				walk(t.Node(t.Edge(clade[0]).Child))
			}
			b.WriteByte(')')
		}
		if n.IsLeaf() && n.SampleId != nil {
			b.WriteString(*n.SampleId)
		} else if !n.IsLeaf() {
			b.WriteString("inner_" + strconv.Itoa(int(n.Id)))
		} else {
			b.WriteString("unknown_leaf_" + strconv.Itoa(int(n.Id)))
		}
	}
	walk(n)
	b.WriteByte(';')
	return b.String()
}

// SaveProtobufTree writes d (which must be a tree) in the legacy
// protobuf tree dialect: a Newick string plus one mutation list per
// non-UA node, in the pre-order the original's store_mutations walks
// (edge-into-root first, then each child's subtree in clade order).
func SaveProtobufTree(d *MADAG) ([]byte, error) {
	if !d.IsTree() {
		return nil, newErr(ErrInvariantViolation, "protobuf tree format requires a tree, not a general DAG")
	}
	root, err := d.Root()
	if err != nil {
		return nil, err
	}
	newick := writeNewick(d, d.Node(root))

	var nodeMutations [][]byte
	var walk func(edgeId EdgeId) error
	walk = func(edgeId EdgeId) error {
		e := d.Edge(edgeId)
		var muts []byte
		for _, m := range e.Mutations.Entries() {
			mm, err := encodeProtoMutation(m.Pos, m.ParentBase, m.ChildBase)
			if err != nil {
				return err
			}
			muts = appendPBMessage(muts, 1, mm)
		}
		nodeMutations = append(nodeMutations, muts)
		for _, clade := range d.Node(e.Child).ChildClades {
			for _, childEdge := range clade {
				if err := walk(childEdge); err != nil {
					return err
				}
			}
		}
		return nil
	}
	ua := d.Node(d.UA)
	if err := walk(ua.ChildClades[0][0]); err != nil {
		return nil, err
	}

	var buf []byte
	buf = appendPBString(buf, 1, newick)
	for _, nm := range nodeMutations {
		buf = appendPBMessage(buf, 2, nm)
	}
	return buf, nil
}

// LoadProtobufTree implements §6's legacy protobuf tree format: parse
// the Newick topology, assign it a fresh UA node above the tree root
// (the supplemented "UA-attachment on tree load" feature), and apply
// node_mutations in the same pre-order the writer produced them.
func LoadProtobufTree(filename string, refSeq *Reference) (*MADAG, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading "+filename, err)
	}
	fields, err := pbParseFields(raw)
	if err != nil {
		return nil, err
	}
	var newick string
	var nodeMutations [][]MutationEntry
	for _, f := range fields {
		switch f.Num {
		case 1:
			newick = string(f.Buf)
		case 2:
			mf, err := pbParseFields(f.Buf)
			if err != nil {
				return nil, err
			}
			var muts []MutationEntry
			for _, sub := range mf {
				if sub.Num != 1 {
					continue
				}
				m, err := decodeProtoMutation(sub.Buf)
				if err != nil {
					return nil, err
				}
				muts = append(muts, m)
			}
			nodeMutations = append(nodeMutations, muts)
		}
	}
	if newick == "" {
		return nil, newErr(ErrInputFormat, "protobuf tree has no newick string")
	}
	root, err := parseNewick(newick)
	if err != nil {
		return nil, err
	}

	d := NewMADAG(refSeq)
	idx := 0
	var build func(nn *newickNode, parent NodeId, cladeIdx int) error
	build = func(nn *newickNode, parent NodeId, cladeIdx int) error {
		if idx >= len(nodeMutations) {
			return newErr(ErrInputFormat, "protobuf tree has fewer node_mutations entries than newick nodes")
		}
		var sample *string
		if len(nn.Children) == 0 {
			label := nn.Label
			if label == "" {
				label = "unknown_leaf_" + strconv.Itoa(idx)
			}
			sample = &label
		}
		id := d.AddNode(nil, sample)
		edgeId, err := d.AddEdge(parent, id, cladeIdx)
		if err != nil {
			return err
		}
		entries := append([]MutationEntry(nil), nodeMutations[idx]...)
		idx++
		d.SetMutations(edgeId, EdgeMutations{entries: entries})
		for i, child := range nn.Children {
			if err := build(child, id, i); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(root, d.UA, 0); err != nil {
		return nil, err
	}
	if err := recomputeCGFromEdgeMutations(d); err != nil {
		return nil, err
	}
	return d, nil
}
