package main

import (
	"bytes"
	"encoding/binary"
	"os"
)

// DAGBIN implements §6's self-describing binary format, grounded on
// original_source's DagbinFileIO (dagbin_fileio.hpp/_impl.hpp): a
// magic number, then a linked list of tagged sections whose forward
// offsets are patched in after every section's end position is known.
// Section payloads (node/edge batches) use the original's batching so
// appending new nodes/edges to an existing file never rewrites
// earlier sections, only the header and a fresh tail of sections.
//
// All size_t/streampos fields are written as fixed 8-byte
// little-endian values (the original's size_t is platform-width; this
// repo only ever reads its own files, so a fixed width is simpler and
// still self-describing).
var dagbinMagic = []byte{0x44, 0x41, 0x47, 0x42, 0x49, 0x4E} // "DAGBIN"

type dagbinSectionId byte

const (
	dagbinHeader dagbinSectionId = 'H'
	dagbinRefSeq dagbinSectionId = 'R'
	dagbinNodes  dagbinSectionId = 'N'
	dagbinEdges  dagbinSectionId = 'E'
)

const dagbinBatchSize = 250

type dagbinHeaderData struct {
	NodeCount uint64
	EdgeCount uint64
	LeafCount uint64
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU64(buf, uint64(len(s)))
	return append(buf, s...)
}

// appendSectionTag writes a section's 1-byte id plus an 8-byte
// placeholder for the next section's offset (patched later by
// dagbinPatchLinks), and returns the tag's own offset.
func appendSectionTag(buf []byte, id dagbinSectionId) ([]byte, int64) {
	tagPos := int64(len(buf))
	buf = append(buf, byte(id))
	buf = appendU64(buf, 0)
	return buf, tagPos
}

// dagbinPatchLinks writes offsets[i] into the 8-byte field right
// after offsets[i-1]'s tag byte, forming the linked list the reader
// walks; the final entry in offsets is the end-of-file position,
// which terminates the chain (a SectionId read there hits EOF).
func dagbinPatchLinks(buf []byte, offsets []int64) {
	for i := 1; i < len(offsets); i++ {
		pos := offsets[i-1] + 1
		binary.LittleEndian.PutUint64(buf[pos:pos+8], uint64(offsets[i]))
	}
}

func leafCount(d *MADAG) int {
	n := 0
	for _, node := range d.Nodes {
		if node.IsLeaf() {
			n++
		}
	}
	return n
}

func dagbinWriteNodeBatch(buf []byte, d *MADAG, min, max int) []byte {
	countPos := len(buf)
	buf = appendU64(buf, 0)
	written := uint64(0)
	for id := min; id < max && id < len(d.Nodes); id++ {
		n := d.Nodes[id]
		buf = appendU64(buf, uint64(id))
		buf = appendBool(buf, n.IsLeaf())
		if n.IsLeaf() {
			buf = appendString(buf, *n.SampleId)
		}
		written++
	}
	binary.LittleEndian.PutUint64(buf[countPos:countPos+8], written)
	return buf
}

func dagbinWriteEdgeBatch(buf []byte, d *MADAG, min, max int) []byte {
	countPos := len(buf)
	buf = appendU64(buf, 0)
	written := uint64(0)
	for id := min; id < max && id < len(d.Edges); id++ {
		e := d.Edges[id]
		buf = appendU64(buf, uint64(e.Id))
		buf = appendU64(buf, uint64(e.Parent))
		buf = appendU64(buf, uint64(e.Child))
		buf = appendU64(buf, uint64(e.CladeIdx))
		entries := e.Mutations.Entries()
		buf = appendU64(buf, uint64(len(entries)))
		for _, m := range entries {
			buf = appendU64(buf, uint64(m.Pos))
			buf = append(buf, m.ParentBase.Byte())
			buf = append(buf, m.ChildBase.Byte())
		}
		written++
	}
	binary.LittleEndian.PutUint64(buf[countPos:countPos+8], written)
	return buf
}

// SaveDAGBIN writes d as a fresh DAGBIN file: magic number, header,
// reference sequence, then nodes and edges in batches of
// dagbinBatchSize, mirroring WriteDAG.
func SaveDAGBIN(d *MADAG, filename string) error {
	var buf []byte
	buf = append(buf, dagbinMagic...)

	var offsets []int64
	var tagPos int64

	buf, tagPos = appendSectionTag(buf, dagbinHeader)
	offsets = append(offsets, tagPos)
	buf = appendU64(buf, uint64(len(d.Nodes)))
	buf = appendU64(buf, uint64(len(d.Edges)))
	buf = appendU64(buf, uint64(leafCount(d)))

	buf, tagPos = appendSectionTag(buf, dagbinRefSeq)
	offsets = append(offsets, tagPos)
	buf = appendString(buf, d.Ref.Name)
	buf = appendString(buf, d.Ref.Raw)

	for i := 0; i < len(d.Nodes); i += dagbinBatchSize {
		buf, tagPos = appendSectionTag(buf, dagbinNodes)
		offsets = append(offsets, tagPos)
		buf = dagbinWriteNodeBatch(buf, d, i, i+dagbinBatchSize)
	}
	for i := 0; i < len(d.Edges); i += dagbinBatchSize {
		buf, tagPos = appendSectionTag(buf, dagbinEdges)
		offsets = append(offsets, tagPos)
		buf = dagbinWriteEdgeBatch(buf, d, i, i+dagbinBatchSize)
	}

	offsets = append(offsets, int64(len(buf)))
	dagbinPatchLinks(buf, offsets)

	if err := os.WriteFile(filename, buf, 0o644); err != nil {
		return wrapErr(ErrInputFormat, "writing "+filename, err)
	}
	return nil
}

type dagbinReader struct {
	buf []byte
	pos int64
}

func (r *dagbinReader) readU64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *dagbinReader) readBool() bool {
	v := r.buf[r.pos] != 0
	r.pos++
	return v
}

func (r *dagbinReader) readByte() byte {
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *dagbinReader) readString() string {
	n := r.readU64()
	s := string(r.buf[r.pos : r.pos+int64(n)])
	r.pos += int64(n)
	return s
}

func (r *dagbinReader) eof() bool { return r.pos >= int64(len(r.buf)) }

// dagbinLinkedList walks the tag/offset chain without interpreting
// any section payload, mirroring ReadLabeledLinkedList: it follows
// each section's next-offset pointer until a read would run past the
// buffer, which plays the role of the original's EOF sentinel.
func dagbinLinkedList(buf []byte) ([]int64, []dagbinSectionId, error) {
	if len(buf) < len(dagbinMagic) || !bytes.Equal(buf[:len(dagbinMagic)], dagbinMagic) {
		return nil, nil, newErr(ErrInputFormat, "not a DAGBIN file (bad magic number)")
	}
	var offsets []int64
	var ids []dagbinSectionId
	pos := int64(len(dagbinMagic))
	for pos+9 <= int64(len(buf)) {
		id := dagbinSectionId(buf[pos])
		next := int64(binary.LittleEndian.Uint64(buf[pos+1 : pos+9]))
		offsets = append(offsets, pos)
		ids = append(ids, id)
		pos = next
	}
	return offsets, ids, nil
}

// LoadDAGBIN reads a DAGBIN file written by SaveDAGBIN (or by
// AppendDAGBIN), mirroring ReadDAG: walk the linked list once to
// locate every section, then read each section's payload in order.
func LoadDAGBIN(filename string) (*MADAG, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, wrapErr(ErrInputFormat, "reading "+filename, err)
	}
	offsets, ids, err := dagbinLinkedList(buf)
	if err != nil {
		return nil, err
	}

	var header dagbinHeaderData
	var ref *Reference
	var d *MADAG
	var leafSampleIds = map[NodeId]string{}

	for i, off := range offsets {
		r := &dagbinReader{buf: buf, pos: off + 9}
		switch ids[i] {
		case dagbinHeader:
			header.NodeCount = r.readU64()
			header.EdgeCount = r.readU64()
			header.LeafCount = r.readU64()
		case dagbinRefSeq:
			name := r.readString()
			seq := r.readString()
			ref, err = NewReference(name, seq)
			if err != nil {
				return nil, err
			}
			d = NewMADAG(ref)
		case dagbinNodes:
			if d == nil {
				return nil, newErr(ErrInputFormat, "DAGBIN nodes section before reference sequence section")
			}
			count := r.readU64()
			for j := uint64(0); j < count; j++ {
				id := NodeId(r.readU64())
				isLeaf := r.readBool()
				var sample *string
				if isLeaf {
					s := r.readString()
					sample = &s
				}
				for int(id) >= len(d.Nodes) {
					d.AddNode(nil, nil)
				}
				if id != UAId {
					d.Node(id).SampleId = sample
				} else if sample != nil {
					d.Node(UAId).SampleId = sample
				}
				if sample != nil {
					leafSampleIds[id] = *sample
				}
			}
		case dagbinEdges:
			if d == nil {
				return nil, newErr(ErrInputFormat, "DAGBIN edges section before reference sequence section")
			}
			count := r.readU64()
			for j := uint64(0); j < count; j++ {
				_ = r.readU64() // edge id: this arena assigns its own, sequentially, same order
				parent := NodeId(r.readU64())
				child := NodeId(r.readU64())
				cladeIdx := int(r.readU64())
				mutCount := r.readU64()
				entries := make([]MutationEntry, 0, mutCount)
				for k := uint64(0); k < mutCount; k++ {
					pos := MutationPosition(r.readU64())
					parentBase, err := BaseFromByte(r.readByte())
					if err != nil {
						return nil, err
					}
					childBase, err := BaseFromByte(r.readByte())
					if err != nil {
						return nil, err
					}
					entries = append(entries, MutationEntry{Pos: pos, ParentBase: parentBase, ChildBase: childBase})
				}
				edgeId, err := d.AddEdge(parent, child, cladeIdx)
				if err != nil {
					return nil, err
				}
				d.SetMutations(edgeId, EdgeMutations{entries: entries})
			}
		}
	}
	if d == nil {
		return nil, newErr(ErrInputFormat, "DAGBIN file has no reference sequence section")
	}

	// DAGBIN carries no compact genomes directly (unlike the JSON
	// dialect): nodes are reconstructed purely from edge mutations, so
	// every node's CG must be derived by walking down from the UA.
	if err := recomputeCGFromEdgeMutations(d); err != nil {
		return nil, err
	}

	if uint64(len(d.Nodes)) != header.NodeCount || uint64(len(d.Edges)) != header.EdgeCount {
		return nil, newErr(ErrInvariantViolation, "DAGBIN header counts disagree with file contents")
	}
	return d, nil
}

// recomputeCGFromEdgeMutations derives every node's compact genome
// from the UA's (empty) CG by applying each edge's mutations down the
// tree, the inverse of RecomputeEdgeMutations; needed because DAGBIN
// stores mutations, not compact genomes, per node.
func recomputeCGFromEdgeMutations(d *MADAG) error {
	d.Node(d.UA).CG = emptyCG
	visited := make([]bool, len(d.Nodes))
	visited[d.UA] = true
	var walk func(id NodeId) error
	walk = func(id NodeId) error {
		n := d.Node(id)
		for _, clade := range n.ChildClades {
			for _, eid := range clade {
				e := d.Edge(eid)
				if visited[e.Child] {
					continue
				}
				d.Node(e.Child).CG = CGExtendByEdge(n.CG, e.Mutations, d.Ref)
				visited[e.Child] = true
				if err := walk(e.Child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(d.UA); err != nil {
		return err
	}
	for _, n := range d.Nodes {
		if !visited[n.Id] {
			return newErr(ErrInvariantViolation, "DAGBIN file contains an unreachable node")
		}
	}
	return nil
}

// AppendDAGBIN appends newly added nodes/edges (ids at or beyond the
// counts recorded in the existing file's header) without rewriting
// earlier sections, mirroring AppendDAG: only the header is
// overwritten in place, then fresh node/edge batches and an updated
// linked list are written to the tail.
func AppendDAGBIN(d *MADAG, filename string) error {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return wrapErr(ErrInputFormat, "reading "+filename, err)
	}
	offsets, ids, err := dagbinLinkedList(buf)
	if err != nil {
		return err
	}
	if len(ids) == 0 || ids[0] != dagbinHeader {
		return newErr(ErrInputFormat, "DAGBIN file does not begin with a header section")
	}
	headerOff := offsets[0]
	r := &dagbinReader{buf: buf, pos: headerOff + 9}
	oldNodeCount := r.readU64()
	oldEdgeCount := r.readU64()

	binary.LittleEndian.PutUint64(buf[headerOff+9:headerOff+17], uint64(len(d.Nodes)))
	binary.LittleEndian.PutUint64(buf[headerOff+17:headerOff+25], uint64(len(d.Edges)))
	binary.LittleEndian.PutUint64(buf[headerOff+25:headerOff+33], uint64(leafCount(d)))

	var newOffsets []int64
	var tagPos int64
	tail := buf

	for i := int(oldNodeCount); i < len(d.Nodes); i += dagbinBatchSize {
		tail, tagPos = appendSectionTag(tail, dagbinNodes)
		newOffsets = append(newOffsets, tagPos)
		tail = dagbinWriteNodeBatch(tail, d, i, i+dagbinBatchSize)
	}
	for i := int(oldEdgeCount); i < len(d.Edges); i += dagbinBatchSize {
		tail, tagPos = appendSectionTag(tail, dagbinEdges)
		newOffsets = append(newOffsets, tagPos)
		tail = dagbinWriteEdgeBatch(tail, d, i, i+dagbinBatchSize)
	}

	if len(newOffsets) > 0 {
		lastOld := offsets[len(offsets)-1]
		allLinked := append([]int64{lastOld}, newOffsets...)
		allLinked = append(allLinked, int64(len(tail)))
		dagbinPatchLinks(tail, allLinked)
	}

	if err := os.WriteFile(filename, tail, 0o644); err != nil {
		return wrapErr(ErrInputFormat, "writing "+filename, err)
	}
	return nil
}
