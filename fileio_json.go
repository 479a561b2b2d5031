package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonDAGFile mirrors the JSON DAG format exactly as
// dag_loader.cpp's LoadDAGFromJson reads it (original_source):
//
//	refseq: [name, sequence]
//	nodes: [[compact_genome_idx, clade_list], ...]   (clade_list is
//	  informational only; edges alone define adjacency, same as the
//	  original loader)
//	edges: [[parent_idx, child_idx, clade_idx], ...]
//	compact_genomes: [[[pos, [old_base, new_base]], ...], ...]
//
// Node index 0 is always the UA, matching this repo's own NewMADAG
// convention, so no index translation is needed.
type jsonDAGFile struct {
	Refseq         []string        `json:"refseq"`
	Nodes          [][]interface{} `json:"nodes"`
	Edges          [][3]int        `json:"edges"`
	CompactGenomes [][]interface{} `json:"compact_genomes"`
}

func jsonMutationToEntry(raw interface{}) (MutationPosition, byte, error) {
	pair, ok := raw.([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, newErr(ErrInputFormat, "malformed compact genome mutation entry")
	}
	posF, ok := pair[0].(float64)
	if !ok {
		return 0, 0, newErr(ErrInputFormat, "compact genome mutation position is not numeric")
	}
	bases, ok := pair[1].([]interface{})
	if !ok || len(bases) != 2 {
		return 0, 0, newErr(ErrInputFormat, "compact genome mutation is missing [old, new] bases")
	}
	newBase, ok := bases[1].(string)
	if !ok || len(newBase) != 1 {
		return 0, 0, newErr(ErrInputFormat, "compact genome mutation new base is not a single character")
	}
	return MutationPosition(int(posF)), newBase[0], nil
}

func buildJSONCompactGenome(raw []interface{}, ref *Reference) (*CompactGenome, error) {
	b := newCompactGenomeBuilder()
	for _, m := range raw {
		pos, baseByte, err := jsonMutationToEntry(m)
		if err != nil {
			return nil, err
		}
		base, err := BaseFromByte(baseByte)
		if err != nil {
			return nil, err
		}
		if base != ref.At(pos) {
			b.set(pos, base)
		}
	}
	return b.build(), nil
}

// LoadJSONDAG implements the JSON DAG format of §6.
func LoadJSONDAG(filename string) (*MADAG, error) {
	r := NewCompressedReader(filename)
	if err := r.Open(); err != nil {
		return nil, err
	}
	defer r.Close()

	var file jsonDAGFile
	if err := json.NewDecoder(r.Reader()).Decode(&file); err != nil {
		return nil, wrapErr(ErrInputFormat, "decoding JSON DAG "+filename, err)
	}
	if len(file.Refseq) != 2 {
		return nil, newErr(ErrInputFormat, "JSON DAG refseq must be [name, sequence]")
	}
	ref, err := NewReference(file.Refseq[0], file.Refseq[1])
	if err != nil {
		return nil, err
	}
	if len(file.Nodes) == 0 {
		return nil, newErr(ErrInputFormat, "JSON DAG has no nodes")
	}

	cgs := make([]*CompactGenome, len(file.CompactGenomes))
	for i, raw := range file.CompactGenomes {
		cg, err := buildJSONCompactGenome(raw, ref)
		if err != nil {
			return nil, err
		}
		cgs[i] = cg
	}

	nodeCG := func(entry []interface{}) (*CompactGenome, error) {
		if len(entry) < 1 {
			return nil, newErr(ErrInputFormat, "JSON DAG node entry missing compact_genome_idx")
		}
		idxF, ok := entry[0].(float64)
		if !ok {
			return nil, newErr(ErrInputFormat, "JSON DAG node compact_genome_idx is not numeric")
		}
		idx := int(idxF)
		if idx < 0 || idx >= len(cgs) {
			return nil, newErr(ErrInputFormat, "JSON DAG node compact_genome_idx out of range")
		}
		return cgs[idx], nil
	}

	d := NewMADAG(ref)
	uaCG, err := nodeCG(file.Nodes[0])
	if err != nil {
		return nil, err
	}
	d.Node(UAId).CG = uaCG

	for _, entry := range file.Nodes[1:] {
		cg, err := nodeCG(entry)
		if err != nil {
			return nil, err
		}
		d.AddNode(cg, nil)
	}

	for _, e := range file.Edges {
		parent, child, cladeIdx := NodeId(e[0]), NodeId(e[1]), e[2]
		if int(parent) >= len(d.Nodes) || int(child) >= len(d.Nodes) {
			return nil, newErr(ErrInputFormat, "JSON DAG edge references an out-of-range node index")
		}
		if _, err := d.AddEdge(parent, child, cladeIdx); err != nil {
			return nil, err
		}
	}

	// This JSON dialect carries no explicit sample ids (original_source's
	// own loader has none either); leaves are assigned a synthetic id
	// from their node index so the rest of the system's
	// sample-id-required-on-leaves invariant holds.
	for _, n := range d.Nodes {
		if n.Id != d.UA && len(n.ChildClades) == 0 {
			id := fmt.Sprintf("leaf_%d", n.Id)
			n.SampleId = &id
		}
	}

	if err := d.RecomputeEdgeMutations(); err != nil {
		return nil, err
	}
	return d, nil
}

// SaveJSONDAG writes d in the same dialect LoadJSONDAG reads, with one
// compact genome per distinct node (no CG deduplication in the
// compact_genomes table; simple and always correct, at the cost of
// some file-size duplication for heavily-shared ancestral CGs).
func SaveJSONDAG(d *MADAG, filename string) error {
	file := jsonDAGFile{
		Refseq: []string{d.Ref.Name, d.Ref.Raw},
	}
	file.CompactGenomes = make([][]interface{}, len(d.Nodes))
	file.Nodes = make([][]interface{}, len(d.Nodes))
	for i, n := range d.Nodes {
		var muts []interface{}
		for _, e := range n.CG.Entries() {
			refBase := d.Ref.At(e.Pos)
			muts = append(muts, []interface{}{int(e.Pos), []string{refBase.String(), e.Base.String()}})
		}
		file.CompactGenomes[i] = muts
		var clades []interface{}
		for range n.ChildClades {
			clades = append(clades, []interface{}{})
		}
		file.Nodes[i] = []interface{}{i, clades}
	}
	file.Edges = make([][3]int, len(d.Edges))
	for i, e := range d.Edges {
		file.Edges[i] = [3]int{int(e.Parent), int(e.Child), e.CladeIdx}
	}

	f, err := os.Create(filename)
	if err != nil {
		return wrapErr(ErrInputFormat, "creating "+filename, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(file); err != nil {
		return wrapErr(ErrInputFormat, "writing JSON DAG "+filename, err)
	}
	return nil
}
