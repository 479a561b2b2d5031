package main

import (
	"strconv"
	"strings"
)

// LoadVCFDiffs parses a VCF's per-sample genotype calls into a diff
// against ref, keyed by sample name, grounded on original_source's own
// description of its CompactGenomeData (§6: "per-row ALT values are
// parsed as a CompactGenomeData diff keyed by sample name"). Only the
// GT subfield of each sample column is consulted; multi-allelic rows
// and IUPAC ambiguity codes in ALT are both supported since BaseFromByte
// accepts the full IUPAC set.
func LoadVCFDiffs(filename string, ref *Reference) (map[string]map[MutationPosition]Base, error) {
	r := NewCompressedReader(filename)
	if err := r.Open(); err != nil {
		return nil, err
	}
	defer r.Close()

	diffs := make(map[string]map[MutationPosition]Base)
	var samples []string
	scanner := r.Scanner()
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			continue
		}
		fields := strings.Split(line, "\t")
		if strings.HasPrefix(line, "#CHROM") {
			if len(fields) <= 9 {
				return nil, newErr(ErrInputFormat, "VCF header has no sample columns")
			}
			samples = fields[9:]
			for _, s := range samples {
				diffs[s] = make(map[MutationPosition]Base)
			}
			continue
		}
		if len(fields) < 10 {
			return nil, newErr(ErrInputFormat, "VCF data row has fewer than 10 columns: "+line)
		}
		if samples == nil {
			return nil, newErr(ErrInputFormat, "VCF data row encountered before #CHROM header")
		}
		posN, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, wrapErr(ErrInputFormat, "parsing VCF POS", err)
		}
		pos := MutationPosition(posN)
		refAllele := fields[3]
		alts := strings.Split(fields[4], ",")

		for i, s := range samples {
			col := fields[9+i]
			gtField := strings.SplitN(col, ":", 2)[0]
			gtField = strings.FieldsFunc(gtField, func(r rune) bool { return r == '/' || r == '|' })[0]
			gtIdx, err := strconv.Atoi(gtField)
			if err != nil {
				return nil, wrapErr(ErrInputFormat, "parsing VCF genotype for sample "+s, err)
			}
			if gtIdx == 0 {
				continue // matches REF, no diff entry needed
			}
			if gtIdx-1 >= len(alts) {
				return nil, newErr(ErrInputFormat, "VCF genotype index out of range for sample "+s)
			}
			allele := alts[gtIdx-1]
			if len(allele) != 1 || len(refAllele) != 1 {
				continue // indels are outside this system's single-site substitution model
			}
			base, err := BaseFromByte(allele[0])
			if err != nil {
				return nil, err
			}
			diffs[s][pos] = base
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapErr(ErrInputFormat, "reading VCF "+filename, err)
	}
	_ = ref
	return diffs, nil
}

// ApplyVCFToMADAG applies diffs to d's matching leaves by sample id,
// overwriting each leaf's compact genome with the VCF-provided bases
// and recomputing that leaf's incident (parent) edges' mutations, per
// §6. Leaves with no matching sample in diffs are left untouched;
// silently, matching original_source's own default
// silence_warnings=true behavior for LoadVCFData.
func ApplyVCFToMADAG(d *MADAG, diffs map[string]map[MutationPosition]Base) error {
	for _, n := range d.Nodes {
		if !n.IsLeaf() {
			continue
		}
		diff, ok := diffs[*n.SampleId]
		if !ok {
			continue
		}
		merged := make(map[MutationPosition]Base)
		for _, e := range n.CG.Entries() {
			merged[e.Pos] = e.Base
		}
		for pos, base := range diff {
			if base == d.Ref.At(pos) {
				delete(merged, pos)
			} else {
				merged[pos] = base
			}
		}
		b := newCompactGenomeBuilder()
		for pos, base := range merged {
			b.set(pos, base)
		}
		n.CG = b.build()

		for _, edgeId := range n.ParentEdges {
			e := d.Edge(edgeId)
			m, err := EdgeMutationsFromEndpoints(d.Node(e.Parent).CG, n.CG, d.Ref)
			if err != nil {
				return err
			}
			d.SetMutations(edgeId, m)
		}
	}
	return nil
}
