package main

import "testing"

func TestLoadVCFDiffs(t *testing.T) {
	vcf := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tleafA\tleafB\n" +
		"chr1\t4\t.\tT\tA\t.\t.\t.\tGT\t1\t0\n"
	path := writeTempFile(t, "diffs.vcf", vcf)
	ref := mustRef(t, "ACGT")

	diffs, err := LoadVCFDiffs(path, ref)
	if err != nil {
		t.Fatalf("LoadVCFDiffs: %v", err)
	}
	if len(diffs["leafA"]) != 1 || diffs["leafA"][4] != BaseA {
		t.Errorf("diffs[leafA] = %v, want {4: A}", diffs["leafA"])
	}
	if len(diffs["leafB"]) != 0 {
		t.Errorf("diffs[leafB] should be empty (genotype 0 matches REF), got %v", diffs["leafB"])
	}
}

func TestLoadVCFDiffsSkipsIndels(t *testing.T) {
	vcf := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tleafA\n" +
		"chr1\t2\t.\tC\tCAA\t.\t.\t.\tGT\t1\n"
	path := writeTempFile(t, "indel.vcf", vcf)
	ref := mustRef(t, "ACGT")
	diffs, err := LoadVCFDiffs(path, ref)
	if err != nil {
		t.Fatalf("LoadVCFDiffs: %v", err)
	}
	if len(diffs["leafA"]) != 0 {
		t.Errorf("indel ALT should be skipped, got %v", diffs["leafA"])
	}
}

func TestApplyVCFToMADAG(t *testing.T) {
	d, ref := buildSimpleTree(t)
	diffs := map[string]map[MutationPosition]Base{
		"leafA": {4: BaseC}, // was A, switches to C
	}
	if err := ApplyVCFToMADAG(d, diffs); err != nil {
		t.Fatalf("ApplyVCFToMADAG: %v", err)
	}
	leafA := d.Node(2)
	if b, ok := leafA.CG.Get(4); !ok || b != BaseC {
		t.Errorf("leafA CG at pos 4 = %v,%v, want C,true", b, ok)
	}
	// parent edge mutations must reflect the new CG
	parentEdge := d.Edge(leafA.ParentEdges[0])
	found := false
	for _, m := range parentEdge.Mutations.Entries() {
		if m.Pos == 4 && m.ChildBase == BaseC {
			found = true
		}
	}
	if !found {
		t.Errorf("expected parent edge mutation reflecting VCF-applied base at pos 4")
	}
	_ = ref
}

func TestApplyVCFToMADAGRevertsToReference(t *testing.T) {
	d, _ := buildSimpleTree(t)
	diffs := map[string]map[MutationPosition]Base{
		"leafA": {4: BaseT}, // reference base at pos 4 is T: reverts the existing A->? mutation
	}
	if err := ApplyVCFToMADAG(d, diffs); err != nil {
		t.Fatalf("ApplyVCFToMADAG: %v", err)
	}
	leafA := d.Node(2)
	if _, ok := leafA.CG.Get(4); ok {
		t.Errorf("reverting to the reference base should remove the CG entry")
	}
}
