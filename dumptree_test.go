package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildTreePathsWalksEveryLeaf(t *testing.T) {
	d, _ := buildSimpleTree(t)
	paths := buildTreePaths(d, 1)
	if len(paths) != 2 {
		t.Fatalf("len(paths) = %d, want 2", len(paths))
	}
	labels := make(map[string]bool)
	for _, p := range paths {
		if len(p) == 0 {
			t.Fatalf("empty path")
		}
		labels[p[len(p)-1]] = true
	}
	if !labels["leafA"] || !labels["leafB"] {
		t.Errorf("paths = %v, want leaves leafA and leafB", paths)
	}
}

func TestBuildTreePathsPrefixesWithInternalLabels(t *testing.T) {
	d, _ := buildSimpleTree(t)
	paths := buildTreePaths(d, 1)
	for _, p := range paths {
		if len(p) != 2 {
			t.Fatalf("path %v should have 2 elements (root, leaf)", p)
		}
		if p[0] != "node1" {
			t.Errorf("path[0] = %q, want node1 (root has no sample id)", p[0])
		}
	}
}

func TestNodeTreeLabelPrefersSampleId(t *testing.T) {
	d, _ := buildSimpleTree(t)
	leafA := d.Node(2)
	if got := nodeTreeLabel(leafA); got != "leafA" {
		t.Errorf("nodeTreeLabel(leafA) = %q, want leafA", got)
	}
	root := d.Node(1)
	if got := nodeTreeLabel(root); got != "node1" {
		t.Errorf("nodeTreeLabel(root) = %q, want node1", got)
	}
}

func TestDumpTreeRendersBothLeaves(t *testing.T) {
	d, _ := buildSimpleTree(t)
	var buf bytes.Buffer
	DumpTree(&buf, d, 1)
	out := buf.String()
	if !strings.Contains(out, "leafA") {
		t.Errorf("DumpTree output missing leafA: %q", out)
	}
	if !strings.Contains(out, "leafB") {
		t.Errorf("DumpTree output missing leafB: %q", out)
	}
}

func TestDumpTreeChildlessUnsampledNodeProducesNoOutput(t *testing.T) {
	// a node with neither children nor a sample id is not a leaf by
	// IsLeaf's definition, so it contributes no root-to-leaf path.
	ref := mustRef(t, "ACGT")
	d := NewMADAG(ref)
	rootId := d.AddNode(emptyCG, nil)
	var buf bytes.Buffer
	DumpTree(&buf, d, rootId)
	if buf.Len() != 0 {
		t.Errorf("DumpTree on a childless, unsampled node = %q, want empty", buf.String())
	}
}
