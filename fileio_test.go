package main

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func TestStripCompressionSuffix(t *testing.T) {
	cases := map[string]string{
		"foo.json":    "foo.json",
		"foo.json.gz": "foo.json",
		"foo.pb.bz2":  "foo.pb",
		"foo.dagbin":  "foo.dagbin",
	}
	for in, want := range cases {
		if got := stripCompressionSuffix(in); got != want {
			t.Errorf("stripCompressionSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadDAGDispatchesByExtension(t *testing.T) {
	d, _ := buildSimpleTree(t)
	jsonPath := filepath.Join(t.TempDir(), "x.json")
	if err := SaveDAG(d, jsonPath); err != nil {
		t.Fatalf("SaveDAG(json): %v", err)
	}
	loaded, err := LoadDAG(jsonPath, nil)
	if err != nil {
		t.Fatalf("LoadDAG(json): %v", err)
	}
	if len(loaded.Nodes) != len(d.Nodes) {
		t.Errorf("LoadDAG(json) node count = %d, want %d", len(loaded.Nodes), len(d.Nodes))
	}
}

func TestLoadDAGUnknownExtension(t *testing.T) {
	path := writeTempFile(t, "x.unknown", "whatever")
	if _, err := LoadDAG(path, nil); !IsKind(err, ErrInputFormat) {
		t.Errorf("LoadDAG with unknown extension = %v, want ErrInputFormat", err)
	}
}

func TestLoadDAGPrefersTreeDotPBOverPlainPB(t *testing.T) {
	d, ref := buildSimpleTree(t)
	buf, err := SaveProtobufTree(d)
	if err != nil {
		t.Fatalf("SaveProtobufTree: %v", err)
	}
	path := filepath.Join(t.TempDir(), "x.tree.pb")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	loaded, err := LoadDAG(path, ref)
	if err != nil {
		t.Fatalf("LoadDAG(.tree.pb) should route through the tree-dialect loader, got: %v", err)
	}
	if len(loaded.Leaves()) != len(d.Leaves()) {
		t.Errorf("LoadDAG(.tree.pb) produced %d leaves, want %d", len(loaded.Leaves()), len(d.Leaves()))
	}
}

func TestSaveDAGTreeDotPBRoundTrip(t *testing.T) {
	d, ref := buildSimpleTree(t)
	path := filepath.Join(t.TempDir(), "x.tree.pb")
	if err := SaveDAG(d, path); err != nil {
		t.Fatalf("SaveDAG(.tree.pb): %v", err)
	}
	loaded, err := LoadDAG(path, ref)
	if err != nil {
		t.Fatalf("LoadDAG(.tree.pb): %v", err)
	}
	if len(loaded.Leaves()) != len(d.Leaves()) {
		t.Errorf("round-tripped .tree.pb produced %d leaves, want %d", len(loaded.Leaves()), len(d.Leaves()))
	}
}

func TestCompressedReaderReadsGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte("hello compressed world\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing gz fixture: %v", err)
	}

	r := NewCompressedReader(path)
	if err := r.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	scanner := r.Scanner()
	if !scanner.Scan() {
		t.Fatalf("expected at least one line from the decompressed reader")
	}
	if scanner.Text() != "hello compressed world" {
		t.Errorf("Scanner().Text() = %q, want %q", scanner.Text(), "hello compressed world")
	}
}
