package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{newErr(ErrInputFormat, "bad input"), 2},
		{newErr(ErrRefMismatch, "ref mismatch"), 2},
		{newErr(ErrMissingSampleId, "missing sample id"), 2},
		{newErr(ErrInvariantViolation, "broken invariant"), 3},
		{newErr(ErrUnreachableNode, "unreachable"), 3},
		{newErr(ErrEmptyGraph, "empty"), 3},
		{newErr(ErrIllegalMove, "illegal move"), 1},
		{newErr(ErrUnsupportedFeature, "unsupported"), 1},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestRunOptimizeCommandEndToEnd(t *testing.T) {
	d, _ := buildSimpleTree(t)
	inputPath := filepath.Join(t.TempDir(), "in.json")
	if err := SaveJSONDAG(d, inputPath); err != nil {
		t.Fatalf("SaveJSONDAG: %v", err)
	}
	outputPath := filepath.Join(t.TempDir(), "out.json")

	code := runOptimizeCommand([]string{
		"-input", inputPath,
		"-output", outputPath,
		"-iterations", "1",
		"-seed", "1",
	})
	if code != 0 {
		t.Fatalf("runOptimizeCommand exit code = %d, want 0", code)
	}
	result, err := LoadJSONDAG(outputPath)
	if err != nil {
		t.Fatalf("LoadJSONDAG(output): %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("Validate() on the optimize output: %v", err)
	}
}

func TestRunOptimizeCommandBadInputReturnsInputFormatCode(t *testing.T) {
	code := runOptimizeCommand([]string{
		"-input", filepath.Join(t.TempDir(), "does-not-exist.json"),
		"-output", filepath.Join(t.TempDir(), "out.json"),
	})
	if code != 2 {
		t.Errorf("runOptimizeCommand with a missing input file = %d, want 2", code)
	}
}

func TestRunDiffCommandEndToEnd(t *testing.T) {
	a, _ := buildSimpleTree(t)
	b := buildTreeWithDuplicateLeaves(t)
	lhsPath := filepath.Join(t.TempDir(), "a.json")
	rhsPath := filepath.Join(t.TempDir(), "b.json")
	if err := SaveJSONDAG(a, lhsPath); err != nil {
		t.Fatalf("SaveJSONDAG(a): %v", err)
	}
	if err := SaveJSONDAG(b, rhsPath); err != nil {
		t.Fatalf("SaveJSONDAG(b): %v", err)
	}

	out := captureStdout(t, func() {
		code := runDiffCommand([]string{"-lhs", lhsPath, "-rhs", rhsPath})
		if code != 0 {
			t.Fatalf("runDiffCommand exit code = %d, want 0", code)
		}
	})
	if !strings.Contains(out, "nodes") && !strings.Contains(out, "edges") {
		t.Errorf("runDiffCommand output looks empty or unrecognizable: %q", out)
	}
}

func TestRunDumpCommandEndToEnd(t *testing.T) {
	d, _ := buildSimpleTree(t)
	inputPath := filepath.Join(t.TempDir(), "in.json")
	if err := SaveJSONDAG(d, inputPath); err != nil {
		t.Fatalf("SaveJSONDAG: %v", err)
	}

	out := captureStdout(t, func() {
		code := runDumpCommand([]string{"-input", inputPath})
		if code != 0 {
			t.Fatalf("runDumpCommand exit code = %d, want 0", code)
		}
	})
	if len(strings.TrimSpace(out)) == 0 {
		t.Errorf("runDumpCommand produced no output")
	}
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(out)
}
