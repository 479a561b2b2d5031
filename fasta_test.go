package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadFASTA(t *testing.T) {
	path := writeTempFile(t, "ref.fasta", ">chr1 test reference\nACGT\nACGT\n")
	ref, err := LoadFASTA(path)
	if err != nil {
		t.Fatalf("LoadFASTA: %v", err)
	}
	if ref.Name != "chr1 test reference" {
		t.Errorf("Name = %q", ref.Name)
	}
	if ref.Raw != "ACGTACGT" {
		t.Errorf("Raw = %q, want unwrapped ACGTACGT", ref.Raw)
	}
}

func TestLoadFASTAOnlyFirstRecord(t *testing.T) {
	path := writeTempFile(t, "multi.fasta", ">first\nACGT\n>second\nTTTT\n")
	ref, err := LoadFASTA(path)
	if err != nil {
		t.Fatalf("LoadFASTA: %v", err)
	}
	if ref.Raw != "ACGT" {
		t.Errorf("Raw = %q, want only the first record's sequence", ref.Raw)
	}
}

func TestLoadFASTANoHeader(t *testing.T) {
	path := writeTempFile(t, "noheader.fasta", "ACGT\n")
	if _, err := LoadFASTA(path); !IsKind(err, ErrInputFormat) {
		t.Errorf("LoadFASTA with no header = %v, want ErrInputFormat", err)
	}
}
