package main

import (
	"path/filepath"
	"testing"
)

func TestStateDBSaveLoadRoundTrip(t *testing.T) {
	d, _ := buildSimpleTree(t)
	path := filepath.Join(t.TempDir(), "checkpoint.sqlite")

	s, err := OpenStateDB(path)
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer s.Close()

	if err := s.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("Load returned nil after a Save")
	}
	if len(loaded.Nodes) != len(d.Nodes) || len(loaded.Edges) != len(d.Edges) {
		t.Fatalf("Load returned %d nodes/%d edges, want %d/%d",
			len(loaded.Nodes), len(loaded.Edges), len(d.Nodes), len(d.Edges))
	}
	if !loaded.Ref.Equal(d.Ref) {
		t.Errorf("Load did not round-trip the reference sequence")
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate() on the round-tripped DAG: %v", err)
	}
}

func TestStateDBLoadFreshIsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.sqlite")
	s, err := OpenStateDB(path)
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer s.Close()

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Errorf("Load on a fresh state db should return (nil, nil), got %+v", loaded)
	}
}

func TestEncodeDecodeMutationEntries(t *testing.T) {
	entries := []MutationEntry{
		{Pos: 4, ParentBase: BaseT, ChildBase: BaseA},
		{Pos: 7, ParentBase: BaseC, ChildBase: BaseG},
	}
	encoded := encodeMutationEntries(entries)
	decoded, err := decodeMutationEntries(encoded)
	if err != nil {
		t.Fatalf("decodeMutationEntries: %v", err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("decoded %d entries, want %d", len(decoded), len(entries))
	}
	for i := range entries {
		if decoded[i] != entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, decoded[i], entries[i])
		}
	}
}

func TestDecodeMutationEntriesEmpty(t *testing.T) {
	decoded, err := decodeMutationEntries("")
	if err != nil {
		t.Fatalf("decodeMutationEntries(\"\"): %v", err)
	}
	if decoded != nil {
		t.Errorf("decodeMutationEntries(\"\") = %v, want nil", decoded)
	}
}
