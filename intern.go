package main

import "sync"

// The CG/LeafSet/SampleId interning tables are the only process-wide
// mutable state in this system (§5 Shared-resource policy): shared
// read, sharded write. Each table is sharded by hash bucket, with one
// sync.Mutex guarding one bucket's map and collision list — the same
// lock-a-map idiom as the teacher's SafeSet (safeset.go), generalized
// from one mutex to a fixed number of shards so concurrent interning
// during a merge does not serialize on a single lock.
const internShardCount = 64

type cgInternShard struct {
	mu      sync.Mutex
	buckets map[uint64][]*CompactGenome
}

type cgInternTable struct {
	shards [internShardCount]*cgInternShard
}

func newCGInternTable() *cgInternTable {
	t := &cgInternTable{}
	for i := range t.shards {
		t.shards[i] = &cgInternShard{buckets: make(map[uint64][]*CompactGenome)}
	}
	return t
}

// Intern returns the canonical shared *CompactGenome equal to cg,
// inserting cg itself as that representative if none existed yet.
func (t *cgInternTable) Intern(cg *CompactGenome) *CompactGenome {
	if cg.Len() == 0 {
		return emptyCG
	}
	shard := t.shards[cg.Hash()%internShardCount]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	for _, existing := range shard.buckets[cg.Hash()] {
		if existing.Equal(cg) {
			return existing
		}
	}
	shard.buckets[cg.Hash()] = append(shard.buckets[cg.Hash()], cg)
	return cg
}

type lsInternShard struct {
	mu      sync.Mutex
	buckets map[uint64][]*LeafSet
}

type lsInternTable struct {
	shards [internShardCount]*lsInternShard
}

func newLSInternTable() *lsInternTable {
	t := &lsInternTable{}
	for i := range t.shards {
		t.shards[i] = &lsInternShard{buckets: make(map[uint64][]*LeafSet)}
	}
	return t
}

// Intern returns the canonical shared *LeafSet equal to ls.
func (t *lsInternTable) Intern(ls *LeafSet) *LeafSet {
	shard := t.shards[ls.Hash()%internShardCount]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	for _, existing := range shard.buckets[ls.Hash()] {
		if existing.Equal(ls) {
			return existing
		}
	}
	shard.buckets[ls.Hash()] = append(shard.buckets[ls.Hash()], ls)
	return ls
}

type sampleIdInternShard struct {
	mu   sync.Mutex
	dict map[string]*string
}

type sampleIdInternTable struct {
	shards [internShardCount]*sampleIdInternShard
}

func newSampleIdInternTable() *sampleIdInternTable {
	t := &sampleIdInternTable{}
	for i := range t.shards {
		t.shards[i] = &sampleIdInternShard{dict: make(map[string]*string)}
	}
	return t
}

func (t *sampleIdInternTable) Intern(s string) *string {
	shard := t.shards[fnvString(s)%internShardCount]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if p, ok := shard.dict[s]; ok {
		return p
	}
	p := &s
	shard.dict[s] = p
	return p
}

func fnvString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// Process-wide interning tables, documented init/teardown per Design
// Notes ("explicit process-wide state with documented init/teardown
// and sharded locks for concurrency; not ad-hoc statics").
var (
	globalCGTable     = newCGInternTable()
	globalLSTable     = newLSInternTable()
	globalSampleTable = newSampleIdInternTable()
)

// ResetGlobalInternTables discards all interned values. Exposed for
// tests and for long-running processes that want to bound memory
// between independent CLI invocations sharing one process (the CLI
// itself never calls this; every process run starts with fresh empty
// tables).
func ResetGlobalInternTables() {
	globalCGTable = newCGInternTable()
	globalLSTable = newLSInternTable()
	globalSampleTable = newSampleIdInternTable()
}
