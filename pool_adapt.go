package main

import (
	"strconv"

	pool "github.com/Emeline-1/pool"
)

// parallelOverIndices dispatches work(0), work(1), ..., work(n-1)
// across nThreads workers using the teacher's own worker-pool package.
// pool.Launch_pool only knows how to hand a []string to a func(string)
// (every call site in the teacher repo passes collector names, file
// paths, or similar), so indices are carried through as decimal
// strings and parsed back inside the closure — the same trick the
// teacher would need if its own batches weren't already strings.
func parallelOverIndices(nThreads, n int, work func(i int)) {
	if n == 0 {
		return
	}
	items := make([]string, n)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}
	pool.Launch_pool(nThreads, items, func(s string) {
		i, err := strconv.Atoi(s)
		if err != nil {
			return
		}
		work(i)
	})
}
