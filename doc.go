// Package shortmap implements a fixed-capacity, off-heap multimap from
// 16-bit keys to 16-bit values over a flat byte region.
//
// A Map is the indexing core of a larger key-value store: it links a hash
// bucket's short key to one or more short value slots. Entries are packed
// (key,value) words in an open-addressing table with linear probing, and
// deletion uses backward shifting instead of tombstones, so deleted slots
// are immediately reusable and probe lengths stay stable under churn.
// A PositionSet bit vector tracks which values are present, independent of
// which key they are linked to.
//
// # Basic Usage
//
// In-memory:
//
//	m, err := shortmap.New(1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m.Put(key, value)
//
//	c := m.NewCursor()
//	c.Start(key)
//	for v, ok := c.Next(); ok; v, ok = c.Next() {
//	    // v is one of the values linked to key
//	}
//
// File-backed (regions live in a memory-mapped file and survive reopen):
//
//	f, err := shortmap.Create("buckets.smm", 1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//	f.Map().Put(key, value)
//	if err := f.Sync(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Structural mutation (Put, Remove, Replace, cursor mutation, Clear) assumes
// a single logical writer under external synchronization. PositionSet bit
// operations are atomic and safe to call concurrently with each other, which
// allows lock-light membership checks from reader threads.
//
// # Package Structure
//
//   - Public API: multimap.go (New, Attach, Put, Remove, Replace), cursor.go
//   - Slot layout: entry.go (packed words, sentinel), table.go (probing, shift-fill)
//   - Positions: positions.go (atomic bit vector)
//   - Persistence: file.go (Create, Open, Sync, Verify), fallocate_*.go,
//     prefault_*.go (OS-specific optimizations)
//   - Key folding: shortkey.go (ShortKey)
package shortmap
