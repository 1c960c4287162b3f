package shortmap

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func mustNew(t testing.TB, minCapacity uint64) *Map {
	t.Helper()
	m, err := New(minCapacity)
	if err != nil {
		t.Fatalf("New(%d): %v", minCapacity, err)
	}
	return m
}

// slotEntry reads the raw slot word at the given slot index.
func slotEntry(m *Map, slot uint64) uint32 {
	return m.table.load(slot << entrySizeShift)
}

// collectAll gathers the occupied slots via ForEach as value -> key.
// Values are unique by contract, so the map form loses nothing.
func collectAll(t testing.TB, m *Map) map[uint16]uint16 {
	t.Helper()
	got := make(map[uint16]uint16)
	m.ForEach(func(k, v uint16) {
		if prev, dup := got[v]; dup {
			t.Fatalf("value %d appears under keys %d and %d", v, prev, k)
		}
		got[v] = k
	})
	return got
}

// searchValues enumerates every value linked to key through a fresh cursor.
func searchValues(t testing.TB, m *Map, key uint64) []uint16 {
	t.Helper()
	var values []uint16
	c := m.NewCursor()
	c.Start(key)
	for n := 0; ; n++ {
		if n > m.Capacity() {
			t.Fatal("cursor did not terminate")
		}
		v, ok := c.Next()
		if !ok {
			return values
		}
		values = append(values, v)
	}
}

// wantPanicErr runs fn and checks that it panics with a value matching the
// sentinel err.
func wantPanicErr(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %v, got none", want)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, want) {
			t.Fatalf("expected panic with %v, got %v", want, r)
		}
	}()
	fn()
}

// wantPanic runs fn and checks that it panics with any value.
func wantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic, got none")
		}
	}()
	fn()
}
