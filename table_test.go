// table_test.go exercises the slot layout and probing core: entry packing,
// key canonicalization, collision chains, backward-shift deletion, and the
// probe-bound corruption checks.
package shortmap

import (
	"testing"

	shorterrors "github.com/tamirms/shortmap/errors"
)

func TestEntryPacking(t *testing.T) {
	rng := newTestRNG(t)
	for i := 0; i < 10000; i++ {
		key := rng.Uint64N(1<<16-1) + 1 // canonical keys are never 0
		value := uint16(rng.Uint64())
		e := packEntry(key, value)
		if entryKey(e) != key {
			t.Fatalf("entryKey(packEntry(0x%X, %d)) = 0x%X", key, value, entryKey(e))
		}
		if entryValue(e) != value {
			t.Fatalf("entryValue(packEntry(0x%X, %d)) = %d", key, value, entryValue(e))
		}
	}
}

func TestCanonicalKey(t *testing.T) {
	cases := []struct {
		raw  uint64
		want uint64
	}{
		{0, 0xFFFF},
		{0x10000, 0xFFFF},    // low 16 bits zero
		{0xABCD0000, 0xFFFF}, // low 16 bits zero, high bits ignored
		{1, 1},
		{0xFFFF, 0xFFFF},
		{0x1234ABCD, 0xABCD}, // only low 16 bits survive
	}
	for _, tc := range cases {
		if got := canonicalKey(tc.raw); got != tc.want {
			t.Errorf("canonicalKey(0x%X) = 0x%X, want 0x%X", tc.raw, got, tc.want)
		}
	}
}

// TestCollisionShiftsBackward is the canonical backward-shift scenario:
// capacity 8, (key=1,value=5) lands in its home slot 1, (key=9,value=6)
// shares the home slot (9 & 7 == 1) and probes to slot 2. Removing (1,5)
// must slide (9,6) back into slot 1 and leave slot 2 empty.
func TestCollisionShiftsBackward(t *testing.T) {
	m := mustNew(t, 8)
	m.Put(1, 5)
	m.Put(9, 6)

	if e := slotEntry(m, 1); e != packEntry(1, 5) {
		t.Fatalf("slot 1 = %08x, want (1,5)", e)
	}
	if e := slotEntry(m, 2); e != packEntry(9&keyMask, 6) {
		t.Fatalf("slot 2 = %08x, want (9,6)", e)
	}

	m.Remove(1, 5)

	if e := slotEntry(m, 1); e != packEntry(9&keyMask, 6) {
		t.Fatalf("after remove, slot 1 = %08x, want (9,6)", e)
	}
	if e := slotEntry(m, 2); e != unsetEntry {
		t.Fatalf("after remove, slot 2 = %08x, want empty", e)
	}

	got := collectAll(t, m)
	if len(got) != 1 || got[6] != 9 {
		t.Fatalf("forEach after shift = %v, want {6:9}", got)
	}
	if vs := searchValues(t, m, 9); len(vs) != 1 || vs[0] != 6 {
		t.Fatalf("search(9) after shift = %v, want [6]", vs)
	}
}

// TestShiftAcrossWraparound removes an entry whose chain wraps past the end
// of the table, exercising the wrap-aware interval condition. With capacity
// 8, keys with home slot 7 overflow into slot 0.
func TestShiftAcrossWraparound(t *testing.T) {
	m := mustNew(t, 8)
	m.Put(7, 1)  // home 7, lands in slot 7
	m.Put(15, 2) // home 7 (15 & 7), wraps to slot 0
	m.Put(15, 3) // same key, wraps to slot 1

	if e := slotEntry(m, 0); e != packEntry(15, 2) {
		t.Fatalf("slot 0 = %08x, want (15,2)", e)
	}

	m.Remove(7, 1)

	if vs := searchValues(t, m, 7); len(vs) != 0 {
		t.Fatalf("search(7) = %v, want none", vs)
	}
	// Both survivors must still be reachable from home slot 7: (15,2) slid
	// back into slot 7, (15,3) into slot 0.
	vs := searchValues(t, m, 15)
	if len(vs) != 2 || vs[0] != 2 || vs[1] != 3 {
		t.Fatalf("search(15) = %v, want [2 3]", vs)
	}
	if e := slotEntry(m, 7); e != packEntry(15, 2) {
		t.Fatalf("slot 7 = %08x, want (15,2) slid back", e)
	}
	if e := slotEntry(m, 1); e != unsetEntry {
		t.Fatalf("slot 1 = %08x, want empty", e)
	}
}

func TestKeyZeroRemap(t *testing.T) {
	m := mustNew(t, 16)
	m.Put(0, 3)

	// Stored under the canonical replacement key.
	got := collectAll(t, m)
	if got[3] != keyForZero {
		t.Fatalf("raw key 0 stored under key %d, want %d", got[3], uint16(keyForZero))
	}

	// A lookup with raw key 0 finds it.
	if vs := searchValues(t, m, 0); len(vs) != 1 || vs[0] != 3 {
		t.Fatalf("search(0) = %v, want [3]", vs)
	}
	// So does any raw key whose low 16 bits are zero.
	if vs := searchValues(t, m, 0xAB0000); len(vs) != 1 || vs[0] != 3 {
		t.Fatalf("search(0xAB0000) = %v, want [3]", vs)
	}

	m.Remove(0, 3)
	if got := collectAll(t, m); len(got) != 0 {
		t.Fatalf("map not empty after removing raw key 0: %v", got)
	}
}

// TestInsertOverflowFatal fills an 8-slot table past capacity under a single
// key. The 9th insert cannot find an empty slot within the probe bound and
// must fail the corruption check rather than loop forever.
func TestInsertOverflowFatal(t *testing.T) {
	m := mustNew(t, 8)
	for v := uint16(0); v < 8; v++ {
		m.Put(1, v)
	}
	wantPanicErr(t, shorterrors.ErrProbeLimit, func() {
		m.table.insert(1, 8)
	})
}

// TestRemoveAbsentFatal asks to remove a pair that is not present. The
// bounded match scan exhausts the table and reports corruption; it never
// degrades to a silent not-found.
func TestRemoveAbsentFatal(t *testing.T) {
	if contractChecks {
		t.Skip("contract checks catch this before the probe scan")
	}
	m := mustNew(t, 8)
	m.Put(1, 5)
	wantPanicErr(t, shorterrors.ErrProbeLimit, func() {
		m.Remove(1, 6)
	})
}

// TestProbeChainIntegrity churns inserts and removes across colliding keys
// and checks after every operation that each live value remains reachable by
// probing forward from its key's home slot, stopping at the first empty
// slot.
func TestProbeChainIntegrity(t *testing.T) {
	rng := newTestRNG(t)
	const capacity = 64
	m := mustNew(t, capacity)

	// Keys drawn from a small set so home slots collide constantly.
	keys := []uint64{3, 11, 19, 3 + capacity, 11 + capacity, 5, 0}
	live := make(map[uint16]uint64) // value -> key

	check := func() {
		t.Helper()
		for v, k := range live {
			found := false
			for _, got := range searchValues(t, m, k) {
				if got == v {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("value %d under key %d unreachable from home slot", v, k)
			}
		}
		got := collectAll(t, m)
		if len(got) != len(live) {
			t.Fatalf("forEach sees %d entries, model has %d", len(got), len(live))
		}
	}

	for op := 0; op < 4000; op++ {
		if len(live) < capacity*3/4 && (len(live) == 0 || rng.IntN(2) == 0) {
			// insert a fresh value
			v := uint16(rng.IntN(capacity))
			if _, taken := live[v]; taken {
				continue
			}
			k := keys[rng.IntN(len(keys))]
			m.Put(k, v)
			live[v] = k
		} else {
			// remove a random live value
			for v, k := range live {
				m.Remove(k, v)
				delete(live, v)
				break
			}
		}
		check()
	}
}

func TestForEachSlotOrder(t *testing.T) {
	m := mustNew(t, 8)
	m.Put(6, 1)
	m.Put(2, 2)
	m.Put(4, 3)

	var order []uint16
	m.ForEach(func(_, v uint16) {
		order = append(order, v)
	})
	// Raw slot order: slots 2, 4, 6.
	want := []uint16{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("forEach visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("forEach visited %v, want %v", order, want)
		}
	}
}
