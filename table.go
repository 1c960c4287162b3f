package shortmap

import (
	"encoding/binary"

	shorterrors "github.com/tamirms/shortmap/errors"
)

// entryTable is the open-addressing slot array over a flat byte region.
// Capacity is a power of two, so step and stepBack wrap with a precomputed
// byte-offset mask. Positions are byte offsets (slot index * entrySize)
// throughout; slot words are little-endian.
//
// All probe loops that must succeed are bounded by capacity iterations.
// Exhausting the bound means the table is corrupted or a caller contract was
// broken, and panics with shorterrors.ErrProbeLimit.
type entryTable struct {
	data     []byte
	capacity uint64
	mask     uint64 // capacity - 1, in slots
	byteMask uint64 // (capacity - 1) * entrySize, in byte offsets
}

func newEntryTable(data []byte, capacity uint64) entryTable {
	return entryTable{
		data:     data,
		capacity: capacity,
		mask:     capacity - 1,
		byteMask: (capacity - 1) * entrySize,
	}
}

// homePos returns the byte offset of key's home slot. key must be canonical.
func (t *entryTable) homePos(key uint64) uint64 {
	return (key & t.mask) << entrySizeShift
}

func (t *entryTable) step(pos uint64) uint64 {
	return (pos + entrySize) & t.byteMask
}

func (t *entryTable) stepBack(pos uint64) uint64 {
	return (pos - entrySize) & t.byteMask
}

func (t *entryTable) load(pos uint64) uint32 {
	return binary.LittleEndian.Uint32(t.data[pos:])
}

func (t *entryTable) store(pos uint64, e uint32) {
	binary.LittleEndian.PutUint32(t.data[pos:], e)
}

// insert writes (key, value) into the first empty slot reachable from key's
// home slot. key must be canonical; the caller guarantees value is not
// already present anywhere in the table.
func (t *entryTable) insert(key uint64, value uint16) {
	pos := t.homePos(key)
	for n := t.capacity; n > 0; n-- {
		if t.load(pos) == unsetEntry {
			t.store(pos, packEntry(key, value))
			return
		}
		pos = t.step(pos)
	}
	panic(shorterrors.ErrProbeLimit)
}

// find returns the byte offset of the slot holding exactly (key, value).
// The pair must be present: the scan does not stop at empty slots, because a
// caller asking to find an absent pair has already broken its contract, and
// exhausting the probe bound is reported as corruption rather than not-found.
func (t *entryTable) find(key uint64, value uint16) uint64 {
	want := packEntry(key, value)
	pos := t.homePos(key)
	for n := t.capacity; n > 0; n-- {
		if t.load(pos) == want {
			return pos
		}
		pos = t.step(pos)
	}
	panic(shorterrors.ErrProbeLimit)
}

// shiftFill restores the probe invariant after the entry at gap was removed.
// It scans forward from the gap; each occupied slot whose home lies within
// the half-open wrap-aware interval (home..gap..slot] can be slid back into
// the gap without breaking its own probe chain, and the gap advances to the
// vacated slot. The scan stops at the first empty slot and writes the empty
// sentinel into the final gap. No tombstones: the freed slot is immediately
// reusable.
//
// Termination: the table holds at least one empty slot after a removal, so
// the forward scan always reaches one.
func (t *entryTable) shiftFill(gap uint64) {
	pos := gap
	for {
		pos = t.step(pos)
		e := t.load(pos)
		if e == unsetEntry {
			break
		}
		home := t.homePos(entryKey(e))
		cond1 := home <= gap
		cond2 := gap <= pos
		if (cond1 && cond2) ||
			// chain wrapped around capacity
			(pos < home && (cond1 || cond2)) {
			t.store(gap, e)
			gap = pos
		}
	}
	t.store(gap, unsetEntry)
}

// forEach visits every occupied slot in raw slot order. The order carries no
// relation to insertion order or key order.
func (t *entryTable) forEach(visit func(key, value uint16) bool) {
	end := uint64(len(t.data))
	for pos := uint64(0); pos < end; pos += entrySize {
		if e := t.load(pos); e != unsetEntry {
			if !visit(uint16(entryKey(e)), entryValue(e)) {
				return
			}
		}
	}
}

// clear zeroes the byte region, returning the table to the empty state.
func (t *entryTable) clear() {
	clear(t.data)
}
