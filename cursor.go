package shortmap

import (
	shorterrors "github.com/tamirms/shortmap/errors"
)

type cursorState uint8

const (
	cursorIdle cursorState = iota
	cursorScanning
	cursorHit
	cursorMiss
)

// Cursor is a resumable probe scan for a single key, splitting "find" from
// "mutate" so a caller can enumerate, insert-on-miss, or delete/replace-on-
// hit without re-scanning from the home slot.
//
// The protocol is an explicit state machine: Start moves to scanning, each
// Next performs exactly one more step of forward search and ends in hit
// (value returned) or miss (empty slot recorded), and the mutation methods
// are valid only in the state their names imply. Calling a method out of
// protocol panics rather than corrupting the table.
//
// A Cursor must not be shared across concurrent callers, and the underlying
// map must not be structurally mutated by another actor while a scan is in
// progress. Cursors are cheap to reuse: call Start again for the next key.
type Cursor struct {
	m     *Map
	key   uint64 // canonicalized search key
	pos   uint64 // next byte offset to examine (after a hit: one past the hit slot)
	state cursorState
}

// NewCursor returns an idle cursor over m.
func (m *Map) NewCursor() *Cursor {
	return &Cursor{m: m}
}

// Start positions the cursor at key's home slot and begins a new scan,
// discarding any scan in progress.
func (c *Cursor) Start(key uint64) {
	c.key = canonicalKey(key)
	c.pos = c.m.table.homePos(c.key)
	c.state = cursorScanning
}

// Next performs one more step of forward search. On a hit it returns the
// entry's value and true; on reaching an empty slot it records that slot for
// PutAfterMiss and returns false. Next may be called repeatedly after hits
// to enumerate every value linked to the key; the probe is bounded by the
// table capacity and panics with ErrProbeLimit if the bound is exhausted.
func (c *Cursor) Next() (uint16, bool) {
	if c.state != cursorScanning && c.state != cursorHit {
		panic("shortmap: Cursor.Next without a search in progress")
	}
	t := &c.m.table
	pos := c.pos
	for n := t.capacity; n > 0; n-- {
		e := t.load(pos)
		if e == unsetEntry {
			c.pos = pos
			c.state = cursorMiss
			return 0, false
		}
		pos = t.step(pos)
		if entryKey(e) == c.key {
			c.pos = pos
			c.state = cursorHit
			return entryValue(e), true
		}
	}
	panic(shorterrors.ErrProbeLimit)
}

// RemovePrev removes the entry returned by the immediately preceding hit:
// its position bit is cleared and the shift-fill deletion runs at its slot.
// The shift may relocate entries, so the scan ends; the cursor returns to
// idle.
func (c *Cursor) RemovePrev() {
	if c.state != cursorHit {
		panic("shortmap: Cursor.RemovePrev without a preceding hit")
	}
	t := &c.m.table
	prev := t.stepBack(c.pos)
	c.m.positions.Clear(entryValue(t.load(prev)))
	t.shiftFill(prev)
	c.state = cursorIdle
}

// ReplacePrev overwrites the value of the entry returned by the immediately
// preceding hit, moving the position bit from the old value to newValue. The
// slot does not move, so the scan may continue with further Next calls.
func (c *Cursor) ReplacePrev(newValue uint16) {
	if c.state != cursorHit {
		panic("shortmap: Cursor.ReplacePrev without a preceding hit")
	}
	m := c.m
	m.checkValueForPut(newValue)
	t := &m.table
	prev := t.stepBack(c.pos)
	m.positions.Clear(entryValue(t.load(prev)))
	m.positions.Set(newValue)
	t.store(prev, packEntry(c.key, newValue))
	c.state = cursorScanning
}

// PutAfterMiss writes (searchKey, value) into the empty slot recorded by the
// immediately preceding miss and marks value present. The cursor returns to
// idle.
func (c *Cursor) PutAfterMiss(value uint16) {
	if c.state != cursorMiss {
		panic("shortmap: Cursor.PutAfterMiss without a preceding miss")
	}
	m := c.m
	m.checkValueForPut(value)
	m.positions.Set(value)
	m.table.store(c.pos, packEntry(c.key, value))
	c.state = cursorIdle
}
