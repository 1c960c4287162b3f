package shortmap

import (
	"fmt"
	"iter"
	"strings"

	shorterrors "github.com/tamirms/shortmap/errors"
	intbits "github.com/tamirms/shortmap/internal/bits"
)

// Map is a fixed-capacity multimap from 16-bit keys to 16-bit values over a
// flat byte region, composing the probing table with a PositionSet that
// tracks which values are present.
//
// Keys arrive as raw uint64 hashes; only the low 16 bits are used, and a raw
// key whose low 16 bits are 0 is stored under the canonical key 0xFFFF. Each
// value may appear at most once in the whole map (values are slot handles in
// the enclosing store), and every value must be below the map's capacity.
//
// Thread safety: structural mutation assumes a single logical writer under
// external synchronization. The PositionSet may be queried concurrently.
// A Map never resizes; callers that outgrow it must construct a new one.
type Map struct {
	table     entryTable
	positions *PositionSet
}

// New allocates a fresh zeroed map. minCapacity is rounded up to the next
// power of two, at most MaxCapacity.
func New(minCapacity uint64) (*Map, error) {
	capacity, err := roundCapacity(minCapacity)
	if err != nil {
		return nil, err
	}
	return &Map{
		table:     newEntryTable(make([]byte, capacity*entrySize), capacity),
		positions: newPositionSet(capacity),
	}, nil
}

// Attach wraps pre-existing entry and position regions without
// reinitializing them, e.g. regions reopened from persisted storage. The
// entry region's length determines the capacity and must be capacity*4 for
// some power-of-two capacity; the position region must be sized by
// RequiredPositionBytes for the same capacity and 8-byte aligned. The caller
// guarantees the regions already hold a consistent table, and that the map
// does not outlive them.
func Attach(entries, positions []byte) (*Map, error) {
	n := uint64(len(entries))
	if n == 0 || n%entrySize != 0 {
		return nil, shorterrors.ErrRegionSize
	}
	capacity := n / entrySize
	if !intbits.IsPow2(capacity) {
		return nil, shorterrors.ErrRegionSize
	}
	if capacity > MaxCapacity {
		return nil, shorterrors.ErrCapacityTooLarge
	}
	ps, err := attachPositionSet(positions, capacity)
	if err != nil {
		return nil, err
	}
	return &Map{table: newEntryTable(entries, capacity), positions: ps}, nil
}

// roundCapacity applies the capacity rounding rule shared by New, Create,
// and the Required*Bytes sizing functions.
func roundCapacity(minCapacity uint64) (uint64, error) {
	if minCapacity == 0 {
		return 0, shorterrors.ErrZeroCapacity
	}
	if minCapacity > MaxCapacity {
		return 0, shorterrors.ErrCapacityTooLarge
	}
	return intbits.NextPow2(minCapacity), nil
}

// RequiredEntryBytes returns the entry-region size a caller must provision
// before attaching, for the same rounding rule New applies: 4 bytes per slot
// for the smallest power-of-two capacity >= minCapacity.
func RequiredEntryBytes(minCapacity uint64) (uint64, error) {
	capacity, err := roundCapacity(minCapacity)
	if err != nil {
		return 0, err
	}
	return capacity * entrySize, nil
}

// RequiredPositionBytes returns the position-region size a caller must
// provision before attaching, rounded up to whole 64-bit words so the region
// can be accessed atomically in place.
func RequiredPositionBytes(minCapacity uint64) (uint64, error) {
	capacity, err := roundCapacity(minCapacity)
	if err != nil {
		return 0, err
	}
	return positionWords(capacity) * wordBytes, nil
}

// Capacity returns the slot count.
func (m *Map) Capacity() int {
	return int(m.table.capacity)
}

func (m *Map) checkValueForPut(value uint16) {
	if contractChecks {
		if uint64(value) >= m.table.capacity {
			panic(fmt.Sprintf("shortmap: value %d out of range for capacity %d", value, m.table.capacity))
		}
		if m.positions.IsSet(value) {
			panic(fmt.Sprintf("shortmap: value %d already present", value))
		}
	}
}

func (m *Map) checkValueForRemove(value uint16) {
	if contractChecks {
		if uint64(value) >= m.table.capacity {
			panic(fmt.Sprintf("shortmap: value %d out of range for capacity %d", value, m.table.capacity))
		}
		if m.positions.IsClear(value) {
			panic(fmt.Sprintf("shortmap: value %d not present", value))
		}
	}
}

// Put links value to key. value must not already be present anywhere in the
// map; violating that is a contract breach with undefined results.
func (m *Map) Put(key uint64, value uint16) {
	k := canonicalKey(key)
	m.checkValueForPut(value)
	m.table.insert(k, value)
	m.positions.Set(value)
}

// Remove unlinks (key, value). The pair must be present; asking to remove an
// absent pair is a contract breach, surfaced as an ErrProbeLimit panic when
// the bounded scan exhausts the table.
func (m *Map) Remove(key uint64, value uint16) {
	k := canonicalKey(key)
	m.checkValueForRemove(value)
	pos := m.table.find(k, value)
	m.positions.Clear(value)
	m.table.shiftFill(pos)
}

// Replace rewrites the value of the entry (key, oldValue) to newValue in
// place. The slot position is unchanged, so no shifting is needed: the probe
// chain is unaffected.
func (m *Map) Replace(key uint64, oldValue, newValue uint16) {
	k := canonicalKey(key)
	m.checkValueForRemove(oldValue)
	m.checkValueForPut(newValue)
	pos := m.table.find(k, oldValue)
	m.positions.Clear(oldValue)
	m.positions.Set(newValue)
	m.table.store(pos, packEntry(k, newValue))
}

// PutPosition marks value present without touching the table, for
// maintenance flows where the key association is tracked elsewhere by the
// caller. value must not already be marked.
func (m *Map) PutPosition(value uint16) {
	m.checkValueForPut(value)
	m.positions.Set(value)
}

// RemovePosition unmarks value without touching the table. value must be
// marked.
func (m *Map) RemovePosition(value uint16) {
	m.checkValueForRemove(value)
	m.positions.Clear(value)
}

// ForEach visits every occupied slot in raw slot order. The order carries no
// relation to insertion order or key order.
func (m *Map) ForEach(visit func(key, value uint16)) {
	m.table.forEach(func(k, v uint16) bool {
		visit(k, v)
		return true
	})
}

// All returns a lazy iterator over every occupied slot in raw slot order.
func (m *Map) All() iter.Seq2[uint16, uint16] {
	return func(yield func(uint16, uint16) bool) {
		m.table.forEach(yield)
	}
}

// Positions returns the position bit vector. Callers may query it
// concurrently; mutating it directly instead of through the Map breaks the
// derived-index invariant.
func (m *Map) Positions() *PositionSet {
	return m.positions
}

// Clear zeroes the entry region and clears every position bit, regardless of
// prior state.
func (m *Map) Clear() {
	m.positions.ClearAll()
	m.table.clear()
}

// String renders the occupied slots in slot order, for debugging.
func (m *Map) String() string {
	var sb strings.Builder
	sb.WriteString("{ ")
	first := true
	m.table.forEach(func(k, v uint16) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%d=%d", k, v)
		return true
	})
	if first {
		return "{ }"
	}
	sb.WriteString(" }")
	return sb.String()
}
