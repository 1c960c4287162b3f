package shortmap

import (
	"sync/atomic"
	"unsafe"

	shorterrors "github.com/tamirms/shortmap/errors"
)

const (
	wordBits  = 64
	wordBytes = 8
	wordShift = 6
	bitIndex  = wordBits - 1
)

// PositionSet is an atomic bit vector with one bit per value in
// [0, capacity). A set bit means the value currently appears somewhere in
// the table; the set is a derived index over the table, not independent
// truth.
//
// Set, Clear, IsSet, IsClear, and ClearAll are atomic with respect to each
// other and safe to call from multiple goroutines without external locking.
// They carry no ordering guarantee relative to the table's own structural
// mutations beyond being part of the same logical map operation.
type PositionSet struct {
	words []uint64
}

// positionWords returns the number of 64-bit words needed to cover capacity
// bits.
func positionWords(capacity uint64) uint64 {
	return (capacity + bitIndex) / wordBits
}

func newPositionSet(capacity uint64) *PositionSet {
	return &PositionSet{words: make([]uint64, positionWords(capacity))}
}

// attachPositionSet reinterprets an externally provisioned byte region as
// the word array, without reinitializing it. The region must be exactly
// RequiredPositionBytes(capacity) long and 8-byte aligned, so the words can
// be accessed atomically in place (including regions that are memory-mapped
// or shared across processes).
func attachPositionSet(buf []byte, capacity uint64) (*PositionSet, error) {
	if uint64(len(buf)) != positionWords(capacity)*wordBytes {
		return nil, shorterrors.ErrRegionSize
	}
	if uintptr(unsafe.Pointer(&buf[0]))&(wordBytes-1) != 0 {
		return nil, shorterrors.ErrRegionAlignment
	}
	words := unsafe.Slice((*uint64)(unsafe.Pointer(&buf[0])), len(buf)/wordBytes)
	return &PositionSet{words: words}, nil
}

func position(value uint16) (word int, mask uint64) {
	return int(value >> wordShift), uint64(1) << (value & bitIndex)
}

// Set marks value as present.
func (p *PositionSet) Set(value uint16) {
	w, mask := position(value)
	atomic.OrUint64(&p.words[w], mask)
}

// Clear marks value as absent.
func (p *PositionSet) Clear(value uint16) {
	w, mask := position(value)
	atomic.AndUint64(&p.words[w], ^mask)
}

// IsSet reports whether value is present.
func (p *PositionSet) IsSet(value uint16) bool {
	w, mask := position(value)
	return atomic.LoadUint64(&p.words[w])&mask != 0
}

// IsClear reports whether value is absent.
func (p *PositionSet) IsClear(value uint16) bool {
	return !p.IsSet(value)
}

// ClearAll clears every bit. Each word store is atomic, but the sweep as a
// whole is not a single atomic step; concurrent readers may observe a
// partially cleared set.
func (p *PositionSet) ClearAll() {
	for i := range p.words {
		atomic.StoreUint64(&p.words[i], 0)
	}
}
