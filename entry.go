package shortmap

// Slot words are 32 bits: the high 16 bits hold the key, the low 16 bits the
// value. The all-zero word is the empty-slot sentinel, which is what makes a
// freshly zeroed byte region a valid empty table with no initialization pass.

const (
	// MaxCapacity is the largest supported slot count, fixed by the 16-bit
	// value domain.
	MaxCapacity = 1 << 16

	entrySize      = 4
	entrySizeShift = 2

	keyMask    = 0xFFFF
	unsetKey   = 0
	unsetEntry = uint32(0)

	// keyForZero replaces a canonical key of 0, which would otherwise be
	// indistinguishable from the empty sentinel.
	keyForZero = keyMask
)

// canonicalKey masks a raw key to the 16-bit domain and remaps 0, which is
// reserved for the empty sentinel. Applied at the API boundary before any
// probing, so the probe loops never special-case it.
func canonicalKey(key uint64) uint64 {
	key &= keyMask
	if key == unsetKey {
		return keyForZero
	}
	return key
}

// packEntry packs a canonicalized key and a value into one slot word.
func packEntry(key uint64, value uint16) uint32 {
	return uint32(key)<<16 | uint32(value)
}

func entryKey(e uint32) uint64 {
	return uint64(e >> 16)
}

func entryValue(e uint32) uint16 {
	return uint16(e & keyMask)
}
