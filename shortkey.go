package shortmap

import (
	"github.com/zeebo/xxh3"

	intbits "github.com/tamirms/shortmap/internal/bits"
)

// ShortKey folds an arbitrary byte key into the 16-bit short-key domain
// using xxHash3 and an unbiased fastrange fold. The result is a raw key:
// pass it to Map operations, which canonicalize it (a fold of 0 is remapped
// away from the empty sentinel internally, and a lookup with the same raw
// key finds what was stored).
//
// Use this when the enclosing store does not already carry a hash for the
// full key. If it does, hand the hash bits to the Map directly; only the low
// 16 bits are used.
func ShortKey(key []byte) uint64 {
	return uint64(intbits.FastRange32(xxh3.Hash(key), MaxCapacity))
}
