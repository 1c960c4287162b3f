// Package errors defines all exported error sentinels for the shortmap
// library.
//
// This is the single source of truth for error values, ensuring errors.Is
// checks work for callers without reaching into internals.
package errors

import "errors"

// Construction errors
var (
	ErrZeroCapacity     = errors.New("shortmap: capacity must be at least 1")
	ErrCapacityTooLarge = errors.New("shortmap: capacity exceeds maximum (2^16)")
	ErrRegionSize       = errors.New("shortmap: region length does not match any valid capacity")
	ErrRegionAlignment  = errors.New("shortmap: position region is not 8-byte aligned")
)

// Corruption faults. ErrProbeLimit is raised via panic, never returned: a
// bounded probe scan that exhausts the table means the structure is corrupted
// or a caller contract was broken, and neither is recoverable at runtime.
var (
	ErrProbeLimit = errors.New("shortmap: probe scan exceeded capacity: table corrupted or overfull")
)

// File errors
var (
	ErrInvalidMagic   = errors.New("shortmap: invalid magic number")
	ErrInvalidVersion = errors.New("shortmap: unsupported version")
	ErrTruncatedFile  = errors.New("shortmap: map file is truncated")
	ErrChecksumFailed = errors.New("shortmap: file checksum verification failed")
	ErrFileClosed     = errors.New("shortmap: map file is closed")
)
