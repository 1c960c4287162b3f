package shortmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	shorterrors "github.com/tamirms/shortmap/errors"
	intbits "github.com/tamirms/shortmap/internal/bits"
)

const (
	// magic number for shortmap files, "SSMM" in little-endian
	fileMagic = uint32(0x4D4D5353)

	// fileVersion is the current format version
	fileVersion = uint16(0x0001)

	// headerSize is the exact size of the serialized header (32 bytes)
	headerSize = 32

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32
)

// fileHeader is the 32-byte file header.
//
// Layout:
//
//	Offset  Size  Field     Type
//	0       4     Magic     0x4D4D5353 ("SSMM")
//	4       2     Version   0x0001
//	6       2     Reserved0 (zero)
//	8       8     Capacity  uint64_le (power of two, <= 2^16)
//	16      16    Reserved  [16]byte (zero)
type fileHeader struct {
	Magic    uint32
	Version  uint16
	Capacity uint64
}

// encodeTo serializes the header to an existing buffer.
func (h *fileHeader) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], h.Capacity)
	clear(buf[16:headerSize])
}

// decodeFileHeader parses and validates a 32-byte header.
func decodeFileHeader(buf []byte) (*fileHeader, error) {
	if len(buf) < headerSize {
		return nil, shorterrors.ErrTruncatedFile
	}
	h := &fileHeader{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:  binary.LittleEndian.Uint16(buf[4:6]),
		Capacity: binary.LittleEndian.Uint64(buf[8:16]),
	}
	if h.Magic != fileMagic {
		return nil, shorterrors.ErrInvalidMagic
	}
	if h.Version != fileVersion {
		return nil, shorterrors.ErrInvalidVersion
	}
	if !intbits.IsPow2(h.Capacity) || h.Capacity > MaxCapacity {
		return nil, shorterrors.ErrRegionSize
	}
	return h, nil
}

// fileFooter is the 32-byte footer holding region checksums, written by
// Sync.
//
// Layout:
//
//	Offset  Size  Field               Type
//	0       8     EntryRegionHash     uint64_le (xxHash64 of entry region)
//	8       8     PositionRegionHash  uint64_le (xxHash64 of position region)
//	16      16    Reserved            [16]byte (zero)
type fileFooter struct {
	EntryRegionHash    uint64
	PositionRegionHash uint64
}

func (f *fileFooter) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.EntryRegionHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.PositionRegionHash)
	clear(buf[16:footerSize])
}

func decodeFileFooter(buf []byte) (*fileFooter, error) {
	if len(buf) < footerSize {
		return nil, shorterrors.ErrTruncatedFile
	}
	return &fileFooter{
		EntryRegionHash:    binary.LittleEndian.Uint64(buf[0:8]),
		PositionRegionHash: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// fileLayout holds the region offsets for a given capacity.
// File layout: [Header 32B][Entry region cap*4][pad][Position region][Footer 32B]
// The position region is aligned to 8 bytes so its words can be accessed
// atomically through the mapping.
type fileLayout struct {
	entryOff   uint64
	entryBytes uint64
	posOff     uint64
	posBytes   uint64
	footerOff  uint64
	totalSize  uint64
}

func layoutFor(capacity uint64) fileLayout {
	var l fileLayout
	l.entryOff = headerSize
	l.entryBytes = capacity * entrySize
	l.posOff = (l.entryOff + l.entryBytes + wordBytes - 1) &^ (wordBytes - 1)
	l.posBytes = positionWords(capacity) * wordBytes
	l.footerOff = l.posOff + l.posBytes
	l.totalSize = l.footerOff + footerSize
	return l
}

// File is a Map persisted in a memory-mapped file, so the table and its
// position bits survive reopen and may be shared with other processes. The
// file supplies no cross-process mutual exclusion; sharers must coordinate
// externally.
//
// Thread safety follows Map: one logical writer. Close is not safe to call
// concurrently with operations on the attached Map, and no method may be
// called after Close returns.
type File struct {
	mmap   mmap.MMap
	layout fileLayout
	m      *Map
	closed atomic.Bool
}

// Create creates path, preallocates it for minCapacity (rounded up to the
// next power of two), and maps a fresh empty Map into it. The file must not
// already exist. A freshly allocated file reads as zeroes, which is exactly
// the empty table, so no initialization pass touches the regions.
func Create(path string, minCapacity uint64) (*File, error) {
	capacity, err := roundCapacity(minCapacity)
	if err != nil {
		return nil, err
	}
	layout := layoutFor(capacity)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create map file: %w", err)
	}
	if err := fallocateFile(f, int64(layout.totalSize)); err != nil {
		err = fmt.Errorf("preallocate map file: %w", err)
		return nil, errors.Join(err, f.Close(), os.Remove(path))
	}

	fl, err := mapFile(f, layout)
	if err != nil {
		return nil, errors.Join(err, f.Close(), os.Remove(path))
	}
	if err := f.Close(); err != nil {
		return nil, errors.Join(fmt.Errorf("close map file: %w", err), fl.Close(), os.Remove(path))
	}

	hdr := fileHeader{Magic: fileMagic, Version: fileVersion, Capacity: capacity}
	hdr.encodeTo(fl.mmap[:headerSize])
	return fl, nil
}

// Open memory-maps an existing map file and attaches to its regions without
// reinitializing them. Per POSIX mmap(2), the file descriptor is closed
// before Open returns.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open map file: %w", err)
	}
	defer f.Close()
	return OpenFile(f)
}

// OpenFile memory-maps an existing map file given an open handle. The caller
// is responsible for closing f, which may happen immediately after OpenFile
// returns.
func OpenFile(f *os.File) (*File, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat map file: %w", err)
	}
	if stat.Size() < headerSize+footerSize {
		return nil, shorterrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap map file: %w", err)
	}

	hdr, err := decodeFileHeader(mm[:headerSize])
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	layout := layoutFor(hdr.Capacity)
	if uint64(stat.Size()) != layout.totalSize {
		return nil, errors.Join(shorterrors.ErrTruncatedFile, mm.Unmap())
	}

	fl := &File{mmap: mm, layout: layout}
	prefaultRegion(mm)
	fl.m, err = Attach(fl.entryRegion(), fl.positionRegion())
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	return fl, nil
}

// mapFile maps a file already sized to layout.totalSize and attaches a Map.
func mapFile(f *os.File, layout fileLayout) (*File, error) {
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap map file: %w", err)
	}
	fl := &File{mmap: mm, layout: layout}
	prefaultRegion(mm)
	fl.m, err = Attach(fl.entryRegion(), fl.positionRegion())
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	return fl, nil
}

func (fl *File) entryRegion() []byte {
	return fl.mmap[fl.layout.entryOff : fl.layout.entryOff+fl.layout.entryBytes]
}

func (fl *File) positionRegion() []byte {
	return fl.mmap[fl.layout.posOff : fl.layout.posOff+fl.layout.posBytes]
}

// Map returns the multimap attached to the file's regions. It remains valid
// until Close.
func (fl *File) Map() *Map {
	return fl.m
}

// Capacity returns the slot count recorded in the file header.
func (fl *File) Capacity() int {
	return fl.m.Capacity()
}

// Sync recomputes the footer checksums over both regions and flushes the
// mapping to disk. Call it at a quiescent point: the checksums describe the
// regions as they are now, and any later mutation invalidates them until the
// next Sync.
func (fl *File) Sync() error {
	if fl.closed.Load() {
		return shorterrors.ErrFileClosed
	}
	ft := fileFooter{
		EntryRegionHash:    xxhash.Sum64(fl.entryRegion()),
		PositionRegionHash: xxhash.Sum64(fl.positionRegion()),
	}
	ft.encodeTo(fl.mmap[fl.layout.footerOff:])
	if err := fl.mmap.Flush(); err != nil {
		return fmt.Errorf("flush map file: %w", err)
	}
	return nil
}

// Verify checks both region checksums against the footer. It is only
// meaningful for a file that has not been mutated since its last Sync.
func (fl *File) Verify() error {
	if fl.closed.Load() {
		return shorterrors.ErrFileClosed
	}
	ft, err := decodeFileFooter(fl.mmap[fl.layout.footerOff:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(fl.entryRegion()) != ft.EntryRegionHash {
		return shorterrors.ErrChecksumFailed
	}
	if xxhash.Sum64(fl.positionRegion()) != ft.PositionRegionHash {
		return shorterrors.ErrChecksumFailed
	}
	return nil
}

// Close unmaps the file and invalidates the attached Map. Unsynced mutations
// reach the file at the kernel's discretion; call Sync first for durability.
func (fl *File) Close() error {
	if fl.closed.Swap(true) {
		return nil // Already closed
	}
	return fl.mmap.Unmap()
}
