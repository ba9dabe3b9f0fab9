// Package indexmeta implements the 64-byte "meta" header written once per
// index directory (spec.md §3, §4.2): a magic-versioned record identifying
// the total entry count, the log file size at index time, and the bitmap of
// columns present. It is replaced atomically via temp-file rename so a
// reader never observes a partially written header.
package indexmeta

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// Magic is the 4-byte ASCII identifier for an ltix index header.
	Magic = "LTIX"

	// Version is the only header version this package understands.
	Version uint16 = 1

	// Size is the fixed on-disk size of the header, in bytes.
	Size = 64
)

// Column bits within Header.ColumnsPresent.
const (
	ColumnOffsets uint64 = 1 << iota
	ColumnLengths
	ColumnTime
	ColumnFlags
	ColumnTemplates
	ColumnCheckpoints
)

// AllColumns is the bitmap set by a complete index build: every column
// except Templates, which only a structured-log template extractor (not
// part of either indexer) would populate.
const AllColumns = ColumnOffsets | ColumnLengths | ColumnTime | ColumnFlags | ColumnCheckpoints

// Header is the decoded form of the 64-byte meta record.
type Header struct {
	Version             uint16
	CheckpointInterval   uint16
	EntryCount           uint64
	LogFileSize          uint64
	ColumnsPresent       uint64
	FlagsSchemaVersion   uint16
}

// Errors returned by ReadFrom when the header is malformed. Callers should
// treat any of these as a signal to rebuild the index (spec.md §7).
var (
	ErrBadMagic            = fmt.Errorf("indexmeta: bad magic")
	ErrUnsupportedVersion  = fmt.Errorf("indexmeta: unsupported version")
	ErrTruncated           = fmt.Errorf("indexmeta: truncated header")
)

// Encode serializes h into a 64-byte little-endian buffer.
func (h Header) Encode() [Size]byte {
	var buf [Size]byte
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.CheckpointInterval)
	binary.LittleEndian.PutUint64(buf[8:16], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.LogFileSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.ColumnsPresent)
	binary.LittleEndian.PutUint16(buf[32:34], h.FlagsSchemaVersion)
	// bytes 34..64 remain zero (reserved).
	return buf
}

// Decode parses a Header from a 64-byte buffer. Callers should validate
// Magic/Version separately via ReadFrom; Decode itself does not fail.
func Decode(buf [Size]byte) Header {
	return Header{
		Version:            binary.LittleEndian.Uint16(buf[4:6]),
		CheckpointInterval: binary.LittleEndian.Uint16(buf[6:8]),
		EntryCount:         binary.LittleEndian.Uint64(buf[8:16]),
		LogFileSize:        binary.LittleEndian.Uint64(buf[16:24]),
		ColumnsPresent:     binary.LittleEndian.Uint64(buf[24:32]),
		FlagsSchemaVersion: binary.LittleEndian.Uint16(buf[32:34]),
	}
}

// HasColumn reports whether bit is set in ColumnsPresent.
func (h Header) HasColumn(bit uint64) bool {
	return h.ColumnsPresent&bit != 0
}

// WriteTo atomically replaces path with the encoded header: it writes to
// path+".tmp" and renames onto path, so a concurrent reader never observes a
// half-written file.
func WriteTo(path string, h Header) error {
	tmp := path + ".tmp"
	buf := h.Encode()
	if err := os.WriteFile(tmp, buf[:], 0644); err != nil {
		return fmt.Errorf("indexmeta: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("indexmeta: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ReadFrom reads and validates the header at path.
func ReadFrom(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, fmt.Errorf("indexmeta: read %s: %w", path, err)
	}
	if len(data) < Size {
		return Header{}, ErrTruncated
	}
	if string(data[0:4]) != Magic {
		return Header{}, ErrBadMagic
	}
	var buf [Size]byte
	copy(buf[:], data[:Size])
	h := Decode(buf)
	if h.Version != Version {
		return Header{}, ErrUnsupportedVersion
	}
	return h, nil
}
