// Package checkpoint implements the append-only checkpoint log written
// every CheckpointInterval lines during indexing (spec.md §4.2,
// §4.4-§4.5): 64-byte records carrying the line/byte position, a content
// hash for tamper/resume verification, and cumulative severity counts.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Size is the fixed on-disk size of a checkpoint record, in bytes.
const Size = 64

// SeverityCounts is the cumulative count of each severity level observed up
// to (and including) this checkpoint's line.
type SeverityCounts struct {
	Unknown uint32
	Trace   uint32
	Debug   uint32
	Info    uint32
	Warn    uint32
	Error   uint32
	Fatal   uint32
}

// Record is a single checkpoint entry.
type Record struct {
	LineNumber     uint64
	ByteOffset     uint64
	ContentHash    uint64
	IndexTimestamp uint64
	SeverityCounts SeverityCounts
}

// Encode serializes r into a 64-byte little-endian buffer.
func (r Record) Encode() [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint64(buf[0:8], r.LineNumber)
	binary.LittleEndian.PutUint64(buf[8:16], r.ByteOffset)
	binary.LittleEndian.PutUint64(buf[16:24], r.ContentHash)
	binary.LittleEndian.PutUint64(buf[24:32], r.IndexTimestamp)
	binary.LittleEndian.PutUint32(buf[32:36], r.SeverityCounts.Unknown)
	binary.LittleEndian.PutUint32(buf[36:40], r.SeverityCounts.Trace)
	binary.LittleEndian.PutUint32(buf[40:44], r.SeverityCounts.Debug)
	binary.LittleEndian.PutUint32(buf[44:48], r.SeverityCounts.Info)
	binary.LittleEndian.PutUint32(buf[48:52], r.SeverityCounts.Warn)
	binary.LittleEndian.PutUint32(buf[52:56], r.SeverityCounts.Error)
	binary.LittleEndian.PutUint32(buf[56:60], r.SeverityCounts.Fatal)
	// bytes 60..64 reserved (zero).
	return buf
}

// Decode parses a Record from a 64-byte buffer.
func Decode(buf [Size]byte) Record {
	return Record{
		LineNumber:     binary.LittleEndian.Uint64(buf[0:8]),
		ByteOffset:     binary.LittleEndian.Uint64(buf[8:16]),
		ContentHash:    binary.LittleEndian.Uint64(buf[16:24]),
		IndexTimestamp: binary.LittleEndian.Uint64(buf[24:32]),
		SeverityCounts: SeverityCounts{
			Unknown: binary.LittleEndian.Uint32(buf[32:36]),
			Trace:   binary.LittleEndian.Uint32(buf[36:40]),
			Debug:   binary.LittleEndian.Uint32(buf[40:44]),
			Info:    binary.LittleEndian.Uint32(buf[44:48]),
			Warn:    binary.LittleEndian.Uint32(buf[48:52]),
			Error:   binary.LittleEndian.Uint32(buf[52:56]),
			Fatal:   binary.LittleEndian.Uint32(buf[56:60]),
		},
	}
}

// Writer appends checkpoint records to a file.
type Writer struct {
	file *os.File
}

// Create truncates (or creates) path and returns a Writer positioned at
// its start.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: create %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Open opens an existing checkpoint file for appending, for resume.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// TruncateAndOpen drops any checkpoint record whose LineNumber exceeds
// lineCount (the meta header's entry_count) and reopens the file for
// append, for resuming an interrupted indexing run. A record past
// lineCount can only be a partial write from a crash that never made it
// into the column files, so it cannot be trusted as a resume point.
func TruncateAndOpen(path string, lineCount uint64) (*Writer, error) {
	keep := 0
	if r, err := OpenReader(path); err == nil {
		for i := 0; i < r.Len(); i++ {
			rec, _ := r.Get(i)
			if rec.LineNumber > lineCount {
				break
			}
			keep = i + 1
		}
		r.Close()
	}

	if err := os.Truncate(path, int64(keep)*Size); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("checkpoint: truncate %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Push appends a single checkpoint record.
func (w *Writer) Push(r Record) error {
	buf := r.Encode()
	if _, err := w.file.Write(buf[:]); err != nil {
		return fmt.Errorf("checkpoint: push: %w", err)
	}
	return nil
}

// Flush persists buffered writes to disk.
func (w *Writer) Flush() error {
	return w.file.Sync()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Reader memory-maps a checkpoint file read-only.
type Reader struct {
	data       []byte
	entryCount int
}

// OpenReader maps path. An empty or missing-content file maps to a Reader
// with zero entries rather than an error.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: stat %s: %w", path, err)
	}

	size := int(st.Size())
	if size == 0 {
		return &Reader{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: mmap %s: %w", path, err)
	}

	return &Reader{data: data, entryCount: size / Size}, nil
}

// Len returns the number of complete checkpoint records in the file.
func (r *Reader) Len() int { return r.entryCount }

// Get returns the record at index, or ok=false if out of range.
func (r *Reader) Get(index int) (rec Record, ok bool) {
	if index < 0 || index >= r.entryCount {
		return Record{}, false
	}
	off := index * Size
	var buf [Size]byte
	copy(buf[:], r.data[off:off+Size])
	return Decode(buf), true
}

// Last returns the most recent checkpoint, or ok=false if the log is empty.
func (r *Reader) Last() (Record, bool) {
	if r.entryCount == 0 {
		return Record{}, false
	}
	return r.Get(r.entryCount - 1)
}

// All returns every record in order. Used by verification and by the
// viewer's approximate severity-histogram display.
func (r *Reader) All() []Record {
	out := make([]Record, r.entryCount)
	for i := range out {
		out[i], _ = r.Get(i)
	}
	return out
}

// Close unmaps the underlying file.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}

// VerifyMonotonic checks that line_number and byte_offset are strictly
// increasing across consecutive records, the invariant a resumed indexing
// run relies on to trust the last checkpoint as a safe restart point. It
// is not present in the original Rust checkpoint module, which only
// appends and reads; it's added here because spec.md's resume semantics
// for internal/lineindexer depend on the checkpoint log never going
// backwards, and that's worth checking explicitly rather than trusting
// silently.
func VerifyMonotonic(records []Record) error {
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.LineNumber <= prev.LineNumber {
			return fmt.Errorf("checkpoint: line_number not increasing at index %d (%d <= %d)", i, cur.LineNumber, prev.LineNumber)
		}
		if cur.ByteOffset <= prev.ByteOffset {
			return fmt.Errorf("checkpoint: byte_offset not increasing at index %d (%d <= %d)", i, cur.ByteOffset, prev.ByteOffset)
		}
	}
	return nil
}
