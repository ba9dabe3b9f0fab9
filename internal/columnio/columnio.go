// Package columnio implements fixed-width, little-endian, append-only
// column files: offsets (u64), lengths (u32), flags (u32), and time (u64)
// arrays aligned by entry index (spec.md §3, §4.1). A Writer buffers
// appended elements and flushes them in batches; a Reader memory-maps the
// file read-only and decodes elements directly out of the mapping with no
// intermediate copy.
package columnio

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Numeric is the set of element widths ColumnIO supports: 2, 4, or 8 bytes.
type Numeric interface {
	~uint16 | ~uint32 | ~uint64
}

// ElemSize returns the byte width of T, always 2, 4, or 8.
func ElemSize[T Numeric]() int {
	var zero T
	switch any(zero).(type) {
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		panic("columnio: unsupported element type")
	}
}

func encodeLE[T Numeric](v T, buf []byte) {
	switch x := any(v).(type) {
	case uint16:
		binary.LittleEndian.PutUint16(buf, x)
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
	}
}

func decodeLE[T Numeric](buf []byte) T {
	var zero T
	switch any(zero).(type) {
	case uint16:
		return T(binary.LittleEndian.Uint16(buf))
	case uint32:
		return T(binary.LittleEndian.Uint32(buf))
	case uint64:
		return T(binary.LittleEndian.Uint64(buf))
	}
	panic("columnio: unsupported element type")
}

// Writer appends fixed-width little-endian elements to a column file,
// buffering writes until Flush or Close.
type Writer[T Numeric] struct {
	file     *os.File
	elemSize int
	buf      []byte
}

// CreateWriter creates path, truncating any existing content, and returns
// a Writer positioned at its start.
func CreateWriter[T Numeric](path string) (*Writer[T], error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("columnio: create %s: %w", path, err)
	}
	return &Writer[T]{file: f, elemSize: ElemSize[T]()}, nil
}

// TruncateAndOpen truncates path to exactly expected entries (discarding
// any partial tail left by a crash mid-write) and reopens it positioned
// for append, for resuming an interrupted indexing run.
func TruncateAndOpen[T Numeric](path string, expected int) (*Writer[T], error) {
	elemSize := ElemSize[T]()
	if err := os.Truncate(path, int64(expected*elemSize)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("columnio: truncate %s: %w", path, err)
	}
	return CreateWriterAppend[T](path)
}

// CreateWriterAppend opens an existing column file for appending without
// truncating it, creating it if missing.
func CreateWriterAppend[T Numeric](path string) (*Writer[T], error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("columnio: open %s: %w", path, err)
	}
	return &Writer[T]{file: f, elemSize: ElemSize[T]()}, nil
}

// Push appends a single value to the buffered write queue.
func (w *Writer[T]) Push(v T) {
	off := len(w.buf)
	w.buf = append(w.buf, make([]byte, w.elemSize)...)
	encodeLE(v, w.buf[off:])
}

// PushBatch appends many values at once.
func (w *Writer[T]) PushBatch(values []T) {
	for _, v := range values {
		w.Push(v)
	}
}

// Flush persists any buffered bytes to disk.
func (w *Writer[T]) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf); err != nil {
		return fmt.Errorf("columnio: flush: %w", err)
	}
	w.buf = w.buf[:0]
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer[T]) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Reader memory-maps a column file read-only and decodes elements directly
// from the mapping. Count is min(expected, file_size/elemSize), tolerating a
// truncated tail as an unwritten entry (spec.md §4.1).
type Reader[T Numeric] struct {
	data     []byte
	elemSize int
	count    int
}

// OpenReader maps path and reports at most `expected` entries.
func OpenReader[T Numeric](path string, expected int) (*Reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("columnio: open %s: %w", path, err)
	}
	defer f.Close()

	elemSize := ElemSize[T]()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("columnio: stat %s: %w", path, err)
	}

	size := int(st.Size())
	fromSize := size / elemSize
	count := expected
	if fromSize < count {
		count = fromSize
	}

	var data []byte
	if size > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return nil, fmt.Errorf("columnio: mmap %s: %w", path, err)
		}
	}

	return &Reader[T]{data: data, elemSize: elemSize, count: count}, nil
}

// Count returns the number of entries visible through this mapping.
func (r *Reader[T]) Count() int { return r.count }

// Get decodes the element at index i, or returns ok=false if i is out of
// the reported entry count (never an error, per spec.md §4.1).
func (r *Reader[T]) Get(i int) (value T, ok bool) {
	if i < 0 || i >= r.count {
		return value, false
	}
	off := i * r.elemSize
	return decodeLE[T](r.data[off : off+r.elemSize]), true
}

// RawSlice borrows the contiguous byte range [start, end) of the mapping,
// in element units, or returns ok=false if the range is out of bounds.
func (r *Reader[T]) RawSlice(start, end int) (slice []byte, ok bool) {
	if start < 0 || end > r.count || start > end {
		return nil, false
	}
	byteStart := start * r.elemSize
	byteEnd := end * r.elemSize
	return r.data[byteStart:byteEnd], true
}

// Close unmaps the underlying file.
func (r *Reader[T]) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
