package logreader

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/standardbeagle/ltix/internal/sparseindex"
)

// DefaultIndexInterval is the sparse index sampling interval used when the
// caller doesn't specify one.
const DefaultIndexInterval = 10_000

// MmapReader maps a log file read-only and answers get_line queries via a
// sparse line index plus a short forward newline scan. Content returned is
// a slice into the mapping and is only valid until the next Reload/Close.
type MmapReader struct {
	path     string
	data     []byte
	index    *sparseindex.Index
	fileSize int64
}

// NewMmapReader maps path and builds its sparse index at the default
// interval.
func NewMmapReader(path string) (*MmapReader, error) {
	return NewMmapReaderWithInterval(path, DefaultIndexInterval)
}

// NewMmapReaderWithInterval maps path and builds its sparse index at the
// given sampling interval.
func NewMmapReaderWithInterval(path string, interval int) (*MmapReader, error) {
	r := &MmapReader{path: path, index: sparseindex.New(interval)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// TotalLines returns the number of lines counted at the last map/reload.
func (r *MmapReader) TotalLines() int { return r.index.TotalLines() }

// FileSize returns the file size observed at the last map/reload.
func (r *MmapReader) FileSize() int64 { return r.fileSize }

// buildIndex walks the mapping with a byte-wise newline scan, recording a
// sparse index entry every Interval lines.
func (r *MmapReader) buildIndex() {
	r.index.Clear()
	if len(r.data) == 0 {
		return
	}

	interval := r.index.Interval()
	lineCount := 0
	pos := 0

	for pos < len(r.data) {
		rel := bytes.IndexByte(r.data[pos:], '\n')
		if rel < 0 {
			if pos < len(r.data) {
				lineCount++
			}
			break
		}
		lineCount++
		lineEnd := pos + rel + 1
		if lineCount%interval == 0 {
			r.index.Append(lineCount, uint64(lineEnd))
		}
		pos = lineEnd
	}

	r.index.SetTotalLines(lineCount)
}

// GetLine returns the content of line i (0-indexed), with any trailing CR
// stripped, or ok=false if i is out of range. The returned slice borrows
// the mapping and must not be retained past the next Reload/Close.
func (r *MmapReader) GetLine(i int) (content []byte, ok bool) {
	if i < 0 || i >= r.index.TotalLines() || len(r.data) == 0 {
		return nil, false
	}

	offset, skip := r.index.Locate(i)
	pos := int(offset)

	for n := 0; n < skip; n++ {
		rel := bytes.IndexByte(r.data[pos:], '\n')
		if rel < 0 {
			return nil, false
		}
		pos += rel + 1
	}

	start := pos
	end := len(r.data)
	if rel := bytes.IndexByte(r.data[start:], '\n'); rel >= 0 {
		end = start + rel
	}
	if end > start && r.data[end-1] == '\r' {
		end--
	}

	return r.data[start:end], true
}

// Reload remaps the file from scratch and rebuilds the sparse index,
// supporting a file that has grown, shrunk, or been replaced entirely.
func (r *MmapReader) Reload() error {
	if r.data != nil {
		unix.Munmap(r.data)
		r.data = nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("logreader: open %s: %w", r.path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("logreader: stat %s: %w", r.path, err)
	}
	r.fileSize = st.Size()

	if r.fileSize == 0 {
		r.index.Clear()
		return nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(r.fileSize), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("logreader: mmap %s: %w", r.path, err)
	}
	r.data = data
	r.buildIndex()
	return nil
}

// Close unmaps the underlying file.
func (r *MmapReader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
