package logreader

import (
	"fmt"
	"os"
)

// HugeReader composes an MmapReader with a TailBuffer so lines appended
// since the last mapping can be served without a full remap on every
// write. Refresh decides, from the observed file size, whether the
// change was a truncation (remap + clear tail), a no-op, or growth
// (remap + report new-line delta).
type HugeReader struct {
	path   string
	mmap   *MmapReader
	tail   *TailBuffer
	mapped int64
}

// NewHugeReader maps path and wraps it with a tail buffer of the given
// capacity, numbered from the first line past the mapped region.
func NewHugeReader(path string, tailCapacity int) (*HugeReader, error) {
	mmap, err := NewMmapReader(path)
	if err != nil {
		return nil, err
	}
	tail := NewTailBuffer(tailCapacity)
	tail.ResetFrom(uint64(mmap.TotalLines()))
	return &HugeReader{
		path:   path,
		mmap:   mmap,
		tail:   tail,
		mapped: mmap.FileSize(),
	}, nil
}

// TotalLines returns the mmap'd line count plus any lines currently held
// only in the tail buffer.
func (h *HugeReader) TotalLines() int {
	return h.mmap.TotalLines() + h.tail.Len()
}

// GetLine checks the tail buffer first, then falls back to the mmap
// reader and its sparse index.
func (h *HugeReader) GetLine(i int) (content []byte, ok bool) {
	if content, ok := h.tail.Get(uint64(i)); ok {
		return content, true
	}
	return h.mmap.GetLine(i)
}

// Refresh reacts to a file-modification notification by comparing the
// current on-disk size against the size at the last map:
//
//   - smaller: truncation — remap, clear the tail buffer, rebuild the
//     index, report 0 new lines;
//   - equal: no-op;
//   - larger: remap, rebuild the index, report the increase in total
//     line count.
func (h *HugeReader) Refresh() (newLines int, err error) {
	st, err := os.Stat(h.path)
	if err != nil {
		return 0, fmt.Errorf("logreader: stat %s: %w", h.path, err)
	}
	current := st.Size()

	switch {
	case current < h.mapped:
		if err := h.mmap.Reload(); err != nil {
			return 0, err
		}
		h.tail.ResetFrom(uint64(h.mmap.TotalLines()))
		h.mapped = current
		return 0, nil

	case current == h.mapped:
		return 0, nil

	default:
		before := h.mmap.TotalLines()
		if err := h.mmap.Reload(); err != nil {
			return 0, err
		}
		after := h.mmap.TotalLines()
		h.tail.ResetFrom(uint64(after))
		h.mapped = current
		return after - before, nil
	}
}

// PushTail appends a just-written line to the tail buffer directly,
// without waiting for the next Refresh/remap. Used by callers that
// observe appended bytes through their own write path (e.g. a capture
// session writing its own output) rather than through fsnotify.
func (h *HugeReader) PushTail(content []byte, rawByteLen int) (Evicted, bool) {
	return h.tail.Push(content, rawByteLen)
}

// Close unmaps the underlying file.
func (h *HugeReader) Close() error {
	return h.mmap.Close()
}
