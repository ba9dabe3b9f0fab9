// Package logreader implements random-access reading over a log file that
// may be far larger than comfortably fits in memory (spec.md §4.9-§4.10):
// MmapReader maps the file once and walks a sparse line index to answer
// get_line queries; TailBuffer holds the bounded tail of lines appended
// since the last mapping so HugeReader can serve them without remapping.
package logreader

// Evicted is the line TailBuffer.Push displaces when the buffer is full.
type Evicted struct {
	LineNumber uint64
	Content    []byte
	RawByteLen int
}

// TailBuffer is a bounded FIFO of the most recently appended lines,
// addressed by a contiguous, strictly increasing line number. Pushing
// past capacity evicts the oldest line and returns it.
type TailBuffer struct {
	capacity  int
	startLine uint64
	lines     [][]byte
	rawLens   []int
}

// NewTailBuffer creates a buffer holding at most capacity lines. capacity
// is clamped to a minimum of 1.
func NewTailBuffer(capacity int) *TailBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &TailBuffer{capacity: capacity}
}

// Push appends content as the next line after the current tail, evicting
// and returning the oldest line if the buffer was already at capacity.
func (b *TailBuffer) Push(content []byte, rawByteLen int) (evicted Evicted, ok bool) {
	if len(b.lines) >= b.capacity {
		evicted = Evicted{
			LineNumber: b.startLine,
			Content:    b.lines[0],
			RawByteLen: b.rawLens[0],
		}
		b.lines = b.lines[1:]
		b.rawLens = b.rawLens[1:]
		b.startLine++
		ok = true
	}

	b.lines = append(b.lines, content)
	b.rawLens = append(b.rawLens, rawByteLen)
	return evicted, ok
}

// Get returns the content for lineNum if it currently lies within the
// buffer's window, or ok=false otherwise.
func (b *TailBuffer) Get(lineNum uint64) (content []byte, ok bool) {
	if lineNum < b.startLine || lineNum >= b.startLine+uint64(len(b.lines)) {
		return nil, false
	}
	return b.lines[lineNum-b.startLine], true
}

// Len returns the number of lines currently buffered.
func (b *TailBuffer) Len() int { return len(b.lines) }

// StartLine returns the line number of the oldest buffered line.
func (b *TailBuffer) StartLine() uint64 { return b.startLine }

// ResetFrom reseeds the buffer's numbering to start at n and discards all
// buffered content, used after the underlying file is truncated/remapped.
func (b *TailBuffer) ResetFrom(n uint64) {
	b.startLine = n
	b.lines = nil
	b.rawLens = nil
}
