// Package sparseindex implements the sparse line index (spec.md §4.9):
// one (lineNumber, byteOffset) entry per Interval lines, trading exact
// per-line offsets (O(n) memory) for O(n/interval) memory at the cost of
// a short forward scan from the nearest indexed entry.
package sparseindex

// entry is one recorded (line, offset) pair.
type entry struct {
	lineNumber uint32
	byteOffset uint64
}

// Index is a sparse line index with a configurable sampling interval.
type Index struct {
	entries           []entry
	interval          int
	totalLines        int
	lastIndexedOffset uint64
}

// New creates an Index sampling every interval lines. interval is clamped
// to a minimum of 1.
func New(interval int) *Index {
	if interval < 1 {
		interval = 1
	}
	return &Index{interval: interval}
}

// Interval returns the configured sampling interval.
func (idx *Index) Interval() int { return idx.interval }

// TotalLines returns the total line count recorded via SetTotalLines.
func (idx *Index) TotalLines() int { return idx.totalLines }

// SetTotalLines records the total line count, typically after a full scan.
func (idx *Index) SetTotalLines(total int) { idx.totalLines = total }

// Locate returns the nearest indexed byte offset at or before line, and
// the number of lines to skip forward from it to reach line exactly.
func (idx *Index) Locate(line int) (anchorOffset uint64, linesToSkip int) {
	if len(idx.entries) == 0 || line == 0 {
		return 0, line
	}

	chunk := line / idx.interval

	switch {
	case chunk == 0:
		return 0, line
	case chunk <= len(idx.entries):
		e := idx.entries[chunk-1]
		return e.byteOffset, line - int(e.lineNumber)
	default:
		last := idx.entries[len(idx.entries)-1]
		return last.byteOffset, line - int(last.lineNumber)
	}
}

// Append records a new sample point, called every Interval lines while
// scanning forward.
func (idx *Index) Append(lineNumber int, byteOffset uint64) {
	idx.entries = append(idx.entries, entry{lineNumber: uint32(lineNumber), byteOffset: byteOffset})
	idx.lastIndexedOffset = byteOffset
}

// LastIndexedOffset returns the byte offset of the most recent Append,
// the point from which incremental indexing should resume.
func (idx *Index) LastIndexedOffset() uint64 { return idx.lastIndexedOffset }

// LastIndexedLine returns the line number of the most recent Append, or 0
// if the index is empty.
func (idx *Index) LastIndexedLine() int {
	if len(idx.entries) == 0 {
		return 0
	}
	return int(idx.entries[len(idx.entries)-1].lineNumber)
}

// EntryCount returns the number of recorded sample points.
func (idx *Index) EntryCount() int { return len(idx.entries) }

// Clear discards all entries and counters, for rebuilding after the
// underlying file is truncated and grows again.
func (idx *Index) Clear() {
	idx.entries = idx.entries[:0]
	idx.totalLines = 0
	idx.lastIndexedOffset = 0
}
