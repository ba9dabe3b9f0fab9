// Package filterengine runs a single background worker per filter
// invocation: it scans a line range through a compiled matcher and
// streams progress back to the caller over a channel (spec.md §4.12).
// The worker is cooperatively cancellable via internal/cancel and its
// goroutine lifecycle is managed with golang.org/x/sync/errgroup, matching
// the teacher's approach to goroutine lifecycle and terminal-error capture
// elsewhere in its own stack.
package filterengine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/ltix/internal/cancel"
	"github.com/standardbeagle/ltix/internal/matcher"
)

// DefaultBatchSize is the number of lines scanned between PartialResults
// messages and cancellation checks, matching spec.md §5's default.
const DefaultBatchSize = 1000

// LineSource is the subset of internal/logreader's MmapReader/HugeReader
// a filter run needs: total line count and per-line content lookup.
type LineSource interface {
	TotalLines() int
	GetLine(i int) (content []byte, ok bool)
}

// FlagsSource is the subset of a columnio.Reader[uint32] a FieldQueryMatcher
// needs. Matchers that only inspect content bytes never call it; callers
// with no flags column available may pass nil.
type FlagsSource interface {
	Get(i int) (flags uint32, ok bool)
}

// MessageKind discriminates the union carried by Message.
type MessageKind int

const (
	// Processing is a heartbeat; the caller may drop/coalesce it.
	Processing MessageKind = iota
	// PartialResults is emitted every batch boundary so a UI can render
	// incrementally.
	PartialResults
	// Complete is emitted exactly once, terminal, and carries every match
	// found (not only those since the last PartialResults).
	Complete
	// Error is emitted exactly once, terminal, only for a catastrophic
	// failure (an unreadable range), not per-line read errors.
	Error
)

// Message is one entry in the ordered stream a filter worker produces.
type Message struct {
	Kind           MessageKind
	LinesProcessed int
	Matches        []int // valid for PartialResults and Complete
	Err            error // valid for Error
}

// Range restricts a filter run to file lines [Start, End). A zero-value
// Range with End <= Start is treated as "the whole source" by Run.
type Range struct {
	Start int
	End   int
}

// Run spawns the single background worker for one filter invocation and
// returns immediately with a channel of Message. The worker iterates
// [rng.Start, rng.End) in order, applies m, accumulates matches, and
// emits PartialResults every batchSize lines, checking token at every
// batch boundary. On cancellation it stops promptly: no Complete or Error
// is sent and the channel is simply closed, which receivers must treat as
// "abandoned" rather than "finished with zero matches".
//
// batchSize <= 0 is treated as DefaultBatchSize.
func Run(source LineSource, flags FlagsSource, m matcher.Matcher, rng Range, batchSize int, token cancel.Token) <-chan Message {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	start, end := rng.Start, rng.End
	if end <= start {
		start, end = 0, source.TotalLines()
	}

	out := make(chan Message, 4)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(out)
		return runWorker(ctx, source, flags, m, start, end, batchSize, token, out)
	})
	// The errgroup's own error is already delivered via the Error message
	// inside runWorker; Wait is only to keep the goroutine's lifecycle
	// tied to the group rather than leaking a bare `go` statement.
	go func() { _ = g.Wait() }()

	return out
}

func runWorker(ctx context.Context, source LineSource, flagsSrc FlagsSource, m matcher.Matcher, start, end, batchSize int, token cancel.Token, out chan<- Message) error {
	if start < 0 || end > source.TotalLines() || start > end {
		select {
		case out <- Message{Kind: Error, Err: &RangeError{Start: start, End: end, Total: source.TotalLines()}}:
		case <-ctx.Done():
		}
		return nil
	}

	var matches []int
	processed := 0

	for line := start; line < end; line++ {
		content, ok := source.GetLine(line)
		if !ok {
			processed++
			continue
		}

		var lineFlags uint32
		if flagsSrc != nil {
			lineFlags, _ = flagsSrc.Get(line)
		}

		if m.Match(content, lineFlags) {
			matches = append(matches, line)
		}
		processed++

		if processed%batchSize == 0 {
			if token.IsCancelled() {
				return nil
			}
			select {
			case out <- Message{Kind: PartialResults, LinesProcessed: processed, Matches: append([]int(nil), matches...)}:
			case <-ctx.Done():
				return nil
			}
		}
	}

	if token.IsCancelled() {
		return nil
	}

	select {
	case out <- Message{Kind: Complete, LinesProcessed: processed, Matches: matches}:
	case <-ctx.Done():
	}
	return nil
}

// RangeError reports an unreadable/invalid scan range, the one
// catastrophic failure spec.md §4.12 calls out as worth a terminal Error
// message (per-line read misses are not errors; they're skipped).
type RangeError struct {
	Start, End, Total int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("filterengine: invalid range [%d, %d) against %d total lines", e.Start, e.End, e.Total)
}
