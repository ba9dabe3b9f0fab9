package filterengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ltix/internal/cancel"
	"github.com/standardbeagle/ltix/internal/matcher"
)

type fakeSource struct {
	lines [][]byte
}

func (f *fakeSource) TotalLines() int { return len(f.lines) }

func (f *fakeSource) GetLine(i int) ([]byte, bool) {
	if i < 0 || i >= len(f.lines) {
		return nil, false
	}
	return f.lines[i], true
}

func newFakeSource(lines ...string) *fakeSource {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return &fakeSource{lines: out}
}

func drain(t *testing.T, ch <-chan Message, timeout time.Duration) []Message {
	t.Helper()
	var got []Message
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, msg)
		case <-deadline:
			t.Fatal("timed out waiting for filter worker")
			return nil
		}
	}
}

func TestRunCompletesWithAllMatches(t *testing.T) {
	src := newFakeSource("error one", "all good", "error two", "fine", "error three")
	m, err := matcher.Compile("error")
	require.NoError(t, err)

	ch := Run(src, nil, m, Range{}, 2, cancel.New())
	msgs := drain(t, ch, time.Second)

	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.Equal(t, Complete, last.Kind)
	require.Equal(t, []int{0, 2, 4}, last.Matches)
	require.Equal(t, 5, last.LinesProcessed)
}

func TestRunEmitsPartialResultsAtBatchBoundaries(t *testing.T) {
	src := newFakeSource("a", "b", "c", "d")
	m, err := matcher.Compile("")
	require.NoError(t, err)

	ch := Run(src, nil, m, Range{}, 2, cancel.New())
	msgs := drain(t, ch, time.Second)

	var partials int
	for _, msg := range msgs {
		if msg.Kind == PartialResults {
			partials++
		}
	}
	require.Equal(t, 2, partials) // boundaries at line counts 2 and 4
	require.Equal(t, Complete, msgs[len(msgs)-1].Kind)
}

func TestRunRespectsRange(t *testing.T) {
	src := newFakeSource("error", "error", "ok", "error")
	m, err := matcher.Compile("error")
	require.NoError(t, err)

	ch := Run(src, nil, m, Range{Start: 2, End: 4}, 10, cancel.New())
	msgs := drain(t, ch, time.Second)

	last := msgs[len(msgs)-1]
	require.Equal(t, Complete, last.Kind)
	require.Equal(t, []int{3}, last.Matches)
	require.Equal(t, 2, last.LinesProcessed)
}

func TestRunInvalidRangeEmitsError(t *testing.T) {
	src := newFakeSource("only one line")
	m, err := matcher.Compile("x")
	require.NoError(t, err)

	ch := Run(src, nil, m, Range{Start: 0, End: 50}, 10, cancel.New())
	msgs := drain(t, ch, time.Second)

	require.Len(t, msgs, 1)
	require.Equal(t, Error, msgs[0].Kind)
	require.Error(t, msgs[0].Err)
}

func TestRunCancellationStopsWithoutComplete(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "line"
	}
	src := newFakeSource(lines...)
	m, err := matcher.Compile("line")
	require.NoError(t, err)

	token := cancel.New()
	token.Cancel()

	ch := Run(src, nil, m, Range{}, 5, token)
	msgs := drain(t, ch, time.Second)

	for _, msg := range msgs {
		require.NotEqual(t, Complete, msg.Kind)
		require.NotEqual(t, Error, msg.Kind)
	}
}

type fakeFlags struct {
	values []uint32
}

func (f *fakeFlags) Get(i int) (uint32, bool) {
	if i < 0 || i >= len(f.values) {
		return 0, false
	}
	return f.values[i], true
}

func TestRunUsesFlagsSourceForFieldQuery(t *testing.T) {
	src := newFakeSource("x", "x", "x")
	flags := &fakeFlags{values: []uint32{5, 3, 5}} // SeverityError, SeverityInfo, SeverityError
	m, err := matcher.Compile("level=error")
	require.NoError(t, err)

	ch := Run(src, flags, m, Range{}, 10, cancel.New())
	msgs := drain(t, ch, time.Second)

	last := msgs[len(msgs)-1]
	require.Equal(t, Complete, last.Kind)
	require.Equal(t, []int{0, 2}, last.Matches)
}
