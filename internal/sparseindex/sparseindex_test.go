package sparseindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSparseIndex(t *testing.T) {
	idx := New(1000)
	require.Equal(t, 1000, idx.Interval())
	require.Equal(t, 0, idx.TotalLines())
	require.Equal(t, 0, idx.EntryCount())
}

func TestMinimumInterval(t *testing.T) {
	idx := New(0)
	require.Equal(t, 1, idx.Interval())
}

func TestLocateEmptyIndex(t *testing.T) {
	idx := New(100)
	offset, skip := idx.Locate(50)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, 50, skip)
}

func TestLocateLineZero(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	offset, skip := idx.Locate(0)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, 0, skip)
}

func TestLocateBeforeFirstEntry(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	offset, skip := idx.Locate(50)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, 50, skip)
}

func TestLocateAtEntry(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	idx.Append(200, 2000)
	offset, skip := idx.Locate(100)
	require.Equal(t, uint64(1000), offset)
	require.Equal(t, 0, skip)
}

func TestLocateBetweenEntries(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	idx.Append(200, 2000)
	offset, skip := idx.Locate(150)
	require.Equal(t, uint64(1000), offset)
	require.Equal(t, 50, skip)
}

func TestLocateAfterLastEntry(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	idx.Append(200, 2000)
	offset, skip := idx.Locate(250)
	require.Equal(t, uint64(2000), offset)
	require.Equal(t, 50, skip)
}

func TestAppendUpdatesLastOffset(t *testing.T) {
	idx := New(100)
	require.Equal(t, uint64(0), idx.LastIndexedOffset())

	idx.Append(100, 1000)
	require.Equal(t, uint64(1000), idx.LastIndexedOffset())
	require.Equal(t, 100, idx.LastIndexedLine())

	idx.Append(200, 2000)
	require.Equal(t, uint64(2000), idx.LastIndexedOffset())
	require.Equal(t, 200, idx.LastIndexedLine())
}

func TestClear(t *testing.T) {
	idx := New(100)
	idx.Append(100, 1000)
	idx.SetTotalLines(150)

	idx.Clear()

	require.Equal(t, 0, idx.EntryCount())
	require.Equal(t, 0, idx.TotalLines())
	require.Equal(t, uint64(0), idx.LastIndexedOffset())
}

func TestLargeLineNumbers(t *testing.T) {
	idx := New(10_000)
	for i := 1; i <= 100; i++ {
		idx.Append(i*10_000, uint64(i)*100_000)
	}
	offset, skip := idx.Locate(550_000)
	require.Equal(t, uint64(5_500_000), offset)
	require.Equal(t, 0, skip)
}
