package logreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTailBufferPushWithinCapacity(t *testing.T) {
	b := NewTailBuffer(3)
	_, evicted := b.Push([]byte("line0"), 6)
	require.False(t, evicted)
	_, evicted = b.Push([]byte("line1"), 6)
	require.False(t, evicted)

	require.Equal(t, 2, b.Len())
	require.Equal(t, uint64(0), b.StartLine())

	got, ok := b.Get(0)
	require.True(t, ok)
	require.Equal(t, []byte("line0"), got)
}

func TestTailBufferEvictsOldestWhenFull(t *testing.T) {
	b := NewTailBuffer(2)
	b.Push([]byte("line0"), 6)
	b.Push([]byte("line1"), 6)

	ev, ok := b.Push([]byte("line2"), 6)
	require.True(t, ok)
	require.Equal(t, uint64(0), ev.LineNumber)
	require.Equal(t, []byte("line0"), ev.Content)

	require.Equal(t, 2, b.Len())
	require.Equal(t, uint64(1), b.StartLine())

	_, ok = b.Get(0)
	require.False(t, ok)
	got, ok := b.Get(2)
	require.True(t, ok)
	require.Equal(t, []byte("line2"), got)
}

func TestTailBufferGetOutOfWindow(t *testing.T) {
	b := NewTailBuffer(5)
	b.Push([]byte("line0"), 6)

	_, ok := b.Get(1)
	require.False(t, ok)
}

func TestTailBufferMinimumCapacity(t *testing.T) {
	b := NewTailBuffer(0)
	b.Push([]byte("a"), 1)
	_, evicted := b.Push([]byte("b"), 1)
	require.True(t, evicted)
	require.Equal(t, 1, b.Len())
}

func TestTailBufferResetFrom(t *testing.T) {
	b := NewTailBuffer(3)
	b.Push([]byte("a"), 1)
	b.Push([]byte("b"), 1)

	b.ResetFrom(100)

	require.Equal(t, 0, b.Len())
	require.Equal(t, uint64(100), b.StartLine())

	b.Push([]byte("c"), 1)
	got, ok := b.Get(100)
	require.True(t, ok)
	require.Equal(t, []byte("c"), got)
}
