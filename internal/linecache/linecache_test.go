package linecache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineCacheMinimumCapacity(t *testing.T) {
	c := NewLineCache(0)
	require.Equal(t, 0, c.Len())
	_, ok := c.Get(1)
	require.False(t, ok)
}

func TestLineCacheDefaultCapacity(t *testing.T) {
	c := NewLineCacheDefault()
	require.Equal(t, 0, c.Len())
}

func TestLineCachePutAndGet(t *testing.T) {
	c := NewLineCache(10)

	c.Put(5, "line five")
	c.Put(10, "line ten")

	v, ok := c.Get(5)
	require.True(t, ok)
	require.Equal(t, "line five", v)

	v, ok = c.Get(10)
	require.True(t, ok)
	require.Equal(t, "line ten", v)

	_, ok = c.Get(15)
	require.False(t, ok)
}

func TestLineCacheGetOrLoadCacheHit(t *testing.T) {
	c := NewLineCache(10)
	c.Put(5, "cached")

	called := false
	v, ok := c.GetOrLoad(5, func() (string, bool) {
		called = true
		return "loaded", true
	})

	require.True(t, ok)
	require.Equal(t, "cached", v)
	require.False(t, called)
}

func TestLineCacheGetOrLoadCacheMiss(t *testing.T) {
	c := NewLineCache(10)

	called := false
	v, ok := c.GetOrLoad(5, func() (string, bool) {
		called = true
		return "loaded", true
	})
	require.True(t, ok)
	require.Equal(t, "loaded", v)
	require.True(t, called)

	calledAgain := false
	v, ok = c.GetOrLoad(5, func() (string, bool) {
		calledAgain = true
		return "loaded again", true
	})
	require.True(t, ok)
	require.Equal(t, "loaded", v)
	require.False(t, calledAgain)
}

func TestLineCacheGetOrLoadReturnsFalse(t *testing.T) {
	c := NewLineCache(10)

	_, ok := c.GetOrLoad(5, func() (string, bool) { return "", false })
	require.False(t, ok)
	require.False(t, c.Contains(5))
}

func TestLineCacheContains(t *testing.T) {
	c := NewLineCache(10)
	require.False(t, c.Contains(5))
	c.Put(5, "line")
	require.True(t, c.Contains(5))
}

func TestLineCachePeek(t *testing.T) {
	c := NewLineCache(10)
	c.Put(5, "line")
	v, ok := c.Peek(5)
	require.True(t, ok)
	require.Equal(t, "line", v)
	_, ok = c.Peek(10)
	require.False(t, ok)
}

func TestLineCacheInvalidate(t *testing.T) {
	c := NewLineCache(10)
	c.Put(5, "line")
	require.True(t, c.Contains(5))
	c.Invalidate(5)
	require.False(t, c.Contains(5))
}

func TestLineCacheInvalidateFrom(t *testing.T) {
	c := NewLineCache(10)
	for i := 0; i < 10; i++ {
		c.Put(i, fmt.Sprintf("line %d", i))
	}
	require.Equal(t, 10, c.Len())

	c.InvalidateFrom(5)

	require.Equal(t, 5, c.Len())
	for i := 0; i < 5; i++ {
		require.True(t, c.Contains(i))
	}
	for i := 5; i < 10; i++ {
		require.False(t, c.Contains(i))
	}
}

func TestLineCacheClear(t *testing.T) {
	c := NewLineCache(10)
	for i := 0; i < 5; i++ {
		c.Put(i, fmt.Sprintf("line %d", i))
	}
	require.Equal(t, 5, c.Len())
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestLineCacheLRUEviction(t *testing.T) {
	c := NewLineCache(3)

	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")
	require.Equal(t, 3, c.Len())

	c.Get(1) // mark 1 as recently used

	c.Put(4, "four")

	require.Equal(t, 3, c.Len())
	require.True(t, c.Contains(1))
	require.False(t, c.Contains(2))
	require.True(t, c.Contains(3))
	require.True(t, c.Contains(4))
}

func TestParsedLineCacheDefaultCapacity(t *testing.T) {
	c := NewParsedLineCacheDefault[string]()
	require.Equal(t, 0, c.Len())
}

func TestParsedLineCacheGetOrParse(t *testing.T) {
	c := NewParsedLineCache[string](10)

	v := c.GetOrParse([]byte("hello"), func(raw []byte) string {
		return "parsed:" + string(raw)
	})
	require.Equal(t, "parsed:hello", v)
}

func TestParsedLineCacheHit(t *testing.T) {
	c := NewParsedLineCache[string](10)
	raw := []byte("\x1b[32mGreen\x1b[0m")

	calls := 0
	parse := func(r []byte) string {
		calls++
		return "styled:" + string(r)
	}

	first := c.GetOrParse(raw, parse)
	require.True(t, c.Contains(raw))

	second := c.GetOrParse(raw, parse)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestParsedLineCacheGetWithoutParse(t *testing.T) {
	c := NewParsedLineCache[string](10)
	raw := []byte("test line")

	_, ok := c.Get(raw)
	require.False(t, ok)

	c.GetOrParse(raw, func(r []byte) string { return string(r) })

	_, ok = c.Get(raw)
	require.True(t, ok)
}

func TestParsedLineCacheClear(t *testing.T) {
	c := NewParsedLineCache[string](10)
	c.GetOrParse([]byte("line 1"), func(r []byte) string { return string(r) })
	c.GetOrParse([]byte("line 2"), func(r []byte) string { return string(r) })
	require.Equal(t, 2, c.Len())
	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestParsedLineCacheLRUEviction(t *testing.T) {
	c := NewParsedLineCache[string](2)
	parse := func(r []byte) string { return string(r) }

	c.GetOrParse([]byte("line 1"), parse)
	c.GetOrParse([]byte("line 2"), parse)
	require.Equal(t, 2, c.Len())

	c.GetOrParse([]byte("line 1"), parse) // recently used

	c.GetOrParse([]byte("line 3"), parse)

	require.Equal(t, 2, c.Len())
	require.True(t, c.Contains([]byte("line 1")))
	require.False(t, c.Contains([]byte("line 2")))
	require.True(t, c.Contains([]byte("line 3")))
}
