package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/ltix/internal/logflags"
)

func TestCompilePlainDefaultsToCaseInsensitiveSubstring(t *testing.T) {
	m, err := Compile("ERROR")
	require.NoError(t, err)
	require.True(t, m.Match([]byte("an error occurred"), 0))
	require.False(t, m.Match([]byte("all good"), 0))
}

func TestCompileRegexPrefix(t *testing.T) {
	m, err := Compile(`re:\d{3}-\d{4}`)
	require.NoError(t, err)
	require.True(t, m.Match([]byte("call 555-1234 now"), 0))
	require.False(t, m.Match([]byte("no number here"), 0))
}

func TestCompileRegexInvalidSyntaxFails(t *testing.T) {
	_, err := Compile("re:(unclosed")
	require.Error(t, err)
}

func TestCompileFuzzyPrefix(t *testing.T) {
	m, err := Compile("fuzzy:connection")
	require.NoError(t, err)
	require.True(t, m.Match([]byte("lost conection to peer"), 0)) // one typo
	require.False(t, m.Match([]byte("totally unrelated text"), 0))
}

func TestCompileFuzzyRejectsEmptyWord(t *testing.T) {
	_, err := Compile("fuzzy:")
	require.Error(t, err)
}

func TestCompileFieldQueryLevel(t *testing.T) {
	m, err := Compile("level=error")
	require.NoError(t, err)
	require.True(t, m.Match(nil, logflags.SeverityError))
	require.False(t, m.Match(nil, logflags.SeverityInfo))
}

func TestCompileFieldQueryUnknownLevelFails(t *testing.T) {
	_, err := Compile("level=bogus")
	require.Error(t, err)
}

func TestCompileFieldQueryHasAnsi(t *testing.T) {
	m, err := Compile("has:ansi")
	require.NoError(t, err)
	require.True(t, m.Match(nil, logflags.FlagHasANSI))
	require.False(t, m.Match(nil, 0))
}

func TestCompileFieldQueryTimestamp(t *testing.T) {
	m, err := Compile("ts")
	require.NoError(t, err)
	require.True(t, m.Match(nil, logflags.FlagHasTimestamp))
	require.False(t, m.Match(nil, 0))
}

func TestPlainMatcherCaseSensitiveMode(t *testing.T) {
	m := NewPlainMatcher("ERROR", false)
	require.True(t, m.Match([]byte("an ERROR occurred"), 0))
	require.False(t, m.Match([]byte("an error occurred"), 0))
}

func TestPlainMatcherEmptyNeedleMatchesEverything(t *testing.T) {
	m := NewPlainMatcher("", true)
	require.True(t, m.Match([]byte(""), 0))
	require.True(t, m.Match([]byte("anything"), 0))
}

func TestFieldQueryMatcherDoesNotMixBits(t *testing.T) {
	m, err := NewFieldQueryMatcher("has:json")
	require.NoError(t, err)
	// logfmt flag alone must not satisfy a json query.
	require.False(t, m.Match(nil, logflags.FlagFormatLogfmt))
	require.True(t, m.Match(nil, logflags.FlagFormatJSON))
}

func TestFuzzyMatcherExactWordMatches(t *testing.T) {
	m := NewFuzzyMatcher("timeout", DefaultFuzzyThreshold)
	require.True(t, m.Match([]byte("request timeout after 30s"), 0))
}
