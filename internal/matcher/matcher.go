// Package matcher compiles a user-typed filter pattern into one of several
// predicate kinds consumed by internal/filterengine: plain substring, RE2
// regex, approximate (fuzzy) matching, or a small structured query DSL over
// a line's precomputed flags word (spec.md §4.12; the kind split itself is
// this module's own expansion — see SPEC_FULL.md §4.17).
package matcher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/ltix/internal/logflags"
	"github.com/standardbeagle/ltix/internal/ltixerrors"
)

// Matcher is a compiled predicate a FilterEngine worker applies to each
// line it scans.
type Matcher interface {
	// Match reports whether content (the line's bytes, delimiter already
	// stripped) and flags (its precomputed flags word) satisfy the
	// predicate. A matcher only ever needs one of the two arguments; it
	// ignores the other.
	Match(content []byte, flags uint32) bool
}

// DefaultFuzzyThreshold is the minimum Jaro-Winkler similarity a candidate
// word must reach to count as a fuzzy match.
const DefaultFuzzyThreshold = 0.80

// Compile parses pattern and returns the matcher it denotes. Recognized
// prefixes select a non-default kind:
//
//	re:<pattern>      RegexMatcher, RE2 syntax
//	fuzzy:<word>      FuzzyMatcher, Jaro-Winkler similarity >= DefaultFuzzyThreshold
//	level=<name>      FieldQueryMatcher on severity
//	has:ansi          FieldQueryMatcher on FlagHasANSI
//	has:json          FieldQueryMatcher on FlagFormatJSON
//	has:logfmt        FieldQueryMatcher on FlagFormatLogfmt
//	ts                FieldQueryMatcher on FlagHasTimestamp
//
// Anything else compiles to a PlainMatcher (case-insensitive substring).
// Compilation errors are returned synchronously, before any worker starts
// (spec.md §4.12).
func Compile(pattern string) (Matcher, error) {
	switch {
	case strings.HasPrefix(pattern, "re:"):
		expr := strings.TrimPrefix(pattern, "re:")
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, ltixerrors.NewMatcherError(pattern, err)
		}
		return &RegexMatcher{re: re}, nil

	case strings.HasPrefix(pattern, "fuzzy:"):
		word := strings.TrimPrefix(pattern, "fuzzy:")
		if word == "" {
			return nil, ltixerrors.NewMatcherError(pattern, fmt.Errorf("fuzzy: requires a non-empty word"))
		}
		return &FuzzyMatcher{word: word, threshold: DefaultFuzzyThreshold}, nil

	case strings.HasPrefix(pattern, "level=") || strings.HasPrefix(pattern, "has:") || pattern == "ts":
		fq, err := compileFieldQuery(pattern)
		if err != nil {
			return nil, ltixerrors.NewMatcherError(pattern, err)
		}
		return fq, nil

	default:
		return &PlainMatcher{needle: []byte(strings.ToLower(pattern)), caseFold: true}, nil
	}
}

// PlainMatcher performs a byte-level substring search.
type PlainMatcher struct {
	needle   []byte
	caseFold bool
}

// NewPlainMatcher builds a PlainMatcher directly, bypassing Compile's
// prefix dispatch, for callers that already know they want exact
// substring semantics.
func NewPlainMatcher(pattern string, caseFold bool) *PlainMatcher {
	needle := []byte(pattern)
	if caseFold {
		needle = bytes.ToLower(needle)
	}
	return &PlainMatcher{needle: needle, caseFold: caseFold}
}

func (m *PlainMatcher) Match(content []byte, _ uint32) bool {
	if len(m.needle) == 0 {
		return true
	}
	if !m.caseFold {
		return bytes.Contains(content, m.needle)
	}
	return bytes.Contains(bytes.ToLower(content), m.needle)
}

// RegexMatcher wraps a compiled stdlib regexp. regexp/RE2 is used rather
// than a third-party engine because it is the one place in the stack
// where a library's backtracking could turn an untrusted, user-typed
// pattern into a denial-of-service; RE2's linear-time guarantee is worth
// more here than an ecosystem dependency would be (see DESIGN.md).
type RegexMatcher struct {
	re *regexp.Regexp
}

func (m *RegexMatcher) Match(content []byte, _ uint32) bool {
	return m.re.Match(content)
}

// FuzzyMatcher reports a match when any whitespace-delimited word in the
// line is within threshold Jaro-Winkler similarity of the target word.
type FuzzyMatcher struct {
	word      string
	threshold float64
}

// NewFuzzyMatcher builds a FuzzyMatcher with an explicit threshold.
func NewFuzzyMatcher(word string, threshold float64) *FuzzyMatcher {
	return &FuzzyMatcher{word: word, threshold: threshold}
}

func (m *FuzzyMatcher) Match(content []byte, _ uint32) bool {
	for _, field := range strings.Fields(string(content)) {
		score, err := edlib.StringsSimilarity(field, m.word, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if float64(score) >= m.threshold {
			return true
		}
	}
	return false
}

// FieldQueryMatcher inspects a line's precomputed flags word instead of
// its bytes, so a filter can run without rescanning content.
type FieldQueryMatcher struct {
	want uint32 // bit(s) that must be set, or the wanted severity value
	mask uint32 // which bits of flags to compare against want
}

func compileFieldQuery(pattern string) (*FieldQueryMatcher, error) {
	switch {
	case strings.HasPrefix(pattern, "level="):
		name := strings.ToLower(strings.TrimPrefix(pattern, "level="))
		sev, ok := severityByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", name)
		}
		return &FieldQueryMatcher{want: sev, mask: logflags.SeverityMask}, nil

	case pattern == "has:ansi":
		return &FieldQueryMatcher{want: logflags.FlagHasANSI, mask: logflags.FlagHasANSI}, nil
	case pattern == "has:json":
		return &FieldQueryMatcher{want: logflags.FlagFormatJSON, mask: logflags.FlagFormatJSON}, nil
	case pattern == "has:logfmt":
		return &FieldQueryMatcher{want: logflags.FlagFormatLogfmt, mask: logflags.FlagFormatLogfmt}, nil
	case pattern == "ts":
		return &FieldQueryMatcher{want: logflags.FlagHasTimestamp, mask: logflags.FlagHasTimestamp}, nil
	default:
		return nil, fmt.Errorf("unrecognized field query %q", pattern)
	}
}

var severityByName = map[string]uint32{
	"unknown": logflags.SeverityUnknown,
	"trace":   logflags.SeverityTrace,
	"debug":   logflags.SeverityDebug,
	"info":    logflags.SeverityInfo,
	"warn":    logflags.SeverityWarn,
	"warning": logflags.SeverityWarn,
	"error":   logflags.SeverityError,
	"fatal":   logflags.SeverityFatal,
}

func (m *FieldQueryMatcher) Match(_ []byte, flags uint32) bool {
	return flags&m.mask == m.want&m.mask
}

// NewFieldQueryMatcher parses a structured query string directly,
// bypassing Compile's prefix dispatch.
func NewFieldQueryMatcher(query string) (*FieldQueryMatcher, error) {
	return compileFieldQuery(query)
}
