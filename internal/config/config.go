// Package config loads index-core runtime tunables from a KDL document
// (SPEC_FULL.md §3.1), mirroring the teacher's own `.lci.kdl`-backed
// configuration layer: a small typed Config struct with sane defaults,
// overridden field-by-field by whatever nodes the document actually
// contains, then validated the way the teacher's Validator does.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/ltix/internal/filterengine"
	"github.com/standardbeagle/ltix/internal/indexbuilder"
	"github.com/standardbeagle/ltix/internal/linecache"
	"github.com/standardbeagle/ltix/internal/logflags"
	"github.com/standardbeagle/ltix/internal/watch"
)

// FileName is the config file name looked up inside a project root,
// analogous to the teacher's ".lci.kdl".
const FileName = ".ltix.kdl"

// Config holds every index-core tunable this expansion exposes.
type Config struct {
	CheckpointInterval  int
	LineCacheEntries    int
	ParsedCacheEntries  int
	WatchDebounceMs     int
	FilterBatchSize     int
	FilterProgressEvery int

	// SeverityOverrides maps a project-specific keyword ("crit", "notice")
	// to the packed severity value (logflags.SeverityFatal, ...) it should
	// be detected as, shadowing the built-in keyword table.
	SeverityOverrides map[string]uint32
}

// Default returns a Config populated with every package's own default,
// so a caller never has to special-case "no config file present".
func Default() Config {
	return Config{
		CheckpointInterval:  indexbuilder.DefaultCheckpointInterval,
		LineCacheEntries:    linecache.DefaultLineCapacity,
		ParsedCacheEntries:  linecache.DefaultParsedCapacity,
		WatchDebounceMs:     int(watch.DefaultDebounce.Milliseconds()),
		FilterBatchSize:     filterengine.DefaultBatchSize,
		FilterProgressEvery: filterengine.DefaultBatchSize,
	}
}

// Load reads FileName from projectRoot, validating the result before
// returning it. A missing file is not an error: Load returns Default()
// unchanged, matching the teacher's own "no KDL config found, use
// defaults" behavior.
func Load(projectRoot string) (Config, error) {
	path := filepath.Join(projectRoot, FileName)

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := parse(string(content))
	if err != nil {
		return Config{}, err
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func parse(content string) (Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "checkpoint-interval":
			if v, ok := firstIntArg(n); ok {
				cfg.CheckpointInterval = v
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "line-entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.LineCacheEntries = v
					}
				case "parsed-entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.ParsedCacheEntries = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce-ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.WatchDebounceMs = v
					}
				}
			}
		case "filter":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "batch-size":
					if v, ok := firstIntArg(cn); ok {
						cfg.FilterBatchSize = v
					}
				case "progress-interval":
					if v, ok := firstIntArg(cn); ok {
						cfg.FilterProgressEvery = v
					}
				}
			}
		case "severity":
			for _, cn := range n.Children {
				word := nodeName(cn)
				name, ok := firstStringArg(cn)
				if word == "" || !ok {
					continue
				}
				sev, ok := logflags.SeverityByName(name)
				if !ok {
					return Config{}, fmt.Errorf("config: severity %q: unknown severity name %q", word, name)
				}
				if cfg.SeverityOverrides == nil {
					cfg.SeverityOverrides = make(map[string]uint32)
				}
				cfg.SeverityOverrides[word] = sev
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}
