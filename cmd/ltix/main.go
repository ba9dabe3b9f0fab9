package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/ltix/internal/cancel"
	"github.com/standardbeagle/ltix/internal/checkpoint"
	"github.com/standardbeagle/ltix/internal/columnio"
	"github.com/standardbeagle/ltix/internal/config"
	"github.com/standardbeagle/ltix/internal/filterengine"
	"github.com/standardbeagle/ltix/internal/indexbuilder"
	"github.com/standardbeagle/ltix/internal/indexmeta"
	"github.com/standardbeagle/ltix/internal/lineindexer"
	"github.com/standardbeagle/ltix/internal/logflags"
	"github.com/standardbeagle/ltix/internal/logreader"
	"github.com/standardbeagle/ltix/internal/matcher"
	"github.com/standardbeagle/ltix/internal/version"
	"github.com/standardbeagle/ltix/internal/watch"
)

// indexDirFor derives an index directory from a log file path, as a
// sibling of the log file, so repeated runs against the same file reuse
// the same directory.
func indexDirFor(logPath string) string {
	return logPath + ".ltixidx"
}

func cmdIndex(c *cli.Context) error {
	logPath := c.Args().Get(0)
	if logPath == "" {
		return cli.Exit("usage: ltix index <logfile>", 1)
	}

	cfg, err := config.Load(filepath.Dir(logPath))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}
	logflags.SetSeverityOverrides(cfg.SeverityOverrides)

	indexDir := indexDirFor(logPath)
	b := indexbuilder.New().WithCheckpointInterval(uint16(cfg.CheckpointInterval))

	h, err := b.Build(logPath, indexDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("build index: %v", err), 1)
	}

	fmt.Printf("entries: %d\n", h.EntryCount)

	ckpt, err := checkpoint.OpenReader(filepath.Join(indexDir, "checkpoints"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open checkpoints: %v", err), 1)
	}
	defer ckpt.Close()

	fmt.Printf("checkpoints: %d\n", ckpt.Len())

	if last, ok := ckpt.Last(); ok {
		s := last.SeverityCounts
		fmt.Printf("severity histogram: trace=%d debug=%d info=%d warn=%d error=%d fatal=%d unknown=%d\n",
			s.Trace, s.Debug, s.Info, s.Warn, s.Error, s.Fatal, s.Unknown)
	}

	return nil
}

func cmdFilter(c *cli.Context) error {
	logPath := c.Args().Get(0)
	pattern := c.Args().Get(1)
	if logPath == "" || pattern == "" {
		return cli.Exit("usage: ltix filter <logfile> <pattern>", 1)
	}

	cfg, err := config.Load(filepath.Dir(logPath))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}
	logflags.SetSeverityOverrides(cfg.SeverityOverrides)

	indexDir := indexDirFor(logPath)
	if _, err := os.Stat(filepath.Join(indexDir, "meta")); os.IsNotExist(err) {
		b := indexbuilder.New().WithCheckpointInterval(uint16(cfg.CheckpointInterval))
		if _, err := b.Build(logPath, indexDir); err != nil {
			return cli.Exit(fmt.Sprintf("build index: %v", err), 1)
		}
	}

	meta, err := indexmeta.ReadFrom(filepath.Join(indexDir, "meta"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read index meta: %v", err), 1)
	}

	m, err := matcher.Compile(pattern)
	if err != nil {
		return cli.Exit(fmt.Sprintf("compile pattern: %v", err), 1)
	}

	reader, err := logreader.NewHugeReader(logPath, cfg.LineCacheEntries)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open log: %v", err), 1)
	}
	defer reader.Close()

	var flagsSrc filterengine.FlagsSource
	if flagsR, err := columnio.OpenReader[uint32](filepath.Join(indexDir, "flags"), int(meta.EntryCount)); err == nil {
		defer flagsR.Close()
		flagsSrc = flagsR
	}

	tok := cancel.New()
	msgs := filterengine.Run(reader, flagsSrc, m, filterengine.Range{}, cfg.FilterBatchSize, tok)

	var matches []int
	for msg := range msgs {
		switch msg.Kind {
		case filterengine.Complete:
			matches = msg.Matches
		case filterengine.Error:
			return cli.Exit(fmt.Sprintf("filter run: %v", msg.Err), 1)
		}
	}

	for _, line := range matches {
		fmt.Println(line)
	}
	fmt.Fprintf(os.Stderr, "%d matching lines\n", len(matches))

	return nil
}

func cmdWatch(c *cli.Context) error {
	logPath := c.Args().Get(0)
	if logPath == "" {
		return cli.Exit("usage: ltix watch <logfile>", 1)
	}

	indexDir := indexDirFor(logPath)
	ix, err := lineindexer.Resume(indexDir)
	if err != nil {
		ix, err = lineindexer.Create(indexDir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("open index: %v", err), 1)
		}
	}
	defer ix.Sync()

	fw, err := watch.NewFileWatcher(logPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("watch: %v", err), 1)
	}
	defer fw.Close()

	fmt.Printf("watching %s (index: %s)\n", logPath, indexDir)
	for {
		ev, ok := fw.TryRecv()
		if !ok {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		switch ev.Kind {
		case watch.Modified:
			fmt.Println("modified:", ev.Path)
		case watch.FileRemoved:
			fmt.Println("removed:", ev.Path)
			return nil
		case watch.Error:
			fmt.Println("error:", ev.Err)
		}
	}
}

func main() {
	app := &cli.App{
		Name:    "ltix",
		Usage:   "columnar log-index and filter core",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "build an index for a log file and print its stats",
				ArgsUsage: "<logfile>",
				Action:    cmdIndex,
			},
			{
				Name:      "filter",
				Usage:     "build or open an index and run a filter against it",
				ArgsUsage: "<logfile> <pattern>",
				Action:    cmdFilter,
			},
			{
				Name:      "watch",
				Usage:     "open an index in resume mode and follow a live log file",
				ArgsUsage: "<logfile>",
				Action:    cmdWatch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ltix: %v\n", err)
		os.Exit(1)
	}
}
