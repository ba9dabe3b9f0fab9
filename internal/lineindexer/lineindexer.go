// Package lineindexer implements the incremental, capture-time indexer
// (spec.md §4.7): lines are pushed one at a time as they're captured from
// a live process or tail, rather than scanned in bulk from an existing
// file (internal/indexbuilder). It supports crash-safe resume from an
// interrupted run via the last durable checkpoint and meta header.
package lineindexer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/ltix/internal/checkpoint"
	"github.com/standardbeagle/ltix/internal/columnio"
	"github.com/standardbeagle/ltix/internal/indexmeta"
	"github.com/standardbeagle/ltix/internal/logflags"
	"github.com/standardbeagle/ltix/internal/writerlock"
)

// contentHashSampleLen bounds how many leading bytes of a line are hashed.
const contentHashSampleLen = 256

// DefaultCheckpointInterval is the checkpoint cadence used by Create when
// the caller hasn't overridden it.
const DefaultCheckpointInterval = 100

// Indexer appends one line at a time to a live index, flushing to disk on
// Sync and finalizing on Finish. Unlike internal/indexbuilder, a held
// writer lock does not stop Indexer from proceeding: the process capturing
// live output has nowhere else to put the lines it's already received, so
// it logs a warning and indexes without the lock rather than dropping data.
type Indexer struct {
	indexDir string
	lock     *writerlock.Lock // nil if the lock was already held elsewhere

	offsetW *columnio.Writer[uint64]
	lengthW *columnio.Writer[uint32]
	flagsW  *columnio.Writer[uint32]
	timeW   *columnio.Writer[uint64]
	ckptW   *checkpoint.Writer

	checkpointInterval   uint16
	lineCount            uint64
	currentOffset        uint64
	severity             checkpoint.SeverityCounts
	lastLineOffset       uint64
	lastContentHash      uint64
	lastCheckpointedLine uint64
}

func tryLockWithWarning(indexDir string) *writerlock.Lock {
	lock, ok, err := writerlock.TryAcquire(indexDir)
	if err != nil || !ok {
		fmt.Fprintf(os.Stderr, "warning: index directory is locked by another process, proceeding without lock: %s\n", indexDir)
		return nil
	}
	return lock
}

func addSeverity(counts *checkpoint.SeverityCounts, severity uint32) {
	switch severity {
	case logflags.SeverityTrace:
		counts.Trace++
	case logflags.SeverityDebug:
		counts.Debug++
	case logflags.SeverityInfo:
		counts.Info++
	case logflags.SeverityWarn:
		counts.Warn++
	case logflags.SeverityError:
		counts.Error++
	case logflags.SeverityFatal:
		counts.Fatal++
	default:
		counts.Unknown++
	}
}

func contentHash(content []byte) uint64 {
	end := len(content)
	if end > contentHashSampleLen {
		end = contentHashSampleLen
	}
	return xxhash.Sum64(content[:end])
}

// Create starts a fresh index in indexDir, truncating any column files
// already present. It never fails solely because the writer lock is held
// elsewhere; it proceeds without the lock in that case.
func Create(indexDir string) (*Indexer, error) {
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return nil, fmt.Errorf("lineindexer: mkdir %s: %w", indexDir, err)
	}
	lock := tryLockWithWarning(indexDir)

	offsetW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "offsets"))
	if err != nil {
		return nil, err
	}
	lengthW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "lengths"))
	if err != nil {
		return nil, err
	}
	flagsW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "flags"))
	if err != nil {
		return nil, err
	}
	timeW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "time"))
	if err != nil {
		return nil, err
	}
	ckptW, err := checkpoint.Create(filepath.Join(indexDir, "checkpoints"))
	if err != nil {
		return nil, err
	}

	return &Indexer{
		indexDir:           indexDir,
		lock:               lock,
		offsetW:            offsetW,
		lengthW:            lengthW,
		flagsW:             flagsW,
		timeW:              timeW,
		ckptW:              ckptW,
		checkpointInterval: DefaultCheckpointInterval,
	}, nil
}

// Resume reopens an index directory left by an interrupted run, restoring
// line count, byte offset, and cumulative severity counts from the meta
// header and the last durable checkpoint. Any column-file bytes beyond
// meta's entry_count are discarded, since they could only be a partial
// write from the crash that interrupted the prior run.
func Resume(indexDir string) (*Indexer, error) {
	lock := tryLockWithWarning(indexDir)

	meta, err := indexmeta.ReadFrom(filepath.Join(indexDir, "meta"))
	if err != nil {
		return nil, fmt.Errorf("lineindexer: resume: %w", err)
	}

	var severity checkpoint.SeverityCounts
	var lastHash uint64
	var lastCheckpointedLine uint64
	if r, err := checkpoint.OpenReader(filepath.Join(indexDir, "checkpoints")); err == nil {
		// Records past entry_count are dropped by checkpoint.TruncateAndOpen
		// below, so resume from the last one at or before it.
		for i := r.Len() - 1; i >= 0; i-- {
			last, _ := r.Get(i)
			if last.LineNumber <= meta.EntryCount {
				severity = last.SeverityCounts
				lastHash = last.ContentHash
				lastCheckpointedLine = last.LineNumber
				break
			}
		}
		r.Close()
	}

	entryCount := int(meta.EntryCount)

	lastLineOffset := meta.LogFileSize
	if entryCount > 0 {
		if r, err := columnio.OpenReader[uint64](filepath.Join(indexDir, "offsets"), entryCount); err == nil {
			if off, ok := r.Get(entryCount - 1); ok {
				lastLineOffset = off
			}
			r.Close()
		}
	}

	offsetW, err := columnio.TruncateAndOpen[uint64](filepath.Join(indexDir, "offsets"), entryCount)
	if err != nil {
		return nil, err
	}
	lengthW, err := columnio.TruncateAndOpen[uint32](filepath.Join(indexDir, "lengths"), entryCount)
	if err != nil {
		return nil, err
	}
	flagsW, err := columnio.TruncateAndOpen[uint32](filepath.Join(indexDir, "flags"), entryCount)
	if err != nil {
		return nil, err
	}
	timeW, err := columnio.TruncateAndOpen[uint64](filepath.Join(indexDir, "time"), entryCount)
	if err != nil {
		return nil, err
	}
	ckptW, err := checkpoint.TruncateAndOpen(filepath.Join(indexDir, "checkpoints"), meta.EntryCount)
	if err != nil {
		return nil, err
	}

	return &Indexer{
		indexDir:             indexDir,
		lock:                 lock,
		offsetW:              offsetW,
		lengthW:              lengthW,
		flagsW:               flagsW,
		timeW:                timeW,
		ckptW:                ckptW,
		checkpointInterval:   meta.CheckpointInterval,
		lineCount:            meta.EntryCount,
		currentOffset:        meta.LogFileSize,
		severity:             severity,
		lastLineOffset:       lastLineOffset,
		lastContentHash:      lastHash,
		lastCheckpointedLine: lastCheckpointedLine,
	}, nil
}

// WithCheckpointInterval overrides the checkpoint cadence. Only meaningful
// right after Create; Resume always restores the interval from meta.
func (ix *Indexer) WithCheckpointInterval(interval uint16) *Indexer {
	ix.checkpointInterval = interval
	return ix
}

// PushLine indexes one raw line including its trailing delimiter (`\n`,
// `\r\n`, or none — the last line of a still-growing file may have no
// delimiter yet). The stored length and hash cover content only, with the
// delimiter stripped; timestamp is the caller-supplied capture time.
func (ix *Indexer) PushLine(raw []byte, timestamp uint64) error {
	content := raw
	rawLen := len(raw)
	switch {
	case bytes.HasSuffix(raw, []byte("\r\n")):
		content = raw[:len(raw)-2]
	case bytes.HasSuffix(raw, []byte("\n")):
		content = raw[:len(raw)-1]
	}

	flags := logflags.Detect(content)
	lineOffset := ix.currentOffset
	hash := contentHash(content)

	ix.offsetW.Push(lineOffset)
	ix.lengthW.Push(uint32(len(content)))
	ix.flagsW.Push(flags)
	ix.timeW.Push(timestamp)

	addSeverity(&ix.severity, logflags.Severity(flags))
	ix.lineCount++
	ix.lastLineOffset = lineOffset
	ix.lastContentHash = hash
	ix.currentOffset += uint64(rawLen)

	interval := uint64(ix.checkpointInterval)
	if interval > 0 && ix.lineCount%interval == 0 {
		if err := ix.ckptW.Push(checkpoint.Record{
			LineNumber:     ix.lineCount,
			ByteOffset:     lineOffset,
			ContentHash:    hash,
			IndexTimestamp: timestamp,
			SeverityCounts: ix.severity,
		}); err != nil {
			return err
		}
		ix.lastCheckpointedLine = ix.lineCount
	}

	return nil
}

func (ix *Indexer) buildMeta() indexmeta.Header {
	return indexmeta.Header{
		Version:            indexmeta.Version,
		CheckpointInterval: ix.checkpointInterval,
		EntryCount:         ix.lineCount,
		LogFileSize:        ix.currentOffset,
		ColumnsPresent:     indexmeta.AllColumns,
	}
}

// Sync flushes buffered column and checkpoint writes and rewrites meta, so
// a concurrent reader sees the lines indexed so far. Call periodically
// during capture, not after every line.
func (ix *Indexer) Sync() error {
	if err := ix.offsetW.Flush(); err != nil {
		return err
	}
	if err := ix.lengthW.Flush(); err != nil {
		return err
	}
	if err := ix.flagsW.Flush(); err != nil {
		return err
	}
	if err := ix.timeW.Flush(); err != nil {
		return err
	}
	if err := ix.ckptW.Flush(); err != nil {
		return err
	}
	return indexmeta.WriteTo(filepath.Join(ix.indexDir, "meta"), ix.buildMeta())
}

// Finish writes a final checkpoint covering the last line, unless one was
// already durably written for it (either by PushLine landing exactly on an
// interval boundary, or by a prior Finish that this call is resuming after
// with no intervening PushLine calls), flushes everything, writes the final
// meta header, releases the writer lock (if held), and returns the
// resulting header.
func (ix *Indexer) Finish(now uint64) (indexmeta.Header, error) {
	if ix.lineCount > 0 && ix.lineCount > ix.lastCheckpointedLine {
		if err := ix.ckptW.Push(checkpoint.Record{
			LineNumber:     ix.lineCount,
			ByteOffset:     ix.lastLineOffset,
			ContentHash:    ix.lastContentHash,
			IndexTimestamp: now,
			SeverityCounts: ix.severity,
		}); err != nil {
			return indexmeta.Header{}, err
		}
		ix.lastCheckpointedLine = ix.lineCount
	}

	if err := ix.Sync(); err != nil {
		return indexmeta.Header{}, err
	}

	meta := ix.buildMeta()

	if err := ix.offsetW.Close(); err != nil {
		return meta, err
	}
	if err := ix.lengthW.Close(); err != nil {
		return meta, err
	}
	if err := ix.flagsW.Close(); err != nil {
		return meta, err
	}
	if err := ix.timeW.Close(); err != nil {
		return meta, err
	}
	if err := ix.ckptW.Close(); err != nil {
		return meta, err
	}
	if ix.lock != nil {
		if err := ix.lock.Close(); err != nil {
			return meta, err
		}
	}

	return meta, nil
}
