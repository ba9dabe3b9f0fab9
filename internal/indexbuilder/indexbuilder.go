// Package indexbuilder implements the bulk index builder (spec.md §4.6):
// given an existing log file, it produces the full set of column files
// and checkpoint log from a single mmap pass, suitable for indexing a
// file that already exists in full (as opposed to internal/lineindexer's
// incremental capture-time path).
package indexbuilder

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"

	"github.com/standardbeagle/ltix/internal/checkpoint"
	"github.com/standardbeagle/ltix/internal/columnio"
	"github.com/standardbeagle/ltix/internal/indexmeta"
	"github.com/standardbeagle/ltix/internal/logflags"
	"github.com/standardbeagle/ltix/internal/ltixerrors"
	"github.com/standardbeagle/ltix/internal/writerlock"
)

// batchSize is the number of entries buffered before a column flush.
const batchSize = 1024

// contentHashSampleLen bounds how many leading bytes of a checkpointed
// line are hashed, keeping checkpoint writes O(1) regardless of line
// length.
const contentHashSampleLen = 256

// DefaultCheckpointInterval is the checkpoint cadence used when the
// caller doesn't specify one.
const DefaultCheckpointInterval = 100

// Builder produces a full index for an existing log file in one pass.
type Builder struct {
	checkpointInterval uint16
}

// New creates a Builder with the default checkpoint interval.
func New() *Builder {
	return &Builder{checkpointInterval: DefaultCheckpointInterval}
}

// WithCheckpointInterval overrides the checkpoint cadence.
func (b *Builder) WithCheckpointInterval(interval uint16) *Builder {
	b.checkpointInterval = interval
	return b
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

func contentHash(data []byte, offset int) uint64 {
	if offset >= len(data) {
		return 0
	}
	end := offset + contentHashSampleLen
	if end > len(data) {
		end = len(data)
	}
	return xxhash.Sum64(data[offset:end])
}

func setColumnsPresent(h *indexmeta.Header) {
	h.ColumnsPresent = indexmeta.AllColumns
}

// Build indexes logPath into indexDir, acquiring the writer lock for the
// duration. It returns ltixerrors.LockError-wrapped busy state (via the
// caller checking the returned error) if another process holds the lock.
func (b *Builder) Build(logPath, indexDir string) (indexmeta.Header, error) {
	lock, ok, err := writerlock.TryAcquire(indexDir)
	if err != nil {
		return indexmeta.Header{}, ltixerrors.IOError("build", indexDir, err)
	}
	if !ok {
		return indexmeta.Header{}, ltixerrors.NewLockError(indexDir)
	}
	defer lock.Close()

	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return indexmeta.Header{}, ltixerrors.IOError("mkdir", indexDir, err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		return indexmeta.Header{}, ltixerrors.IOError("open", logPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return indexmeta.Header{}, ltixerrors.IOError("stat", logPath, err)
	}
	fileSize := st.Size()

	if fileSize == 0 {
		return b.buildEmpty(indexDir)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fileSize), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return indexmeta.Header{}, ltixerrors.IOError("mmap", logPath, err)
	}
	defer unix.Munmap(data)

	return b.buildFromBytes(data, fileSize, indexDir)
}

func (b *Builder) buildEmpty(indexDir string) (indexmeta.Header, error) {
	h := indexmeta.Header{
		Version:            indexmeta.Version,
		CheckpointInterval: b.checkpointInterval,
		EntryCount:         0,
		LogFileSize:        0,
	}
	setColumnsPresent(&h)

	offW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "offsets"))
	if err != nil {
		return h, err
	}
	defer offW.Close()
	lenW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "lengths"))
	if err != nil {
		return h, err
	}
	defer lenW.Close()
	flgW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "flags"))
	if err != nil {
		return h, err
	}
	defer flgW.Close()
	timW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "time"))
	if err != nil {
		return h, err
	}
	defer timW.Close()
	ckpt, err := checkpoint.Create(filepath.Join(indexDir, "checkpoints"))
	if err != nil {
		return h, err
	}
	defer ckpt.Close()

	if err := indexmeta.WriteTo(filepath.Join(indexDir, "meta"), h); err != nil {
		return h, err
	}
	return h, nil
}

func (b *Builder) buildFromBytes(data []byte, fileSize int64, indexDir string) (indexmeta.Header, error) {
	offW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "offsets"))
	if err != nil {
		return indexmeta.Header{}, err
	}
	defer offW.Close()
	lenW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "lengths"))
	if err != nil {
		return indexmeta.Header{}, err
	}
	defer lenW.Close()
	flgW, err := columnio.CreateWriter[uint32](filepath.Join(indexDir, "flags"))
	if err != nil {
		return indexmeta.Header{}, err
	}
	defer flgW.Close()
	timW, err := columnio.CreateWriter[uint64](filepath.Join(indexDir, "time"))
	if err != nil {
		return indexmeta.Header{}, err
	}
	defer timW.Close()
	ckptW, err := checkpoint.Create(filepath.Join(indexDir, "checkpoints"))
	if err != nil {
		return indexmeta.Header{}, err
	}
	defer ckptW.Close()

	now := uint64(time.Now().UnixMilli())
	interval := uint64(b.checkpointInterval)

	var lineCount uint64
	var severity checkpoint.SeverityCounts
	pos := 0
	lastLineStart := 0

	for pos < len(data) {
		lineStart := pos
		lastLineStart = lineStart

		lineEnd := len(data)
		if rel := bytes.IndexByte(data[pos:], '\n'); rel >= 0 {
			lineEnd = pos + rel
		}

		contentEnd := lineEnd
		if contentEnd > lineStart && data[contentEnd-1] == '\r' {
			contentEnd--
		}

		line := data[lineStart:contentEnd]
		flags := logflags.Detect(line)

		offW.Push(uint64(lineStart))
		lenW.Push(uint32(len(line)))
		flgW.Push(flags)
		timW.Push(now)

		addSeverity(&severity, logflags.Severity(flags))
		lineCount++

		if lineCount%batchSize == 0 {
			if err := offW.Flush(); err != nil {
				return indexmeta.Header{}, err
			}
			if err := lenW.Flush(); err != nil {
				return indexmeta.Header{}, err
			}
			if err := flgW.Flush(); err != nil {
				return indexmeta.Header{}, err
			}
			if err := timW.Flush(); err != nil {
				return indexmeta.Header{}, err
			}
		}

		if interval > 0 && lineCount%interval == 0 {
			if err := ckptW.Push(checkpoint.Record{
				LineNumber:     lineCount,
				ByteOffset:     uint64(lineStart),
				ContentHash:    contentHash(data, lineStart),
				IndexTimestamp: now,
				SeverityCounts: severity,
			}); err != nil {
				return indexmeta.Header{}, err
			}
		}

		if lineEnd < len(data) {
			pos = lineEnd + 1
		} else {
			pos = len(data)
		}
	}

	if lineCount > 0 && (interval == 0 || lineCount%interval != 0) {
		if err := ckptW.Push(checkpoint.Record{
			LineNumber:     lineCount,
			ByteOffset:     uint64(lastLineStart),
			ContentHash:    contentHash(data, lastLineStart),
			IndexTimestamp: now,
			SeverityCounts: severity,
		}); err != nil {
			return indexmeta.Header{}, err
		}
	}

	if err := offW.Flush(); err != nil {
		return indexmeta.Header{}, err
	}
	if err := lenW.Flush(); err != nil {
		return indexmeta.Header{}, err
	}
	if err := flgW.Flush(); err != nil {
		return indexmeta.Header{}, err
	}
	if err := timW.Flush(); err != nil {
		return indexmeta.Header{}, err
	}
	if err := ckptW.Flush(); err != nil {
		return indexmeta.Header{}, err
	}

	h := indexmeta.Header{
		Version:            indexmeta.Version,
		CheckpointInterval: b.checkpointInterval,
		EntryCount:         lineCount,
		LogFileSize:        uint64(fileSize),
	}
	setColumnsPresent(&h)

	if err := indexmeta.WriteTo(filepath.Join(indexDir, "meta"), h); err != nil {
		return indexmeta.Header{}, err
	}
	return h, nil
}
