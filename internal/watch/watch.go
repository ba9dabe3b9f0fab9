// Package watch demultiplexes OS-level filesystem notifications into the
// two domain event streams a log viewer needs (spec.md §4.14):
// FileWatcher, which reports a tailed file being appended to or
// replaced, and DirWatcher, which reports .log files appearing in or
// disappearing from a directory, non-recursively. Both are non-blocking:
// callers poll with TryRecv rather than receiving on a raw channel,
// mirroring the original's try_recv consumer contract.
package watch

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind discriminates the Event union.
type EventKind int

const (
	// Modified reports a watched file was created or written to.
	Modified EventKind = iota
	// NewFile reports a .log file appearing in a watched directory.
	NewFile
	// FileRemoved reports a .log file disappearing from a watched directory.
	FileRemoved
	// Error reports a watcher failure; the watcher keeps running afterward.
	Error
)

// Event is one notification from a FileWatcher or DirWatcher.
type Event struct {
	Kind EventKind
	Path string
	Err  error
}

// DefaultDebounce coalesces bursts of events for the same path (e.g. a
// writer doing several small appends) into a single notification,
// matching the teacher's own debounced watch mode.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches a single file path for creation/modification.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	debounced
}

// NewFileWatcher starts watching path for Modified/Error events.
func NewFileWatcher(path string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	fw := &FileWatcher{watcher: w}
	fw.debounced = newDebounced(DefaultDebounce)
	go fw.run()
	return fw, nil
}

func (fw *FileWatcher) run() {
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				fw.closeEvents()
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fw.debounce(ev.Name, Event{Kind: Modified, Path: ev.Name})
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				fw.closeEvents()
				return
			}
			fw.send(Event{Kind: Error, Err: err})
		}
	}
}

// Close stops the underlying notification source. Buffered events remain
// available via TryRecv until drained.
func (fw *FileWatcher) Close() error {
	fw.stopDebounce()
	return fw.watcher.Close()
}

// DirWatcher watches a directory, non-recursively, for .log files being
// created or removed.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	debounced
}

// NewDirWatcher starts watching dir for NewFile/FileRemoved/Error events.
// Only entries with a .log extension are reported; subdirectories are not
// descended into.
func NewDirWatcher(dir string) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	dw := &DirWatcher{watcher: w, dir: dir}
	dw.debounced = newDebounced(DefaultDebounce)
	go dw.run()
	return dw, nil
}

func (dw *DirWatcher) run() {
	for {
		select {
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				dw.closeEvents()
				return
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".log") {
				continue
			}
			switch {
			case ev.Op&fsnotify.Create != 0:
				dw.debounce(ev.Name, Event{Kind: NewFile, Path: ev.Name})
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				dw.debounce(ev.Name, Event{Kind: FileRemoved, Path: ev.Name})
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				dw.closeEvents()
				return
			}
			dw.send(Event{Kind: Error, Err: err})
		}
	}
}

// Close stops the underlying notification source.
func (dw *DirWatcher) Close() error {
	dw.stopDebounce()
	return dw.watcher.Close()
}

// debounced holds the shared non-blocking output queue and per-path
// debounce timers used by both watcher kinds.
type debounced struct {
	mu       sync.Mutex
	pending  map[string]Event
	timers   map[string]*time.Timer
	window   time.Duration
	events   chan Event
	closed   bool
	closedMu sync.Once
}

func newDebounced(window time.Duration) debounced {
	return debounced{
		pending: make(map[string]Event),
		timers:  make(map[string]*time.Timer),
		window:  window,
		events:  make(chan Event, 64),
	}
}

// debounce records the latest event for key, resetting key's quiet-period
// timer; the event is flushed to the output queue once no further event
// arrives for key within the debounce window.
func (d *debounced) debounce(key string, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[key] = ev
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() { d.flush(key) })
}

func (d *debounced) flush(key string) {
	d.mu.Lock()
	ev, ok := d.pending[key]
	delete(d.pending, key)
	delete(d.timers, key)
	d.mu.Unlock()

	if ok {
		d.send(ev)
	}
}

// send enqueues ev without blocking; a full queue drops the oldest event
// to make room, since TryRecv consumers are expected to poll promptly and
// an unbounded queue would just delay the eventual backlog. A no-op after
// Close, since a pending debounce timer may still fire once the
// underlying watcher has already torn down.
func (d *debounced) send(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	select {
	case d.events <- ev:
	default:
		select {
		case <-d.events:
		default:
		}
		select {
		case d.events <- ev:
		default:
		}
	}
}

// TryRecv returns the next queued event without blocking, matching the
// original's try_recv poll contract.
func (d *debounced) TryRecv() (Event, bool) {
	select {
	case ev := <-d.events:
		return ev, true
	default:
		return Event{}, false
	}
}

func (d *debounced) stopDebounce() {
	d.mu.Lock()
	for _, t := range d.timers {
		t.Stop()
	}
	d.mu.Unlock()
}

func (d *debounced) closeEvents() {
	d.closedMu.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.events)
	})
}
