// Package appstate implements the central event-sourced reducer that
// coordinates navigation, filtering, tab selection, and file-system
// notifications for each open source (spec.md §4.15). Handlers never
// mutate state directly; they produce an Event, and Apply is the single
// place state changes. Event shapes are grounded on
// original_source/src/event.rs's AppEvent enum, narrowed to the
// categories spec.md §4.15 names (input-editing minutiae like per-key
// text-cursor movement belongs to a TUI input handler, outside this
// core's module set).
package appstate

import "github.com/standardbeagle/ltix/internal/viewport"

// Mode is a tab's current content-presentation mode.
type Mode int

const (
	// Normal shows every line: line_indices == [0, total_lines).
	Normal Mode = iota
	// Filtered shows a strictly increasing subset produced by a filter run.
	Filtered
	// Aggregation shows a derived/summarized view (reserved for a future
	// aggregation pipeline; the reducer accepts the mode but no event in
	// this package currently transitions into it).
	Aggregation
)

// FilterPhase tracks where the active tab's filter lifecycle is.
type FilterPhase int

const (
	FilterIdle FilterPhase = iota
	FilterComposing
	FilterRunning
	FilterDone
	FilterFailed
)

// EventKind discriminates the Event union Apply accepts.
type EventKind int

const (
	// Navigation
	ScrollDown EventKind = iota
	ScrollUp
	PageDown
	PageUp
	JumpToStart
	JumpToEnd
	MouseScrollDown
	MouseScrollUp
	ViewportDown
	ViewportUp
	CenterView
	ViewToTop
	ViewToBottom

	// Tab selection
	NextTab
	PrevTab
	SelectTab

	// Filter lifecycle
	StartFilterInput
	FilterInputSubmit
	FilterInputCancel
	ClearFilter
	StartFilter
	FilterProgress
	FilterPartialResults
	FilterComplete
	FilterError
	HistoryUp
	HistoryDown

	// File events
	FileModified
	FileTruncated

	// Mode toggles
	ToggleFollowMode
	DisableFollowMode
	ShowHelp
	HideHelp

	// Line expansion
	ToggleLineExpansion
	CollapseAll

	Quit
)

// Range restricts an incremental filter run to [Start, End).
type Range struct {
	Start, End int
}

// Event is a pure description of something that happened; Apply is the
// only place it takes effect.
type Event struct {
	Kind EventKind

	Amount      int    // PageDown/PageUp/MouseScrollDown/MouseScrollUp line count
	TabIndex    int    // SelectTab
	Pattern     string // StartFilter, StartFilterInput seed, FilterInputSubmit
	Incremental bool
	Range       *Range
	Indices     []int // FilterPartialResults, FilterComplete
	Err         error  // FilterError

	NewTotal int // FileModified, FileTruncated
	OldTotal int // FileModified
}

// TabState is the per-source state spec.md §4.15/§3 calls "AppState":
// one open log source's navigation/filter/follow state.
type TabState struct {
	TotalLines       int
	Mode             Mode
	LineIndices      []int
	FilterPattern    string
	FilterPhase      FilterPhase
	FilterHistory    []string
	historyCursor    int
	LastFilteredLine int
	FollowMode       bool
	LineExpansion    map[int]bool
	Viewport         *viewport.Viewport
	LastErr          error
}

// NewTabState creates a tab freshly opened against a source with
// totalLines lines, in Normal mode with line_indices == [0, totalLines).
func NewTabState(totalLines int) *TabState {
	return &TabState{
		TotalLines:    totalLines,
		Mode:          Normal,
		LineIndices:   identityRange(totalLines),
		LineExpansion: make(map[int]bool),
		Viewport:      viewport.New(0),
		historyCursor: -1,
	}
}

func identityRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Apply mutates t according to ev and returns any follow-up events the
// reducer itself raises (spec.md §4.15's FileModified → StartFilter
// chaining), for the caller to feed back into Apply.
func (t *TabState) Apply(ev Event) []Event {
	switch ev.Kind {
	case ScrollDown:
		t.Viewport.MoveSelection(1, t.LineIndices)
	case ScrollUp:
		t.Viewport.MoveSelection(-1, t.LineIndices)
	case PageDown:
		t.Viewport.MoveSelection(ev.Amount, t.LineIndices)
	case PageUp:
		t.Viewport.MoveSelection(-ev.Amount, t.LineIndices)
	case JumpToStart:
		t.Viewport.JumpToStart(t.LineIndices)
	case JumpToEnd:
		t.Viewport.JumpToEnd(t.LineIndices)
	case MouseScrollDown:
		t.Viewport.ScrollWithSelection(ev.Amount, t.LineIndices)
	case MouseScrollUp:
		t.Viewport.ScrollWithSelection(-ev.Amount, t.LineIndices)
	case ViewportDown:
		t.Viewport.MoveViewport(1, t.LineIndices)
	case ViewportUp:
		t.Viewport.MoveViewport(-1, t.LineIndices)
	case CenterView:
		t.Viewport.Center(t.LineIndices)
	case ViewToTop:
		t.Viewport.AnchorToTop(t.LineIndices)
	case ViewToBottom:
		t.Viewport.AnchorToBottom(t.LineIndices)

	case StartFilterInput:
		t.FilterPhase = FilterComposing
		t.FilterPattern = ev.Pattern
		t.historyCursor = -1

	case FilterInputSubmit:
		t.FilterPattern = ev.Pattern
		return []Event{{Kind: StartFilter, Pattern: ev.Pattern, Incremental: false}}

	case FilterInputCancel:
		t.FilterPhase = FilterIdle

	case ClearFilter:
		t.Mode = Normal
		t.FilterPattern = ""
		t.FilterPhase = FilterIdle
		t.LastFilteredLine = 0
		t.LineIndices = identityRange(t.TotalLines)
		t.Viewport.PreserveScreenOffset(t.LineIndices)

	case StartFilter:
		t.FilterPattern = ev.Pattern
		t.FilterPhase = FilterRunning
		if ev.Pattern != "" {
			t.pushHistory(ev.Pattern)
		}

	case FilterProgress:
		// Heartbeat only; no state change.

	case FilterPartialResults:
		t.Mode = Filtered
		t.LineIndices = ev.Indices
		t.Viewport.PreserveScreenOffset(t.LineIndices)

	case FilterComplete:
		t.Mode = Filtered
		t.LineIndices = ev.Indices
		t.FilterPhase = FilterDone
		if len(ev.Indices) > 0 {
			t.LastFilteredLine = ev.Indices[len(ev.Indices)-1]
		}
		t.Viewport.PreserveScreenOffset(t.LineIndices)

	case FilterError:
		t.FilterPhase = FilterFailed
		t.LastErr = ev.Err

	case HistoryUp:
		t.historyUp()
	case HistoryDown:
		t.historyDown()

	case FileModified:
		t.TotalLines = ev.NewTotal
		if t.Mode == Filtered {
			return []Event{{
				Kind:        StartFilter,
				Pattern:     t.FilterPattern,
				Incremental: true,
				Range:       &Range{Start: t.LastFilteredLine, End: ev.NewTotal},
			}}
		}
		t.LineIndices = identityRange(t.TotalLines)

	case FileTruncated:
		t.TotalLines = ev.NewTotal
		t.Mode = Normal
		t.FilterPattern = ""
		t.FilterPhase = FilterIdle
		t.LastFilteredLine = 0
		t.LineIndices = identityRange(t.TotalLines)
		t.LineExpansion = make(map[int]bool)

	case ToggleFollowMode:
		t.FollowMode = !t.FollowMode
	case DisableFollowMode:
		t.FollowMode = false

	case ToggleLineExpansion:
		line := t.Viewport.SelectedLine()
		t.LineExpansion[line] = !t.LineExpansion[line]
	case CollapseAll:
		t.LineExpansion = make(map[int]bool)
	}

	return nil
}

func (t *TabState) pushHistory(pattern string) {
	if n := len(t.FilterHistory); n > 0 && t.FilterHistory[n-1] == pattern {
		return
	}
	t.FilterHistory = append(t.FilterHistory, pattern)
	t.historyCursor = len(t.FilterHistory)
}

func (t *TabState) historyUp() {
	if len(t.FilterHistory) == 0 {
		return
	}
	if t.historyCursor <= 0 {
		t.historyCursor = 0
	} else {
		t.historyCursor--
	}
	t.FilterPattern = t.FilterHistory[t.historyCursor]
}

func (t *TabState) historyDown() {
	if len(t.FilterHistory) == 0 {
		return
	}
	if t.historyCursor >= len(t.FilterHistory)-1 {
		t.historyCursor = len(t.FilterHistory)
		t.FilterPattern = ""
		return
	}
	t.historyCursor++
	t.FilterPattern = t.FilterHistory[t.historyCursor]
}

// App coordinates multiple open tabs and the events that select between
// them; everything else is delegated to the active tab.
type App struct {
	Tabs       []*TabState
	ActiveTab  int
	HelpShown  bool
	ShouldQuit bool
}

// NewApp wraps an initial set of tabs, starting with the first active.
func NewApp(tabs ...*TabState) *App {
	return &App{Tabs: tabs}
}

// Active returns the currently selected tab, or nil if there are none.
func (a *App) Active() *TabState {
	if a.ActiveTab < 0 || a.ActiveTab >= len(a.Tabs) {
		return nil
	}
	return a.Tabs[a.ActiveTab]
}

// Apply dispatches ev: tab-selection and global events are handled here,
// everything else is delegated to the active tab, with any follow-up
// events it raises applied in turn.
func (a *App) Apply(ev Event) {
	switch ev.Kind {
	case NextTab:
		if len(a.Tabs) > 0 {
			a.ActiveTab = (a.ActiveTab + 1) % len(a.Tabs)
		}
		return
	case PrevTab:
		if len(a.Tabs) > 0 {
			a.ActiveTab = (a.ActiveTab - 1 + len(a.Tabs)) % len(a.Tabs)
		}
		return
	case SelectTab:
		if ev.TabIndex >= 0 && ev.TabIndex < len(a.Tabs) {
			a.ActiveTab = ev.TabIndex
		}
		return
	case ShowHelp:
		a.HelpShown = true
		return
	case HideHelp:
		a.HelpShown = false
		return
	case Quit:
		a.ShouldQuit = true
		return
	}

	active := a.Active()
	if active == nil {
		return
	}

	followups := active.Apply(ev)
	for _, f := range followups {
		a.Apply(f)
	}
}
