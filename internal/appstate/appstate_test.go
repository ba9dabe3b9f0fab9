package appstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTabStateNormalModeInvariant(t *testing.T) {
	ts := NewTabState(10)
	require.Equal(t, Normal, ts.Mode)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ts.LineIndices)
}

func TestScrollDownMovesSelection(t *testing.T) {
	ts := NewTabState(10)
	ts.Viewport.Resolve(ts.LineIndices, 5)
	ts.Apply(Event{Kind: ScrollDown})
	require.Equal(t, 1, ts.Viewport.SelectedLine())
}

func TestPageDownMovesBySize(t *testing.T) {
	ts := NewTabState(20)
	ts.Viewport.Resolve(ts.LineIndices, 5)
	ts.Apply(Event{Kind: PageDown, Amount: 5})
	require.Equal(t, 5, ts.Viewport.SelectedLine())
}

func TestFilterInputSubmitEmitsStartFilter(t *testing.T) {
	ts := NewTabState(10)
	followups := ts.Apply(Event{Kind: FilterInputSubmit, Pattern: "error"})
	require.Len(t, followups, 1)
	require.Equal(t, StartFilter, followups[0].Kind)
	require.Equal(t, "error", followups[0].Pattern)
}

func TestStartFilterRecordsHistory(t *testing.T) {
	ts := NewTabState(10)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	require.Equal(t, FilterRunning, ts.FilterPhase)
	require.Equal(t, []string{"error"}, ts.FilterHistory)
}

func TestFilterCompleteEntersFilteredMode(t *testing.T) {
	ts := NewTabState(10)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	ts.Apply(Event{Kind: FilterComplete, Indices: []int{1, 3, 5}})

	require.Equal(t, Filtered, ts.Mode)
	require.Equal(t, []int{1, 3, 5}, ts.LineIndices)
	require.Equal(t, 5, ts.LastFilteredLine)
	require.Equal(t, FilterDone, ts.FilterPhase)
}

func TestClearFilterRestoresNormalMode(t *testing.T) {
	ts := NewTabState(10)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	ts.Apply(Event{Kind: FilterComplete, Indices: []int{1, 3}})
	ts.Apply(Event{Kind: ClearFilter})

	require.Equal(t, Normal, ts.Mode)
	require.Equal(t, "", ts.FilterPattern)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, ts.LineIndices)
}

func TestFilterErrorRecordsErr(t *testing.T) {
	ts := NewTabState(10)
	wantErr := errors.New("bad pattern")
	ts.Apply(Event{Kind: FilterError, Err: wantErr})

	require.Equal(t, FilterFailed, ts.FilterPhase)
	require.Equal(t, wantErr, ts.LastErr)
}

func TestFileModifiedInNormalModeExtendsLineIndices(t *testing.T) {
	ts := NewTabState(5)
	followups := ts.Apply(Event{Kind: FileModified, NewTotal: 8, OldTotal: 5})

	require.Empty(t, followups)
	require.Equal(t, 8, ts.TotalLines)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, ts.LineIndices)
}

func TestFileModifiedInFilteredModeEmitsIncrementalStartFilter(t *testing.T) {
	ts := NewTabState(5)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	ts.Apply(Event{Kind: FilterComplete, Indices: []int{1, 3}})

	followups := ts.Apply(Event{Kind: FileModified, NewTotal: 10, OldTotal: 5})

	require.Len(t, followups, 1)
	f := followups[0]
	require.Equal(t, StartFilter, f.Kind)
	require.True(t, f.Incremental)
	require.Equal(t, "error", f.Pattern)
	require.Equal(t, &Range{Start: 3, End: 10}, f.Range)
}

func TestFileTruncatedResetsEverything(t *testing.T) {
	ts := NewTabState(5)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	ts.Apply(Event{Kind: FilterComplete, Indices: []int{1, 3}})
	ts.Apply(Event{Kind: ToggleLineExpansion})

	ts.Apply(Event{Kind: FileTruncated, NewTotal: 2})

	require.Equal(t, Normal, ts.Mode)
	require.Equal(t, "", ts.FilterPattern)
	require.Equal(t, FilterIdle, ts.FilterPhase)
	require.Equal(t, []int{0, 1}, ts.LineIndices)
	require.Empty(t, ts.LineExpansion)
}

func TestHistoryUpDownNavigation(t *testing.T) {
	ts := NewTabState(10)
	ts.Apply(Event{Kind: StartFilter, Pattern: "error"})
	ts.Apply(Event{Kind: StartFilter, Pattern: "warn"})

	ts.Apply(Event{Kind: HistoryUp})
	require.Equal(t, "warn", ts.FilterPattern)
	ts.Apply(Event{Kind: HistoryUp})
	require.Equal(t, "error", ts.FilterPattern)

	ts.Apply(Event{Kind: HistoryDown})
	require.Equal(t, "warn", ts.FilterPattern)
	ts.Apply(Event{Kind: HistoryDown})
	require.Equal(t, "", ts.FilterPattern)
}

func TestToggleLineExpansion(t *testing.T) {
	ts := NewTabState(10)
	ts.Viewport.Resolve(ts.LineIndices, 5)
	ts.Viewport.JumpToLine(3)

	ts.Apply(Event{Kind: ToggleLineExpansion})
	require.True(t, ts.LineExpansion[3])

	ts.Apply(Event{Kind: ToggleLineExpansion})
	require.False(t, ts.LineExpansion[3])
}

func TestCollapseAllClearsExpansion(t *testing.T) {
	ts := NewTabState(10)
	ts.LineExpansion[1] = true
	ts.LineExpansion[2] = true

	ts.Apply(Event{Kind: CollapseAll})
	require.Empty(t, ts.LineExpansion)
}

func TestToggleFollowMode(t *testing.T) {
	ts := NewTabState(10)
	require.False(t, ts.FollowMode)
	ts.Apply(Event{Kind: ToggleFollowMode})
	require.True(t, ts.FollowMode)
	ts.Apply(Event{Kind: DisableFollowMode})
	require.False(t, ts.FollowMode)
}

func TestAppTabSelection(t *testing.T) {
	app := NewApp(NewTabState(5), NewTabState(10), NewTabState(15))

	app.Apply(Event{Kind: NextTab})
	require.Equal(t, 1, app.ActiveTab)

	app.Apply(Event{Kind: NextTab})
	require.Equal(t, 2, app.ActiveTab)

	app.Apply(Event{Kind: NextTab})
	require.Equal(t, 0, app.ActiveTab, "wraps around")

	app.Apply(Event{Kind: PrevTab})
	require.Equal(t, 2, app.ActiveTab, "wraps around backwards")

	app.Apply(Event{Kind: SelectTab, TabIndex: 1})
	require.Equal(t, 1, app.ActiveTab)
}

func TestAppDelegatesToActiveTab(t *testing.T) {
	app := NewApp(NewTabState(10), NewTabState(20))
	app.Apply(Event{Kind: SelectTab, TabIndex: 1})

	app.Apply(Event{Kind: StartFilter, Pattern: "error"})
	app.Apply(Event{Kind: FilterComplete, Indices: []int{2, 4}})

	require.Equal(t, Filtered, app.Tabs[1].Mode)
	require.Equal(t, Normal, app.Tabs[0].Mode)
}

func TestAppFollowupEventsAppliedAutomatically(t *testing.T) {
	app := NewApp(NewTabState(5))
	app.Apply(Event{Kind: StartFilter, Pattern: "error"})
	app.Apply(Event{Kind: FilterComplete, Indices: []int{1, 3}})

	app.Apply(Event{Kind: FileModified, NewTotal: 9, OldTotal: 5})

	active := app.Active()
	require.Equal(t, FilterRunning, active.FilterPhase, "incremental StartFilter followup was applied")
}

func TestQuitSetsShouldQuit(t *testing.T) {
	app := NewApp(NewTabState(5))
	require.False(t, app.ShouldQuit)
	app.Apply(Event{Kind: Quit})
	require.True(t, app.ShouldQuit)
}

func TestHelpVisibilityToggle(t *testing.T) {
	app := NewApp(NewTabState(5))
	app.Apply(Event{Kind: ShowHelp})
	require.True(t, app.HelpShown)
	app.Apply(Event{Kind: HideHelp})
	require.False(t, app.HelpShown)
}
