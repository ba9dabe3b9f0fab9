// Package viewport implements vim-like scroll/selection state (spec.md
// §4.13): selection moves freely within the visible area, and the
// viewport only scrolls when selection hits the edge padding. The anchor
// is a file line number, not an index into the current view, so it stays
// stable across filter changes even when the set of visible lines
// (line_indices) is swapped out from under it.
package viewport

import "sort"

// Resolved is the result of resolving a Viewport against the current
// content: where the anchor lands in line_indices, and where the
// viewport should scroll to keep it visible.
type Resolved struct {
	SelectedIndex  int
	ScrollPosition int
}

// Viewport tracks an anchor file line, a scroll position, a rendering
// height, and an edge padding (vim's "scrolloff").
type Viewport struct {
	anchorLine     int
	scrollPosition int
	height         int
	edgePadding    int
	cache          *Resolved
}

// DefaultEdgePadding is the padding kept at the top/bottom edges before
// the viewport starts scrolling, capped at height/4 by Resolve.
const DefaultEdgePadding = 3

// New creates a Viewport anchored to initialLine with the default edge
// padding and zero height (set via Resolve or SetHeight).
func New(initialLine int) *Viewport {
	return &Viewport{anchorLine: initialLine, edgePadding: DefaultEdgePadding}
}

func clampMax0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func findIndex(lineIndices []int, anchor int) int {
	i := sort.SearchInts(lineIndices, anchor)
	if i < len(lineIndices) && lineIndices[i] == anchor {
		return i
	}
	// i is the insertion position: clamp into range.
	if i >= len(lineIndices) {
		return clampMax0(len(lineIndices) - 1)
	}
	return i
}

// Resolve finds where the anchor line lands in lineIndices, updates the
// anchor to the nearest surviving line on a miss, ensures the selection
// sits within the edge-padding comfort zone, and returns the resolved
// (selectedIndex, scrollPosition).
func (v *Viewport) Resolve(lineIndices []int, height int) Resolved {
	v.height = height

	if len(lineIndices) == 0 {
		view := Resolved{SelectedIndex: 0, ScrollPosition: 0}
		v.cache = &view
		return view
	}

	selectedIndex := 0
	i := sort.SearchInts(lineIndices, v.anchorLine)
	switch {
	case i < len(lineIndices) && lineIndices[i] == v.anchorLine:
		selectedIndex = i
	case i >= len(lineIndices):
		selectedIndex = len(lineIndices) - 1
		v.anchorLine = lineIndices[selectedIndex]
	case i == 0:
		selectedIndex = 0
		v.anchorLine = lineIndices[selectedIndex]
	default:
		before := lineIndices[i-1]
		after := lineIndices[i]
		if v.anchorLine-before <= after-v.anchorLine {
			selectedIndex = i - 1
		} else {
			selectedIndex = i
		}
		v.anchorLine = lineIndices[selectedIndex]
	}

	v.ensureVisible(selectedIndex, len(lineIndices))

	view := Resolved{SelectedIndex: selectedIndex, ScrollPosition: v.scrollPosition}
	v.cache = &view
	return view
}

// ensureVisible scrolls minimally so selectedIndex sits within
// [scrollPosition+padding, scrollPosition+height-padding).
func (v *Viewport) ensureVisible(selectedIndex, totalLines int) {
	if v.height == 0 {
		return
	}

	padding := v.edgePadding
	if quarter := v.height / 4; padding > quarter {
		padding = quarter
	}
	maxScroll := clampMax0(totalLines - v.height)

	switch {
	case selectedIndex < v.scrollPosition+padding:
		v.scrollPosition = clampMax0(selectedIndex - padding)
	case selectedIndex+padding >= v.scrollPosition+v.height:
		v.scrollPosition = clampMax0(selectedIndex + padding + 1 - v.height)
	}

	if v.scrollPosition > maxScroll {
		v.scrollPosition = maxScroll
	}
}

// MoveSelection moves the anchor by delta positions in the current view
// (positive = down, negative = up), clamped to the view's bounds, and
// re-resolves visibility.
func (v *Viewport) MoveSelection(delta int, lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}

	current := findIndex(lineIndices, v.anchorLine)
	var newIdx int
	if delta >= 0 {
		newIdx = current + delta
		if max := len(lineIndices) - 1; newIdx > max {
			newIdx = max
		}
	} else {
		newIdx = current + delta
		if newIdx < 0 {
			newIdx = 0
		}
	}

	v.anchorLine = lineIndices[newIdx]
	v.ensureVisible(newIdx, len(lineIndices))
	v.cache = nil
}

// MoveViewport scrolls by delta without moving the selection's file
// line, unless that line would leave the edge-padding comfort zone, in
// which case it's tugged back to that zone's new edge so the next Resolve
// keeps the new scroll position.
func (v *Viewport) MoveViewport(delta int, lineIndices []int) {
	if len(lineIndices) == 0 || v.height == 0 {
		return
	}

	maxScroll := clampMax0(len(lineIndices) - v.height)
	current := findIndex(lineIndices, v.anchorLine)
	padding := v.edgePadding
	if quarter := v.height / 4; padding > quarter {
		padding = quarter
	}

	if delta > 0 {
		v.scrollPosition += delta
		if v.scrollPosition > maxScroll {
			v.scrollPosition = maxScroll
		}
		if top := v.scrollPosition + padding; current < top {
			if max := len(lineIndices) - 1; top > max {
				top = max
			}
			v.anchorLine = lineIndices[top]
		}
	} else if delta < 0 {
		v.scrollPosition = clampMax0(v.scrollPosition + delta)
		bottom := v.scrollPosition + v.height - 1 - padding
		if current > bottom {
			idx := bottom
			if max := len(lineIndices) - 1; idx > max {
				idx = max
			}
			v.anchorLine = lineIndices[idx]
		}
	}

	v.cache = nil
}

// ScrollWithSelection moves both scroll position and selection together,
// for mouse-wheel style input.
func (v *Viewport) ScrollWithSelection(delta int, lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}

	height := v.height
	if height < 1 {
		height = 1
	}
	maxScroll := clampMax0(len(lineIndices) - height)
	current := findIndex(lineIndices, v.anchorLine)

	if delta >= 0 {
		v.scrollPosition += delta
		if v.scrollPosition > maxScroll {
			v.scrollPosition = maxScroll
		}
		newIdx := current + delta
		if max := len(lineIndices) - 1; newIdx > max {
			newIdx = max
		}
		v.anchorLine = lineIndices[newIdx]
	} else {
		v.scrollPosition = clampMax0(v.scrollPosition + delta)
		newIdx := clampMax0(current + delta)
		v.anchorLine = lineIndices[newIdx]
	}

	v.cache = nil
}

// JumpToLine sets the anchor directly to file line n.
func (v *Viewport) JumpToLine(n int) {
	v.anchorLine = n
	v.cache = nil
}

// JumpToIndex sets the anchor to the line at index in the current view.
func (v *Viewport) JumpToIndex(index int, lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}
	if max := len(lineIndices) - 1; index > max {
		index = max
	}
	v.anchorLine = lineIndices[index]
	v.cache = nil
}

// JumpToStart anchors to the first line in the view and scrolls to top.
func (v *Viewport) JumpToStart(lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}
	v.anchorLine = lineIndices[0]
	v.scrollPosition = 0
	v.cache = nil
}

// JumpToEnd anchors to the last line in the view and scrolls to show it
// at the bottom.
func (v *Viewport) JumpToEnd(lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}
	v.anchorLine = lineIndices[len(lineIndices)-1]
	v.scrollPosition = clampMax0(len(lineIndices) - v.height)
	v.cache = nil
}

// Center scrolls so the current selection sits at screen row height/2.
func (v *Viewport) Center(lineIndices []int) {
	if len(lineIndices) == 0 || v.height == 0 {
		return
	}
	current := findIndex(lineIndices, v.anchorLine)
	v.scrollPosition = clampMax0(current - v.height/2)
	maxScroll := clampMax0(len(lineIndices) - v.height)
	if v.scrollPosition > maxScroll {
		v.scrollPosition = maxScroll
	}
	v.cache = nil
}

// AnchorToTop moves the selection to screen row `padding` (top of the
// comfort zone) without otherwise touching scroll position.
func (v *Viewport) AnchorToTop(lineIndices []int) {
	if len(lineIndices) == 0 {
		return
	}
	padding := v.edgePadding
	if quarter := v.height / 4; padding > quarter {
		padding = quarter
	}
	target := v.scrollPosition + padding
	if max := len(lineIndices) - 1; target > max {
		target = max
	}
	v.anchorLine = lineIndices[target]
	v.cache = nil
}

// AnchorToBottom moves the selection to screen row `height-1-padding`.
func (v *Viewport) AnchorToBottom(lineIndices []int) {
	if len(lineIndices) == 0 || v.height == 0 {
		return
	}
	padding := v.edgePadding
	if quarter := v.height / 4; padding > quarter {
		padding = quarter
	}
	target := clampMax0(v.scrollPosition + v.height - 1 - padding)
	if max := len(lineIndices) - 1; target > max {
		target = max
	}
	v.anchorLine = lineIndices[target]
	v.cache = nil
}

// GetScreenOffset returns the rendering row (relative to scrollPosition)
// the current selection occupies.
func (v *Viewport) GetScreenOffset(lineIndices []int) int {
	idx := findIndex(lineIndices, v.anchorLine)
	return clampMax0(idx - v.scrollPosition)
}

// PreserveScreenOffset re-anchors to the same screen row after
// lineIndices changes out from under the viewport (e.g. a filter was
// cleared), using the last resolved screen offset if available.
func (v *Viewport) PreserveScreenOffset(newLineIndices []int) {
	if len(newLineIndices) == 0 {
		return
	}

	var screenOffset int
	if v.cache != nil {
		screenOffset = clampMax0(v.cache.SelectedIndex - v.cache.ScrollPosition)
	} else {
		oldIdx := findIndex(newLineIndices, v.anchorLine)
		screenOffset = clampMax0(oldIdx - v.scrollPosition)
	}

	newIdx := findIndex(newLineIndices, v.anchorLine)
	v.scrollPosition = clampMax0(newIdx - screenOffset)

	height := v.height
	if height < 1 {
		height = 1
	}
	maxScroll := clampMax0(len(newLineIndices) - height)
	if v.scrollPosition > maxScroll {
		v.scrollPosition = maxScroll
	}
	v.cache = nil
}

// SelectedLine returns the currently anchored file line number.
func (v *Viewport) SelectedLine() int { return v.anchorLine }

// SelectedIndex returns the cached selected index from the last Resolve
// call, or 0 if Resolve hasn't run since the last mutation.
func (v *Viewport) SelectedIndex() int {
	if v.cache == nil {
		return 0
	}
	return v.cache.SelectedIndex
}

// ScrollPosition returns the cached scroll position from the last
// Resolve call, or 0 if Resolve hasn't run since the last mutation.
func (v *Viewport) ScrollPosition() int {
	if v.cache == nil {
		return 0
	}
	return v.cache.ScrollPosition
}

// Height returns the current viewport height.
func (v *Viewport) Height() int { return v.height }

// SetHeight sets the rendering height explicitly, invalidating the
// cached resolution if it actually changed.
func (v *Viewport) SetHeight(height int) {
	if v.height != height {
		v.height = height
		v.cache = nil
	}
}
