// Package cancel implements cooperative cancellation for long-running
// index and filter operations (spec.md §4.12): a shared flag checked at
// batch boundaries rather than a hard kill.
package cancel

import "sync/atomic"

// Token is a handle to shared cancellation state. The zero value is not
// usable; construct one with New. Cloning shares the same underlying
// flag, so cancelling any clone is observed by every other clone.
type Token struct {
	cancelled *atomic.Bool
}

// New creates a fresh, not-yet-cancelled token.
func New() Token {
	return Token{cancelled: new(atomic.Bool)}
}

// Clone returns a new handle sharing this token's cancellation state.
func (t Token) Clone() Token {
	return t
}

// Cancel requests cancellation. Non-blocking; the running operation must
// cooperatively observe IsCancelled and stop.
func (t Token) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called on this token or any
// of its clones.
func (t Token) IsCancelled() bool {
	return t.cancelled.Load()
}

// Reset clears the cancellation flag for reuse across operations.
func (t Token) Reset() {
	t.cancelled.Store(false)
}
