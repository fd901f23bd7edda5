// Package signal provides a single-slot coalescing notification.
//
// A Change is armed by Give and cleared by the next successful take. Arming an
// already armed Change has no further effect, so a consumer observes at most one
// pending update no matter how many transitions happened in between.
package signal

import "context"

// Change is a binary "dirty flag" backed by a size-1 channel
type Change struct {
	ch chan struct{}
}

// New creates an unarmed Change
func New() *Change {
	return &Change{ch: make(chan struct{}, 1)}
}

// Give arms the signal. It never blocks.
func (c *Change) Give() {
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

// TryTake clears the signal and reports whether it was armed. It never blocks.
func (c *Change) TryTake() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal is armed (true) or ctx is done (false)
func (c *Change) Wait(ctx context.Context) bool {
	select {
	case <-c.ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pending reports whether the signal is armed without clearing it
func (c *Change) Pending() bool {
	return len(c.ch) == 1
}
