// Package cancelctx combines multiple cancellation sources into a single
// context. The merged context is cancelled as soon as any source context is
// cancelled, and its cause reports which source fired first.
package cancelctx

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the cancellation cause used when a merged context expires
// through WithTimeout rather than through one of its parents.
var ErrTimeout = errors.New("request timed out")

// Merge returns a context that is cancelled when any of the given parents is
// cancelled, whichever happens first. Values and deadlines are inherited from
// the first parent only; the remaining parents contribute cancellation.
//
// The returned release function must always be called to free the watcher
// registrations, regardless of how the merged context ends. Calling release
// cancels the merged context if it is still live.
func Merge(parents ...context.Context) (context.Context, context.CancelFunc) {
	if len(parents) == 0 {
		parents = []context.Context{context.Background()}
	}

	ctx, cancel := context.WithCancelCause(parents[0])

	stops := make([]func() bool, 0, len(parents))
	for _, parent := range parents[1:] {
		parent := parent
		stops = append(stops, context.AfterFunc(parent, func() {
			cancel(context.Cause(parent))
		}))
	}

	release := func() {
		for _, stop := range stops {
			stop()
		}
		cancel(context.Canceled)
	}

	return ctx, release
}

// WithTimeout merges the given parents and additionally cancels the result
// after d elapses. The timer is released together with the watchers, so a
// pending timeout never outlives the call that created it.
func WithTimeout(d time.Duration, parents ...context.Context) (context.Context, context.CancelFunc) {
	timed, timedCancel := context.WithTimeoutCause(context.Background(), d,
		fmt.Errorf("%w after %s", ErrTimeout, d))

	merged, release := Merge(append(parents, timed)...)
	return merged, func() {
		release()
		timedCancel()
	}
}
