// Package safego launches fire-and-forget goroutines that survive panics.
//
// Audit entry shipping and the retention purge loop run detached from any
// request. A panic in one of those goroutines would otherwise kill it silently
// and the trail would quietly stop shipping or purging, which is exactly the
// kind of failure nobody notices until an audit review.
package safego

import "log/slog"

// Go runs fn in a new goroutine, recovering and logging any panic.
func Go(fn func()) {
	GoNamed("", fn)
}

// GoNamed is Go with a task name attached to the panic log entry, so a
// recovered panic can be traced back to the loop it killed.
func GoNamed(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if name != "" {
					slog.Error("recovered panic in background goroutine", "task", name, "panic", r)
				} else {
					slog.Error("recovered panic in background goroutine", "panic", r)
				}
			}
		}()
		fn()
	}()
}
