//go:build !linux

package simport

import "time"

// monotonicNow falls back to the runtime's monotonic clock reading on
// platforms where eventloop's poller family does not carry a
// golang.org/x/sys-based syscall (darwin uses kqueue via x/sys too, but
// a wall-clock tick source has no need for it; windows has none at all).
func monotonicNow() int64 {
	return int64(time.Since(monotonicStart))
}

// monotonicStart anchors monotonicNow; time.Since reads the monotonic
// component of the time.Time it was given.
var monotonicStart = time.Now()
