//go:build linux

package simport

import "golang.org/x/sys/unix"

// monotonicNow reads CLOCK_MONOTONIC directly via golang.org/x/sys/unix,
// the same dependency and call shape eventloop's Linux poller uses for
// epoll, re-themed here from I/O readiness polling to a tick source.
func monotonicNow() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic("simport: clock_gettime(CLOCK_MONOTONIC): " + err.Error())
	}
	return ts.Sec*1e9 + int64(ts.Nsec)
}
