package kernel

import "errors"

// Error taxonomy (spec.md §7). These are sentinel values; wrap with
// fmt.Errorf("...: %w", Err...) when a reason string helps, and match
// with errors.Is.
var (
	// ErrBadContext: operation invoked from a context that forbids it -
	// e.g. blocking from an interrupt, or while CPU Lock or Priority
	// Boost is held/active.
	ErrBadContext = errors.New("kernel: bad context")

	// ErrBadID: a handle refers to no object registered by cfg.Config.
	ErrBadID = errors.New("kernel: bad id")

	// ErrBadParam: an out-of-range priority, malformed mask, or similar.
	ErrBadParam = errors.New("kernel: bad param")

	// ErrBadObjectState: mutex unlock by non-owner, LIFO violation,
	// adjust_time out of headroom, activate of an already-active task, etc.
	ErrBadObjectState = errors.New("kernel: bad object state")

	// ErrQueueOverflow: park token already present, semaphore signal
	// past max.
	ErrQueueOverflow = errors.New("kernel: queue overflow")

	// ErrTimeout: a bounded wait expired before being satisfied.
	ErrTimeout = errors.New("kernel: timeout")

	// ErrWouldBlock: try_lock found the mutex already held.
	ErrWouldBlock = errors.New("kernel: would block")

	// ErrInterrupted: task.Interrupt() resolved a pending wait.
	ErrInterrupted = errors.New("kernel: interrupted")

	// ErrAbandoned: a mutex's owner exited while still holding it.
	ErrAbandoned = errors.New("kernel: abandoned")

	// ErrNotOwner: an operation requiring ownership was attempted by a
	// non-owning task.
	ErrNotOwner = errors.New("kernel: not owner")
)
