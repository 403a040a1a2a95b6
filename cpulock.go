package kernel

import "sync"

// Token is non-forgeable (outside this package) proof that CPU Lock is
// held by the caller; every method that reads or writes a control
// block's interior requires one. This is the runtime stand-in for the
// source's compile-time borrow check (Design Notes, spec.md §9): Go has
// no ownership system, so validity is checked with a debug assertion
// instead (Token.gen must match the kernel's current lock generation).
type Token struct {
	k   *Kernel
	gen uint64
}

func (t Token) valid() bool {
	return t.k != nil && t.k.cpuLock.gen == t.gen && t.k.cpuLock.held
}

// cpuLock is the process-wide gate described in spec.md §4.1. Acquisition
// is not re-entrant; a second Lock call while held fails with
// ErrBadContext. There is exactly one hardware thread in scope (spec.md
// §5), so a plain mutex is sufficient to serialize task-context callers
// against each other, and the held/gen pair is sufficient to reject
// re-entrant or stale-token use from the same goroutine.
type cpuLock struct {
	mu   sync.Mutex
	held bool
	gen  uint64
	// pendingDispatch is set by the scheduler when a higher-priority task
	// becomes runnable while the lock is held; consumed by
	// unlockAndCheckPreemption on release (spec.md §4.2).
	pendingDispatch bool
}

// Lock acquires CPU Lock and returns a Token proving it. Re-entrant
// acquisition (held already true) returns ErrBadContext, matching
// spec.md §4.1.
func (k *Kernel) Lock() (Token, error) {
	k.cpuLock.mu.Lock()
	if k.cpuLock.held {
		k.cpuLock.mu.Unlock()
		return Token{}, ErrBadContext
	}
	k.cpuLock.held = true
	k.cpuLock.gen++
	return Token{k: k, gen: k.cpuLock.gen}, nil
}

// Unlock releases CPU Lock acquired via tok, then performs the deferred
// preemption check (spec.md §4.2's unlock_cpu_and_check_preemption): if a
// dispatch is pending and Priority Boost is inactive, the scheduler hands
// the baton to the newly chosen task before Unlock returns.
func (k *Kernel) Unlock(tok Token) {
	if !tok.valid() {
		panic("kernel: Unlock: invalid or stale token")
	}
	pending := k.cpuLock.pendingDispatch
	k.cpuLock.pendingDispatch = false
	k.cpuLock.held = false
	k.cpuLock.mu.Unlock()

	if pending && !k.priorityBoost.active() {
		k.dispatch()
	}
}

// IsCPULockActive reports whether CPU Lock is currently held by anyone.
func (k *Kernel) IsCPULockActive() bool {
	k.cpuLock.mu.Lock()
	defer k.cpuLock.mu.Unlock()
	return k.cpuLock.held
}

func (k *Kernel) requestDispatch() {
	k.cpuLock.pendingDispatch = true
}
