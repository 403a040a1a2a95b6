package kernel

// MutexProtocol selects the priority-inversion avoidance strategy for a
// mutex (spec.md §4.4).
type MutexProtocol int

const (
	// MutexProtocolNone applies no ceiling or inheritance: the owner's
	// effective priority is unaffected by holding the mutex.
	MutexProtocolNone MutexProtocol = iota
	// MutexProtocolCeiling raises the owner's effective priority to a
	// fixed configured ceiling for as long as it is held.
	MutexProtocolCeiling
	// MutexProtocolInherit raises the owner's effective priority to
	// match the highest-priority task currently blocked on it.
	MutexProtocolInherit
)

// MutexID is a dense, 1-based index into the kernel's mutex table.
type MutexID int

// Mutex is spec.md §4.4's lockable object. Unlock must be called in
// exactly the reverse order of Lock calls by the same task (the LIFO
// unlock discipline, invariant I3); this is enforced structurally by
// storing each task's held mutexes as an intrusive stack rather than a
// set.
type Mutex struct {
	k        *Kernel
	id       MutexID
	Name     string
	protocol MutexProtocol
	ceiling  int

	owner   *Task
	waiters waitQueue // always waitPriority: spec.md requires priority order for mutex contention

	// belowOnStack links to the mutex locked immediately before this one
	// by the same owner, forming the LIFO held-stack rooted at
	// owner.lastMutexHeld.
	belowOnStack *Mutex

	// inconsistent is set when the owner exits (or is otherwise
	// abandoned) while still holding the mutex; cleared only by
	// MarkConsistent (spec.md §4.4's recovery path, SPEC_FULL §6 Open
	// Question 2).
	inconsistent bool
}

func newMutex(k *Kernel, id MutexID, protocol MutexProtocol, ceiling int) *Mutex {
	return &Mutex{
		k:        k,
		id:       id,
		protocol: protocol,
		ceiling:  ceiling,
		waiters:  newWaitQueue(waitPriority),
	}
}

func (m *Mutex) ID() MutexID { return m.id }

// IsLocked reports whether the mutex currently has an owner.
func (m *Mutex) IsLocked() bool { return m.owner != nil }

// IsInconsistent reports the abandoned-mutex flag (spec.md §4.4).
func (m *Mutex) IsInconsistent() bool { return m.inconsistent }

// Lock acquires the mutex, blocking the calling task if it is already
// held. Legal only from ContextTask. Returns ErrAbandoned if the mutex
// was left inconsistent by a prior owner's exit; the caller still
// becomes the new owner (spec.md's "lock succeeds, but reports the
// abandonment" rule), and must call MarkConsistent before any other task
// can treat the protected state as valid again.
func (m *Mutex) Lock() error {
	return m.lock(nil)
}

// LockTimeout is Lock bounded by a relative tick deadline; returns
// ErrTimeout if the bound elapses before the mutex becomes available.
func (m *Mutex) LockTimeout(ticks int64) error {
	return m.lock(&ticks)
}

// TryLock is spec.md §4.4's try_lock: the non-blocking variant of Lock.
// Returns ErrWouldBlock instead of blocking if the mutex is already held
// by another task (spec.md §7: "WouldBlock (for try_lock)"). Like Lock,
// still reports ErrAbandoned (with the caller becoming the new owner) if
// the mutex was left inconsistent.
func (m *Mutex) TryLock() error {
	k := m.k
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	self := k.sched.running

	if self.lastMutexHeld != nil {
		for at := self.lastMutexHeld; at != nil; at = at.belowOnStack {
			if at == m {
				k.Unlock(tok)
				return ErrBadObjectState
			}
		}
	}

	if m.owner == self {
		k.Unlock(tok)
		return ErrBadObjectState
	}
	if m.owner != nil {
		k.Unlock(tok)
		return ErrWouldBlock
	}

	m.acquireLocked(self)
	wasInconsistent := m.inconsistent
	k.Unlock(tok)
	k.parkIfPreempted(self)
	if wasInconsistent {
		return ErrAbandoned
	}
	return nil
}

func (m *Mutex) lock(timeoutTicks *int64) error {
	k := m.k
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	if k.IsPriorityBoostActive() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	self := k.sched.running

	if self.lastMutexHeld != nil {
		for at := self.lastMutexHeld; at != nil; at = at.belowOnStack {
			if at == m {
				k.Unlock(tok)
				return ErrBadObjectState
			}
		}
	}

	if m.owner == nil {
		m.acquireLocked(self)
		wasInconsistent := m.inconsistent
		k.Unlock(tok)
		k.parkIfPreempted(self)
		if wasInconsistent {
			return ErrAbandoned
		}
		return nil
	}

	if m.owner == self {
		k.Unlock(tok)
		return ErrBadObjectState
	}

	m.waiters.enqueue(self)
	if m.protocol == MutexProtocolInherit {
		k.recomputeEffective(m.owner)
	}
	if timeoutTicks != nil {
		self.timeoutRec = k.armTimeout(self, &m.waiters, *timeoutTicks)
	}
	k.blockSelf(tok, self, &m.waiters)

	result := self.waitResult
	self.waitResult = nil
	return result
}

// acquireLocked assigns the mutex to t, pushes it onto t's held stack,
// and applies the protocol's priority effect. Called with CPU Lock held.
func (m *Mutex) acquireLocked(t *Task) {
	m.owner = t
	m.belowOnStack = t.lastMutexHeld
	t.lastMutexHeld = m
	m.k.recomputeEffective(t)
}

// Unlock releases the mutex. The caller must be the current owner and
// the mutex must be the top of the caller's held stack (LIFO discipline,
// invariant I3); violating either is ErrBadObjectState.
func (m *Mutex) Unlock() error {
	k := m.k
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	self := k.sched.running
	if m.owner != self {
		k.Unlock(tok)
		return ErrBadObjectState
	}
	if self.lastMutexHeld != m {
		k.Unlock(tok)
		return ErrBadObjectState
	}

	self.lastMutexHeld = m.belowOnStack
	m.belowOnStack = nil
	m.owner = nil
	k.recomputeEffective(self)

	if next := m.waiters.popFront(); next != nil {
		m.acquireLocked(next)
		k.wakeWaiter(next, nil)
	}

	k.Unlock(tok)
	k.parkIfPreempted(self)
	return nil
}

// MarkConsistent clears the inconsistent flag after the new owner has
// restored whatever invariant the abandoned critical section protected
// (spec.md §4.4). Legal only for the current owner, and only while the
// flag is set.
func (m *Mutex) MarkConsistent() error {
	k := m.k
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	if k.currentContext() == ContextTask && m.owner != k.sched.running {
		return ErrNotOwner
	}
	if !m.inconsistent {
		return ErrBadObjectState
	}
	m.inconsistent = false
	return nil
}

// abandonMutex is called by Kernel.exitTask for every mutex left on an
// exiting task's held stack: the next waiter (if any) becomes owner of
// an inconsistent mutex, matching spec.md §4.4's abandonment rule.
func (k *Kernel) abandonMutex(m *Mutex) {
	m.owner = nil
	m.inconsistent = true
	if next := m.waiters.popFront(); next != nil {
		m.acquireLocked(next)
		k.wakeWaiter(next, ErrAbandoned)
	}
}

// recomputeEffective recalculates t's effective priority as the
// strictest (numerically lowest) of its base priority and every held
// mutex's protocol contribution, and applies it via the scheduler.
func (k *Kernel) recomputeEffective(t *Task) {
	p := t.basePriority
	for m := t.lastMutexHeld; m != nil; m = m.belowOnStack {
		switch m.protocol {
		case MutexProtocolCeiling:
			if m.ceiling < p {
				p = m.ceiling
			}
		case MutexProtocolInherit:
			if w := m.waiters.Front(); w != nil && w.effPriority < p {
				p = w.effPriority
			}
		}
	}
	k.setEffectivePriority(t, p)
}
