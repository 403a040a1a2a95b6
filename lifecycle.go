package kernel

// Activate implements spec.md §4.3's activate: transitions a Dormant
// task to Ready and requests a dispatch. Activating a task that is not
// Dormant is ErrBadObjectState (activation does not queue; a second
// activate while one is already pending is rejected, matching the
// source's non-queuing activation semantics).
func (t *Task) Activate() error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	if t.state != TaskDormant {
		return ErrBadObjectState
	}
	k.activateLocked(t)
	return nil
}

// activateLocked performs the Dormant->Ready transition; called both by
// Task.Activate and by Kernel.Boot for auto-activated tasks. Called with
// CPU Lock held.
func (k *Kernel) activateLocked(t *Task) {
	t.effPriority = t.basePriority
	t.waitResult = nil
	t.parkToken = false
	k.makeReady(t)
}

// SetPriority changes the task's base priority, recomputing its
// effective priority against any mutex protocol contribution it
// currently carries (spec.md §4.2/§4.4).
func (t *Task) SetPriority(p int) error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	t.basePriority = p
	k.recomputeEffective(t)
	return nil
}

// Interrupt implements spec.md's task-interrupt operation: forcibly
// wakes a task blocked in a wait queue with ErrInterrupted, regardless of
// what it was waiting for. A no-op, not an error, if the task is not
// currently waiting (matching the source's idempotent interrupt). An
// event-group wait is not linked into a uniform waitQueue (eventgroup.go),
// so it is unblocked through its own eventWait back-reference instead.
func (t *Task) Interrupt() error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	if t.state != TaskWaiting {
		return nil
	}
	if t.waitQ != nil {
		t.waitQ.remove(t)
		t.waitQ = nil
		k.wakeWaiter(t, ErrInterrupted)
		return nil
	}
	if t.eventWait != nil {
		t.eventGroup.removeWaiter(t.eventWait)
		t.eventWait = nil
		t.eventGroup = nil
		k.wakeWaiter(t, ErrInterrupted)
	}
	return nil
}

// Park implements spec.md §4.3's park: consumes the calling task's park
// token and returns immediately if one is present, otherwise blocks
// until UnparkExact delivers one or the task is interrupted.
func (k *Kernel) Park() error {
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
	if self.parkToken {
		self.parkToken = false
		k.Unlock(tok)
		return nil
	}
	q := &k.parkQueue
	q.enqueue(self)
	k.blockSelf(tok, self, q)
	result := self.waitResult
	self.waitResult = nil
	return result
}

// UnparkExact implements spec.md §4.3's unpark_exact: delivers a park
// token to t. If t is currently blocked in Park, it wakes immediately
// without ever observing the token having been set; otherwise the token
// is recorded for the next Park call to consume. Fails with
// ErrQueueOverflow if a token is already present and undelivered - a
// task holds at most one (spec.md's "1-bit counter").
func (t *Task) UnparkExact() error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	if t.parkToken {
		return ErrQueueOverflow
	}
	if t.state == TaskWaiting && t.waitQ == &k.parkQueue {
		t.waitQ.remove(t)
		t.waitQ = nil
		k.wakeWaiter(t, nil)
		return nil
	}
	t.parkToken = true
	return nil
}

// Sleep blocks the calling task for ticks, with no user-visible object
// involved: it waits on the kernel's private sleepQueue so the same
// timeout/interrupt machinery applies.
func (k *Kernel) Sleep(ticks int64) error {
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
	q := &k.sleepQueue
	self.timeoutRec = k.armTimeout(self, q, ticks)
	q.enqueue(self)
	k.blockSelf(tok, self, q)
	result := self.waitResult
	self.waitResult = nil
	if result == ErrTimeout {
		// sleeping to completion is the expected outcome, not a failure
		return nil
	}
	return result
}
