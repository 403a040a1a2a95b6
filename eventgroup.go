package kernel

// EventGroupID is a dense, 1-based index into the kernel's event group
// table.
type EventGroupID int

// WaitMode selects how a set of requested bits is matched against an
// event group's current bits (spec.md §4.6).
type WaitMode int

const (
	// WaitAny is satisfied once any one of the requested bits is set.
	WaitAny WaitMode = iota
	// WaitAll is satisfied only once every requested bit is set.
	WaitAll
)

// eventWaiter is the per-waiter record linked into an EventGroup's
// waiters list: unlike a semaphore or mutex wait, each waiter carries its
// own bits/mode, so the list cannot be a plain waitQueue of *Task.
type eventWaiter struct {
	task        *Task
	bits        uint32
	mode        WaitMode
	clearOnExit bool
	observed    uint32
}

// EventGroup is spec.md §4.6's event group: a fixed-width bitset with
// ALL/ANY wait semantics and an optional clear-on-exit behaviour per
// wait call. Waiter order is configurable (spec.md §5, §8 S4), FIFO or
// task-priority with FIFO tiebreak; small N expected, so a plain slice
// with linear insertion/scan is used rather than a separate indexed
// structure per order.
type EventGroup struct {
	k       *Kernel
	id      EventGroupID
	Name    string
	order   WaitOrder
	bits    uint32
	waiters []*eventWaiter
}

func newEventGroup(k *Kernel, id EventGroupID, initial uint32, order WaitOrder) *EventGroup {
	return &EventGroup{k: k, id: id, bits: initial, order: order}
}

func (e *EventGroup) ID() EventGroupID { return e.id }

// Bits returns the current bit pattern without blocking.
func (e *EventGroup) Bits() uint32 { return e.bits }

// Set implements spec.md §4.6's set: ORs pattern into the bits, then
// wakes every waiter whose condition is now satisfied.
func (e *EventGroup) Set(pattern uint32) error {
	k := e.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	var self *Task
	if k.currentContext() == ContextTask {
		self = k.sched.running
	}
	e.bits |= pattern
	e.wakeSatisfied()
	k.Unlock(tok)
	k.parkIfPreempted(self)
	return nil
}

// Clear implements spec.md §4.6's clear: ANDs out pattern from the bits.
// Clearing can never satisfy a waiter, so no wake check is needed.
func (e *EventGroup) Clear(pattern uint32) error {
	k := e.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	e.bits &^= pattern
	k.Unlock(tok)
	return nil
}

// wakeSatisfied scans the waiter list for anyone whose requested bits
// now match, in the list's configured order (FIFO or priority), recording
// the bits each woken waiter observed and clearing bits for waiters that
// asked for clear-on-exit as each is woken (so a later waiter in the same
// scan sees the post-clear bitset).
func (e *EventGroup) wakeSatisfied() {
	remaining := e.waiters[:0]
	for _, w := range e.waiters {
		if !satisfies(e.bits, w.bits, w.mode) {
			remaining = append(remaining, w)
			continue
		}
		w.task.waitResult = nil
		w.task.eventWait = nil
		w.task.eventGroup = nil
		w.observed = e.bits
		if w.clearOnExit {
			e.bits &^= w.bits
		}
		e.k.wakeWaiter(w.task, nil)
	}
	e.waiters = remaining
}

func satisfies(bits, requested uint32, mode WaitMode) bool {
	switch mode {
	case WaitAll:
		return bits&requested == requested
	default:
		return bits&requested != 0
	}
}

// Wait implements spec.md §4.6's wait: blocks until requested is
// satisfied under mode, optionally clearing the matched bits on exit.
// It has no timeout; WaitTimeout is the bounded variant.
func (e *EventGroup) Wait(requested uint32, mode WaitMode, clearOnExit bool) (uint32, error) {
	return e.wait(requested, mode, clearOnExit, nil)
}

// WaitTimeout is Wait bounded by a relative tick deadline.
func (e *EventGroup) WaitTimeout(requested uint32, mode WaitMode, clearOnExit bool, ticks int64) (uint32, error) {
	return e.wait(requested, mode, clearOnExit, &ticks)
}

// Poll implements spec.md §4.6's poll: the non-blocking variant of Wait.
// Returns ErrTimeout instead of blocking if requested is not currently
// satisfied (matching poll_one's non-blocking-poll error, spec.md §4.5/
// §4.6 and _examples/original_source's analogous event_group poll).
func (e *EventGroup) Poll(requested uint32, mode WaitMode, clearOnExit bool) (uint32, error) {
	k := e.k
	if !k.currentContext().canCallKernel() {
		return 0, ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return 0, err
	}
	defer k.Unlock(tok)
	if !satisfies(e.bits, requested, mode) {
		return 0, ErrTimeout
	}
	observed := e.bits
	if clearOnExit {
		e.bits &^= requested
	}
	return observed, nil
}

func (e *EventGroup) wait(requested uint32, mode WaitMode, clearOnExit bool, timeoutTicks *int64) (uint32, error) {
	k := e.k
	if k.currentContext() != ContextTask {
		return 0, ErrBadContext
	}
	if k.IsPriorityBoostActive() {
		return 0, ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return 0, err
	}
	self := k.sched.running

	if satisfies(e.bits, requested, mode) {
		observed := e.bits
		if clearOnExit {
			e.bits &^= requested
		}
		k.Unlock(tok)
		return observed, nil
	}

	w := &eventWaiter{task: self, bits: requested, mode: mode, clearOnExit: clearOnExit}
	e.insertWaiter(w)
	if timeoutTicks != nil {
		self.timeoutRec = k.insertTimeout(k.clock.sample()+*timeoutTicks, func(k *Kernel) {
			e.removeWaiter(w)
			self.timeoutRec = nil
			self.eventWait = nil
			self.eventGroup = nil
			self.waitResult = ErrTimeout
			k.makeReady(self)
		})
	}
	self.waitQ = nil // event groups are not a uniform waitQueue; see eventWait/eventGroup instead
	self.eventWait = w
	self.eventGroup = e
	self.state = TaskWaiting
	k.sched.running = nil
	k.requestDispatch()
	k.Unlock(tok)
	<-self.resume

	result := self.waitResult
	self.waitResult = nil
	if result != nil {
		return e.bits, result
	}
	return w.observed, nil
}

// insertWaiter links w into the waiter slice in the configured order: a
// tail append for WaitFIFO, or before the first strictly-lower-priority
// (higher effPriority number) entry for WaitPriority, leaving equal
// priorities in arrival order.
func (e *EventGroup) insertWaiter(w *eventWaiter) {
	if e.order == WaitFIFO {
		e.waiters = append(e.waiters, w)
		return
	}
	for i, x := range e.waiters {
		if w.task.effPriority < x.task.effPriority {
			e.waiters = append(e.waiters, nil)
			copy(e.waiters[i+1:], e.waiters[i:])
			e.waiters[i] = w
			return
		}
	}
	e.waiters = append(e.waiters, w)
}

// removeWaiter unlinks w from the waiter slice; used by timeout expiry
// and by Task.Interrupt.
func (e *EventGroup) removeWaiter(w *eventWaiter) {
	for i, x := range e.waiters {
		if x == w {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}
