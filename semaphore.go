package kernel

// SemaphoreID is a dense, 1-based index into the kernel's semaphore
// table.
type SemaphoreID int

// Semaphore is spec.md §4.5's counting semaphore: a non-negative count
// bounded by a configured maximum, with FIFO-ordered waiters.
type Semaphore struct {
	k       *Kernel
	id      SemaphoreID
	Name    string
	count   int
	max     int
	waiters waitQueue
}

func newSemaphore(k *Kernel, id SemaphoreID, initial, max int) *Semaphore {
	return &Semaphore{
		k:       k,
		id:      id,
		count:   initial,
		max:     max,
		waiters: newWaitQueue(waitFIFO),
	}
}

func (s *Semaphore) ID() SemaphoreID { return s.id }

// Count returns the current count without blocking.
func (s *Semaphore) Count() int { return s.count }

// Signal implements spec.md §4.5's signal(n): adds n to the count, one
// unit at a time - for each unit, if a task is waiting it is dequeued and
// woken instead (the count unaffected by that unit), otherwise the count
// is incremented. Returns ErrQueueOverflow, with every unit processed
// before the failing one left applied, if the count would exceed its
// configured maximum. Callable from any context that can call into the
// kernel (task or managed interrupt).
func (s *Semaphore) Signal(n int) error {
	k := s.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	if n <= 0 {
		return ErrBadParam
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	var self *Task
	if k.currentContext() == ContextTask {
		self = k.sched.running
	}

	for i := 0; i < n; i++ {
		if w := s.waiters.popFront(); w != nil {
			k.wakeWaiter(w, nil)
			continue
		}
		if s.count >= s.max {
			k.Unlock(tok)
			k.parkIfPreempted(self)
			return ErrQueueOverflow
		}
		s.count++
	}
	k.Unlock(tok)
	k.parkIfPreempted(self)
	return nil
}

// WaitOne implements spec.md §4.5's wait_one: blocks the calling task
// until the count is positive, then decrements it. Legal only from
// ContextTask.
func (s *Semaphore) WaitOne() error {
	return s.wait(nil)
}

// WaitOneTimeout is WaitOne bounded by a relative tick deadline; returns
// ErrTimeout if the bound elapses first.
func (s *Semaphore) WaitOneTimeout(ticks int64) error {
	return s.wait(&ticks)
}

func (s *Semaphore) wait(timeoutTicks *int64) error {
	k := s.k
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

	if s.count > 0 {
		s.count--
		k.Unlock(tok)
		return nil
	}

	s.waiters.enqueue(self)
	var rec *timeoutRecord
	if timeoutTicks != nil {
		rec = k.armTimeout(self, &s.waiters, *timeoutTicks)
	}
	self.timeoutRec = rec
	k.blockSelf(tok, self, &s.waiters)

	result := self.waitResult
	self.waitResult = nil
	return result
}

// PollOne implements spec.md §4.5's poll_one: a non-blocking WaitOne.
// Returns ErrTimeout instead of parking if the count is currently zero
// (spec.md §4.5: "poll_one: non-blocking; returns Timeout if value = 0").
func (s *Semaphore) PollOne() error {
	k := s.k
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	if s.count == 0 {
		return ErrTimeout
	}
	s.count--
	return nil
}

// armTimeout schedules the calling task's bounded wait to expire after
// ticks, removing it from q and waking it with ErrTimeout if no other
// event claims it first. Shared by every bounded-wait operation
// (semaphore, event group, mutex, sleep).
func (k *Kernel) armTimeout(t *Task, q *waitQueue, ticks int64) *timeoutRecord {
	deadline := k.clock.sample() + ticks
	return k.insertTimeout(deadline, func(k *Kernel) {
		q.remove(t)
		t.timeoutRec = nil
		t.waitResult = ErrTimeout
		k.makeReady(t)
	})
}
