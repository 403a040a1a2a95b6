package kernel

import (
	"math"

	"github.com/r3go/kernel/internal/prim"
)

// timeoutRecord is one outstanding bounded wait, timer, or sleep, stored
// in the kernel's single timeout heap (spec.md §4.8). deadline is an
// absolute hardware-frontier tick (see clock.go): pending deadlines are
// never rewritten by SetTime/AdjustTime, only the clock's offset moves.
type timeoutRecord struct {
	heapIndex int
	deadline  int64
	// fire is invoked with CPU Lock held when the deadline is reached.
	// Exactly one of task (bounded wait/sleep) or timer (periodic/
	// one-shot Timer) owns a given record.
	fire func(k *Kernel)
}

func (r *timeoutRecord) HeapIndex() int     { return r.heapIndex }
func (r *timeoutRecord) SetHeapIndex(i int) { r.heapIndex = i }

// timeoutEngine owns the kernel's single min-heap of pending deadlines
// (spec.md §4.8). Expired records are fired by advanceTimeouts, which
// runs from Kernel.AdvanceClock, called by the port when a tick is due.
type timeoutEngine struct {
	heap *prim.Heap[*timeoutRecord]
}

func newTimeoutEngine() timeoutEngine {
	return timeoutEngine{
		heap: prim.NewHeap[*timeoutRecord](func(a, b *timeoutRecord) bool {
			return a.deadline < b.deadline
		}),
	}
}

// insert schedules fire to run once the clock's hardware frontier
// reaches deadline, returning the record so the caller can cancel it
// early (a wait that completes for a different reason, or a timer that
// is stopped before it expires).
func (k *Kernel) insertTimeout(deadline int64, fire func(k *Kernel)) *timeoutRecord {
	r := &timeoutRecord{deadline: deadline, fire: fire}
	k.timeouts.heap.Insert(r)
	k.notifyPort()
	return r
}

// notifyPort tells the port layer how long it may sleep before the
// kernel's nearest pending timeout needs servicing, per spec.md §6's
// pend_tick contract. A no-op before Boot, when no port is attached yet.
func (k *Kernel) notifyPort() {
	if k.port == nil {
		return
	}
	d, ok := k.nextDeadline()
	if !ok {
		return
	}
	delta := d - k.clock.sample()
	if delta < 0 {
		delta = 0
	}
	if delta > math.MaxUint32 {
		delta = math.MaxUint32
	}
	k.port.PendTick(uint32(delta))
}

// cancelTimeout removes a previously inserted record, if still pending.
// Safe to call with a record that has already fired and nilled itself
// out of its owner, since callers always nil their own reference first.
func (k *Kernel) cancelTimeout(r *timeoutRecord) {
	if r == nil || r.heapIndex < 0 {
		return
	}
	k.timeouts.heap.Remove(r.heapIndex)
}

// advanceTimeouts fires every record whose deadline has reached the
// clock's current hardware frontier. Called with CPU Lock held; each
// fire callback may itself call back into scheduler/wait-queue
// operations, which is safe since they all assume the lock is already
// held (spec.md §4.2's operations are defined in terms of "CPU Lock is
// held throughout").
func (k *Kernel) advanceTimeouts() {
	now := k.clock.sample()
	for {
		min, ok := k.timeouts.heap.Min()
		if !ok || min.deadline > now {
			return
		}
		k.timeouts.heap.Pop()
		min.heapIndex = -1
		min.fire(k)
	}
}

// nextDeadline reports the hardware-frontier tick of the nearest pending
// timeout, used by a Port realization to decide how long it may sleep
// before it must call back into AdvanceClock.
func (k *Kernel) nextDeadline() (int64, bool) {
	min, ok := k.timeouts.heap.Min()
	if !ok {
		return 0, false
	}
	return min.deadline, true
}

// AdvanceClock samples the port's tick counter and fires any timeouts
// that have reached their deadline, then performs the deferred dispatch
// check. A Port realization calls this whenever it delivers a tick
// interrupt (spec.md §4.8); SPEC_FULL's simport package drives it from a
// real time.Timer.
func (k *Kernel) AdvanceClock() error {
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	k.advanceTimeouts()
	k.Unlock(tok)
	return nil
}
