package kernel

import "github.com/r3go/kernel/internal/prim"

// WaitOrder selects how a wait-capable object orders its blocked waiters
// (spec.md §5: "Wait queues are either FIFO or strict task-priority
// (configured per-object)"). Mutexes are always priority-ordered
// (spec.md §4.4) and take no WaitOrder of their own; semaphores are
// always FIFO; event groups are configured per-object via cfg.Config.
type WaitOrder int

const (
	// WaitFIFO orders waiters strictly by arrival.
	WaitFIFO WaitOrder = iota
	// WaitPriority orders waiters by task effective priority, with FIFO
	// as the tiebreak among equal priorities.
	WaitPriority
)

// internal aliases kept for the pre-export call sites in this package.
const (
	waitFIFO     = WaitFIFO
	waitPriority = WaitPriority
)

type waitOrder = WaitOrder

// waitQueue is the uniform block/unblock/interrupt/timeout primitive
// spec.md §2 item 3 describes: "one task is in at most one wait queue at
// a time" (invariant I1). Ordering is either arrival order or
// task-priority with FIFO tiebreak, selected at configuration time.
type waitQueue struct {
	order waitOrder
	q     prim.List[Task]
}

func newWaitQueue(order waitOrder) waitQueue {
	return waitQueue{order: order}
}

func (q *waitQueue) Len() int    { return q.q.Len() }
func (q *waitQueue) Empty() bool { return q.q.Empty() }
func (q *waitQueue) Front() *Task { return q.q.Front() }

// enqueue links t into the queue in the configured order. For waitFIFO
// this is always a tail append; for waitPriority, t is inserted before
// the first waiter with a strictly lower effective priority (higher
// priority number), so that equal-priority waiters remain FIFO among
// themselves.
func (q *waitQueue) enqueue(t *Task) {
	if q.order == waitFIFO {
		q.q.PushBack(t)
		return
	}
	for at := q.q.Front(); at != nil; at = at.Next() {
		if t.effPriority < at.effPriority {
			q.q.InsertBefore(t, at)
			return
		}
	}
	q.q.PushBack(t)
}

// popFront dequeues and returns the head waiter, or nil if empty.
func (q *waitQueue) popFront() *Task {
	return q.q.PopFront()
}

// remove unlinks t from the queue directly; used for timeout expiry and
// task.Interrupt(), both of which must pull a specific waiter out of the
// middle of the queue, not just the head.
func (q *waitQueue) remove(t *Task) {
	q.q.Remove(t)
}
