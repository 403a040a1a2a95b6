package kernel

// wakeWaiter completes a blocked task's wait with result, canceling any
// armed timeout and moving it back onto the ready set. Every operation
// that dequeues a task from a waitQueue for a reason other than timeout
// expiry (signal, unlock, set, interrupt) must route through this so the
// now-redundant timeout record does not later fire against a task that
// has moved on to something else entirely.
func (k *Kernel) wakeWaiter(t *Task, result error) {
	if t.timeoutRec != nil {
		k.cancelTimeout(t.timeoutRec)
		t.timeoutRec = nil
	}
	t.waitResult = result
	k.makeReady(t)
}
