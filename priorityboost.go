package kernel

import "sync/atomic"

// priorityBoost is the orthogonal task-context gate described in
// spec.md §4.1: it suppresses preemption without masking interrupts.
// Unlike CPU Lock it is not re-entrant-checked by acquisition (the
// source allows nested enable/disable via a simple bool in task context,
// since only one task runs at a time), but it MUST NOT be entered from
// anywhere but task context, and blocking operations must reject it.
type priorityBoost struct {
	v atomic.Bool
}

func (p *priorityBoost) active() bool { return p.v.Load() }

// EnterPriorityBoost activates Priority Boost for the currently running task. Legal
// only from ContextTask.
func (k *Kernel) EnterPriorityBoost() error {
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	k.priorityBoost.v.Store(true)
	return nil
}

// LeavePriorityBoost deactivates Priority Boost and, since a higher-priority task may
// now preempt, triggers the same deferred-dispatch check CPU Lock release
// does.
func (k *Kernel) LeavePriorityBoost() error {
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	k.priorityBoost.v.Store(false)
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	k.Unlock(tok)
	return nil
}

// IsPriorityBoostActive is the public query mirroring spec.md §4.1.
func (k *Kernel) IsPriorityBoostActive() bool { return k.priorityBoost.active() }
