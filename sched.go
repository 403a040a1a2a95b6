package kernel

import "github.com/r3go/kernel/internal/prim"

// scheduler is the ready-set representation from spec.md §4.2: a bitmap
// indexed by priority level (0 = highest), with one intrusive FIFO per
// occupied level. All three operations (insertion, removal, min-query)
// are O(word) on the bitmap, per spec.md's explicit requirement.
type scheduler struct {
	bitmap prim.Bitmap
	levels []prim.List[Task]
	running *Task
}

func newScheduler(numLevels int) *scheduler {
	return &scheduler{
		bitmap: prim.NewBitmap(numLevels),
		levels: make([]prim.List[Task], numLevels),
	}
}

// makeReady transitions task to Ready (from Dormant/PendingActivation/
// Waiting), appends it to the tail of its effective-priority FIFO, and
// requests a dispatch if task now outranks the currently running one
// (spec.md §4.2's make_ready).
func (k *Kernel) makeReady(t *Task) {
	s := k.sched
	t.state = TaskReady
	s.levels[t.effPriority].PushBack(t)
	s.bitmap.Set(t.effPriority)
	if s.running == nil || t.effPriority < s.running.effPriority {
		k.requestDispatch()
	}
}

// removeReady unlinks task from the ready set without changing its state;
// used when reinserting at a new priority level.
func (s *scheduler) removeReady(t *Task) {
	s.levels[t.effPriority].Remove(t)
	if s.levels[t.effPriority].Empty() {
		s.bitmap.Clear(t.effPriority)
	}
}

// chooseRunning reads the minimum set bit and pops the head of that
// FIFO, clearing the bit if the level is now empty (spec.md §4.2's
// choose_running). Returns (nil, false) if the ready set is empty.
func (s *scheduler) chooseRunning() (*Task, bool) {
	lvl, ok := s.bitmap.Lowest()
	if !ok {
		return nil, false
	}
	t := s.levels[lvl].PopFront()
	if s.levels[lvl].Empty() {
		s.bitmap.Clear(lvl)
	}
	return t, true
}

// setEffectivePriority implements spec.md §4.2's set_effective_priority:
// if task is Ready, it is removed and reinserted at the new level;
// otherwise only the field is updated (Running/Waiting/Dormant tasks are
// not on the ready bitmap).
func (k *Kernel) setEffectivePriority(t *Task, p int) {
	if t.effPriority == p {
		return
	}
	if t.state == TaskReady {
		k.sched.removeReady(t)
		t.effPriority = p
		k.sched.levels[p].PushBack(t)
		k.sched.bitmap.Set(p)
	} else {
		t.effPriority = p
	}
	if t.state == TaskRunning {
		// a running task that just dropped its effective priority may
		// now be outranked by whatever is waiting on the ready bitmap.
		if lvl, ok := k.sched.bitmap.Lowest(); ok && lvl < t.effPriority {
			k.requestDispatch()
		}
	}
}

// dispatch is the realization of spec.md §4.2/§4.3's "request a context
// switch": called after CPU Lock release when a dispatch is pending and
// Priority Boost is inactive. It decides whether the currently running
// task (if any) is outranked by the ready set's head, and if so re-
// enqueues it and hands the baton to the new head.
func (k *Kernel) dispatch() {
	tok, err := k.Lock()
	if err != nil {
		return
	}
	cur := k.sched.running
	lvl, ok := k.sched.bitmap.Lowest()
	if cur != nil && (!ok || lvl >= cur.effPriority) {
		k.Unlock(tok)
		return
	}
	if cur != nil {
		cur.state = TaskReady
		k.sched.levels[cur.effPriority].PushBack(cur)
		k.sched.bitmap.Set(cur.effPriority)
	}
	var next *Task
	if ok {
		next, _ = k.sched.chooseRunning()
		next.state = TaskRunning
	}
	k.sched.running = next
	k.Unlock(tok)

	if next != nil {
		next.resume <- struct{}{}
	}
}

// parkIfPreempted is called by non-blocking operations, after releasing
// CPU Lock, with self set to whichever task was running when the
// operation began. If dispatch() has since handed the baton to someone
// else, self blocks here until it is chosen again - this is the
// cooperative preemption point a hosted Go process substitutes for
// hardware-level mid-instruction preemption (SPEC_FULL §6 Open
// Question 1).
func (k *Kernel) parkIfPreempted(self *Task) {
	if self == nil {
		return
	}
	if k.sched.running != self {
		<-self.resume
	}
}

// blockSelf removes self from the running slot, marks it Waiting on q,
// requests a dispatch, releases the lock, and parks unconditionally.
// Callers must have already linked self into q under the same Token.
func (k *Kernel) blockSelf(tok Token, self *Task, q *waitQueue) {
	self.state = TaskWaiting
	self.waitQ = q
	k.sched.running = nil
	k.requestDispatch()
	k.Unlock(tok)
	<-self.resume
}
