// Package kernel implements a preemptive, fixed-priority, statically
// configured real-time kernel core: tasks, mutexes, counting semaphores,
// event groups, and timers, scheduled over a single logical processor.
//
// There being no portable way in Go to preempt a running goroutine at an
// arbitrary instruction, the kernel realizes "dispatch" by baton-passing
// a private channel between one persistent goroutine per configured
// task, and realizes "interrupt masking" by serializing every mutating
// operation through a single CPU Lock mutex (see cpulock.go and
// sched.go for the detail).
package kernel

import "sync/atomic"

// Kernel is the fully configured, bootable instance. Build one with
// kernel.Builder (or the cfg package's Config wrapper around it), then
// call Boot with a concrete Port.
type Kernel struct {
	execContext atomic.Int32

	cpuLock       cpuLock
	priorityBoost priorityBoost
	sched         *scheduler
	clock         *clock
	timeouts      timeoutEngine

	port   Port
	booted bool

	numLevels int

	tasks       []*Task
	mutexes     []*Mutex
	semaphores  []*Semaphore
	eventGroups []*EventGroup
	timers      []*Timer

	startupHooks []func(k *Kernel)

	interruptLines map[uint]resolvedInterruptLine

	allowUnsafeStartupOrder bool

	// sleepQueue is the otherwise-invisible wait queue Sleep uses so it
	// can reuse the same timeout/interrupt machinery as every other
	// bounded wait, without needing a dedicated object type.
	sleepQueue waitQueue

	// parkQueue is the otherwise-invisible wait queue Park uses; FIFO
	// order only matters in that it determines which parked task an
	// unrelated wake would affect first, which never happens in practice
	// since UnparkExact always targets one specific task by identity.
	parkQueue waitQueue
}

// newKernel is called by Builder.Finalize; numLevels is the
// configured priority-level count (spec.md §4.2's fixed bitmap width).
func newKernel(numLevels int) *Kernel {
	return &Kernel{
		sched:      newScheduler(numLevels),
		numLevels:  numLevels,
		timeouts:   newTimeoutEngine(),
		sleepQueue: newWaitQueue(waitFIFO),
		parkQueue:  newWaitQueue(waitFIFO),
	}
}

// currentContext reports the kind of execution context the calling
// goroutine is conceptually running in. Since every mutating kernel
// operation is serialized through CPU Lock (cpulock.go), at most one
// context is ever actually inside a state-changing call at a time; this
// field is a plain snapshot for the advisory checks (EnterPriorityBoost,
// blocking-operation guards) that must reject the wrong context without
// themselves taking CPU Lock first.
func (k *Kernel) currentContext() ContextKind {
	return ContextKind(k.execContext.Load())
}

func (k *Kernel) setContext(c ContextKind) {
	k.execContext.Store(int32(c))
}

// Boot starts the kernel against a concrete Port: it spawns the
// persistent per-task goroutines, runs configured startup hooks in
// ContextStartupHook, activates every auto-activated task, and performs
// the initial dispatch. Boot must be called exactly once.
func (k *Kernel) Boot(port Port) error {
	if k.booted {
		return ErrBadContext
	}
	k.booted = true
	k.port = port
	k.clock = newClock(port)

	for _, t := range k.tasks {
		go k.runTask(t)
	}

	tok, err := k.Lock()
	if err != nil {
		return err
	}
	k.setContext(ContextStartupHook)
	for _, hook := range k.startupHooks {
		hook(k)
	}
	k.setContext(ContextNone)
	for _, t := range k.tasks {
		if t.autoActivate {
			k.activateLocked(t)
		}
	}
	k.Unlock(tok)
	return nil
}

// runTask is the body of every task's persistent goroutine: it parks on
// resume until chosen, runs the configured entry point to completion,
// transitions to Dormant, and parks again awaiting reactivation.
func (k *Kernel) runTask(t *Task) {
	for {
		<-t.resume
		k.setContext(ContextTask)
		t.entry(t)
		k.exitTask(t)
	}
}

// exitTask implements spec.md §4.3's task-exit transition to Dormant. Any
// mutex the task still holds is abandoned (spec.md §4.4's "abandoned
// mutex" case, SPEC_FULL §6 Open Question 2), and the next task is
// dispatched.
func (k *Kernel) exitTask(t *Task) {
	tok, err := k.Lock()
	if err != nil {
		return
	}
	for m := t.lastMutexHeld; m != nil; {
		next := m.belowOnStack
		k.abandonMutex(m)
		m = next
	}
	t.lastMutexHeld = nil
	t.parkToken = false
	t.state = TaskDormant
	k.sched.running = nil
	k.requestDispatch()
	k.Unlock(tok)
}

// Yield implements spec.md's voluntary preemption point: the calling
// task moves to the back of its own priority level's FIFO and a dispatch
// is forced, giving any ready task at the same or higher priority a
// chance to run. This is the realization a hosted Go process substitutes
// for letting a tight compute loop be interrupted by a timer tick.
func (k *Kernel) Yield() error {
	if k.currentContext() != ContextTask {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	self := k.sched.running
	if self == nil {
		k.Unlock(tok)
		return nil
	}
	if lvl, ok := k.sched.bitmap.Lowest(); !ok || lvl > self.effPriority {
		k.Unlock(tok)
		return nil
	}
	self.state = TaskReady
	k.sched.levels[self.effPriority].PushBack(self)
	k.sched.bitmap.Set(self.effPriority)
	k.sched.running = nil
	k.requestDispatch()
	k.Unlock(tok)
	<-self.resume
	return nil
}

// CurrentTask returns the task currently running, or nil if called
// outside task context.
func (k *Kernel) CurrentTask() *Task {
	if k.currentContext() != ContextTask {
		return nil
	}
	return k.sched.running
}
