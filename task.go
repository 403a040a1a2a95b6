package kernel

import (
	"fmt"

	"github.com/r3go/kernel/internal/prim"
)

// TaskID is a dense, 1-based index into the kernel's task table (spec.md
// invariant I7).
type TaskID int

// TaskState is the task lifecycle state (spec.md §3, §4.3).
type TaskState int

const (
	// TaskDormant is both the initial and the terminal state: the task
	// has not been activated, or has run to completion.
	TaskDormant TaskState = iota
	// TaskPendingActivation is defined for completeness but never
	// assigned: an auto-activated task stays TaskDormant until Boot
	// activates it.
	TaskPendingActivation
	// TaskReady means the task is linked into the scheduler's ready set,
	// waiting for choose_running to select it.
	TaskReady
	// TaskRunning means the task is the one and only currently-dispatched
	// task (spec.md invariant I2).
	TaskRunning
	// TaskWaiting means the task is linked into exactly one wait queue
	// (spec.md invariant I1).
	TaskWaiting
)

func (s TaskState) String() string {
	switch s {
	case TaskDormant:
		return "Dormant"
	case TaskPendingActivation:
		return "PendingActivation"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskWaiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

// Task is the kernel's task control block. It is created once, at
// configuration, and lives forever (spec.md Data Model); activation and
// exit only move it between Dormant and the runnable states.
type Task struct {
	prim.Link[Task] // ready-queue / wait-queue FIFO membership

	k    *Kernel
	id   TaskID
	Name string

	entry func(t *Task)

	basePriority int
	effPriority  int
	state        TaskState
	autoActivate bool

	parkToken bool

	waitQ *waitQueue // non-nil iff state == TaskWaiting

	// eventWait is non-nil iff state == TaskWaiting and the task is
	// blocked in eventGroup.Wait/WaitTimeout: an event group's waiter
	// list is keyed by requested-bits/mode, not a uniform waitQueue, so
	// it cannot be reached through waitQ. Kept here (rather than left
	// unreachable) so Task.Interrupt can still unblock it.
	eventWait  *eventWaiter
	eventGroup *EventGroup

	lastMutexHeld *Mutex // head of the intrusive held-mutex stack (I3)

	// resume is the baton: the task's own goroutine blocks on it whenever
	// it is not TaskRunning, and the scheduler sends on it the instant it
	// sets this task's state to TaskRunning (sched.go's dispatch). See
	// SPEC_FULL §6 Open Question 1 for why this, rather than a genuine
	// register-level context switch, realizes spec.md's dispatch() port
	// contract in a hosted Go process.
	resume chan struct{}

	// waitResult carries the outcome of a completed wait back to the
	// waiter (Ok/Timeout/Interrupted/Abandoned); set by whoever dequeues
	// the task from a wait queue, read once the task resumes running.
	waitResult error

	// timeoutRec is the task's own pending-timeout record while it is
	// waiting with a bound; nil for an unbounded wait.
	timeoutRec *timeoutRecord
}

// Kernel returns the kernel this task was configured against, so task
// entry points can call kernel-level operations (Yield, Sleep) without
// needing the Kernel handle threaded through separately.
func (t *Task) Kernel() *Kernel { return t.k }

// ID returns the task's dense identifier.
func (t *Task) ID() TaskID { return t.id }

// State returns the task's current lifecycle state. Safe to call from any
// context; does not require a Token (a snapshot read, not a mutation).
func (t *Task) State() TaskState { return t.state }

// Priority returns the task's base (configured) priority.
func (t *Task) Priority() int { return t.basePriority }

// EffectivePriority returns the priority currently used by the scheduler:
// the base priority tightened by any mutex protocol contribution (spec.md
// invariant I2/P3).
func (t *Task) EffectivePriority() int { return t.effPriority }

func (t *Task) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("task#%d", t.id)
}
