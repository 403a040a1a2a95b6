package kernel

import (
	"sort"

	"github.com/r3go/kernel/klog"
)

// Builder assembles a Kernel's static object tables before Boot. It is
// the runtime counterpart of spec.md §6/§9's const-evaluable
// configuration step: Go has no compile-time evaluation over arbitrary
// object graphs, so the same effect — pre-sized tables that are never
// reallocated once the kernel is running — is achieved by building
// everything up front and then calling Finalize exactly once.
//
// Builder is exported so the cfg package (the user-facing configuration
// surface) can be implemented entirely in terms of it, without needing
// access to Kernel's internals.
type Builder struct {
	numLevels int

	tasks        []*Task
	mutexes      []*Mutex
	semaphores   []*Semaphore
	eventGroups  []*EventGroup
	timers       []*Timer
	startupHooks []startupHookEntry

	interruptLines          map[uint]interruptLineSpec
	interruptThreshold      int
	interruptThresholdSet   bool
	hunkSizes               []hunkSpec

	allowUnsafeStartupOrder bool
	finalized               bool
}

type interruptLineSpec struct {
	priority int
	handler  InterruptHandler
}

type startupHookEntry struct {
	priority int
	seq      int
	fn       func(k *Kernel)
}

type hunkSpec struct {
	size, align int
}

// NewBuilder starts a configuration with numLevels priority levels
// (0 = highest), matching spec.md §4.2's fixed bitmap width.
func NewBuilder(numLevels int) *Builder {
	if numLevels <= 0 {
		panic("kernel: NewBuilder: numLevels must be positive")
	}
	return &Builder{
		numLevels:      numLevels,
		interruptLines: make(map[uint]interruptLineSpec),
	}
}

// TaskSpec bundles a task's configuration-time parameters.
type TaskSpec struct {
	Name         string
	Priority     int
	Entry        func(t *Task)
	AutoActivate bool
}

// AddTask registers a task and returns its handle (the *Task is live
// immediately but inert — Dormant — until Boot or an explicit Activate).
func (b *Builder) AddTask(spec TaskSpec) *Task {
	b.mustNotFinalized()
	if spec.Priority < 0 || spec.Priority >= b.numLevels {
		panic("kernel: AddTask: priority out of configured range")
	}
	t := &Task{
		id:           TaskID(len(b.tasks) + 1),
		Name:         spec.Name,
		entry:        spec.Entry,
		basePriority: spec.Priority,
		effPriority:  spec.Priority,
		autoActivate: spec.AutoActivate,
		state:        TaskDormant,
		resume:       make(chan struct{}),
	}
	b.tasks = append(b.tasks, t)
	return t
}

// AddMutex registers a mutex with the given protocol. ceiling is only
// meaningful (and required to be a valid priority level) when protocol
// is MutexProtocolCeiling.
func (b *Builder) AddMutex(protocol MutexProtocol, ceiling int) *Mutex {
	b.mustNotFinalized()
	if protocol == MutexProtocolCeiling && (ceiling < 0 || ceiling >= b.numLevels) {
		panic("kernel: AddMutex: ceiling out of configured range")
	}
	m := newMutex(nil, MutexID(len(b.mutexes)+1), protocol, ceiling)
	b.mutexes = append(b.mutexes, m)
	return m
}

// AddSemaphore registers a counting semaphore with the given initial
// count and maximum.
func (b *Builder) AddSemaphore(initial, max int) *Semaphore {
	b.mustNotFinalized()
	if initial < 0 || initial > max {
		panic("kernel: AddSemaphore: initial out of [0, max]")
	}
	s := newSemaphore(nil, SemaphoreID(len(b.semaphores)+1), initial, max)
	b.semaphores = append(b.semaphores, s)
	return s
}

// AddEventGroup registers an event group with the given initial bits and
// waiter order (spec.md §5, §8 S4).
func (b *Builder) AddEventGroup(initial uint32, order WaitOrder) *EventGroup {
	b.mustNotFinalized()
	e := newEventGroup(nil, EventGroupID(len(b.eventGroups)+1), initial, order)
	b.eventGroups = append(b.eventGroups, e)
	return e
}

// AddTimer registers a software timer with the given expiration
// callback. The timer starts Stopped; call Start to arm it.
func (b *Builder) AddTimer(callback func(k *Kernel)) *Timer {
	b.mustNotFinalized()
	t := newTimer(nil, TimerID(len(b.timers)+1), callback)
	b.timers = append(b.timers, t)
	return t
}

// AllowUnsafeStartupOrder permits negative startup-hook priorities
// (spec.md's Design Notes flag these as running before the kernel's own
// invariants are fully established).
func (b *Builder) AllowUnsafeStartupOrder() {
	b.allowUnsafeStartupOrder = true
}

// AddStartupHook registers fn to run once during Boot, before any task
// is dispatched, ordered by priority (lower runs first) then
// registration order. A negative priority requires
// AllowUnsafeStartupOrder to have been called already.
func (b *Builder) AddStartupHook(priority int, fn func(k *Kernel)) {
	b.mustNotFinalized()
	if priority < 0 && !b.allowUnsafeStartupOrder {
		panic("kernel: AddStartupHook: negative priority requires AllowUnsafeStartupOrder")
	}
	b.startupHooks = append(b.startupHooks, startupHookEntry{
		priority: priority,
		seq:      len(b.startupHooks),
		fn:       fn,
	})
}

// SetInterruptManagedThreshold sets the priority cutover used to classify
// every line registered by AddInterruptLine: a line at or below threshold
// (numerically <=, i.e. at least as urgent) is dispatched as
// ContextInterruptManaged and may call the kernel's non-blocking
// operation subset; a line above threshold is dispatched as
// ContextInterruptUnmanaged and may never call into the kernel at all.
// Lines are classified at Finalize, so this may be called at any point
// before Finalize if the default of "every line is managed" is not
// what's wanted.
func (b *Builder) SetInterruptManagedThreshold(threshold int) {
	b.mustNotFinalized()
	b.interruptThreshold = threshold
	b.interruptThresholdSet = true
}

// AddInterruptLine registers handler to run whenever line fires, at the
// given interrupt priority (lower numbers are more urgent, matching task
// priority convention). See SetInterruptManagedThreshold for how priority
// maps to managed vs. unmanaged dispatch.
func (b *Builder) AddInterruptLine(line uint, priority int, handler InterruptHandler) {
	b.mustNotFinalized()
	if _, exists := b.interruptLines[line]; exists {
		panic("kernel: AddInterruptLine: line already registered")
	}
	b.interruptLines[line] = interruptLineSpec{priority: priority, handler: handler}
}

// AddHunk reserves a size-byte, align-aligned region in the kernel's
// static hunk pool, returning an index resolved to a concrete []byte
// view by Finalize. Grounded in a monotonic bump allocator rather than a
// general-purpose one, since hunks are never freed (no dynamic object
// creation is a stated Non-goal).
func (b *Builder) AddHunk(size, align int) int {
	b.mustNotFinalized()
	b.hunkSizes = append(b.hunkSizes, hunkSpec{size: size, align: align})
	return len(b.hunkSizes) - 1
}

func (b *Builder) mustNotFinalized() {
	if b.finalized {
		panic("kernel: Builder: already finalized")
	}
}

// Finalize emits the static tables and returns the bootable Kernel along
// with the resolved hunk views, in hunk-index order.
func (b *Builder) Finalize() (*Kernel, [][]byte) {
	b.mustNotFinalized()
	b.finalized = true

	k := newKernel(b.numLevels)
	k.tasks = b.tasks
	k.mutexes = b.mutexes
	k.semaphores = b.semaphores
	k.eventGroups = b.eventGroups
	k.timers = b.timers
	k.allowUnsafeStartupOrder = b.allowUnsafeStartupOrder

	for _, t := range k.tasks {
		t.k = k
	}
	for _, m := range k.mutexes {
		m.k = k
	}
	for _, s := range k.semaphores {
		s.k = k
	}
	for _, e := range k.eventGroups {
		e.k = k
	}
	for _, tm := range k.timers {
		tm.k = k
	}

	sort.SliceStable(b.startupHooks, func(i, j int) bool {
		if b.startupHooks[i].priority != b.startupHooks[j].priority {
			return b.startupHooks[i].priority < b.startupHooks[j].priority
		}
		return b.startupHooks[i].seq < b.startupHooks[j].seq
	})
	for _, h := range b.startupHooks {
		k.startupHooks = append(k.startupHooks, h.fn)
	}

	hunks := buildHunks(b.hunkSizes)

	k.interruptLines = make(map[uint]resolvedInterruptLine, len(b.interruptLines))
	for line, spec := range b.interruptLines {
		ctx := ContextInterruptManaged
		if b.interruptThresholdSet && spec.priority > b.interruptThreshold {
			ctx = ContextInterruptUnmanaged
		}
		k.interruptLines[line] = resolvedInterruptLine{context: ctx, handler: spec.handler}
	}

	klog.Info().
		Int(`tasks`, len(k.tasks)).
		Int(`mutexes`, len(k.mutexes)).
		Int(`semaphores`, len(k.semaphores)).
		Int(`eventGroups`, len(k.eventGroups)).
		Int(`timers`, len(k.timers)).
		Int(`interruptLines`, len(k.interruptLines)).
		Log(`kernel finalized`)

	return k, hunks
}
