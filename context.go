package kernel

// ContextKind is the "can block" / "is task" / "is interrupt" property of
// the caller, queried at runtime instead of encoded in the type system
// (Design Notes, spec.md §9: "Context polymorphism without inheritance").
// There is exactly one logical CPU, so exactly one ContextKind is active
// at any instant; it changes only across a dispatch, an interrupt entry/
// exit, or a startup-hook call.
type ContextKind int

const (
	// ContextNone applies before Boot and while Boot activates tasks after
	// the startup hooks; operations gated by canCallKernel reject it. Once
	// a task has been dispatched the context stays ContextTask, even after
	// every task has exited.
	ContextNone ContextKind = iota
	// ContextTask is the body of a dispatched task.
	ContextTask
	// ContextStartupHook is a registered StartupHook running during Boot,
	// before any task is dispatched. Supplemented from original_source's
	// startup.rs boot sequence (spec.md SPEC_FULL §4): blocking operations
	// are forbidden here, the same as in interrupt context.
	ContextStartupHook
	// ContextInterruptManaged is a first-level handler at or below the
	// kernel's managed interrupt threshold; it may call the non-blocking
	// subset of kernel operations.
	ContextInterruptManaged
	// ContextInterruptUnmanaged is an interrupt whose priority exceeds the
	// managed threshold; it must never call a kernel operation. The task,
	// mutex, semaphore, event group and timer operations reject this
	// context with ErrBadContext; PollOne, MarkConsistent, Now, SetTime,
	// AdjustTime, AdvanceClock, DispatchInterrupt and Lock/Unlock do not
	// check the calling context.
	ContextInterruptUnmanaged
)

func (c ContextKind) String() string {
	switch c {
	case ContextNone:
		return "None"
	case ContextTask:
		return "Task"
	case ContextStartupHook:
		return "StartupHook"
	case ContextInterruptManaged:
		return "InterruptManaged"
	case ContextInterruptUnmanaged:
		return "InterruptUnmanaged"
	default:
		return "Unknown"
	}
}

// canBlock reports whether a voluntary block (park, sleep, wait_*,
// lock_timeout) is legal from this context. Only ContextTask qualifies,
// and only when Priority Boost is inactive (checked separately by
// callers, since that is an orthogonal gate, not a context property).
func (c ContextKind) canBlock() bool {
	return c == ContextTask
}

// canCallKernel reports whether any kernel operation at all may be called
// from this context. Unmanaged interrupts and ContextNone are both
// forbidden.
func (c ContextKind) canCallKernel() bool {
	return c != ContextInterruptUnmanaged && c != ContextNone
}
