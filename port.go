package kernel

// Port is the external collaborator spec.md §6 calls the "port layer":
// the CPU context switch, interrupt masking, and timer hardware are out
// of the CORE's scope and are supplied by the embedder.
//
// In a hosted Go process there is no hardware interrupt controller and
// no register-level context switch to delegate: the CORE realizes
// "dispatch" itself, by handing a baton channel between task goroutines
// (see task.go), and realizes CPU Lock with an ordinary mutex (see
// cpulock.go). What remains a genuine external dependency is the
// monotonic tick source and the "when should I next be woken" timer
// programming contract, so Port is reduced to exactly that pair,
// matching the `tick_count()`/`pend_tick()` row of spec.md's table.
type Port interface {
	// TickCount returns the monotonic tick count, wrapping at 2^32 the
	// same way real timer hardware does; the timeout engine's frontier
	// tracking (clock.go) detects and absorbs the wrap.
	TickCount() uint32

	// PendTick programs the next timer interrupt to fire no later than
	// ticksFromNow ticks from now, saturating instead of overflowing if
	// ticksFromNow exceeds the hardware's range.
	PendTick(ticksFromNow uint32)
}

// InterruptHandler is the port→core contract for a configured interrupt
// line's first-level handler (spec.md §6): the port calls Handle when the
// line fires; Handle runs with the context the line was classified into
// at Finalize (ContextInterruptManaged or ContextInterruptUnmanaged).
type InterruptHandler interface {
	Handle()
}

// InterruptHandlerFunc adapts a plain function to InterruptHandler.
type InterruptHandlerFunc func()

func (f InterruptHandlerFunc) Handle() { f() }
