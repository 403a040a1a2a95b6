package kernel

import "github.com/r3go/kernel/klog"

// resolvedInterruptLine is the Finalize-time classification of a
// configured interrupt line: which context its handler runs in, and the
// handler itself.
type resolvedInterruptLine struct {
	context ContextKind
	handler InterruptHandler
}

// DispatchInterrupt invokes the first-level handler registered for line,
// in the ContextInterruptManaged/ContextInterruptUnmanaged context it was
// configured with (builder.go's SetInterruptManagedThreshold). A Port
// realization calls this whenever the line it represents fires; it is
// the hosted-process stand-in for spec.md §6's "first-level handler
// dispatch table".
//
// Handle runs without CPU Lock held, the same as a task's entry point -
// the handler takes CPU Lock itself for whatever kernel operations it
// calls. Context assumes a single logical CPU (spec.md's model): calling
// DispatchInterrupt for two different lines concurrently from distinct
// goroutines races on the shared context value the same way dispatching
// two tasks at once would, and is not a supported usage.
func (k *Kernel) DispatchInterrupt(line uint) error {
	e, ok := k.interruptLines[line]
	if !ok {
		klog.Warn().Uint64(`line`, uint64(line)).Log(`DispatchInterrupt: port fired an unregistered line`)
		return ErrBadParam
	}
	prev := k.currentContext()
	k.setContext(e.context)
	e.handler.Handle()
	k.setContext(prev)
	return nil
}
