// Package cfg is the user-facing configuration surface for a kernel
// instance: a fluent builder that mirrors spec.md's const-evaluable
// configuration step (§6, §9) as an ordinary Go object graph, finalized
// once into a bootable kernel.Kernel.
package cfg

import "github.com/r3go/kernel"

// Config accumulates task/object/hook definitions; call Finalize exactly
// once to obtain the runtime Kernel.
type Config struct {
	b *kernel.Builder
}

// New starts a configuration with the given number of priority levels
// (0 = highest), matching spec.md §4.2's fixed bitmap width.
func New(numLevels int) *Config {
	return &Config{b: kernel.NewBuilder(numLevels)}
}

// Task registers a task; see kernel.TaskSpec for field meaning.
func (c *Config) Task(spec kernel.TaskSpec) *kernel.Task {
	return c.b.AddTask(spec)
}

// Mutex registers a mutex under the given protocol. ceiling is ignored
// unless protocol is kernel.MutexProtocolCeiling.
func (c *Config) Mutex(protocol kernel.MutexProtocol, ceiling int) *kernel.Mutex {
	return c.b.AddMutex(protocol, ceiling)
}

// Semaphore registers a counting semaphore.
func (c *Config) Semaphore(initial, max int) *kernel.Semaphore {
	return c.b.AddSemaphore(initial, max)
}

// EventGroup registers an event group with the given waiter order.
func (c *Config) EventGroup(initial uint32, order kernel.WaitOrder) *kernel.EventGroup {
	return c.b.AddEventGroup(initial, order)
}

// Timer registers a software timer, stopped until Start is called.
func (c *Config) Timer(callback func(k *kernel.Kernel)) *kernel.Timer {
	return c.b.AddTimer(callback)
}

// AllowUnsafeStartupOrder permits negative startup-hook priorities.
func (c *Config) AllowUnsafeStartupOrder() *Config {
	c.b.AllowUnsafeStartupOrder()
	return c
}

// StartupHook registers fn to run once during Boot, ordered by priority
// (lower first) then registration order.
func (c *Config) StartupHook(priority int, fn func(k *kernel.Kernel)) *Config {
	c.b.AddStartupHook(priority, fn)
	return c
}

// InterruptLine registers handler against line number, at the given
// interrupt priority. See kernel.Builder.SetInterruptManagedThreshold for
// how priority maps to managed vs. unmanaged dispatch; call
// InterruptManagedThreshold before Finalize if the default of "every
// line is managed" isn't wanted.
func (c *Config) InterruptLine(line uint, priority int, handler kernel.InterruptHandler) *Config {
	c.b.AddInterruptLine(line, priority, handler)
	return c
}

// InterruptManagedThreshold sets the priority cutover between managed and
// unmanaged interrupt dispatch; see kernel.Builder.SetInterruptManagedThreshold.
func (c *Config) InterruptManagedThreshold(threshold int) *Config {
	c.b.SetInterruptManagedThreshold(threshold)
	return c
}

// Hunk reserves a size-byte, align-aligned static region, returning an
// index resolved to a []byte view by Finalize.
func (c *Config) Hunk(size, align int) int {
	return c.b.AddHunk(size, align)
}

// Objects is the resolved set of configuration-time outputs returned by
// Finalize, alongside the live Kernel itself. Interrupt lines are not
// exposed here: a Port realization drives them by calling
// kernel.Kernel.DispatchInterrupt(line) directly once the Kernel is
// booted.
type Objects struct {
	Kernel *kernel.Kernel
	Hunks  [][]byte
}

// Finalize emits the static tables and returns the bootable Kernel.
func (c *Config) Finalize() Objects {
	k, hunks := c.b.Finalize()
	return Objects{
		Kernel: k,
		Hunks:  hunks,
	}
}
