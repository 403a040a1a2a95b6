package simport

import "github.com/r3go/kernel"

// ManualPort is a single-stepped kernel.Port for deterministic tests:
// TickCount only ever advances when the test calls Advance, never on a
// wall-clock timer. This is the moral equivalent of eventloop's
// PrePollSleep/PrePollAwake test hooks, applied to the kernel's tick
// source instead of its poll loop.
type ManualPort struct {
	ticks   uint32
	pending uint32
	haveReq bool

	k *kernel.Kernel
}

// NewManual constructs a ManualPort starting at tick 0.
func NewManual() *ManualPort {
	return &ManualPort{}
}

// Attach links the port to the kernel it serves.
func (p *ManualPort) Attach(k *kernel.Kernel) {
	p.k = k
}

// TickCount implements kernel.Port.
func (p *ManualPort) TickCount() uint32 { return p.ticks }

// PendTick implements kernel.Port: records the deadline without
// scheduling anything; Advance is what actually drives time forward.
func (p *ManualPort) PendTick(ticksFromNow uint32) {
	deadline := p.ticks + ticksFromNow
	if !p.haveReq || deadline < p.pending {
		p.pending = deadline
		p.haveReq = true
	}
}

// Advance moves the virtual clock forward by n ticks and, once attached
// to a kernel, always calls back into AdvanceClock so any timeouts that
// are now due fire as they would under a real tick interrupt.
func (p *ManualPort) Advance(n uint32) error {
	p.ticks += n
	if p.k == nil {
		return nil
	}
	return p.k.AdvanceClock()
}

// AdvanceUntilIdle repeatedly advances by the smallest step that reaches
// the kernel's next pending deadline, until none remains or maxSteps is
// exhausted — used by tests that want every timer/timeout to resolve
// without hand-computing tick counts.
func (p *ManualPort) AdvanceUntilIdle(maxSteps int) error {
	for i := 0; i < maxSteps; i++ {
		if !p.haveReq {
			return nil
		}
		delta := p.pending - p.ticks
		p.haveReq = false
		if err := p.Advance(delta); err != nil {
			return err
		}
	}
	return nil
}
