// Package simport is the reference kernel.Port implementation: not part
// of the kernel core's own scope (spec.md §6 treats Port as a supplied
// external collaborator), but needed to exercise the core end-to-end,
// the way constance_port_std does for the original kernel.
//
// Two realizations are provided: Port, a wall-clock-driven port for
// examples and long-running programs, and ManualPort, a single-stepped
// port for deterministic tests (grounded in eventloop's loopTestHooks
// injection points: PrePollSleep/PrePollAwake become, here, an explicit
// Advance call the test drives itself).
package simport

import (
	"sync"
	"time"

	"github.com/r3go/kernel"
)

// Port drives a kernel.Kernel from the real wall clock: one internal
// tick per tickDuration, delivered by a time.Timer reprogrammed on every
// PendTick call rather than firing unconditionally on a fixed period.
type Port struct {
	tickDuration time.Duration
	epoch        int64 // monotonicNow() at construction, tick 0

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	k *kernel.Kernel
}

// New constructs a Port ticking once per tickDuration. Call Attach once
// the kernel is built, before Boot.
func New(tickDuration time.Duration) *Port {
	return &Port{tickDuration: tickDuration, epoch: monotonicNow()}
}

// Attach links the port to the kernel it serves. kernel.Kernel.Boot does
// not call it; the port needs the kernel handle to call AdvanceClock from
// its own timer goroutine, so the embedder calls Attach itself.
func (p *Port) Attach(k *kernel.Kernel) {
	p.k = k
}

// TickCount implements kernel.Port: elapsed wall-clock ticks since
// construction, truncated to uint32 (wrapping exactly like real timer
// hardware; the kernel's frontier tracking absorbs the wrap).
func (p *Port) TickCount() uint32 {
	elapsed := monotonicNow() - p.epoch
	ticks := elapsed / int64(p.tickDuration)
	return uint32(ticks)
}

// PendTick implements kernel.Port: (re)arms the internal timer to call
// back into AdvanceClock no later than ticksFromNow ticks from now.
func (p *Port) PendTick(ticksFromNow uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	d := time.Duration(ticksFromNow) * p.tickDuration
	if p.timer == nil {
		p.timer = time.AfterFunc(d, p.onFire)
		return
	}
	p.timer.Reset(d)
}

func (p *Port) onFire() {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped || p.k == nil {
		return
	}
	_ = p.k.AdvanceClock()
}

// Stop disarms the port's timer; no further ticks are delivered.
func (p *Port) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
