package kernel

// clock extends the Port's 32-bit free-running tick counter to a 64-bit
// monotonic "frontier" tick, per spec.md §4.8's tick wraparound handling
// and SPEC_FULL §6 Open Question 3. A uint32 counter wraps roughly every
// 49.7 days at a 1kHz tick rate; the kernel samples it often enough
// (every timeout-engine advance) that at most one wrap can have occurred
// between samples, so the extension is a simple monotonic reconstruction.
type clock struct {
	port Port

	// last32 is the most recently observed raw Port tick count.
	last32 uint32
	// frontier is the reconstructed 64-bit tick count corresponding to
	// last32: frontier always satisfies uint32(frontier) == last32.
	frontier int64

	// offset is added to the reconstructed hardware tick to yield the
	// kernel's logical "current time" (spec.md §4.8's set_time/
	// adjust_time only ever move this offset, never the hardware
	// counter, so outstanding timeout deadlines expressed in raw ticks
	// stay valid without being rewritten).
	offset int64
}

func newClock(port Port) *clock {
	c := &clock{port: port}
	c.last32 = port.TickCount()
	return c
}

// sample reconciles the hardware counter's latest value into the 64-bit
// frontier, advancing it by the wrapped delta if the counter has wrapped
// since the last sample.
func (c *clock) sample() int64 {
	now32 := c.port.TickCount()
	delta := uint32(now32 - c.last32) // wrapping subtraction, always the forward distance
	c.frontier += int64(delta)
	c.last32 = now32
	return c.frontier
}

// now returns the kernel's current logical tick count: the reconstructed
// hardware frontier plus any adjustment applied by SetTime/AdjustTime.
func (c *clock) now() int64 {
	return c.sample() + c.offset
}

// setTime implements spec.md §4.8's set_time: redefines "now" to the
// given value by changing the offset. Does not touch any pending
// timeout's stored deadline, which is why deadlines must be stored as
// absolute hardware-frontier ticks rather than absolute logical ticks
// (SPEC_FULL §6 Open Question 3).
func (c *clock) setTime(logical int64) {
	c.offset = logical - c.sample()
}

// adjustTime implements spec.md §4.8's adjust_time: shifts "now" by a
// relative delta, subject to the headroom constraint that no pending
// timeout may be made to appear already-expired-in-the-past by a
// negative adjustment (the caller, Kernel.AdjustTime, checks this against
// the timeout engine's nearest deadline before calling adjustTime).
func (c *clock) adjustTime(delta int64) {
	c.offset += delta
}

// AdjustTime is the public operation from spec.md §4.8: shifts the
// system-time-to-tick mapping (clock.offset) by delta without touching
// any outstanding timeout's stored tick-space deadline, preserving both
// the heap's ordering and every deadline's absolute tick-space
// expiration exactly as §4.8 requires. The headroom check rejects a
// negative delta large enough that it would leave less than zero ticks
// of real headroom before the nearest pending deadline, the bound §4.8
// calls out by name without fixing a concrete window; it is a safety
// rail against a caller yanking the clock backward by more than the
// kernel's own lead time for the soonest thing it has promised to fire,
// not a mechanism for making adjust_time move when a timeout fires (it
// never does - only set_time/adjust_time's effect on Now() changes).
// Fails with ErrBadObjectState on a headroom violation (spec.md §4.8,
// §7's "timer set-time out of headroom" under State errors).
func (k *Kernel) AdjustTime(delta int64) error {
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)

	if delta < 0 {
		if min, ok := k.timeouts.heap.Min(); ok {
			headroom := min.deadline - k.clock.sample()
			if headroom+delta < 0 {
				return ErrBadObjectState
			}
		}
	}
	k.clock.adjustTime(delta)
	return nil
}

// SetTime is the public operation from spec.md §4.8.
func (k *Kernel) SetTime(logical int64) error {
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	k.clock.setTime(logical)
	return nil
}

// Now returns the kernel's current logical tick count.
func (k *Kernel) Now() int64 {
	tok, err := k.Lock()
	if err != nil {
		return 0
	}
	defer k.Unlock(tok)
	return k.clock.now()
}
