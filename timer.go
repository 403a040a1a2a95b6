package kernel

// TimerID is a dense, 1-based index into the kernel's timer table.
type TimerID int

// Timer is spec.md §4.7's software timer: either Stopped, or Running
// toward a single delay and then, if period is non-zero, reloading
// itself every period ticks thereafter.
type Timer struct {
	k        *Kernel
	id       TimerID
	Name     string
	callback func(k *Kernel)

	running bool
	delay   int64
	period  int64
	rec     *timeoutRecord
}

func newTimer(k *Kernel, id TimerID, callback func(k *Kernel)) *Timer {
	return &Timer{k: k, id: id, callback: callback}
}

func (t *Timer) ID() TimerID { return t.id }

// IsRunning reports whether the timer is currently armed.
func (t *Timer) IsRunning() bool { return t.running }

// Delay returns the currently configured one-shot delay.
func (t *Timer) Delay() int64 { return t.delay }

// Period returns the currently configured reload period (0 means
// one-shot).
func (t *Timer) Period() int64 { return t.period }

// SetDelay implements spec.md §4.7's set_delay: updates the configured
// delay. If the timer is Running, any pending expiration is canceled and
// rearmed using the new delay, measured from now.
func (t *Timer) SetDelay(delay int64) error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	if delay < 0 {
		return ErrBadParam
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	t.delay = delay
	t.rearmIfRunning()
	return nil
}

// SetPeriod implements spec.md §4.7's set_period: updates the configured
// reload period (0 means one-shot). If the timer is Running, any pending
// expiration is canceled and rearmed using the current delay, measured
// from now.
func (t *Timer) SetPeriod(period int64) error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	if period < 0 {
		return ErrBadParam
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)
	t.period = period
	t.rearmIfRunning()
	return nil
}

// rearmIfRunning cancels any pending expiration and reinserts one using
// the current delay, measured from now; called with CPU Lock held,
// after set_delay/set_period updates a field on a Running timer.
func (t *Timer) rearmIfRunning() {
	if !t.running {
		return
	}
	if t.rec != nil {
		t.k.cancelTimeout(t.rec)
		t.rec = nil
	}
	t.arm(t.delay)
}

// Start implements spec.md §4.7's start: transitions the timer to
// Running using its currently configured delay/period, without modifying
// either field (use SetDelay/SetPeriod first to change them). Starting
// an already-running timer restarts it from now.
func (t *Timer) Start() error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)

	if t.rec != nil {
		k.cancelTimeout(t.rec)
		t.rec = nil
	}
	t.running = true
	t.arm(t.delay)
	return nil
}

// Stop disarms the timer; a pending expiration that has not yet run is
// canceled.
func (t *Timer) Stop() error {
	k := t.k
	if !k.currentContext().canCallKernel() {
		return ErrBadContext
	}
	tok, err := k.Lock()
	if err != nil {
		return err
	}
	defer k.Unlock(tok)

	t.running = false
	if t.rec != nil {
		k.cancelTimeout(t.rec)
		t.rec = nil
	}
	return nil
}

// arm schedules the next expiration after ticksFromNow, in raw
// hardware-frontier tick space (clock.go).
func (t *Timer) arm(ticksFromNow int64) {
	deadline := t.k.clock.sample() + ticksFromNow
	t.rec = t.k.insertTimeout(deadline, t.fire)
}

// fire runs with CPU Lock held, invoked by advanceTimeouts. It
// calls the configured callback, then reloads for the next period or
// transitions to Stopped if one-shot.
func (t *Timer) fire(k *Kernel) {
	t.rec = nil
	if t.period > 0 {
		t.arm(t.period)
	} else {
		t.running = false
	}
	t.callback(k)
}
