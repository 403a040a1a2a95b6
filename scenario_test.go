package kernel_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r3go/kernel"
	"github.com/r3go/kernel/cfg"
)

// TestScenarioBootSingleTaskRunsOnce is S1: a single priority-0
// auto-activated task boots straight to Running and completes exactly
// once, observing a small Now() at entry.
func TestScenarioBootSingleTaskRunsOnce(t *testing.T) {
	c := cfg.New(4)
	runs := 0
	var entryNow int64
	done := make(chan struct{})
	c.Task(kernel.TaskSpec{
		Name:         "only",
		Priority:     0,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			runs++
			entryNow = tk.Kernel().Now()
			close(done)
		},
	})

	bootManual(t, c)
	<-done

	require.Equal(t, 1, runs)
	require.GreaterOrEqual(t, entryNow, int64(0))
	require.Less(t, entryNow, int64(10))
}

// TestScenarioEqualPriorityTasksRunFIFO is S2: three same-priority tasks
// activated back to back by a fourth, same-priority task complete in
// strict registration order, since equal priority never preempts
// (sched.go's dispatch only switches on a strictly lower effPriority) and
// the ready-level FIFO preserves arrival order once the activator exits.
func TestScenarioEqualPriorityTasksRunFIFO(t *testing.T) {
	c := cfg.New(4)
	var mu sync.Mutex
	var order []int
	remaining := 3
	done := make(chan struct{})

	mk := func(id int) func(tk *kernel.Task) {
		return func(tk *kernel.Task) {
			mu.Lock()
			order = append(order, id)
			remaining--
			if remaining == 0 {
				close(done)
			}
			mu.Unlock()
		}
	}
	t2 := c.Task(kernel.TaskSpec{Name: "t2", Priority: 2, Entry: mk(2)})
	t3 := c.Task(kernel.TaskSpec{Name: "t3", Priority: 2, Entry: mk(3)})
	t4 := c.Task(kernel.TaskSpec{Name: "t4", Priority: 2, Entry: mk(4)})

	c.Task(kernel.TaskSpec{
		Name:         "t0",
		Priority:     2,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, t2.Activate())
			require.NoError(t, t3.Activate())
			require.NoError(t, t4.Activate())
		},
	})

	bootManual(t, c)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{2, 3, 4}, order)
}

// TestScenarioPriorityCeilingProtectsCriticalSection is S3: a priority-2
// task holding a ceiling-0 mutex runs its critical section to completion
// before a priority-0 and a priority-1 task it activates get the CPU at
// all, because locking the mutex raises it to the ceiling for the
// duration of the critical section.
func TestScenarioPriorityCeilingProtectsCriticalSection(t *testing.T) {
	c := cfg.New(4)
	m := c.Mutex(kernel.MutexProtocolCeiling, 0)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	remaining := 3

	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		remaining--
		if remaining == 0 {
			close(done)
		}
		mu.Unlock()
	}

	var high, mid *kernel.Task
	high = c.Task(kernel.TaskSpec{
		Name:     "high",
		Priority: 0,
		Entry: func(tk *kernel.Task) {
			record("high")
		},
	})
	mid = c.Task(kernel.TaskSpec{
		Name:     "mid",
		Priority: 1,
		Entry: func(tk *kernel.Task) {
			record("mid")
		},
	})

	c.Task(kernel.TaskSpec{
		Name:         "owner",
		Priority:     2,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, m.Lock())
			require.NoError(t, high.Activate())
			require.NoError(t, mid.Activate())
			// high and mid are both Ready but cannot preempt: owner's
			// effective priority is ceilinged to 0 for as long as it
			// holds m, so no Ready task outranks it.
			require.Equal(t, 0, tk.EffectivePriority())
			record("owner")
			require.NoError(t, m.Unlock())
		},
	})

	bootManual(t, c)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"owner", "high", "mid"}, order)
}

// TestScenarioEventGroupWakesInPriorityOrder is S4: an event group
// configured with kernel.WaitPriority wakes its waiters by task priority
// rather than arrival order. Two priority-2 tasks enter the wait queue
// immediately at boot; two priority-1 tasks sleep first and only enter
// the wait queue afterward, so they arrive last but must still be woken
// first once the bit is set.
func TestScenarioEventGroupWakesInPriorityOrder(t *testing.T) {
	c := cfg.New(4)
	eg := c.EventGroup(0, kernel.WaitPriority)

	var mu sync.Mutex
	var order []int
	remaining := 4
	done := make(chan struct{})

	record := func(id int) {
		mu.Lock()
		order = append(order, id)
		remaining--
		if remaining == 0 {
			close(done)
		}
		mu.Unlock()
	}

	c.Task(kernel.TaskSpec{
		Name: "c", Priority: 2, AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			_, err := eg.Wait(0b1, kernel.WaitAny, false)
			require.NoError(t, err)
			record(3)
		},
	})
	c.Task(kernel.TaskSpec{
		Name: "d", Priority: 2, AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			_, err := eg.Wait(0b1, kernel.WaitAny, false)
			require.NoError(t, err)
			record(4)
		},
	})
	c.Task(kernel.TaskSpec{
		Name: "a", Priority: 1, AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, tk.Kernel().Sleep(5))
			_, err := eg.Wait(0b1, kernel.WaitAny, false)
			require.NoError(t, err)
			record(1)
		},
	})
	c.Task(kernel.TaskSpec{
		Name: "b", Priority: 1, AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, tk.Kernel().Sleep(5))
			_, err := eg.Wait(0b1, kernel.WaitAny, false)
			require.NoError(t, err)
			record(2)
		},
	})

	_, port := bootManual(t, c)
	// Let a and b wake from their sleep and join the wait queue behind c
	// and d, arrival-order-wise, before the bit is ever set.
	require.NoError(t, port.AdvanceUntilIdle(10))

	require.NoError(t, eg.Set(0b1))
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3, 4}, order)
}

// TestScenarioSemaphoreTimeoutThenSignal is S5: a task waits on an empty
// semaphore with a timeout shorter than when the signal eventually
// arrives, observes the timeout, then waits again and observes the
// signal.
func TestScenarioSemaphoreTimeoutThenSignal(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 1)
	firstResult := make(chan error, 1)
	secondResult := make(chan error, 1)

	c.Task(kernel.TaskSpec{
		Name:         "waiter",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			firstResult <- sem.WaitOneTimeout(20)
			secondResult <- sem.WaitOneTimeout(20)
		},
	})
	c.Task(kernel.TaskSpec{
		Name:         "signaler",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, tk.Kernel().Sleep(30))
			require.NoError(t, sem.Signal(1))
		},
	})

	_, port := bootManual(t, c)

	require.NoError(t, port.Advance(20))
	require.ErrorIs(t, <-firstResult, kernel.ErrTimeout)

	require.NoError(t, port.AdvanceUntilIdle(10))
	require.NoError(t, <-secondResult)
}

// TestScenarioAdjustTimeDoesNotFastForwardWaiters is the spec.md
// §4.8-compliant reading of S6: adjust_time moves what Now() reports but
// never disturbs a pending timeout's tick-space deadline, so a task
// waiting a short relative duration and one waiting a long relative
// duration both still wake only once their own tick counts actually
// elapse on the port, regardless of any adjustment made in between.
func TestScenarioAdjustTimeDoesNotFastForwardWaiters(t *testing.T) {
	c := cfg.New(4)
	shortResult := make(chan error, 1)
	longResult := make(chan error, 1)

	c.Task(kernel.TaskSpec{
		Name:         "short",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			shortResult <- tk.Kernel().Sleep(100)
		},
	})
	c.Task(kernel.TaskSpec{
		Name:         "long",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			longResult <- tk.Kernel().Sleep(600)
		},
	})

	objs, port := bootManual(t, c)

	require.NoError(t, objs.Kernel.AdjustTime(300))

	select {
	case <-shortResult:
		t.Fatal("adjust_time woke the short waiter with no ticks elapsed")
	default:
	}
	select {
	case <-longResult:
		t.Fatal("adjust_time woke the long waiter with no ticks elapsed")
	default:
	}

	require.NoError(t, port.Advance(100))
	require.NoError(t, <-shortResult)
	select {
	case <-longResult:
		t.Fatal("long waiter fired early")
	default:
	}

	require.NoError(t, port.Advance(500))
	require.NoError(t, <-longResult)

	// Now() reflects the adjustment throughout, independent of the ticks
	// driving the waiters above.
	require.Equal(t, int64(600+300), objs.Kernel.Now())
}
