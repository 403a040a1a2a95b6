package kernel_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r3go/kernel"
	"github.com/r3go/kernel/cfg"
	"github.com/r3go/kernel/simport"
)

func bootManual(t *testing.T, c *cfg.Config) (cfg.Objects, *simport.ManualPort) {
	t.Helper()
	objs := c.Finalize()
	port := simport.NewManual()
	port.Attach(objs.Kernel)
	require.NoError(t, objs.Kernel.Boot(port))
	return objs, port
}

func TestTaskActivatesAndRuns(t *testing.T) {
	c := cfg.New(4)
	var ran sync.WaitGroup
	ran.Add(1)
	c.Task(kernel.TaskSpec{
		Name:         "t1",
		Priority:     1,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			ran.Done()
		},
	})
	bootManual(t, c)
	ran.Wait()
}

func TestTasksRunInPriorityOrder(t *testing.T) {
	c := cfg.New(4)
	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	c.Task(kernel.TaskSpec{
		Name:         "low",
		Priority:     2,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			mu.Lock()
			order = append(order, "low")
			mu.Unlock()
			close(done)
		},
	})
	c.Task(kernel.TaskSpec{
		Name:         "high",
		Priority:     0,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			mu.Lock()
			order = append(order, "high")
			mu.Unlock()
		},
	})

	bootManual(t, c)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"high", "low"}, order)
}

func TestCeilingProtocolRaisesEffectivePriority(t *testing.T) {
	c := cfg.New(4)
	m := c.Mutex(kernel.MutexProtocolCeiling, 0)

	insideCh := make(chan struct{})
	releaseCh := make(chan struct{})
	doneCh := make(chan struct{})

	holder := c.Task(kernel.TaskSpec{
		Name:         "holder",
		Priority:     3,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, m.Lock())
			close(insideCh)
			<-releaseCh
			require.NoError(t, m.Unlock())
			close(doneCh)
		},
	})

	bootManual(t, c)
	<-insideCh
	require.Equal(t, 0, holder.EffectivePriority())
	close(releaseCh)
	<-doneCh
	require.Equal(t, 3, holder.Priority())
}

func TestMutexMutualExclusionOrdersWaiters(t *testing.T) {
	c := cfg.New(4)
	m := c.Mutex(kernel.MutexProtocolNone, 0)

	var mu sync.Mutex
	var order []string
	startHigh := make(chan struct{})
	releaseLow := make(chan struct{})
	doneHigh := make(chan struct{})
	doneLow := make(chan struct{})

	c.Task(kernel.TaskSpec{
		Name:         "low",
		Priority:     2,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, m.Lock())
			close(startHigh)
			<-releaseLow
			mu.Lock()
			order = append(order, "low")
			mu.Unlock()
			require.NoError(t, m.Unlock())
			close(doneLow)
		},
	})
	c.Task(kernel.TaskSpec{
		Name:         "high",
		Priority:     0,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			<-startHigh
			require.NoError(t, m.Lock())
			mu.Lock()
			order = append(order, "high")
			mu.Unlock()
			require.NoError(t, m.Unlock())
			close(doneHigh)
		},
	})

	bootManual(t, c)
	<-startHigh
	close(releaseLow)
	<-doneLow
	<-doneHigh

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"low", "high"}, order)
}

// TestMutexTryLock exercises try_lock's three outcomes: WouldBlock
// against another owner, BadObjectState for a self-relock, and success
// against an unheld mutex. The contested case needs two genuinely
// concurrent tasks, so owner yields the CPU via Sleep (a real blocking
// kernel call) while still holding the mutex, rather than a bare
// goroutine channel, which would never hand the baton to challenger.
func TestMutexTryLock(t *testing.T) {
	c := cfg.New(4)
	m := c.Mutex(kernel.MutexProtocolNone, 0)
	var challengerErr error
	done := make(chan struct{})

	challenger := c.Task(kernel.TaskSpec{
		Name:     "challenger",
		Priority: 2,
		Entry: func(t *kernel.Task) {
			challengerErr = m.TryLock()
		},
	})

	c.Task(kernel.TaskSpec{
		Name:         "owner",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, m.Lock())
			require.NoError(t, challenger.Activate())
			require.NoError(t, tk.Kernel().Sleep(5))

			require.ErrorIs(t, m.TryLock(), kernel.ErrBadObjectState)
			require.NoError(t, m.Unlock())
			require.NoError(t, m.TryLock())
			require.ErrorIs(t, m.TryLock(), kernel.ErrBadObjectState)
			require.NoError(t, m.Unlock())
			close(done)
		},
	})

	_, port := bootManual(t, c)
	require.NoError(t, port.AdvanceUntilIdle(10))
	<-done
	require.ErrorIs(t, challengerErr, kernel.ErrWouldBlock)
}

func TestSemaphoreSignalWaitOrdering(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 1)

	var mu sync.Mutex
	var got []int
	waitersReady := make(chan struct{}, 2)
	doneCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	mk := func(id int) func(tk *kernel.Task) {
		return func(tk *kernel.Task) {
			waitersReady <- struct{}{}
			require.NoError(t, sem.WaitOne())
			mu.Lock()
			got = append(got, id)
			mu.Unlock()
			wg.Done()
		}
	}
	c.Task(kernel.TaskSpec{Name: "a", Priority: 1, AutoActivate: true, Entry: mk(1)})
	c.Task(kernel.TaskSpec{Name: "b", Priority: 1, AutoActivate: true, Entry: mk(2)})

	bootManual(t, c)
	<-waitersReady
	<-waitersReady

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	require.NoError(t, sem.Signal(1))
	require.NoError(t, sem.Signal(1))
	<-doneCh

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []int{1, 2}, got)
}

func TestSemaphorePollOneTimeout(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 1)
	ready := primeTaskContext(c)
	bootManual(t, c)
	<-ready
	require.ErrorIs(t, sem.PollOne(), kernel.ErrTimeout)
	require.NoError(t, sem.Signal(1))
	require.NoError(t, sem.PollOne())
}

func TestSemaphoreSignalNWakesMultipleWaitersAndIncrementsRemainder(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 5)

	var mu sync.Mutex
	var got []int
	waitersReady := make(chan struct{}, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	mk := func(id int) func(tk *kernel.Task) {
		return func(tk *kernel.Task) {
			waitersReady <- struct{}{}
			require.NoError(t, sem.WaitOne())
			mu.Lock()
			got = append(got, id)
			mu.Unlock()
			wg.Done()
		}
	}
	c.Task(kernel.TaskSpec{Name: "a", Priority: 1, AutoActivate: true, Entry: mk(1)})
	c.Task(kernel.TaskSpec{Name: "b", Priority: 1, AutoActivate: true, Entry: mk(2)})

	_, port := bootManual(t, c)
	<-waitersReady
	<-waitersReady

	// Both waiters are absorbed by the signal itself, leaving the
	// remaining 3 units applied to the count rather than any rollback.
	require.NoError(t, sem.Signal(5))
	require.NoError(t, port.AdvanceUntilIdle(1))
	wg.Wait()

	mu.Lock()
	require.ElementsMatch(t, []int{1, 2}, got)
	mu.Unlock()
	require.Equal(t, 3, sem.Count())
}

func TestSemaphoreSignalNOverflowLeavesPriorUnitsApplied(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 2)
	ready := primeTaskContext(c)
	bootManual(t, c)
	<-ready

	require.ErrorIs(t, sem.Signal(3), kernel.ErrQueueOverflow)
	require.Equal(t, 2, sem.Count())
}

func TestEventGroupWaitAllAndClearOnExit(t *testing.T) {
	c := cfg.New(4)
	eg := c.EventGroup(0, kernel.WaitFIFO)
	resultCh := make(chan uint32, 1)

	c.Task(kernel.TaskSpec{
		Name:         "waiter",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			bits, err := eg.Wait(0b011, kernel.WaitAll, true)
			require.NoError(t, err)
			resultCh <- bits
		},
	})

	bootManual(t, c)
	require.NoError(t, eg.Set(0b001))
	require.NoError(t, eg.Set(0b010))

	bits := <-resultCh
	require.Equal(t, uint32(0b011), bits)
	require.Equal(t, uint32(0), eg.Bits())
}

func TestEventGroupPoll(t *testing.T) {
	c := cfg.New(4)
	eg := c.EventGroup(0, kernel.WaitFIFO)
	ready := primeTaskContext(c)
	bootManual(t, c)
	<-ready

	_, err := eg.Poll(0b1, kernel.WaitAny, false)
	require.ErrorIs(t, err, kernel.ErrTimeout)

	require.NoError(t, eg.Set(0b11))
	bits, err := eg.Poll(0b1, kernel.WaitAny, true)
	require.NoError(t, err)
	require.Equal(t, uint32(0b11), bits)
	require.Equal(t, uint32(0b10), eg.Bits())
}

func TestSleepWakesAfterTicks(t *testing.T) {
	c := cfg.New(4)
	wokeCh := make(chan struct{})
	c.Task(kernel.TaskSpec{
		Name:         "sleeper",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, tk.Kernel().Sleep(10))
			close(wokeCh)
		},
	})
	_, port := bootManual(t, c)

	select {
	case <-wokeCh:
		t.Fatal("woke before any ticks advanced")
	default:
	}

	require.NoError(t, port.AdvanceUntilIdle(10))
	<-wokeCh
}

func TestSemaphoreWaitTimeoutExpires(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 1)
	resultCh := make(chan error, 1)
	c.Task(kernel.TaskSpec{
		Name:         "waiter",
		Priority:     1,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			resultCh <- sem.WaitOneTimeout(5)
		},
	})
	_, port := bootManual(t, c)
	require.NoError(t, port.AdvanceUntilIdle(10))
	require.ErrorIs(t, <-resultCh, kernel.ErrTimeout)
}

func TestTaskInterruptWakesWaiterWithErrInterrupted(t *testing.T) {
	c := cfg.New(4)
	sem := c.Semaphore(0, 1)
	resultCh := make(chan error, 1)

	waiter := c.Task(kernel.TaskSpec{
		Name:         "waiter",
		Priority:     1,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			resultCh <- sem.WaitOne()
		},
	})

	bootManual(t, c)

	// Interrupt is a safe no-op until the waiter has actually entered the
	// wait queue (CPU Lock serializes the two, so whichever of "waiter
	// enqueues" or "Interrupt checks state" runs first is always
	// consistent); retry until it lands instead of asserting on a single
	// racy attempt.
	for i := 0; i < 10000; i++ {
		select {
		case err := <-resultCh:
			require.ErrorIs(t, err, kernel.ErrInterrupted)
			return
		default:
		}
		require.NoError(t, waiter.Interrupt())
		runtime.Gosched()
	}
	t.Fatal("waiter never observed as waiting")
}

func TestTaskInterruptWakesEventGroupWaiterWithErrInterrupted(t *testing.T) {
	c := cfg.New(4)
	eg := c.EventGroup(0, kernel.WaitFIFO)
	resultCh := make(chan error, 1)

	waiter := c.Task(kernel.TaskSpec{
		Name:         "eg-waiter",
		Priority:     1,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			_, err := eg.Wait(0b1, kernel.WaitAny, false)
			resultCh <- err
		},
	})

	bootManual(t, c)

	// An event group waiter is tracked via Task.eventWait rather than a
	// plain waitQueue, which is exactly the path that used to make
	// Interrupt silently no-op; retry the same way the semaphore variant
	// above does until the waiter has actually entered the wait.
	for i := 0; i < 10000; i++ {
		select {
		case err := <-resultCh:
			require.ErrorIs(t, err, kernel.ErrInterrupted)
			return
		default:
		}
		require.NoError(t, waiter.Interrupt())
		runtime.Gosched()
	}
	t.Fatal("event group waiter never observed as waiting")
}

// TestParkAndUnparkExactWaking exercises both of park's spec.md §4.3
// outcomes in one race-tolerant test: depending on exactly when
// UnparkExact lands relative to parker's own dispatch, it either wakes
// parker out of an already-blocked Park, or deposits a token parker
// consumes the instant it calls Park - either way Park must return nil
// and the task must run to completion.
func TestParkAndUnparkExactWaking(t *testing.T) {
	c := cfg.New(4)
	ready := primeTaskContext(c)
	var parkErr error
	done := make(chan struct{})

	parker := c.Task(kernel.TaskSpec{
		Name:         "parker",
		Priority:     1,
		AutoActivate: true,
		Entry: func(t *kernel.Task) {
			parkErr = t.Kernel().Park()
			close(done)
		},
	})

	bootManual(t, c)
	<-ready
	require.NoError(t, parker.UnparkExact())
	<-done
	require.NoError(t, parkErr)
}

func TestUnparkExactQueueOverflow(t *testing.T) {
	c := cfg.New(4)
	task := c.Task(kernel.TaskSpec{
		Name:     "parker",
		Priority: 1,
		Entry:    func(t *kernel.Task) {},
	})
	ready := primeTaskContext(c)
	bootManual(t, c)
	<-ready

	require.NoError(t, task.UnparkExact())
	require.ErrorIs(t, task.UnparkExact(), kernel.ErrQueueOverflow)
}

func TestExitingTaskAbandonsHeldMutexAndMarkConsistentRecovers(t *testing.T) {
	c := cfg.New(4)
	m := c.Mutex(kernel.MutexProtocolNone, 0)
	lockedCh := make(chan struct{})
	resultCh := make(chan error, 1)

	c.Task(kernel.TaskSpec{
		Name:         "dies-holding-mutex",
		Priority:     1,
		AutoActivate: true,
		Entry: func(tk *kernel.Task) {
			require.NoError(t, m.Lock())
			close(lockedCh)
			// returning here exits the task while still holding m
		},
	})

	second := c.Task(kernel.TaskSpec{
		Name:     "recovers",
		Priority: 1,
		Entry: func(tk *kernel.Task) {
			err := m.Lock()
			require.True(t, m.IsInconsistent())
			resultCh <- err
			require.NoError(t, m.MarkConsistent())
			require.NoError(t, m.Unlock())
		},
	})

	bootManual(t, c)
	<-lockedCh
	// second cannot actually be dispatched until first has fully exited
	// (and thus abandoned m) - the scheduler only hands the baton to one
	// task at a time, so Activate racing ahead of first's exit is safe.
	require.NoError(t, second.Activate())
	require.ErrorIs(t, <-resultCh, kernel.ErrAbandoned)
}
