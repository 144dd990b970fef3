package engine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/model"
)

// Cooperative runs a network on the calling goroutine.
//
// Each iteration promotes due timers and ready descriptors into the exec
// queue, then runs at most one structural command and one action. The only
// place it waits is poll: until the next timer, or without limit when only
// descriptors are pending. Canceling the run's context interrupts the wait
// through a self-pipe. Actions run strictly in queue order, so repeated runs
// of a deterministic network produce the same journal.
type Cooperative struct {
	*core

	running atomic.Bool

	config *queue[command]
	exec   *queue[ioa.ActionRef]
	timers *timerHeap
	fds    *fdSet
	wake   *wakeup
}

// NewCooperative creates a cooperative scheduler.
func NewCooperative(opts ...Option) *Cooperative {
	s := &Cooperative{
		config: newQueue[command](),
		exec:   newDedupQueue[ioa.ActionRef](),
		timers: newTimerHeap(),
		fds:    newFdSet(),
	}
	s.core = newCore(buildOptions(opts), s)
	return s
}

// Model exposes the registry.
func (s *Cooperative) Model() *model.Model { return s.model }

// Run creates the root automaton from gen and runs until no work remains or
// ctx is done. Either way every automaton is destroyed before Run returns,
// leaving the scheduler ready for another run.
func (s *Cooperative) Run(ctx context.Context, gen ioa.Generator) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	wake, err := newWakeup()
	if err != nil {
		return &RunError{Code: ErrCodeWakeup, Message: "cannot start cooperative scheduler", Err: err}
	}
	s.wake = wake
	defer func() {
		wake.Close()
		s.wake = nil
	}()
	stopWake := context.AfterFunc(ctx, wake.Signal)
	defer stopWake()

	start := time.Now()
	s.begin(ctx, "cooperative")
	s.createRoot(gen)
	s.release()

	err = s.loop(ctx)

	s.end(start, err)
	s.reset()
	return err
}

func (s *Cooperative) loop(ctx context.Context) error {
	for s.outstanding.Load() > 0 {
		if err := ctx.Err(); err != nil {
			return newCanceledError(s.RunID(), err)
		}

		timeout := s.timers.Timeout(time.Now())
		if s.config.Len() > 0 || s.exec.Len() > 0 {
			timeout = 0
		}

		var ready []unix.PollFd
		if s.fds.Len() > 0 || timeout != 0 {
			polled := append(s.fds.PollFds(), s.wake.PollFd())
			if _, err := poll(polled, timeout); err != nil {
				return newPollError(s.RunID(), err)
			}
			if polled[len(polled)-1].Revents&unix.POLLIN != 0 {
				s.wake.Drain()
			}
			ready = polled[:len(polled)-1]
		}

		for _, ref := range s.timers.Expired(time.Now()) {
			s.promote(ref)
		}
		for _, ref := range s.fds.Ready(ready) {
			s.promote(ref)
		}

		if cmd, ok := s.config.TryDequeue(); ok {
			s.apply(cmd)
		}
		if ref, ok := s.exec.TryDequeue(); ok {
			s.execute(ref)
		}
	}
	return nil
}

// reset discards work left over from teardown.
func (s *Cooperative) reset() {
	s.config.Drain()
	s.exec.Drain()
	s.timers.Clear()
	s.fds.Clear()
	s.outstanding.Store(0)
}

func (s *Cooperative) enqueueExec(ref ioa.ActionRef) bool { return s.exec.Enqueue(ref) }

func (s *Cooperative) enqueueConfig(cmd command) bool { return s.config.Enqueue(cmd) }

func (s *Cooperative) addTimer(ref ioa.ActionRef, at time.Time) bool {
	return s.timers.Add(ref, at)
}

func (s *Cooperative) addFd(ref ioa.ActionRef, fd int, write bool) bool {
	return s.fds.Add(fd, ref, write)
}

func (s *Cooperative) removeFd(fd int) int { return s.fds.Remove(fd) }

func (s *Cooperative) forget(aid ioa.Aid) int {
	return s.timers.Forget(aid) + s.fds.Forget(aid)
}

func (s *Cooperative) quiesce() {}
