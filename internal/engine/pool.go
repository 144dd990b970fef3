package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/model"
)

// Pool runs a network on a fixed set of worker goroutines.
//
// Every action of one automaton goes to the same worker (its aid modulo the
// worker count), so an automaton's actions run in the order they were
// queued while unrelated automata run in parallel. One goroutine applies
// structural commands and one waits for timers and descriptors, handing
// whatever becomes ready to the owning worker. Producers interrupt that wait
// through a self-pipe.
//
// When the outstanding count reaches zero every queue is closed, which
// releases every goroutine blocked on one.
type Pool struct {
	*core

	running atomic.Bool
	n       int

	// Per-run state, rebuilt by Run.
	workers  []*queue[ioa.ActionRef]
	config   *queue[command]
	wake     *wakeup
	stopping atomic.Bool
	stopOnce *sync.Once

	// iomu guards timers and fds.
	iomu   sync.Mutex
	timers *timerHeap
	fds    *fdSet
}

// NewPool creates a worker-pool scheduler. See WithWorkers.
func NewPool(opts ...Option) *Pool {
	o := buildOptions(opts)
	p := &Pool{
		n:        o.workers,
		timers:   newTimerHeap(),
		fds:      newFdSet(),
		stopOnce: &sync.Once{},
	}
	p.core = newCore(o, p)
	p.resetQueues()
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.n }

// Model exposes the registry.
func (p *Pool) Model() *model.Model { return p.model }

func (p *Pool) resetQueues() {
	p.workers = make([]*queue[ioa.ActionRef], p.n)
	for i := range p.workers {
		p.workers[i] = newDedupQueue[ioa.ActionRef]()
	}
	p.config = newQueue[command]()
	p.stopping.Store(false)
	p.stopOnce = &sync.Once{}
}

// Run creates the root automaton from gen and runs until no work remains or
// ctx is done. Every automaton is destroyed before Run returns.
func (p *Pool) Run(ctx context.Context, gen ioa.Generator) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	wake, err := newWakeup()
	if err != nil {
		return &RunError{Code: ErrCodeWakeup, Message: "cannot start pool", Err: err}
	}
	defer func() {
		wake.Close()
		p.wake = nil
	}()

	p.resetQueues()
	p.wake = wake

	start := time.Now()
	p.begin(ctx, fmt.Sprintf("pool workers=%d", p.n))

	g, gctx := errgroup.WithContext(ctx)
	stopWake := context.AfterFunc(gctx, wake.Signal)
	defer stopWake()

	for _, q := range p.workers {
		q := q
		g.Go(func() error { return p.work(gctx, q) })
	}
	g.Go(func() error { return p.serveConfig(gctx) })
	g.Go(func() error { return p.serveIO(gctx) })

	p.createRoot(gen)
	p.release()

	err = g.Wait()

	// Teardown may still notify survivors; their requests are refused by
	// the closed queues.
	p.quiesce()
	p.end(start, err)
	p.reset()
	return err
}

func (p *Pool) work(ctx context.Context, q *queue[ioa.ActionRef]) error {
	for {
		// A worker that always has work would never see ctx in Dequeue.
		if err := ctx.Err(); err != nil {
			return newCanceledError(p.RunID(), err)
		}
		ref, ok, err := q.Dequeue(ctx)
		if err != nil {
			return newCanceledError(p.RunID(), err)
		}
		if !ok {
			return nil
		}
		p.execute(ref)
	}
}

func (p *Pool) serveConfig(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return newCanceledError(p.RunID(), err)
		}
		cmd, ok, err := p.config.Dequeue(ctx)
		if err != nil {
			return newCanceledError(p.RunID(), err)
		}
		if !ok {
			return nil
		}
		p.apply(cmd)
	}
}

func (p *Pool) serveIO(ctx context.Context) error {
	for {
		if p.stopping.Load() || ctx.Err() != nil {
			return nil
		}

		p.iomu.Lock()
		timeout := p.timers.Timeout(time.Now())
		polled := append(p.fds.PollFds(), p.wake.PollFd())
		p.iomu.Unlock()

		if _, err := poll(polled, timeout); err != nil {
			return newPollError(p.RunID(), err)
		}
		if polled[len(polled)-1].Revents&unix.POLLIN != 0 {
			p.wake.Drain()
		}

		p.iomu.Lock()
		ready := p.timers.Expired(time.Now())
		ready = append(ready, p.fds.Ready(polled[:len(polled)-1])...)
		p.iomu.Unlock()

		for _, ref := range ready {
			p.promote(ref)
		}
	}
}

// reset discards work left over from teardown.
func (p *Pool) reset() {
	for _, q := range p.workers {
		q.Drain()
	}
	p.config.Drain()
	p.iomu.Lock()
	p.timers.Clear()
	p.fds.Clear()
	p.iomu.Unlock()
	p.outstanding.Store(0)
}

func (p *Pool) route(aid ioa.Aid) *queue[ioa.ActionRef] {
	i := int(aid) % len(p.workers)
	if i < 0 {
		i += len(p.workers)
	}
	return p.workers[i]
}

func (p *Pool) enqueueExec(ref ioa.ActionRef) bool { return p.route(ref.Aid).Enqueue(ref) }

func (p *Pool) enqueueConfig(cmd command) bool { return p.config.Enqueue(cmd) }

func (p *Pool) addTimer(ref ioa.ActionRef, at time.Time) bool {
	if p.stopping.Load() {
		return false
	}
	p.iomu.Lock()
	added := p.timers.Add(ref, at)
	p.iomu.Unlock()
	p.wake.Signal()
	return added
}

func (p *Pool) addFd(ref ioa.ActionRef, fd int, write bool) bool {
	if p.stopping.Load() {
		return false
	}
	p.iomu.Lock()
	added := p.fds.Add(fd, ref, write)
	p.iomu.Unlock()
	if added {
		p.wake.Signal()
	}
	return added
}

func (p *Pool) removeFd(fd int) int {
	p.iomu.Lock()
	n := p.fds.Remove(fd)
	p.iomu.Unlock()
	if n > 0 && !p.stopping.Load() {
		p.wake.Signal()
	}
	return n
}

func (p *Pool) forget(aid ioa.Aid) int {
	p.iomu.Lock()
	n := p.timers.Forget(aid) + p.fds.Forget(aid)
	p.iomu.Unlock()
	if n > 0 && !p.stopping.Load() {
		p.wake.Signal()
	}
	return n
}

// quiesce closes every queue and stops the io goroutine. It runs once per
// run.
func (p *Pool) quiesce() {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		for _, q := range p.workers {
			q.Close()
		}
		p.config.Close()
		if p.wake != nil {
			p.wake.Signal()
		}
	})
}
