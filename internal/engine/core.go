package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/model"
	"github.com/roach88/ioa/internal/trace"
)

// command is one queued structural request.
type command struct {
	op        trace.Op
	requester ioa.Aid
	run       func()
}

// dispatcher is the part of a scheduler that decides where runnables wait.
// Every method that accepts work reports whether it did; the core keeps
// the outstanding count from those answers.
type dispatcher interface {
	enqueueExec(ref ioa.ActionRef) bool
	enqueueConfig(cmd command) bool
	addTimer(ref ioa.ActionRef, at time.Time) bool
	addFd(ref ioa.ActionRef, fd int, write bool) bool
	removeFd(fd int) int
	// forget drops the timers and descriptor registrations of a destroyed
	// automaton and returns how many there were.
	forget(aid ioa.Aid) int
	// quiesce is called each time the outstanding count drops to zero.
	quiesce()
}

// core implements ioa.System on top of a model and a dispatcher. It is
// shared by both schedulers.
type core struct {
	model  *model.Model
	logger *slog.Logger
	d      dispatcher

	journal trace.Journal
	runIDs  trace.RunIDGenerator
	clock   *trace.Clock

	// outstanding counts queued commands, queued actions, pending timers
	// and descriptor registrations, plus one while a runnable executes.
	// The run is at its fixed point when it reaches zero.
	outstanding atomic.Int64

	jmu   sync.Mutex
	runID string
	jctx  context.Context
}

func newCore(o options, d dispatcher) *core {
	c := &core{
		logger:  o.logger,
		d:       d,
		journal: o.journal,
		runIDs:  o.runIDs,
		clock:   o.clock,
		jctx:    context.Background(),
	}
	c.model = model.New(c, o.logger)
	c.model.OnDestroy(c.forget)
	return c
}

func (c *core) hold() {
	c.outstanding.Add(1)
}

func (c *core) release() {
	n := c.outstanding.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("engine: outstanding runnable count went negative (%d)", n))
	}
	if n == 0 {
		c.d.quiesce()
	}
}

// begin starts a run. The outstanding count starts at one, held by the
// caller until the root automaton exists.
func (c *core) begin(ctx context.Context, detail string) {
	c.jmu.Lock()
	c.runID = c.runIDs.Generate()
	c.jctx = context.WithoutCancel(ctx)
	c.jmu.Unlock()

	c.clock.Reset()
	c.outstanding.Store(1)
	c.record(trace.RunStart(detail))
	c.logger.Info("run starting", "run_id", c.runID, "scheduler", detail)
}

// createRoot creates the root automaton and journals it.
func (c *core) createRoot(gen ioa.Generator) ioa.CreateResult {
	res := c.model.CreateRoot(gen)
	c.record(trace.Create(ioa.NoAid, res))
	return res
}

// end tears the network down and journals the outcome. It returns the
// number of automata destroyed.
func (c *core) end(start time.Time, err error) int {
	destroyed := c.model.DestroyAll()
	c.record(trace.RunStop(destroyed, err))

	attrs := []any{"run_id", c.runID, "destroyed", destroyed, "elapsed", time.Since(start)}
	if err != nil {
		c.logger.Warn("run stopped early", append(attrs, "error", err)...)
	} else {
		c.logger.Info("run reached fixed point", attrs...)
	}
	c.outstanding.Store(0)
	return destroyed
}

// RunID returns the id of the current or most recent run.
func (c *core) RunID() string {
	c.jmu.Lock()
	defer c.jmu.Unlock()
	return c.runID
}

// record stamps e and appends it to the journal. Journal failures are logged
// and the run continues.
func (c *core) record(e trace.Entry) {
	c.jmu.Lock()
	defer c.jmu.Unlock()

	e.RunID = c.runID
	e.Seq = c.clock.Next()
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(c.jctx, e); err != nil {
		c.logger.Warn("journal append failed", "run_id", c.runID, "seq", e.Seq, "op", e.Op, "error", err)
	}
}

// execute runs one queued action and releases its hold.
func (c *core) execute(ref ioa.ActionRef) {
	defer c.release()

	out, err := c.model.Execute(ref)
	if err != nil {
		if errors.Is(err, model.ErrNoSuchAutomaton) {
			c.logger.Debug("dropped action of destroyed automaton", "action", ref.String())
			return
		}
		c.logger.Error("action failed", "action", ref.String(), "error", err)
		return
	}
	c.record(trace.Execute(ref, out.Fired, out.Delivered))
	c.logger.Debug("executed", "action", ref.String(), "fired", out.Fired, "deliveries", len(out.Delivered))
}

// apply runs one queued command and releases its hold.
func (c *core) apply(cmd command) {
	defer c.release()
	cmd.run()
}

// promote moves a timer or descriptor registration into the exec queue.
// The new hold is taken before the old one is released.
func (c *core) promote(ref ioa.ActionRef) {
	c.Schedule(ref)
	c.release()
}

func (c *core) submit(op trace.Op, requester ioa.Aid, run func()) {
	c.hold()
	if !c.d.enqueueConfig(command{op: op, requester: requester, run: run}) {
		c.release()
		c.logger.Debug("structural request dropped after shutdown", "op", op, "aid", int(requester))
	}
}

// reply hands v to the requester and closes ch. If the requester is gone
// ch is closed without a value.
func reply[T any](c *core, to ioa.Aid, ch chan T, v T) {
	if !c.model.Deliver(to, func() { ch <- v; close(ch) }) {
		close(ch)
		c.logger.Debug("result dropped for destroyed requester", "aid", int(to))
	}
}

// Schedule queues ref unless it is already queued.
func (c *core) Schedule(ref ioa.ActionRef) {
	c.hold()
	if !c.d.enqueueExec(ref) {
		c.release()
	}
}

// ScheduleAfter queues ref once d has elapsed.
func (c *core) ScheduleAfter(ref ioa.ActionRef, d time.Duration) {
	c.hold()
	if !c.d.addTimer(ref, time.Now().Add(d)) {
		c.release()
	}
}

// ScheduleReadReady queues ref once fd is readable.
func (c *core) ScheduleReadReady(ref ioa.ActionRef, fd int) {
	c.hold()
	if !c.d.addFd(ref, fd, false) {
		c.release()
	}
}

// ScheduleWriteReady queues ref once fd is writable.
func (c *core) ScheduleWriteReady(ref ioa.ActionRef, fd int) {
	c.hold()
	if !c.d.addFd(ref, fd, true) {
		c.release()
	}
}

// Close drops fd's readiness registrations and closes it.
func (c *core) Close(fd int) {
	n := c.d.removeFd(fd)
	for i := 0; i < n; i++ {
		c.release()
	}
	if err := unix.Close(fd); err != nil {
		c.logger.Debug("close descriptor", "fd", fd, "error", err)
	}
}

// forget releases the holds of registrations nobody is left to consume.
// It runs inside a structural command, which keeps its own hold, so the
// count cannot reach zero here during a run.
func (c *core) forget(aid ioa.Aid) {
	n := c.d.forget(aid)
	for i := 0; i < n; i++ {
		c.release()
	}
	if n > 0 {
		c.logger.Debug("dropped pending registrations of destroyed automaton", "aid", int(aid), "count", n)
	}
}

// BindingCount is only valid from automaton callbacks.
func (c *core) BindingCount(ref ioa.ActionRef) int {
	return c.model.CallbackBindingCount(ref)
}

func (c *core) Create(creator ioa.Aid, key ioa.Key, gen ioa.Generator) <-chan ioa.CreateResult {
	ch := make(chan ioa.CreateResult, 1)
	c.submit(trace.OpCreate, creator, func() {
		res, err := c.model.Create(creator, key, gen)
		if err != nil {
			c.logger.Debug("create dropped", "error", err)
			close(ch)
			return
		}
		c.record(trace.Create(creator, res))
		reply(c, creator, ch, res)
	})
	return ch
}

func (c *core) Bind(binder ioa.Aid, output, input ioa.ActionRef, key ioa.Key) <-chan ioa.BindResult {
	ch := make(chan ioa.BindResult, 1)
	c.submit(trace.OpBind, binder, func() {
		res, err := c.model.Bind(binder, output, input, key)
		if err != nil {
			c.logger.Debug("bind dropped", "error", err)
			close(ch)
			return
		}
		c.record(trace.Bind(binder, res))
		reply(c, binder, ch, res)
	})
	return ch
}

func (c *core) Unbind(binder ioa.Aid, key ioa.Key) <-chan ioa.UnbindResult {
	ch := make(chan ioa.UnbindResult, 1)
	c.submit(trace.OpUnbind, binder, func() {
		res, err := c.model.Unbind(binder, key)
		if err != nil {
			c.logger.Debug("unbind dropped", "error", err)
			close(ch)
			return
		}
		c.record(trace.Unbind(binder, res))
		reply(c, binder, ch, res)
	})
	return ch
}

func (c *core) Destroy(destroyer ioa.Aid, key ioa.Key) <-chan ioa.DestroyResult {
	ch := make(chan ioa.DestroyResult, 1)
	c.submit(trace.OpDestroy, destroyer, func() {
		res, err := c.model.Destroy(destroyer, key)
		if err != nil {
			c.logger.Debug("destroy dropped", "error", err)
			close(ch)
			return
		}
		c.record(trace.Destroy(destroyer, res))
		reply(c, destroyer, ch, res)
	})
	return ch
}

func (c *core) DestroyAid(destroyer, target ioa.Aid) <-chan ioa.DestroyResult {
	ch := make(chan ioa.DestroyResult, 1)
	c.submit(trace.OpDestroy, destroyer, func() {
		res, err := c.model.DestroyAid(destroyer, target)
		if err != nil {
			c.logger.Debug("destroy dropped", "error", err)
			close(ch)
			return
		}
		c.record(trace.Destroy(destroyer, res))
		reply(c, destroyer, ch, res)
	})
	return ch
}

func (c *core) SelfDestruct(aid ioa.Aid) {
	c.submit(trace.OpDestroy, aid, func() {
		res := c.model.DestroyTarget(aid)
		c.record(trace.Destroy(aid, res))
	})
}

var _ ioa.System = (*core)(nil)
