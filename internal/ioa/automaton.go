package ioa

import (
	"fmt"
	"log/slog"
	"time"
)

// Automaton is implemented by every automaton the runtime executes.
// Implementations must be pointer types: the runtime uses the instance's
// identity to refuse registering the same instance twice.
type Automaton interface {
	// Actions lists the automaton's actions. The runtime calls it once,
	// right after the generator returns.
	Actions() []Action

	// Schedule re-arms the automaton by scheduling whatever it wants to run
	// next. It runs after every effect and every structural notification.
	Schedule()
}

// Generator constructs an automaton. c belongs to the automaton being built:
// anything the constructor schedules or requests is attributed to c.Aid().
type Generator func(c *Context) Automaton

// System is the runtime side of a Context. Both schedulers implement it.
type System interface {
	Schedule(ref ActionRef)
	ScheduleAfter(ref ActionRef, d time.Duration)
	ScheduleReadReady(ref ActionRef, fd int)
	ScheduleWriteReady(ref ActionRef, fd int)
	Close(fd int)
	BindingCount(ref ActionRef) int

	Create(creator Aid, key Key, gen Generator) <-chan CreateResult
	Bind(binder Aid, output, input ActionRef, key Key) <-chan BindResult
	Unbind(binder Aid, key Key) <-chan UnbindResult
	Destroy(destroyer Aid, key Key) <-chan DestroyResult
	DestroyAid(destroyer, target Aid) <-chan DestroyResult
	SelfDestruct(aid Aid)
}

// Context is an automaton's handle on the runtime. It is created by the
// model before the generator runs and stays valid until the automaton is
// destroyed.
type Context struct {
	aid    Aid
	sys    System
	events *Mailbox
	logger *slog.Logger
}

// NewContext creates the context for automaton aid.
func NewContext(aid Aid, sys System, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		aid:    aid,
		sys:    sys,
		events: NewMailbox(),
		logger: logger.With("aid", int(aid)),
	}
}

// Aid returns the automaton's id.
func (c *Context) Aid() Aid { return c.aid }

// Events returns the automaton's notification mailbox.
func (c *Context) Events() *Mailbox { return c.events }

// Logger returns a logger tagged with the automaton's id.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Ref names one of the automaton's own unparameterized actions.
func (c *Context) Ref(name string) ActionRef {
	return Ref(c.aid, name)
}

// RefParam names one of the automaton's own parameterized actions.
func (c *Context) RefParam(name string, p int64) ActionRef {
	return RefParam(c.aid, name, p)
}

func (c *Context) own(ref ActionRef) {
	if ref.Aid != c.aid {
		panic(fmt.Sprintf("ioa: automaton %d cannot schedule %s, which belongs to %d", c.aid, ref, ref.Aid))
	}
}

// Schedule queues one of the automaton's own locally controlled actions.
// Scheduling an action that is already queued has no effect.
func (c *Context) Schedule(ref ActionRef) {
	c.own(ref)
	c.sys.Schedule(ref)
}

// ScheduleAfter queues ref once d has elapsed. If ref already has a pending
// timer, the earlier of the two deadlines wins.
func (c *Context) ScheduleAfter(ref ActionRef, d time.Duration) {
	c.own(ref)
	c.sys.ScheduleAfter(ref, d)
}

// ScheduleReadReady queues ref once fd is readable. One action waits per fd.
func (c *Context) ScheduleReadReady(ref ActionRef, fd int) {
	c.own(ref)
	c.sys.ScheduleReadReady(ref, fd)
}

// ScheduleWriteReady queues ref once fd is writable. One action waits per fd.
func (c *Context) ScheduleWriteReady(ref ActionRef, fd int) {
	c.own(ref)
	c.sys.ScheduleWriteReady(ref, fd)
}

// Close drops pending readiness registrations for fd and closes it.
func (c *Context) Close(fd int) {
	c.sys.Close(fd)
}

// BindingCount returns how many inputs are bound to an output, or 1 if an
// input is bound and 0 otherwise. It is meant for preconditions and must
// only be called from the automaton's own callbacks.
func (c *Context) BindingCount(ref ActionRef) int {
	return c.sys.BindingCount(ref)
}

// Create requests a child automaton under key.
func (c *Context) Create(key Key, gen Generator) <-chan CreateResult {
	return c.sys.Create(c.aid, key, gen)
}

// Bind requests an edge from output to input under key. The caller need
// not own either action.
func (c *Context) Bind(output, input ActionRef, key Key) <-chan BindResult {
	return c.sys.Bind(c.aid, output, input, key)
}

// Unbind requests removal of the edge this automaton made under key.
func (c *Context) Unbind(key Key) <-chan UnbindResult {
	return c.sys.Unbind(c.aid, key)
}

// Destroy requests destruction of the child created under key, along with
// all of its descendants.
func (c *Context) Destroy(key Key) <-chan DestroyResult {
	return c.sys.Destroy(c.aid, key)
}

// DestroyAid requests destruction of the child target.
func (c *Context) DestroyAid(target Aid) <-chan DestroyResult {
	return c.sys.DestroyAid(c.aid, target)
}

// SelfDestruct requests destruction of this automaton and its descendants.
func (c *Context) SelfDestruct() {
	c.sys.SelfDestruct(c.aid)
}
