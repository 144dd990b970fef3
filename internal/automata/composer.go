package automata

import (
	"fmt"

	"github.com/roach88/ioa/internal/ioa"
)

// Port names one action of one plan member.
type Port struct {
	Automaton string
	Action    string
}

func (p Port) String() string { return p.Automaton + "." + p.Action }

// Member is one automaton a Composer creates, keyed by Name.
type Member struct {
	Name string
	Gen  ioa.Generator
}

// Link is one edge a Composer binds, keyed by "output->input".
type Link struct {
	Output Port
	Input  Port
}

// Key returns the bind key used for l.
func (l Link) Key() ioa.Key {
	return ioa.Key(l.Output.String() + "->" + l.Input.String())
}

// Plan is a network to build.
type Plan struct {
	Members []Member
	Links   []Link
}

// Composer builds a Plan: it creates every member as its own child, and
// once every create has answered it binds every link whose endpoints were
// created. It has no actions of its own.
type Composer struct {
	ctx  *ioa.Context
	plan Plan

	started  bool
	creates  []<-chan ioa.CreateResult
	aids     map[string]ioa.Aid
	binding  bool
	binds    []<-chan ioa.BindResult
	outcomes []ioa.BindResult
}

// NewComposer returns a generator for a Composer of plan.
func NewComposer(plan Plan) ioa.Generator {
	return func(c *ioa.Context) ioa.Automaton {
		return &Composer{ctx: c, plan: plan, aids: make(map[string]ioa.Aid)}
	}
}

// Actions is empty: a composer only issues structural requests.
func (c *Composer) Actions() []ioa.Action { return nil }

// Schedule creates the members, then binds the links once every member
// exists, collecting results as they arrive.
func (c *Composer) Schedule() {
	if !c.started {
		c.started = true
		c.creates = make([]<-chan ioa.CreateResult, len(c.plan.Members))
		for i, m := range c.plan.Members {
			c.creates[i] = c.ctx.Create(ioa.Key(m.Name), m.Gen)
		}
	}

	for _, ev := range c.ctx.Events().Drain() {
		c.ctx.Logger().Debug("composer event", "kind", ev.Kind.String(), "key", string(ev.Key))
	}

	if !c.collectCreates() {
		return
	}
	if !c.binding {
		c.binding = true
		c.bindAll()
	}
	c.collectBinds()
}

// collectCreates reads whichever create results have arrived and reports
// whether all of them have.
func (c *Composer) collectCreates() bool {
	done := true
	for i, ch := range c.creates {
		if ch == nil {
			continue
		}
		select {
		case res, ok := <-ch:
			c.creates[i] = nil
			name := c.plan.Members[i].Name
			switch {
			case !ok:
				c.ctx.Logger().Warn("create abandoned", "member", name)
			case res.Code != ioa.AutomatonCreated:
				c.ctx.Logger().Warn("create failed", "member", name, "result", res.Code.String())
			default:
				c.aids[name] = res.Aid
				c.ctx.Logger().Debug("created", "member", name, "child", int(res.Aid))
			}
		default:
			done = false
		}
	}
	return done
}

func (c *Composer) bindAll() {
	for _, l := range c.plan.Links {
		out, okOut := c.aids[l.Output.Automaton]
		in, okIn := c.aids[l.Input.Automaton]
		if !okOut || !okIn {
			c.ctx.Logger().Warn("link skipped: endpoint was not created", "link", string(l.Key()))
			continue
		}
		c.binds = append(c.binds, c.ctx.Bind(ioa.Ref(out, l.Output.Action), ioa.Ref(in, l.Input.Action), l.Key()))
	}
}

func (c *Composer) collectBinds() {
	for i, ch := range c.binds {
		if ch == nil {
			continue
		}
		select {
		case res, ok := <-ch:
			c.binds[i] = nil
			if !ok {
				continue
			}
			c.outcomes = append(c.outcomes, res)
			if res.Code != ioa.Bound {
				c.ctx.Logger().Warn("bind failed", "key", string(res.Key), "result", res.Code.String())
			}
		default:
		}
	}
}

// Created returns the aid of each member that was created.
func (c *Composer) Created() map[string]ioa.Aid {
	out := make(map[string]ioa.Aid, len(c.aids))
	for k, v := range c.aids {
		out[k] = v
	}
	return out
}

// BindResults returns the bind results received so far, in arrival order.
func (c *Composer) BindResults() []ioa.BindResult {
	return append([]ioa.BindResult(nil), c.outcomes...)
}

func (c *Composer) String() string {
	return fmt.Sprintf("composer(%d members, %d links)", len(c.plan.Members), len(c.plan.Links))
}
