package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/trace"
)

func TestRun_CounterReachesFixedPoint(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			rec := trace.NewRecorder()
			s := mk(WithJournal(rec))

			var c *counter
			err := runWithin(t, s, func(ctx *ioa.Context) ioa.Automaton {
				c = &counter{ctx: ctx, limit: 5}
				return c
			})
			require.NoError(t, err)

			assert.Equal(t, 5, c.n)
			assert.Equal(t, 5, fired(rec.All(), 0, "step"))
			assert.Equal(t, 0, s.Model().Len())

			entries := rec.All()
			require.NotEmpty(t, entries)
			assert.Equal(t, trace.OpRunStart, entries[0].Op)
			last := entries[len(entries)-1]
			assert.Equal(t, trace.OpRunStop, last.Op)
			assert.Equal(t, "ok", last.Result)
			assert.Equal(t, "destroyed=1", last.Detail)
		})
	}
}

func TestRun_DedupExecutesOnce(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			var b *burst
			err := runWithin(t, s, func(ctx *ioa.Context) ioa.Automaton {
				b = &burst{ctx: ctx}
				return b
			})
			require.NoError(t, err)
			assert.Equal(t, 1, b.fired)
		})
	}
}

func TestRun_Pipeline(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			rec := trace.NewRecorder()
			s := mk(WithJournal(rec))

			gen, sink, comp := pipeline(5)
			require.NoError(t, runWithin(t, s, gen))

			assert.Equal(t, []ioa.Value{1, 2, 3, 4, 5}, sink().Received())

			results := comp().BindResults()
			require.Len(t, results, 2)
			for _, r := range results {
				assert.Equal(t, ioa.Bound, r.Code)
			}

			stats := trace.Summarize(rec.All())
			assert.Equal(t, 4, stats.Created)
			assert.Equal(t, 2, stats.Bound)
			assert.Equal(t, 10, stats.Fired)
			assert.Equal(t, 10, stats.Deliveries)
		})
	}
}

func TestCooperative_RerunIsIdentical(t *testing.T) {
	rec := trace.NewRecorder()
	s := NewCooperative(WithJournal(rec), WithRunIDs(trace.NewFixedGenerator("run-1", "run-2")))

	gen, _, _ := pipeline(3)
	require.NoError(t, runWithin(t, s, gen))
	assert.Equal(t, "run-1", s.RunID())

	gen, _, _ = pipeline(3)
	require.NoError(t, runWithin(t, s, gen))
	assert.Equal(t, "run-2", s.RunID())

	ctx := context.Background()
	first, err := rec.Entries(ctx, "run-1")
	require.NoError(t, err)
	second, err := rec.Entries(ctx, "run-2")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(trace.Entry{}, "RunID")); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, int64(1), first[0].Seq)
}

// ticking wraps a ticker with no consumer.
type ticking struct {
	ctx    *ioa.Context
	period time.Duration
	count  int
	ticks  int
	armed  bool
}

func (k *ticking) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.InternalAction("tick", func() bool { return k.ticks < k.count }, func() {
			k.ticks++
			k.armed = false
		}),
	}
}

func (k *ticking) Schedule() {
	if k.ticks < k.count && !k.armed {
		k.armed = true
		k.ctx.ScheduleAfter(k.ctx.Ref("tick"), k.period)
	}
}

func TestRun_Timers(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			var k *ticking
			start := time.Now()
			err := runWithin(t, s, func(ctx *ioa.Context) ioa.Automaton {
				k = &ticking{ctx: ctx, period: 10 * time.Millisecond, count: 3}
				return k
			})
			require.NoError(t, err)
			assert.Equal(t, 3, k.ticks)
			assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
		})
	}
}

// piper writes to one end of a pipe once it is writable and reads the
// other end once it is readable.
type piper struct {
	ctx  *ioa.Context
	r, w int

	started bool
	wrote   bool
	got     string
}

func (p *piper) Actions() []ioa.Action {
	return []ioa.Action{
		ioa.InternalAction("write", func() bool { return !p.wrote }, func() {
			_, _ = unix.Write(p.w, []byte("hi"))
			p.wrote = true
			p.ctx.Close(p.w)
		}),
		ioa.InternalAction("read", func() bool { return p.got == "" }, func() {
			buf := make([]byte, 16)
			n, _ := unix.Read(p.r, buf)
			if n > 0 {
				p.got = string(buf[:n])
			}
			p.ctx.Close(p.r)
		}),
	}
}

func (p *piper) Schedule() {
	if p.started {
		return
	}
	p.started = true
	p.ctx.ScheduleReadReady(p.ctx.Ref("read"), p.r)
	p.ctx.ScheduleWriteReady(p.ctx.Ref("write"), p.w)
}

func TestRun_DescriptorReadiness(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			var fds [2]int
			require.NoError(t, unix.Pipe(fds[:]))

			s := mk()
			var p *piper
			err := runWithin(t, s, func(ctx *ioa.Context) ioa.Automaton {
				p = &piper{ctx: ctx, r: fds[0], w: fds[1]}
				return p
			})
			require.NoError(t, err)
			assert.True(t, p.wrote)
			assert.Equal(t, "hi", p.got)
		})
	}
}

func TestRun_Cancellation(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			rec := trace.NewRecorder()
			s := mk(WithJournal(rec))

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			err := s.Run(ctx, func(c *ioa.Context) ioa.Automaton { return &spinner{ctx: c} })
			require.Error(t, err)
			assert.True(t, IsCanceled(err))
			assert.True(t, errors.Is(err, context.DeadlineExceeded))
			assert.Equal(t, 0, s.Model().Len())

			entries := rec.All()
			assert.Equal(t, "error", entries[len(entries)-1].Result)

			// The scheduler is reusable after a canceled run.
			var c *counter
			require.NoError(t, runWithin(t, s, func(ctx *ioa.Context) ioa.Automaton {
				c = &counter{ctx: ctx, limit: 2}
				return c
			}))
			assert.Equal(t, 2, c.n)
		})
	}
}

// signaling spins like spinner and closes started on its first step.
type signaling struct {
	spinner
	started chan struct{}
	once    bool
}

func (s *signaling) Actions() []ioa.Action {
	return []ioa.Action{ioa.InternalAction("spin", func() bool { return true }, func() {
		if !s.once {
			s.once = true
			close(s.started)
		}
	})}
}

func TestRun_AlreadyRunning(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			started := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				done <- s.Run(ctx, func(c *ioa.Context) ioa.Automaton {
					return &signaling{spinner: spinner{ctx: c}, started: started}
				})
			}()

			select {
			case <-started:
			case <-time.After(5 * time.Second):
				t.Fatal("run never started")
			}

			err := s.Run(context.Background(), func(c *ioa.Context) ioa.Automaton { return &counter{ctx: c} })
			assert.ErrorIs(t, err, ErrAlreadyRunning)

			cancel()
			select {
			case err := <-done:
				assert.True(t, IsCanceled(err))
			case <-time.After(5 * time.Second):
				t.Fatal("run did not stop after cancel")
			}
		})
	}
}

// fanout creates n counters as children and waits for all of them.
type fanout struct {
	ctx      *ioa.Context
	n, limit int
	started  bool
	children []*counter
	results  []<-chan ioa.CreateResult
	created  int
}

func (f *fanout) Actions() []ioa.Action { return nil }

func (f *fanout) Schedule() {
	if !f.started {
		f.started = true
		f.children = make([]*counter, f.n)
		for i := 0; i < f.n; i++ {
			i := i
			f.results = append(f.results, f.ctx.Create(ioa.Key(fmt.Sprintf("c%d", i)), func(c *ioa.Context) ioa.Automaton {
				f.children[i] = &counter{ctx: c, limit: f.limit}
				return f.children[i]
			}))
		}
	}
	for i, ch := range f.results {
		if ch == nil {
			continue
		}
		select {
		case res, ok := <-ch:
			if ok && res.Code == ioa.AutomatonCreated {
				f.created++
			}
			f.results[i] = nil
		default:
		}
	}
}

func TestPool_ManyAutomata(t *testing.T) {
	rec := trace.NewRecorder()
	s := NewPool(WithWorkers(4), WithJournal(rec))
	assert.Equal(t, 4, s.Workers())

	var f *fanout
	err := runWithin(t, s, func(c *ioa.Context) ioa.Automaton {
		f = &fanout{ctx: c, n: 20, limit: 50}
		return f
	})
	require.NoError(t, err)

	assert.Equal(t, 20, f.created)
	for i, c := range f.children {
		assert.Equal(t, 50, c.n, "child %d", i)
	}
	assert.Equal(t, 20*50, trace.Summarize(rec.All()).Fired)
}

// doomed destroys itself after one step.
type doomed struct {
	ctx  *ioa.Context
	done bool
}

func (d *doomed) Actions() []ioa.Action {
	return []ioa.Action{ioa.InternalAction("step", func() bool { return !d.done }, func() {
		d.done = true
		d.ctx.SelfDestruct()
	})}
}

func (d *doomed) Schedule() {
	if !d.done {
		d.ctx.Schedule(d.ctx.Ref("step"))
	}
}

// host creates one doomed child and records what its mailbox says.
type host struct {
	ctx     *ioa.Context
	started bool
	events  []ioa.Event
}

func (h *host) Actions() []ioa.Action { return nil }

func (h *host) Schedule() {
	if !h.started {
		h.started = true
		h.ctx.Create("doomed", func(c *ioa.Context) ioa.Automaton { return &doomed{ctx: c} })
	}
	h.events = append(h.events, h.ctx.Events().Drain()...)
}

func TestRun_SelfDestruct(t *testing.T) {
	for name, mk := range schedulers(t) {
		t.Run(name, func(t *testing.T) {
			rec := trace.NewRecorder()
			s := mk(WithJournal(rec))

			var h *host
			require.NoError(t, runWithin(t, s, func(c *ioa.Context) ioa.Automaton {
				h = &host{ctx: c}
				return h
			}))

			require.NotEmpty(t, h.events)
			assert.Equal(t, ioa.Event{Kind: ioa.EventChildDestroyed, Key: "doomed", Aid: 1}, h.events[0])

			var destroys []trace.Entry
			for _, e := range rec.All() {
				if e.Op == trace.OpDestroy {
					destroys = append(destroys, e)
				}
			}
			require.Len(t, destroys, 1)
			assert.Equal(t, 1, destroys[0].Aid)
			assert.Equal(t, 1, destroys[0].Target)
			assert.Equal(t, ioa.AutomatonDestroyed.String(), destroys[0].Result)
		})
	}
}

func TestNew(t *testing.T) {
	s, err := New(KindCooperative)
	require.NoError(t, err)
	assert.IsType(t, &Cooperative{}, s)

	s, err = New(KindPool, WithWorkers(2))
	require.NoError(t, err)
	require.IsType(t, &Pool{}, s)
	assert.Equal(t, 2, s.(*Pool).Workers())

	_, err = New("fifo")
	assert.Error(t, err)
}

// lurker waits on a descriptor nobody writes to, or on a distant timer when
// fd is negative.
type lurker struct {
	ctx   *ioa.Context
	fd    int
	armed bool
}

func (l *lurker) Actions() []ioa.Action {
	return []ioa.Action{ioa.InternalAction("wake", func() bool { return true }, func() {})}
}

func (l *lurker) Schedule() {
	if l.armed {
		return
	}
	l.armed = true
	if l.fd >= 0 {
		l.ctx.ScheduleReadReady(l.ctx.Ref("wake"), l.fd)
	} else {
		l.ctx.ScheduleAfter(l.ctx.Ref("wake"), time.Hour)
	}
}

// reaper creates one child and destroys it as soon as it exists.
type reaper struct {
	ctx       *ioa.Context
	child     ioa.Generator
	started   bool
	created   <-chan ioa.CreateResult
	destroyed <-chan ioa.DestroyResult
	result    ioa.DestroyResult
}

func (r *reaper) Actions() []ioa.Action { return nil }

func (r *reaper) Schedule() {
	if !r.started {
		r.started = true
		r.created = r.ctx.Create("r", r.child)
	}
	select {
	case res, ok := <-r.created:
		r.created = nil
		if ok && res.Code == ioa.AutomatonCreated {
			r.destroyed = r.ctx.Destroy("r")
		}
	default:
	}
	select {
	case res, ok := <-r.destroyed:
		r.destroyed = nil
		if ok {
			r.result = res
		}
	default:
	}
	r.ctx.Events().Drain()
}

func TestRun_DestroyDropsPendingRegistrations(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	waits := map[string]int{"descriptor": fds[0], "timer": -1}
	for name, mk := range schedulers(t) {
		for wait, fd := range waits {
			t.Run(name+"/"+wait, func(t *testing.T) {
				s := mk()
				var r *reaper
				start := time.Now()
				err := runWithin(t, s, func(c *ioa.Context) ioa.Automaton {
					r = &reaper{ctx: c, child: func(c *ioa.Context) ioa.Automaton {
						return &lurker{ctx: c, fd: fd}
					}}
					return r
				})
				require.NoError(t, err)
				assert.Equal(t, ioa.AutomatonDestroyed, r.result.Code)
				assert.Less(t, time.Since(start), 5*time.Second)
				assert.Equal(t, 0, s.Model().Len())
			})
		}
	}
}

func TestCooperative_CancelWhileWaitingOnDescriptor(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	s := NewCooperative()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(c *ioa.Context) ioa.Automaton { return &lurker{ctx: c, fd: fds[0]} })
	}()

	select {
	case err := <-done:
		assert.True(t, IsCanceled(err))
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestPool_BindingCountDuringRun(t *testing.T) {
	s := NewPool(WithWorkers(4))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Model().BindingCount(ioa.Ref(2, "out"))
			}
		}
	}()

	for i := 0; i < 20; i++ {
		gen, sink, _ := pipeline(10)
		require.NoError(t, runWithin(t, s, gen))
		assert.Len(t, sink().Received(), 10)
	}
	close(stop)
	wg.Wait()
}
