package engine

import (
	"container/heap"
	"time"

	"github.com/roach88/ioa/internal/ioa"
)

type timer struct {
	at    time.Time
	seq   uint64
	ref   ioa.ActionRef
	index int
}

// timerHeap is a min-heap of pending timers with at most one timer per
// action. It is not safe for concurrent use.
type timerHeap struct {
	items []*timer
	byRef map[ioa.ActionRef]*timer
	// seq breaks ties between equal deadlines in registration order.
	seq uint64
}

func newTimerHeap() *timerHeap {
	return &timerHeap{byRef: make(map[ioa.ActionRef]*timer)}
}

// Add registers a timer for ref at at. If ref already has a timer the
// earlier deadline is kept. It reports whether a new timer was registered.
func (h *timerHeap) Add(ref ioa.ActionRef, at time.Time) bool {
	if t, ok := h.byRef[ref]; ok {
		if at.Before(t.at) {
			t.at = at
			heap.Fix((*timerSlice)(h), t.index)
		}
		return false
	}
	h.seq++
	t := &timer{at: at, seq: h.seq, ref: ref}
	h.byRef[ref] = t
	heap.Push((*timerSlice)(h), t)
	return true
}

// Next returns the earliest deadline.
func (h *timerHeap) Next() (time.Time, bool) {
	if len(h.items) == 0 {
		return time.Time{}, false
	}
	return h.items[0].at, true
}

// Expired removes and returns, earliest first, every timer due at now.
func (h *timerHeap) Expired(now time.Time) []ioa.ActionRef {
	var out []ioa.ActionRef
	for len(h.items) > 0 && !h.items[0].at.After(now) {
		t := heap.Pop((*timerSlice)(h)).(*timer)
		delete(h.byRef, t.ref)
		out = append(out, t.ref)
	}
	return out
}

// Timeout returns how long to wait for the next deadline, 0 if it has
// passed, or -1 if there are no timers.
func (h *timerHeap) Timeout(now time.Time) time.Duration {
	at, ok := h.Next()
	if !ok {
		return -1
	}
	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (h *timerHeap) Len() int { return len(h.items) }

// Forget drops every timer of aid and returns how many there were.
func (h *timerHeap) Forget(aid ioa.Aid) int {
	var doomed []*timer
	for _, t := range h.items {
		if t.ref.Aid == aid {
			doomed = append(doomed, t)
		}
	}
	for _, t := range doomed {
		heap.Remove((*timerSlice)(h), t.index)
		delete(h.byRef, t.ref)
	}
	return len(doomed)
}

// Clear drops every timer and returns how many there were.
func (h *timerHeap) Clear() int {
	n := len(h.items)
	h.items = nil
	clear(h.byRef)
	return n
}

// timerSlice adapts timerHeap to container/heap.
type timerSlice timerHeap

func (s *timerSlice) Len() int { return len(s.items) }

func (s *timerSlice) Less(i, j int) bool {
	a, b := s.items[i], s.items[j]
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}

func (s *timerSlice) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.items[i].index = i
	s.items[j].index = j
}

func (s *timerSlice) Push(x any) {
	t := x.(*timer)
	t.index = len(s.items)
	s.items = append(s.items, t)
}

func (s *timerSlice) Pop() any {
	old := s.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	s.items = old[:n-1]
	return t
}
