package ioa

import (
	"fmt"
	"sync"
)

// EventKind classifies a notification delivered to an automaton's Mailbox.
type EventKind int

const (
	// EventBound: an edge involving one of this automaton's actions was attached.
	EventBound EventKind = iota + 1
	// EventUnbound: an edge involving this automaton (as output, input or
	// binder) was detached, by unbind or because a participant was destroyed.
	EventUnbound
	// EventChildDestroyed: an automaton this one created was destroyed.
	EventChildDestroyed
)

func (k EventKind) String() string {
	switch k {
	case EventBound:
		return "bound"
	case EventUnbound:
		return "unbound"
	case EventChildDestroyed:
		return "child_destroyed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a structural notification.
//
// For EventBound and EventUnbound, Output, Input, Binder and Key describe
// the edge. For EventChildDestroyed, Key is the create key and Aid the
// destroyed child.
type Event struct {
	Kind   EventKind
	Key    Key
	Aid    Aid
	Binder Aid
	Output ActionRef
	Input  ActionRef
}

// Mailbox is an unbounded FIFO of events for one automaton.
// It is safe for concurrent use.
type Mailbox struct {
	mu     sync.Mutex
	events []Event
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Push appends an event.
func (m *Mailbox) Push(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Pop removes and returns the oldest event.
func (m *Mailbox) Pop() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) == 0 {
		return Event{}, false
	}
	e := m.events[0]
	m.events[0] = Event{}
	if len(m.events) == 1 {
		m.events = m.events[:0]
	} else {
		m.events = m.events[1:]
	}
	return e, true
}

// Len returns the number of queued events. Reading Len does not change the
// mailbox, so preconditions may use it.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Drain removes and returns all queued events, oldest first.
func (m *Mailbox) Drain() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	m.events = m.events[:0]
	return out
}
