// Package idset allocates the small integer handles that name automata.
//
// Handles are issued in ascending order from a counter that only moves
// forward (wrapping at the limit). A handle that is retired with Replace is
// not handed out again until the counter comes back around, so a handle
// captured before a destroy fails Contains instead of silently naming some
// newer, unrelated automaton.
//
// A Set is not safe for concurrent use; the model serializes access.
package idset

import (
	"fmt"
	"math"
)

// DefaultLimit bounds the ids issued by New: ids fall in [0, DefaultLimit).
const DefaultLimit = math.MaxInt32

// Set tracks which ids are in use and where the next search starts.
type Set struct {
	used  map[int]struct{}
	next  int
	limit int
}

// New creates a Set issuing ids in [0, DefaultLimit).
func New() *Set {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit creates a Set issuing ids in [0, limit).
// Small limits are useful for exercising the wrap-around path in tests.
func NewWithLimit(limit int) *Set {
	if limit <= 0 {
		panic(fmt.Sprintf("idset: limit must be positive, got %d", limit))
	}
	return &Set{
		used:  make(map[int]struct{}),
		limit: limit,
	}
}

// Take returns the first id at or after the counter that is not in use,
// marks it used and advances the counter past it.
//
// Panics when every id below the limit is in use.
func (s *Set) Take() int {
	if len(s.used) >= s.limit {
		panic(fmt.Sprintf("idset: all %d ids in use", s.limit))
	}
	for {
		id := s.next
		s.next++
		if s.next == s.limit {
			s.next = 0
		}
		if _, taken := s.used[id]; !taken {
			s.used[id] = struct{}{}
			return id
		}
	}
}

// Replace retires id. Retiring an id that is not in use is a no-op.
func (s *Set) Replace(id int) {
	delete(s.used, id)
}

// Contains reports whether id is currently in use.
func (s *Set) Contains(id int) bool {
	_, ok := s.used[id]
	return ok
}

// Len returns the number of ids in use.
func (s *Set) Len() int {
	return len(s.used)
}

// Clear retires every id and rewinds the counter, returning the Set to its
// freshly constructed state.
func (s *Set) Clear() {
	s.used = make(map[int]struct{})
	s.next = 0
}
