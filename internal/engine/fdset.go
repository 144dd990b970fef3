package engine

import (
	"sort"

	"golang.org/x/sys/unix"

	"github.com/roach88/ioa/internal/ioa"
)

// fdSet holds the actions waiting for descriptor readiness: at most one
// reader and one writer per descriptor. It is not safe for concurrent use.
type fdSet struct {
	read  map[int]ioa.ActionRef
	write map[int]ioa.ActionRef
}

func newFdSet() *fdSet {
	return &fdSet{
		read:  make(map[int]ioa.ActionRef),
		write: make(map[int]ioa.ActionRef),
	}
}

// Add registers ref to run when fd is readable (or writable). The first
// registration for an fd and direction wins; Add reports whether ref was
// registered.
func (s *fdSet) Add(fd int, ref ioa.ActionRef, write bool) bool {
	m := s.read
	if write {
		m = s.write
	}
	if _, taken := m[fd]; taken {
		return false
	}
	m[fd] = ref
	return true
}

// Remove drops both registrations for fd and returns how many there were.
func (s *fdSet) Remove(fd int) int {
	n := 0
	if _, ok := s.read[fd]; ok {
		delete(s.read, fd)
		n++
	}
	if _, ok := s.write[fd]; ok {
		delete(s.write, fd)
		n++
	}
	return n
}

// Forget drops every registration made for aid's actions and returns how
// many there were. The descriptors stay open.
func (s *fdSet) Forget(aid ioa.Aid) int {
	n := 0
	for _, m := range []map[int]ioa.ActionRef{s.read, s.write} {
		for fd, ref := range m {
			if ref.Aid == aid {
				delete(m, fd)
				n++
			}
		}
	}
	return n
}

func (s *fdSet) Len() int { return len(s.read) + len(s.write) }

// PollFds returns one entry per registered descriptor, ascending by fd.
func (s *fdSet) PollFds() []unix.PollFd {
	events := make(map[int]int16, s.Len())
	for fd := range s.read {
		events[fd] |= unix.POLLIN
	}
	for fd := range s.write {
		events[fd] |= unix.POLLOUT
	}
	fds := make([]int, 0, len(events))
	for fd := range events {
		fds = append(fds, fd)
	}
	sort.Ints(fds)

	out := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		out[i] = unix.PollFd{Fd: int32(fd), Events: events[fd]}
	}
	return out
}

// Ready removes and returns the registrations satisfied by polled, readers
// before writers for each descriptor. Hang-ups and errors count as ready in
// both directions so the waiting action can observe them.
func (s *fdSet) Ready(polled []unix.PollFd) []ioa.ActionRef {
	const failed = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

	var out []ioa.ActionRef
	for _, p := range polled {
		fd := int(p.Fd)
		if p.Revents&(unix.POLLIN|failed) != 0 {
			if ref, ok := s.read[fd]; ok {
				delete(s.read, fd)
				out = append(out, ref)
			}
		}
		if p.Revents&(unix.POLLOUT|failed) != 0 {
			if ref, ok := s.write[fd]; ok {
				delete(s.write, fd)
				out = append(out, ref)
			}
		}
	}
	return out
}

// Clear drops every registration and returns how many there were.
func (s *fdSet) Clear() int {
	n := s.Len()
	clear(s.read)
	clear(s.write)
	return n
}
