package engine

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// poll waits up to timeout for readiness on fds; a negative timeout waits
// indefinitely. Interrupted waits are reported as zero ready descriptors.
func poll(fds []unix.PollFd, timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		// Round up so a timer is never polled for just before it is due.
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.Poll(fds, ms)
	if errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("poll %d descriptors: %w", len(fds), err)
	}
	return n, nil
}

// wakeup is a self-pipe: writing to it interrupts a poll that includes its
// read end.
type wakeup struct {
	r, w int
}

func newWakeup() (*wakeup, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("create wakeup pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("set wakeup pipe non-blocking: %w", err)
		}
	}
	return &wakeup{r: p[0], w: p[1]}, nil
}

// Signal makes the read end readable. A full pipe already is.
func (w *wakeup) Signal() {
	_, _ = unix.Write(w.w, []byte{1})
}

// Drain empties the pipe.
func (w *wakeup) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// PollFd returns the entry that watches the read end.
func (w *wakeup) PollFd() unix.PollFd {
	return unix.PollFd{Fd: int32(w.r), Events: unix.POLLIN}
}

func (w *wakeup) Close() error {
	return errors.Join(unix.Close(w.r), unix.Close(w.w))
}
