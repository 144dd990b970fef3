package trace

import (
	"context"
	"sync"
)

// Recorder is an in-memory Journal and Reader.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append records e.
func (r *Recorder) Append(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// All returns a copy of every recorded entry.
func (r *Recorder) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Runs lists the recorded runs in the order they started.
func (r *Recorder) Runs(_ context.Context) ([]Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var runs []Run
	index := make(map[string]int)
	for _, e := range r.entries {
		i, ok := index[e.RunID]
		if !ok {
			i = len(runs)
			index[e.RunID] = i
			runs = append(runs, Run{ID: e.RunID})
		}
		if e.Op == OpRunStart {
			runs[i].Detail = e.Detail
		}
		runs[i].Entries++
	}
	return runs, nil
}

// Entries returns the entries of one run in sequence order.
func (r *Recorder) Entries(_ context.Context, runID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Reset discards every recorded entry.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Tee returns a Journal that appends every entry to each of js in turn,
// stopping at the first error.
func Tee(js ...Journal) Journal {
	return tee(js)
}

type tee []Journal

func (t tee) Append(ctx context.Context, e Entry) error {
	for _, j := range t {
		if err := j.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
