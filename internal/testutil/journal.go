package testutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ioa/internal/ioa"
	"github.com/roach88/ioa/internal/trace"
)

// JournalStore is a durable journal that can be read back.
type JournalStore interface {
	trace.Journal
	trace.Reader
}

// SampleRun returns the journal of a small run: a root creates a source and
// a sink, binds them, delivers two values, then the run stops. Entries carry
// runID and consecutive seq values starting at 1.
func SampleRun(runID string) []trace.Entry {
	out := ioa.Ref(1, "out")
	in := ioa.Ref(2, "in")
	delivered := []ioa.ActionRef{in}

	entries := []trace.Entry{
		trace.RunStart("cooperative"),
		trace.Create(ioa.NoAid, ioa.CreateResult{Code: ioa.AutomatonCreated, Aid: 0}),
		trace.Create(0, ioa.CreateResult{Code: ioa.AutomatonCreated, Aid: 1, Key: "src"}),
		trace.Create(0, ioa.CreateResult{Code: ioa.AutomatonCreated, Aid: 2, Key: "sink"}),
		trace.Bind(0, ioa.BindResult{Code: ioa.Bound, Key: "src.out->sink.in", Output: out, Input: in}),
		trace.Execute(out, true, delivered),
		trace.Execute(ioa.RefParam(2, "tap", 7), false, nil),
		trace.Execute(out, true, delivered),
		trace.Unbind(0, ioa.UnbindResult{Code: ioa.Unbound, Key: "src.out->sink.in"}),
		trace.Destroy(0, ioa.DestroyResult{Code: ioa.AutomatonDestroyed, Aid: 1, Key: "src"}),
		trace.RunStop(2, nil),
	}
	for i := range entries {
		entries[i].RunID = runID
		entries[i].Seq = int64(i + 1)
	}
	return entries
}

// AppendAll writes entries to j in order, failing the test on the first error.
func AppendAll(t *testing.T, j trace.Journal, entries []trace.Entry) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries {
		require.NoError(t, j.Append(ctx, e), "append %s/%d", e.RunID, e.Seq)
	}
}

// JournalContract checks the behavior every JournalStore shares: entries
// read back exactly as written and runs list in the order they started.
// open must return an empty store.
func JournalContract(t *testing.T, open func(t *testing.T) JournalStore) {
	t.Helper()

	t.Run("round trip", func(t *testing.T) {
		s := open(t)
		want := SampleRun("run-a")
		AppendAll(t, s, want)

		got, err := s.Entries(context.Background(), "run-a")
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("entries mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("runs in start order", func(t *testing.T) {
		s := open(t)
		AppendAll(t, s, SampleRun("run-b"))
		AppendAll(t, s, SampleRun("run-a"))

		runs, err := s.Runs(context.Background())
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, trace.Run{ID: "run-b", Detail: "cooperative", Entries: 11}, runs[0])
		assert.Equal(t, trace.Run{ID: "run-a", Detail: "cooperative", Entries: 11}, runs[1])
	})

	t.Run("runs are isolated", func(t *testing.T) {
		s := open(t)
		AppendAll(t, s, SampleRun("run-a"))
		AppendAll(t, s, SampleRun("run-b")[:3])

		got, err := s.Entries(context.Background(), "run-b")
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, e := range got {
			assert.Equal(t, "run-b", e.RunID)
		}
	})

	t.Run("empty", func(t *testing.T) {
		s := open(t)
		runs, err := s.Runs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
