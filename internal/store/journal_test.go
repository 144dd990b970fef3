package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/ioa/internal/testutil"
	"github.com/roach88/ioa/internal/trace"
)

func TestStore_JournalContract(t *testing.T) {
	testutil.JournalContract(t, func(t *testing.T) testutil.JournalStore {
		return createTestStore(t)
	})
}

func TestAppend_DuplicateIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	entries := testutil.SampleRun("run-1")
	testutil.AppendAll(t, s, entries)

	dup := entries[5]
	dup.Result = trace.ResultSkipped
	if err := s.Append(ctx, dup); err != nil {
		t.Fatalf("Append() duplicate failed: %v", err)
	}

	got, err := s.Entries(ctx, "run-1")
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	if got[5].Result != trace.ResultFired {
		t.Errorf("duplicate overwrote entry: result = %q", got[5].Result)
	}
}

func TestAppend_EmptyRunID(t *testing.T) {
	s := createTestStore(t)
	err := s.Append(context.Background(), trace.RunStart("x"))
	if err == nil {
		t.Fatal("Append() with empty run id succeeded")
	}
}

func TestAppend_RunWithoutStart(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	testutil.AppendAll(t, s, testutil.SampleRun("late")[3:])

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "late" || runs[0].Detail != "" || runs[0].Entries != 8 {
		t.Errorf("Runs() = %+v", runs)
	}
}

func TestEntries_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Entries(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Entries() error = %v, want ErrRunNotFound", err)
	}
}

func TestEntries_Param(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	testutil.AppendAll(t, s, testutil.SampleRun("run-1"))

	got, err := s.Entries(ctx, "run-1")
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	tap := got[6]
	if tap.Param == nil || *tap.Param != 7 {
		t.Errorf("param = %v, want 7", tap.Param)
	}
	if got[5].Param != nil {
		t.Errorf("unparameterized entry has param %d", *got[5].Param)
	}
	if len(got[5].Delivered) != 1 || got[5].Delivered[0] != (trace.Endpoint{Aid: 2, Action: "in"}) {
		t.Errorf("delivered = %+v", got[5].Delivered)
	}
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("LatestRun() on empty store error = %v", err)
	}

	testutil.AppendAll(t, s, testutil.SampleRun("first"))
	testutil.AppendAll(t, s, testutil.SampleRun("second"))

	id, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if id != "second" {
		t.Errorf("LatestRun() = %q, want second", id)
	}
}

func TestReopen_KeepsJournal(t *testing.T) {
	path := t.TempDir() + "/journal.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	testutil.AppendAll(t, s, testutil.SampleRun("run-1"))
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Entries(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(got) != 11 {
		t.Errorf("got %d entries after reopen, want 11", len(got))
	}
}
