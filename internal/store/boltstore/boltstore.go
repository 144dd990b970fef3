// Package boltstore keeps run journals in a bbolt file.
//
// Layout:
//
//	runs/<ord>        -> run id, ord is a big-endian start counter
//	meta/<run id>     -> JSON runMeta
//	entries/<run id>/ -> nested bucket, big-endian seq -> JSON trace.Entry
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/ioa/internal/trace"
)

var (
	bucketRuns    = []byte("runs")
	bucketMeta    = []byte("meta")
	bucketEntries = []byte("entries")
)

// ErrRunNotFound is returned when a run id has no journal.
var ErrRunNotFound = errors.New("run not found")

var (
	_ trace.Journal = (*Store)(nil)
	_ trace.Reader  = (*Store)(nil)
)

type runMeta struct {
	Ord    uint64 `json:"ord"`
	Detail string `json:"detail,omitempty"`
}

// Store is a bbolt-backed journal.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the journal file at path. It waits up to a second
// for another process to release the file lock.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt journal: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRuns, bucketMeta, bucketEntries} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one entry. An entry whose (run id, seq) already exists is
// left as it is.
func (s *Store) Append(_ context.Context, e trace.Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("write entry: empty run id")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		id := []byte(e.RunID)
		if err := touchRun(tx, id, e); err != nil {
			return err
		}
		b, err := tx.Bucket(bucketEntries).CreateBucketIfNotExists(id)
		if err != nil {
			return fmt.Errorf("write entry %s: %w", e.RunID, err)
		}
		key := seqKey(e.Seq)
		if b.Get(key) != nil {
			return nil
		}
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("write entry %s/%d: %w", e.RunID, e.Seq, err)
		}
		return nil
	})
}

func touchRun(tx *bolt.Tx, id []byte, e trace.Entry) error {
	metas := tx.Bucket(bucketMeta)

	var meta runMeta
	if raw := metas.Get(id); raw != nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("read run %s: %w", id, err)
		}
		if e.Op != trace.OpRunStart {
			return nil
		}
	} else {
		runs := tx.Bucket(bucketRuns)
		ord, err := runs.NextSequence()
		if err != nil {
			return fmt.Errorf("write run %s: %w", id, err)
		}
		if err := runs.Put(ordKey(ord), id); err != nil {
			return fmt.Errorf("write run %s: %w", id, err)
		}
		meta.Ord = ord
	}
	if e.Op == trace.OpRunStart {
		meta.Detail = e.Detail
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("write run %s: %w", id, err)
	}
	if err := metas.Put(id, raw); err != nil {
		return fmt.Errorf("write run %s: %w", id, err)
	}
	return nil
}

// Runs lists journaled runs in the order they were first written.
func (s *Store) Runs(_ context.Context) ([]trace.Run, error) {
	var runs []trace.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		metas := tx.Bucket(bucketMeta)
		entries := tx.Bucket(bucketEntries)

		c := tx.Bucket(bucketRuns).Cursor()
		for _, id := c.First(); id != nil; _, id = c.Next() {
			var meta runMeta
			if err := json.Unmarshal(metas.Get(id), &meta); err != nil {
				return fmt.Errorf("read run %s: %w", id, err)
			}
			run := trace.Run{ID: string(id), Detail: meta.Detail}
			if b := entries.Bucket(id); b != nil {
				run.Entries = count(b)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// LatestRun returns the id of the most recently started run.
func (s *Store) LatestRun(_ context.Context) (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(bucketRuns).Cursor().Last()
		if v == nil {
			return ErrRunNotFound
		}
		id = string(v)
		return nil
	})
	return id, err
}

// Entries returns a run's journal in seq order.
func (s *Store) Entries(_ context.Context, runID string) ([]trace.Entry, error) {
	var out []trace.Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		id := []byte(runID)
		if tx.Bucket(bucketMeta).Get(id) == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		b := tx.Bucket(bucketEntries).Bucket(id)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e trace.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("read entry %s/%d: %w", runID, binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func count(b *bolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func seqKey(seq int64) []byte {
	return ordKey(uint64(seq))
}

func ordKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}
