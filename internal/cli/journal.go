package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/ioa/internal/config"
	"github.com/roach88/ioa/internal/store"
	"github.com/roach88/ioa/internal/store/boltstore"
	"github.com/roach88/ioa/internal/trace"
)

// journalStore is a durable journal backend.
type journalStore interface {
	trace.Journal
	trace.Reader
	io.Closer
	LatestRun(ctx context.Context) (string, error)
}

// openJournal opens the backend at path.
func openJournal(backend, path string) (journalStore, error) {
	switch backend {
	case config.BackendSQLite:
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendBolt:
		s, err := boltstore.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", backend)
	}
}
