package cli

import (
	"context"
	"fmt"

	"github.com/roach88/qmx/internal/store"
)

// journal appends rewrite runs to the store, continuing the sequence
// already recorded there.
type journal struct {
	st    *store.Store
	clock *store.Clock
	ids   store.IDGenerator
}

func openJournal(ctx context.Context, path string, ids store.IDGenerator) (*journal, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	return &journal{st: st, clock: store.NewClockAt(last), ids: ids}, nil
}

// record assigns the run an ID and the next sequence number and writes it.
func (j *journal) record(ctx context.Context, run store.Run) (string, error) {
	run.ID = j.ids.Generate()
	run.Seq = j.clock.Next()
	inserted, err := j.st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	if !inserted {
		return "", fmt.Errorf("run %s already journaled", run.ID)
	}
	return run.ID, nil
}

func (j *journal) Close() error {
	return j.st.Close()
}
