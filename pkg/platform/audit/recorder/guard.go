package recorder

import (
	"context"

	id "cinregistry/pkg/domain"
	audit "cinregistry/pkg/platform/audit"
	txcontext "cinregistry/pkg/platform/tx"
)

// Change describes what a guarded mutation did to one record.
// Related entries cover other rows the same mutation touched (e.g. dependants
// receiving CINs when their parent is issued).
type Change struct {
	Actor    id.UserID
	RecordID string
	Old      audit.Snapshot
	New      audit.Snapshot
	Related  []audit.Entry
}

// Guard is the decorator every audited mutation goes through: fn runs in a
// transaction and its audit entry is written in the same transaction.
type Guard struct {
	tx       txcontext.Runner
	recorder *Recorder
}

func NewGuard(tx txcontext.Runner, recorder *Recorder) *Guard {
	return &Guard{tx: tx, recorder: recorder}
}

// Mutate runs fn in a transaction and records exactly one entry for it on success.
// Nothing is recorded when fn or the transaction fails. Audit write failures are
// parked for retry only once the mutation has committed.
func (g *Guard) Mutate(ctx context.Context, action audit.Action, table string, fn func(ctx context.Context) (Change, error)) error {
	type failed struct {
		entry audit.Entry
		err   error
	}
	var failures []failed

	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		change, err := fn(ctx)
		if err != nil {
			return err
		}

		entries := make([]audit.Entry, 0, 1+len(change.Related))
		primary := audit.Entry{
			Action:    action,
			TableName: table,
			OldData:   change.Old,
			NewData:   change.New,
		}
		if change.RecordID != "" {
			primary.RecordID = audit.Ptr(change.RecordID)
		}
		entries = append(entries, primary)
		entries = append(entries, change.Related...)

		for _, e := range entries {
			if e.UserID == nil && !change.Actor.IsNil() {
				e.UserID = audit.Ptr(change.Actor)
			}
			e = g.recorder.prepare(ctx, e)
			if err := g.recorder.write(ctx, e); err != nil {
				failures = append(failures, failed{entry: e, err: err})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range failures {
		g.recorder.park(ctx, f.entry, f.err)
	}
	return nil
}

// Recorder exposes the underlying recorder for unguarded writes.
func (g *Guard) Recorder() *Recorder {
	return g.recorder
}
