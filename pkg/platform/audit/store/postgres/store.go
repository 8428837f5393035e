package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "cinregistry/pkg/domain"
	audit "cinregistry/pkg/platform/audit"
	txcontext "cinregistry/pkg/platform/tx"
)

// Store implements audit.Store and audit.Outbox on the audit_log table.
// Rows with a NULL published_at are picked up by the relay.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an entry. Inside a caller's transaction the insert runs under a
// savepoint, so a failed audit write leaves the business transaction usable.
// Idempotent on entry ID so the retrier can replay parked entries.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	oldData, err := marshalSnapshot(entry.OldData)
	if err != nil {
		return fmt.Errorf("marshal old_data: %w", err)
	}
	newData, err := marshalSnapshot(entry.NewData)
	if err != nil {
		return fmt.Errorf("marshal new_data: %w", err)
	}

	var userID *uuid.UUID
	if entry.UserID != nil && !entry.UserID.IsNil() {
		uid := uuid.UUID(*entry.UserID)
		userID = &uid
	}

	query := `
		INSERT INTO audit_log (
			id, user_id, action, table_name, record_id,
			old_data, new_data, request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	args := []any{
		entry.ID,
		userID,
		string(entry.Action),
		entry.TableName,
		entry.RecordID,
		oldData,
		newData,
		entry.RequestID,
		entry.CreatedAt,
	}

	return txcontext.Savepoint(ctx, s.db, "audit_write", func(q txcontext.DBTX) error {
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
}

// ListByRecord returns the trail of one record, oldest first. Entries written
// with the same timestamp keep their insertion order.
func (s *Store) ListByRecord(ctx context.Context, tableName, recordID string) ([]audit.Entry, error) {
	query := `
		SELECT id, user_id, action, table_name, record_id,
			   old_data, new_data, request_id, created_at
		FROM audit_log
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at, seq
	`
	rows, err := txcontext.Querier(ctx, s.db).QueryContext(ctx, query, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListRecent returns the N most recent entries.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, user_id, action, table_name, record_id,
			   old_data, new_data, request_id, created_at
		FROM audit_log
		ORDER BY created_at DESC, seq DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListUnpublished returns entries the relay has not yet delivered, oldest first.
func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, user_id, action, table_name, record_id,
			   old_data, new_data, request_id, created_at
		FROM audit_log
		WHERE published_at IS NULL
		ORDER BY created_at, seq
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkPublished stamps delivered entries.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, entryID := range ids {
		raw[i] = entryID.String()
	}
	query := `UPDATE audit_log SET published_at = NOW() WHERE id = ANY($1::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry

	for rows.Next() {
		var (
			entry    audit.Entry
			userID   uuid.NullUUID
			recordID sql.NullString
			action   string
			oldData  []byte
			newData  []byte
		)
		err := rows.Scan(
			&entry.ID,
			&userID,
			&action,
			&entry.TableName,
			&recordID,
			&oldData,
			&newData,
			&entry.RequestID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.Action = audit.Action(action)
		if userID.Valid {
			uid := id.UserID(userID.UUID)
			entry.UserID = &uid
		}
		if recordID.Valid {
			entry.RecordID = &recordID.String
		}
		if entry.OldData, err = unmarshalSnapshot(oldData); err != nil {
			return nil, fmt.Errorf("decode old_data: %w", err)
		}
		if entry.NewData, err = unmarshalSnapshot(newData); err != nil {
			return nil, fmt.Errorf("decode new_data: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func marshalSnapshot(s audit.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(raw []byte) (audit.Snapshot, error) {
	if raw == nil {
		return nil, nil
	}
	var s audit.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return s, nil
}
