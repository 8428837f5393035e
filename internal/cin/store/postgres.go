package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"cinregistry/internal/cin"
	"cinregistry/internal/platform/postgres"
	"cinregistry/pkg/platform/sentinel"
	txcontext "cinregistry/pkg/platform/tx"
)

// PostgresLedger stores issued codes in issued_cins. The primary key on code
// and the (prefix, sequence) unique constraint reject duplicate claims.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) MaxSequence(ctx context.Context, prefix string) (int, error) {
	var maxSeq int
	err := txcontext.Querier(ctx, l.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM issued_cins WHERE prefix = $1`, prefix,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("max sequence for %s: %w", prefix, err)
	}
	return maxSeq, nil
}

// Claim inserts the code under a savepoint so a rejected claim leaves the
// caller's transaction usable for the next attempt.
func (l *PostgresLedger) Claim(ctx context.Context, issuance cin.Issuance) error {
	query := `
		INSERT INTO issued_cins (code, prefix, sequence, kind, owner_id, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var owner *uuid.UUID
	if issuance.OwnerID != uuid.Nil {
		owner = &issuance.OwnerID
	}
	return txcontext.Savepoint(ctx, l.db, "cin_claim", func(q txcontext.DBTX) error {
		_, err := q.ExecContext(ctx, query,
			issuance.Code,
			issuance.Prefix,
			issuance.Sequence,
			string(issuance.Kind),
			owner,
			issuance.IssuedAt,
		)
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("claim %s: %w", issuance.Code, sentinel.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("claim %s: %w", issuance.Code, err)
		}
		return nil
	})
}
