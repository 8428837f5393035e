package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cinregistry/internal/access"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
	txcontext "cinregistry/pkg/platform/tx"
)

// PostgresRoleStore persists role assignments in user_roles.
type PostgresRoleStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRoleStore {
	return &PostgresRoleStore{db: db}
}

func (s *PostgresRoleStore) Get(ctx context.Context, userID id.UserID) (*access.Assignment, error) {
	query := `SELECT user_id, role, assigned_by, updated_at FROM user_roles WHERE user_id = $1`
	if txcontext.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	row := txcontext.Querier(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID))

	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return a, nil
}

func (s *PostgresRoleStore) Upsert(ctx context.Context, a access.Assignment) error {
	query := `
		INSERT INTO user_roles (user_id, role, assigned_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			assigned_by = EXCLUDED.assigned_by,
			updated_at = EXCLUDED.updated_at
	`
	var assignedBy *uuid.UUID
	if !a.AssignedBy.IsNil() {
		u := uuid.UUID(a.AssignedBy)
		assignedBy = &u
	}
	_, err := txcontext.Querier(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.UserID), string(a.Role), assignedBy, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

func (s *PostgresRoleStore) List(ctx context.Context) ([]access.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role, assigned_by, updated_at FROM user_roles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []access.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row scanner) (*access.Assignment, error) {
	var (
		a          access.Assignment
		userID     uuid.UUID
		role       string
		assignedBy uuid.NullUUID
	)
	if err := row.Scan(&userID, &role, &assignedBy, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.UserID = id.UserID(userID)
	a.Role = access.Role(role)
	if assignedBy.Valid {
		a.AssignedBy = id.UserID(assignedBy.UUID)
	}
	return &a, nil
}
