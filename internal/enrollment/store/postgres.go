package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cinregistry/internal/enrollment/models"
	"cinregistry/internal/platform/postgres"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
	txcontext "cinregistry/pkg/platform/tx"
)

// PostgresStore persists enrollment records. Reads inside a transaction lock
// the enrollee row so concurrent transitions serialize.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const enrolleeColumns = `
	id, cin, first_name, middle_name, last_name, date_of_birth, lga_code, facility,
	plan, enrollment_type, payment_status, payment_reference, payment_date,
	primary_enrollee_id, created_by, created_at, updated_at`

func (s *PostgresStore) CreateEnrollee(ctx context.Context, e *models.Enrollee) error {
	query := `INSERT INTO enrollees (` + enrolleeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := txcontext.Querier(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		nullString(e.CIN),
		e.FirstName,
		e.MiddleName,
		e.LastName,
		e.DateOfBirth,
		e.LGACode,
		e.Facility,
		string(e.Plan),
		string(e.EnrollmentType),
		string(e.PaymentStatus),
		e.PaymentReference,
		e.PaymentDate,
		nullEnrollee(e.PrimaryEnrolleeID),
		uuid.UUID(e.CreatedBy),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("create enrollee: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create enrollee: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEnrollee(ctx context.Context, enrolleeID id.EnrolleeID) (*models.Enrollee, error) {
	query := `SELECT ` + enrolleeColumns + ` FROM enrollees WHERE id = $1`
	if txcontext.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	row := txcontext.Querier(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(enrolleeID))
	e, err := scanEnrollee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find enrollee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) FindEnrolleeByCIN(ctx context.Context, code string) (*models.Enrollee, error) {
	query := `SELECT ` + enrolleeColumns + ` FROM enrollees WHERE cin = $1`
	row := txcontext.Querier(ctx, s.db).QueryRowContext(ctx, query, code)
	e, err := scanEnrollee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find enrollee by cin: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) UpdateEnrollee(ctx context.Context, e *models.Enrollee) error {
	query := `
		UPDATE enrollees SET
			cin = $2,
			facility = $3,
			payment_status = $4,
			payment_reference = $5,
			payment_date = $6,
			updated_at = $7
		WHERE id = $1
	`
	res, err := txcontext.Querier(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		nullString(e.CIN),
		e.Facility,
		string(e.PaymentStatus),
		e.PaymentReference,
		e.PaymentDate,
		e.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("update enrollee: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update enrollee: %w", err)
	}
	return requireRow(res, "update enrollee")
}

func (s *PostgresStore) AppendFacilityHistory(ctx context.Context, entry models.FacilityHistoryEntry) error {
	query := `
		INSERT INTO facility_history (id, enrollee_id, old_facility, new_facility, actor_id, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Querier(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.EnrolleeID),
		entry.OldFacility,
		entry.NewFacility,
		uuid.UUID(entry.ActorID),
		entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("append facility history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFacilityHistory(ctx context.Context, enrolleeID id.EnrolleeID) ([]models.FacilityHistoryEntry, error) {
	query := `
		SELECT id, enrollee_id, old_facility, new_facility, actor_id, changed_at
		FROM facility_history
		WHERE enrollee_id = $1
		ORDER BY changed_at DESC, seq DESC
	`
	rows, err := txcontext.Querier(ctx, s.db).QueryContext(ctx, query, uuid.UUID(enrolleeID))
	if err != nil {
		return nil, fmt.Errorf("list facility history: %w", err)
	}
	defer rows.Close()

	var out []models.FacilityHistoryEntry
	for rows.Next() {
		var (
			entry                    models.FacilityHistoryEntry
			entryID, enrollee, actor uuid.UUID
		)
		if err := rows.Scan(&entryID, &enrollee, &entry.OldFacility, &entry.NewFacility, &actor, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan facility history: %w", err)
		}
		entry.ID = id.HistoryEntryID(entryID)
		entry.EnrolleeID = id.EnrolleeID(enrollee)
		entry.ActorID = id.UserID(actor)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facility history: %w", err)
	}
	return out, nil
}

const dependantColumns = `
	id, enrollee_id, cin, relationship, first_name, middle_name, last_name,
	date_of_birth, lga_code, facility, created_by, created_at`

func (s *PostgresStore) CreateDependant(ctx context.Context, d *models.Dependant) error {
	query := `INSERT INTO dependants (` + dependantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := txcontext.Querier(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		uuid.UUID(d.EnrolleeID),
		nullString(d.CIN),
		string(d.Relationship),
		d.FirstName,
		d.MiddleName,
		d.LastName,
		d.DateOfBirth,
		d.LGACode,
		d.Facility,
		uuid.UUID(d.CreatedBy),
		d.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("create dependant: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create dependant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDependant(ctx context.Context, dependantID id.DependantID) (*models.Dependant, error) {
	query := `SELECT ` + dependantColumns + ` FROM dependants WHERE id = $1`
	if txcontext.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	row := txcontext.Querier(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(dependantID))
	d, err := scanDependant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find dependant: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) UpdateDependant(ctx context.Context, d *models.Dependant) error {
	res, err := txcontext.Querier(ctx, s.db).ExecContext(ctx,
		`UPDATE dependants SET cin = $2, facility = $3 WHERE id = $1`,
		uuid.UUID(d.ID), nullString(d.CIN), d.Facility)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("update dependant: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update dependant: %w", err)
	}
	return requireRow(res, "update dependant")
}

func (s *PostgresStore) DeleteDependant(ctx context.Context, dependantID id.DependantID) error {
	res, err := txcontext.Querier(ctx, s.db).ExecContext(ctx,
		`DELETE FROM dependants WHERE id = $1`, uuid.UUID(dependantID))
	if err != nil {
		return fmt.Errorf("delete dependant: %w", err)
	}
	return requireRow(res, "delete dependant")
}

// ListDependants returns an enrollee's dependants, oldest first.
func (s *PostgresStore) ListDependants(ctx context.Context, enrolleeID id.EnrolleeID) ([]models.Dependant, error) {
	query := `SELECT ` + dependantColumns + ` FROM dependants WHERE enrollee_id = $1 ORDER BY created_at, id`
	if txcontext.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	rows, err := txcontext.Querier(ctx, s.db).QueryContext(ctx, query, uuid.UUID(enrolleeID))
	if err != nil {
		return nil, fmt.Errorf("list dependants: %w", err)
	}
	defer rows.Close()

	var out []models.Dependant
	for rows.Next() {
		d, err := scanDependant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dependant: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependants: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollee(row scanner) (*models.Enrollee, error) {
	var (
		e                     models.Enrollee
		enrolleeID, createdBy uuid.UUID
		code                  sql.NullString
		plan, typ, status     string
		dob, paymentDate      sql.NullTime
		primary               uuid.NullUUID
	)
	err := row.Scan(
		&enrolleeID, &code, &e.FirstName, &e.MiddleName, &e.LastName, &dob, &e.LGACode, &e.Facility,
		&plan, &typ, &status, &e.PaymentReference, &paymentDate,
		&primary, &createdBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id.EnrolleeID(enrolleeID)
	e.CIN = code.String
	e.Plan = models.Plan(plan)
	e.EnrollmentType = models.EnrollmentType(typ)
	e.PaymentStatus = models.PaymentStatus(status)
	e.DateOfBirth = timePtr(dob)
	e.PaymentDate = timePtr(paymentDate)
	if primary.Valid {
		p := id.EnrolleeID(primary.UUID)
		e.PrimaryEnrolleeID = &p
	}
	e.CreatedBy = id.UserID(createdBy)
	return &e, nil
}

func scanDependant(row scanner) (*models.Dependant, error) {
	var (
		d                                  models.Dependant
		dependantID, enrolleeID, createdBy uuid.UUID
		code                               sql.NullString
		relationship                       string
		dob                                sql.NullTime
	)
	err := row.Scan(
		&dependantID, &enrolleeID, &code, &relationship, &d.FirstName, &d.MiddleName, &d.LastName,
		&dob, &d.LGACode, &d.Facility, &createdBy, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ID = id.DependantID(dependantID)
	d.EnrolleeID = id.EnrolleeID(enrolleeID)
	d.CIN = code.String
	d.Relationship = models.Relationship(relationship)
	d.DateOfBirth = timePtr(dob)
	d.CreatedBy = id.UserID(createdBy)
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullEnrollee(p *id.EnrolleeID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*p), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
