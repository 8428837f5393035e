package audit

//go:generate mockgen -source=models.go -destination=mocks/mocks.go -package=mocks Store,Outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "cinregistry/pkg/domain"
)

// Action names the mutation an audit entry records.
type Action string

const (
	// Enrollee lifecycle
	ActionEnrolleeCreated      Action = "enrollee_created"
	ActionPaymentStatusChanged Action = "payment_status_changed"
	ActionCINIssued            Action = "cin_issued"
	ActionFacilityReassigned   Action = "facility_reassigned"

	// Dependants
	ActionDependantAdded     Action = "dependant_added"
	ActionDependantCINIssued Action = "dependant_cin_issued"
	ActionDependantRemoved   Action = "dependant_removed"

	// Access control
	ActionRoleAssigned Action = "role_assigned"
)

// Audited table names.
const (
	TableEnrollees  = "enrollees"
	TableDependants = "dependants"
	TableUserRoles  = "user_roles"
)

// Snapshot is the JSON-serializable view of a record before or after a mutation.
// Creates carry an empty old snapshot, deletes an empty new one.
type Snapshot map[string]any

// Entry is one append-only audit log row.
type Entry struct {
	ID        uuid.UUID
	UserID    *id.UserID
	Action    Action
	TableName string
	RecordID  *string
	OldData   Snapshot
	NewData   Snapshot
	RequestID string
	CreatedAt time.Time
}

// Actor returns the acting user, or the nil ID for system actions.
func (e Entry) Actor() id.UserID {
	if e.UserID == nil {
		return id.UserID{}
	}
	return *e.UserID
}

// Record returns the record ID, or "" when the entry is not tied to a row.
func (e Entry) Record() string {
	if e.RecordID == nil {
		return ""
	}
	return *e.RecordID
}

// Store persists audit entries. Append participates in the transaction carried
// by ctx when one is present.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByRecord(ctx context.Context, tableName, recordID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Outbox is implemented by stores whose entries are relayed downstream.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Ptr is a convenience for the optional entry fields.
func Ptr[T any](v T) *T {
	return &v
}
