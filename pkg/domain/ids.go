// Package domain holds typed identifiers shared across the enrollment packages.
//
// Each ID wraps a uuid.UUID so the compiler rejects passing a dependant ID where an
// enrollee ID is expected. Parse functions are the trust boundary for IDs arriving
// from outside the process.
package domain

import (
	"github.com/google/uuid"

	dErrors "cinregistry/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	EnrolleeID     uuid.UUID
	DependantID    uuid.UUID
	HistoryEntryID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id EnrolleeID) String() string     { return uuid.UUID(id).String() }
func (id DependantID) String() string    { return uuid.UUID(id).String() }
func (id HistoryEntryID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EnrolleeID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DependantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id HistoryEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewEnrolleeID() EnrolleeID         { return EnrolleeID(uuid.New()) }
func NewDependantID() DependantID       { return DependantID(uuid.New()) }
func NewHistoryEntryID() HistoryEntryID { return HistoryEntryID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParseEnrolleeID(s string) (EnrolleeID, error) {
	u, err := parseUUID(s, "enrollee ID")
	return EnrolleeID(u), err
}

func ParseDependantID(s string) (DependantID, error) {
	u, err := parseUUID(s, "dependant ID")
	return DependantID(u), err
}

func ParseHistoryEntryID(s string) (HistoryEntryID, error) {
	u, err := parseUUID(s, "history entry ID")
	return HistoryEntryID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
