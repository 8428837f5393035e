package models

import (
	"time"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

type Relationship string

const (
	RelationshipSpouse Relationship = "spouse"
	RelationshipChild  Relationship = "child"
	RelationshipParent Relationship = "parent"
	RelationshipOther  Relationship = "other"
)

func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipSpouse, RelationshipChild, RelationshipParent, RelationshipOther:
		return true
	}
	return false
}

// Dependant is owned by one enrollee. Its CIN derives from the parent's and
// stays empty until the parent has one.
type Dependant struct {
	ID           id.DependantID
	EnrolleeID   id.EnrolleeID
	CIN          string
	Relationship Relationship
	FirstName    string
	MiddleName   string
	LastName     string
	DateOfBirth  *time.Time
	LGACode      string
	Facility     string
	CreatedBy    id.UserID
	CreatedAt    time.Time
}

func NewDependant(
	dependantID id.DependantID,
	enrolleeID id.EnrolleeID,
	relationship Relationship,
	person Person,
	createdBy id.UserID,
	now time.Time,
) (*Dependant, error) {
	if !relationship.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown relationship %q", relationship)
	}
	person, err := person.normalized()
	if err != nil {
		return nil, err
	}
	return &Dependant{
		ID:           dependantID,
		EnrolleeID:   enrolleeID,
		Relationship: relationship,
		FirstName:    person.FirstName,
		MiddleName:   person.MiddleName,
		LastName:     person.LastName,
		DateOfBirth:  person.DateOfBirth,
		LGACode:      person.LGACode,
		Facility:     person.Facility,
		CreatedBy:    createdBy,
		CreatedAt:    now,
	}, nil
}

func (d *Dependant) HasCIN() bool {
	return d.CIN != ""
}
