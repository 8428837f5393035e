package models

import (
	"strings"
	"time"

	"cinregistry/internal/cin"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	textutil "cinregistry/pkg/platform/strings"
)

type Plan string

const (
	PlanBronze   Plan = "bronze"
	PlanSilver   Plan = "silver"
	PlanFormal   Plan = "formal"
	PlanEnhanced Plan = "enhanced"
	PlanEquity   Plan = "equity"
)

func (p Plan) IsValid() bool {
	switch p {
	case PlanBronze, PlanSilver, PlanFormal, PlanEnhanced, PlanEquity:
		return true
	}
	return false
}

type EnrollmentType string

const (
	EnrollmentSingle      EnrollmentType = "single"
	EnrollmentPrimary     EnrollmentType = "primary"
	EnrollmentGroupMember EnrollmentType = "group_member"
)

func (t EnrollmentType) IsValid() bool {
	switch t {
	case EnrollmentSingle, EnrollmentPrimary, EnrollmentGroupMember:
		return true
	}
	return false
}

// Enrollee is a person enrolled under a health plan.
//
// Invariants:
//   - FirstName and LastName are non-empty
//   - CIN is assigned only while PaymentStatus is confirmed; a later move to
//     failed or pending keeps it, since issuance is one-directional
//   - PrimaryEnrolleeID, when set, references a primary enrollee, and a primary
//     enrollee never has one
//   - Plan and LGACode are either empty or known values; LGACode is normalized
type Enrollee struct {
	ID                id.EnrolleeID
	CIN               string
	FirstName         string
	MiddleName        string
	LastName          string
	DateOfBirth       *time.Time
	LGACode           string
	Facility          string
	Plan              Plan
	EnrollmentType    EnrollmentType
	PaymentStatus     PaymentStatus
	PaymentReference  string
	PaymentDate       *time.Time
	PrimaryEnrolleeID *id.EnrolleeID
	CreatedBy         id.UserID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Person holds the demographic fields shared by enrollees and dependants.
type Person struct {
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth *time.Time
	LGACode     string
	Facility    string
}

func (p Person) normalized() (Person, error) {
	p.FirstName = textutil.CollapseSpace(p.FirstName)
	p.MiddleName = textutil.CollapseSpace(p.MiddleName)
	p.LastName = textutil.CollapseSpace(p.LastName)
	p.Facility = textutil.CollapseSpace(p.Facility)
	if p.FirstName == "" || p.LastName == "" {
		return p, dErrors.New(dErrors.CodeInvalidInput, "first and last name are required")
	}
	if len(p.FirstName) > 100 || len(p.MiddleName) > 100 || len(p.LastName) > 100 {
		return p, dErrors.New(dErrors.CodeInvalidInput, "names must be 100 characters or less")
	}
	if strings.TrimSpace(p.LGACode) != "" {
		if !cin.IsKnownLGA(p.LGACode) {
			return p, dErrors.Newf(dErrors.CodeInvalidInput, "unknown LGA %q", p.LGACode)
		}
		p.LGACode = cin.NormalizeLGA(p.LGACode)
	} else {
		p.LGACode = ""
	}
	return p, nil
}

// NewEnrollee validates the registration fields. Payment starts pending and
// no CIN is assigned.
func NewEnrollee(
	enrolleeID id.EnrolleeID,
	person Person,
	plan Plan,
	enrollmentType EnrollmentType,
	primary *id.EnrolleeID,
	createdBy id.UserID,
	now time.Time,
) (*Enrollee, error) {
	person, err := person.normalized()
	if err != nil {
		return nil, err
	}
	plan = Plan(strings.ToLower(strings.TrimSpace(string(plan))))
	if plan != "" && !plan.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown plan %q", plan)
	}
	if !enrollmentType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown enrollment type %q", enrollmentType)
	}
	if enrollmentType == EnrollmentPrimary && primary != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a primary enrollee cannot link to another primary")
	}
	if createdBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "creator is required")
	}

	return &Enrollee{
		ID:                enrolleeID,
		FirstName:         person.FirstName,
		MiddleName:        person.MiddleName,
		LastName:          person.LastName,
		DateOfBirth:       person.DateOfBirth,
		LGACode:           person.LGACode,
		Facility:          person.Facility,
		Plan:              plan,
		EnrollmentType:    enrollmentType,
		PaymentStatus:     PaymentPending,
		PrimaryEnrolleeID: primary,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (e *Enrollee) HasCIN() bool {
	return e.CIN != ""
}

// IsPrimary reports whether e can anchor group members.
func (e *Enrollee) IsPrimary() bool {
	return e.EnrollmentType == EnrollmentPrimary
}

// NeedsCIN reports whether e is confirmed, has no CIN yet, and has the plan
// and LGA a primary code is built from.
func (e *Enrollee) NeedsCIN() bool {
	return e.PaymentStatus == PaymentConfirmed && !e.HasCIN() && e.Plan != "" && e.LGACode != ""
}

// CanIssueCIN explains why a CIN cannot be issued now, or returns nil.
func (e *Enrollee) CanIssueCIN() error {
	switch {
	case e.HasCIN():
		return dErrors.New(dErrors.CodeNoOp, "enrollee already has a CIN")
	case e.PaymentStatus != PaymentConfirmed:
		return dErrors.New(dErrors.CodeInvalidState, "payment is not confirmed")
	case e.Plan == "" || e.LGACode == "":
		return dErrors.New(dErrors.CodeInvalidState, "enrollee has no plan or LGA")
	}
	return nil
}

// AssignCIN records an issued code. Must only be called after CanIssueCIN returns nil.
func (e *Enrollee) AssignCIN(code string, now time.Time) {
	e.CIN = code
	e.UpdatedAt = now
}

// ReassignFacility moves e to facility and returns the previous one.
func (e *Enrollee) ReassignFacility(facility string, now time.Time) (string, error) {
	facility = textutil.CollapseSpace(facility)
	if facility == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "facility is required")
	}
	if facility == e.Facility {
		return "", dErrors.New(dErrors.CodeNoOp, "enrollee is already assigned to this facility")
	}
	old := e.Facility
	e.Facility = facility
	e.UpdatedAt = now
	return old, nil
}
