package handler

import (
	"time"

	"cinregistry/internal/enrollment/models"
	"cinregistry/internal/enrollment/service"
	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

type personFields struct {
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	LGACode     string `json:"lga_code"`
	Facility    string `json:"facility"`
}

// toPerson parses the date of birth as YYYY-MM-DD.
func (p personFields) toPerson() (models.Person, error) {
	person := models.Person{
		FirstName:  p.FirstName,
		MiddleName: p.MiddleName,
		LastName:   p.LastName,
		LGACode:    p.LGACode,
		Facility:   p.Facility,
	}
	if p.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, p.DateOfBirth)
		if err != nil {
			return person, dErrors.Wrap(err, dErrors.CodeInvalidInput, "date_of_birth must be YYYY-MM-DD")
		}
		person.DateOfBirth = &dob
	}
	return person, nil
}

type registerRequest struct {
	personFields
	Plan              string `json:"plan"`
	EnrollmentType    string `json:"enrollment_type"`
	PrimaryEnrolleeID string `json:"primary_enrollee_id"`
}

func (r registerRequest) toService() (service.RegisterRequest, error) {
	person, err := r.toPerson()
	if err != nil {
		return service.RegisterRequest{}, err
	}
	req := service.RegisterRequest{
		Person:         person,
		Plan:           models.Plan(r.Plan),
		EnrollmentType: models.EnrollmentType(r.EnrollmentType),
	}
	if req.EnrollmentType == "" {
		req.EnrollmentType = models.EnrollmentSingle
	}
	if r.PrimaryEnrolleeID != "" {
		primary, err := id.ParseEnrolleeID(r.PrimaryEnrolleeID)
		if err != nil {
			return service.RegisterRequest{}, err
		}
		req.PrimaryEnrolleeID = &primary
	}
	return req, nil
}

type paymentRequest struct {
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Date      *time.Time `json:"date"`
}

type facilityRequest struct {
	Facility string `json:"facility"`
}

type dependantRequest struct {
	personFields
	Relationship string `json:"relationship"`
}

func (r dependantRequest) toService() (service.AddDependantRequest, error) {
	person, err := r.toPerson()
	if err != nil {
		return service.AddDependantRequest{}, err
	}
	return service.AddDependantRequest{
		Relationship: models.Relationship(r.Relationship),
		Person:       person,
	}, nil
}

type enrolleeResponse struct {
	ID                string    `json:"id"`
	CIN               *string   `json:"cin"`
	FirstName         string    `json:"first_name"`
	MiddleName        string    `json:"middle_name,omitempty"`
	LastName          string    `json:"last_name"`
	DateOfBirth       *string   `json:"date_of_birth,omitempty"`
	LGACode           string    `json:"lga_code,omitempty"`
	Facility          string    `json:"facility,omitempty"`
	Plan              string    `json:"plan,omitempty"`
	EnrollmentType    string    `json:"enrollment_type"`
	PaymentStatus     string    `json:"payment_status"`
	PaymentReference  string    `json:"payment_reference,omitempty"`
	PaymentDate       *string   `json:"payment_date,omitempty"`
	PrimaryEnrolleeID *string   `json:"primary_enrollee_id,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toEnrolleeResponse(e *models.Enrollee) enrolleeResponse {
	resp := enrolleeResponse{
		ID:               e.ID.String(),
		FirstName:        e.FirstName,
		MiddleName:       e.MiddleName,
		LastName:         e.LastName,
		LGACode:          e.LGACode,
		Facility:         e.Facility,
		Plan:             string(e.Plan),
		EnrollmentType:   string(e.EnrollmentType),
		PaymentStatus:    string(e.PaymentStatus),
		PaymentReference: e.PaymentReference,
		PaymentDate:      formatTime(e.PaymentDate),
		CreatedBy:        e.CreatedBy.String(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.HasCIN() {
		resp.CIN = &e.CIN
	}
	if e.DateOfBirth != nil {
		dob := e.DateOfBirth.Format(time.DateOnly)
		resp.DateOfBirth = &dob
	}
	if e.PrimaryEnrolleeID != nil {
		primary := e.PrimaryEnrolleeID.String()
		resp.PrimaryEnrolleeID = &primary
	}
	return resp
}

type dependantResponse struct {
	ID           string    `json:"id"`
	EnrolleeID   string    `json:"enrollee_id"`
	CIN          *string   `json:"cin"`
	Relationship string    `json:"relationship"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	DateOfBirth  *string   `json:"date_of_birth,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toDependantResponse(d *models.Dependant) dependantResponse {
	resp := dependantResponse{
		ID:           d.ID.String(),
		EnrolleeID:   d.EnrolleeID.String(),
		Relationship: string(d.Relationship),
		FirstName:    d.FirstName,
		MiddleName:   d.MiddleName,
		LastName:     d.LastName,
		CreatedAt:    d.CreatedAt,
	}
	if d.HasCIN() {
		resp.CIN = &d.CIN
	}
	if d.DateOfBirth != nil {
		dob := d.DateOfBirth.Format(time.DateOnly)
		resp.DateOfBirth = &dob
	}
	return resp
}

type historyResponse struct {
	ID          string    `json:"id"`
	EnrolleeID  string    `json:"enrollee_id"`
	OldFacility string    `json:"old_facility"`
	NewFacility string    `json:"new_facility"`
	ActorID     string    `json:"actor_id"`
	ChangedAt   time.Time `json:"changed_at"`
}

func toHistoryResponse(e models.FacilityHistoryEntry) historyResponse {
	return historyResponse{
		ID:          e.ID.String(),
		EnrolleeID:  e.EnrolleeID.String(),
		OldFacility: e.OldFacility,
		NewFacility: e.NewFacility,
		ActorID:     e.ActorID.String(),
		ChangedAt:   e.ChangedAt,
	}
}
