package service

import (
	"time"

	"cinregistry/internal/cin"
	"cinregistry/internal/enrollment/models"
	audit "cinregistry/pkg/platform/audit"
)

func enrolleeSnapshot(e *models.Enrollee) audit.Snapshot {
	snap := audit.Snapshot{
		"id":                e.ID.String(),
		"cin":               nullable(e.CIN),
		"first_name":        e.FirstName,
		"middle_name":       e.MiddleName,
		"last_name":         e.LastName,
		"date_of_birth":     timeValue(e.DateOfBirth),
		"lga_code":          e.LGACode,
		"facility":          e.Facility,
		"plan":              string(e.Plan),
		"enrollment_type":   string(e.EnrollmentType),
		"payment_status":    string(e.PaymentStatus),
		"payment_reference": e.PaymentReference,
		"payment_date":      timeValue(e.PaymentDate),
		"created_by":        e.CreatedBy.String(),
	}
	if e.PrimaryEnrolleeID != nil {
		snap["primary_enrollee_id"] = e.PrimaryEnrolleeID.String()
	} else {
		snap["primary_enrollee_id"] = nil
	}
	return snap
}

func paymentSnapshot(e *models.Enrollee) audit.Snapshot {
	return audit.Snapshot{
		"payment_status":    string(e.PaymentStatus),
		"payment_reference": e.PaymentReference,
		"payment_date":      timeValue(e.PaymentDate),
	}
}

func dependantSnapshot(d *models.Dependant) audit.Snapshot {
	return audit.Snapshot{
		"id":            d.ID.String(),
		"enrollee_id":   d.EnrolleeID.String(),
		"cin":           nullable(d.CIN),
		"relationship":  string(d.Relationship),
		"first_name":    d.FirstName,
		"middle_name":   d.MiddleName,
		"last_name":     d.LastName,
		"date_of_birth": timeValue(d.DateOfBirth),
		"lga_code":      d.LGACode,
		"facility":      d.Facility,
		"created_by":    d.CreatedBy.String(),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parentOf(code string) (string, bool) {
	return cin.ParentOf(code)
}
