package models

import (
	"time"

	id "cinregistry/pkg/domain"
)

// FacilityHistoryEntry is one append-only facility reassignment.
type FacilityHistoryEntry struct {
	ID          id.HistoryEntryID
	EnrolleeID  id.EnrolleeID
	OldFacility string
	NewFacility string
	ActorID     id.UserID
	ChangedAt   time.Time
}
