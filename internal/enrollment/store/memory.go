package store

import (
	"context"
	"sort"
	"sync"

	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
)

// InMemoryStore keeps enrollees, dependants and facility history in maps.
// It returns copies so callers never mutate stored records in place.
type InMemoryStore struct {
	mu         sync.RWMutex
	enrollees  map[id.EnrolleeID]models.Enrollee
	cins       map[string]id.EnrolleeID
	dependants map[id.DependantID]storedDependant
	history    map[id.EnrolleeID][]models.FacilityHistoryEntry
	nextSeq    int
}

// storedDependant remembers insertion order so same-instant rows list stably.
type storedDependant struct {
	models.Dependant
	seq int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		enrollees:  make(map[id.EnrolleeID]models.Enrollee),
		cins:       make(map[string]id.EnrolleeID),
		dependants: make(map[id.DependantID]storedDependant),
		history:    make(map[id.EnrolleeID][]models.FacilityHistoryEntry),
	}
}

func (s *InMemoryStore) CreateEnrollee(_ context.Context, e *models.Enrollee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollees[e.ID]; ok {
		return sentinel.ErrConflict
	}
	if e.CIN != "" {
		if _, ok := s.cins[e.CIN]; ok {
			return sentinel.ErrConflict
		}
		s.cins[e.CIN] = e.ID
	}
	s.enrollees[e.ID] = *e
	return nil
}

func (s *InMemoryStore) FindEnrollee(_ context.Context, enrolleeID id.EnrolleeID) (*models.Enrollee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollees[enrolleeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemoryStore) FindEnrolleeByCIN(_ context.Context, code string) (*models.Enrollee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrolleeID, ok := s.cins[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := s.enrollees[enrolleeID]
	return &e, nil
}

func (s *InMemoryStore) UpdateEnrollee(_ context.Context, e *models.Enrollee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.enrollees[e.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.CIN != current.CIN && e.CIN != "" {
		if owner, taken := s.cins[e.CIN]; taken && owner != e.ID {
			return sentinel.ErrConflict
		}
		s.cins[e.CIN] = e.ID
	}
	s.enrollees[e.ID] = *e
	return nil
}

func (s *InMemoryStore) AppendFacilityHistory(_ context.Context, entry models.FacilityHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollees[entry.EnrolleeID]; !ok {
		return sentinel.ErrNotFound
	}
	s.history[entry.EnrolleeID] = append(s.history[entry.EnrolleeID], entry)
	return nil
}

// ListFacilityHistory returns entries newest first.
func (s *InMemoryStore) ListFacilityHistory(_ context.Context, enrolleeID id.EnrolleeID) ([]models.FacilityHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[enrolleeID]
	out := make([]models.FacilityHistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out, nil
}

func (s *InMemoryStore) CreateDependant(_ context.Context, d *models.Dependant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollees[d.EnrolleeID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, ok := s.dependants[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.nextSeq++
	s.dependants[d.ID] = storedDependant{Dependant: *d, seq: s.nextSeq}
	return nil
}

func (s *InMemoryStore) FindDependant(_ context.Context, dependantID id.DependantID) (*models.Dependant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dependants[dependantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := d.Dependant
	return &out, nil
}

func (s *InMemoryStore) UpdateDependant(_ context.Context, d *models.Dependant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.dependants[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.dependants[d.ID] = storedDependant{Dependant: *d, seq: current.seq}
	return nil
}

func (s *InMemoryStore) DeleteDependant(_ context.Context, dependantID id.DependantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dependants[dependantID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.dependants, dependantID)
	return nil
}

// ListDependants returns an enrollee's dependants, oldest first.
func (s *InMemoryStore) ListDependants(_ context.Context, enrolleeID id.EnrolleeID) ([]models.Dependant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []storedDependant
	for _, d := range s.dependants {
		if d.EnrolleeID == enrolleeID {
			rows = append(rows, d)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	out := make([]models.Dependant, len(rows))
	for i, r := range rows {
		out[i] = r.Dependant
	}
	return out, nil
}
