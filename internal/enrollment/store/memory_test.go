package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cinregistry/internal/enrollment/models"
	id "cinregistry/pkg/domain"
	"cinregistry/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) enrollee() *models.Enrollee {
	e, err := models.NewEnrollee(id.NewEnrolleeID(),
		models.Person{FirstName: "Ada", LastName: "Obi", LGACode: "oredo", Facility: "A"},
		models.PlanSilver, models.EnrollmentSingle, nil, id.NewUserID(), s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateEnrollee(s.ctx, e))
	return e
}

func (s *InMemoryStoreSuite) TestEnrollees() {
	s.Run("returns copies", func() {
		e := s.enrollee()
		found, err := s.store.FindEnrollee(s.ctx, e.ID)
		s.Require().NoError(err)
		found.Facility = "mutated"

		again, err := s.store.FindEnrollee(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal("A", again.Facility)
	})

	s.Run("missing maps to sentinel", func() {
		_, err := s.store.FindEnrollee(s.ctx, id.NewEnrolleeID())
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.UpdateEnrollee(s.ctx, &models.Enrollee{ID: id.NewEnrolleeID()}), sentinel.ErrNotFound)
	})

	s.Run("cin is unique and indexed", func() {
		a := s.enrollee()
		b := s.enrollee()
		a.CIN = "SLOR001"
		s.Require().NoError(s.store.UpdateEnrollee(s.ctx, a))

		b.CIN = "SLOR001"
		s.ErrorIs(s.store.UpdateEnrollee(s.ctx, b), sentinel.ErrConflict)

		found, err := s.store.FindEnrolleeByCIN(s.ctx, "SLOR001")
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})
}

func (s *InMemoryStoreSuite) TestFacilityHistoryNewestFirst() {
	e := s.enrollee()
	for i, facility := range []string{"B", "C", "D"} {
		s.Require().NoError(s.store.AppendFacilityHistory(s.ctx, models.FacilityHistoryEntry{
			ID:          id.NewHistoryEntryID(),
			EnrolleeID:  e.ID,
			NewFacility: facility,
			ChangedAt:   s.now.Add(time.Duration(i) * time.Minute),
		}))
	}
	// same instant as the last one; insertion order breaks the tie
	s.Require().NoError(s.store.AppendFacilityHistory(s.ctx, models.FacilityHistoryEntry{
		ID: id.NewHistoryEntryID(), EnrolleeID: e.ID, NewFacility: "E", ChangedAt: s.now.Add(2 * time.Minute),
	}))

	entries, err := s.store.ListFacilityHistory(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal([]string{"E", "D", "C", "B"}, []string{
		entries[0].NewFacility, entries[1].NewFacility, entries[2].NewFacility, entries[3].NewFacility,
	})

	err = s.store.AppendFacilityHistory(s.ctx, models.FacilityHistoryEntry{EnrolleeID: id.NewEnrolleeID()})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDependants() {
	e := s.enrollee()
	var ids []id.DependantID
	for _, name := range []string{"One", "Two", "Three"} {
		d, err := models.NewDependant(id.NewDependantID(), e.ID, models.RelationshipChild,
			models.Person{FirstName: name, LastName: "Obi"}, e.CreatedBy, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.CreateDependant(s.ctx, d))
		ids = append(ids, d.ID)
	}

	list, err := s.store.ListDependants(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("One", list[0].FirstName)
	s.Equal("Three", list[2].FirstName)

	list[0].CIN = "SLOR001-D001"
	s.Require().NoError(s.store.UpdateDependant(s.ctx, &list[0]))
	list, err = s.store.ListDependants(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("SLOR001-D001", list[0].CIN, "update keeps list position")

	s.Require().NoError(s.store.DeleteDependant(s.ctx, ids[1]))
	s.ErrorIs(s.store.DeleteDependant(s.ctx, ids[1]), sentinel.ErrNotFound)
	_, err = s.store.FindDependant(s.ctx, ids[1])
	s.ErrorIs(err, sentinel.ErrNotFound)

	orphan := &models.Dependant{ID: id.NewDependantID(), EnrolleeID: id.NewEnrolleeID()}
	s.ErrorIs(s.store.CreateDependant(s.ctx, orphan), sentinel.ErrNotFound)
}
