package recorder_test

//go:generate mockgen -source=alarm.go -destination=mocks/mocks.go -package=mocks AlarmSink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
	audit "cinregistry/pkg/platform/audit"
	auditmocks "cinregistry/pkg/platform/audit/mocks"
	"cinregistry/pkg/platform/audit/recorder"
	"cinregistry/pkg/platform/audit/recorder/mocks"
	auditmemory "cinregistry/pkg/platform/audit/store/memory"
	txcontext "cinregistry/pkg/platform/tx"
	"cinregistry/pkg/requestcontext"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type RecorderSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	sink  *mocks.MockAlarmSink
	store *auditmemory.InMemoryStore
	clock *fakeClock
	rec   *recorder.Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sink = mocks.NewMockAlarmSink(s.ctrl)
	s.store = auditmemory.NewInMemoryStore()
	s.clock = &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	s.rec = recorder.New(s.store,
		recorder.WithAlarmSink(s.sink),
		recorder.WithClock(s.clock.Now),
		recorder.WithGraceWindow(5*time.Minute),
		recorder.WithPendingCapacity(2),
	)
}

func (s *RecorderSuite) TearDownTest() {
	s.ctrl.Finish()
}

func entry(action audit.Action) audit.Entry {
	return audit.Entry{
		Action:    action,
		TableName: audit.TableEnrollees,
		RecordID:  audit.Ptr(id.NewEnrolleeID().String()),
		NewData:   audit.Snapshot{"plan": "silver"},
	}
}

func (s *RecorderSuite) TestRecord() {
	s.Run("fills identity fields from the request context", func() {
		s.store.Clear()
		actor := id.NewUserID()
		at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
		ctx := requestcontext.WithUserID(context.Background(), actor)
		ctx = requestcontext.WithRequestID(ctx, "req-42")
		ctx = requestcontext.WithTime(ctx, at)

		s.rec.Record(ctx, entry(audit.ActionEnrolleeCreated))

		all := s.store.All()
		s.Require().Len(all, 1)
		s.NotEqual("00000000-0000-0000-0000-000000000000", all[0].ID.String())
		s.Equal(actor, all[0].Actor())
		s.Equal("req-42", all[0].RequestID)
		s.Equal(at, all[0].CreatedAt)
		s.Equal(0, s.rec.Pending())
	})

	s.Run("failed write is parked, not surfaced", func() {
		s.store.Clear()
		s.store.FailWith(errors.New("connection reset"))
		defer s.store.FailWith(nil)

		s.rec.Record(context.Background(), entry(audit.ActionCINIssued))

		s.Empty(s.store.All())
		s.Equal(1, s.rec.Pending())
	})
}

func (s *RecorderSuite) TestRetrier() {
	s.Run("replays parked entries once the store recovers", func() {
		s.store.Clear()
		s.store.FailWith(errors.New("connection reset"))
		s.rec.Record(context.Background(), entry(audit.ActionCINIssued))

		s.store.FailWith(nil)
		persisted := recorder.NewRetrier(s.rec, time.Second).RetryOnce(context.Background())

		s.Equal(1, persisted)
		s.Equal(0, s.rec.Pending())
		s.Len(s.store.All(), 1)
	})

	s.Run("alarms once after the grace window and keeps retrying", func() {
		s.store.Clear()
		s.store.FailWith(errors.New("connection reset"))
		defer s.store.FailWith(nil)

		s.rec.Record(context.Background(), entry(audit.ActionPaymentStatusChanged))
		retrier := recorder.NewRetrier(s.rec, time.Second)

		s.clock.Advance(time.Minute)
		s.Equal(0, retrier.RetryOnce(context.Background()))

		s.sink.EXPECT().Raise(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, alarm recorder.IntegrityAlarm) error {
				s.Equal(recorder.ReasonGraceExceeded, alarm.Reason)
				s.Equal(audit.ActionPaymentStatusChanged, alarm.Entry.Action)
				s.Equal(3, alarm.Attempts)
				s.Contains(alarm.LastError, "connection reset")
				s.True(dErrors.HasCode(alarm.Err(), dErrors.CodeIntegrityAlarm))
				return nil
			}).Times(1)

		s.clock.Advance(5 * time.Minute)
		retrier.RetryOnce(context.Background())
		retrier.RetryOnce(context.Background())
		s.Equal(1, s.rec.Pending())
	})
}

func (s *RecorderSuite) TestQueueOverflowAlarmsImmediately() {
	s.store.FailWith(errors.New("connection reset"))
	defer s.store.FailWith(nil)

	s.sink.EXPECT().Raise(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, alarm recorder.IntegrityAlarm) error {
			s.Equal(recorder.ReasonQueueOverflow, alarm.Reason)
			return errors.New("pager down")
		}).Times(1)

	for range 3 {
		s.rec.Record(context.Background(), entry(audit.ActionFacilityReassigned))
	}
	s.Equal(2, s.rec.Pending())
}

type GuardSuite struct {
	suite.Suite
	store *auditmemory.InMemoryStore
	rec   *recorder.Recorder
	guard *recorder.Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.store = auditmemory.NewInMemoryStore()
	s.rec = recorder.New(s.store)
	s.guard = recorder.NewGuard(txcontext.NewMemoryRunner(), s.rec)
}

func (s *GuardSuite) TestMutate() {
	s.Run("records exactly one entry with before and after snapshots", func() {
		s.store.Clear()
		recordID := id.NewEnrolleeID().String()

		err := s.guard.Mutate(context.Background(), audit.ActionFacilityReassigned, audit.TableEnrollees,
			func(ctx context.Context) (recorder.Change, error) {
				s.True(txcontext.InTx(ctx))
				return recorder.Change{
					RecordID: recordID,
					Old:      audit.Snapshot{"facility": "Central Hospital"},
					New:      audit.Snapshot{"facility": "Stella Obasanjo"},
				}, nil
			})
		s.Require().NoError(err)

		all := s.store.All()
		s.Require().Len(all, 1)
		s.Equal(audit.ActionFacilityReassigned, all[0].Action)
		s.Equal(recordID, all[0].Record())
		s.Equal("Central Hospital", all[0].OldData["facility"])
		s.Equal("Stella Obasanjo", all[0].NewData["facility"])
	})

	s.Run("related entries are written with the primary", func() {
		s.store.Clear()
		err := s.guard.Mutate(context.Background(), audit.ActionCINIssued, audit.TableEnrollees,
			func(context.Context) (recorder.Change, error) {
				return recorder.Change{
					RecordID: "e1",
					Old:      audit.Snapshot{"cin": nil},
					New:      audit.Snapshot{"cin": "SLOR001"},
					Related: []audit.Entry{{
						Action:    audit.ActionDependantCINIssued,
						TableName: audit.TableDependants,
						RecordID:  audit.Ptr("d1"),
						NewData:   audit.Snapshot{"cin": "SLOR001-D001"},
					}},
				}, nil
			})
		s.Require().NoError(err)
		s.Len(s.store.All(), 2)
	})

	s.Run("no entry when the mutation fails", func() {
		s.store.Clear()
		boom := dErrors.New(dErrors.CodeInvalidState, "cannot transition")
		err := s.guard.Mutate(context.Background(), audit.ActionPaymentStatusChanged, audit.TableEnrollees,
			func(context.Context) (recorder.Change, error) {
				return recorder.Change{}, boom
			})
		s.ErrorIs(err, boom)
		s.Empty(s.store.All())
		s.Equal(0, s.rec.Pending())
	})

	s.Run("audit failure does not fail the mutation", func() {
		ctrl := gomock.NewController(s.T())
		store := auditmocks.NewMockStore(ctrl)
		rec := recorder.New(store)
		guard := recorder.NewGuard(txcontext.NewMemoryRunner(), rec)

		store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("timeout")).Times(1)

		mutated := false
		err := guard.Mutate(context.Background(), audit.ActionRoleAssigned, audit.TableUserRoles,
			func(context.Context) (recorder.Change, error) {
				mutated = true
				return recorder.Change{RecordID: "u1", New: audit.Snapshot{"role": "staff"}}, nil
			})
		s.Require().NoError(err)
		s.True(mutated)
		s.Equal(1, rec.Pending())
	})
}
