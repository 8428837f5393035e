//go:build integration

package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"cinregistry/internal/access"
	accessstore "cinregistry/internal/access/store"
	"cinregistry/internal/cin"
	cinstore "cinregistry/internal/cin/store"
	"cinregistry/internal/enrollment/models"
	"cinregistry/internal/enrollment/service"
	enrollmentstore "cinregistry/internal/enrollment/store"
	"cinregistry/internal/platform/postgres"
	id "cinregistry/pkg/domain"
	audit "cinregistry/pkg/platform/audit"
	"cinregistry/pkg/platform/audit/recorder"
	auditpostgres "cinregistry/pkg/platform/audit/store/postgres"
	txcontext "cinregistry/pkg/platform/tx"
	"cinregistry/pkg/requestcontext"
	"cinregistry/pkg/testutil/containers"
)

type IntegrationSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	rdb    *containers.RedisContainer
	ctx    context.Context
	staff  id.UserID
	audit  *auditpostgres.Store
	ledger *cinstore.PostgresLedger
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupSuite() {
	s.pg = containers.Postgres(s.T())
	s.rdb = containers.Redis(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
}

func (s *IntegrationSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.pg.Truncate(s.ctx, "audit_log", "issued_cins", "facility_history", "dependants", "enrollees", "user_roles"))
	s.Require().NoError(s.rdb.Reset(s.ctx))

	s.staff = id.NewUserID()
	roles := accessstore.NewPostgres(s.pg.DB)
	s.Require().NoError(roles.Upsert(s.ctx, access.Assignment{UserID: s.staff, Role: access.RoleStaff, UpdatedAt: time.Now()}))
	s.audit = auditpostgres.New(s.pg.DB)
	s.ledger = cinstore.NewPostgres(s.pg.DB)
}

func (s *IntegrationSuite) newService(opts ...cin.Option) *service.Service {
	guard := recorder.NewGuard(txcontext.NewPostgresRunner(s.pg.DB, 10*time.Second), recorder.New(s.audit))
	registry := access.NewStoreRegistry(accessstore.NewPostgres(s.pg.DB))
	return service.New(enrollmentstore.NewPostgres(s.pg.DB), registry, guard, cin.NewGenerator(s.ledger, opts...))
}

func (s *IntegrationSuite) register(svc *service.Service) *models.Enrollee {
	e, err := svc.Register(s.ctx, service.RegisterRequest{
		Person:         models.Person{FirstName: "Osaro", LastName: "Igbinedion", LGACode: "oredo", Facility: "UBTH"},
		Plan:           models.PlanSilver,
		EnrollmentType: models.EnrollmentPrimary,
	}, s.staff)
	s.Require().NoError(err)
	return e
}

func (s *IntegrationSuite) TestConfirmationIssuesCINsInOneAuditedFlow() {
	svc := s.newService()
	e := s.register(svc)
	_, err := svc.AddDependant(s.ctx, e.ID, service.AddDependantRequest{
		Relationship: models.RelationshipSpouse,
		Person:       models.Person{FirstName: "Efe", LastName: "Igbinedion"},
	}, s.staff)
	s.Require().NoError(err)

	confirmed, err := svc.ConfirmPayment(s.ctx, e.ID, "PAY-001", nil, s.staff)
	s.Require().NoError(err)
	s.Equal("SLOR001", confirmed.CIN)

	dependants, err := svc.ListDependants(s.ctx, e.ID, s.staff)
	s.Require().NoError(err)
	s.Require().Len(dependants, 1)
	s.Equal("SLOR001-D001", dependants[0].CIN)

	entries, err := s.audit.ListByRecord(s.ctx, audit.TableEnrollees, e.ID.String())
	s.Require().NoError(err)
	var actions []audit.Action
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	s.Equal([]audit.Action{
		audit.ActionEnrolleeCreated,
		audit.ActionPaymentStatusChanged,
		audit.ActionCINIssued,
	}, actions, "entries sharing a request timestamp keep insertion order")

	_, err = svc.ReassignFacility(s.ctx, e.ID, "UBTH", s.staff)
	s.Error(err, "same facility is a no-op")
}

func (s *IntegrationSuite) TestParallelConfirmations() {
	const callers = 12

	for name, opts := range map[string][]cin.Option{
		"store counter": {cin.WithMaxAttempts(callers)},
		"redis counter": {
			cin.WithMaxAttempts(callers),
			cin.WithCounter(cin.NewRedisCounter(s.rdb.Client, s.ledger)),
		},
	} {
		s.Run(name, func() {
			s.SetupTest()
			svc := s.newService(opts...)
			ids := make([]id.EnrolleeID, callers)
			for i := range ids {
				ids[i] = s.register(svc).ID
			}

			codes := make([]string, callers)
			var g errgroup.Group
			for i := range ids {
				g.Go(func() error {
					e, err := svc.ConfirmPayment(s.ctx, ids[i], fmt.Sprintf("PAY-%d", i), nil, s.staff)
					if err != nil {
						return err
					}
					codes[i] = e.CIN
					return nil
				})
			}
			s.Require().NoError(g.Wait())

			seen := make(map[string]struct{}, callers)
			for _, code := range codes {
				s.NotContains(seen, code)
				seen[code] = struct{}{}
			}
			s.Len(seen, callers)
		})
	}
}
