package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/entities"
	"sundey-crm/internal/events"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/utils"
)

const (
	companyA = "company-a"
	companyB = "company-b"
)

type ReservationServiceSuite struct {
	suite.Suite
	store     *memStore
	tx        *fakeTxManager
	publisher *recordingPublisher
	service   *ReservationService
	ctx       context.Context
}

func TestReservationServiceSuite(t *testing.T) {
	suite.Run(t, new(ReservationServiceSuite))
}

func (s *ReservationServiceSuite) SetupTest() {
	s.store = newMemStore()
	s.tx = &fakeTxManager{store: s.store}
	s.publisher = &recordingPublisher{}
	s.service = NewReservationService(
		s.tx,
		&fakeReservationRepo{store: s.store},
		&fakeStatusLogRepo{store: s.store},
		&fakeJobRepo{store: s.store},
		&fakeCustomerRepo{store: s.store},
		&fakeServiceRepo{store: s.store},
		s.publisher,
		newTestMetrics(),
		zap.NewNop(),
	).(*ReservationService)
	s.service.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	s.ctx = actorContext("user-1", companyA)

	s.store.services["svc-deep"] = entities.Service{ID: "svc-deep", CompanyID: companyA, Name: "Deep clean", Price: decimal.NewFromInt(15000)}
	s.store.services["svc-window"] = entities.Service{ID: "svc-window", CompanyID: companyA, Name: "Windows", Price: decimal.RequireFromString("2500.50")}
	s.store.services["svc-other"] = entities.Service{ID: "svc-other", CompanyID: companyB, Name: "Other", Price: decimal.NewFromInt(1)}
}

func actorContext(userID, companyID string) context.Context {
	return utils.ContextWithActor(context.Background(), dto.Actor{UserID: userID, CompanyID: companyID, Role: "ADMIN"})
}

func (s *ReservationServiceSuite) seed(status entities.ReservationStatus, total int64) entities.Reservation {
	res := entities.Reservation{
		ID:            "res-" + string(status),
		CompanyID:     companyA,
		Status:        status,
		ScheduledAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		CustomerName:  "Kim",
		CustomerPhone: "+821012345678",
		TotalPrice:    decimal.NewFromInt(total),
		PaidAmount:    decimal.Zero,
		Version:       1,
	}
	s.store.reservations[res.ID] = res
	return res
}

func (s *ReservationServiceSuite) stored(id string) entities.Reservation {
	return s.store.reservations[id]
}

func (s *ReservationServiceSuite) TestCreateReservation_SnapshotsServicesAndPublishes() {
	res, err := s.service.CreateReservation(s.ctx, dto.CreateReservationDTO{
		ScheduledAt:   time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		CustomerName:  "Kim",
		CustomerPhone: "+821012345678",
		CustomerEmail: null.StringFrom("kim@example.com"),
		Services: []dto.ServiceLineDTO{
			{ServiceID: "svc-deep", Quantity: 1},
			{ServiceID: "svc-window", Quantity: 2},
		},
	})
	s.Require().NoError(err)

	s.Equal(entities.StatusPendingInquiry, res.Status)
	s.Equal(companyA, res.CompanyID)
	s.True(decimal.RequireFromString("20001").Equal(res.TotalPrice), res.TotalPrice.String())
	s.True(res.PaidAmount.IsZero())
	s.False(res.IsPaid)
	s.Require().Len(res.Items, 2)
	s.Equal("Deep clean", res.Items[0].Name)
	s.Equal("kim@example.com", *res.CustomerEmail)

	s.store.services["svc-deep"] = entities.Service{ID: "svc-deep", CompanyID: companyA, Name: "Deep clean", Price: decimal.NewFromInt(99999)}
	s.True(decimal.NewFromInt(15000).Equal(s.stored(res.ID).Items[0].Price), "items keep the booking-time price")

	s.Equal([]string{events.EventName(events.ReservationCreated)}, s.publisher.names())
}

func (s *ReservationServiceSuite) TestCreateReservation_RejectsForeignOrUnknownService() {
	for _, serviceID := range []string{"svc-other", "svc-missing"} {
		_, err := s.service.CreateReservation(s.ctx, dto.CreateReservationDTO{
			CustomerName:  "Kim",
			CustomerPhone: "+821012345678",
			Services:      []dto.ServiceLineDTO{{ServiceID: serviceID, Quantity: 1}},
		})
		s.Equal(apperrors.KindValidation, apperrors.KindOf(err), serviceID)
	}
	s.Empty(s.store.reservations)
	s.Empty(s.publisher.events)
}

func (s *ReservationServiceSuite) TestConfirm_CreatesCustomerFromSnapshot() {
	email := "kim@example.com"
	res := s.seed(entities.StatusPendingInquiry, 15000)
	res.CustomerEmail = &email
	s.store.reservations[res.ID] = res

	updated, err := s.service.ConfirmReservation(s.ctx, res.ID, nil)
	s.Require().NoError(err)

	s.Equal(entities.StatusConfirmed, updated.Status)
	s.Require().NotNil(updated.CustomerID)
	s.Require().Len(s.store.customers, 1)
	customer := s.store.customers[*updated.CustomerID]
	s.Equal("Kim", customer.Name)
	s.Equal("+821012345678", customer.Phone)
	s.Equal(companyA, customer.CompanyID)
	s.Equal(&email, customer.Email)

	s.Require().Len(s.store.logs, 1)
	s.Equal(entities.StatusPendingInquiry, s.store.logs[0].FromStatus)
	s.Equal(entities.StatusConfirmed, s.store.logs[0].ToStatus)
	s.Equal("user-1", s.store.logs[0].ChangedBy)

	s.Require().Len(s.publisher.events, 1)
	event := s.publisher.events[0].(events.ReservationEvent)
	s.Equal(events.EventName(events.ReservationStatusChanged), event.Name())
	s.Equal(companyA, event.CompanyID)
	s.Equal(entities.StatusConfirmed, event.Payload.(*entities.Reservation).Status)
}

func (s *ReservationServiceSuite) TestConfirm_LinksExistingCustomer() {
	s.store.customers["cust-1"] = entities.Customer{ID: "cust-1", CompanyID: companyA, Name: "Kim", Phone: "+821012345678"}
	res := s.seed(entities.StatusPendingInquiry, 15000)

	updated, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusConfirmed, nil)
	s.Require().NoError(err)

	s.Require().NotNil(updated.CustomerID)
	s.Equal("cust-1", *updated.CustomerID)
	s.Len(s.store.customers, 1)
}

func (s *ReservationServiceSuite) TestChangeStatus_FullLifecycleStampsTimestampsAndSyncsJob() {
	res := s.seed(entities.StatusConfirmed, 15000)
	s.store.jobs["job-1"] = entities.Job{ID: "job-1", ReservationID: res.ID, Status: entities.JobPending}

	working, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusWorking, nil)
	s.Require().NoError(err)
	s.Require().NotNil(working.StartedAt)
	s.Nil(working.CompletedAt)
	s.Equal(entities.JobInProgress, s.store.jobs["job-1"].Status)

	done, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusDone, nil)
	s.Require().NoError(err)
	s.Require().NotNil(done.CompletedAt)
	s.Equal(*working.StartedAt, *done.StartedAt)
	s.Equal(entities.JobCompleted, s.store.jobs["job-1"].Status)

	s.Len(s.store.logs, 2)
	s.Equal(3, done.Version)
}

func (s *ReservationServiceSuite) TestChangeStatus_InvalidTransitionLeavesEverythingUntouched() {
	res := s.seed(entities.StatusDone, 15000)

	_, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusWorking, nil)

	var transitionErr *apperrors.InvalidTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	s.Equal("DONE", transitionErr.From)
	s.Equal("WORKING", transitionErr.To)
	s.Equal("cannot go from DONE to WORKING", err.Error())
	s.Equal(entities.StatusDone, s.stored(res.ID).Status)
	s.Empty(s.store.logs)
	s.Empty(s.publisher.events)
}

func (s *ReservationServiceSuite) TestChangeStatus_RepeatedTerminalTargetIsRejected() {
	res := s.seed(entities.StatusConfirmed, 15000)

	cancelled, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusCancelled, nil)
	s.Require().NoError(err)
	s.Equal(entities.StatusCancelled, cancelled.Status)

	_, err = s.service.ChangeStatus(s.ctx, res.ID, entities.StatusCancelled, nil)

	var transitionErr *apperrors.InvalidTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	s.Equal("CANCELLED", transitionErr.From)
	s.Equal("CANCELLED", transitionErr.To)
	s.Equal(cancelled.Version, s.stored(res.ID).Version)
	s.Len(s.store.logs, 1)
	s.Len(s.publisher.events, 1)
}

func (s *ReservationServiceSuite) TestChangeStatus_RejectsUnknownStatus() {
	res := s.seed(entities.StatusConfirmed, 100)
	_, err := s.service.ChangeStatus(s.ctx, res.ID, entities.ReservationStatus("PAUSED"), nil)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ReservationServiceSuite) TestChangeStatus_LogFailureRollsBackStatusAndCustomer() {
	res := s.seed(entities.StatusPendingInquiry, 15000)
	s.store.failStatusLog = errors.New("disk full")

	_, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusConfirmed, nil)
	s.Require().Error(err)

	s.Equal(entities.StatusPendingInquiry, s.stored(res.ID).Status)
	s.Nil(s.stored(res.ID).CustomerID)
	s.Empty(s.store.customers)
	s.Empty(s.store.logs)
	s.Empty(s.publisher.events)
	s.Equal(0, s.tx.commits)
}

func (s *ReservationServiceSuite) TestChangeStatus_JobSyncFailureRollsBack() {
	res := s.seed(entities.StatusConfirmed, 15000)
	s.store.failJobSync = errors.New("jobs table locked")

	_, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusCancelled, nil)
	s.Require().Error(err)
	s.Equal(entities.StatusConfirmed, s.stored(res.ID).Status)
	s.Empty(s.store.logs)
}

func (s *ReservationServiceSuite) TestChangeStatus_OtherTenantSeesNotFound() {
	res := s.seed(entities.StatusPendingInquiry, 15000)

	_, err := s.service.ChangeStatus(actorContext("intruder", companyB), res.ID, entities.StatusCancelled, nil)

	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Equal(entities.StatusPendingInquiry, s.stored(res.ID).Status)
	s.Empty(s.store.logs)
}

func (s *ReservationServiceSuite) TestChangeStatus_ReasonIsLogged() {
	res := s.seed(entities.StatusConfirmed, 15000)
	reason := "customer did not open the door"

	_, err := s.service.ChangeStatus(s.ctx, res.ID, entities.StatusNoShow, &reason)
	s.Require().NoError(err)
	s.Require().Len(s.store.logs, 1)
	s.Equal(&reason, s.store.logs[0].Reason)
}

func (s *ReservationServiceSuite) TestChangeStatus_ConcurrentConfirmationsCommitOnce() {
	res := s.seed(entities.StatusPendingInquiry, 15000)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.ConfirmReservation(s.ctx, res.ID, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.Equal(apperrors.KindInvalidTransition, apperrors.KindOf(err))
	}
	s.Equal(1, succeeded)
	s.Len(s.store.logs, 1)
	s.Len(s.store.customers, 1)
}

func (s *ReservationServiceSuite) TestChangeStatus_StatusLogSequenceMatchesHistory() {
	res := s.seed(entities.StatusPendingInquiry, 15000)
	for _, target := range []entities.ReservationStatus{entities.StatusConfirmed, entities.StatusWorking, entities.StatusDone} {
		_, err := s.service.ChangeStatus(s.ctx, res.ID, target, nil)
		s.Require().NoError(err)
	}

	s.Require().Len(s.store.logs, 3)
	prev := entities.StatusPendingInquiry
	for _, entry := range s.store.logs {
		s.Equal(prev, entry.FromStatus)
		prev = entry.ToStatus
	}
	s.Equal(entities.StatusDone, prev)
}

func (s *ReservationServiceSuite) TestRecordPayment_AccumulatesAndFlipsIsPaid() {
	res := s.seed(entities.StatusConfirmed, 15000)

	first, err := s.service.RecordPayment(s.ctx, res.ID, decimal.NewFromInt(5000), nil)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(5000).Equal(first.PaidAmount))
	s.False(first.IsPaid)

	note := "cash"
	second, err := s.service.RecordPayment(s.ctx, res.ID, decimal.NewFromInt(10000), &note)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(15000).Equal(second.PaidAmount))
	s.True(second.IsPaid)
	s.Equal("cash", *second.PaymentNote)

	third, err := s.service.RecordPayment(s.ctx, res.ID, decimal.NewFromInt(500), nil)
	s.Require().NoError(err)
	s.True(third.IsPaid)
	s.True(decimal.NewFromInt(-500).Equal(third.RemainingAmount()))
	s.Equal("cash", *third.PaymentNote, "a missing note keeps the previous one")

	s.Len(s.publisher.events, 3)
	for _, name := range s.publisher.names() {
		s.Equal(events.EventName(events.ReservationPaymentUpdated), name)
	}
}

func (s *ReservationServiceSuite) TestRecordPayment_NegativeAmountRejected() {
	res := s.seed(entities.StatusConfirmed, 15000)

	_, err := s.service.RecordPayment(s.ctx, res.ID, decimal.NewFromInt(-1), nil)

	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
	s.True(s.stored(res.ID).PaidAmount.IsZero())
	s.Empty(s.publisher.events)
}

func (s *ReservationServiceSuite) TestRecordPayment_ZeroTotalIsPaidImmediately() {
	res := s.seed(entities.StatusConfirmed, 0)

	updated, err := s.service.RecordPayment(s.ctx, res.ID, decimal.Zero, nil)
	s.Require().NoError(err)
	s.True(updated.IsPaid)
}

func (s *ReservationServiceSuite) TestAssignUser_Publishes() {
	res := s.seed(entities.StatusConfirmed, 15000)

	updated, err := s.service.AssignUser(s.ctx, res.ID, "cleaner-7")
	s.Require().NoError(err)
	s.Equal("cleaner-7", *updated.AssignedUserID)
	s.Equal([]string{events.EventName(events.ReservationAssigned)}, s.publisher.names())
}

func (s *ReservationServiceSuite) TestDeleteReservation_RemovesLogs() {
	res := s.seed(entities.StatusPendingInquiry, 15000)
	_, err := s.service.ConfirmReservation(s.ctx, res.ID, nil)
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteReservation(s.ctx, res.ID))
	s.Empty(s.store.reservations)
	s.Empty(s.store.logs)

	s.ErrorIs(s.service.DeleteReservation(s.ctx, res.ID), apperrors.ErrNotFound)
}

func (s *ReservationServiceSuite) TestQueriesAreScopedToCompany() {
	paid := s.seed(entities.StatusDone, 100)
	paid.IsPaid = true
	paid.PaidAmount = decimal.NewFromInt(100)
	s.store.reservations[paid.ID] = paid
	s.seed(entities.StatusConfirmed, 100)
	s.seed(entities.StatusCancelled, 100)
	foreign := entities.Reservation{ID: "foreign", CompanyID: companyB, Status: entities.StatusConfirmed, Version: 1}
	s.store.reservations[foreign.ID] = foreign

	list, total, err := s.service.ListReservations(s.ctx, entities.ReservationFilter{Limit: 10})
	s.Require().NoError(err)
	s.Equal(uint64(3), total)
	s.Len(list, 3)

	unpaid, err := s.service.GetUnpaidReservations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(unpaid, 1)
	s.Equal(entities.StatusConfirmed, unpaid[0].Status)

	_, err = s.service.GetReservation(s.ctx, foreign.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ReservationServiceSuite) TestCustomerReservations() {
	res := s.seed(entities.StatusPendingInquiry, 15000)
	confirmed, err := s.service.ConfirmReservation(s.ctx, res.ID, nil)
	s.Require().NoError(err)

	list, err := s.service.GetCustomerReservations(s.ctx, *confirmed.CustomerID)
	s.Require().NoError(err)
	s.Len(list, 1)

	list, err = s.service.GetCustomerReservations(actorContext("u", companyB), *confirmed.CustomerID)
	s.Require().NoError(err)
	s.Empty(list)
}

func TestReservationService_RequiresActor(t *testing.T) {
	store := newMemStore()
	svc := NewReservationService(&fakeTxManager{store: store}, &fakeReservationRepo{store: store},
		&fakeStatusLogRepo{store: store}, &fakeJobRepo{store: store}, &fakeCustomerRepo{store: store},
		&fakeServiceRepo{store: store}, &recordingPublisher{}, newTestMetrics(), zap.NewNop())

	_, err := svc.GetReservation(context.Background(), "x")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = svc.ChangeStatus(context.Background(), "x", entities.StatusConfirmed, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
