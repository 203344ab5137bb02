package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/entities"
	"sundey-crm/internal/events"
	"sundey-crm/internal/repositories"
	"sundey-crm/pkg/eventbus"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/metrics"
	"sundey-crm/pkg/utils"
)

type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, data dto.CreateReservationDTO) (*entities.Reservation, error)
	ConfirmReservation(ctx context.Context, id string, reason *string) (*entities.Reservation, error)
	ChangeStatus(ctx context.Context, id string, target entities.ReservationStatus, reason *string) (*entities.Reservation, error)
	AssignUser(ctx context.Context, id, userID string) (*entities.Reservation, error)
	RecordPayment(ctx context.Context, id string, amount decimal.Decimal, note *string) (*entities.Reservation, error)
	GetReservation(ctx context.Context, id string) (*entities.Reservation, error)
	ListReservations(ctx context.Context, filter entities.ReservationFilter) ([]entities.Reservation, uint64, error)
	GetCustomerReservations(ctx context.Context, customerID string) ([]entities.Reservation, error)
	GetUnpaidReservations(ctx context.Context) ([]entities.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

type ReservationService struct {
	txManager       repositories.TxManagerInterface
	reservationRepo repositories.ReservationRepositoryInterface
	statusLogRepo   repositories.ReservationStatusLogRepositoryInterface
	jobRepo         repositories.JobRepositoryInterface
	customerRepo    repositories.CustomerRepositoryInterface
	serviceRepo     repositories.ServiceRepositoryInterface
	publisher       eventbus.Publisher
	metrics         *metrics.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

func NewReservationService(
	txManager repositories.TxManagerInterface,
	reservationRepo repositories.ReservationRepositoryInterface,
	statusLogRepo repositories.ReservationStatusLogRepositoryInterface,
	jobRepo repositories.JobRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	serviceRepo repositories.ServiceRepositoryInterface,
	publisher eventbus.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReservationServiceInterface {
	return &ReservationService{
		txManager:       txManager,
		reservationRepo: reservationRepo,
		statusLogRepo:   statusLogRepo,
		jobRepo:         jobRepo,
		customerRepo:    customerRepo,
		serviceRepo:     serviceRepo,
		publisher:       publisher,
		metrics:         m,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReservationService) CreateReservation(ctx context.Context, data dto.CreateReservationDTO) (*entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(data.Services) == 0 {
		return nil, apperrors.NewInvalidInputError("services", "at least one service is required")
	}

	items := make([]entities.ReservationItem, 0, len(data.Services))
	for _, line := range data.Services {
		if line.Quantity < 1 {
			return nil, apperrors.NewInvalidInputError("quantity", "quantity must be at least 1")
		}
		service, err := s.serviceRepo.FindByID(ctx, line.ServiceID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewInvalidInputError("serviceId", "service %s not found", line.ServiceID)
			}
			return nil, err
		}
		if service.CompanyID != actor.CompanyID {
			return nil, apperrors.NewInvalidInputError("serviceId", "service %s not found", line.ServiceID)
		}
		items = append(items, entities.ReservationItem{
			ServiceID: service.ID,
			Name:      service.Name,
			Price:     service.Price,
			Quantity:  line.Quantity,
		})
	}

	reservation := &entities.Reservation{
		ID:            uuid.NewString(),
		CompanyID:     actor.CompanyID,
		Status:        entities.StatusPendingInquiry,
		ScheduledAt:   data.ScheduledAt,
		CustomerName:  data.CustomerName,
		CustomerPhone: data.CustomerPhone,
		CustomerEmail: data.CustomerEmail.Ptr(),
		Items:         items,
		TotalPrice:    entities.CalculateTotal(items),
		PaidAmount:    decimal.Zero,
		Metadata:      data.Metadata,
	}

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		s.logger.Error("failed to create reservation", zap.String("companyID", actor.CompanyID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("reservation created",
		zap.String("reservationID", reservation.ID),
		zap.String("companyID", reservation.CompanyID),
		zap.String("total", reservation.TotalPrice.String()),
	)
	s.publish(ctx, events.ReservationCreated, reservation)
	return reservation, nil
}

func (s *ReservationService) ConfirmReservation(ctx context.Context, id string, reason *string) (*entities.Reservation, error) {
	return s.ChangeStatus(ctx, id, entities.StatusConfirmed, reason)
}

// ChangeStatus validates the transition against the locked row and writes
// the new status, exactly one status log row and the job status in one
// transaction. Entering CONFIRMED links the reservation to a customer of
// the company, creating one from the booking snapshot when none matches
// the phone.
func (s *ReservationService) ChangeStatus(ctx context.Context, id string, target entities.ReservationStatus, reason *string) (*entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, apperrors.NewInvalidInputError("status", "unknown status %q", target)
	}

	var from entities.ReservationStatus
	err = s.inTransaction(ctx, "change_status", func(tx pgx.Tx) error {
		reservation, err := s.lockOwned(ctx, tx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		from = reservation.Status

		if err := reservation.ApplyTransition(target, s.now()); err != nil {
			return err
		}
		update := repositories.ReservationUpdate{
			Status:      &reservation.Status,
			StartedAt:   reservation.StartedAt,
			CompletedAt: reservation.CompletedAt,
		}

		if target == entities.StatusConfirmed && reservation.CustomerID == nil {
			customer, err := s.provisionCustomer(ctx, tx, reservation)
			if err != nil {
				return err
			}
			update.CustomerID = &customer.ID
		}

		if err := s.reservationRepo.Update(ctx, tx, id, reservation.Version, update); err != nil {
			return err
		}

		entry := &entities.ReservationStatusLog{
			ID:            uuid.NewString(),
			ReservationID: id,
			FromStatus:    from,
			ToStatus:      target,
			ChangedBy:     actor.UserID,
			Reason:        reason,
		}
		if err := s.statusLogRepo.Create(ctx, tx, entry); err != nil {
			return err
		}

		if jobStatus, ok := entities.JobStatusFor(target); ok {
			if err := s.jobRepo.SyncStatusByReservationID(ctx, tx, id, jobStatus); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("status change rejected",
			zap.String("reservationID", id),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(from), string(target)).Inc()
	s.logger.Info("reservation status changed",
		zap.String("reservationID", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("changedBy", actor.UserID),
	)

	updated, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ReservationStatusChanged, updated)
	return updated, nil
}

func (s *ReservationService) provisionCustomer(ctx context.Context, tx pgx.Tx, reservation *entities.Reservation) (*entities.Customer, error) {
	customer, err := s.customerRepo.FindByPhone(ctx, tx, reservation.CompanyID, reservation.CustomerPhone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	customer, err = s.customerRepo.Create(ctx, tx, &entities.Customer{
		CompanyID: reservation.CompanyID,
		Name:      reservation.CustomerName,
		Phone:     reservation.CustomerPhone,
		Email:     reservation.CustomerEmail,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer created on confirmation",
		zap.String("customerID", customer.ID),
		zap.String("reservationID", reservation.ID),
	)
	return customer, nil
}

func (s *ReservationService) AssignUser(ctx context.Context, id, userID string) (*entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperrors.NewInvalidInputError("userId", "user id is required")
	}

	err = s.inTransaction(ctx, "assign_user", func(tx pgx.Tx) error {
		reservation, err := s.lockOwned(ctx, tx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		return s.reservationRepo.Update(ctx, tx, id, reservation.Version, repositories.ReservationUpdate{AssignedUserID: &userID})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ReservationAssigned, updated)
	return updated, nil
}

// RecordPayment adds amount to the paid total. Overpayment is accepted.
func (s *ReservationService) RecordPayment(ctx context.Context, id string, amount decimal.Decimal, note *string) (*entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, apperrors.NewInvalidInputError("paidAmount", "payment amount must not be negative")
	}

	err = s.inTransaction(ctx, "record_payment", func(tx pgx.Tx) error {
		reservation, err := s.lockOwned(ctx, tx, id, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := reservation.ApplyPayment(amount, note); err != nil {
			return err
		}
		return s.reservationRepo.Update(ctx, tx, id, reservation.Version, repositories.ReservationUpdate{
			PaidAmount:  &reservation.PaidAmount,
			IsPaid:      &reservation.IsPaid,
			PaymentNote: note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsRecorded.Inc()
	updated, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment recorded",
		zap.String("reservationID", id),
		zap.String("amount", amount.String()),
		zap.String("paidAmount", updated.PaidAmount.String()),
		zap.Bool("isPaid", updated.IsPaid),
	)
	s.publish(ctx, events.ReservationPaymentUpdated, updated)
	return updated, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return findOwnedReservation(ctx, s.reservationRepo, id, actor.CompanyID)
}

func (s *ReservationService) ListReservations(ctx context.Context, filter entities.ReservationFilter) ([]entities.Reservation, uint64, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.reservationRepo.FindByCompanyID(ctx, actor.CompanyID, filter)
}

func (s *ReservationService) GetCustomerReservations(ctx context.Context, customerID string) ([]entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.reservationRepo.FindByCustomerID(ctx, actor.CompanyID, customerID)
}

func (s *ReservationService) GetUnpaidReservations(ctx context.Context) ([]entities.Reservation, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.reservationRepo.FindUnpaidByCompanyID(ctx, actor.CompanyID)
}

func (s *ReservationService) DeleteReservation(ctx context.Context, id string) error {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return err
	}
	err = s.inTransaction(ctx, "delete", func(tx pgx.Tx) error {
		if _, err := s.lockOwned(ctx, tx, id, actor.CompanyID); err != nil {
			return err
		}
		if err := s.statusLogRepo.DeleteByReservationID(ctx, tx, id); err != nil {
			return err
		}
		return s.reservationRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("reservation deleted", zap.String("reservationID", id), zap.String("deletedBy", actor.UserID))
	return nil
}

// lockOwned loads the reservation with a row lock and hides reservations of
// other companies behind ErrNotFound.
func (s *ReservationService) lockOwned(ctx context.Context, tx pgx.Tx, id, companyID string) (*entities.Reservation, error) {
	reservation, err := s.reservationRepo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reservation.CompanyID != companyID {
		return nil, fmt.Errorf("reservation %s: %w", id, apperrors.ErrNotFound)
	}
	return reservation, nil
}

func (s *ReservationService) inTransaction(ctx context.Context, operation string, fn func(tx pgx.Tx) error) error {
	started := time.Now()
	defer func() {
		s.metrics.TransactionDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}()
	return s.txManager.RunInTransaction(ctx, fn)
}

func (s *ReservationService) publish(ctx context.Context, eventType string, reservation *entities.Reservation) {
	s.publisher.Publish(ctx, events.ReservationEvent{
		Type:      eventType,
		CompanyID: reservation.CompanyID,
		Payload:   reservation,
	})
}

func findOwnedReservation(ctx context.Context, repo repositories.ReservationRepositoryInterface, id, companyID string) (*entities.Reservation, error) {
	reservation, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.CompanyID != companyID {
		return nil, fmt.Errorf("reservation %s: %w", id, apperrors.ErrNotFound)
	}
	return reservation, nil
}
