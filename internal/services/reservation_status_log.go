package services

import (
	"context"

	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/repositories"
	"sundey-crm/pkg/utils"
)

type ReservationStatusLogServiceInterface interface {
	GetStatusLogs(ctx context.Context, reservationID string, skip, take int) (*dto.StatusLogPageDTO, error)
}

type ReservationStatusLogService struct {
	reservationRepo repositories.ReservationRepositoryInterface
	statusLogRepo   repositories.ReservationStatusLogRepositoryInterface
	logger          *zap.Logger
}

func NewReservationStatusLogService(
	reservationRepo repositories.ReservationRepositoryInterface,
	statusLogRepo repositories.ReservationStatusLogRepositoryInterface,
	logger *zap.Logger,
) ReservationStatusLogServiceInterface {
	return &ReservationStatusLogService{
		reservationRepo: reservationRepo,
		statusLogRepo:   statusLogRepo,
		logger:          logger,
	}
}

// GetStatusLogs returns the newest entries first. take defaults to 20 and
// is capped at 100; a negative skip counts as 0.
func (s *ReservationStatusLogService) GetStatusLogs(ctx context.Context, reservationID string, skip, take int) (*dto.StatusLogPageDTO, error) {
	actor, err := utils.GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := findOwnedReservation(ctx, s.reservationRepo, reservationID, actor.CompanyID); err != nil {
		return nil, err
	}

	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = dto.DefaultStatusLogTake
	}
	if take > dto.MaxStatusLogTake {
		take = dto.MaxStatusLogTake
	}

	logs, total, err := s.statusLogRepo.FindByReservationIDPaginated(ctx, reservationID, skip, take)
	if err != nil {
		s.logger.Error("failed to load status logs", zap.String("reservationID", reservationID), zap.Error(err))
		return nil, err
	}
	return &dto.StatusLogPageDTO{Data: logs, Total: total, Skip: skip, Take: take}, nil
}
