package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/services"
	"sundey-crm/pkg/utils"
)

type ReservationStatusLogController struct {
	statusLogService services.ReservationStatusLogServiceInterface
	logger           *zap.Logger
}

func NewReservationStatusLogController(statusLogService services.ReservationStatusLogServiceInterface, logger *zap.Logger) *ReservationStatusLogController {
	return &ReservationStatusLogController{statusLogService: statusLogService, logger: logger}
}

func (c *ReservationStatusLogController) GetStatusLogs(ctx echo.Context) error {
	skip := utils.QueryInt(ctx, "skip", 0)
	take := utils.QueryInt(ctx, "take", dto.DefaultStatusLogTake)

	page, err := c.statusLogService.GetStatusLogs(ctx.Request().Context(), ctx.Param("id"), skip, take)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, page, "status logs loaded", http.StatusOK)
}
