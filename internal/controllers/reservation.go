package controllers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sundey-crm/internal/dto"
	"sundey-crm/internal/entities"
	"sundey-crm/internal/services"
	apperrors "sundey-crm/pkg/errors"
	"sundey-crm/pkg/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type ReservationController struct {
	reservationService services.ReservationServiceInterface
	logger             *zap.Logger
}

func NewReservationController(reservationService services.ReservationServiceInterface, logger *zap.Logger) *ReservationController {
	return &ReservationController{reservationService: reservationService, logger: logger}
}

func (c *ReservationController) CreateReservation(ctx echo.Context) error {
	var data dto.CreateReservationDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.reservationService.CreateReservation(ctx.Request().Context(), data)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "reservation created", http.StatusCreated)
}

func (c *ReservationController) ListReservations(ctx echo.Context) error {
	var query dto.ReservationListQuery
	if err := ctx.Bind(&query); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid query parameters", err, nil), c.logger)
	}
	if err := ctx.Validate(&query); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	limit := query.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	page := query.Page
	if page == 0 {
		page = 1
	}
	// OFFSET is a signed bigint in Postgres.
	if page-1 > math.MaxInt64/limit {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("page", "page is out of range"), c.logger)
	}
	filter := entities.ReservationFilter{Limit: limit, Offset: (page - 1) * limit}
	if query.Status != "" {
		status := entities.ReservationStatus(query.Status)
		filter.Status = &status
	}

	list, total, err := c.reservationService.ListReservations(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dto.NewPaginatedResponse(list, total, filter.Limit, filter.Offset), "reservations loaded", http.StatusOK)
}

func (c *ReservationController) GetReservation(ctx echo.Context) error {
	res, err := c.reservationService.GetReservation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "reservation loaded", http.StatusOK)
}

func (c *ReservationController) GetCustomerReservations(ctx echo.Context) error {
	list, err := c.reservationService.GetCustomerReservations(ctx.Request().Context(), ctx.Param("customerId"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "reservations loaded", http.StatusOK)
}

func (c *ReservationController) GetUnpaidReservations(ctx echo.Context) error {
	list, err := c.reservationService.GetUnpaidReservations(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "unpaid reservations loaded", http.StatusOK)
}

func (c *ReservationController) ConfirmReservation(ctx echo.Context) error {
	var data dto.ConfirmReservationDTO
	if ctx.Request().ContentLength > 0 {
		if err := ctx.Bind(&data); err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
		}
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.reservationService.ConfirmReservation(ctx.Request().Context(), ctx.Param("id"), data.Reason.Ptr())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "reservation confirmed", http.StatusOK)
}

func (c *ReservationController) ChangeStatus(ctx echo.Context) error {
	var data dto.UpdateStatusDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.reservationService.ChangeStatus(ctx.Request().Context(), ctx.Param("id"),
		entities.ReservationStatus(data.Status), data.Reason.Ptr())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "reservation status updated", http.StatusOK)
}

func (c *ReservationController) AssignUser(ctx echo.Context) error {
	var data dto.AssignUserDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.reservationService.AssignUser(ctx.Request().Context(), ctx.Param("id"), data.UserID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "user assigned", http.StatusOK)
}

func (c *ReservationController) RecordPayment(ctx echo.Context) error {
	var data dto.RecordPaymentDTO
	if err := ctx.Bind(&data); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "invalid request body", err, nil), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.reservationService.RecordPayment(ctx.Request().Context(), ctx.Param("id"), *data.PaidAmount, data.PaymentNote.Ptr())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "payment recorded", http.StatusOK)
}

func (c *ReservationController) DeleteReservation(ctx echo.Context) error {
	if err := c.reservationService.DeleteReservation(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "reservation deleted", http.StatusOK)
}

var unpaidHeaders = []string{
	"Reservation", "Scheduled at", "Customer", "Phone", "Status", "Total", "Paid", "Remaining", "Payment note",
}

func unpaidRow(r entities.Reservation) []interface{} {
	var note string
	if r.PaymentNote != nil {
		note = *r.PaymentNote
	}
	total, _ := r.TotalPrice.Float64()
	paid, _ := r.PaidAmount.Float64()
	remaining, _ := r.RemainingAmount().Float64()
	return []interface{}{
		r.ID, r.ScheduledAt.Format("2006-01-02 15:04"), r.CustomerName, r.CustomerPhone,
		string(r.Status), total, paid, remaining, note,
	}
}

// ExportUnpaidReservations writes the company's unpaid reservations as an
// XLSX attachment.
func (c *ReservationController) ExportUnpaidReservations(ctx echo.Context) error {
	list, err := c.reservationService.GetUnpaidReservations(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Unpaid"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := f.SetSheetRow(sheet, "A1", &unpaidHeaders); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheet, "A1", "I1", style)

	for i, r := range list {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := unpaidRow(r)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "D", 20)
	_ = f.SetColWidth(sheet, "I", "I", 40)

	fileName := fmt.Sprintf("unpaid_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
