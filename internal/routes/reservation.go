package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/controllers"
	"sundey-crm/internal/services"
)

func runReservationRouter(
	secureGroup *echo.Group,
	reservationService services.ReservationServiceInterface,
	statusLogService services.ReservationStatusLogServiceInterface,
	logger *zap.Logger,
) {
	reservationController := controllers.NewReservationController(reservationService, logger)
	statusLogController := controllers.NewReservationStatusLogController(statusLogService, logger)

	secureGroup.POST("/reservations", reservationController.CreateReservation)
	secureGroup.GET("/reservations", reservationController.ListReservations)
	secureGroup.GET("/reservations/unpaid", reservationController.GetUnpaidReservations)
	secureGroup.GET("/reservations/unpaid/export", reservationController.ExportUnpaidReservations)
	secureGroup.GET("/reservations/:id", reservationController.GetReservation)
	secureGroup.DELETE("/reservations/:id", reservationController.DeleteReservation)
	secureGroup.POST("/reservations/:id/confirm", reservationController.ConfirmReservation)
	secureGroup.PATCH("/reservations/:id/assign", reservationController.AssignUser)
	secureGroup.PATCH("/reservations/:id/status", reservationController.ChangeStatus)
	secureGroup.POST("/reservations/:id/payment", reservationController.RecordPayment)
	secureGroup.GET("/reservations/:id/status-logs", statusLogController.GetStatusLogs)
	secureGroup.GET("/customers/:customerId/reservations", reservationController.GetCustomerReservations)
}
