package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type ServiceLineDTO struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateReservationDTO struct {
	ScheduledAt   time.Time        `json:"scheduledAt" validate:"required"`
	CustomerName  string           `json:"customerName" validate:"required,max=100"`
	CustomerPhone string           `json:"customerPhone" validate:"required,phone"`
	CustomerEmail null.String      `json:"customerEmail" validate:"omitempty,email"`
	Services      []ServiceLineDTO `json:"services" validate:"required,min=1,dive"`
	Metadata      map[string]any   `json:"metadata"`
}

type UpdateStatusDTO struct {
	Status string      `json:"status" validate:"required,reservation_status"`
	Reason null.String `json:"reason" validate:"omitempty,max=500"`
}

type ConfirmReservationDTO struct {
	Reason null.String `json:"reason" validate:"omitempty,max=500"`
}

type AssignUserDTO struct {
	UserID string `json:"userId" validate:"required"`
}

// RecordPaymentDTO carries an increment, not a new total.
type RecordPaymentDTO struct {
	PaidAmount  *decimal.Decimal `json:"paidAmount" validate:"required"`
	PaymentNote null.String      `json:"paymentNote" validate:"omitempty,max=500"`
}

type ReservationListQuery struct {
	Status string `query:"status" validate:"omitempty,reservation_status"`
	Limit  uint64 `query:"limit"`
	Page   uint64 `query:"page"`
}
