package entities

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "sundey-crm/pkg/errors"
)

type ReservationStatus string

const (
	StatusPendingInquiry ReservationStatus = "PENDING_INQUIRY"
	StatusConfirmed      ReservationStatus = "CONFIRMED"
	StatusWorking        ReservationStatus = "WORKING"
	StatusDone           ReservationStatus = "DONE"
	StatusCancelled      ReservationStatus = "CANCELLED"
	StatusNoShow         ReservationStatus = "NO_SHOW"
)

// AllReservationStatuses lists every status in lifecycle order.
var AllReservationStatuses = []ReservationStatus{
	StatusPendingInquiry,
	StatusConfirmed,
	StatusWorking,
	StatusDone,
	StatusCancelled,
	StatusNoShow,
}

// reservationTransitions is the complete state machine. Terminal statuses
// have no outgoing edges.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPendingInquiry: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusWorking, StatusCancelled, StatusNoShow},
	StatusWorking:        {StatusDone, StatusCancelled},
	StatusDone:           {},
	StatusCancelled:      {},
	StatusNoShow:         {},
}

func (s ReservationStatus) IsValid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

func (s ReservationStatus) IsTerminal() bool {
	return s.IsValid() && len(reservationTransitions[s]) == 0
}

// ReservationItem is the snapshot of a catalog service taken at booking time.
type ReservationItem struct {
	ServiceID string          `json:"serviceId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i ReservationItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Reservation struct {
	ID             string            `json:"id"`
	CompanyID      string            `json:"companyId"`
	CustomerID     *string           `json:"customerId"`
	AssignedUserID *string           `json:"assignedUserId"`
	Status         ReservationStatus `json:"status"`
	ScheduledAt    time.Time         `json:"scheduledAt"`
	StartedAt      *time.Time        `json:"startedAt"`
	CompletedAt    *time.Time        `json:"completedAt"`
	CustomerName   string            `json:"customerName"`
	CustomerPhone  string            `json:"customerPhone"`
	CustomerEmail  *string           `json:"customerEmail"`
	Items          []ReservationItem `json:"items"`
	TotalPrice     decimal.Decimal   `json:"totalPrice"`
	PaidAmount     decimal.Decimal   `json:"paidAmount"`
	IsPaid         bool              `json:"isPaid"`
	PaymentNote    *string           `json:"paymentNote"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// CalculateTotal returns the sum of price * quantity over items.
func CalculateTotal(items []ReservationItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (r *Reservation) CanTransitionTo(target ReservationStatus) bool {
	for _, next := range reservationTransitions[r.Status] {
		if next == target {
			return true
		}
	}
	return false
}

func (r *Reservation) ValidateTransition(target ReservationStatus) error {
	if !r.CanTransitionTo(target) {
		return &apperrors.InvalidTransitionError{From: string(r.Status), To: string(target)}
	}
	return nil
}

// ApplyTransition moves the reservation to target and stamps the derived
// timestamps. StartedAt is set once, on the first entry into WORKING.
func (r *Reservation) ApplyTransition(target ReservationStatus, now time.Time) error {
	if err := r.ValidateTransition(target); err != nil {
		return err
	}
	r.Status = target
	switch target {
	case StatusWorking:
		if r.StartedAt == nil {
			r.StartedAt = &now
		}
	case StatusDone:
		r.CompletedAt = &now
	}
	return nil
}

// ApplyPayment adds amount to the paid total. A nil note keeps the
// previous note; a non-nil note replaces it.
func (r *Reservation) ApplyPayment(amount decimal.Decimal, note *string) error {
	if amount.IsNegative() {
		return apperrors.NewInvalidInputError("amount", "payment amount must not be negative")
	}
	r.PaidAmount = r.PaidAmount.Add(amount)
	r.IsPaid = r.PaidAmount.GreaterThanOrEqual(r.TotalPrice)
	if note != nil {
		r.PaymentNote = note
	}
	return nil
}

// RemainingAmount may be negative after an overpayment.
func (r *Reservation) RemainingAmount() decimal.Decimal {
	return r.TotalPrice.Sub(r.PaidAmount)
}

func (r *Reservation) IsFullyPaid() bool {
	return r.PaidAmount.GreaterThanOrEqual(r.TotalPrice)
}

// ReservationFilter narrows a company listing.
type ReservationFilter struct {
	Status *ReservationStatus
	From   *time.Time
	To     *time.Time
	Limit  uint64
	Offset uint64
}
