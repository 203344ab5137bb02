package entities

import "time"

// ReservationStatusLog is an append-only audit row written in the same
// transaction as the status change it records.
type ReservationStatusLog struct {
	ID            string            `json:"id"`
	ReservationID string            `json:"reservationId"`
	FromStatus    ReservationStatus `json:"fromStatus"`
	ToStatus      ReservationStatus `json:"toStatus"`
	ChangedBy     string            `json:"changedBy"`
	Reason        *string           `json:"reason"`
	CreatedAt     time.Time         `json:"createdAt"`
}
