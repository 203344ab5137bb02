package dto

import "sundey-crm/internal/entities"

const (
	DefaultStatusLogTake = 20
	MaxStatusLogTake     = 100
)

type StatusLogPageDTO struct {
	Data  []entities.ReservationStatusLog `json:"data"`
	Total int64                           `json:"total"`
	Skip  int                             `json:"skip"`
	Take  int                             `json:"take"`
}
