package services

import (
	"go.uber.org/zap"

	"sundey-crm/pkg/metrics"
)

// Broadcaster is the part of the websocket hub the broadcast service needs.
type Broadcaster interface {
	Broadcast(companyID, event string, payload interface{}) (int, error)
}

type RealtimeBroadcastServiceInterface interface {
	Broadcast(companyID, event string, payload interface{}) error
}

type RealtimeBroadcastService struct {
	hub     Broadcaster
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRealtimeBroadcastService(hub Broadcaster, m *metrics.Metrics, logger *zap.Logger) RealtimeBroadcastServiceInterface {
	return &RealtimeBroadcastService{hub: hub, metrics: m, logger: logger}
}

// Broadcast pushes event to the company channel. Delivery is at-most-once;
// subscribers that are offline or too slow miss it.
func (s *RealtimeBroadcastService) Broadcast(companyID, event string, payload interface{}) error {
	delivered, err := s.hub.Broadcast(companyID, event, payload)
	if err != nil {
		s.metrics.BroadcastsDropped.WithLabelValues(event).Inc()
		return err
	}
	s.metrics.BroadcastsSent.WithLabelValues(event).Add(float64(delivered))
	s.logger.Debug("realtime event broadcast",
		zap.String("companyID", companyID),
		zap.String("event", event),
		zap.Int("delivered", delivered),
	)
	return nil
}
