package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sundey-crm/internal/events"
	"sundey-crm/internal/services"
	"sundey-crm/pkg/eventbus"
)

// RealtimeListener forwards committed reservation events to the company's
// websocket channel.
type RealtimeListener struct {
	broadcaster services.RealtimeBroadcastServiceInterface
	logger      *zap.Logger
}

func NewRealtimeListener(broadcaster services.RealtimeBroadcastServiceInterface, logger *zap.Logger) *RealtimeListener {
	return &RealtimeListener{broadcaster: broadcaster, logger: logger}
}

func (l *RealtimeListener) Register(bus *eventbus.Bus) {
	for _, eventType := range events.ReservationEventTypes {
		bus.Subscribe(events.EventName(eventType), l.handleReservationEvent)
	}
	l.logger.Info("realtime listener subscribed", zap.Int("events", len(events.ReservationEventTypes)))
}

func (l *RealtimeListener) handleReservationEvent(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.ReservationEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.Name())
	}
	if e.CompanyID == "" {
		return fmt.Errorf("event %s has no company", e.Name())
	}
	return l.broadcaster.Broadcast(e.CompanyID, e.Name(), e.Payload)
}
