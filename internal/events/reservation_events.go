package events

const (
	ReservationCreated        = "created"
	ReservationStatusChanged  = "statusChanged"
	ReservationAssigned       = "assigned"
	ReservationPaymentUpdated = "paymentUpdated"
	ReservationPhotosSaved    = "photosSaved"
	ReservationPhotosUploaded = "photosUploaded"
)

// ReservationEventTypes lists every event a reservation use case publishes.
var ReservationEventTypes = []string{
	ReservationCreated,
	ReservationStatusChanged,
	ReservationAssigned,
	ReservationPaymentUpdated,
	ReservationPhotosSaved,
	ReservationPhotosUploaded,
}

// ReservationEvent is published after the write that produced it has
// committed. Payload is the state as of that commit.
type ReservationEvent struct {
	Type      string
	CompanyID string
	Payload   interface{}
}

func (e ReservationEvent) Name() string {
	return EventName(e.Type)
}

// EventName is the bus and websocket name of a reservation event type.
func EventName(eventType string) string {
	return "reservation:" + eventType
}
