package websocket

import "time"

// Envelope is the frame written to subscribers.
type Envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is what a connected client may send.
type ClientMessage struct {
	Action    string `json:"action"`
	CompanyID string `json:"companyId"`
}

const (
	ActionJoinCompany  = "joinCompany"
	ActionLeaveCompany = "leaveCompany"

	EventJoined = "joined"
	EventLeft   = "left"
	EventError  = "error"
)
