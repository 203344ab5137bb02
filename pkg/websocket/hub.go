package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Subscriber receives encoded envelopes. Deliver must not block; it
// returns false when the message was dropped.
type Subscriber interface {
	Deliver(message []byte) bool
}

// RoomName is the channel name of a company.
func RoomName(companyID string) string {
	return "company:" + companyID
}

// Hub keeps the company channel membership. Join, Leave and Remove are the
// only mutators. Delivery is at-most-once: a subscriber whose buffer is
// full misses the message and nothing is replayed.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[Subscriber]struct{}
	memberOf map[Subscriber]map[string]struct{}
	logger   *zap.Logger
	now      func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[Subscriber]struct{}),
		memberOf: make(map[Subscriber]map[string]struct{}),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *Hub) Join(sub Subscriber, companyID string) {
	room := RoomName(companyID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Subscriber]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	if h.memberOf[sub] == nil {
		h.memberOf[sub] = make(map[string]struct{})
	}
	h.memberOf[sub][room] = struct{}{}
}

func (h *Hub) Leave(sub Subscriber, companyID string) {
	room := RoomName(companyID)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(sub, room)
}

// Remove drops sub from every channel. After Remove returns no Broadcast
// is delivering to sub.
func (h *Hub) Remove(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.memberOf[sub] {
		h.leaveLocked(sub, room)
	}
	delete(h.memberOf, sub)
}

func (h *Hub) leaveLocked(sub Subscriber, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.memberOf[sub]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.memberOf, sub)
		}
	}
}

// Broadcast sends event to every subscriber of the company channel and
// returns how many accepted it.
func (h *Hub) Broadcast(companyID, event string, payload interface{}) (int, error) {
	message, err := json.Marshal(Envelope{Event: event, Payload: payload, Timestamp: h.now()})
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.rooms[RoomName(companyID)] {
		if sub.Deliver(message) {
			delivered++
			continue
		}
		h.logger.Warn("websocket subscriber buffer full, message dropped",
			zap.String("companyID", companyID),
			zap.String("event", event),
		)
	}
	return delivered, nil
}

// Send writes one envelope to a single subscriber.
func (h *Hub) Send(sub Subscriber, event string, payload interface{}) bool {
	message, err := json.Marshal(Envelope{Event: event, Payload: payload, Timestamp: h.now()})
	if err != nil {
		return false
	}
	return sub.Deliver(message)
}

func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomName(companyID)])
}

func (h *Hub) IsMember(sub Subscriber, companyID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[RoomName(companyID)][sub]
	return ok
}
