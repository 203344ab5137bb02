package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// Client is one websocket connection. It may only join the channel of the
// company its token was issued for.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	UserID    string
	CompanyID string
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, companyID string, logger *zap.Logger) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		UserID:    userID,
		CompanyID: companyID,
		logger:    logger,
	}
}

func (c *Client) Deliver(message []byte) bool {
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// HandleMessage applies one client message to the hub.
func (c *Client) HandleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.Hub.Send(c, EventError, map[string]string{"message": "malformed message"})
		return
	}

	switch msg.Action {
	case ActionJoinCompany:
		if msg.CompanyID == "" || msg.CompanyID != c.CompanyID {
			c.Hub.Send(c, EventError, map[string]string{"message": "not allowed to join this company"})
			return
		}
		c.Hub.Join(c, msg.CompanyID)
		c.Hub.Send(c, EventJoined, map[string]string{"room": RoomName(msg.CompanyID)})
	case ActionLeaveCompany:
		c.Hub.Leave(c, msg.CompanyID)
		c.Hub.Send(c, EventLeft, map[string]string{"room": RoomName(msg.CompanyID)})
	default:
		c.Hub.Send(c, EventError, map[string]string{"message": "unknown action"})
	}
}

// Close removes the client from the hub and stops its writer.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Hub.Remove(c)
		close(c.Send)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket closed unexpectedly", zap.String("userID", c.UserID), zap.Error(err))
			}
			return
		}
		c.HandleMessage(raw)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
