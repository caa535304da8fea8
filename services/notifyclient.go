package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control messages
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// NotificationClient is one websocket connection to the hub
type NotificationClient struct {
	hub        *NotificationHub
	conn       *websocket.Conn
	send       chan []byte
	sendOnce   sync.Once
	userID     uint
	isAdmin    bool
	remoteAddr string
}

// clientMessage is what clients may send
type clientMessage struct {
	Type string `json:"type"`
}

// NewNotificationClient creates a client for an authenticated user
func NewNotificationClient(hub *NotificationHub, conn *websocket.Conn, userID uint, isAdmin bool, remoteAddr string) *NotificationClient {
	return &NotificationClient{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		isAdmin:    isAdmin,
		remoteAddr: remoteAddr,
	}
}

func (c *NotificationClient) accepts(evt BorrowEvent) bool {
	return c.isAdmin || evt.UserID == c.userID
}

func (c *NotificationClient) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

// ReadPump reads control messages until the connection drops
func (c *NotificationClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("remote", c.remoteAddr).Msg("⚠️ WebSocket error")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply(NotificationMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(NotificationMessage{Type: "pong"})
		default:
			c.reply(NotificationMessage{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

// WritePump writes queued notifications and keepalive pings
func (c *NotificationClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a message for this client only. It is dropped if the buffer is
// full or the hub no longer holds the client.
func (c *NotificationClient) reply(msg NotificationMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.sendTo(c, payload)
}
