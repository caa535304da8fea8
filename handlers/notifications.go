package handlers

import (
	"net/http"

	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, the token is the gate
	},
}

// HandleNotificationWebSocket streams borrow events to an authenticated client.
// Browsers cannot set headers on websocket requests, so the token comes in the query.
func HandleNotificationWebSocket(c *gin.Context) {
	if notifyHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notification hub not initialized"})
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}
	user, err := authenticateToken(c, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ WebSocket upgrade failed")
		return
	}

	client := services.NewNotificationClient(notifyHub, conn, user.ID, user.IsAdmin(), c.ClientIP())
	notifyHub.Register(client)

	// Start goroutines for reading and writing
	go client.WritePump()
	go client.ReadPump()
}
