package handlers

import (
	"net/http"

	ws "ecopoints/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // sessions are token based, any origin may connect
	},
}

// NotificationsWS handles GET /api/v1/me/notifications/ws
func (h *Handlers) NotificationsWS(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("Failed to upgrade connection for user %d: %v", s.UserID, err)
		return
	}

	client := ws.NewClient(h.hub, conn, s.UserID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
