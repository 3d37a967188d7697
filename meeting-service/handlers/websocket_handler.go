package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationStream upgrades a connection to the realtime event stream
type NotificationStream interface {
	ServeWS(c *gin.Context, userID uuid.UUID)
}

type WebSocketHandler struct {
	stream NotificationStream
}

func NewWebSocketHandler(stream NotificationStream) *WebSocketHandler {
	return &WebSocketHandler{stream: stream}
}

// Notifications streams realtime events for the authenticated staff user
// @Summary Realtime notifications
// @Description Upgrades to a websocket. The token may be passed as ?token= on the upgrade request.
// @Tags notifications
// @Security BearerAuth
// @Router /ws/notifications [get]
func (h *WebSocketHandler) Notifications(c *gin.Context) {
	h.stream.ServeWS(c, identityFrom(c).ID())
}
