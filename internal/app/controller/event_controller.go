package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	ws "github.com/yorunoba/nightdesk-backend/internal/websocket"
)

// EventController streams store events to browsers over websocket.
type EventController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewEventController(hub *ws.Hub, allowedOrigins []string) *EventController {
	return &EventController{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// Connect upgrades the request and subscribes it to the caller's store.
// Sessions only receive events addressed to their role or profile.
// GET /api/v1/ws?token=<access token>
func (ctrl *EventController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Warn("Failed to upgrade to websocket", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, actor)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Websocket connection established", map[string]interface{}{
		"store_id":   actor.StoreID,
		"profile_id": actor.ProfileID,
	})
}

// Sessions reports how many browsers are listening for the caller's store
// GET /api/v1/ws/sessions
func (ctrl *EventController) Sessions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ctrl.hub.SessionCount(actor.StoreID)})
}
