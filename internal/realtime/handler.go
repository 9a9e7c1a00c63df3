package realtime

import (
	"github.com/coder/websocket"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserIDFunc extracts the subscriber tag from the upgrade request.
type UserIDFunc func(c echo.Context) string

// Handler upgrades HTTP requests to websocket subscriptions.
type Handler struct {
	hub            *Hub
	userID         UserIDFunc
	originPatterns []string
}

// NewHandler accepts upgrades from clients that send no Origin, from the
// server's own host and from hosts matching originPatterns.
func NewHandler(hub *Hub, userID UserIDFunc, originPatterns []string) *Handler {
	return &Handler{hub: hub, userID: userID, originPatterns: originPatterns}
}

// RegisterRealtimeRoutes mounts one endpoint per namespace.
func (h *Handler) RegisterRealtimeRoutes(g *echo.Group) {
	g.GET("/ws/counters", h.Serve(NamespaceCounters))
	g.GET("/ws/notifications", h.Serve(NamespaceNotifications))
}

// Serve returns the upgrade handler for namespace.
func (h *Handler) Serve(namespace string) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := h.userID(c)

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: h.originPatterns,
		})
		if err != nil {
			logger.Log.Warn("websocket upgrade failed", zap.String("namespace", namespace), zap.Error(err))
			return nil
		}

		NewClient(h.hub, conn).Serve(namespace, userID)
		return nil
	}
}
