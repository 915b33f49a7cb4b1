package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/websocket"
)

// RegisterRealtimeRoutes exposes the websocket endpoint
func RegisterRealtimeRoutes(e *echo.Echo, handler *websocket.Handler) {
	e.GET("/api/ws", handler.HandleWebSocket)
}
