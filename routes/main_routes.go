package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/controllers"
	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/websocket"
)

// Controllers groups the handlers the API is built from
type Controllers struct {
	Bookings      *controllers.BookingController
	Offers        *controllers.OfferController
	Conversations *controllers.ConversationController
	Notifications *controllers.NotificationController
	Realtime      *websocket.Handler
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, jwtSecret string, c Controllers) {
	// The socket authenticates itself, so it sits outside the JWT group
	RegisterRealtimeRoutes(e, c.Realtime)

	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware(jwtSecret))

	RegisterBookingRoutes(api, c.Bookings)
	RegisterOfferRoutes(api, c.Offers)
	RegisterConversationRoutes(api, c.Conversations)
	RegisterNotificationRoutes(api, c.Notifications)
}
