package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/controllers"
	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/models"
)

// RegisterNotificationRoutes registers all notification-related routes
func RegisterNotificationRoutes(api *echo.Group, nc *controllers.NotificationController) {
	notifications := api.Group("/notifications")

	adminOnly := middleware.RequireUserType(models.UserTypeAdmin)

	notifications.GET("", nc.GetNotifications)
	notifications.GET("/unread-count", nc.GetUnreadCount)
	notifications.GET("/settings/me", nc.GetSettings)
	notifications.PUT("/settings/me", nc.UpdateSettings)
	notifications.POST("/fcm-token", nc.UpdateFCMToken)
	notifications.PUT("/read-all", nc.MarkAllAsRead)
	notifications.DELETE("/clear-all", nc.ClearAll)
	notifications.POST("/send", nc.SendNotification, adminOnly)
	notifications.POST("/broadcast", nc.BroadcastNotification, adminOnly)
	notifications.GET("/:id", nc.GetNotification)
	notifications.PUT("/:id/read", nc.MarkAsRead)
	notifications.DELETE("/:id", nc.DeleteNotification)
}
