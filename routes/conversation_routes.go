package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/controllers"
)

// RegisterConversationRoutes registers the chat endpoints
func RegisterConversationRoutes(api *echo.Group, cc *controllers.ConversationController) {
	conversations := api.Group("/conversations")
	conversations.POST("/start", cc.StartConversation)
	conversations.GET("", cc.GetConversations)
	conversations.GET("/unread-count", cc.GetUnreadCount)
	conversations.GET("/:id", cc.GetConversation)
	conversations.GET("/:id/messages", cc.GetMessages)
	conversations.POST("/:id/mark-read", cc.MarkRead)
	conversations.POST("/:id/typing", cc.Typing)
	conversations.PUT("/:id/mute", cc.Mute)
	conversations.PUT("/:id/archive", cc.Archive)

	messages := api.Group("/messages")
	messages.POST("/send", cc.SendMessage)
	messages.PUT("/:id/status", cc.UpdateMessageStatus)
	messages.PUT("/:id/edit", cc.EditMessage)
	messages.DELETE("/:id", cc.DeleteMessage)
}
