package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/services"
)

// ConversationController handles conversation and message endpoints
type ConversationController struct {
	messaging *services.MessagingService
}

func NewConversationController(messaging *services.MessagingService) *ConversationController {
	return &ConversationController{messaging: messaging}
}

// StartConversation returns the open thread with a participant, creating it if needed
func (cc *ConversationController) StartConversation(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.StartConversationRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	otherID, err := primitive.ObjectIDFromHex(req.ParticipantID)
	if err != nil {
		return respondError(c, models.NewValidation("Invalid participant ID"))
	}
	var bookingID *primitive.ObjectID
	if req.BookingID != "" {
		id, err := primitive.ObjectIDFromHex(req.BookingID)
		if err != nil {
			return respondError(c, models.NewValidation("Invalid booking ID"))
		}
		bookingID = &id
	}

	conv, created, err := cc.messaging.GetOrCreateConversation(c.Request().Context(), userID, otherID, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	if created {
		return respond(c, http.StatusCreated, "Conversation created", conv)
	}
	return respond(c, http.StatusOK, "Conversation retrieved", conv)
}

// GetConversations lists the caller's conversations
func (cc *ConversationController) GetConversations(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := cc.messaging.ListConversations(c.Request().Context(), userID,
		models.ConversationStatus(c.QueryParam("status")),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 20),
	)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Conversations retrieved successfully", list)
}

// GetConversation returns one conversation
func (cc *ConversationController) GetConversation(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	conv, err := cc.messaging.GetConversation(c.Request().Context(), userID, convID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Conversation retrieved", conv)
}

// GetMessages pages through a conversation, oldest first
func (cc *ConversationController) GetMessages(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var before *primitive.ObjectID
	if v := c.QueryParam("before"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return respondError(c, models.NewValidation("Invalid before cursor"))
		}
		before = &id
	}

	list, err := cc.messaging.ListMessages(c.Request().Context(), userID, convID, before, queryInt(c, "limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Messages retrieved successfully", list)
}

// MarkRead marks the other participant's messages as seen
func (cc *ConversationController) MarkRead(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	marked, err := cc.messaging.MarkConversationRead(c.Request().Context(), userID, convID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Conversation marked as read", map[string]int64{"markedCount": marked})
}

// Typing relays a typing indicator over HTTP for clients without a socket
func (cc *ConversationController) Typing(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.TypingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := cc.messaging.Typing(c.Request().Context(), userID, convID, req.IsTyping); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Typing status sent", nil)
}

// Mute toggles notifications for the caller in this conversation
func (cc *ConversationController) Mute(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.MuteRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := cc.messaging.SetMuted(c.Request().Context(), userID, convID, req.Muted); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Conversation updated", map[string]bool{"muted": req.Muted})
}

// Archive hides the conversation from the active list
func (cc *ConversationController) Archive(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	convID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := cc.messaging.Archive(c.Request().Context(), userID, convID); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Conversation archived", nil)
}

// GetUnreadCount sums unread messages across the caller's conversations
func (cc *ConversationController) GetUnreadCount(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	total, err := cc.messaging.TotalUnread(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Unread count retrieved", map[string]int64{"unreadCount": total})
}

// SendMessage posts a message into a conversation
func (cc *ConversationController) SendMessage(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	convID, err := primitive.ObjectIDFromHex(req.ConversationID)
	if err != nil {
		return respondError(c, models.NewValidation("Invalid conversation ID"))
	}
	in := models.MessageInput{
		Type:         req.Type,
		Content:      req.Content,
		ImageData:    req.ImageData,
		LocationData: req.LocationData,
	}
	if req.ReplyTo != "" {
		id, err := primitive.ObjectIDFromHex(req.ReplyTo)
		if err != nil {
			return respondError(c, models.NewValidation("Invalid reply target"))
		}
		in.ReplyTo = &id
	}

	msg, err := cc.messaging.SendMessage(c.Request().Context(), userID, convID, in)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Message sent", msg)
}

// UpdateMessageStatus advances a received message to delivered or seen
func (cc *ConversationController) UpdateMessageStatus(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	msgID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.UpdateMessageStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := cc.messaging.UpdateStatus(c.Request().Context(), userID, msgID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Message status updated", msg)
}

// EditMessage changes the text of the caller's message
func (cc *ConversationController) EditMessage(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	msgID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.EditMessageRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := cc.messaging.EditMessage(c.Request().Context(), userID, msgID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Message edited", msg)
}

// DeleteMessage tombstones the caller's message
func (cc *ConversationController) DeleteMessage(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	msgID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := cc.messaging.DeleteMessage(c.Request().Context(), userID, msgID); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Message deleted", nil)
}
