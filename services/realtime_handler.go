package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
)

// RealtimeEvents applies websocket client events through the domain services
type RealtimeEvents struct {
	messaging     *MessagingService
	notifications *NotificationService
	bookings      *BookingService
}

// NewRealtimeEvents wires client events to messaging, notifications and bookings
func NewRealtimeEvents(messaging *MessagingService, notifications *NotificationService, bookings *BookingService) *RealtimeEvents {
	return &RealtimeEvents{messaging: messaging, notifications: notifications, bookings: bookings}
}

// CanJoin decides whether userID may subscribe to the topic prefix+id.
// Conversation and booking rooms are open to their parties only, user and
// offer rooms to their owner only.
func (r *RealtimeEvents) CanJoin(ctx context.Context, userID primitive.ObjectID, prefix string, id primitive.ObjectID) error {
	switch prefix {
	case models.UserTopicPrefix, models.OffersTopicPrefix:
		if id != userID {
			return models.NewForbidden("cannot subscribe to another user's room")
		}
		return nil
	case models.ConversationTopicPrefix:
		_, err := r.messaging.conversationFor(ctx, userID, id)
		return err
	case models.BookingTopicPrefix:
		_, err := r.bookings.GetBooking(ctx, userID, id)
		return err
	default:
		return models.NewForbidden("cannot subscribe to this room")
	}
}

// Typing relays a typing indicator to the conversation
func (r *RealtimeEvents) Typing(ctx context.Context, userID, conversationID primitive.ObjectID, isTyping bool) error {
	return r.messaging.Typing(ctx, userID, conversationID, isTyping)
}

// MessageSeen marks one message seen by its recipient
func (r *RealtimeEvents) MessageSeen(ctx context.Context, userID, messageID primitive.ObjectID) error {
	return r.messaging.MessageSeen(ctx, userID, messageID)
}

// NotificationRead marks one notification read
func (r *RealtimeEvents) NotificationRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return r.notifications.MarkRead(ctx, userID, notificationID)
}
