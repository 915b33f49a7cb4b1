package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
)

// Stores return mongo.ErrNoDocuments when a lookup or conditional update
// matches nothing.

// UserStore reads account snapshots
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateRating(ctx context.Context, id primitive.ObjectID, rating float64, total int64) error
	UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error
	IDsByType(ctx context.Context, userType string) ([]primitive.ObjectID, error)
}

// BookingStore persists bookings
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindActiveSlot(ctx context.Context, userID, professionalID primitive.ObjectID, date, slot string, exclude *primitive.ObjectID) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingStatusChange) (*models.Booking, error)
	MarkOTPRequested(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, at time.Time) (*models.Booking, error)
	SetRating(ctx context.Context, id primitive.ObjectID, rating int, review string, at time.Time) (*models.Booking, error)
	Reschedule(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingReschedule, at time.Time) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error)
	CountByStatus(ctx context.Context, userID primitive.ObjectID) (map[models.BookingStatus]int64, error)
	RatingSummary(ctx context.Context, professionalID primitive.ObjectID) (float64, int64, error)
}

// OfferStore persists price offers
type OfferStore interface {
	Create(ctx context.Context, offer *models.PriceOffer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PriceOffer, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OfferStatus, change models.OfferStatusChange) (*models.PriceOffer, error)
	Expire(ctx context.Context, id primitive.ObjectID, now time.Time) error
	DeletePending(ctx context.Context, id primitive.ObjectID) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error)
	ListByProfessional(ctx context.Context, professionalID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error)
}

// ConversationStore persists conversation threads
type ConversationStore interface {
	FindOpen(ctx context.Context, userID, professionalID primitive.ObjectID, bookingID *primitive.ObjectID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, status models.ConversationStatus, skip, limit int64) ([]*models.Conversation, int64, error)
	RecordMessage(ctx context.Context, id, receiverID primitive.ObjectID, summary models.MessageSummary) error
	ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error
	SetMuted(ctx context.Context, id, userID primitive.ObjectID, muted bool) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ConversationStatus) error
	TotalUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// MessageStore persists messages
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	List(ctx context.Context, conversationID primitive.ObjectID, before *primitive.ObjectID, limit int64) ([]*models.Message, bool, error)
	AdvanceStatus(ctx context.Context, id primitive.ObjectID, status models.MessageStatus, at time.Time) (*models.Message, error)
	MarkSeenBefore(ctx context.Context, conversationID, senderID primitive.ObjectID, cutoff time.Time) (int64, error)
	Edit(ctx context.Context, id primitive.ObjectID, content string, at time.Time) (*models.Message, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// NotificationStore persists the notification feed and push preferences
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	InsertMany(ctx context.Context, items []*models.Notification) error
	FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error)
	List(ctx context.Context, userID primitive.ObjectID, filter models.NotificationFilter, now time.Time) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error)
	MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, userID, id primitive.ObjectID) error
	SoftDeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error)
	GetSettings(ctx context.Context, userID primitive.ObjectID) (*models.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings *models.NotificationSettings) error
}

// Transactor runs fn so that its store writes commit or fail together
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Emitter is the realtime gateway as seen by the domain services
type Emitter interface {
	EmitToUser(userID primitive.ObjectID, payload models.EventPayload) error
	EmitToTopic(topic string, payload models.EventPayload) error
	EmitToTopics(topics []string, payload models.EventPayload) error
	IsOnline(userID primitive.ObjectID) bool
}

// Pusher delivers a notification to a device
type Pusher interface {
	Push(ctx context.Context, token string, n *models.Notification) error
}

// EventPublisher mirrors domain events to an external broker
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
