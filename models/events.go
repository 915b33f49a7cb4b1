package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Topic prefixes for realtime rooms
const (
	UserTopicPrefix         = "user:"
	ConversationTopicPrefix = "conversation:"
	BookingTopicPrefix      = "booking:"
	OffersTopicPrefix       = "offers:"
)

func UserTopic(id primitive.ObjectID) string         { return UserTopicPrefix + id.Hex() }
func ConversationTopic(id primitive.ObjectID) string { return ConversationTopicPrefix + id.Hex() }
func BookingTopic(id primitive.ObjectID) string      { return BookingTopicPrefix + id.Hex() }
func OffersTopic(id primitive.ObjectID) string       { return OffersTopicPrefix + id.Hex() }

// ParseTopic splits a topic into its prefix and id. ok is false for unknown
// prefixes or malformed ids.
func ParseTopic(topic string) (prefix string, id primitive.ObjectID, ok bool) {
	for _, p := range []string{UserTopicPrefix, ConversationTopicPrefix, BookingTopicPrefix, OffersTopicPrefix} {
		if strings.HasPrefix(topic, p) {
			oid, err := primitive.ObjectIDFromHex(strings.TrimPrefix(topic, p))
			if err != nil {
				return "", primitive.NilObjectID, false
			}
			return p, oid, true
		}
	}
	return "", primitive.NilObjectID, false
}

// Server to client event names
const (
	EventConnected            = "connected"
	EventNewNotification      = "new_notification"
	EventNotificationRead     = "notification_read"
	EventNewMessage           = "new_message"
	EventMessageStatusChanged = "message_status_changed"
	EventMessageEdited        = "message_edited"
	EventMessageDeleted       = "message_deleted"
	EventMessagesRead         = "messages_read"
	EventUserTyping           = "user_typing"
	EventError                = "error"
)

// Client to server event names
const (
	ClientAuthenticate = "authenticate"
	ClientJoinRoom     = "join_room"
	ClientLeaveRoom    = "leave_room"
	ClientTyping       = "typing"
	ClientMessageSeen  = "message_seen"
	ClientMarkRead     = "mark_read"
)

// EventPayload is implemented by every realtime payload type. The event name
// is derived from the payload so producers cannot pair a name with the wrong shape.
type EventPayload interface {
	EventName() string
}

// Event is the frame written to clients
type Event struct {
	Event     string       `json:"event"`
	Data      EventPayload `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewEvent stamps a payload for delivery
func NewEvent(payload EventPayload, now time.Time) Event {
	return Event{Event: payload.EventName(), Data: payload, Timestamp: now.UTC()}
}

// ClientEvent is a frame received from a client. Data is decoded per event.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ConnectedEvent confirms authentication on a connection
type ConnectedEvent struct {
	UserID       primitive.ObjectID `json:"userId"`
	ConnectionID string             `json:"connectionId"`
}

func (ConnectedEvent) EventName() string { return EventConnected }

// ErrorEvent reports a rejected client frame
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string { return EventError }

// NotificationEvent carries a newly stored notification
type NotificationEvent struct {
	Notification *Notification `json:"notification"`
}

func (NotificationEvent) EventName() string { return EventNewNotification }

// NotificationReadEvent confirms a notification was marked read
type NotificationReadEvent struct {
	NotificationID primitive.ObjectID `json:"notificationId"`
}

func (NotificationReadEvent) EventName() string { return EventNotificationRead }

// MessageEvent carries a newly sent message
type MessageEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	Message        *Message           `json:"message"`
}

func (MessageEvent) EventName() string { return EventNewMessage }

// MessageStatusEvent reports a delivery status change
type MessageStatusEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	MessageID      primitive.ObjectID `json:"messageId"`
	Status         MessageStatus      `json:"status"`
}

func (MessageStatusEvent) EventName() string { return EventMessageStatusChanged }

// MessageEditedEvent carries the edited message
type MessageEditedEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	Message        *Message           `json:"message"`
}

func (MessageEditedEvent) EventName() string { return EventMessageEdited }

// MessageDeletedEvent announces a tombstoned message
type MessageDeletedEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	MessageID      primitive.ObjectID `json:"messageId"`
}

func (MessageDeletedEvent) EventName() string { return EventMessageDeleted }

// MessagesReadEvent announces a bulk mark-read
type MessagesReadEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	ReaderID       primitive.ObjectID `json:"readerId"`
	Count          int64              `json:"count"`
}

func (MessagesReadEvent) EventName() string { return EventMessagesRead }

// TypingEvent is a transient typing indicator
type TypingEvent struct {
	ConversationID primitive.ObjectID `json:"conversationId"`
	UserID         primitive.ObjectID `json:"userId"`
	IsTyping       bool               `json:"isTyping"`
}

func (TypingEvent) EventName() string { return EventUserTyping }

// BookingEventKind names a booking announcement
type BookingEventKind string

const (
	BookingStatusUpdate     BookingEventKind = "booking_status_update"
	BookingConfirmedEvent   BookingEventKind = "booking_confirmed"
	BookingAcceptedEvent    BookingEventKind = "booking_accepted"
	BookingRejectedEvent    BookingEventKind = "booking_rejected"
	BookingOTPRequested     BookingEventKind = "otp_requested"
	BookingWorkStarted      BookingEventKind = "work_started"
	BookingWorkCompleted    BookingEventKind = "work_completed"
	BookingCancelledEvent   BookingEventKind = "booking_cancelled"
	BookingRescheduledEvent BookingEventKind = "booking_rescheduled"
	BookingRatedEvent       BookingEventKind = "booking_rated"
)

// BookingEvent carries a booking state change. Booking never includes the
// service start code.
type BookingEvent struct {
	Kind      BookingEventKind   `json:"kind"`
	BookingID primitive.ObjectID `json:"bookingId"`
	Status    BookingStatus      `json:"status"`
	Booking   *Booking           `json:"booking"`
}

func (e BookingEvent) EventName() string { return string(e.Kind) }

// OfferEventKind names an offer announcement
type OfferEventKind string

const (
	OfferNewEvent       OfferEventKind = "new_offer"
	OfferAcceptedEvent  OfferEventKind = "offer_accepted"
	OfferRejectedEvent  OfferEventKind = "offer_rejected"
	OfferCancelledEvent OfferEventKind = "offer_cancelled"
	OfferRevokedEvent   OfferEventKind = "offer_revoked"
)

// OfferEvent carries an offer state change
type OfferEvent struct {
	Kind    OfferEventKind     `json:"kind"`
	OfferID primitive.ObjectID `json:"offerId"`
	Status  OfferStatus        `json:"status"`
	Offer   *PriceOffer        `json:"offer"`
}

func (e OfferEvent) EventName() string { return string(e.Kind) }

// Inbound payloads

// RoomRequest is the payload of join_room and leave_room
type RoomRequest struct {
	Room string `json:"room"`
}

// AuthenticateRequest is the payload of authenticate
type AuthenticateRequest struct {
	Token string `json:"token"`
}

// TypingClientRequest is the payload of typing
type TypingClientRequest struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// MessageSeenRequest is the payload of message_seen
type MessageSeenRequest struct {
	MessageID string `json:"messageId"`
}

// MarkReadRequest is the payload of mark_read
type MarkReadRequest struct {
	NotificationID string `json:"notificationId"`
}
