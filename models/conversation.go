package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationStatus values
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	ConversationClosed   ConversationStatus = "closed"
)

// Participant roles
const (
	RoleUser         = "user"
	RoleProfessional = "professional"
)

// LastMessagePreviewLength caps the denormalized last message summary
const LastMessagePreviewLength = 100

// Participant is a profile snapshot plus per-participant thread state
type Participant struct {
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	Role        string             `json:"role" bson:"role"`
	Name        string             `json:"name" bson:"name"`
	Photo       string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Phone       string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsOnline    bool               `json:"isOnline" bson:"isOnline"`
	LastSeen    *time.Time         `json:"lastSeen,omitempty" bson:"lastSeen,omitempty"`
	UnreadCount int                `json:"unreadCount" bson:"unreadCount"`
	IsMuted     bool               `json:"isMuted" bson:"isMuted"`
	IsBlocked   bool               `json:"isBlocked" bson:"isBlocked"`
	JoinedAt    time.Time          `json:"joinedAt" bson:"joinedAt"`
}

// BookingReference is a denormalized booking summary shown in the thread header
type BookingReference struct {
	BookingID     primitive.ObjectID     `json:"bookingId" bson:"bookingId"`
	ServiceName   string                 `json:"serviceName" bson:"serviceName"`
	ServiceType   string                 `json:"serviceType" bson:"serviceType"`
	ScheduledDate string                 `json:"scheduledDate" bson:"scheduledDate"`
	ScheduledTime string                 `json:"scheduledTime" bson:"scheduledTime"`
	Status        BookingStatus          `json:"status" bson:"status"`
	Price         float64                `json:"price" bson:"price"`
	Address       map[string]interface{} `json:"address,omitempty" bson:"address,omitempty"`
}

// Conversation is the thread between one customer and one professional
type Conversation struct {
	ID                  primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID              primitive.ObjectID  `json:"userId" bson:"userId"`
	ProfessionalID      primitive.ObjectID  `json:"professionalId" bson:"professionalId"`
	BookingID           *primitive.ObjectID `json:"bookingId,omitempty" bson:"bookingId"`
	Participants        []Participant       `json:"participants" bson:"participants"`
	BookingReference    *BookingReference   `json:"bookingReference,omitempty" bson:"bookingReference,omitempty"`
	Status              ConversationStatus  `json:"status" bson:"status"`
	LastMessageContent  string              `json:"lastMessageContent,omitempty" bson:"lastMessageContent,omitempty"`
	LastMessageType     MessageType         `json:"lastMessageType,omitempty" bson:"lastMessageType,omitempty"`
	LastMessageSenderID *primitive.ObjectID `json:"lastMessageSenderId,omitempty" bson:"lastMessageSenderId,omitempty"`
	LastMessageAt       *time.Time          `json:"lastMessageAt,omitempty" bson:"lastMessageAt,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Participant returns the participant entry for userID
func (c *Conversation) Participant(userID primitive.ObjectID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// Other returns the participant who is not userID
func (c *Conversation) Other(userID primitive.ObjectID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// MessageSummary is the denormalized last message written with each send
type MessageSummary struct {
	Content  string
	Type     MessageType
	SenderID primitive.ObjectID
	At       time.Time
}

// MessageType values
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageLocation MessageType = "location"
	MessageSystem   MessageType = "system"
)

// MessageStatus is monotonic: sent < delivered < seen
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageSeen      MessageStatus = "seen"
)

// Rank orders statuses so updates never move backwards
func (s MessageStatus) Rank() int {
	switch s {
	case MessageSent:
		return 1
	case MessageDelivered:
		return 2
	case MessageSeen:
		return 3
	}
	return 0
}

// DeletedMessageContent replaces the body of a soft deleted message
const DeletedMessageContent = "This message was deleted"

// ImageData is the payload of an image message
type ImageData struct {
	URL          string `json:"url" bson:"url" validate:"required,url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	Width        int    `json:"width,omitempty" bson:"width,omitempty"`
	Height       int    `json:"height,omitempty" bson:"height,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty" bson:"fileSize,omitempty"`
}

// LocationData is the payload of a location message
type LocationData struct {
	Lat     float64 `json:"lat" bson:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `json:"lng" bson:"lng" validate:"gte=-180,lte=180"`
	Address string  `json:"address,omitempty" bson:"address,omitempty"`
	Label   string  `json:"label,omitempty" bson:"label,omitempty"`
}

// Message belongs to exactly one conversation
type Message struct {
	ID             primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID  `json:"conversationId" bson:"conversationId"`
	SenderID       primitive.ObjectID  `json:"senderId" bson:"senderId"`
	SenderRole     string              `json:"senderRole" bson:"senderRole"`
	Type           MessageType         `json:"type" bson:"type"`
	Content        string              `json:"content" bson:"content"`
	ImageData      *ImageData          `json:"imageData,omitempty" bson:"imageData,omitempty"`
	LocationData   *LocationData       `json:"locationData,omitempty" bson:"locationData,omitempty"`
	ReplyTo        *primitive.ObjectID `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	Status         MessageStatus       `json:"status" bson:"status"`
	DeliveredAt    *time.Time          `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	SeenAt         *time.Time          `json:"seenAt,omitempty" bson:"seenAt,omitempty"`
	IsDeleted      bool                `json:"isDeleted" bson:"isDeleted"`
	DeletedAt      *time.Time          `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	EditedAt       *time.Time          `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
}

// MessageInput is a validated send request
type MessageInput struct {
	Type         MessageType
	Content      string
	ImageData    *ImageData
	LocationData *LocationData
	ReplyTo      *primitive.ObjectID
}

// StartConversationRequest model
type StartConversationRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	BookingID     string `json:"bookingId,omitempty"`
}

// SendMessageRequest model
type SendMessageRequest struct {
	ConversationID string        `json:"conversationId" validate:"required"`
	Type           MessageType   `json:"type" validate:"omitempty,oneof=text image location"`
	Content        string        `json:"content" validate:"max=5000"`
	ImageData      *ImageData    `json:"imageData,omitempty"`
	LocationData   *LocationData `json:"locationData,omitempty"`
	ReplyTo        string        `json:"replyTo,omitempty"`
}

// UpdateMessageStatusRequest model
type UpdateMessageStatusRequest struct {
	Status MessageStatus `json:"status" validate:"required,oneof=delivered seen"`
}

// EditMessageRequest model
type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// TypingRequest model
type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

// MuteRequest model
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// ConversationList is the paginated conversation listing
type ConversationList struct {
	Conversations []*Conversation `json:"conversations"`
	Total         int64           `json:"total"`
	Page          int64           `json:"page"`
	Limit         int64           `json:"limit"`
}

// MessageList is a page of messages in ascending order
type MessageList struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"hasMore"`
}
