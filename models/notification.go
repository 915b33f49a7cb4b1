package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of domain events stored in the feed
type NotificationType string

const (
	// Booking, customer side
	NotifyBookingConfirmed     NotificationType = "booking_confirmed"
	NotifyBookingCancelled     NotificationType = "booking_cancelled"
	NotifyBookingRescheduled   NotificationType = "booking_rescheduled"
	NotifyBookingCompleted     NotificationType = "booking_completed"
	NotifyBookingStarted       NotificationType = "booking_started"
	NotifyBookingAccepted      NotificationType = "booking_accepted"
	NotifyBookingRejected      NotificationType = "booking_rejected"
	NotifyProfessionalAssigned NotificationType = "professional_assigned"
	NotifyProfessionalOnWay    NotificationType = "professional_on_way"
	NotifyProfessionalArrived  NotificationType = "professional_arrived"
	NotifyOTPGenerated         NotificationType = "otp_generated"
	NotifyRateService          NotificationType = "rate_service"

	// Booking, professional side
	NotifyNewBookingRequest        NotificationType = "new_booking_request"
	NotifyBookingCancelledByUser   NotificationType = "booking_cancelled_by_user"
	NotifyBookingRescheduledByUser NotificationType = "booking_rescheduled_by_user"
	NotifyUserSharedOTP            NotificationType = "user_shared_otp"
	NotifyNewReviewReceived        NotificationType = "new_review_received"

	// Payment
	NotifyPaymentSuccess  NotificationType = "payment_success"
	NotifyPaymentFailed   NotificationType = "payment_failed"
	NotifyRefundInitiated NotificationType = "refund_initiated"
	NotifyRefundCompleted NotificationType = "refund_completed"

	// Offers and messaging
	NotifyNewOffer       NotificationType = "new_offer"
	NotifyOfferAccepted  NotificationType = "offer_accepted"
	NotifyOfferRejected  NotificationType = "offer_rejected"
	NotifyOfferCancelled NotificationType = "offer_cancelled"
	NotifyOfferRevoked   NotificationType = "offer_revoked"
	NotifyOfferExpiring  NotificationType = "offer_expiring"
	NotifyNewMessage     NotificationType = "new_message"

	// Generic
	NotifyWelcome NotificationType = "welcome"
	NotifyInfo    NotificationType = "info"
	NotifyAlert   NotificationType = "alert"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
)

// NotificationCategory groups types for filtering and preferences
type NotificationCategory string

const (
	CategoryBooking     NotificationCategory = "booking"
	CategoryPayment     NotificationCategory = "payment"
	CategoryOffer       NotificationCategory = "offer"
	CategoryAccount     NotificationCategory = "account"
	CategorySystem      NotificationCategory = "system"
	CategoryPromotional NotificationCategory = "promotional"
)

// NotificationPriority values
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// NotificationData is the structured payload attached to a notification.
// Producers fill only the fields relevant to their event.
type NotificationData struct {
	BookingID        *primitive.ObjectID `json:"bookingId,omitempty" bson:"bookingId,omitempty"`
	BookingIDDisplay string              `json:"bookingIdDisplay,omitempty" bson:"bookingIdDisplay,omitempty"`
	OfferID          *primitive.ObjectID `json:"offerId,omitempty" bson:"offerId,omitempty"`
	ConversationID   *primitive.ObjectID `json:"conversationId,omitempty" bson:"conversationId,omitempty"`
	MessageID        *primitive.ObjectID `json:"messageId,omitempty" bson:"messageId,omitempty"`
	CounterpartyID   *primitive.ObjectID `json:"counterpartyId,omitempty" bson:"counterpartyId,omitempty"`
	CounterpartyName string              `json:"counterpartyName,omitempty" bson:"counterpartyName,omitempty"`
	ServiceName      string              `json:"serviceName,omitempty" bson:"serviceName,omitempty"`
	ScheduledDate    string              `json:"scheduledDate,omitempty" bson:"scheduledDate,omitempty"`
	ScheduledTime    string              `json:"scheduledTime,omitempty" bson:"scheduledTime,omitempty"`
	OTP              string              `json:"otp,omitempty" bson:"otp,omitempty"`
	Price            *float64            `json:"price,omitempty" bson:"price,omitempty"`
	Rating           *int                `json:"rating,omitempty" bson:"rating,omitempty"`
	Reason           string              `json:"reason,omitempty" bson:"reason,omitempty"`
	Status           string              `json:"status,omitempty" bson:"status,omitempty"`
}

// Notification model
type Notification struct {
	ID         primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID   `json:"userId" bson:"userId"`
	Type       NotificationType     `json:"type" bson:"type"`
	Category   NotificationCategory `json:"category" bson:"category"`
	Priority   NotificationPriority `json:"priority" bson:"priority"`
	Title      string               `json:"title" bson:"title"`
	Message    string               `json:"message" bson:"message"`
	Data       *NotificationData    `json:"data,omitempty" bson:"data,omitempty"`
	ActionURL  string               `json:"actionUrl,omitempty" bson:"actionUrl,omitempty"`
	ActionText string               `json:"actionText,omitempty" bson:"actionText,omitempty"`
	Icon       string               `json:"icon,omitempty" bson:"icon,omitempty"`
	IsRead     bool                 `json:"isRead" bson:"isRead"`
	ReadAt     *time.Time           `json:"readAt,omitempty" bson:"readAt,omitempty"`
	IsDeleted  bool                 `json:"isDeleted" bson:"isDeleted"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
	ExpiresAt  *time.Time           `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// NotificationInput is what producers hand to the notification store
type NotificationInput struct {
	UserID     primitive.ObjectID
	Type       NotificationType
	Category   NotificationCategory
	Priority   NotificationPriority
	Title      string
	Message    string
	Data       *NotificationData
	ActionURL  string
	ActionText string
	Icon       string
	ExpiresAt  *time.Time
}

// SendNotificationRequest is an operator's direct notification to one user
type SendNotificationRequest struct {
	UserID     string               `json:"userId" validate:"required"`
	Type       NotificationType     `json:"type" validate:"required"`
	Category   NotificationCategory `json:"category,omitempty"`
	Priority   NotificationPriority `json:"priority,omitempty"`
	Title      string               `json:"title" validate:"required,max=200"`
	Message    string               `json:"message" validate:"required,max=1000"`
	ActionURL  string               `json:"actionUrl,omitempty"`
	ActionText string               `json:"actionText,omitempty"`
	Icon       string               `json:"icon,omitempty"`
	ExpiresAt  *time.Time           `json:"expiresAt,omitempty"`
}

// BroadcastRequest sends one announcement to many users. An empty UserIDs
// targets every customer.
type BroadcastRequest struct {
	Title     string               `json:"title" validate:"required,max=200"`
	Message   string               `json:"message" validate:"required,max=1000"`
	Type      NotificationType     `json:"type,omitempty"`
	Category  NotificationCategory `json:"category,omitempty"`
	ActionURL string               `json:"actionUrl,omitempty"`
	UserIDs   []string             `json:"userIds,omitempty"`
}

// BroadcastResult reports how many users a broadcast reached
type BroadcastResult struct {
	Count int `json:"count"`
}

// NotificationFilter narrows the feed listing
type NotificationFilter struct {
	Category NotificationCategory
	IsRead   *bool
	Page     int64
	Limit    int64
}

// NotificationList is a page of the feed
type NotificationList struct {
	Notifications []*Notification `json:"notifications"`
	Total         int64           `json:"total"`
	UnreadCount   int64           `json:"unreadCount"`
	Page          int64           `json:"page"`
	Limit         int64           `json:"limit"`
}

// NotificationSettings are per-user push preferences
type NotificationSettings struct {
	UserID                   primitive.ObjectID `json:"userId" bson:"userId"`
	PushEnabled              bool               `json:"pushEnabled" bson:"pushEnabled"`
	BookingNotifications     bool               `json:"bookingNotifications" bson:"bookingNotifications"`
	PaymentNotifications     bool               `json:"paymentNotifications" bson:"paymentNotifications"`
	OfferNotifications       bool               `json:"offerNotifications" bson:"offerNotifications"`
	PromotionalNotifications bool               `json:"promotionalNotifications" bson:"promotionalNotifications"`
	SystemNotifications      bool               `json:"systemNotifications" bson:"systemNotifications"`
	QuietHoursEnabled        bool               `json:"quietHoursEnabled" bson:"quietHoursEnabled"`
	QuietHoursStart          string             `json:"quietHoursStart" bson:"quietHoursStart" validate:"omitempty,datetime=15:04"`
	QuietHoursEnd            string             `json:"quietHoursEnd" bson:"quietHoursEnd" validate:"omitempty,datetime=15:04"`
	UpdatedAt                time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DefaultNotificationSettings applies when the user never saved preferences
func DefaultNotificationSettings(userID primitive.ObjectID) *NotificationSettings {
	return &NotificationSettings{
		UserID:                   userID,
		PushEnabled:              true,
		BookingNotifications:     true,
		PaymentNotifications:     true,
		OfferNotifications:       true,
		PromotionalNotifications: true,
		SystemNotifications:      true,
		QuietHoursStart:          "22:00",
		QuietHoursEnd:            "08:00",
	}
}

// AllowsPush decides whether a notification may be pushed to a device.
// Urgent notifications ignore quiet hours.
func (s *NotificationSettings) AllowsPush(n *Notification, now time.Time) bool {
	if !s.PushEnabled {
		return false
	}
	switch n.Category {
	case CategoryBooking:
		if !s.BookingNotifications {
			return false
		}
	case CategoryPayment:
		if !s.PaymentNotifications {
			return false
		}
	case CategoryOffer:
		if !s.OfferNotifications {
			return false
		}
	case CategoryPromotional:
		if !s.PromotionalNotifications {
			return false
		}
	case CategorySystem:
		if !s.SystemNotifications {
			return false
		}
	}
	if s.QuietHoursEnabled && n.Priority != PriorityUrgent {
		return !inQuietHours(s.QuietHoursStart, s.QuietHoursEnd, now)
	}
	return true
}

func inQuietHours(start, end string, now time.Time) bool {
	from, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	to, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	fromMin := from.Hour()*60 + from.Minute()
	toMin := to.Hour()*60 + to.Minute()
	if fromMin <= toMin {
		return minute >= fromMin && minute < toMin
	}
	// window wraps midnight
	return minute >= fromMin || minute < toMin
}
