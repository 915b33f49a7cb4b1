package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingAccepted  BookingStatus = "accepted"
	BookingOngoing   BookingStatus = "ongoing"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// ActiveBookingStatuses are the non-terminal states used by the duplicate slot check
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingAccepted, BookingOngoing}

// Who cancelled a booking
const (
	CancelledByUser         = "user"
	CancelledByProfessional = "professional"
)

// Booking model
type Booking struct {
	ID                 primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	UserID             primitive.ObjectID     `json:"userId" bson:"userId"`
	ProfessionalID     primitive.ObjectID     `json:"professionalId" bson:"professionalId"`
	ServiceID          *primitive.ObjectID    `json:"serviceId,omitempty" bson:"serviceId,omitempty"`
	ServiceType        string                 `json:"serviceType" bson:"serviceType"`
	ServiceName        string                 `json:"serviceName,omitempty" bson:"serviceName,omitempty"`
	Category           string                 `json:"category" bson:"category"`
	Description        string                 `json:"description,omitempty" bson:"description,omitempty"`
	ScheduledDate      string                 `json:"scheduledDate" bson:"scheduledDate"`
	ScheduledTime      string                 `json:"scheduledTime" bson:"scheduledTime"`
	Address            map[string]interface{} `json:"address,omitempty" bson:"address,omitempty"`
	Price              float64                `json:"price" bson:"price"`
	PaymentMethod      string                 `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus      string                 `json:"paymentStatus" bson:"paymentStatus"`
	OTP                string                 `json:"otp,omitempty" bson:"otp"`
	Status             BookingStatus          `json:"status" bson:"status"`
	BookingIDDisplay   string                 `json:"bookingIdDisplay" bson:"bookingIdDisplay"`
	Notes              string                 `json:"notes,omitempty" bson:"notes,omitempty"`
	AcceptedAt         *time.Time             `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
	OTPRequestedAt     *time.Time             `json:"otpRequestedAt,omitempty" bson:"otpRequestedAt,omitempty"`
	StartedAt          *time.Time             `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CancelledAt        *time.Time             `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	RejectedAt         *time.Time             `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
	CancellationReason string                 `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	CancelledBy        string                 `json:"cancelledBy,omitempty" bson:"cancelledBy,omitempty"`
	RefundStatus       string                 `json:"refundStatus,omitempty" bson:"refundStatus,omitempty"`
	Rating             *int                   `json:"rating,omitempty" bson:"rating,omitempty"`
	Review             string                 `json:"review,omitempty" bson:"review,omitempty"`
	RatedAt            *time.Time             `json:"ratedAt,omitempty" bson:"ratedAt,omitempty"`
	CreatedAt          time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// IsParty reports whether the user is the customer or the professional on the booking
func (b *Booking) IsParty(userID primitive.ObjectID) bool {
	return b.UserID == userID || b.ProfessionalID == userID
}

// DisplayServiceName picks the most specific label for notifications
func (b *Booking) DisplayServiceName() string {
	if b.ServiceName != "" {
		return b.ServiceName
	}
	if b.ServiceType != "" {
		return b.ServiceType
	}
	return "Service"
}

// ViewFor returns a copy of the booking suitable for the given viewer.
// Only the customer sees the service start code.
func (b *Booking) ViewFor(viewerID primitive.ObjectID) *Booking {
	view := *b
	if viewerID != b.UserID {
		view.OTP = ""
	}
	return &view
}

// Public returns a copy with the service start code removed, for broadcast
func (b *Booking) Public() *Booking {
	view := *b
	view.OTP = ""
	return &view
}

var categoryPrefixes = map[string]string{
	"Electrical":         "ELX",
	"Plumbing":           "PLB",
	"Cleaning":           "CLN",
	"Appliance":          "APL",
	"AC & Refrigeration": "ACR",
	"Carpentry":          "CAR",
	"Painting":           "PNT",
	"Pest Control":       "PST",
	"Home Renovation":    "HMR",
	"Security Systems":   "SEC",
	"Solar Installation": "SOL",
}

// CategoryPrefix returns the three letter code used in display ids
func CategoryPrefix(category string) string {
	if prefix, ok := categoryPrefixes[category]; ok {
		return prefix
	}
	return "SRV"
}

// BookingDisplayID builds the human readable id, e.g. #PLB-A1B2C3
func BookingDisplayID(category string, id primitive.ObjectID) string {
	hex := id.Hex()
	return fmt.Sprintf("#%s-%s", CategoryPrefix(category), strings.ToUpper(hex[len(hex)-6:]))
}

// BookingStatusChange describes a conditional status write
type BookingStatusChange struct {
	To           BookingStatus
	At           time.Time
	CancelledBy  string
	Reason       string
	RefundStatus string
	Rejected     bool
}

// BookingReschedule holds the customer editable slot fields
type BookingReschedule struct {
	ScheduledDate string
	ScheduledTime string
	Address       map[string]interface{}
	Notes         *string
}

// BookingFilter narrows booking listings
type BookingFilter struct {
	UserID         *primitive.ObjectID
	ProfessionalID *primitive.ObjectID
	Statuses       []BookingStatus
	Category       string
	Search         string
	Skip           int64
	Limit          int64
}

// BookingRequest model
type BookingRequest struct {
	ProfessionalID string                 `json:"professionalId" validate:"required"`
	ServiceID      string                 `json:"serviceId,omitempty"`
	ServiceType    string                 `json:"serviceType,omitempty"`
	ServiceName    string                 `json:"serviceName,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Description    string                 `json:"description,omitempty"`
	ScheduledDate  string                 `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	ScheduledTime  string                 `json:"scheduledTime" validate:"required,datetime=15:04"`
	Address        map[string]interface{} `json:"address,omitempty"`
	Price          float64                `json:"price" validate:"gte=0"`
	PaymentMethod  string                 `json:"paymentMethod,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
}

// StartBookingRequest carries the code the customer reads out
type StartBookingRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// CancelBookingRequest model
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// RateBookingRequest model
type RateBookingRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review,omitempty" validate:"max=2000"`
}

// RescheduleBookingRequest model
type RescheduleBookingRequest struct {
	ScheduledDate string                 `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime string                 `json:"scheduledTime,omitempty" validate:"omitempty,datetime=15:04"`
	Address       map[string]interface{} `json:"address,omitempty"`
	Notes         *string                `json:"notes,omitempty"`
}

// BookingStatusCounts are returned with the customer's booking list
type BookingStatusCounts struct {
	All       int64 `json:"all"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Upcoming  int64 `json:"upcoming"`
	Accepted  int64 `json:"accepted"`
	Ongoing   int64 `json:"ongoing"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

// BookingList is the paginated booking listing
type BookingList struct {
	Bookings     []*Booking           `json:"bookings"`
	Total        int64                `json:"total"`
	StatusCounts *BookingStatusCounts `json:"statusCounts,omitempty"`
	Skip         int64                `json:"skip"`
	Limit        int64                `json:"limit"`
}
