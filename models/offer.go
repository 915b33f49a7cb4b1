package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferStatus is the lifecycle state of a price offer
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// OfferLifetime is how long a pending offer stays open
const OfferLifetime = 7 * 24 * time.Hour

// PriceOffer is a customer proposed price for a service type
type PriceOffer struct {
	ID                      primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID                  primitive.ObjectID `json:"userId" bson:"userId"`
	ProfessionalID          primitive.ObjectID `json:"professionalId" bson:"professionalId"`
	ServiceType             string             `json:"serviceType" bson:"serviceType"`
	Description             string             `json:"description,omitempty" bson:"description,omitempty"`
	OfferedPrice            float64            `json:"offeredPrice" bson:"offeredPrice"`
	OfferedVisitingCharge   *float64           `json:"offeredVisitingCharge,omitempty" bson:"offeredVisitingCharge,omitempty"`
	EstimatedHours          *float64           `json:"estimatedHours,omitempty" bson:"estimatedHours,omitempty"`
	Status                  OfferStatus        `json:"status" bson:"status"`
	ResponseMessage         string             `json:"responseMessage,omitempty" bson:"responseMessage,omitempty"`
	AcceptedPriceValidUntil *time.Time         `json:"acceptedPriceValidUntil,omitempty" bson:"acceptedPriceValidUntil,omitempty"`
	RespondedAt             *time.Time         `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
	CreatedAt               time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt               time.Time          `json:"updatedAt" bson:"updatedAt"`
	ExpiresAt               time.Time          `json:"expiresAt" bson:"expiresAt"`

	// IsExpired is computed on read for pending offers past their deadline
	IsExpired bool `json:"isExpired" bson:"-"`
}

// PendingExpired reports whether a pending offer has outlived its window
func (o *PriceOffer) PendingExpired(now time.Time) bool {
	return o.Status == OfferPending && !now.Before(o.ExpiresAt)
}

// IsAcceptedPriceValid reports whether the accepted price can still be used to book
func (o *PriceOffer) IsAcceptedPriceValid(now time.Time) bool {
	if o.Status != OfferAccepted || o.AcceptedPriceValidUntil == nil {
		return false
	}
	return now.Before(*o.AcceptedPriceValidUntil)
}

// OfferStatusChange describes a conditional offer status write
type OfferStatusChange struct {
	To              OfferStatus
	At              time.Time
	ResponseMessage string
	ValidUntil      *time.Time
}

// CreateOfferRequest model
type CreateOfferRequest struct {
	ProfessionalID        string   `json:"professionalId" validate:"required"`
	ServiceType           string   `json:"serviceType" validate:"required,max=120"`
	Description           string   `json:"description,omitempty" validate:"max=2000"`
	OfferedPrice          float64  `json:"offeredPrice" validate:"required,gt=0"`
	OfferedVisitingCharge *float64 `json:"offeredVisitingCharge,omitempty" validate:"omitempty,gte=0"`
	EstimatedHours        *float64 `json:"estimatedHours,omitempty" validate:"omitempty,gt=0"`
}

// AcceptOfferRequest model
type AcceptOfferRequest struct {
	ValidityHours   int    `json:"validityHours,omitempty" validate:"omitempty,gt=0"`
	ResponseMessage string `json:"responseMessage,omitempty" validate:"max=1000"`
}

// RespondOfferRequest is used for reject and revoke
type RespondOfferRequest struct {
	ResponseMessage string `json:"responseMessage,omitempty" validate:"max=1000"`
}

// OfferPriceValidity is returned by the price validity lookup
type OfferPriceValidity struct {
	OfferID    primitive.ObjectID `json:"offerId"`
	Status     OfferStatus        `json:"status"`
	Price      float64            `json:"price"`
	Valid      bool               `json:"valid"`
	ValidUntil *time.Time         `json:"validUntil,omitempty"`
}
