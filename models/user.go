// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types carried in the JWT and stored on the user document
const (
	UserTypeCustomer     = "user"
	UserTypeProfessional = "professional"
	UserTypeAdmin        = "admin"
)

// User is the subset of the account document this service reads. Accounts
// themselves are managed elsewhere.
type User struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	FullName     string             `json:"fullName" bson:"fullName"`
	UserType     string             `json:"userType" bson:"userType"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePic   string             `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	Category     string             `json:"category,omitempty" bson:"category,omitempty"`
	Rating       float64            `json:"rating" bson:"rating"`
	TotalRatings int64              `json:"totalRatings" bson:"totalRatings"`
	FCMToken     string             `json:"-" bson:"fcmToken,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// IsProfessional reports whether the user can receive bookings and offers
func (u *User) IsProfessional() bool {
	return u.UserType == UserTypeProfessional
}

// DisplayName falls back to a role label when the profile has no name
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.IsProfessional() {
		return "Professional"
	}
	return "Customer"
}

// Response is the common response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
