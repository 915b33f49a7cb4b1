package controllers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/services"
)

// BookingController handles booking-related API endpoints
type BookingController struct {
	bookings *services.BookingService
}

// NewBookingController creates a new booking controller
func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

// CreateBooking handles the creation of a new booking
func (bc *BookingController) CreateBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.BookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.CreateBooking(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Booking created successfully", booking)
}

// GetMyBookings lists the customer's bookings
func (bc *BookingController) GetMyBookings(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := bc.bookings.ListMine(c.Request().Context(), userID,
		c.QueryParam("status"),
		c.QueryParam("category"),
		c.QueryParam("search"),
		queryInt(c, "skip", 0),
		queryInt(c, "limit", 20),
	)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Bookings retrieved successfully", list)
}

// GetProfessionalBookings lists bookings assigned to the professional
func (bc *BookingController) GetProfessionalBookings(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := bc.bookings.ListForProfessional(c.Request().Context(), userID,
		c.QueryParam("status"),
		queryInt(c, "skip", 0),
		queryInt(c, "limit", 20),
	)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Bookings retrieved successfully", list)
}

// GetBooking returns one booking to either party
func (bc *BookingController) GetBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.GetBooking(c.Request().Context(), userID, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Booking retrieved successfully", booking)
}

// AcceptBooking handles POST /bookings/:id/accept
func (bc *BookingController) AcceptBooking(c echo.Context) error {
	return bc.professionalAction(c, "Booking accepted", bc.bookings.AcceptBooking)
}

// RequestOTP handles the professional's arrival step
func (bc *BookingController) RequestOTP(c echo.Context) error {
	return bc.professionalAction(c, "Customer has been sent the service code", bc.bookings.RequestOTP)
}

// CompleteBooking handles POST /bookings/:id/complete
func (bc *BookingController) CompleteBooking(c echo.Context) error {
	return bc.professionalAction(c, "Booking completed", bc.bookings.CompleteBooking)
}

type bookingAction func(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.Booking, error)

func (bc *BookingController) professionalAction(c echo.Context, message string, action bookingAction) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	booking, err := action(c.Request().Context(), userID, bookingID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, message, booking)
}

// RejectBooking handles POST /bookings/:id/reject
func (bc *BookingController) RejectBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.CancelBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.RejectBooking(c.Request().Context(), userID, bookingID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Booking rejected", booking)
}

// StartBooking checks the code the customer shared and starts the work
func (bc *BookingController) StartBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.StartBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.StartBooking(c.Request().Context(), userID, bookingID, req.OTP)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Service started", booking)
}

// CancelBooking handles cancellation by either party
func (bc *BookingController) CancelBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.CancelBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.CancelBooking(c.Request().Context(), userID, bookingID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Booking cancelled", booking)
}

// RateBooking records the customer's review
func (bc *BookingController) RateBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.RateBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.RateBooking(c.Request().Context(), userID, bookingID, req.Rating, req.Review)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Thank you for your rating", booking)
}

// RescheduleBooking moves the booking to a new slot
func (bc *BookingController) RescheduleBooking(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	bookingID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.RescheduleBookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := bc.bookings.RescheduleBooking(c.Request().Context(), userID, bookingID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Booking rescheduled", booking)
}
