package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/controllers"
	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/models"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints
func RegisterBookingRoutes(api *echo.Group, bc *controllers.BookingController) {
	bookings := api.Group("/bookings")

	customerOnly := middleware.RequireUserType(models.UserTypeCustomer)
	professionalOnly := middleware.RequireUserType(models.UserTypeProfessional)

	// Customer routes
	bookings.POST("", bc.CreateBooking, customerOnly)
	bookings.GET("/mine", bc.GetMyBookings)
	bookings.POST("/:id/rate", bc.RateBooking, customerOnly)
	bookings.PUT("/:id/reschedule", bc.RescheduleBooking, customerOnly)

	// Professional routes
	bookings.GET("/professional", bc.GetProfessionalBookings, professionalOnly)
	bookings.POST("/:id/accept", bc.AcceptBooking, professionalOnly)
	bookings.POST("/:id/reject", bc.RejectBooking, professionalOnly)
	bookings.POST("/:id/request-otp", bc.RequestOTP, professionalOnly)
	bookings.POST("/:id/start", bc.StartBooking, professionalOnly)
	bookings.POST("/:id/complete", bc.CompleteBooking, professionalOnly)

	// Either party
	bookings.GET("/:id", bc.GetBooking)
	bookings.POST("/:id/cancel", bc.CancelBooking)
}
