package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/controllers"
	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/models"
)

// RegisterOfferRoutes registers the price negotiation endpoints
func RegisterOfferRoutes(api *echo.Group, oc *controllers.OfferController) {
	offers := api.Group("/offers")

	customerOnly := middleware.RequireUserType(models.UserTypeCustomer)
	professionalOnly := middleware.RequireUserType(models.UserTypeProfessional)

	offers.POST("", oc.CreateOffer, customerOnly)
	offers.GET("/mine", oc.GetMyOffers, customerOnly)
	offers.DELETE("/:id", oc.CancelOffer, customerOnly)

	offers.GET("/received", oc.GetReceivedOffers, professionalOnly)
	offers.POST("/:id/accept", oc.AcceptOffer, professionalOnly)
	offers.POST("/:id/reject", oc.RejectOffer, professionalOnly)
	offers.POST("/:id/revoke", oc.RevokeOffer, professionalOnly)

	offers.GET("/:id/price-validity", oc.GetPriceValidity)
}
