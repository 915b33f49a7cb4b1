package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/services"
)

// OfferController handles price offer endpoints
type OfferController struct {
	offers *services.OfferService
}

func NewOfferController(offers *services.OfferService) *OfferController {
	return &OfferController{offers: offers}
}

// CreateOffer lets a customer propose a price to a professional
func (oc *OfferController) CreateOffer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.CreateOfferRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := oc.offers.CreateOffer(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Offer sent successfully", offer)
}

// GetMyOffers lists offers the customer has made
func (oc *OfferController) GetMyOffers(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offers, err := oc.offers.ListMine(c.Request().Context(), userID, models.OfferStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offers retrieved successfully", offers)
}

// GetReceivedOffers lists offers sent to the professional
func (oc *OfferController) GetReceivedOffers(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offers, err := oc.offers.ListReceived(c.Request().Context(), userID, models.OfferStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offers retrieved successfully", offers)
}

// AcceptOffer accepts a pending offer with an optional validity window
func (oc *OfferController) AcceptOffer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.AcceptOfferRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := oc.offers.AcceptOffer(c.Request().Context(), userID, offerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offer accepted", offer)
}

// RejectOffer declines a pending offer
func (oc *OfferController) RejectOffer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.RespondOfferRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := oc.offers.RejectOffer(c.Request().Context(), userID, offerID, req.ResponseMessage)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offer rejected", offer)
}

// RevokeOffer withdraws an accepted price
func (oc *OfferController) RevokeOffer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req models.RespondOfferRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := oc.offers.RevokeOffer(c.Request().Context(), userID, offerID, req.ResponseMessage)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offer revoked", offer)
}

// CancelOffer deletes the customer's pending offer
func (oc *OfferController) CancelOffer(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := oc.offers.CancelOffer(c.Request().Context(), userID, offerID); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Offer cancelled", nil)
}

// GetPriceValidity reports whether the accepted price can still be booked
func (oc *OfferController) GetPriceValidity(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	offerID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	validity, err := oc.offers.PriceValidity(c.Request().Context(), userID, offerID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Price validity retrieved", validity)
}
