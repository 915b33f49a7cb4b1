package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/models"
)

// respondError writes err as a models.Response with the matching HTTP status
func respondError(c echo.Context, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus()
		return c.JSON(status, models.Response{
			Status:  status,
			Code:    appErr.Code,
			Message: appErr.Message,
		})
	}

	log.Printf("Failed to handle %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	})
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: "Unauthorized",
	})
}

// currentUser returns the authenticated user ID from the JWT claims
func currentUser(c echo.Context) (primitive.ObjectID, bool) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return userID, true
}

// bind decodes and validates a request body
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return models.NewValidation("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return models.NewValidation(fe.Field() + " failed on the '" + fe.Tag() + "' rule")
		}
		return models.NewValidation(err.Error())
	}
	return nil
}

func paramID(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, models.NewValidation("Invalid " + name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int64) int64 {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
