package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/services"
)

type structValidator struct {
	v *validator.Validate
}

func (sv *structValidator) Validate(i interface{}) error {
	return sv.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &structValidator{v: validator.New()}
	return e
}

func newContext(e *echo.Echo, method, target, body string, userID primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if !userID.IsZero() {
		c.Set("userId", userID.Hex())
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondErrorMapsAppErrors(t *testing.T) {
	e := newEcho()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"conflict", models.NewConflict("slot taken"), http.StatusConflict, models.CodeConflict},
		{"validation", models.NewValidation("bad input"), http.StatusBadRequest, models.CodeValidation},
		{"not found", models.NewNotFound("booking not found"), http.StatusNotFound, models.CodeNotFound},
		{"wrapped", errors.Join(errors.New("context"), models.NewForbidden("not yours")), http.StatusForbidden, models.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodGet, "/", "", primitive.NilObjectID)
			require.NoError(t, respondError(c, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	e := newEcho()
	c, rec := newContext(e, http.MethodGet, "/", "", primitive.NilObjectID)

	require.NoError(t, respondError(c, errors.New("connection reset by peer")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestBindReportsFirstFailedRule(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodPost, "/", `{"scheduledDate":"2024-03-10","scheduledTime":"10:00"}`, primitive.NewObjectID())

	var req models.BookingRequest
	err := bind(c, &req)

	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Equal(t, "ProfessionalID failed on the 'required' rule", err.Error())
}

func TestBindRejectsMalformedBody(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodPost, "/", `{"professionalId":`, primitive.NewObjectID())

	var req models.BookingRequest
	err := bind(c, &req)

	require.Error(t, err)
	assert.Equal(t, "Invalid request body", err.Error())
}

func TestParamID(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodGet, "/", "", primitive.NilObjectID)
	c.SetParamNames("id")
	c.SetParamValues("not-an-id")

	_, err := paramID(c, "id")
	require.Error(t, err)
	assert.Equal(t, "Invalid id", err.Error())

	want := primitive.NewObjectID()
	c.SetParamValues(want.Hex())
	got, err := paramID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestQueryInt(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodGet, "/?page=3&limit=abc", "", primitive.NilObjectID)

	assert.Equal(t, int64(3), queryInt(c, "page", 1))
	assert.Equal(t, int64(20), queryInt(c, "limit", 20))
	assert.Equal(t, int64(0), queryInt(c, "skip", 0))
}

func TestHandlersRequireAuthenticatedUser(t *testing.T) {
	e := newEcho()
	dispatch := services.NewDispatcher(0, 0)
	notifications := NewNotificationController(services.NewNotificationService(nil, nil, nil, nil, dispatch))
	bookings := NewBookingController(services.NewBookingService(nil, nil, nil, nil, nil, dispatch))

	handlers := map[string]echo.HandlerFunc{
		"notifications":  notifications.GetNotifications,
		"create booking": bookings.CreateBooking,
		"my bookings":    bookings.GetMyBookings,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodGet, "/", "", primitive.NilObjectID)
			require.NoError(t, h(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestGetNotificationsRejectsBadReadFilter(t *testing.T) {
	e := newEcho()
	nc := NewNotificationController(services.NewNotificationService(nil, nil, nil, nil, services.NewDispatcher(0, 0)))
	c, rec := newContext(e, http.MethodGet, "/api/notifications?isRead=maybe", "", primitive.NewObjectID())

	require.NoError(t, nc.GetNotifications(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, models.CodeValidation, resp.Code)
	assert.Equal(t, "isRead must be true or false", resp.Message)
}

func TestCreateBookingValidation(t *testing.T) {
	e := newEcho()
	bc := NewBookingController(services.NewBookingService(nil, nil, nil, nil, nil, services.NewDispatcher(0, 0)))

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", `{}`, "ProfessionalID failed on the 'required' rule"},
		{"bad time", `{"professionalId":"65f1a2b3c4d5e6f7a8b9c0d1","scheduledDate":"2024-03-10","scheduledTime":"10am"}`, "ScheduledTime failed on the 'datetime' rule"},
		{"bad professional", `{"professionalId":"nobody","scheduledDate":"2024-03-10","scheduledTime":"10:00"}`, "invalid professional ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/api/bookings", tt.body, primitive.NewObjectID())
			require.NoError(t, bc.CreateBooking(c))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec).Message)
		})
	}
}

func TestBookingActionRejectsInvalidID(t *testing.T) {
	e := newEcho()
	bc := NewBookingController(services.NewBookingService(nil, nil, nil, nil, nil, services.NewDispatcher(0, 0)))

	for name, h := range map[string]echo.HandlerFunc{
		"get":    bc.GetBooking,
		"accept": bc.AcceptBooking,
	} {
		t.Run(name, func(t *testing.T) {
			c, rec := newContext(e, http.MethodPost, "/", "", primitive.NewObjectID())
			c.SetParamNames("id")
			c.SetParamValues("xyz")

			require.NoError(t, h(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid id", decode(t, rec).Message)
		})
	}
}

func TestBroadcastNotificationValidation(t *testing.T) {
	e := newEcho()
	nc := NewNotificationController(services.NewNotificationService(nil, nil, nil, nil, services.NewDispatcher(0, 0)))

	c, rec := newContext(e, http.MethodPost, "/api/notifications/broadcast", `{"message":"20% off"}`, primitive.NewObjectID())
	require.NoError(t, nc.BroadcastNotification(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title failed on the 'required' rule", decode(t, rec).Message)

	c, rec = newContext(e, http.MethodPost, "/api/notifications/broadcast", `{"title":"Hi","message":"Hello","userIds":["nobody"]}`, primitive.NewObjectID())
	require.NoError(t, nc.BroadcastNotification(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid user ID nobody", decode(t, rec).Message)
}
