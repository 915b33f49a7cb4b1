package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// FCMTokenUpdateRequest represents the request body for updating FCM tokens
type FCMTokenUpdateRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}

// GetNotifications returns the caller's feed, newest first
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	filter := models.NotificationFilter{
		Category: models.NotificationCategory(c.QueryParam("category")),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}
	if v := c.QueryParam("isRead"); v != "" {
		isRead, err := strconv.ParseBool(v)
		if err != nil {
			return respondError(c, models.NewValidation("isRead must be true or false"))
		}
		filter.IsRead = &isRead
	}

	list, err := nc.notifications.List(c.Request().Context(), userID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notifications retrieved successfully", list)
}

func (nc *NotificationController) GetUnreadCount(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	count, err := nc.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Unread count retrieved", map[string]int64{"unreadCount": count})
}

func (nc *NotificationController) GetNotification(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	n, err := nc.notifications.Get(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification retrieved", n)
}

func (nc *NotificationController) MarkAsRead(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := nc.notifications.MarkRead(c.Request().Context(), userID, id); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification marked as read", nil)
}

func (nc *NotificationController) MarkAllAsRead(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	count, err := nc.notifications.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "All notifications marked as read", map[string]int64{"updatedCount": count})
}

func (nc *NotificationController) DeleteNotification(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := nc.notifications.Delete(c.Request().Context(), userID, id); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification deleted", nil)
}

func (nc *NotificationController) ClearAll(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	count, err := nc.notifications.ClearAll(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notifications cleared", map[string]int64{"deletedCount": count})
}

func (nc *NotificationController) GetSettings(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	settings, err := nc.notifications.GetSettings(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification settings retrieved", settings)
}

func (nc *NotificationController) UpdateSettings(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req models.NotificationSettings
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	settings, err := nc.notifications.UpdateSettings(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Notification settings updated", settings)
}

// UpdateFCMToken stores the device token push notifications are sent to
func (nc *NotificationController) UpdateFCMToken(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req FCMTokenUpdateRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := nc.notifications.RegisterDevice(c.Request().Context(), userID, req.FCMToken); err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "FCM token updated successfully", nil)
}

// SendNotification lets an operator notify one user directly
func (nc *NotificationController) SendNotification(c echo.Context) error {
	if _, ok := currentUser(c); !ok {
		return unauthorized(c)
	}
	var req models.SendNotificationRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	n, err := nc.notifications.Send(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusCreated, "Notification sent", n)
}

// BroadcastNotification sends one announcement to a list of users, or to
// every customer when no list is given
func (nc *NotificationController) BroadcastNotification(c echo.Context) error {
	if _, ok := currentUser(c); !ok {
		return unauthorized(c)
	}
	var req models.BroadcastRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := nc.notifications.Broadcast(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, fmt.Sprintf("Notification sent to %d users", res.Count), res)
}
