package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
)

// Authenticator resolves a bearer token to a user id
type Authenticator func(token string) (primitive.ObjectID, error)

// EventHandler authorizes room joins and applies client events that touch
// persisted state
type EventHandler interface {
	CanJoin(ctx context.Context, userID primitive.ObjectID, prefix string, id primitive.ObjectID) error
	Typing(ctx context.Context, userID, conversationID primitive.ObjectID, isTyping bool) error
	MessageSeen(ctx context.Context, userID, messageID primitive.ObjectID) error
	NotificationRead(ctx context.Context, userID, notificationID primitive.ObjectID) error
}

// Handler upgrades HTTP requests and routes client frames
type Handler struct {
	hub      *Hub
	auth     Authenticator
	events   EventHandler
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint handler
func NewHandler(hub *Hub, auth Authenticator, events EventHandler) *Handler {
	return &Handler{
		hub:    hub,
		auth:   auth,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles the WebSocket connection. The token may come from
// the query string, the Authorization header, or a later authenticate event.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(conn)
	go client.writePump()

	if token := tokenFromRequest(c.Request()); token != "" {
		h.authenticate(client, token)
	}

	go client.readPump(
		func(frame []byte) { h.dispatch(client, frame) },
		func() { h.hub.Unregister(client) },
	)
	return nil
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (h *Handler) authenticate(client *Client, token string) {
	userID, err := h.auth(token)
	if err != nil {
		h.reject(client, "invalid token")
		return
	}
	h.hub.Authenticate(client, userID)
	h.hub.Send(client, models.ConnectedEvent{UserID: userID, ConnectionID: client.ID})
}

func (h *Handler) reject(client *Client, message string) {
	if err := h.hub.Send(client, models.ErrorEvent{Message: message}); err != nil {
		log.Printf("Failed to send error frame to %s: %v", client.ID, err)
	}
}

// dispatch routes one client frame
func (h *Handler) dispatch(client *Client, frame []byte) {
	var ev models.ClientEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		h.reject(client, "malformed event")
		return
	}

	if ev.Event == models.ClientAuthenticate {
		var req models.AuthenticateRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil || req.Token == "" {
			h.reject(client, "token is required")
			return
		}
		h.authenticate(client, req.Token)
		return
	}

	userID := client.UserID()
	if userID == primitive.NilObjectID {
		h.reject(client, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch ev.Event {
	case models.ClientJoinRoom, models.ClientLeaveRoom:
		var req models.RoomRequest
		if err = decode(ev.Data, &req); err == nil {
			err = h.room(ctx, client, userID, ev.Event == models.ClientJoinRoom, req.Room)
		}
	case models.ClientTyping:
		var req models.TypingClientRequest
		if err = decode(ev.Data, &req); err == nil {
			var conversationID primitive.ObjectID
			if conversationID, err = parseID(req.ConversationID); err == nil {
				err = h.events.Typing(ctx, userID, conversationID, req.IsTyping)
			}
		}
	case models.ClientMessageSeen:
		var req models.MessageSeenRequest
		if err = decode(ev.Data, &req); err == nil {
			var messageID primitive.ObjectID
			if messageID, err = parseID(req.MessageID); err == nil {
				err = h.events.MessageSeen(ctx, userID, messageID)
			}
		}
	case models.ClientMarkRead:
		var req models.MarkReadRequest
		if err = decode(ev.Data, &req); err == nil {
			var notificationID primitive.ObjectID
			if notificationID, err = parseID(req.NotificationID); err == nil {
				err = h.events.NotificationRead(ctx, userID, notificationID)
			}
		}
	default:
		err = models.NewValidation("unknown event " + ev.Event)
	}

	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			h.reject(client, appErr.Message)
			return
		}
		log.Printf("Failed to handle %s from %s: %v", ev.Event, userID.Hex(), err)
		h.reject(client, "request failed")
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return models.NewValidation("malformed payload")
	}
	return nil
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.NewValidation("invalid id")
	}
	return id, nil
}

// room joins or leaves a topic. Joins are checked against the caller's
// access to the underlying conversation, booking or user.
func (h *Handler) room(ctx context.Context, client *Client, userID primitive.ObjectID, join bool, room string) error {
	prefix, id, ok := models.ParseTopic(room)
	if !ok {
		return models.NewValidation("unknown room " + room)
	}
	if !join {
		h.hub.Leave(client, room)
		return nil
	}
	if err := h.events.CanJoin(ctx, userID, prefix, id); err != nil {
		return err
	}
	h.hub.Join(client, room)
	return nil
}
