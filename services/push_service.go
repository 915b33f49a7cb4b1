package services

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"github.com/HSouheill/homeservices_backend/models"
)

const androidChannelID = "homeservices_fcm_channel"

// FCMPusher sends notifications through Firebase Cloud Messaging
type FCMPusher struct {
	client *messaging.Client
}

// NewFCMPusher creates a pusher from an initialized Firebase app
func NewFCMPusher(ctx context.Context, app *firebase.App) (*FCMPusher, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return &FCMPusher{client: client}, nil
}

// Push sends one notification to one device token
func (p *FCMPusher) Push(ctx context.Context, token string, n *models.Notification) error {
	_, err := p.client.Send(ctx, buildFCMMessage(token, n))
	return err
}

// buildFCMMessage converts a stored notification into an FCM message. FCM
// data values must be strings.
func buildFCMMessage(token string, n *models.Notification) *messaging.Message {
	data := map[string]string{
		"type":           string(n.Type),
		"category":       string(n.Category),
		"priority":       string(n.Priority),
		"notificationId": n.ID.Hex(),
		"timestamp":      n.CreatedAt.Format(time.RFC3339),
	}
	if n.ActionURL != "" {
		data["actionUrl"] = n.ActionURL
	}
	if d := n.Data; d != nil {
		if d.BookingID != nil {
			data["bookingId"] = d.BookingID.Hex()
		}
		if d.OfferID != nil {
			data["offerId"] = d.OfferID.Hex()
		}
		if d.ConversationID != nil {
			data["conversationId"] = d.ConversationID.Hex()
		}
	}

	androidPriority := "normal"
	if n.Priority == models.PriorityHigh || n.Priority == models.PriorityUrgent {
		androidPriority = "high"
	}
	badge := 1

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: androidChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: n.Title,
						Body:  n.Message,
					},
					Sound:    "default",
					Badge:    &badge,
					Category: string(n.Category),
				},
			},
		},
	}
}
