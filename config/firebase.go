package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK used for push delivery.
// It returns nil, nil when no credentials are configured.
func InitFirebase(ctx context.Context, settings Settings) (*firebase.App, error) {
	var opt option.ClientOption
	switch {
	case settings.FirebaseCredentialsBase64 != "":
		log.Printf("Using Firebase credentials from base64 environment variable")
		decoded, err := base64.StdEncoding.DecodeString(settings.FirebaseCredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case settings.FirebaseCredentialsFile != "":
		log.Printf("Using Firebase credentials file: %s", settings.FirebaseCredentialsFile)
		opt = option.WithCredentialsFile(settings.FirebaseCredentialsFile)
	default:
		log.Println("Firebase credentials not configured, push notifications disabled")
		return nil, nil
	}

	var cfg *firebase.Config
	if settings.FirebaseProjectID != "" {
		cfg = &firebase.Config{ProjectID: settings.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
