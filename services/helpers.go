package services

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// storeErr turns a store miss into a NotFound error and passes anything else through
func storeErr(err error, notFound string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewNotFound(notFound)
	}
	return err
}

func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func oidPtr(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// publish mirrors a domain event to the broker when one is configured
func publish(ctx context.Context, publisher EventPublisher, key string, v any) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishJSON(ctx, key, v); err != nil {
		log.Printf("Failed to publish %s: %v", key, err)
	}
}
