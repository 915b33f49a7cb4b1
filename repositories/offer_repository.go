package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/homeservices_backend/models"
)

type OfferRepository struct {
	collection *mongo.Collection
}

func NewOfferRepository(db *mongo.Database) *OfferRepository {
	return &OfferRepository{
		collection: db.Collection("offers"),
	}
}

func (r *OfferRepository) Create(ctx context.Context, offer *models.PriceOffer) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, offer)
	return err
}

func (r *OfferRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PriceOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var offer models.PriceOffer
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpdateStatus applies change only while the offer is still in status from
func (r *OfferRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OfferStatus, change models.OfferStatusChange) (*models.PriceOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{
		"status":      change.To,
		"respondedAt": change.At,
		"updatedAt":   change.At,
	}
	if change.ResponseMessage != "" {
		set["responseMessage"] = change.ResponseMessage
	}
	if change.ValidUntil != nil {
		set["acceptedPriceValidUntil"] = *change.ValidUntil
	}

	filter := bson.M{"_id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var offer models.PriceOffer
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// Expire flips a pending offer past its deadline to expired
func (r *OfferRepository) Expire(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":       id,
		"status":    models.OfferPending,
		"expiresAt": bson.M{"$lte": now},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"status": models.OfferExpired, "updatedAt": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeletePending removes an offer that is still pending
func (r *OfferRepository) DeletePending(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "status": models.OfferPending})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *OfferRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	return r.list(ctx, bson.M{"userId": userID}, status)
}

func (r *OfferRepository) ListByProfessional(ctx context.Context, professionalID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	return r.list(ctx, bson.M{"professionalId": professionalID}, status)
}

func (r *OfferRepository) list(ctx context.Context, filter bson.M, status models.OfferStatus) ([]*models.PriceOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var offers []*models.PriceOffer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}
