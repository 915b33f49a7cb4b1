package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/homeservices_backend/models"
)

// NotificationRepository stores the notification feed and per-user push
// preferences. Expired records are hidden here and removed by a TTL index.
type NotificationRepository struct {
	collection *mongo.Collection
	settings   *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
		settings:   db.Collection("notification_settings"),
	}
}

// liveFilter matches the user's non-deleted, unexpired notifications
func liveFilter(userID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"userId":    userID,
		"isDeleted": false,
		"$or": bson.A{
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gt": now}},
		},
	}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// InsertMany stores a batch. Unordered, so one bad document does not stop
// the rest.
func (r *NotificationRepository) InsertMany(ctx context.Context, items []*models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs := make([]interface{}, len(items))
	for i, n := range items {
		docs[i] = n
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var n models.Notification
	filter := bson.M{"_id": id, "userId": userID, "isDeleted": false}
	if err := r.collection.FindOne(ctx, filter).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) List(ctx context.Context, userID primitive.ObjectID, f models.NotificationFilter, now time.Time) ([]*models.Notification, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := liveFilter(userID, now)
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.IsRead != nil {
		filter["isRead"] = *f.IsRead
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*models.Notification
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := liveFilter(userID, now)
	filter["isRead"] = false
	return r.collection.CountDocuments(ctx, filter)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": id, "userId": userID, "isDeleted": false}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"isRead": true, "readAt": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"userId": userID, "isRead": false, "isDeleted": false}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"isRead": true, "readAt": at},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepository) SoftDelete(ctx context.Context, userID, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": id, "userId": userID, "isDeleted": false}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"isDeleted": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *NotificationRepository) SoftDeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// GetSettings returns nil, nil when the user never saved preferences
func (r *NotificationRepository) GetSettings(ctx context.Context, userID primitive.ObjectID) (*models.NotificationSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var settings models.NotificationSettings
	err := r.settings.FindOne(ctx, bson.M{"userId": userID}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *NotificationRepository) SaveSettings(ctx context.Context, settings *models.NotificationSettings) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := r.settings.ReplaceOne(ctx, bson.M{"userId": settings.UserID}, settings, opts)
	return err
}
