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

type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		collection: db.Collection("messages"),
	}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var msg models.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns up to limit messages before the given one, oldest first, and
// whether older messages remain
func (r *MessageRepository) List(ctx context.Context, conversationID primitive.ObjectID, before *primitive.ObjectID, limit int64) ([]*models.Message, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"conversationId": conversationID}
	if before != nil {
		var anchor models.Message
		if err := r.collection.FindOne(ctx, bson.M{"_id": *before, "conversationId": conversationID}).Decode(&anchor); err != nil {
			return nil, false, err
		}
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": anchor.CreatedAt}},
			bson.M{"createdAt": anchor.CreatedAt, "_id": bson.M{"$lt": anchor.ID}},
		}
	}

	// newest first so the limit keeps the latest page, then reversed
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var msgs []*models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore, nil
}

func lowerStatuses(status models.MessageStatus) []models.MessageStatus {
	var lower []models.MessageStatus
	for _, s := range []models.MessageStatus{models.MessageSent, models.MessageDelivered, models.MessageSeen} {
		if s.Rank() < status.Rank() {
			lower = append(lower, s)
		}
	}
	return lower
}

// AdvanceStatus moves a message forward to status. It matches nothing when
// the message is already at or past status.
func (r *MessageRepository) AdvanceStatus(ctx context.Context, id primitive.ObjectID, status models.MessageStatus, at time.Time) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{"status": status}
	switch status {
	case models.MessageDelivered:
		set["deliveredAt"] = at
	case models.MessageSeen:
		set["seenAt"] = at
		set["deliveredAt"] = bson.M{"$ifNull": bson.A{"$deliveredAt", at}}
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": lowerStatuses(status)}}
	update := mongo.Pipeline{{{Key: "$set", Value: set}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg models.Message
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkSeenBefore marks every message from senderID created at or before
// cutoff as seen
func (r *MessageRepository) MarkSeenBefore(ctx context.Context, conversationID, senderID primitive.ObjectID, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"conversationId": conversationID,
		"senderId":       senderID,
		"createdAt":      bson.M{"$lte": cutoff},
		"status":         bson.M{"$ne": models.MessageSeen},
	}
	update := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"status":      models.MessageSeen,
		"seenAt":      cutoff,
		"deliveredAt": bson.M{"$ifNull": bson.A{"$deliveredAt", cutoff}},
	}}}}

	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Edit replaces the text of a message that has not been deleted
func (r *MessageRepository) Edit(ctx context.Context, id primitive.ObjectID, content string, at time.Time) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": id, "isDeleted": false}
	update := bson.M{"$set": bson.M{"content": content, "editedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg models.Message
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDelete tombstones a message in place
func (r *MessageRepository) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"isDeleted": true,
			"deletedAt": at,
			"content":   models.DeletedMessageContent,
		},
		"$unset": bson.M{"imageData": "", "locationData": ""},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
