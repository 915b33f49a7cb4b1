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

type ConversationRepository struct {
	collection *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection("conversations"),
	}
}

var openConversationStatuses = []models.ConversationStatus{models.ConversationActive, models.ConversationArchived}

// FindOpen finds the non-closed thread for a pair and optional booking. A nil
// bookingID matches only general threads.
func (r *ConversationRepository) FindOpen(ctx context.Context, userID, professionalID primitive.ObjectID, bookingID *primitive.ObjectID) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"userId":         userID,
		"professionalId": professionalID,
		"status":         bson.M{"$in": openConversationStatuses},
	}
	if bookingID != nil {
		filter["bookingId"] = *bookingID
	} else {
		filter["bookingId"] = nil
	}

	var conv models.Conversation
	if err := r.collection.FindOne(ctx, filter).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, conv)
	return err
}

func (r *ConversationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var conv models.Conversation
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser lists the user's threads with a given status, most recent activity first
func (r *ConversationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, status models.ConversationStatus, skip, limit int64) ([]*models.Conversation, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"participants.userId": userID, "status": status}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var convs []*models.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// RecordMessage writes the last message summary and bumps the receiver's
// unread counter in one update. An archived thread becomes active again.
func (r *ConversationRepository) RecordMessage(ctx context.Context, id, receiverID primitive.ObjectID, summary models.MessageSummary) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"lastMessageContent":  summary.Content,
			"lastMessageType":     summary.Type,
			"lastMessageSenderId": summary.SenderID,
			"lastMessageAt":       summary.At,
			"status":              models.ConversationActive,
			"updatedAt":           summary.At,
		},
		"$inc": bson.M{"participants.$[receiver].unreadCount": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"receiver.userId": receiverID}},
	})
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.ConversationClosed}}

	res, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ResetUnread zeroes one participant's unread counter
func (r *ConversationRepository) ResetUnread(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.setParticipant(ctx, id, userID, bson.M{"participants.$.unreadCount": 0})
}

func (r *ConversationRepository) SetMuted(ctx context.Context, id, userID primitive.ObjectID, muted bool) error {
	return r.setParticipant(ctx, id, userID, bson.M{"participants.$.isMuted": muted})
}

func (r *ConversationRepository) setParticipant(ctx context.Context, id, userID primitive.ObjectID, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": id, "participants.userId": userID}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *ConversationRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ConversationStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// TotalUnread sums the user's unread counters over active threads
func (r *ConversationRepository) TotalUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participants.userId": userID, "status": models.ConversationActive}}},
		{{Key: "$unwind", Value: "$participants"}},
		{{Key: "$match", Value: bson.M{"participants.userId": userID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$participants.unreadCount"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
