package repositories

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/homeservices_backend/models"
)

// BookingRepository stores bookings. Every status write is conditional on
// the current status.
type BookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		collection: db.Collection("bookings"),
	}
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, booking)
	return err
}

func (r *BookingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindActiveSlot finds a non-terminal booking for the same pair and slot
func (r *BookingRepository) FindActiveSlot(ctx context.Context, userID, professionalID primitive.ObjectID, date, slot string, exclude *primitive.ObjectID) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"userId":         userID,
		"professionalId": professionalID,
		"scheduledDate":  date,
		"scheduledTime":  slot,
		"status":         bson.M{"$in": models.ActiveBookingStatuses},
	}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}

	var booking models.Booking
	if err := r.collection.FindOne(ctx, filter).Decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// transitionStamp names the timestamp field each target status sets
var transitionStamp = map[models.BookingStatus]string{
	models.BookingAccepted:  "acceptedAt",
	models.BookingOngoing:   "startedAt",
	models.BookingCompleted: "completedAt",
	models.BookingCancelled: "cancelledAt",
}

// UpdateStatus moves the booking to change.To only if its status is in from
func (r *BookingRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingStatusChange) (*models.Booking, error) {
	set := bson.M{
		"status":    change.To,
		"updatedAt": change.At,
	}
	if field, ok := transitionStamp[change.To]; ok {
		set[field] = change.At
	}
	if change.CancelledBy != "" {
		set["cancelledBy"] = change.CancelledBy
	}
	if change.Reason != "" {
		set["cancellationReason"] = change.Reason
	}
	if change.RefundStatus != "" {
		set["refundStatus"] = change.RefundStatus
	}
	if change.Rejected {
		set["rejectedAt"] = change.At
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	return r.findOneAndUpdate(ctx, filter, bson.M{"$set": set})
}

// MarkOTPRequested stamps the arrival step without changing the status
func (r *BookingRepository) MarkOTPRequested(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, at time.Time) (*models.Booking, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"otpRequestedAt": at, "updatedAt": at}}
	return r.findOneAndUpdate(ctx, filter, update)
}

// SetRating stores the review once, and only on a completed booking
func (r *BookingRepository) SetRating(ctx context.Context, id primitive.ObjectID, rating int, review string, at time.Time) (*models.Booking, error) {
	filter := bson.M{
		"_id":    id,
		"status": models.BookingCompleted,
		"rating": bson.M{"$exists": false},
	}
	set := bson.M{"rating": rating, "ratedAt": at, "updatedAt": at}
	if review != "" {
		set["review"] = review
	}
	return r.findOneAndUpdate(ctx, filter, bson.M{"$set": set})
}

func (r *BookingRepository) Reschedule(ctx context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingReschedule, at time.Time) (*models.Booking, error) {
	set := bson.M{
		"scheduledDate": change.ScheduledDate,
		"scheduledTime": change.ScheduledTime,
		"updatedAt":     at,
	}
	if change.Address != nil {
		set["address"] = change.Address
	}
	if change.Notes != nil {
		set["notes"] = *change.Notes
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	return r.findOneAndUpdate(ctx, filter, bson.M{"$set": set})
}

func (r *BookingRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var booking models.Booking
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func bookingListFilter(f models.BookingFilter) bson.M {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.ProfessionalID != nil {
		filter["professionalId"] = *f.ProfessionalID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"bookingIdDisplay": pattern},
			bson.M{"serviceType": pattern},
			bson.M{"serviceName": pattern},
		}
	}
	return filter
}

// List returns a page of bookings, newest first, with the total match count
func (r *BookingRepository) List(ctx context.Context, f models.BookingFilter) ([]*models.Booking, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bookingListFilter(f)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus groups the customer's bookings by status
func (r *BookingRepository) CountByStatus(ctx context.Context, userID primitive.ObjectID) (map[models.BookingStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.BookingStatus `bson:"_id"`
		Count  int64                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.BookingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// RatingSummary averages every rated booking of the professional
func (r *BookingRepository) RatingSummary(ctx context.Context, professionalID primitive.ObjectID) (float64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"professionalId": professionalID,
			"rating":         bson.M{"$exists": true, "$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"total": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Avg   float64 `bson:"avg"`
		Total int64   `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Avg, rows[0].Total, nil
}
