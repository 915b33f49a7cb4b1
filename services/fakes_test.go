package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
)

var duplicateKey = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

func statusIn[S comparable](s S, set []S) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// fakeUsers

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUsers) add(name, userType string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: primitive.NewObjectID(), FullName: name, UserType: userType, IsActive: true}
	if userType == models.UserTypeProfessional {
		u.Category = "Plumbing"
	}
	f.users[u.ID] = u
	cp := *u
	return &cp
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateRating(_ context.Context, id primitive.ObjectID, rating float64, total int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.Rating, u.TotalRatings = rating, total
	return nil
}

func (f *fakeUsers) IDsByType(_ context.Context, userType string) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []primitive.ObjectID
	for id, u := range f.users {
		if u.UserType == userType {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeUsers) UpdateFCMToken(_ context.Context, id primitive.ObjectID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.FCMToken = token
	return nil
}

// fakeBookings

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: make(map[primitive.ObjectID]*models.Booking)}
}

func (f *fakeBookings) get(id primitive.ObjectID) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.bookings[id]
	return &cp
}

func (f *fakeBookings) Create(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.bookings {
		if other.UserID == b.UserID && other.ProfessionalID == b.ProfessionalID &&
			other.ScheduledDate == b.ScheduledDate && other.ScheduledTime == b.ScheduledTime &&
			statusIn(other.Status, models.ActiveBookingStatuses) {
			return duplicateKey
		}
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookings) FindByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) FindActiveSlot(_ context.Context, userID, professionalID primitive.ObjectID, date, slot string, exclude *primitive.ObjectID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if exclude != nil && b.ID == *exclude {
			continue
		}
		if b.UserID == userID && b.ProfessionalID == professionalID && b.ScheduledDate == date &&
			b.ScheduledTime == slot && statusIn(b.Status, models.ActiveBookingStatuses) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingStatusChange) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || !statusIn(b.Status, from) {
		return nil, mongo.ErrNoDocuments
	}
	at := change.At
	b.Status = change.To
	b.UpdatedAt = at
	switch change.To {
	case models.BookingAccepted:
		b.AcceptedAt = &at
	case models.BookingOngoing:
		b.StartedAt = &at
	case models.BookingCompleted:
		b.CompletedAt = &at
	case models.BookingCancelled:
		b.CancelledAt = &at
	}
	if change.CancelledBy != "" {
		b.CancelledBy = change.CancelledBy
	}
	if change.Reason != "" {
		b.CancellationReason = change.Reason
	}
	if change.RefundStatus != "" {
		b.RefundStatus = change.RefundStatus
	}
	if change.Rejected {
		b.RejectedAt = &at
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) MarkOTPRequested(_ context.Context, id primitive.ObjectID, from []models.BookingStatus, at time.Time) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || !statusIn(b.Status, from) {
		return nil, mongo.ErrNoDocuments
	}
	b.OTPRequestedAt = &at
	b.UpdatedAt = at
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) SetRating(_ context.Context, id primitive.ObjectID, rating int, review string, at time.Time) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.BookingCompleted || b.Rating != nil {
		return nil, mongo.ErrNoDocuments
	}
	b.Rating = &rating
	b.Review = review
	b.RatedAt = &at
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) Reschedule(_ context.Context, id primitive.ObjectID, from []models.BookingStatus, change models.BookingReschedule, at time.Time) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || !statusIn(b.Status, from) {
		return nil, mongo.ErrNoDocuments
	}
	b.ScheduledDate, b.ScheduledTime = change.ScheduledDate, change.ScheduledTime
	if change.Address != nil {
		b.Address = change.Address
	}
	if change.Notes != nil {
		b.Notes = *change.Notes
	}
	b.UpdatedAt = at
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) List(_ context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Booking
	for _, b := range f.bookings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.ProfessionalID != nil && b.ProfessionalID != *filter.ProfessionalID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(b.Status, filter.Statuses) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeBookings) CountByStatus(_ context.Context, userID primitive.ObjectID) (map[models.BookingStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.BookingStatus]int64)
	for _, b := range f.bookings {
		if b.UserID == userID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

func (f *fakeBookings) RatingSummary(_ context.Context, professionalID primitive.ObjectID) (float64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum, n int64
	for _, b := range f.bookings {
		if b.ProfessionalID == professionalID && b.Rating != nil {
			sum += int64(*b.Rating)
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

// fakeOffers

type fakeOffers struct {
	mu     sync.Mutex
	offers map[primitive.ObjectID]*models.PriceOffer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{offers: make(map[primitive.ObjectID]*models.PriceOffer)}
}

func (f *fakeOffers) Create(_ context.Context, o *models.PriceOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.offers[o.ID] = &cp
	return nil
}

func (f *fakeOffers) FindByID(_ context.Context, id primitive.ObjectID) (*models.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOffers) UpdateStatus(_ context.Context, id primitive.ObjectID, from models.OfferStatus, change models.OfferStatusChange) (*models.PriceOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok || o.Status != from {
		return nil, mongo.ErrNoDocuments
	}
	at := change.At
	o.Status = change.To
	o.RespondedAt = &at
	o.UpdatedAt = at
	if change.ResponseMessage != "" {
		o.ResponseMessage = change.ResponseMessage
	}
	if change.ValidUntil != nil {
		v := *change.ValidUntil
		o.AcceptedPriceValidUntil = &v
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOffers) Expire(_ context.Context, id primitive.ObjectID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok || o.Status != models.OfferPending || now.Before(o.ExpiresAt) {
		return mongo.ErrNoDocuments
	}
	o.Status = models.OfferExpired
	return nil
}

func (f *fakeOffers) DeletePending(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok || o.Status != models.OfferPending {
		return mongo.ErrNoDocuments
	}
	delete(f.offers, id)
	return nil
}

func (f *fakeOffers) ListByUser(_ context.Context, userID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	return f.list(func(o *models.PriceOffer) bool { return o.UserID == userID }, status), nil
}

func (f *fakeOffers) ListByProfessional(_ context.Context, professionalID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	return f.list(func(o *models.PriceOffer) bool { return o.ProfessionalID == professionalID }, status), nil
}

func (f *fakeOffers) list(match func(*models.PriceOffer) bool, status models.OfferStatus) []*models.PriceOffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PriceOffer
	for _, o := range f.offers {
		if match(o) && (status == "" || o.Status == status) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

// fakeConversations

type fakeConversations struct {
	mu    sync.Mutex
	convs map[primitive.ObjectID]*models.Conversation
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{convs: make(map[primitive.ObjectID]*models.Conversation)}
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]models.Participant(nil), c.Participants...)
	return &cp
}

func sameBooking(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeConversations) get(id primitive.ObjectID) *models.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyConversation(f.convs[id])
}

func (f *fakeConversations) FindOpen(_ context.Context, userID, professionalID primitive.ObjectID, bookingID *primitive.ObjectID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.UserID == userID && c.ProfessionalID == professionalID && sameBooking(c.BookingID, bookingID) &&
			c.Status != models.ConversationClosed {
			return copyConversation(c), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeConversations) Create(_ context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[c.ID] = copyConversation(c)
	return nil
}

func (f *fakeConversations) FindByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return copyConversation(c), nil
}

func (f *fakeConversations) ListForUser(_ context.Context, userID primitive.ObjectID, status models.ConversationStatus, skip, limit int64) ([]*models.Conversation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		if c.Participant(userID) != nil && c.Status == status {
			out = append(out, copyConversation(c))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeConversations) RecordMessage(_ context.Context, id, receiverID primitive.ObjectID, summary models.MessageSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.Status == models.ConversationClosed {
		return mongo.ErrNoDocuments
	}
	c.LastMessageContent = summary.Content
	c.LastMessageType = summary.Type
	sender := summary.SenderID
	c.LastMessageSenderID = &sender
	at := summary.At
	c.LastMessageAt = &at
	c.Status = models.ConversationActive
	c.Participant(receiverID).UnreadCount++
	return nil
}

func (f *fakeConversations) ResetUnread(_ context.Context, id, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Participant(userID).UnreadCount = 0
	return nil
}

func (f *fakeConversations) SetMuted(_ context.Context, id, userID primitive.ObjectID, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Participant(userID).IsMuted = muted
	return nil
}

func (f *fakeConversations) SetStatus(_ context.Context, id primitive.ObjectID, status models.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Status = status
	return nil
}

func (f *fakeConversations) TotalUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, c := range f.convs {
		if p := c.Participant(userID); p != nil && c.Status != models.ConversationClosed {
			total += int64(p.UnreadCount)
		}
	}
	return total, nil
}

// fakeMessages

type fakeMessages struct {
	mu   sync.Mutex
	msgs map[primitive.ObjectID]*models.Message
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{msgs: make(map[primitive.ObjectID]*models.Message)}
}

func (f *fakeMessages) get(id primitive.ObjectID) *models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.msgs[id]
	return &cp
}

func (f *fakeMessages) Insert(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.msgs[m.ID] = &cp
	return nil
}

func (f *fakeMessages) FindByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) List(_ context.Context, conversationID primitive.ObjectID, before *primitive.ObjectID, limit int64) ([]*models.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			cp := *m
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.Hex() < all[j].ID.Hex()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if before != nil {
		for i, m := range all {
			if m.ID == *before {
				all = all[:i]
				break
			}
		}
	}
	hasMore := int64(len(all)) > limit
	if hasMore {
		all = all[int64(len(all))-limit:]
	}
	return all, hasMore, nil
}

func (f *fakeMessages) AdvanceStatus(_ context.Context, id primitive.ObjectID, status models.MessageStatus, at time.Time) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status.Rank() >= status.Rank() {
		return nil, mongo.ErrNoDocuments
	}
	m.Status = status
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
	if status == models.MessageSeen {
		m.SeenAt = &at
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) MarkSeenBefore(_ context.Context, conversationID, senderID primitive.ObjectID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if m.ConversationID == conversationID && m.SenderID == senderID &&
			m.Status != models.MessageSeen && !m.CreatedAt.After(cutoff) {
			at := cutoff
			m.Status = models.MessageSeen
			m.SeenAt = &at
			if m.DeliveredAt == nil {
				m.DeliveredAt = &at
			}
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) Edit(_ context.Context, id primitive.ObjectID, content string, at time.Time) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.IsDeleted {
		return nil, mongo.ErrNoDocuments
	}
	m.Content = content
	m.EditedAt = &at
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) SoftDelete(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	m.IsDeleted = true
	m.DeletedAt = &at
	m.Content = models.DeletedMessageContent
	m.ImageData, m.LocationData = nil, nil
	return nil
}

// fakeNotifications

type fakeNotifications struct {
	mu       sync.Mutex
	items    []*models.Notification
	settings map[primitive.ObjectID]*models.NotificationSettings
	inserts  int
	batches  []int
	// lostAcks makes that many inserts commit but report a timeout
	lostAcks int
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{settings: make(map[primitive.ObjectID]*models.NotificationSettings)}
}

func (f *fakeNotifications) forUser(userID primitive.ObjectID) []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.items {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeNotifications) ofType(userID primitive.ObjectID, kind models.NotificationType) []*models.Notification {
	var out []*models.Notification
	for _, n := range f.forUser(userID) {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeNotifications) live(n *models.Notification, userID primitive.ObjectID, now time.Time) bool {
	return n.UserID == userID && !n.IsDeleted && (n.ExpiresAt == nil || n.ExpiresAt.After(now))
}

func (f *fakeNotifications) Insert(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	for _, existing := range f.items {
		if existing.ID == n.ID {
			return duplicateKey
		}
	}
	cp := *n
	f.items = append(f.items, &cp)
	if f.lostAcks > 0 {
		f.lostAcks--
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeNotifications) InsertMany(_ context.Context, items []*models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, len(items))
	for _, n := range items {
		cp := *n
		f.items = append(f.items, &cp)
	}
	return nil
}

func (f *fakeNotifications) FindByID(_ context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id && n.UserID == userID && !n.IsDeleted {
			cp := *n
			return &cp, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeNotifications) List(_ context.Context, userID primitive.ObjectID, filter models.NotificationFilter, now time.Time) ([]*models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		n := f.items[i]
		if !f.live(n, userID, now) {
			continue
		}
		if filter.Category != "" && n.Category != filter.Category {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		cp := *n
		matched = append(matched, &cp)
	}
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if f.live(item, userID, now) && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id && n.UserID == userID && !n.IsDeleted {
			n.IsRead = true
			n.ReadAt = &at
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, userID primitive.ObjectID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.items {
		if n.UserID == userID && !n.IsRead && !n.IsDeleted {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) SoftDelete(_ context.Context, userID, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id && n.UserID == userID && !n.IsDeleted {
			n.IsDeleted = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (f *fakeNotifications) SoftDeleteAll(_ context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.items {
		if n.UserID == userID && !n.IsDeleted {
			n.IsDeleted = true
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifications) GetSettings(_ context.Context, userID primitive.ObjectID) (*models.NotificationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[userID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeNotifications) SaveSettings(_ context.Context, s *models.NotificationSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.settings[s.UserID] = &cp
	return nil
}

// fakeEmitter records every emit instead of writing to sockets

type emitted struct {
	topics  []string
	payload models.EventPayload
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
	online map[primitive.ObjectID]bool
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{online: make(map[primitive.ObjectID]bool)}
}

func (f *fakeEmitter) setOnline(id primitive.ObjectID, online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[id] = online
}

func (f *fakeEmitter) EmitToUser(userID primitive.ObjectID, payload models.EventPayload) error {
	return f.EmitToTopics([]string{models.UserTopic(userID)}, payload)
}

func (f *fakeEmitter) EmitToTopic(topic string, payload models.EventPayload) error {
	return f.EmitToTopics([]string{topic}, payload)
}

func (f *fakeEmitter) EmitToTopics(topics []string, payload models.EventPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{topics: append([]string(nil), topics...), payload: payload})
	return nil
}

func (f *fakeEmitter) IsOnline(userID primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

// named returns the payloads emitted under an event name
func (f *fakeEmitter) named(name string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.payload.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) all() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.events...)
}

// fakeTx runs the function directly and counts calls

type fakeTx struct {
	calls int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// mockPusher and mockPublisher

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Push(ctx context.Context, token string, n *models.Notification) error {
	args := m.Called(ctx, token, n)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

// testEnv wires every service against the fakes with an inline dispatcher

type testEnv struct {
	users         *fakeUsers
	bookings      *fakeBookings
	offers        *fakeOffers
	conversations *fakeConversations
	messages      *fakeMessages
	notifications *fakeNotifications
	emitter       *fakeEmitter
	tx            *fakeTx
	dispatch      *Dispatcher

	notify    *NotificationService
	booking   *BookingService
	offer     *OfferService
	messaging *MessagingService
}

func newTestEnv(pusher Pusher, publisher EventPublisher) *testEnv {
	env := &testEnv{
		users:         newFakeUsers(),
		bookings:      newFakeBookings(),
		offers:        newFakeOffers(),
		conversations: newFakeConversations(),
		messages:      newFakeMessages(),
		notifications: newFakeNotifications(),
		emitter:       newFakeEmitter(),
		tx:            &fakeTx{},
		dispatch:      NewDispatcher(0, 0),
	}
	env.notify = NewNotificationService(env.notifications, env.users, env.emitter, pusher, env.dispatch)
	env.booking = NewBookingService(env.bookings, env.users, env.emitter, env.notify, publisher, env.dispatch)
	env.offer = NewOfferService(env.offers, env.users, env.emitter, env.notify, publisher, env.dispatch, 0)
	env.messaging = NewMessagingService(env.conversations, env.messages, env.users, env.bookings, env.tx,
		env.emitter, env.notify, env.dispatch)
	return env
}

// setNow pins every service clock
func (env *testEnv) setNow(now time.Time) {
	clock := func() time.Time { return now }
	env.notify.now = clock
	env.booking.now = clock
	env.offer.now = clock
	env.messaging.now = clock
}
