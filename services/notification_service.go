package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
)

// NotificationService owns the durable notification feed. Records are always
// stored before any live delivery is attempted.
type NotificationService struct {
	store    NotificationStore
	users    UserStore
	emitter  Emitter
	pusher   Pusher
	dispatch *Dispatcher
	now      func() time.Time
}

// NewNotificationService creates the service. pusher may be nil.
func NewNotificationService(store NotificationStore, users UserStore, emitter Emitter, pusher Pusher, dispatch *Dispatcher) *NotificationService {
	return &NotificationService{
		store:    store,
		users:    users,
		emitter:  emitter,
		pusher:   pusher,
		dispatch: dispatch,
		now:      time.Now,
	}
}

// Create stores a notification and queues its live delivery. Delivery
// failures never affect the stored record.
func (s *NotificationService) Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	n, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	s.deliver(n)
	return n, nil
}

// Notify queues a notification write behind a committed business change.
// The record and its id are built once, so a retried insert whose first
// attempt did commit finds its own document instead of writing a second one.
func (s *NotificationService) Notify(in models.NotificationInput) {
	n, err := s.build(in)
	if err != nil {
		log.Printf("Failed to build %s notification: %v", in.Type, err)
		return
	}
	s.dispatch.Submit(Job{
		Name:    "notify " + string(n.Type),
		Retries: 3,
		Run: func(ctx context.Context) error {
			if err := s.store.Insert(ctx, n); err != nil && !mongo.IsDuplicateKeyError(err) {
				return err
			}
			s.deliver(n)
			return nil
		},
	})
}

// Send delivers an operator-authored notification to one existing user
func (s *NotificationService) Send(ctx context.Context, req models.SendNotificationRequest) (*models.Notification, error) {
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return nil, models.NewValidation("invalid user ID")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, storeErr(err, "user not found")
	}
	return s.Create(ctx, models.NotificationInput{
		UserID:     userID,
		Type:       req.Type,
		Category:   req.Category,
		Priority:   req.Priority,
		Title:      req.Title,
		Message:    req.Message,
		ActionURL:  req.ActionURL,
		ActionText: req.ActionText,
		Icon:       req.Icon,
		ExpiresAt:  req.ExpiresAt,
	})
}

const broadcastBatchSize = 500

// Broadcast stores one announcement per recipient in batches, then queues
// live delivery for each. With no user ids it targets every customer.
func (s *NotificationService) Broadcast(ctx context.Context, req models.BroadcastRequest) (*models.BroadcastResult, error) {
	if req.Type == "" {
		req.Type = models.NotifyNewOffer
	}
	if req.Category == "" {
		req.Category = models.CategoryPromotional
	}

	recipients, err := s.recipients(ctx, req.UserIDs)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Notification, 0, broadcastBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.InsertMany(ctx, batch); err != nil {
			return err
		}
		for _, n := range batch {
			s.deliver(n)
		}
		batch = make([]*models.Notification, 0, broadcastBatchSize)
		return nil
	}

	for _, userID := range recipients {
		n, err := s.build(models.NotificationInput{
			UserID:    userID,
			Type:      req.Type,
			Category:  req.Category,
			Priority:  models.PriorityNormal,
			Title:     req.Title,
			Message:   req.Message,
			ActionURL: req.ActionURL,
		})
		if err != nil {
			return nil, err
		}
		batch = append(batch, n)
		if len(batch) == broadcastBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return &models.BroadcastResult{Count: len(recipients)}, nil
}

// recipients parses and dedupes explicit ids, or lists every customer
func (s *NotificationService) recipients(ctx context.Context, hexIDs []string) ([]primitive.ObjectID, error) {
	if len(hexIDs) == 0 {
		return s.users.IDsByType(ctx, models.UserTypeCustomer)
	}
	seen := make(map[primitive.ObjectID]bool, len(hexIDs))
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, hex := range hexIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, models.NewValidation("invalid user ID " + hex)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// build validates the input and fills in defaults
func (s *NotificationService) build(in models.NotificationInput) (*models.Notification, error) {
	if in.UserID.IsZero() {
		return nil, models.NewValidation("notification recipient is required")
	}
	if in.Type == "" || in.Title == "" || in.Message == "" {
		return nil, models.NewValidation("notification type, title and message are required")
	}
	if in.Category == "" {
		in.Category = models.CategorySystem
	}
	if in.Priority == "" {
		in.Priority = models.PriorityNormal
	}

	return &models.Notification{
		ID:         primitive.NewObjectID(),
		UserID:     in.UserID,
		Type:       in.Type,
		Category:   in.Category,
		Priority:   in.Priority,
		Title:      in.Title,
		Message:    in.Message,
		Data:       in.Data,
		ActionURL:  in.ActionURL,
		ActionText: in.ActionText,
		Icon:       in.Icon,
		CreatedAt:  s.now().UTC(),
		ExpiresAt:  in.ExpiresAt,
	}, nil
}

// deliver queues the live emit and, for offline users, the push
func (s *NotificationService) deliver(n *models.Notification) {
	s.dispatch.Submit(Job{
		Name: "emit " + models.EventNewNotification,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToUser(n.UserID, models.NotificationEvent{Notification: n})
		},
	})

	if s.pusher != nil && !s.emitter.IsOnline(n.UserID) {
		s.dispatch.Submit(Job{
			Name:    "push " + string(n.Type),
			Retries: 2,
			Run: func(ctx context.Context) error {
				return s.push(ctx, n)
			},
		})
	}
}

func (s *NotificationService) push(ctx context.Context, n *models.Notification) error {
	settings, err := s.settings(ctx, n.UserID)
	if err != nil {
		return err
	}
	if !settings.AllowsPush(n, s.now()) {
		return nil
	}

	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		return storeErr(err, "user not found")
	}
	if user.FCMToken == "" {
		return nil
	}
	return s.pusher.Push(ctx, user.FCMToken, n)
}

// List returns a page of the user's live feed with its unread count
func (s *NotificationService) List(ctx context.Context, userID primitive.ObjectID, filter models.NotificationFilter) (*models.NotificationList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Limit = clampLimit(filter.Limit)

	now := s.now()
	items, total, err := s.store.List(ctx, userID, filter, now)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Notification{}
	}
	return &models.NotificationList{
		Notifications: items,
		Total:         total,
		UnreadCount:   unread,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}, nil
}

// Get returns one of the user's notifications
func (s *NotificationService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.store.FindByID(ctx, userID, id)
	if err != nil {
		return nil, storeErr(err, "notification not found")
	}
	return n, nil
}

// MarkRead marks one notification read and tells the user's other sessions
func (s *NotificationService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.store.MarkRead(ctx, userID, id, s.now().UTC()); err != nil {
		return storeErr(err, "notification not found")
	}
	s.dispatch.Submit(Job{
		Name: "emit " + models.EventNotificationRead,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToUser(userID, models.NotificationReadEvent{NotificationID: id})
		},
	})
	return nil
}

// MarkAllRead marks every unread notification read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, s.now().UTC())
}

// Delete soft deletes one notification
func (s *NotificationService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	if err := s.store.SoftDelete(ctx, userID, id); err != nil {
		return storeErr(err, "notification not found")
	}
	return nil
}

// ClearAll soft deletes the user's whole feed
func (s *NotificationService) ClearAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.SoftDeleteAll(ctx, userID)
}

// UnreadCount counts unread, unexpired notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.CountUnread(ctx, userID, s.now())
}

// GetSettings returns stored preferences or the defaults
func (s *NotificationService) GetSettings(ctx context.Context, userID primitive.ObjectID) (*models.NotificationSettings, error) {
	return s.settings(ctx, userID)
}

// UpdateSettings replaces the user's preferences
func (s *NotificationService) UpdateSettings(ctx context.Context, userID primitive.ObjectID, settings models.NotificationSettings) (*models.NotificationSettings, error) {
	settings.UserID = userID
	settings.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// RegisterDevice stores the FCM token pushes are sent to
func (s *NotificationService) RegisterDevice(ctx context.Context, userID primitive.ObjectID, token string) error {
	if token == "" {
		return models.NewValidation("FCM token is required")
	}
	if err := s.users.UpdateFCMToken(ctx, userID, token); err != nil {
		return storeErr(err, "user not found")
	}
	return nil
}

func (s *NotificationService) settings(ctx context.Context, userID primitive.ObjectID) (*models.NotificationSettings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return models.DefaultNotificationSettings(userID), nil
	}
	return settings, nil
}
