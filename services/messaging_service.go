package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/utils"
)

const defaultMessagePage = 50

// MessagingService manages conversations and the messages inside them
type MessagingService struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserStore
	bookings      BookingStore
	tx            Transactor
	emitter       Emitter
	notifications *NotificationService
	dispatch      *Dispatcher
	now           func() time.Time
}

// NewMessagingService creates the messaging service
func NewMessagingService(conversations ConversationStore, messages MessageStore, users UserStore, bookings BookingStore,
	tx Transactor, emitter Emitter, notifications *NotificationService, dispatch *Dispatcher) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		bookings:      bookings,
		tx:            tx,
		emitter:       emitter,
		notifications: notifications,
		dispatch:      dispatch,
		now:           time.Now,
	}
}

// GetOrCreateConversation returns the open thread between the caller and the
// other party, creating it on first contact. The second return value reports
// whether a new conversation was created.
func (s *MessagingService) GetOrCreateConversation(ctx context.Context, callerID, otherID primitive.ObjectID, bookingID *primitive.ObjectID) (*models.Conversation, bool, error) {
	if callerID == otherID {
		return nil, false, models.NewValidation("cannot start a conversation with yourself")
	}

	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, false, storeErr(err, "user not found")
	}
	other, err := s.users.FindByID(ctx, otherID)
	if err != nil {
		return nil, false, storeErr(err, "participant not found")
	}

	var customer, professional *models.User
	switch {
	case other.IsProfessional() && !caller.IsProfessional():
		customer, professional = caller, other
	case caller.IsProfessional() && !other.IsProfessional():
		customer, professional = other, caller
	default:
		return nil, false, models.NewValidation("a conversation needs one customer and one professional")
	}

	var ref *models.BookingReference
	if bookingID != nil {
		booking, err := s.bookings.FindByID(ctx, *bookingID)
		if err != nil {
			return nil, false, storeErr(err, "booking not found")
		}
		if booking.UserID != customer.ID || booking.ProfessionalID != professional.ID {
			return nil, false, models.NewForbidden("booking does not belong to these participants")
		}
		ref = &models.BookingReference{
			BookingID:     booking.ID,
			ServiceName:   booking.DisplayServiceName(),
			ServiceType:   booking.ServiceType,
			ScheduledDate: booking.ScheduledDate,
			ScheduledTime: booking.ScheduledTime,
			Status:        booking.Status,
			Price:         booking.Price,
			Address:       booking.Address,
		}
	}

	existing, err := s.conversations.FindOpen(ctx, customer.ID, professional.ID, bookingID)
	if err == nil {
		return s.withPresence(existing), false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:             primitive.NewObjectID(),
		UserID:         customer.ID,
		ProfessionalID: professional.ID,
		BookingID:      bookingID,
		Participants: []models.Participant{
			participantFrom(customer, models.RoleUser, now),
			participantFrom(professional, models.RoleProfessional, now),
		},
		BookingReference: ref,
		Status:           models.ConversationActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost a race with a concurrent start; return the winner
			existing, err := s.conversations.FindOpen(ctx, customer.ID, professional.ID, bookingID)
			if err != nil {
				return nil, false, err
			}
			return s.withPresence(existing), false, nil
		}
		return nil, false, err
	}
	return s.withPresence(conv), true, nil
}

func participantFrom(u *models.User, role string, now time.Time) models.Participant {
	return models.Participant{
		UserID:   u.ID,
		Role:     role,
		Name:     u.DisplayName(),
		Photo:    u.ProfilePic,
		Phone:    u.Phone,
		JoinedAt: now,
	}
}

// withPresence refreshes the online snapshot from the live registry
func (s *MessagingService) withPresence(conv *models.Conversation) *models.Conversation {
	for i := range conv.Participants {
		conv.Participants[i].IsOnline = s.emitter.IsOnline(conv.Participants[i].UserID)
	}
	return conv
}

// conversationFor loads a conversation and checks the caller takes part in it
func (s *MessagingService) conversationFor(ctx context.Context, userID, conversationID primitive.ObjectID) (*models.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, storeErr(err, "conversation not found")
	}
	if conv.Participant(userID) == nil {
		return nil, models.NewForbidden("you are not a participant in this conversation")
	}
	return conv, nil
}

// GetConversation returns a conversation the caller takes part in
func (s *MessagingService) GetConversation(ctx context.Context, userID, conversationID primitive.ObjectID) (*models.Conversation, error) {
	conv, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.withPresence(conv), nil
}

// ListConversations lists the caller's threads, most recent first
func (s *MessagingService) ListConversations(ctx context.Context, userID primitive.ObjectID, status models.ConversationStatus, page, limit int64) (*models.ConversationList, error) {
	if status == "" {
		status = models.ConversationActive
	}
	if page < 1 {
		page = 1
	}
	limit = clampLimit(limit)

	convs, total, err := s.conversations.ListForUser(ctx, userID, status, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	for _, conv := range convs {
		s.withPresence(conv)
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	return &models.ConversationList{Conversations: convs, Total: total, Page: page, Limit: limit}, nil
}

// ListMessages returns a page of messages in ascending order. before pages
// backwards from a message id.
func (s *MessagingService) ListMessages(ctx context.Context, userID, conversationID primitive.ObjectID, before *primitive.ObjectID, limit int64) (*models.MessageList, error) {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	limit = clampLimit(limit)

	msgs, hasMore, err := s.messages.List(ctx, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return &models.MessageList{Messages: msgs, HasMore: hasMore}, nil
}

func validateMessage(in *models.MessageInput) error {
	if in.Type == "" {
		in.Type = models.MessageText
	}
	in.Content = utils.SanitizeInput(in.Content)

	switch in.Type {
	case models.MessageText:
		if in.Content == "" {
			return models.NewValidation("message content is required")
		}
	case models.MessageImage:
		if in.ImageData == nil || in.ImageData.URL == "" {
			return models.NewValidation("image data is required for image messages")
		}
	case models.MessageLocation:
		if in.LocationData == nil {
			return models.NewValidation("location data is required for location messages")
		}
	default:
		return models.NewValidation("unsupported message type")
	}
	return nil
}

func messagePreview(msg *models.Message) string {
	switch msg.Type {
	case models.MessageImage:
		return "Sent a photo"
	case models.MessageLocation:
		return "Shared a location"
	}
	return truncate(msg.Content, models.LastMessagePreviewLength)
}

// SendMessage stores a message, bumps the receiver's unread counter in the
// same transaction, and announces it on the conversation and receiver topics
func (s *MessagingService) SendMessage(ctx context.Context, senderID, conversationID primitive.ObjectID, in models.MessageInput) (*models.Message, error) {
	conv, err := s.conversationFor(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.ConversationClosed {
		return nil, models.NewInvalidTransition("conversation is closed")
	}
	sender := conv.Participant(senderID)
	if sender.IsBlocked {
		return nil, models.NewForbidden("you cannot send messages in this conversation")
	}
	if err := validateMessage(&in); err != nil {
		return nil, err
	}
	if in.ReplyTo != nil {
		parent, err := s.messages.FindByID(ctx, *in.ReplyTo)
		if err != nil || parent.ConversationID != conv.ID {
			return nil, models.NewValidation("reply target is not in this conversation")
		}
	}

	receiver := conv.Other(senderID)
	now := s.now().UTC()
	msg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		SenderRole:     sender.Role,
		Type:           in.Type,
		Content:        in.Content,
		ImageData:      in.ImageData,
		LocationData:   in.LocationData,
		ReplyTo:        in.ReplyTo,
		Status:         models.MessageSent,
		CreatedAt:      now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.messages.Insert(ctx, msg); err != nil {
			return err
		}
		return s.conversations.RecordMessage(ctx, conv.ID, receiver.UserID, models.MessageSummary{
			Content:  messagePreview(msg),
			Type:     msg.Type,
			SenderID: senderID,
			At:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Submit(Job{
		Name: "emit " + models.EventNewMessage,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopics(
				[]string{models.ConversationTopic(conv.ID), models.UserTopic(receiver.UserID)},
				models.MessageEvent{ConversationID: conv.ID, Message: msg},
			)
		},
	})

	if !receiver.IsMuted && !s.emitter.IsOnline(receiver.UserID) {
		s.notifications.Notify(models.NotificationInput{
			UserID:   receiver.UserID,
			Type:     models.NotifyNewMessage,
			Category: models.CategorySystem,
			Priority: models.PriorityNormal,
			Title:    "New message from " + sender.Name,
			Message:  messagePreview(msg),
			Data: &models.NotificationData{
				ConversationID:   oidPtr(conv.ID),
				MessageID:        oidPtr(msg.ID),
				CounterpartyID:   oidPtr(senderID),
				CounterpartyName: sender.Name,
			},
			ActionURL:  "/messages/" + conv.ID.Hex(),
			ActionText: "Reply",
		})
	}
	return msg, nil
}

// UpdateStatus advances a message's delivery status. Only the receiver may
// do so, and a status never moves backwards.
func (s *MessagingService) UpdateStatus(ctx context.Context, actorID, messageID primitive.ObjectID, status models.MessageStatus) (*models.Message, error) {
	if status != models.MessageDelivered && status != models.MessageSeen {
		return nil, models.NewValidation("status must be delivered or seen")
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeErr(err, "message not found")
	}
	if _, err := s.conversationFor(ctx, actorID, msg.ConversationID); err != nil {
		return nil, err
	}
	if msg.SenderID == actorID {
		return nil, models.NewForbidden("only the recipient can update message status")
	}
	if status.Rank() <= msg.Status.Rank() {
		return msg, nil
	}

	updated, err := s.messages.AdvanceStatus(ctx, messageID, status, s.now().UTC())
	if errors.Is(err, mongo.ErrNoDocuments) {
		// already advanced concurrently
		return s.messages.FindByID(ctx, messageID)
	}
	if err != nil {
		return nil, err
	}

	s.dispatch.Submit(Job{
		Name: "emit " + models.EventMessageStatusChanged,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopics(
				[]string{models.ConversationTopic(updated.ConversationID), models.UserTopic(updated.SenderID)},
				models.MessageStatusEvent{ConversationID: updated.ConversationID, MessageID: updated.ID, Status: updated.Status},
			)
		},
	})
	return updated, nil
}

// MarkConversationRead marks every message the other participant sent up to
// now as seen and zeroes the reader's unread counter. Messages sent after
// the cutoff keep their status.
func (s *MessagingService) MarkConversationRead(ctx context.Context, readerID, conversationID primitive.ObjectID) (int64, error) {
	conv, err := s.conversationFor(ctx, readerID, conversationID)
	if err != nil {
		return 0, err
	}
	other := conv.Other(readerID)
	cutoff := s.now().UTC()

	var marked int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := s.messages.MarkSeenBefore(ctx, conv.ID, other.UserID, cutoff)
		if err != nil {
			return err
		}
		marked = n
		return s.conversations.ResetUnread(ctx, conv.ID, readerID)
	})
	if err != nil {
		return 0, err
	}

	if marked > 0 {
		s.dispatch.Submit(Job{
			Name: "emit " + models.EventMessagesRead,
			Run: func(ctx context.Context) error {
				return s.emitter.EmitToTopics(
					[]string{models.ConversationTopic(conv.ID), models.UserTopic(other.UserID)},
					models.MessagesReadEvent{ConversationID: conv.ID, ReaderID: readerID, Count: marked},
				)
			},
		})
	}
	return marked, nil
}

// Typing broadcasts a transient typing indicator. Nothing is stored.
func (s *MessagingService) Typing(ctx context.Context, userID, conversationID primitive.ObjectID, isTyping bool) error {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return err
	}
	s.dispatch.Submit(Job{
		Name: "emit " + models.EventUserTyping,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopic(models.ConversationTopic(conversationID),
				models.TypingEvent{ConversationID: conversationID, UserID: userID, IsTyping: isTyping})
		},
	})
	return nil
}

// EditMessage changes the text of the caller's own text message
func (s *MessagingService) EditMessage(ctx context.Context, actorID, messageID primitive.ObjectID, content string) (*models.Message, error) {
	content = utils.SanitizeInput(content)
	if content == "" {
		return nil, models.NewValidation("message content is required")
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeErr(err, "message not found")
	}
	if msg.SenderID != actorID {
		return nil, models.NewForbidden("only the sender can edit a message")
	}
	if msg.Type != models.MessageText {
		return nil, models.NewValidation("only text messages can be edited")
	}
	if msg.IsDeleted {
		return nil, models.NewInvalidTransition("message has been deleted")
	}

	updated, err := s.messages.Edit(ctx, messageID, content, s.now().UTC())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewInvalidTransition("message has been deleted")
		}
		return nil, err
	}

	s.dispatch.Submit(Job{
		Name: "emit " + models.EventMessageEdited,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopic(models.ConversationTopic(updated.ConversationID),
				models.MessageEditedEvent{ConversationID: updated.ConversationID, Message: updated})
		},
	})
	return updated, nil
}

// DeleteMessage tombstones the caller's own message. The row is kept so the
// thread order does not change.
func (s *MessagingService) DeleteMessage(ctx context.Context, actorID, messageID primitive.ObjectID) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return storeErr(err, "message not found")
	}
	if msg.SenderID != actorID {
		return models.NewForbidden("only the sender can delete a message")
	}
	if msg.IsDeleted {
		return nil
	}
	if err := s.messages.SoftDelete(ctx, messageID, s.now().UTC()); err != nil {
		return err
	}

	s.dispatch.Submit(Job{
		Name: "emit " + models.EventMessageDeleted,
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopic(models.ConversationTopic(msg.ConversationID),
				models.MessageDeletedEvent{ConversationID: msg.ConversationID, MessageID: msg.ID})
		},
	})
	return nil
}

// SetMuted toggles notifications for the caller in one conversation
func (s *MessagingService) SetMuted(ctx context.Context, userID, conversationID primitive.ObjectID, muted bool) error {
	if _, err := s.conversationFor(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.conversations.SetMuted(ctx, conversationID, userID, muted)
}

// Archive hides a conversation from the active list
func (s *MessagingService) Archive(ctx context.Context, userID, conversationID primitive.ObjectID) error {
	conv, err := s.conversationFor(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if conv.Status == models.ConversationClosed {
		return models.NewInvalidTransition("conversation is closed")
	}
	return s.conversations.SetStatus(ctx, conversationID, models.ConversationArchived)
}

// TotalUnread sums the caller's unread counters across open conversations
func (s *MessagingService) TotalUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.conversations.TotalUnread(ctx, userID)
}

// MessageSeen is the realtime shortcut for marking one message seen
func (s *MessagingService) MessageSeen(ctx context.Context, userID, messageID primitive.ObjectID) error {
	_, err := s.UpdateStatus(ctx, userID, messageID, models.MessageSeen)
	return err
}
