package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/homeservices_backend/models"
)

func bookingNotice(userID primitive.ObjectID) models.NotificationInput {
	return models.NotificationInput{
		UserID:   userID,
		Type:     models.NotifyBookingAccepted,
		Category: models.CategoryBooking,
		Priority: models.PriorityHigh,
		Title:    "Booking accepted",
		Message:  "Your booking was accepted",
	}
}

func TestCreateNotificationValidates(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()

	_, err := env.notify.Create(ctx, models.NotificationInput{Type: models.NotifyInfo, Title: "t", Message: "m"})
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = env.notify.Create(ctx, models.NotificationInput{UserID: primitive.NewObjectID(), Type: models.NotifyInfo})
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Empty(t, env.emitter.all())
}

func TestCreateNotificationStoresThenEmits(t *testing.T) {
	env := newTestEnv(nil, nil)
	user := env.users.add("Maya", models.UserTypeCustomer)

	n, err := env.notify.Create(context.Background(), models.NotificationInput{
		UserID:  user.ID,
		Type:    models.NotifyInfo,
		Title:   "Hello",
		Message: "Welcome aboard",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategorySystem, n.Category)
	assert.Equal(t, models.PriorityNormal, n.Priority)
	assert.False(t, n.IsRead)
	assert.Len(t, env.notifications.forUser(user.ID), 1)

	sent := env.emitter.named(models.EventNewNotification)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{models.UserTopic(user.ID)}, sent[0].topics)
	assert.Equal(t, n.ID, sent[0].payload.(models.NotificationEvent).Notification.ID)
}

func TestCreateNotificationPushesWhenOffline(t *testing.T) {
	pusher := new(mockPusher)
	env := newTestEnv(pusher, nil)
	user := env.users.add("Maya", models.UserTypeCustomer)
	require.NoError(t, env.notify.RegisterDevice(context.Background(), user.ID, "device-token"))

	pusher.On("Push", mock.Anything, "device-token", mock.AnythingOfType("*models.Notification")).Return(nil).Once()

	_, err := env.notify.Create(context.Background(), bookingNotice(user.ID))
	require.NoError(t, err)
	pusher.AssertExpectations(t)
}

func TestCreateNotificationSkipsPushWhenOnline(t *testing.T) {
	pusher := new(mockPusher)
	env := newTestEnv(pusher, nil)
	user := env.users.add("Maya", models.UserTypeCustomer)
	require.NoError(t, env.notify.RegisterDevice(context.Background(), user.ID, "device-token"))
	env.emitter.setOnline(user.ID, true)

	_, err := env.notify.Create(context.Background(), bookingNotice(user.ID))
	require.NoError(t, err)
	pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNotificationRespectsPushSettings(t *testing.T) {
	pusher := new(mockPusher)
	env := newTestEnv(pusher, nil)
	env.setNow(time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC))
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)
	require.NoError(t, env.notify.RegisterDevice(ctx, user.ID, "device-token"))

	settings := *models.DefaultNotificationSettings(user.ID)
	settings.QuietHoursEnabled = true
	_, err := env.notify.UpdateSettings(ctx, user.ID, settings)
	require.NoError(t, err)

	// quiet hours hold back a high priority push
	_, err = env.notify.Create(ctx, bookingNotice(user.ID))
	require.NoError(t, err)
	pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)

	// urgent goes through
	urgent := bookingNotice(user.ID)
	urgent.Priority = models.PriorityUrgent
	pusher.On("Push", mock.Anything, "device-token", mock.Anything).Return(nil).Once()
	_, err = env.notify.Create(ctx, urgent)
	require.NoError(t, err)
	pusher.AssertExpectations(t)

	// the record is stored regardless of push
	assert.Len(t, env.notifications.forUser(user.ID), 2)
}

func TestPushFailureKeepsStoredNotification(t *testing.T) {
	pusher := new(mockPusher)
	env := newTestEnv(pusher, nil)
	env.dispatch.backoff = time.Millisecond
	user := env.users.add("Maya", models.UserTypeCustomer)
	require.NoError(t, env.notify.RegisterDevice(context.Background(), user.ID, "device-token"))

	pusher.On("Push", mock.Anything, "device-token", mock.Anything).Return(assert.AnError)

	n, err := env.notify.Create(context.Background(), bookingNotice(user.ID))
	require.NoError(t, err)
	pusher.AssertNumberOfCalls(t, "Push", 3)

	stored, err := env.notify.Get(context.Background(), user.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, stored.ID)
	assert.Equal(t, int64(1), env.dispatch.Stats().Failed)
}

func TestNotificationFeedOperations(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)
	other := env.users.add("Omar", models.UserTypeCustomer)

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		n, err := env.notify.Create(ctx, bookingNotice(user.ID))
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	_, err := env.notify.Create(ctx, models.NotificationInput{
		UserID: user.ID, Type: models.NotifyNewOffer, Category: models.CategoryOffer, Title: "Offer", Message: "New offer",
	})
	require.NoError(t, err)

	count, err := env.notify.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	// another user cannot read or touch the notification
	_, err = env.notify.Get(ctx, other.ID, ids[0])
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.True(t, models.IsKind(env.notify.MarkRead(ctx, other.ID, ids[0]), models.KindNotFound))

	require.NoError(t, env.notify.MarkRead(ctx, user.ID, ids[0]))
	require.Len(t, env.emitter.named(models.EventNotificationRead), 1)

	read := true
	list, err := env.notify.List(ctx, user.ID, models.NotificationFilter{IsRead: &read})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(3), list.UnreadCount)
	assert.Equal(t, int64(1), list.Page)
	assert.Equal(t, int64(defaultPageSize), list.Limit)

	list, err = env.notify.List(ctx, user.ID, models.NotificationFilter{Category: models.CategoryOffer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	require.NoError(t, env.notify.Delete(ctx, user.ID, ids[1]))
	assert.True(t, models.IsKind(env.notify.Delete(ctx, user.ID, ids[1]), models.KindNotFound))

	updated, err := env.notify.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	cleared, err := env.notify.ClearAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)

	list, err = env.notify.List(ctx, user.ID, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Notifications)
	assert.NotNil(t, list.Notifications)
}

func TestExpiredNotificationsLeaveTheFeed(t *testing.T) {
	env := newTestEnv(nil, nil)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env.setNow(now)
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)

	past := now.Add(-time.Minute)
	in := bookingNotice(user.ID)
	in.ExpiresAt = &past
	_, err := env.notify.Create(ctx, in)
	require.NoError(t, err)

	count, err := env.notify.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyRunsThroughDispatcher(t *testing.T) {
	env := newTestEnv(nil, nil)
	user := env.users.add("Maya", models.UserTypeCustomer)

	env.notify.Notify(bookingNotice(user.ID))

	assert.Len(t, env.notifications.forUser(user.ID), 1)
	assert.Equal(t, int64(2), env.dispatch.Stats().Delivered, "notify job and its emit")
}

func TestNotifyRetryAfterLostAckKeepsOneRecord(t *testing.T) {
	env := newTestEnv(nil, nil)
	env.dispatch.backoff = time.Millisecond
	env.notifications.lostAcks = 1
	user := env.users.add("Maya", models.UserTypeCustomer)

	env.notify.Notify(bookingNotice(user.ID))

	assert.Equal(t, 2, env.notifications.inserts)
	assert.Len(t, env.notifications.forUser(user.ID), 1)
	assert.Len(t, env.emitter.named(models.EventNewNotification), 1)
	stats := env.dispatch.Stats()
	assert.Equal(t, int64(1), stats.Retried)
	assert.Zero(t, stats.Failed)
}

func TestNotifyDropsInvalidInputWithoutRetrying(t *testing.T) {
	env := newTestEnv(nil, nil)

	env.notify.Notify(models.NotificationInput{UserID: primitive.NewObjectID(), Type: models.NotifyInfo})

	assert.Zero(t, env.notifications.inserts)
	stats := env.dispatch.Stats()
	assert.Zero(t, stats.Inline+stats.Enqueued)
	assert.Zero(t, stats.Retried)
}

func TestNotificationSettings(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)

	settings, err := env.notify.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, settings.PushEnabled)
	assert.Equal(t, "22:00", settings.QuietHoursStart)

	_, err = env.notify.UpdateSettings(ctx, user.ID, models.NotificationSettings{PushEnabled: false})
	require.NoError(t, err)

	settings, err = env.notify.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, settings.PushEnabled)
	assert.Equal(t, user.ID, settings.UserID)
}

func TestRegisterDevice(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)

	assert.True(t, models.IsKind(env.notify.RegisterDevice(ctx, user.ID, ""), models.KindValidation))
	assert.True(t, models.IsKind(env.notify.RegisterDevice(ctx, primitive.NewObjectID(), "tok"), models.KindNotFound))

	require.NoError(t, env.notify.RegisterDevice(ctx, user.ID, "tok"))
	stored, err := env.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", stored.FCMToken)
}

func TestSendNotification(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	user := env.users.add("Maya", models.UserTypeCustomer)

	n, err := env.notify.Send(ctx, models.SendNotificationRequest{
		UserID:  user.ID.Hex(),
		Type:    models.NotifyAlert,
		Title:   "Service notice",
		Message: "Our support line is back online",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, n.UserID)
	assert.Len(t, env.notifications.forUser(user.ID), 1)
	assert.Len(t, env.emitter.named(models.EventNewNotification), 1)

	_, err = env.notify.Send(ctx, models.SendNotificationRequest{
		UserID: primitive.NewObjectID().Hex(), Type: models.NotifyAlert, Title: "t", Message: "m",
	})
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = env.notify.Send(ctx, models.SendNotificationRequest{UserID: "someone", Type: models.NotifyAlert, Title: "t", Message: "m"})
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestBroadcastToListedUsers(t *testing.T) {
	env := newTestEnv(nil, nil)
	a := env.users.add("Maya", models.UserTypeCustomer)
	b := env.users.add("Nour", models.UserTypeCustomer)

	res, err := env.notify.Broadcast(context.Background(), models.BroadcastRequest{
		Title:   "Spring offer",
		Message: "20% off deep cleaning this week",
		UserIDs: []string{a.ID.Hex(), b.ID.Hex(), a.ID.Hex()},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Count)
	for _, id := range []primitive.ObjectID{a.ID, b.ID} {
		got := env.notifications.forUser(id)
		require.Len(t, got, 1)
		assert.Equal(t, models.CategoryPromotional, got[0].Category)
		assert.Equal(t, models.NotifyNewOffer, got[0].Type)
	}
	assert.Equal(t, []int{2}, env.notifications.batches)
	assert.Zero(t, env.notifications.inserts)
	assert.Len(t, env.emitter.named(models.EventNewNotification), 2)
}

func TestBroadcastDefaultsToEveryCustomer(t *testing.T) {
	env := newTestEnv(nil, nil)
	customer := env.users.add("Maya", models.UserTypeCustomer)
	professional := env.users.add("Karim", models.UserTypeProfessional)

	res, err := env.notify.Broadcast(context.Background(), models.BroadcastRequest{
		Title:    "Maintenance",
		Message:  "The app will be down at 2am",
		Category: models.CategorySystem,
		Type:     models.NotifyInfo,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Count)
	assert.Len(t, env.notifications.forUser(customer.ID), 1)
	assert.Empty(t, env.notifications.forUser(professional.ID))
}

func TestBroadcastBatchesLargeAudiences(t *testing.T) {
	env := newTestEnv(nil, nil)
	ids := make([]string, broadcastBatchSize+3)
	for i := range ids {
		ids[i] = primitive.NewObjectID().Hex()
	}

	res, err := env.notify.Broadcast(context.Background(), models.BroadcastRequest{
		Title: "Hello", Message: "Welcome", UserIDs: ids,
	})
	require.NoError(t, err)
	assert.Equal(t, len(ids), res.Count)
	assert.Equal(t, []int{broadcastBatchSize, 3}, env.notifications.batches)
}

func TestBroadcastRejectsBadUserID(t *testing.T) {
	env := newTestEnv(nil, nil)

	_, err := env.notify.Broadcast(context.Background(), models.BroadcastRequest{
		Title: "Hello", Message: "Welcome", UserIDs: []string{"nobody"},
	})
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Empty(t, env.notifications.batches)
}
