package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/utils"
)

const paymentStatusPaid = "paid"

// BookingService runs the booking lifecycle
type BookingService struct {
	bookings      BookingStore
	users         UserStore
	emitter       Emitter
	notifications *NotificationService
	publisher     EventPublisher
	dispatch      *Dispatcher
	now           func() time.Time
	generateOTP   func() (string, error)
}

// NewBookingService creates the booking service. publisher may be nil.
func NewBookingService(bookings BookingStore, users UserStore, emitter Emitter, notifications *NotificationService,
	publisher EventPublisher, dispatch *Dispatcher) *BookingService {
	return &BookingService{
		bookings:      bookings,
		users:         users,
		emitter:       emitter,
		notifications: notifications,
		publisher:     publisher,
		dispatch:      dispatch,
		now:           time.Now,
		generateOTP: func() (string, error) {
			return utils.GenerateNumericOTP(utils.BookingOTPLength)
		},
	}
}

// CreateBooking books a professional for a slot. The returned booking carries
// the service start code, which only the customer ever sees.
func (s *BookingService) CreateBooking(ctx context.Context, customerID primitive.ObjectID, req models.BookingRequest) (*models.Booking, error) {
	professionalID, err := primitive.ObjectIDFromHex(req.ProfessionalID)
	if err != nil {
		return nil, models.NewValidation("invalid professional ID")
	}
	if professionalID == customerID {
		return nil, models.NewValidation("you cannot book yourself")
	}
	if _, err := time.Parse("2006-01-02", req.ScheduledDate); err != nil {
		return nil, models.NewValidation("scheduled date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return nil, models.NewValidation("scheduled time must be HH:MM")
	}
	if req.Price < 0 {
		return nil, models.NewValidation("price cannot be negative")
	}
	var serviceID *primitive.ObjectID
	if req.ServiceID != "" {
		id, err := primitive.ObjectIDFromHex(req.ServiceID)
		if err != nil {
			return nil, models.NewValidation("invalid service ID")
		}
		serviceID = &id
	}

	customer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if customer.IsProfessional() {
		return nil, models.NewForbidden("only customers can create bookings")
	}
	professional, err := s.users.FindByID(ctx, professionalID)
	if err != nil {
		return nil, storeErr(err, "professional not found")
	}
	if !professional.IsProfessional() {
		return nil, models.NewValidation("the selected user is not a professional")
	}

	if _, err := s.bookings.FindActiveSlot(ctx, customerID, professionalID, req.ScheduledDate, req.ScheduledTime, nil); err == nil {
		return nil, models.NewConflict("You already have a booking with this professional at this time")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	otp, err := s.generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate service code: %w", err)
	}

	category := req.Category
	if category == "" {
		category = professional.Category
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	now := s.now().UTC()
	booking := &models.Booking{
		ID:             primitive.NewObjectID(),
		UserID:         customerID,
		ProfessionalID: professionalID,
		ServiceID:      serviceID,
		ServiceType:    utils.SanitizeInput(req.ServiceType),
		ServiceName:    utils.SanitizeInput(req.ServiceName),
		Category:       category,
		Description:    utils.SanitizeInput(req.Description),
		ScheduledDate:  req.ScheduledDate,
		ScheduledTime:  req.ScheduledTime,
		Address:        req.Address,
		Price:          req.Price,
		PaymentMethod:  paymentMethod,
		PaymentStatus:  "pending",
		OTP:            otp,
		Status:         models.BookingPending,
		Notes:          utils.SanitizeInput(req.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	booking.BookingIDDisplay = models.BookingDisplayID(category, booking.ID)

	if err := s.bookings.Create(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.NewConflict("You already have a booking with this professional at this time")
		}
		return nil, err
	}

	s.announce(models.BookingConfirmedEvent, booking)
	s.notify(booking, professionalID, models.NotifyNewBookingRequest, models.PriorityHigh,
		"New booking request",
		fmt.Sprintf("%s requested %s on %s at %s", customer.DisplayName(), booking.DisplayServiceName(), booking.ScheduledDate, booking.ScheduledTime),
		customer.DisplayName(), nil)
	return booking, nil
}

// AcceptBooking is the professional taking the job
func (s *BookingService) AcceptBooking(ctx context.Context, professionalID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.professionalBooking(ctx, professionalID, bookingID)
	if err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, booking, BookingActionAccept, models.BookingStatusChange{At: s.now().UTC()})
	if err != nil {
		return nil, err
	}

	name := s.displayName(ctx, professionalID, "Your professional")
	s.announce(models.BookingAcceptedEvent, updated)
	s.notify(updated, updated.UserID, models.NotifyBookingAccepted, models.PriorityHigh,
		"Booking accepted",
		fmt.Sprintf("%s accepted your booking for %s on %s at %s", name, updated.DisplayServiceName(), updated.ScheduledDate, updated.ScheduledTime),
		name, nil)
	return updated.ViewFor(professionalID), nil
}

// RejectBooking is the professional declining the job
func (s *BookingService) RejectBooking(ctx context.Context, professionalID, bookingID primitive.ObjectID, reason string) (*models.Booking, error) {
	booking, err := s.professionalBooking(ctx, professionalID, bookingID)
	if err != nil {
		return nil, err
	}
	reason = utils.SanitizeInput(reason)
	if reason == "" {
		reason = "Rejected by professional"
	}
	updated, err := s.transition(ctx, booking, BookingActionReject, models.BookingStatusChange{
		At:          s.now().UTC(),
		CancelledBy: models.CancelledByProfessional,
		Reason:      reason,
		Rejected:    true,
	})
	if err != nil {
		return nil, err
	}

	name := s.displayName(ctx, professionalID, "The professional")
	s.announce(models.BookingRejectedEvent, updated)
	s.notify(updated, updated.UserID, models.NotifyBookingRejected, models.PriorityHigh,
		"Booking declined",
		fmt.Sprintf("%s could not take your booking for %s. Reason: %s", name, updated.DisplayServiceName(), reason),
		name, &models.NotificationData{Reason: reason})
	return updated.ViewFor(professionalID), nil
}

// RequestOTP marks the professional's arrival and sends the customer the
// start code through their notification feed
func (s *BookingService) RequestOTP(ctx context.Context, professionalID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.professionalBooking(ctx, professionalID, bookingID)
	if err != nil {
		return nil, err
	}
	if !BookingMachine.Can(booking.Status, BookingActionRequestOTP) {
		return nil, models.NewInvalidTransition(fmt.Sprintf("cannot request the service code for a booking that is %s", booking.Status))
	}
	updated, err := s.bookings.MarkOTPRequested(ctx, bookingID, BookingMachine.Sources(BookingActionRequestOTP), s.now().UTC())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missed(ctx, bookingID, "cannot request the service code for this booking any more")
		}
		return nil, err
	}

	name := s.displayName(ctx, professionalID, "Your professional")
	s.announce(models.BookingOTPRequested, updated)
	s.notify(updated, updated.UserID, models.NotifyProfessionalArrived, models.PriorityUrgent,
		"Professional has arrived",
		fmt.Sprintf("%s has arrived! Share OTP: %s to start service", name, updated.OTP),
		name, &models.NotificationData{OTP: updated.OTP})
	return updated.ViewFor(professionalID), nil
}

// StartBooking checks the code read out by the customer and starts the work.
// A wrong code leaves the booking untouched.
func (s *BookingService) StartBooking(ctx context.Context, professionalID, bookingID primitive.ObjectID, otp string) (*models.Booking, error) {
	if !utils.ValidOTPFormat(otp) {
		return nil, models.NewValidation("OTP must be 4 to 6 digits")
	}
	booking, err := s.professionalBooking(ctx, professionalID, bookingID)
	if err != nil {
		return nil, err
	}
	if !BookingMachine.Can(booking.Status, BookingActionStart) {
		return nil, models.NewInvalidTransition(fmt.Sprintf("cannot start a booking that is %s", booking.Status))
	}
	if subtle.ConstantTimeCompare([]byte(otp), []byte(booking.OTP)) != 1 {
		return nil, models.ErrInvalidCode
	}
	updated, err := s.transition(ctx, booking, BookingActionStart, models.BookingStatusChange{At: s.now().UTC()})
	if err != nil {
		return nil, err
	}

	name := s.displayName(ctx, professionalID, "Your professional")
	s.announce(models.BookingWorkStarted, updated)
	s.notify(updated, updated.UserID, models.NotifyBookingStarted, models.PriorityHigh,
		"Service started",
		fmt.Sprintf("%s has started working on %s", name, updated.DisplayServiceName()),
		name, nil)
	return updated.ViewFor(professionalID), nil
}

// CompleteBooking closes a job in progress
func (s *BookingService) CompleteBooking(ctx context.Context, professionalID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.professionalBooking(ctx, professionalID, bookingID)
	if err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, booking, BookingActionComplete, models.BookingStatusChange{At: s.now().UTC()})
	if err != nil {
		return nil, err
	}

	name := s.displayName(ctx, professionalID, "Your professional")
	s.announce(models.BookingWorkCompleted, updated)
	s.notify(updated, updated.UserID, models.NotifyBookingCompleted, models.PriorityNormal,
		"Service completed",
		fmt.Sprintf("%s has completed %s", name, updated.DisplayServiceName()),
		name, nil)
	s.notify(updated, updated.UserID, models.NotifyRateService, models.PriorityLow,
		"Rate your experience",
		fmt.Sprintf("How was your %s with %s?", updated.DisplayServiceName(), name),
		name, nil)
	return updated.ViewFor(professionalID), nil
}

// CancelBooking lets either party call the job off
func (s *BookingService) CancelBooking(ctx context.Context, actorID, bookingID primitive.ObjectID, reason string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking not found")
	}

	var cancelledBy string
	var recipient primitive.ObjectID
	var kind models.NotificationType
	switch actorID {
	case booking.UserID:
		cancelledBy, recipient, kind = models.CancelledByUser, booking.ProfessionalID, models.NotifyBookingCancelledByUser
	case booking.ProfessionalID:
		cancelledBy, recipient, kind = models.CancelledByProfessional, booking.UserID, models.NotifyBookingCancelled
	default:
		return nil, models.NewForbidden("you are not a party to this booking")
	}

	reason = utils.SanitizeInput(reason)
	if reason == "" {
		if cancelledBy == models.CancelledByUser {
			reason = "Cancelled by user"
		} else {
			reason = "Cancelled by professional"
		}
	}
	var refund string
	if booking.PaymentStatus == paymentStatusPaid {
		refund = "Refund of ₹" + strconv.FormatFloat(booking.Price, 'f', -1, 64) + " initiated"
	}

	updated, err := s.transition(ctx, booking, BookingActionCancel, models.BookingStatusChange{
		At:           s.now().UTC(),
		CancelledBy:  cancelledBy,
		Reason:       reason,
		RefundStatus: refund,
	})
	if err != nil {
		return nil, err
	}

	name := s.displayName(ctx, actorID, "The other party")
	message := fmt.Sprintf("%s cancelled the booking for %s on %s. Reason: %s", name, updated.DisplayServiceName(), updated.ScheduledDate, reason)
	if refund != "" && recipient == updated.UserID {
		message += ". " + refund
	}
	s.announce(models.BookingCancelledEvent, updated)
	s.notify(updated, recipient, kind, models.PriorityHigh, "Booking cancelled", message, name,
		&models.NotificationData{Reason: reason})
	return updated.ViewFor(actorID), nil
}

// RateBooking records the customer's one review of a completed job and
// recomputes the professional's average
func (s *BookingService) RateBooking(ctx context.Context, customerID, bookingID primitive.ObjectID, rating int, review string) (*models.Booking, error) {
	if rating < 1 || rating > 5 {
		return nil, models.NewValidation("rating must be between 1 and 5")
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking not found")
	}
	if booking.UserID != customerID {
		return nil, models.NewForbidden("only the customer can rate this booking")
	}
	if !BookingMachine.Can(booking.Status, BookingActionRate) {
		return nil, models.NewInvalidTransition("only completed bookings can be rated")
	}
	if booking.Rating != nil {
		return nil, models.NewInvalidTransition("this booking has already been rated")
	}

	updated, err := s.bookings.SetRating(ctx, bookingID, rating, utils.SanitizeInput(review), s.now().UTC())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missed(ctx, bookingID, "this booking has already been rated")
		}
		return nil, err
	}

	professionalID := updated.ProfessionalID
	s.dispatch.Submit(Job{
		Name:    "recompute rating",
		Retries: 3,
		Run: func(ctx context.Context) error {
			return s.recomputeRating(ctx, professionalID)
		},
	})

	name := s.displayName(ctx, customerID, "A customer")
	s.announce(models.BookingRatedEvent, updated)
	s.notify(updated, professionalID, models.NotifyNewReviewReceived, models.PriorityNormal,
		"New review received",
		fmt.Sprintf("%s rated %s %d out of 5", name, updated.DisplayServiceName(), rating),
		name, &models.NotificationData{Rating: &rating})
	return updated, nil
}

// recomputeRating stores the mean of every rated booking of the professional
func (s *BookingService) recomputeRating(ctx context.Context, professionalID primitive.ObjectID) error {
	avg, total, err := s.bookings.RatingSummary(ctx, professionalID)
	if err != nil {
		return err
	}
	return s.users.UpdateRating(ctx, professionalID, math.Round(avg*100)/100, total)
}

// RescheduleBooking moves a booking that has not started to a new slot
func (s *BookingService) RescheduleBooking(ctx context.Context, customerID, bookingID primitive.ObjectID, req models.RescheduleBookingRequest) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking not found")
	}
	if booking.UserID != customerID {
		return nil, models.NewForbidden("only the customer can reschedule this booking")
	}
	if !BookingMachine.Can(booking.Status, BookingActionReschedule) {
		return nil, models.NewInvalidTransition(fmt.Sprintf("cannot reschedule a booking that is %s", booking.Status))
	}

	change := models.BookingReschedule{
		ScheduledDate: booking.ScheduledDate,
		ScheduledTime: booking.ScheduledTime,
		Address:       req.Address,
	}
	if req.ScheduledDate != "" {
		if _, err := time.Parse("2006-01-02", req.ScheduledDate); err != nil {
			return nil, models.NewValidation("scheduled date must be YYYY-MM-DD")
		}
		change.ScheduledDate = req.ScheduledDate
	}
	if req.ScheduledTime != "" {
		if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
			return nil, models.NewValidation("scheduled time must be HH:MM")
		}
		change.ScheduledTime = req.ScheduledTime
	}
	if req.Notes != nil {
		notes := utils.SanitizeInput(*req.Notes)
		change.Notes = &notes
	}

	slotChanged := change.ScheduledDate != booking.ScheduledDate || change.ScheduledTime != booking.ScheduledTime
	if slotChanged {
		_, err := s.bookings.FindActiveSlot(ctx, booking.UserID, booking.ProfessionalID, change.ScheduledDate, change.ScheduledTime, &booking.ID)
		if err == nil {
			return nil, models.NewConflict("You already have a booking with this professional at this time")
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}

	updated, err := s.bookings.Reschedule(ctx, bookingID, BookingMachine.Sources(BookingActionReschedule), change, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, s.missed(ctx, bookingID, "cannot reschedule this booking any more")
		case mongo.IsDuplicateKeyError(err):
			return nil, models.NewConflict("You already have a booking with this professional at this time")
		}
		return nil, err
	}

	name := s.displayName(ctx, customerID, "The customer")
	s.announce(models.BookingRescheduledEvent, updated)
	s.notify(updated, updated.ProfessionalID, models.NotifyBookingRescheduledByUser, models.PriorityHigh,
		"Booking rescheduled",
		fmt.Sprintf("%s moved %s to %s at %s", name, updated.DisplayServiceName(), updated.ScheduledDate, updated.ScheduledTime),
		name, nil)
	return updated, nil
}

// GetBooking returns a booking to either of its parties
func (s *BookingService) GetBooking(ctx context.Context, viewerID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking not found")
	}
	if !booking.IsParty(viewerID) {
		return nil, models.NewForbidden("you do not have access to this booking")
	}
	return booking.ViewFor(viewerID), nil
}

// statusFilter turns the listing status parameter into a set of statuses
func statusFilter(status string) ([]models.BookingStatus, error) {
	switch status {
	case "", "all":
		return nil, nil
	case "upcoming":
		return []models.BookingStatus{models.BookingPending, models.BookingConfirmed}, nil
	}
	st := models.BookingStatus(status)
	switch st {
	case models.BookingPending, models.BookingConfirmed, models.BookingAccepted,
		models.BookingOngoing, models.BookingCompleted, models.BookingCancelled:
		return []models.BookingStatus{st}, nil
	}
	return nil, models.NewValidation("invalid status filter")
}

// ListMine lists the customer's bookings with per-status counts
func (s *BookingService) ListMine(ctx context.Context, customerID primitive.ObjectID, status, category, search string, skip, limit int64) (*models.BookingList, error) {
	statuses, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	limit = clampLimit(limit)

	bookings, total, err := s.bookings.List(ctx, models.BookingFilter{
		UserID:   &customerID,
		Statuses: statuses,
		Category: category,
		Search:   utils.SanitizeInput(search),
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	counts, err := s.bookings.CountByStatus(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &models.BookingList{
		Bookings:     viewAll(bookings, customerID),
		Total:        total,
		StatusCounts: statusCounts(counts),
		Skip:         skip,
		Limit:        limit,
	}, nil
}

// ListForProfessional lists bookings assigned to the professional
func (s *BookingService) ListForProfessional(ctx context.Context, professionalID primitive.ObjectID, status string, skip, limit int64) (*models.BookingList, error) {
	statuses, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	limit = clampLimit(limit)

	bookings, total, err := s.bookings.List(ctx, models.BookingFilter{
		ProfessionalID: &professionalID,
		Statuses:       statuses,
		Skip:           skip,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	return &models.BookingList{
		Bookings: viewAll(bookings, professionalID),
		Total:    total,
		Skip:     skip,
		Limit:    limit,
	}, nil
}

func viewAll(bookings []*models.Booking, viewerID primitive.ObjectID) []*models.Booking {
	out := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.ViewFor(viewerID))
	}
	return out
}

func statusCounts(counts map[models.BookingStatus]int64) *models.BookingStatusCounts {
	c := &models.BookingStatusCounts{
		Pending:   counts[models.BookingPending],
		Confirmed: counts[models.BookingConfirmed],
		Accepted:  counts[models.BookingAccepted],
		Ongoing:   counts[models.BookingOngoing],
		Completed: counts[models.BookingCompleted],
		Cancelled: counts[models.BookingCancelled],
	}
	c.Upcoming = c.Pending + c.Confirmed
	for _, n := range counts {
		c.All += n
	}
	return c
}

func (s *BookingService) professionalBooking(ctx context.Context, professionalID, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking not found")
	}
	if booking.ProfessionalID != professionalID {
		return nil, models.NewForbidden("only the assigned professional can do this")
	}
	return booking, nil
}

// transition applies action as a conditional write filtered on the action's
// source states
func (s *BookingService) transition(ctx context.Context, booking *models.Booking, action BookingAction, change models.BookingStatusChange) (*models.Booking, error) {
	to, ok := BookingMachine.Next(booking.Status, action)
	if !ok {
		return nil, models.NewInvalidTransition(fmt.Sprintf("cannot %s a booking that is %s", action, booking.Status))
	}
	change.To = to
	updated, err := s.bookings.UpdateStatus(ctx, booking.ID, BookingMachine.Sources(action), change)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missed(ctx, booking.ID, fmt.Sprintf("cannot %s this booking any more", action))
		}
		return nil, err
	}
	return updated, nil
}

// missed explains a conditional write that matched nothing
func (s *BookingService) missed(ctx context.Context, bookingID primitive.ObjectID, msg string) error {
	if _, err := s.bookings.FindByID(ctx, bookingID); err != nil {
		return storeErr(err, "booking not found")
	}
	return models.NewInvalidTransition(msg)
}

func (s *BookingService) displayName(ctx context.Context, userID primitive.ObjectID, fallback string) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fallback
	}
	return user.DisplayName()
}

// notify queues one notification about booking for recipient
func (s *BookingService) notify(booking *models.Booking, recipient primitive.ObjectID, kind models.NotificationType,
	priority models.NotificationPriority, title, message, counterparty string, extra *models.NotificationData) {
	data := extra
	if data == nil {
		data = &models.NotificationData{}
	}
	data.BookingID = oidPtr(booking.ID)
	data.BookingIDDisplay = booking.BookingIDDisplay
	data.ServiceName = booking.DisplayServiceName()
	data.ScheduledDate = booking.ScheduledDate
	data.ScheduledTime = booking.ScheduledTime
	data.Status = string(booking.Status)
	data.CounterpartyName = counterparty
	if recipient == booking.UserID {
		data.CounterpartyID = oidPtr(booking.ProfessionalID)
	} else {
		data.CounterpartyID = oidPtr(booking.UserID)
	}

	s.notifications.Notify(models.NotificationInput{
		UserID:     recipient,
		Type:       kind,
		Category:   models.CategoryBooking,
		Priority:   priority,
		Title:      title,
		Message:    message,
		Data:       data,
		ActionURL:  "/bookings/" + booking.ID.Hex(),
		ActionText: "View booking",
	})
}

// announce emits the named event and the generic status update to the
// booking topic and both parties, then mirrors it to the broker. The start
// code is never included.
func (s *BookingService) announce(kind models.BookingEventKind, booking *models.Booking) {
	public := booking.Public()
	topics := []string{
		models.BookingTopic(booking.ID),
		models.UserTopic(booking.UserID),
		models.UserTopic(booking.ProfessionalID),
	}
	named := models.BookingEvent{Kind: kind, BookingID: booking.ID, Status: booking.Status, Booking: public}
	update := named
	update.Kind = models.BookingStatusUpdate

	s.dispatch.Submit(Job{
		Name: "emit " + string(kind),
		Run: func(ctx context.Context) error {
			if err := s.emitter.EmitToTopics(topics, named); err != nil {
				return err
			}
			return s.emitter.EmitToTopics(topics, update)
		},
	})
	if s.publisher != nil {
		s.dispatch.Submit(Job{
			Name: "publish " + string(kind),
			Run: func(ctx context.Context) error {
				publish(ctx, s.publisher, "booking."+string(kind), named)
				return nil
			},
		})
	}
}
