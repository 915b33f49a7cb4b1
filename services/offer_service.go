package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/homeservices_backend/models"
	"github.com/HSouheill/homeservices_backend/utils"
)

// DefaultOfferValidity is how long an accepted price can be used to book
const DefaultOfferValidity = 168 * time.Hour

// OfferService runs the price offer negotiation
type OfferService struct {
	offers          OfferStore
	users           UserStore
	emitter         Emitter
	notifications   *NotificationService
	publisher       EventPublisher
	dispatch        *Dispatcher
	defaultValidity time.Duration
	now             func() time.Time
}

// NewOfferService creates the offer service. publisher may be nil.
func NewOfferService(offers OfferStore, users UserStore, emitter Emitter, notifications *NotificationService,
	publisher EventPublisher, dispatch *Dispatcher, defaultValidity time.Duration) *OfferService {
	if defaultValidity <= 0 {
		defaultValidity = DefaultOfferValidity
	}
	return &OfferService{
		offers:          offers,
		users:           users,
		emitter:         emitter,
		notifications:   notifications,
		publisher:       publisher,
		dispatch:        dispatch,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}
}

// CreateOffer records a customer's price proposal to a professional
func (s *OfferService) CreateOffer(ctx context.Context, customerID primitive.ObjectID, req models.CreateOfferRequest) (*models.PriceOffer, error) {
	professionalID, err := primitive.ObjectIDFromHex(req.ProfessionalID)
	if err != nil {
		return nil, models.NewValidation("invalid professional ID")
	}
	if professionalID == customerID {
		return nil, models.NewValidation("you cannot send an offer to yourself")
	}
	if req.OfferedPrice <= 0 {
		return nil, models.NewValidation("offered price must be greater than zero")
	}
	serviceType := utils.SanitizeInput(req.ServiceType)
	if serviceType == "" {
		return nil, models.NewValidation("service type is required")
	}

	customer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	professional, err := s.users.FindByID(ctx, professionalID)
	if err != nil {
		return nil, storeErr(err, "professional not found")
	}
	if !professional.IsProfessional() {
		return nil, models.NewValidation("offers can only be sent to professionals")
	}

	now := s.now().UTC()
	offer := &models.PriceOffer{
		ID:                    primitive.NewObjectID(),
		UserID:                customerID,
		ProfessionalID:        professionalID,
		ServiceType:           serviceType,
		Description:           utils.SanitizeInput(req.Description),
		OfferedPrice:          req.OfferedPrice,
		OfferedVisitingCharge: req.OfferedVisitingCharge,
		EstimatedHours:        req.EstimatedHours,
		Status:                models.OfferPending,
		CreatedAt:             now,
		UpdatedAt:             now,
		ExpiresAt:             now.Add(models.OfferLifetime),
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.announce(models.OfferNewEvent, offer, professionalID)
	s.notifications.Notify(models.NotificationInput{
		UserID:   professionalID,
		Type:     models.NotifyNewOffer,
		Category: models.CategoryOffer,
		Priority: models.PriorityHigh,
		Title:    "New price offer",
		Message:  fmt.Sprintf("%s offered ₹%.2f for %s", customer.DisplayName(), offer.OfferedPrice, offer.ServiceType),
		Data: &models.NotificationData{
			OfferID:          oidPtr(offer.ID),
			CounterpartyID:   oidPtr(customerID),
			CounterpartyName: customer.DisplayName(),
			Price:            &offer.OfferedPrice,
		},
		ActionURL:  "/offers/" + offer.ID.Hex(),
		ActionText: "Respond",
	})
	return offer, nil
}

// AcceptOffer accepts a pending offer and opens its price validity window.
// No booking is created.
func (s *OfferService) AcceptOffer(ctx context.Context, professionalID, offerID primitive.ObjectID, req models.AcceptOfferRequest) (*models.PriceOffer, error) {
	validity := s.defaultValidity
	if req.ValidityHours < 0 {
		return nil, models.NewValidation("validity hours must be greater than zero")
	}
	if req.ValidityHours > 0 {
		validity = time.Duration(req.ValidityHours) * time.Hour
	}

	offer, err := s.professionalOffer(ctx, professionalID, offerID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.expireIfDue(ctx, offer, now); err != nil {
		return nil, err
	}
	validUntil := now.Add(validity)
	updated, err := s.transition(ctx, offer, OfferActionAccept, models.OfferStatusChange{
		At:              now,
		ResponseMessage: utils.SanitizeInput(req.ResponseMessage),
		ValidUntil:      &validUntil,
	})
	if err != nil {
		return nil, err
	}

	s.announce(models.OfferAcceptedEvent, updated, updated.UserID)
	s.notifyCustomer(updated, models.NotifyOfferAccepted, "Offer accepted",
		fmt.Sprintf("Your offer of ₹%.2f for %s was accepted. Book before %s to keep this price.",
			updated.OfferedPrice, updated.ServiceType, validUntil.Format("02 Jan 2006 15:04")))
	return updated, nil
}

// RejectOffer declines a pending offer
func (s *OfferService) RejectOffer(ctx context.Context, professionalID, offerID primitive.ObjectID, message string) (*models.PriceOffer, error) {
	offer, err := s.professionalOffer(ctx, professionalID, offerID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.expireIfDue(ctx, offer, now); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, offer, OfferActionReject, models.OfferStatusChange{
		At:              now,
		ResponseMessage: utils.SanitizeInput(message),
	})
	if err != nil {
		return nil, err
	}

	s.announce(models.OfferRejectedEvent, updated, updated.UserID)
	s.notifyCustomer(updated, models.NotifyOfferRejected, "Offer declined",
		fmt.Sprintf("Your offer of ₹%.2f for %s was declined.", updated.OfferedPrice, updated.ServiceType))
	return updated, nil
}

// RevokeOffer withdraws an accepted price by closing its validity window now
func (s *OfferService) RevokeOffer(ctx context.Context, professionalID, offerID primitive.ObjectID, message string) (*models.PriceOffer, error) {
	offer, err := s.professionalOffer(ctx, professionalID, offerID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	updated, err := s.transition(ctx, offer, OfferActionRevoke, models.OfferStatusChange{
		At:              now,
		ResponseMessage: utils.SanitizeInput(message),
		ValidUntil:      &now,
	})
	if err != nil {
		return nil, err
	}

	s.announce(models.OfferRevokedEvent, updated, updated.UserID)
	s.notifyCustomer(updated, models.NotifyOfferRevoked, "Offer withdrawn",
		fmt.Sprintf("The accepted price of ₹%.2f for %s is no longer available.", updated.OfferedPrice, updated.ServiceType))
	return updated, nil
}

// CancelOffer removes the customer's own pending offer
func (s *OfferService) CancelOffer(ctx context.Context, customerID, offerID primitive.ObjectID) error {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return storeErr(err, "offer not found")
	}
	if offer.UserID != customerID {
		return models.NewForbidden("only the customer who made the offer can cancel it")
	}
	now := s.now().UTC()
	if err := s.expireIfDue(ctx, offer, now); err != nil {
		return err
	}
	if !OfferMachine.Can(offer.Status, OfferActionCancel) {
		return models.NewInvalidTransition("only pending offers can be cancelled")
	}
	if err := s.offers.DeletePending(ctx, offerID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.missed(ctx, offerID, "only pending offers can be cancelled")
		}
		return err
	}

	offer.Status = models.OfferExpired
	s.announce(models.OfferCancelledEvent, offer, offer.ProfessionalID)
	s.notifications.Notify(models.NotificationInput{
		UserID:   offer.ProfessionalID,
		Type:     models.NotifyOfferCancelled,
		Category: models.CategoryOffer,
		Priority: models.PriorityNormal,
		Title:    "Offer cancelled",
		Message:  fmt.Sprintf("An offer of ₹%.2f for %s was cancelled by the customer.", offer.OfferedPrice, offer.ServiceType),
		Data: &models.NotificationData{
			OfferID:        oidPtr(offer.ID),
			CounterpartyID: oidPtr(offer.UserID),
			Price:          &offer.OfferedPrice,
		},
	})
	return nil
}

// ListMine returns offers the customer has made
func (s *OfferService) ListMine(ctx context.Context, customerID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	offers, err := s.offers.ListByUser(ctx, customerID, status)
	if err != nil {
		return nil, err
	}
	return s.markExpired(offers), nil
}

// ListReceived returns offers sent to the professional
func (s *OfferService) ListReceived(ctx context.Context, professionalID primitive.ObjectID, status models.OfferStatus) ([]*models.PriceOffer, error) {
	offers, err := s.offers.ListByProfessional(ctx, professionalID, status)
	if err != nil {
		return nil, err
	}
	return s.markExpired(offers), nil
}

// PriceValidity reports whether an accepted price can still be used to book
func (s *OfferService) PriceValidity(ctx context.Context, userID, offerID primitive.ObjectID) (*models.OfferPriceValidity, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, storeErr(err, "offer not found")
	}
	if offer.UserID != userID && offer.ProfessionalID != userID {
		return nil, models.NewForbidden("you do not have access to this offer")
	}
	return &models.OfferPriceValidity{
		OfferID:    offer.ID,
		Status:     offer.Status,
		Price:      offer.OfferedPrice,
		Valid:      offer.IsAcceptedPriceValid(s.now()),
		ValidUntil: offer.AcceptedPriceValidUntil,
	}, nil
}

func (s *OfferService) markExpired(offers []*models.PriceOffer) []*models.PriceOffer {
	if offers == nil {
		return []*models.PriceOffer{}
	}
	now := s.now()
	for _, o := range offers {
		o.IsExpired = o.PendingExpired(now)
	}
	return offers
}

func (s *OfferService) professionalOffer(ctx context.Context, professionalID, offerID primitive.ObjectID) (*models.PriceOffer, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, storeErr(err, "offer not found")
	}
	if offer.ProfessionalID != professionalID {
		return nil, models.NewForbidden("only the professional who received the offer can respond")
	}
	return offer, nil
}

// expireIfDue flips a pending offer past its deadline to expired and rejects
// the calling mutation
func (s *OfferService) expireIfDue(ctx context.Context, offer *models.PriceOffer, now time.Time) error {
	if !offer.PendingExpired(now) {
		return nil
	}
	if err := s.offers.Expire(ctx, offer.ID, now); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	offer.Status = models.OfferExpired
	return models.NewExpired("Offer has expired")
}

// transition applies action as a conditional write on the offer's current status
func (s *OfferService) transition(ctx context.Context, offer *models.PriceOffer, action OfferAction, change models.OfferStatusChange) (*models.PriceOffer, error) {
	to, ok := OfferMachine.Next(offer.Status, action)
	if !ok {
		return nil, models.NewInvalidTransition(fmt.Sprintf("cannot %s an offer that is %s", action, offer.Status))
	}
	change.To = to
	updated, err := s.offers.UpdateStatus(ctx, offer.ID, offer.Status, change)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.missed(ctx, offer.ID, fmt.Sprintf("cannot %s this offer any more", action))
		}
		return nil, err
	}
	return updated, nil
}

// missed explains a conditional write that matched nothing
func (s *OfferService) missed(ctx context.Context, offerID primitive.ObjectID, msg string) error {
	if _, err := s.offers.FindByID(ctx, offerID); err != nil {
		return storeErr(err, "offer not found")
	}
	return models.NewInvalidTransition(msg)
}

func (s *OfferService) notifyCustomer(offer *models.PriceOffer, kind models.NotificationType, title, message string) {
	s.notifications.Notify(models.NotificationInput{
		UserID:   offer.UserID,
		Type:     kind,
		Category: models.CategoryOffer,
		Priority: models.PriorityHigh,
		Title:    title,
		Message:  message,
		Data: &models.NotificationData{
			OfferID:        oidPtr(offer.ID),
			CounterpartyID: oidPtr(offer.ProfessionalID),
			Price:          &offer.OfferedPrice,
			Status:         string(offer.Status),
		},
		ActionURL: "/offers/" + offer.ID.Hex(),
	})
}

// announce emits an offer change to the other party and the professional's
// offer feed, and mirrors it to the broker
func (s *OfferService) announce(kind models.OfferEventKind, offer *models.PriceOffer, recipient primitive.ObjectID) {
	event := models.OfferEvent{Kind: kind, OfferID: offer.ID, Status: offer.Status, Offer: offer}
	s.dispatch.Submit(Job{
		Name: "emit " + string(kind),
		Run: func(ctx context.Context) error {
			return s.emitter.EmitToTopics(
				[]string{models.UserTopic(recipient), models.OffersTopic(offer.ProfessionalID)},
				event,
			)
		},
	})
	if s.publisher != nil {
		s.dispatch.Submit(Job{
			Name: "publish " + string(kind),
			Run: func(ctx context.Context) error {
				publish(ctx, s.publisher, "offer."+string(kind), event)
				return nil
			},
		})
	}
}
