package services

import (
	"sort"

	"github.com/HSouheill/homeservices_backend/models"
)

// Transition is one legal (source, action) -> target triple
type Transition[S ~string, A ~string] struct {
	From   S
	Action A
	To     S
}

// StateMachine holds the complete transition table for an entity. Anything not
// listed is rejected.
type StateMachine[S ~string, A ~string] struct {
	table map[A]map[S]S
}

// NewStateMachine builds a machine from its transitions
func NewStateMachine[S ~string, A ~string](transitions ...Transition[S, A]) *StateMachine[S, A] {
	m := &StateMachine[S, A]{table: make(map[A]map[S]S)}
	for _, t := range transitions {
		if m.table[t.Action] == nil {
			m.table[t.Action] = make(map[S]S)
		}
		m.table[t.Action][t.From] = t.To
	}
	return m
}

// Next returns the target state for an action, or false when illegal
func (m *StateMachine[S, A]) Next(from S, action A) (S, bool) {
	to, ok := m.table[action][from]
	return to, ok
}

// Can reports whether the action is legal from the given state
func (m *StateMachine[S, A]) Can(from S, action A) bool {
	_, ok := m.table[action][from]
	return ok
}

// Sources lists the states an action may start from, sorted so that store
// filters built from it are stable
func (m *StateMachine[S, A]) Sources(action A) []S {
	sources := make([]S, 0, len(m.table[action]))
	for from := range m.table[action] {
		sources = append(sources, from)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// Target returns the single state an action moves into. ok is false when the
// action leaves the state unchanged or its target depends on the source.
func (m *StateMachine[S, A]) Target(action A) (S, bool) {
	var target S
	found := false
	for from, to := range m.table[action] {
		if from == to {
			return target, false
		}
		if found && to != target {
			return target, false
		}
		target, found = to, true
	}
	return target, found
}

// BookingAction names a booking lifecycle action
type BookingAction string

const (
	BookingActionAccept     BookingAction = "accept"
	BookingActionReject     BookingAction = "reject"
	BookingActionRequestOTP BookingAction = "request_otp"
	BookingActionStart      BookingAction = "start"
	BookingActionComplete   BookingAction = "complete"
	BookingActionCancel     BookingAction = "cancel"
	BookingActionRate       BookingAction = "rate"
	BookingActionReschedule BookingAction = "reschedule"
)

type bookingTransition = Transition[models.BookingStatus, BookingAction]

// BookingMachine is the booking lifecycle
var BookingMachine = NewStateMachine(
	bookingTransition{models.BookingPending, BookingActionAccept, models.BookingAccepted},
	bookingTransition{models.BookingConfirmed, BookingActionAccept, models.BookingAccepted},

	bookingTransition{models.BookingPending, BookingActionReject, models.BookingCancelled},
	bookingTransition{models.BookingConfirmed, BookingActionReject, models.BookingCancelled},

	bookingTransition{models.BookingPending, BookingActionRequestOTP, models.BookingPending},
	bookingTransition{models.BookingConfirmed, BookingActionRequestOTP, models.BookingConfirmed},
	bookingTransition{models.BookingAccepted, BookingActionRequestOTP, models.BookingAccepted},

	bookingTransition{models.BookingPending, BookingActionStart, models.BookingOngoing},
	bookingTransition{models.BookingConfirmed, BookingActionStart, models.BookingOngoing},
	bookingTransition{models.BookingAccepted, BookingActionStart, models.BookingOngoing},

	bookingTransition{models.BookingOngoing, BookingActionComplete, models.BookingCompleted},

	bookingTransition{models.BookingCompleted, BookingActionRate, models.BookingCompleted},

	bookingTransition{models.BookingPending, BookingActionCancel, models.BookingCancelled},
	bookingTransition{models.BookingConfirmed, BookingActionCancel, models.BookingCancelled},
	bookingTransition{models.BookingAccepted, BookingActionCancel, models.BookingCancelled},
	bookingTransition{models.BookingOngoing, BookingActionCancel, models.BookingCancelled},

	bookingTransition{models.BookingPending, BookingActionReschedule, models.BookingPending},
	bookingTransition{models.BookingConfirmed, BookingActionReschedule, models.BookingConfirmed},
	bookingTransition{models.BookingAccepted, BookingActionReschedule, models.BookingAccepted},
)

// OfferAction names a price offer action
type OfferAction string

const (
	OfferActionAccept OfferAction = "accept"
	OfferActionReject OfferAction = "reject"
	OfferActionExpire OfferAction = "expire"
	OfferActionCancel OfferAction = "cancel"
	OfferActionRevoke OfferAction = "revoke"
)

type offerTransition = Transition[models.OfferStatus, OfferAction]

// OfferMachine is the offer lifecycle. Cancel removes the offer, so its
// target is only used for the source check.
var OfferMachine = NewStateMachine(
	offerTransition{models.OfferPending, OfferActionAccept, models.OfferAccepted},
	offerTransition{models.OfferPending, OfferActionReject, models.OfferRejected},
	offerTransition{models.OfferPending, OfferActionExpire, models.OfferExpired},
	offerTransition{models.OfferPending, OfferActionCancel, models.OfferExpired},
	offerTransition{models.OfferAccepted, OfferActionRevoke, models.OfferExpired},
)
