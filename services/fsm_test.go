package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HSouheill/homeservices_backend/models"
)

func TestBookingMachineTransitions(t *testing.T) {
	tests := []struct {
		from   models.BookingStatus
		action BookingAction
		to     models.BookingStatus
		ok     bool
	}{
		{models.BookingPending, BookingActionAccept, models.BookingAccepted, true},
		{models.BookingConfirmed, BookingActionAccept, models.BookingAccepted, true},
		{models.BookingAccepted, BookingActionAccept, "", false},
		{models.BookingPending, BookingActionReject, models.BookingCancelled, true},
		{models.BookingAccepted, BookingActionReject, "", false},
		{models.BookingAccepted, BookingActionStart, models.BookingOngoing, true},
		{models.BookingPending, BookingActionStart, models.BookingOngoing, true},
		{models.BookingOngoing, BookingActionStart, "", false},
		{models.BookingOngoing, BookingActionComplete, models.BookingCompleted, true},
		{models.BookingAccepted, BookingActionComplete, "", false},
		{models.BookingOngoing, BookingActionCancel, models.BookingCancelled, true},
		{models.BookingCompleted, BookingActionCancel, "", false},
		{models.BookingCancelled, BookingActionCancel, "", false},
		{models.BookingCompleted, BookingActionRate, models.BookingCompleted, true},
		{models.BookingOngoing, BookingActionRate, "", false},
		{models.BookingOngoing, BookingActionReschedule, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			to, ok := BookingMachine.Next(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ok, BookingMachine.Can(tt.from, tt.action))
			if tt.ok {
				assert.Equal(t, tt.to, to)
			}
		})
	}
}

func TestTerminalBookingStatesAcceptNoTransition(t *testing.T) {
	actions := []BookingAction{
		BookingActionAccept, BookingActionReject, BookingActionRequestOTP, BookingActionStart,
		BookingActionComplete, BookingActionCancel, BookingActionReschedule,
	}
	for _, status := range []models.BookingStatus{models.BookingCompleted, models.BookingCancelled} {
		for _, action := range actions {
			assert.False(t, BookingMachine.Can(status, action), "%s should not allow %s", status, action)
		}
	}
}

func TestStateMachineSourcesAreSorted(t *testing.T) {
	assert.Equal(t, []models.BookingStatus{
		models.BookingAccepted, models.BookingConfirmed, models.BookingOngoing, models.BookingPending,
	}, BookingMachine.Sources(BookingActionCancel))
	assert.Equal(t, []models.BookingStatus{models.BookingOngoing}, BookingMachine.Sources(BookingActionComplete))
	assert.Empty(t, BookingMachine.Sources(BookingAction("unknown")))
}

func TestStateMachineTarget(t *testing.T) {
	to, ok := BookingMachine.Target(BookingActionStart)
	assert.True(t, ok)
	assert.Equal(t, models.BookingOngoing, to)

	_, ok = BookingMachine.Target(BookingActionRequestOTP)
	assert.False(t, ok, "self transitions have no single target")

	offerTo, ok := OfferMachine.Target(OfferActionRevoke)
	assert.True(t, ok)
	assert.Equal(t, models.OfferExpired, offerTo)
}

func TestOfferMachine(t *testing.T) {
	assert.True(t, OfferMachine.Can(models.OfferPending, OfferActionAccept))
	assert.True(t, OfferMachine.Can(models.OfferPending, OfferActionCancel))
	assert.True(t, OfferMachine.Can(models.OfferAccepted, OfferActionRevoke))
	assert.False(t, OfferMachine.Can(models.OfferAccepted, OfferActionAccept))
	assert.False(t, OfferMachine.Can(models.OfferAccepted, OfferActionCancel))
	assert.False(t, OfferMachine.Can(models.OfferRejected, OfferActionRevoke))
	assert.False(t, OfferMachine.Can(models.OfferExpired, OfferActionReject))
}
