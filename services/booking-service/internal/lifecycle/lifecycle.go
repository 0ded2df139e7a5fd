// Package lifecycle is the reservation state machine.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

var transitions = map[model.State][]model.State{
	model.StatePending:    {model.StateConfirmed, model.StateCancelled},
	model.StateConfirmed:  {model.StateInProgress, model.StateCompleted, model.StateCancelled, model.StateNoShow},
	model.StateInProgress: {model.StateCompleted},
}

func IsTerminal(s model.State) bool {
	switch s {
	case model.StateCompleted, model.StateCancelled, model.StateNoShow:
		return true
	}
	return false
}

func CanTransition(from, to model.State) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Allowed lists the states reachable from s in one step.
func Allowed(s model.State) []model.State {
	return append([]model.State{}, transitions[s]...)
}

// Apply moves r to state `to` at now. The first entry into a state stamps
// its timestamp; existing timestamps are never overwritten. On error r is
// left untouched.
func Apply(r *model.Reservation, to model.State, reason string, now time.Time) error {
	if IsTerminal(r.State) {
		return fmt.Errorf("%s is %s: %w", r.ID, r.State, model.ErrAlreadyFinalized)
	}
	if !to.Valid() || !CanTransition(r.State, to) {
		return fmt.Errorf("%s -> %s: %w", r.State, to, model.ErrInvalidTransition)
	}

	r.State = to
	now = now.UTC()
	switch to {
	case model.StateConfirmed:
		stamp(&r.ConfirmedAt, now)
	case model.StateInProgress:
		stamp(&r.StartedAt, now)
	case model.StateCompleted:
		stamp(&r.CompletedAt, now)
	case model.StateCancelled:
		stamp(&r.CancelledAt, now)
		if r.CancelReason == "" {
			r.CancelReason = reason
		}
	case model.StateNoShow:
		stamp(&r.NoShowAt, now)
	}
	return nil
}

func stamp(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}
