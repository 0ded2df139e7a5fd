package model

import "time"

type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateNoShow     State = "no_show"
)

func (s State) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateInProgress, StateCompleted, StateCancelled, StateNoShow:
		return true
	}
	return false
}

type Reservation struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	ProviderID      string     `json:"provider_id"`
	ServiceID       string     `json:"service_id"`
	ServiceIDs      []string   `json:"service_ids"`
	Day             Day        `json:"date"`
	StartMinute     int        `json:"-"`
	EndMinute       int        `json:"-"`
	DurationMinutes int        `json:"duration_minutes"`
	PriceCents      int64      `json:"price_cents"`
	State           State      `json:"state"`
	ClientNotes     string     `json:"client_notes,omitempty"`
	InternalNotes   string     `json:"internal_notes,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	IdempotencyKey  string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	NoShowAt        *time.Time `json:"no_show_at,omitempty"`
}

// Active reservations hold their window against new bookings.
func (r Reservation) Active() bool {
	return r.State != StateCancelled
}

func (r Reservation) Window() TimeRange {
	return TimeRange{Start: r.StartMinute, End: r.EndMinute}
}

// SetStart fixes the start and derives the end from the duration.
func (r *Reservation) SetStart(minute int) {
	r.StartMinute = minute
	r.EndMinute = minute + r.DurationMinutes
}
