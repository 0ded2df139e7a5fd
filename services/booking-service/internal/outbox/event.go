package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

const (
	AggregateReservation = "reservation"

	// The Kafka topic name equals the event type.
	EventReservationCreated      = "booking.reservation.created.v1"
	EventReservationStateChanged = "booking.reservation.state_changed.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type ReservationPayload struct {
	ReservationID string      `json:"reservation_id"`
	ProviderID    string      `json:"provider_id"`
	ClientID      string      `json:"client_id"`
	ServiceIDs    []string    `json:"service_ids"`
	Date          string      `json:"date"`
	StartTime     string      `json:"start_time"`
	EndTime       string      `json:"end_time"`
	State         model.State `json:"state"`
	PreviousState model.State `json:"previous_state,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func ReservationCreated(r model.Reservation) (Event, error) {
	return reservationEvent(EventReservationCreated, r, "", r.CreatedAt)
}

func ReservationStateChanged(r model.Reservation, from model.State, at time.Time) (Event, error) {
	return reservationEvent(EventReservationStateChanged, r, from, at)
}

func reservationEvent(eventType string, r model.Reservation, from model.State, at time.Time) (Event, error) {
	p := ReservationPayload{
		ReservationID: r.ID,
		ProviderID:    r.ProviderID,
		ClientID:      r.ClientID,
		ServiceIDs:    r.ServiceIDs,
		Date:          r.Day.String(),
		StartTime:     model.FormatClock(r.StartMinute),
		EndTime:       model.FormatClock(r.EndMinute),
		State:         r.State,
		PreviousState: from,
		OccurredAt:    at.UTC(),
	}
	if r.State == model.StateCancelled {
		p.Reason = r.CancelReason
	}
	b, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.NewString(),
		AggregateType: AggregateReservation,
		AggregateID:   r.ID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
