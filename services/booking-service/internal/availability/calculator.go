package availability

import (
	"context"
	"errors"
	"time"

	otelx "github.com/md-rashed-zaman/reserva/libs/otel"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Source is the read side of the reservation store.
type Source interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	ActiveReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error)
}

// Exclusions is satisfied by *blocks.Registry.
type Exclusions interface {
	ExclusionsForDate(ctx context.Context, providerID string, day model.Day) ([]model.TimeRange, error)
}

type Calculator struct {
	source     Source
	exclusions Exclusions
	policy     rules.Policy
}

func NewCalculator(source Source, exclusions Exclusions, policy rules.Policy) *Calculator {
	return &Calculator{source: source, exclusions: exclusions, policy: policy}
}

func (c *Calculator) Policy() rules.Policy {
	return c.policy
}

// ComputeSlots lists bookable starts for a service of durationMinutes.
// A fully booked day yields an empty slice, not an error.
func (c *Calculator) ComputeSlots(ctx context.Context, providerID string, day model.Day, durationMinutes int, now time.Time) (slots []Slot, err error) {
	ctx, span := otelx.Tracer("booking-service/availability").Start(ctx, "availability.ComputeSlots")
	span.SetAttributes(
		attribute.String("provider_id", providerID),
		attribute.String("date", day.String()),
		attribute.Int("duration_minutes", durationMinutes),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("slots", len(slots)))
		}
		span.End()
	}()

	if durationMinutes <= 0 {
		return nil, model.Invalid("duration", "must be positive")
	}
	p, err := c.source.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.Invalid("provider_id", "unknown provider %q", providerID)
		}
		return nil, err
	}
	if err := CheckDay(c.policy, p, day, now); err != nil {
		return nil, err
	}
	if p.BreakMinutes >= durationMinutes {
		return nil, model.Invalid("duration", "must be longer than the provider's %d minute break", p.BreakMinutes)
	}

	snap := Snapshot{Provider: p, Day: day}
	if snap.Exclusions, err = c.exclusions.ExclusionsForDate(ctx, providerID, day); err != nil {
		return nil, err
	}
	if snap.Reservations, err = c.source.ActiveReservations(ctx, providerID, day); err != nil {
		return nil, err
	}
	return Slots(c.policy, snap, durationMinutes, now), nil
}
