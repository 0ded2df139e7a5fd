package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/reserva/libs/httpx"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transition moves a reservation to state `to` under the provider lock.
// Cancelling releases the window for later bookings.
func (c *Coordinator) Transition(ctx context.Context, id string, to model.State, reason string) (res model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "booking.Transition", trace.WithAttributes(
		attribute.String("reservation_id", id),
		attribute.String("to", string(to)),
	))
	defer func() {
		if err != nil && !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrInvalidTransition) && !errors.Is(err, model.ErrAlreadyFinalized) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	id = strings.TrimSpace(id)
	if id == "" {
		return model.Reservation{}, model.Invalid("id", "is required")
	}
	cur, err := c.store.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}

	var from model.State
	err = c.store.InProviderTx(ctx, cur.ProviderID, func(ctx context.Context, tx Tx) error {
		r, err := tx.ReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = r.State
		now := c.now()
		if err := lifecycle.Apply(&r, to, strings.TrimSpace(reason), now); err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		evt, err := outbox.ReservationStateChanged(r, from, now)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, evt); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		c.logger.Info("reservation transition rejected",
			"request_id", httpx.RequestIDFromContext(ctx),
			"reservation_id", id,
			"to", to,
			"err", err,
		)
		return model.Reservation{}, err
	}

	metrics.Transitions.WithLabelValues(string(from), string(to)).Inc()
	c.logger.Info("reservation transitioned",
		"request_id", httpx.RequestIDFromContext(ctx),
		"reservation_id", id,
		"provider_id", res.ProviderID,
		"from", from,
		"to", to,
	)
	return res, nil
}

func (c *Coordinator) ConfirmReservation(ctx context.Context, id string) (model.Reservation, error) {
	return c.Transition(ctx, id, model.StateConfirmed, "")
}

func (c *Coordinator) StartService(ctx context.Context, id string) (model.Reservation, error) {
	return c.Transition(ctx, id, model.StateInProgress, "")
}

func (c *Coordinator) CompleteReservation(ctx context.Context, id string) (model.Reservation, error) {
	return c.Transition(ctx, id, model.StateCompleted, "")
}

func (c *Coordinator) CancelReservation(ctx context.Context, id, reason string) (model.Reservation, error) {
	return c.Transition(ctx, id, model.StateCancelled, reason)
}

func (c *Coordinator) MarkNoShow(ctx context.Context, id string) (model.Reservation, error) {
	return c.Transition(ctx, id, model.StateNoShow, "")
}

func (c *Coordinator) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	return c.store.GetReservation(ctx, strings.TrimSpace(id))
}

func (c *Coordinator) ListReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, model.Invalid("provider_id", "is required")
	}
	if day.IsZero() {
		return nil, model.Invalid("date", "is required")
	}
	return c.store.ListReservations(ctx, providerID, day)
}

// SaveProvider creates or replaces a provider's schedule.
func (c *Coordinator) SaveProvider(ctx context.Context, p model.Provider) (model.Provider, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return model.Provider{}, err
	}
	if err := c.store.SaveProvider(ctx, p); err != nil {
		return model.Provider{}, err
	}
	c.logger.Info("provider saved", "request_id", httpx.RequestIDFromContext(ctx), "provider_id", p.ID)
	return p, nil
}

// SaveService creates or replaces a catalog entry. Once a reservation
// references a service its duration and price are frozen; name and active
// flag stay editable.
func (c *Coordinator) SaveService(ctx context.Context, s model.Service) (model.Service, error) {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	if err := s.Validate(); err != nil {
		return model.Service{}, err
	}
	cur, err := c.store.GetService(ctx, s.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return model.Service{}, err
	case cur.DurationMinutes != s.DurationMinutes || cur.PriceCents != s.PriceCents:
		used, err := c.store.ServiceReferenced(ctx, s.ID)
		if err != nil {
			return model.Service{}, err
		}
		if used {
			return model.Service{}, model.Invalid("service", "%q is referenced by reservations; duration and price cannot change", s.ID)
		}
	}
	if err := c.store.SaveService(ctx, s); err != nil {
		return model.Service{}, err
	}
	c.logger.Info("service saved", "request_id", httpx.RequestIDFromContext(ctx), "service_id", s.ID)
	return s, nil
}
