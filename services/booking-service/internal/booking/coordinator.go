package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/reserva/libs/httpx"
	otelx "github.com/md-rashed-zaman/reserva/libs/otel"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otelx.Tracer("booking-service/booking")

type Coordinator struct {
	store   Store
	calc    *availability.Calculator
	policy  rules.Policy
	clients ClientDirectory
	initial model.State
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithClients(dir ClientDirectory) Option {
	return func(c *Coordinator) { c.clients = dir }
}

// WithInitialState selects the state new reservations start in. Only
// confirmed and pending are accepted; anything else keeps confirmed.
func WithInitialState(s model.State) Option {
	return func(c *Coordinator) {
		if s == model.StateConfirmed || s == model.StatePending {
			c.initial = s
		}
	}
}

func New(store Store, calc *availability.Calculator, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		calc:    calc,
		policy:  calc.Policy(),
		clients: anyClient{},
		initial: model.StateConfirmed,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request asks for one reservation. ServiceIDs[0] is the primary service;
// further entries are bundled and their durations and prices add up.
type Request struct {
	ClientID       string
	ProviderID     string
	ServiceIDs     []string
	Day            model.Day
	StartMinute    int
	ClientNotes    string
	InternalNotes  string
	IdempotencyKey string
}

func (r *Request) normalize() error {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	ids := make([]string, 0, len(r.ServiceIDs))
	for _, id := range r.ServiceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if slices.Contains(ids, id) {
			return model.Invalid("service_ids", "service %q listed twice", id)
		}
		ids = append(ids, id)
	}
	r.ServiceIDs = ids

	switch {
	case r.ClientID == "":
		return model.Invalid("client_id", "is required")
	case r.ProviderID == "":
		return model.Invalid("provider_id", "is required")
	case len(r.ServiceIDs) == 0:
		return model.Invalid("service_id", "is required")
	case r.Day.IsZero():
		return model.Invalid("date", "is required")
	case r.StartMinute < 0 || r.StartMinute >= model.MinutesPerDay:
		return model.Invalid("start_time", "out of range")
	}
	return nil
}

// matches reports whether prior was created from an equivalent request.
func (r *Request) matches(prior model.Reservation) bool {
	return prior.ProviderID == r.ProviderID &&
		prior.Day == r.Day &&
		prior.StartMinute == r.StartMinute &&
		slices.Equal(prior.ServiceIDs, r.ServiceIDs)
}

// CreateReservation re-validates the requested window against the current
// schedule and inserts it atomically. Losing a race yields model.ErrConflict.
func (c *Coordinator) CreateReservation(ctx context.Context, req Request) (res model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "booking.CreateReservation", trace.WithAttributes(
		attribute.String("provider_id", req.ProviderID),
		attribute.String("date", req.Day.String()),
	))
	defer func() {
		c.recordCreate(ctx, span, req, res, err)
		span.End()
	}()

	if err := req.normalize(); err != nil {
		return model.Reservation{}, err
	}
	ok, err := c.clients.ClientExists(ctx, req.ClientID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("lookup client: %w", err)
	}
	if !ok {
		return model.Reservation{}, model.Invalid("client_id", "unknown client %q", req.ClientID)
	}

	now := c.now()
	err = c.store.InProviderTx(ctx, req.ProviderID, func(ctx context.Context, tx Tx) error {
		if req.IdempotencyKey != "" {
			prior, err := tx.ReservationByIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey)
			if err == nil {
				if !req.matches(prior) {
					return model.Invalid("idempotency_key", "already used for a different reservation")
				}
				res = prior
				return nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
		}

		p, err := tx.GetProvider(ctx, req.ProviderID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Invalid("provider_id", "unknown provider %q", req.ProviderID)
			}
			return err
		}
		duration, price, err := resolveServices(ctx, tx.GetService, req.ServiceIDs)
		if err != nil {
			return err
		}

		snap := availability.Snapshot{Provider: p, Day: req.Day}
		bs, err := tx.BlocksCovering(ctx, p.ID, req.Day)
		if err != nil {
			return err
		}
		snap.Exclusions = blocks.Ranges(blocks.ExclusionsFromBlocks(bs, p.ID, req.Day))
		if snap.Reservations, err = tx.ActiveReservations(ctx, p.ID, req.Day); err != nil {
			return err
		}
		if err := availability.Check(c.policy, snap, req.StartMinute, duration, now); err != nil {
			return err
		}

		r := model.Reservation{
			ID:              uuid.NewString(),
			ClientID:        req.ClientID,
			ProviderID:      p.ID,
			ServiceID:       req.ServiceIDs[0],
			ServiceIDs:      req.ServiceIDs,
			Day:             req.Day,
			DurationMinutes: duration,
			PriceCents:      price,
			State:           c.initial,
			ClientNotes:     strings.TrimSpace(req.ClientNotes),
			InternalNotes:   strings.TrimSpace(req.InternalNotes),
			IdempotencyKey:  req.IdempotencyKey,
			CreatedAt:       now.UTC(),
		}
		r.SetStart(req.StartMinute)
		if r.State == model.StateConfirmed {
			at := r.CreatedAt
			r.ConfirmedAt = &at
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		evt, err := outbox.ReservationCreated(r)
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
		return model.Reservation{}, err
	}
	return res, nil
}

func (c *Coordinator) recordCreate(ctx context.Context, span trace.Span, req Request, res model.Reservation, err error) {
	attrs := []any{
		"request_id", httpx.RequestIDFromContext(ctx),
		"provider_id", req.ProviderID,
		"date", req.Day.String(),
		"start", model.FormatClock(req.StartMinute),
	}
	switch {
	case err == nil:
		metrics.ReservationAttempts.WithLabelValues("created").Inc()
		span.SetAttributes(attribute.String("reservation_id", res.ID))
		c.logger.Info("reservation created", append(attrs, "reservation_id", res.ID, "state", res.State)...)
	case errors.Is(err, model.ErrConflict):
		metrics.ReservationAttempts.WithLabelValues("conflict").Inc()
		span.SetAttributes(attribute.Bool("conflict", true))
		c.logger.Info("reservation conflict", append(attrs, "err", err)...)
	case model.IsValidation(err):
		metrics.ReservationAttempts.WithLabelValues("invalid").Inc()
		c.logger.Debug("reservation rejected", append(attrs, "err", err)...)
	default:
		metrics.ReservationAttempts.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("reservation create failed", append(attrs, "err", err)...)
	}
}

// Availability resolves the services' total duration and lists slots.
func (c *Coordinator) Availability(ctx context.Context, providerID string, day model.Day, serviceIDs []string) ([]availability.Slot, error) {
	var ids []string
	for _, id := range serviceIDs {
		if id = strings.TrimSpace(id); id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, model.Invalid("service_id", "is required")
	}
	duration, _, err := resolveServices(ctx, c.store.GetService, ids)
	if err != nil {
		return nil, err
	}
	slots, err := c.calc.ComputeSlots(ctx, strings.TrimSpace(providerID), day, duration, c.now())
	if err != nil {
		return nil, err
	}
	metrics.SlotsComputed.Observe(float64(len(slots)))
	return slots, nil
}

func resolveServices(ctx context.Context, get func(context.Context, string) (model.Service, error), ids []string) (int, int64, error) {
	var duration int
	var price int64
	for _, id := range ids {
		s, err := get(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return 0, 0, model.Invalid("service_id", "unknown service %q", id)
			}
			return 0, 0, err
		}
		if !s.Active {
			return 0, 0, model.Invalid("service_id", "service %q is not offered", id)
		}
		if s.DurationMinutes <= 0 {
			return 0, 0, model.Invalid("service_id", "service %q has no duration", id)
		}
		duration += s.DurationMinutes
		price += s.PriceCents
	}
	return duration, price, nil
}
