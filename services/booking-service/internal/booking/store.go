package booking

import (
	"context"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
)

// Store is the reservation store seen by the coordinator.
type Store interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	SaveProvider(ctx context.Context, p model.Provider) error
	SaveService(ctx context.Context, s model.Service) error
	// ServiceReferenced reports whether any reservation lists the service.
	ServiceReferenced(ctx context.Context, serviceID string) (bool, error)
	GetReservation(ctx context.Context, id string) (model.Reservation, error)
	ActiveReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error)
	ListReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error)

	// InProviderTx runs fn while holding providerID's schedule exclusively.
	// Writes made through tx become visible only if fn returns nil.
	InProviderTx(ctx context.Context, providerID string, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the provider-scoped unit of work.
type Tx interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	ActiveReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error)
	BlocksCovering(ctx context.Context, providerID string, day model.Day) ([]model.Block, error)
	ReservationByIdempotencyKey(ctx context.Context, clientID, key string) (model.Reservation, error)
	ReservationForUpdate(ctx context.Context, id string) (model.Reservation, error)
	InsertReservation(ctx context.Context, r model.Reservation) error
	UpdateReservation(ctx context.Context, r model.Reservation) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// ClientDirectory answers whether a client id refers to a known account.
// Accounts live outside this service.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id string) (bool, error)
}

type anyClient struct{}

func (anyClient) ClientExists(_ context.Context, id string) (bool, error) {
	return id != "", nil
}
