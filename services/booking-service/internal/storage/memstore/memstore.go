// Package memstore keeps the whole schedule in process memory. It backs
// STORE=memory and the tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
)

type Store struct {
	mu           sync.RWMutex
	providers    map[string]model.Provider
	services     map[string]model.Service
	blocks       map[string]model.Block
	reservations map[string]model.Reservation
	idempotency  map[idemKey]string
	events       []outbox.Event
	clients      map[string]bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type idemKey struct {
	client string
	key    string
}

type Option func(*Store)

// WithClients restricts ClientExists to the given ids. Without it every
// non-empty id is accepted.
func WithClients(ids ...string) Option {
	return func(s *Store) {
		s.clients = map[string]bool{}
		for _, id := range ids {
			s.clients[id] = true
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		providers:    map[string]model.Provider{},
		services:     map[string]model.Service{},
		blocks:       map[string]model.Block{},
		reservations: map[string]model.Reservation{},
		idempotency:  map[idemKey]string{},
		locks:        map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ClientExists(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	if s.clients == nil {
		return true, nil
	}
	return s.clients[id], nil
}

func (s *Store) GetProvider(_ context.Context, id string) (model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, model.ErrNotFound
	}
	p.WorkingDays = slices.Clone(p.WorkingDays)
	return p, nil
}

func (s *Store) GetService(_ context.Context, id string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return svc, nil
}

func (s *Store) SaveProvider(_ context.Context, p model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.WorkingDays = slices.Clone(p.WorkingDays)
	s.providers[p.ID] = p
	return nil
}

func (s *Store) SaveService(_ context.Context, svc model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
	return nil
}

func (s *Store) GetReservation(_ context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return clone(r), nil
}

// ServiceReferenced scans every reservation, cancelled ones included.
func (s *Store) ServiceReferenced(_ context.Context, serviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if slices.Contains(r.ServiceIDs, serviceID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ActiveReservations(_ context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterReservations(providerID, day, true, nil), nil
}

func (s *Store) ListReservations(_ context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterReservations(providerID, day, false, nil), nil
}

// filterReservations overlays pending over committed rows; caller holds mu.
func (s *Store) filterReservations(providerID string, day model.Day, activeOnly bool, pending map[string]model.Reservation) []model.Reservation {
	out := []model.Reservation{}
	keep := func(r model.Reservation) {
		if r.ProviderID != providerID || r.Day != day {
			return
		}
		if activeOnly && !r.Active() {
			return
		}
		out = append(out, clone(r))
	}
	for id, r := range s.reservations {
		if p, ok := pending[id]; ok {
			r = p
		}
		keep(r)
	}
	for id, r := range pending {
		if _, ok := s.reservations[id]; !ok {
			keep(r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartMinute != out[j].StartMinute {
			return out[i].StartMinute < out[j].StartMinute
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) BlocksCovering(_ context.Context, providerID string, day model.Day) ([]model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Block
	for _, b := range s.blocks {
		if b.AppliesTo(providerID) && b.Covers(day) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertBlock(_ context.Context, b model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.ID] = b
	return nil
}

func (s *Store) DeleteBlock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}

// Events returns a copy of every committed outbox event.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}

func (s *Store) providerLock(providerID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[providerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[providerID] = l
	}
	return l
}

func (s *Store) InProviderTx(ctx context.Context, providerID string, fn func(ctx context.Context, tx booking.Tx) error) error {
	l := s.providerLock(providerID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s, pending: map[string]model.Reservation{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range tx.pending {
		if r.IdempotencyKey == "" {
			continue
		}
		if owner, ok := s.idempotency[idemKey{r.ClientID, r.IdempotencyKey}]; ok && owner != id {
			return fmt.Errorf("idempotency key %q: %w", r.IdempotencyKey, model.ErrConflict)
		}
	}
	for id, r := range tx.pending {
		s.reservations[id] = r
		if r.IdempotencyKey != "" {
			s.idempotency[idemKey{r.ClientID, r.IdempotencyKey}] = id
		}
	}
	s.events = append(s.events, tx.events...)
	return nil
}

type memTx struct {
	store   *Store
	pending map[string]model.Reservation
	events  []outbox.Event
}

var _ booking.Tx = (*memTx)(nil)

func (t *memTx) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	return t.store.GetProvider(ctx, id)
}

func (t *memTx) GetService(ctx context.Context, id string) (model.Service, error) {
	return t.store.GetService(ctx, id)
}

func (t *memTx) BlocksCovering(ctx context.Context, providerID string, day model.Day) ([]model.Block, error) {
	return t.store.BlocksCovering(ctx, providerID, day)
}

func (t *memTx) ActiveReservations(_ context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.filterReservations(providerID, day, true, t.pending), nil
}

func (t *memTx) ReservationByIdempotencyKey(_ context.Context, clientID, key string) (model.Reservation, error) {
	for _, r := range t.pending {
		if r.ClientID == clientID && r.IdempotencyKey == key {
			return clone(r), nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.idempotency[idemKey{clientID, key}]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return clone(t.store.reservations[id]), nil
}

func (t *memTx) ReservationForUpdate(_ context.Context, id string) (model.Reservation, error) {
	if r, ok := t.pending[id]; ok {
		return clone(r), nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	r, ok := t.store.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return clone(r), nil
}

func (t *memTx) InsertReservation(_ context.Context, r model.Reservation) error {
	t.pending[r.ID] = clone(r)
	return nil
}

func (t *memTx) UpdateReservation(ctx context.Context, r model.Reservation) error {
	if _, err := t.ReservationForUpdate(ctx, r.ID); err != nil {
		return err
	}
	t.pending[r.ID] = clone(r)
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

// clone detaches r from slices and timestamps shared with the caller.
func clone(r model.Reservation) model.Reservation {
	r.ServiceIDs = slices.Clone(r.ServiceIDs)
	for _, ts := range []**time.Time{&r.ConfirmedAt, &r.StartedAt, &r.CompletedAt, &r.CancelledAt, &r.NoShowAt} {
		if *ts != nil {
			v := **ts
			*ts = &v
		}
	}
	return r
}
