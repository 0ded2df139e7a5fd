//go:build integration

package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/reserva/libs/db"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/storage"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./...

var (
	clock     = time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	wednesday = model.NewDay(2025, time.March, 5)
)

type pgFixture struct {
	repo       *storage.Repository
	coord      *booking.Coordinator
	providerID string
	serviceID  string
}

func newPGFixture(t *testing.T) pgFixture {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := storage.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := storage.NewRepository(pool, outbox.NewRepository())
	f := pgFixture{repo: repo, providerID: "p-" + uuid.NewString(), serviceID: "s-" + uuid.NewString()}
	if err := repo.SaveProvider(ctx, model.Provider{
		ID:          f.providerID,
		Name:        "Rafa",
		Active:      true,
		WorkingDays: []time.Weekday{time.Wednesday},
		StartMinute: 9 * 60,
		EndMinute:   18 * 60,
	}); err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	if err := repo.SaveService(ctx, model.Service{ID: f.serviceID, Name: "Haircut", DurationMinutes: 30, PriceCents: 2500, Active: true}); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	now := func() time.Time { return clock }
	registry := blocks.NewRegistry(repo, now)
	calc := availability.NewCalculator(repo, registry, rules.Policy{Location: time.UTC, DefaultStepMinutes: 30})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.coord = booking.New(repo, calc, logger, booking.WithClock(now))
	return f
}

func (f pgFixture) request(start int) booking.Request {
	return booking.Request{ClientID: "c1", ProviderID: f.providerID, ServiceIDs: []string{f.serviceID}, Day: wednesday, StartMinute: start}
}

func TestPostgresConcurrentCreateHasOneWinner(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coord.CreateReservation(ctx, f.request(10*60))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, model.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", n-1, created, conflicts)
	}
}

func TestPostgresExclusionConstraintRejectsOverlap(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	insert := func(start int) error {
		return f.repo.InProviderTx(ctx, f.providerID, func(ctx context.Context, tx booking.Tx) error {
			r := model.Reservation{
				ID:              uuid.NewString(),
				ClientID:        "c1",
				ProviderID:      f.providerID,
				ServiceID:       f.serviceID,
				ServiceIDs:      []string{f.serviceID},
				Day:             wednesday,
				DurationMinutes: 30,
				State:           model.StateConfirmed,
				CreatedAt:       clock,
			}
			r.SetStart(start)
			return tx.InsertReservation(ctx, r)
		})
	}
	if err := insert(10 * 60); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(10*60 + 15); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict from the exclusion constraint, got %v", err)
	}
	if err := insert(10*60 + 30); err != nil {
		t.Fatalf("adjacent insert: %v", err)
	}
}

func TestPostgresMalformedIDIsNotFound(t *testing.T) {
	f := newPGFixture(t)
	if _, err := f.repo.GetReservation(context.Background(), "not-a-uuid"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresCancelReleasesWindow(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	r, err := f.coord.CreateReservation(ctx, f.request(11*60))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.coord.CancelReservation(ctx, r.ID, "moved"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.coord.CreateReservation(ctx, f.request(11*60)); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}
