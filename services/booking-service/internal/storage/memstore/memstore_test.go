package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
)

var day = model.NewDay(2025, time.March, 5)

func res(id string, start int) model.Reservation {
	r := model.Reservation{ID: id, ClientID: "c1", ProviderID: "p1", Day: day, DurationMinutes: 30, State: model.StateConfirmed}
	r.SetStart(start)
	return r
}

func TestInProviderTxDiscardsWritesOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.InProviderTx(ctx, "p1", func(ctx context.Context, tx booking.Tx) error {
		if err := tx.InsertReservation(ctx, res("r1", 600)); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, outbox.Event{ID: "e1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetReservation(ctx, "r1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("rolled back reservation is visible: %v", err)
	}
	if len(s.Events()) != 0 {
		t.Fatal("rolled back event is visible")
	}
}

func TestTxSeesItsOwnWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.InProviderTx(ctx, "p1", func(ctx context.Context, tx booking.Tx) error {
		r := res("r1", 600)
		r.IdempotencyKey = "k"
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		active, err := tx.ActiveReservations(ctx, "p1", day)
		if err != nil {
			return err
		}
		if len(active) != 1 {
			t.Fatalf("expected pending insert to be visible, got %d", len(active))
		}
		if _, err := tx.ReservationByIdempotencyKey(ctx, "c1", "k"); err != nil {
			t.Fatalf("idempotency lookup inside tx: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if _, err := s.GetReservation(ctx, "r1"); err != nil {
		t.Fatalf("committed reservation missing: %v", err)
	}
}

func TestActiveReservationsSkipsCancelled(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.InProviderTx(ctx, "p1", func(ctx context.Context, tx booking.Tx) error {
		c := res("r2", 660)
		c.State = model.StateCancelled
		_ = tx.InsertReservation(ctx, res("r1", 600))
		return tx.InsertReservation(ctx, c)
	})
	active, _ := s.ActiveReservations(ctx, "p1", day)
	all, _ := s.ListReservations(ctx, "p1", day)
	if len(active) != 1 || len(all) != 2 {
		t.Fatalf("expected 1 active of 2, got %d of %d", len(active), len(all))
	}
}

func TestUpdateUnknownReservation(t *testing.T) {
	s := New()
	err := s.InProviderTx(context.Background(), "p1", func(ctx context.Context, tx booking.Tx) error {
		return tx.UpdateReservation(ctx, res("ghost", 600))
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientExists(t *testing.T) {
	open := New()
	if ok, _ := open.ClientExists(context.Background(), "anyone"); !ok {
		t.Fatal("open store accepts any client")
	}
	closed := New(WithClients("c1"))
	if ok, _ := closed.ClientExists(context.Background(), "c2"); ok {
		t.Fatal("unknown client accepted")
	}
}

func TestCommitRejectsIdempotencyKeyOwnedByAnotherProvider(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert := func(providerID, id string) error {
		return s.InProviderTx(ctx, providerID, func(ctx context.Context, tx booking.Tx) error {
			r := res(id, 600)
			r.ProviderID = providerID
			r.IdempotencyKey = "k"
			return tx.InsertReservation(ctx, r)
		})
	}
	if err := insert("p1", "r1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert("p2", "r2"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict for a reused key, got %v", err)
	}
	if _, err := s.GetReservation(ctx, "r2"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("rejected reservation is visible: %v", err)
	}
}

func TestReservationsAreDetachedFromCallers(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := res("r1", 600)
	r.ServiceIDs = []string{"cut", "beard"}
	confirmed := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	r.ConfirmedAt = &confirmed
	if err := s.InProviderTx(ctx, "p1", func(ctx context.Context, tx booking.Tx) error {
		return tx.InsertReservation(ctx, r)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	r.ServiceIDs[1] = "changed"
	confirmed = confirmed.Add(time.Hour)

	got, err := s.GetReservation(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ServiceIDs[1] != "beard" || !got.ConfirmedAt.Equal(time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("stored reservation changed through caller: %+v", got)
	}
	got.ServiceIDs[0] = "changed"
	again, _ := s.GetReservation(ctx, "r1")
	if again.ServiceIDs[0] != "cut" {
		t.Fatalf("stored reservation changed through reader: %v", again.ServiceIDs)
	}
}

func TestServiceReferenced(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := res("r1", 600)
	r.ServiceIDs = []string{"cut", "beard"}
	if err := s.InProviderTx(ctx, "p1", func(ctx context.Context, tx booking.Tx) error {
		return tx.InsertReservation(ctx, r)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if used, _ := s.ServiceReferenced(ctx, "beard"); !used {
		t.Fatal("expected bundled service to be referenced")
	}
	if used, _ := s.ServiceReferenced(ctx, "perm"); used {
		t.Fatal("unbooked service reported as referenced")
	}
}
