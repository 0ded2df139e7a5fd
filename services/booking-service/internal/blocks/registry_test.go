package blocks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/storage/memstore"
)

func newRegistry(t *testing.T) (*blocks.Registry, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	if err := store.SaveProvider(context.Background(), model.Provider{ID: "p1", StartMinute: 540, EndMinute: 1080, Active: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	return blocks.NewRegistry(store, now), store
}

func TestExpandRangeCrossesMonthBoundary(t *testing.T) {
	b := model.Block{
		ID:        "b1",
		StartDate: model.NewDay(2025, time.January, 30),
		EndDate:   model.NewDay(2025, time.February, 2),
		Kind:      model.BlockVacation,
	}
	days := blocks.ExpandRange(b)
	want := []string{"2025-01-30", "2025-01-31", "2025-02-01", "2025-02-02"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if d.Day.String() != want[i] {
			t.Fatalf("day %d: expected %s, got %s", i, want[i], d.Day)
		}
		if d.Range != model.FullDay || d.BlockID != "b1" {
			t.Fatalf("unexpected exclusion %+v", d)
		}
	}
}

func TestExpandRangeKeepsHours(t *testing.T) {
	hours := model.TimeRange{Start: 12 * 60, End: 13 * 60}
	b := model.Block{ID: "lunch", StartDate: model.NewDay(2025, time.March, 3), EndDate: model.NewDay(2025, time.March, 7), Hours: &hours}
	days := blocks.ExpandRange(b)
	if len(days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(days))
	}
	for _, d := range days {
		if d.Range != hours {
			t.Fatalf("expected lunch range, got %s", d.Range)
		}
	}
}

func TestExclusionsMergeProviderAndGlobal(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	day := model.NewDay(2025, time.March, 5)
	lunch := model.TimeRange{Start: 13 * 60, End: 14 * 60}
	morning := model.TimeRange{Start: 9 * 60, End: 10 * 60}

	if _, err := reg.CreateBlock(ctx, blocks.BlockInput{ProviderID: "p1", StartDate: day, EndDate: day, Hours: &lunch, Kind: model.BlockBreak}); err != nil {
		t.Fatalf("provider block: %v", err)
	}
	if _, err := reg.CreateBlock(ctx, blocks.BlockInput{StartDate: day.AddDays(-1), EndDate: day.AddDays(1), Hours: &morning, Kind: model.BlockClosure}); err != nil {
		t.Fatalf("global block: %v", err)
	}
	got, err := reg.ExclusionsForDate(ctx, "p1", day)
	if err != nil {
		t.Fatalf("exclusions: %v", err)
	}
	if len(got) != 2 || got[0] != morning || got[1] != lunch {
		t.Fatalf("expected morning then lunch, got %v", got)
	}

	other, err := reg.ExclusionsForDate(ctx, "p2", day)
	if err != nil {
		t.Fatalf("exclusions: %v", err)
	}
	if len(other) != 1 || other[0] != morning {
		t.Fatalf("other providers only see global blocks, got %v", other)
	}

	none, err := reg.ExclusionsForDate(ctx, "p1", day.AddDays(2))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected nothing outside the range, got %v (%v)", none, err)
	}
}

func TestCreateBlockValidation(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	day := model.NewDay(2025, time.March, 5)
	bad := model.TimeRange{Start: 600, End: 540}

	cases := map[string]blocks.BlockInput{
		"end before start": {StartDate: day, EndDate: day.AddDays(-1)},
		"unknown provider": {ProviderID: "ghost", StartDate: day, EndDate: day},
		"inverted hours":   {StartDate: day, EndDate: day, Hours: &bad},
		"unknown kind":     {StartDate: day, EndDate: day, Kind: "party"},
		"missing dates":    {},
	}
	for name, in := range cases {
		if _, err := reg.CreateBlock(ctx, in); !model.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDeleteBlock(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	day := model.NewDay(2025, time.March, 5)
	b, err := reg.CreateBlock(ctx, blocks.BlockInput{ProviderID: "p1", StartDate: day, EndDate: day})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Kind != model.BlockOther || b.ID == "" {
		t.Fatalf("unexpected block %+v", b)
	}
	if err := reg.DeleteBlock(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := reg.DeleteBlock(ctx, b.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	got, err := reg.ExclusionsForDate(ctx, "p1", day)
	if err != nil || len(got) != 0 {
		t.Fatalf("deleted block still excluded: %v (%v)", got, err)
	}
}
