package availability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// 2025-03-05 is a Wednesday.
var testDay = model.NewDay(2025, time.March, 5)

func barber(start, end, brk int) model.Provider {
	return model.Provider{ID: "p1", Active: true, WorkingDays: weekdays, StartMinute: start, EndMinute: end, BreakMinutes: brk}
}

func testPolicy(step int) rules.Policy {
	return rules.Policy{Location: time.UTC, AdvanceNotice: 2 * time.Hour, DefaultStepMinutes: step}
}

func dayBefore() time.Time {
	return time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
}

func reservation(start, dur int) model.Reservation {
	r := model.Reservation{ID: "r", ProviderID: "p1", Day: testDay, DurationMinutes: dur, State: model.StateConfirmed}
	r.SetStart(start)
	return r
}

func starts(slots []Slot) map[int]bool {
	out := map[int]bool{}
	for _, s := range slots {
		out[s.Start] = true
	}
	return out
}

func TestSlotsExcludeExistingReservation(t *testing.T) {
	snap := Snapshot{
		Provider:     barber(9*60, 18*60, 0),
		Day:          testDay,
		Reservations: []model.Reservation{reservation(10*60, 30)},
	}
	slots := Slots(testPolicy(30), snap, 30, dayBefore())
	got := starts(slots)
	for _, want := range []int{9 * 60, 9*60 + 30, 10*60 + 30, 11 * 60} {
		if !got[want] {
			t.Fatalf("expected slot %s", model.FormatClock(want))
		}
	}
	if got[10*60] {
		t.Fatal("10:00 is booked and must not be offered")
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start <= slots[i-1].Start {
			t.Fatalf("slots not ascending at %d", i)
		}
	}
	if last := slots[len(slots)-1]; last.Start != 17*60+30 || last.End != 18*60 {
		t.Fatalf("unexpected last slot %+v", last)
	}
}

func TestSlotsIgnoreCancelledReservations(t *testing.T) {
	r := reservation(10*60, 30)
	r.State = model.StateCancelled
	snap := Snapshot{Provider: barber(9*60, 12*60, 0), Day: testDay, Reservations: []model.Reservation{r}}
	if !starts(Slots(testPolicy(30), snap, 30, dayBefore()))[10*60] {
		t.Fatal("a cancelled reservation must release its window")
	}
}

func TestSlotsAdvanceNotice(t *testing.T) {
	snap := Snapshot{Provider: barber(9*60, 20*60, 0), Day: testDay}
	now := time.Date(2025, 3, 5, 16, 30, 0, 0, time.UTC)
	slots := Slots(testPolicy(30), snap, 30, now)
	if len(slots) == 0 {
		t.Fatal("expected evening slots")
	}
	if slots[0].Start != 18*60+30 {
		t.Fatalf("expected first slot 18:30, got %s", model.FormatClock(slots[0].Start))
	}
}

func TestSlotsFullyBlockedDayIsEmpty(t *testing.T) {
	snap := Snapshot{Provider: barber(9*60, 18*60, 0), Day: testDay, Exclusions: []model.TimeRange{model.FullDay}}
	slots := Slots(testPolicy(30), snap, 30, dayBefore())
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", slots)
	}
	b, _ := json.Marshal(slots)
	if string(b) != "[]" {
		t.Fatalf("expected [] on the wire, got %s", b)
	}
}

func TestSlotsPartialBlock(t *testing.T) {
	snap := Snapshot{
		Provider:   barber(9*60, 10*60, 0),
		Day:        testDay,
		Exclusions: []model.TimeRange{{Start: 9*60 + 15, End: 9*60 + 45}},
	}
	slots := Slots(testPolicy(15), snap, 15, dayBefore())
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Start != 9*60 || slots[1].Start != 9*60+45 {
		t.Fatalf("expected 09:00 and 09:45, got %s and %s", model.FormatClock(slots[0].Start), model.FormatClock(slots[1].Start))
	}
}

func TestSlotsBreakSpacing(t *testing.T) {
	snap := Snapshot{
		Provider:     barber(9*60, 12*60, 10),
		Day:          testDay,
		Reservations: []model.Reservation{reservation(10*60, 30)},
	}
	got := starts(Slots(testPolicy(30), snap, 30, dayBefore()))
	if !got[9*60] {
		t.Fatal("09:00 plus break ends before 10:00")
	}
	if got[9*60+30] {
		t.Fatal("09:30 leaves no break before 10:00")
	}
	if got[10*60+30] {
		t.Fatal("10:30 falls inside the break after 10:00-10:30")
	}
	if !got[11*60] {
		t.Fatal("11:00 should be free")
	}
}

func TestSlotsSameDayCutoff(t *testing.T) {
	snap := Snapshot{Provider: barber(9*60, 20*60, 0), Day: testDay}
	pol := testPolicy(30)
	pol.SameDayCutoffHour = 14
	if slots := Slots(pol, snap, 30, time.Date(2025, 3, 5, 14, 5, 0, 0, time.UTC)); len(slots) != 0 {
		t.Fatalf("expected no same-day slots after cutoff, got %d", len(slots))
	}
	if slots := Slots(pol, snap, 30, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)); len(slots) == 0 {
		t.Fatal("expected same-day slots before cutoff")
	}
}

func TestCheckAgreesWithSlots(t *testing.T) {
	snap := Snapshot{
		Provider:     barber(9*60, 18*60, 5),
		Day:          testDay,
		Exclusions:   []model.TimeRange{{Start: 13 * 60, End: 14 * 60}},
		Reservations: []model.Reservation{reservation(10*60, 45), reservation(15*60+30, 30)},
	}
	pol := testPolicy(15)
	now := dayBefore()
	offered := starts(Slots(pol, snap, 30, now))
	for t0 := 9 * 60; t0+30 <= 18*60; t0 += 15 {
		err := Check(pol, snap, t0, 30, now)
		if offered[t0] != (err == nil) {
			t.Fatalf("slot %s: offered=%v check=%v", model.FormatClock(t0), offered[t0], err)
		}
		if err != nil && !errors.Is(err, model.ErrConflict) {
			t.Fatalf("slot %s: expected conflict, got %v", model.FormatClock(t0), err)
		}
	}
}

func TestCheckRuleFailuresAreValidation(t *testing.T) {
	snap := Snapshot{Provider: barber(9*60, 18*60, 0), Day: testDay}
	pol := testPolicy(30)
	now := dayBefore()
	for name, start := range map[string]int{"off grid": 9*60 + 10, "before opening": 8 * 60, "past closing": 17*60 + 45} {
		if err := Check(pol, snap, start, 30, now); !model.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

type fakeSource struct {
	provider     model.Provider
	reservations []model.Reservation
}

func (f fakeSource) GetProvider(_ context.Context, id string) (model.Provider, error) {
	if id != f.provider.ID {
		return model.Provider{}, model.ErrNotFound
	}
	return f.provider, nil
}

func (f fakeSource) ActiveReservations(context.Context, string, model.Day) ([]model.Reservation, error) {
	return f.reservations, nil
}

type fixedExclusions []model.TimeRange

func (f fixedExclusions) ExclusionsForDate(context.Context, string, model.Day) ([]model.TimeRange, error) {
	return f, nil
}

func TestComputeSlotsRejectsClosedDays(t *testing.T) {
	calc := NewCalculator(fakeSource{provider: barber(9*60, 18*60, 0)}, fixedExclusions(nil), testPolicy(30))
	ctx := context.Background()

	if _, err := calc.ComputeSlots(ctx, "p1", model.NewDay(2025, time.March, 8), 30, dayBefore()); !model.IsValidation(err) {
		t.Fatalf("saturday: expected validation error, got %v", err)
	}
	if _, err := calc.ComputeSlots(ctx, "p1", model.NewDay(2025, time.March, 3), 30, dayBefore()); !model.IsValidation(err) {
		t.Fatalf("past date: expected validation error, got %v", err)
	}
	if _, err := calc.ComputeSlots(ctx, "nobody", testDay, 30, dayBefore()); !model.IsValidation(err) {
		t.Fatalf("unknown provider: expected validation error, got %v", err)
	}
	slots, err := calc.ComputeSlots(ctx, "p1", testDay, 30, dayBefore())
	if err != nil || len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d (%v)", len(slots), err)
	}
}
