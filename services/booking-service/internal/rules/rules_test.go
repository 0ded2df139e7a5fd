package rules

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

func TestIsWorkingDay(t *testing.T) {
	p := model.Provider{WorkingDays: []time.Weekday{time.Monday, time.Tuesday}}
	if !IsWorkingDay(p, model.NewDay(2025, time.March, 3)) {
		t.Fatal("monday should be a working day")
	}
	if IsWorkingDay(p, model.NewDay(2025, time.March, 2)) {
		t.Fatal("sunday should not be a working day")
	}
}

func TestIsWithinAdvanceWindow(t *testing.T) {
	now := time.Date(2025, 3, 3, 16, 30, 0, 0, time.UTC)
	if IsWithinAdvanceWindow(now.Add(119*time.Minute), now, 2*time.Hour) {
		t.Fatal("119 minutes ahead is inside the notice period")
	}
	if !IsWithinAdvanceWindow(now.Add(2*time.Hour), now, 2*time.Hour) {
		t.Fatal("exactly the notice period should be bookable")
	}
}

func TestIsPastCutoffForToday(t *testing.T) {
	day := model.NewDay(2025, time.March, 3)
	if IsPastCutoffForToday(day, time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC), 0) {
		t.Fatal("cutoff 0 means disabled")
	}
	if IsPastCutoffForToday(day, time.Date(2025, 3, 3, 13, 59, 0, 0, time.UTC), 14) {
		t.Fatal("before the cutoff hour")
	}
	if !IsPastCutoffForToday(day, time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC), 14) {
		t.Fatal("at the cutoff hour")
	}
	if IsPastCutoffForToday(day.AddDays(1), time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC), 14) {
		t.Fatal("cutoff only applies to today")
	}
}

func TestIsAlignedToStep(t *testing.T) {
	if !IsAlignedToStep(600, 540, 30) {
		t.Fatal("10:00 is on a 30 minute grid from 09:00")
	}
	if IsAlignedToStep(615, 540, 30) {
		t.Fatal("10:15 is off grid")
	}
	if IsAlignedToStep(510, 540, 30) {
		t.Fatal("before the origin is never aligned")
	}
}

func TestFitsWorkingHours(t *testing.T) {
	p := model.Provider{StartMinute: 540, EndMinute: 1080}
	if !FitsWorkingHours(p, 1050, 30) {
		t.Fatal("17:30 + 30 ends at closing")
	}
	if FitsWorkingHours(p, 1060, 30) {
		t.Fatal("17:40 + 30 runs past closing")
	}
}

func TestPolicyStep(t *testing.T) {
	pol := Policy{DefaultStepMinutes: 15}
	if pol.Step(model.Provider{}) != 15 {
		t.Fatal("expected policy default")
	}
	if pol.Step(model.Provider{SlotStepMinutes: 20}) != 20 {
		t.Fatal("provider step wins")
	}
}
