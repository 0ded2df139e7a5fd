// Package rules holds the booking predicates shared by slot listing and
// reservation commits. Everything here is pure.
package rules

import (
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

// Policy carries the shop-wide booking rules.
type Policy struct {
	Location           *time.Location
	AdvanceNotice      time.Duration
	SameDayCutoffHour  int // 0 disables the cutoff
	DefaultStepMinutes int
}

func DefaultPolicy() Policy {
	return Policy{
		Location:           time.UTC,
		AdvanceNotice:      2 * time.Hour,
		DefaultStepMinutes: 30,
	}
}

func (p Policy) Loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Step is the candidate granularity for provider.
func (p Policy) Step(provider model.Provider) int {
	if provider.SlotStepMinutes > 0 {
		return provider.SlotStepMinutes
	}
	if p.DefaultStepMinutes > 0 {
		return p.DefaultStepMinutes
	}
	return 30
}

// Today is the shop-local calendar date at now.
func (p Policy) Today(now time.Time) model.Day {
	return model.DayOf(now.In(p.Loc()))
}

func IsWorkingDay(provider model.Provider, day model.Day) bool {
	return provider.WorksOn(day.Weekday())
}

func IsPastDay(day, today model.Day) bool {
	return day.Before(today)
}

// IsWithinAdvanceWindow reports whether start is at least notice after now.
func IsWithinAdvanceWindow(start, now time.Time, notice time.Duration) bool {
	return !start.Before(now.Add(notice))
}

// IsPastCutoffForToday is true once now reaches cutoffHour on day itself.
func IsPastCutoffForToday(day model.Day, now time.Time, cutoffHour int) bool {
	if cutoffHour <= 0 {
		return false
	}
	return model.DayOf(now) == day && now.Hour() >= cutoffHour
}

func Overlaps(a, b model.TimeRange) bool {
	return a.Overlaps(b)
}

func OverlapsAny(r model.TimeRange, others []model.TimeRange) bool {
	for _, o := range others {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

// IsAlignedToStep reports whether minute sits on the grid origin + k*step.
func IsAlignedToStep(minute, origin, step int) bool {
	if step <= 0 {
		return false
	}
	return minute >= origin && (minute-origin)%step == 0
}

// FitsWorkingHours checks that the service itself ends by closing time.
// The trailing break may run past closing.
func FitsWorkingHours(provider model.Provider, start, durationMinutes int) bool {
	return start >= provider.StartMinute && start+durationMinutes <= provider.EndMinute
}
