package availability

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
)

// Snapshot is everything known about one provider's day at decision time.
type Snapshot struct {
	Provider     model.Provider
	Day          model.Day
	Exclusions   []model.TimeRange
	Reservations []model.Reservation
}

// Busy returns the windows held by active reservations, each extended by
// the provider's break.
func (s Snapshot) Busy() []model.TimeRange {
	out := make([]model.TimeRange, 0, len(s.Reservations))
	for _, r := range s.Reservations {
		if !r.Active() || r.Day != s.Day || r.ProviderID != s.Provider.ID {
			continue
		}
		w := r.Window()
		w.End += s.Provider.BreakMinutes
		out = append(out, w)
	}
	return out
}

// CheckDay rejects days on which nothing can be booked at all.
func CheckDay(pol rules.Policy, p model.Provider, day model.Day, now time.Time) error {
	if !p.Active {
		return model.Invalid("provider_id", "provider %q is not accepting reservations", p.ID)
	}
	if rules.IsPastDay(day, pol.Today(now)) {
		return model.Invalid("date", "%s is in the past", day)
	}
	if !rules.IsWorkingDay(p, day) {
		return model.Invalid("date", "provider does not work on %s", day.Weekday())
	}
	return nil
}

// Check decides whether a service of durationMinutes may start at start on
// the snapshot's day. Rule failures are validation errors; overlap with a
// block or an active reservation is model.ErrConflict.
func Check(pol rules.Policy, snap Snapshot, start, durationMinutes int, now time.Time) error {
	p := snap.Provider
	if durationMinutes <= 0 {
		return model.Invalid("duration", "must be positive")
	}
	if p.BreakMinutes >= durationMinutes {
		return model.Invalid("duration", "must be longer than the provider's %d minute break", p.BreakMinutes)
	}
	if err := CheckDay(pol, p, snap.Day, now); err != nil {
		return err
	}
	if !rules.FitsWorkingHours(p, start, durationMinutes) {
		return model.Invalid("start_time", "%s does not fit working hours %s", model.FormatClock(start), p.WorkingHours())
	}
	step := pol.Step(p)
	if !rules.IsAlignedToStep(start, p.StartMinute, step) {
		return model.Invalid("start_time", "%s is not on the %d minute grid", model.FormatClock(start), step)
	}

	loc := pol.Loc()
	localNow := now.In(loc)
	if rules.IsPastCutoffForToday(snap.Day, localNow, pol.SameDayCutoffHour) {
		return model.Invalid("date", "same-day booking closes at %02d:00", pol.SameDayCutoffHour)
	}
	if pol.Today(now) == snap.Day && !rules.IsWithinAdvanceWindow(snap.Day.At(start, loc), localNow, pol.AdvanceNotice) {
		return model.Invalid("start_time", "must be at least %s ahead", pol.AdvanceNotice)
	}

	want := model.TimeRange{Start: start, End: start + durationMinutes + p.BreakMinutes}
	if rules.OverlapsAny(want, snap.Exclusions) {
		return fmt.Errorf("%s blocked: %w", want, model.ErrConflict)
	}
	if rules.OverlapsAny(want, snap.Busy()) {
		return fmt.Errorf("%s taken: %w", want, model.ErrConflict)
	}
	return nil
}
