package model

import (
	"slices"
	"time"
)

// Provider is a barber with a single daily working window.
type Provider struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	WorkingDays     []time.Weekday `json:"working_days"`
	StartMinute     int            `json:"start_minute"`
	EndMinute       int            `json:"end_minute"`
	BreakMinutes    int            `json:"break_minutes"`
	SlotStepMinutes int            `json:"slot_step_minutes,omitempty"`
	Active          bool           `json:"active"`
}

func (p Provider) WorkingHours() TimeRange {
	return TimeRange{Start: p.StartMinute, End: p.EndMinute}
}

func (p Provider) WorksOn(wd time.Weekday) bool {
	return slices.Contains(p.WorkingDays, wd)
}

func (p Provider) Validate() error {
	if p.ID == "" {
		return Invalid("id", "is required")
	}
	if !p.WorkingHours().Valid() {
		return Invalid("working_hours", "start must be before end within one day")
	}
	if p.BreakMinutes < 0 {
		return Invalid("break_minutes", "must not be negative")
	}
	if p.SlotStepMinutes < 0 {
		return Invalid("slot_step_minutes", "must not be negative")
	}
	for _, wd := range p.WorkingDays {
		if wd < time.Sunday || wd > time.Saturday {
			return Invalid("working_days", "unknown weekday %d", wd)
		}
	}
	return nil
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Active          bool   `json:"active"`
}

func (s Service) Validate() error {
	if s.ID == "" {
		return Invalid("id", "is required")
	}
	if s.DurationMinutes <= 0 || s.DurationMinutes > MinutesPerDay {
		return Invalid("duration_minutes", "must be between 1 and %d", MinutesPerDay)
	}
	if s.PriceCents < 0 {
		return Invalid("price_cents", "must not be negative")
	}
	return nil
}
