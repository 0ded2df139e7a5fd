package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds every minute-of-day value.
const MinutesPerDay = 24 * 60

// TimeRange is a half-open [Start, End) interval in minutes since midnight.
type TimeRange struct {
	Start int `json:"start_minute"`
	End   int `json:"end_minute"`
}

var FullDay = TimeRange{Start: 0, End: MinutesPerDay}

func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= MinutesPerDay && r.Start < r.End
}

func (r TimeRange) Minutes() int {
	return r.End - r.Start
}

// Overlaps reports whether the two ranges share any minute.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r TimeRange) String() string {
	return FormatClock(r.Start) + "-" + FormatClock(r.End)
}

// FormatClock renders a minute-of-day as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseClock accepts HH:MM (24h). "24:00" is allowed as an end of day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || len(hh) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	minute := h*60 + m
	if h < 0 || minute > MinutesPerDay {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return minute, nil
}
