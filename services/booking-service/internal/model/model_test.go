package model

import (
	"errors"
	"testing"
	"time"
)

func TestDayAddDaysCrossesMonth(t *testing.T) {
	d := NewDay(2025, time.January, 30)
	if got := d.AddDays(3).String(); got != "2025-02-02" {
		t.Fatalf("expected 2025-02-02, got %s", got)
	}
	if got := NewDay(2024, time.December, 31).AddDays(1).String(); got != "2025-01-01" {
		t.Fatalf("expected 2025-01-01, got %s", got)
	}
	if got := NewDay(2024, time.February, 28).AddDays(1).String(); got != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", got)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-03-14")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != NewDay(2025, time.March, 14) {
		t.Fatalf("unexpected day %+v", d)
	}
	if d.Weekday() != time.Friday {
		t.Fatalf("expected friday, got %s", d.Weekday())
	}
	if _, err := ParseDay("2025-02-30"); err == nil {
		t.Fatal("expected error for impossible date")
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{"09:00": 540, "18:30": 1110, "00:00": 0, "24:00": 1440}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"9:00", "09:60", "25:00", "0900", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if FormatClock(570) != "09:30" {
		t.Fatalf("unexpected format %s", FormatClock(570))
	}
}

func TestTimeRangeOverlapsIsHalfOpen(t *testing.T) {
	a := TimeRange{Start: 600, End: 630}
	if a.Overlaps(TimeRange{Start: 630, End: 660}) {
		t.Fatal("adjacent ranges must not overlap")
	}
	if !a.Overlaps(TimeRange{Start: 629, End: 700}) {
		t.Fatal("expected overlap")
	}
}

func TestProviderValidate(t *testing.T) {
	p := Provider{ID: "p1", StartMinute: 540, EndMinute: 1080, WorkingDays: []time.Weekday{time.Monday}}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid provider: %v", err)
	}
	p.EndMinute = 500
	err := p.Validate()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "working_hours" {
		t.Fatalf("expected working_hours validation error, got %v", err)
	}
}

func TestUnavailableKeepsBothErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("insert reservation", cause)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause in chain: %v", err)
	}
}
