package availability

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/rules"
)

// Slot is one bookable start. End excludes the trailing break.
type Slot struct {
	Start int
	End   int
}

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start     string `json:"start"`
		End       string `json:"end"`
		Available bool   `json:"available"`
	}{model.FormatClock(s.Start), model.FormatClock(s.End), true})
}

// Slots walks the provider's grid from opening while the service still ends
// by closing, keeping the starts Check accepts. Output is ascending.
func Slots(pol rules.Policy, snap Snapshot, durationMinutes int, now time.Time) []Slot {
	p := snap.Provider
	step := pol.Step(p)
	if durationMinutes <= 0 {
		return nil
	}

	slots := []Slot{}
	for t := p.StartMinute; t+durationMinutes <= p.EndMinute; t += step {
		if Check(pol, snap, t, durationMinutes, now) != nil {
			continue
		}
		slots = append(slots, Slot{Start: t, End: t + durationMinutes})
	}
	return slots
}
