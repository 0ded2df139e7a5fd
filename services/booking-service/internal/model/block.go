package model

import "time"

type BlockKind string

const (
	BlockBreak    BlockKind = "break"
	BlockVacation BlockKind = "vacation"
	BlockClosure  BlockKind = "closure"
	BlockOther    BlockKind = "other"
)

func (k BlockKind) Valid() bool {
	switch k {
	case BlockBreak, BlockVacation, BlockClosure, BlockOther:
		return true
	}
	return false
}

// Block is one stored unavailability range. An empty ProviderID applies to
// every provider; a nil Hours covers whole days.
type Block struct {
	ID         string     `json:"id"`
	ProviderID string     `json:"provider_id,omitempty"`
	StartDate  Day        `json:"start_date"`
	EndDate    Day        `json:"end_date"`
	Hours      *TimeRange `json:"hours,omitempty"`
	Kind       BlockKind  `json:"kind"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (b Block) Global() bool {
	return b.ProviderID == ""
}

// Covers reports whether day falls inside the inclusive date range.
func (b Block) Covers(day Day) bool {
	return !day.Before(b.StartDate) && !day.After(b.EndDate)
}

func (b Block) AppliesTo(providerID string) bool {
	return b.Global() || b.ProviderID == providerID
}

func (b Block) Range() TimeRange {
	if b.Hours == nil {
		return FullDay
	}
	return *b.Hours
}

// DailyExclusion is a block projected onto a single calendar day.
type DailyExclusion struct {
	BlockID string    `json:"block_id"`
	Day     Day       `json:"date"`
	Range   TimeRange `json:"range"`
	Kind    BlockKind `json:"kind"`
	Reason  string    `json:"reason,omitempty"`
}
