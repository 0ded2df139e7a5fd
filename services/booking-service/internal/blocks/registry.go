package blocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

// Store persists blocks. BlocksCovering returns provider and global blocks
// whose date range includes day.
type Store interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	BlocksCovering(ctx context.Context, providerID string, day model.Day) ([]model.Block, error)
	InsertBlock(ctx context.Context, b model.Block) error
	DeleteBlock(ctx context.Context, id string) error
}

type Registry struct {
	store Store
	now   func() time.Time
}

func NewRegistry(store Store, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, now: now}
}

type BlockInput struct {
	ProviderID string
	StartDate  model.Day
	EndDate    model.Day
	Hours      *model.TimeRange
	Kind       model.BlockKind
	Reason     string
}

func (r *Registry) CreateBlock(ctx context.Context, in BlockInput) (model.Block, error) {
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return model.Block{}, model.Invalid("date", "start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return model.Block{}, model.Invalid("end_date", "must not be before start_date")
	}
	if in.Hours != nil && !in.Hours.Valid() {
		return model.Block{}, model.Invalid("hours", "start must be before end within one day")
	}
	if in.Kind == "" {
		in.Kind = model.BlockOther
	}
	if !in.Kind.Valid() {
		return model.Block{}, model.Invalid("kind", "unknown block kind %q", in.Kind)
	}
	if in.ProviderID != "" {
		if _, err := r.store.GetProvider(ctx, in.ProviderID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Block{}, model.Invalid("provider_id", "unknown provider %q", in.ProviderID)
			}
			return model.Block{}, err
		}
	}

	b := model.Block{
		ID:         uuid.NewString(),
		ProviderID: in.ProviderID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Hours:      in.Hours,
		Kind:       in.Kind,
		Reason:     strings.TrimSpace(in.Reason),
		CreatedAt:  r.now().UTC(),
	}
	if err := r.store.InsertBlock(ctx, b); err != nil {
		return model.Block{}, fmt.Errorf("insert block: %w", err)
	}
	return b, nil
}

func (r *Registry) DeleteBlock(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.Invalid("id", "is required")
	}
	return r.store.DeleteBlock(ctx, id)
}

// ExclusionsForDate returns the blocked minute ranges for providerID on day.
func (r *Registry) ExclusionsForDate(ctx context.Context, providerID string, day model.Day) ([]model.TimeRange, error) {
	ex, err := r.DailyExclusions(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	return Ranges(ex), nil
}

func (r *Registry) DailyExclusions(ctx context.Context, providerID string, day model.Day) ([]model.DailyExclusion, error) {
	bs, err := r.store.BlocksCovering(ctx, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	return ExclusionsFromBlocks(bs, providerID, day), nil
}

// ExpandRange projects a block onto every calendar day it covers.
func ExpandRange(b model.Block) []model.DailyExclusion {
	if b.EndDate.Before(b.StartDate) {
		return nil
	}
	var out []model.DailyExclusion
	for d := b.StartDate; !d.After(b.EndDate); d = d.AddDays(1) {
		out = append(out, exclusion(b, d))
	}
	return out
}

// ExclusionsFromBlocks filters blocks down to those hitting providerID on
// day, ordered by start minute.
func ExclusionsFromBlocks(bs []model.Block, providerID string, day model.Day) []model.DailyExclusion {
	var out []model.DailyExclusion
	for _, b := range bs {
		if !b.AppliesTo(providerID) || !b.Covers(day) {
			continue
		}
		out = append(out, exclusion(b, day))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

func Ranges(ex []model.DailyExclusion) []model.TimeRange {
	out := make([]model.TimeRange, 0, len(ex))
	for _, e := range ex {
		out = append(out, e.Range)
	}
	return out
}

func exclusion(b model.Block, day model.Day) model.DailyExclusion {
	return model.DailyExclusion{
		BlockID: b.ID,
		Day:     day,
		Range:   b.Range(),
		Kind:    b.Kind,
		Reason:  b.Reason,
	}
}
