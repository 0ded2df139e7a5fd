package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/reserva/libs/httpx"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

type BlockHandler struct {
	registry *blocks.Registry
	logger   *slog.Logger
}

func NewBlockHandler(registry *blocks.Registry, logger *slog.Logger) *BlockHandler {
	return &BlockHandler{registry: registry, logger: logger}
}

type createBlockRequest struct {
	ProviderID string `json:"provider_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
}

type exclusionView struct {
	BlockID   string          `json:"block_id"`
	Date      model.Day       `json:"date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Kind      model.BlockKind `json:"kind"`
	Reason    string          `json:"reason,omitempty"`
}

// Create serves POST /api/v1/blocks. Omitting both times blocks whole days.
func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := blocks.BlockInput{
		ProviderID: req.ProviderID,
		Kind:       model.BlockKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Reason:     req.Reason,
	}
	var err error
	if in.StartDate, err = model.ParseDay(strings.TrimSpace(req.StartDate)); err != nil {
		writeMessage(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	endDate := strings.TrimSpace(req.EndDate)
	if endDate == "" {
		in.EndDate = in.StartDate
	} else if in.EndDate, err = model.ParseDay(endDate); err != nil {
		writeMessage(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	startTime, endTime := strings.TrimSpace(req.StartTime), strings.TrimSpace(req.EndTime)
	switch {
	case startTime == "" && endTime == "":
	case startTime == "" || endTime == "":
		writeMessage(w, http.StatusBadRequest, "start_time and end_time go together")
		return
	default:
		start, err := model.ParseClock(startTime)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "start_time must be HH:MM")
			return
		}
		end, err := model.ParseClock(endTime)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "end_time must be HH:MM")
			return
		}
		in.Hours = &model.TimeRange{Start: start, End: end}
	}

	b, err := h.registry.CreateBlock(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	metrics.BlocksChanged.WithLabelValues("create").Inc()
	h.logger.Info("block created",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"block_id", b.ID,
		"provider_id", b.ProviderID,
		"start_date", b.StartDate.String(),
		"end_date", b.EndDate.String(),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"block": b, "days": exclusionViews(blocks.ExpandRange(b))})
}

func (h *BlockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.registry.DeleteBlock(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	metrics.BlocksChanged.WithLabelValues("delete").Inc()
	h.logger.Info("block deleted", "request_id", httpx.RequestIDFromContext(r.Context()), "block_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Exclusions serves GET /api/v1/blocks/exclusions?provider_id&date.
func (h *BlockHandler) Exclusions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := model.ParseDay(strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	ex, err := h.registry.DailyExclusions(r.Context(), strings.TrimSpace(q.Get("provider_id")), day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exclusions": exclusionViews(ex)})
}

func exclusionViews(ex []model.DailyExclusion) []exclusionView {
	items := make([]exclusionView, 0, len(ex))
	for _, e := range ex {
		items = append(items, exclusionView{
			BlockID:   e.BlockID,
			Date:      e.Day,
			StartTime: model.FormatClock(e.Range.Start),
			EndTime:   model.FormatClock(e.Range.End),
			Kind:      e.Kind,
			Reason:    e.Reason,
		})
	}
	return items
}
