package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

// CatalogHandler lets administrators maintain providers and services.
type CatalogHandler struct {
	coord  *booking.Coordinator
	logger *slog.Logger
}

func NewCatalogHandler(coord *booking.Coordinator, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{coord: coord, logger: logger}
}

type providerRequest struct {
	Name            string   `json:"name"`
	WorkingDays     []string `json:"working_days"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	BreakMinutes    int      `json:"break_minutes"`
	SlotStepMinutes int      `json:"slot_step_minutes"`
	Active          *bool    `json:"active"`
}

type serviceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Active          *bool  `json:"active"`
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// PutProvider serves PUT /api/v1/providers/{id}.
func (h *CatalogHandler) PutProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := model.Provider{
		ID:              r.PathValue("id"),
		Name:            req.Name,
		BreakMinutes:    req.BreakMinutes,
		SlotStepMinutes: req.SlotStepMinutes,
		Active:          req.Active == nil || *req.Active,
	}
	for _, name := range req.WorkingDays {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			writeMessage(w, http.StatusBadRequest, "unknown weekday "+name)
			return
		}
		p.WorkingDays = append(p.WorkingDays, wd)
	}
	var err error
	if p.StartMinute, err = model.ParseClock(req.StartTime); err != nil {
		writeMessage(w, http.StatusBadRequest, "start_time must be HH:MM")
		return
	}
	if p.EndMinute, err = model.ParseClock(req.EndTime); err != nil {
		writeMessage(w, http.StatusBadRequest, "end_time must be HH:MM")
		return
	}

	saved, err := h.coord.SaveProvider(r.Context(), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider": saved})
}

// PutService serves PUT /api/v1/services/{id}.
func (h *CatalogHandler) PutService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := h.coord.SaveService(r.Context(), model.Service{
		ID:              r.PathValue("id"),
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Active:          req.Active == nil || *req.Active,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service": saved})
}
