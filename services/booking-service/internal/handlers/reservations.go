package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
)

type BookingHandler struct {
	coord  *booking.Coordinator
	logger *slog.Logger
}

func NewBookingHandler(coord *booking.Coordinator, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{coord: coord, logger: logger}
}

type createReservationRequest struct {
	ClientID      string   `json:"client_id"`
	ProviderID    string   `json:"provider_id"`
	ServiceID     string   `json:"service_id"`
	ServiceIDs    []string `json:"service_ids"`
	Date          string   `json:"date"`
	StartTime     string   `json:"start_time"`
	ClientNotes   string   `json:"client_notes"`
	InternalNotes string   `json:"internal_notes"`
}

type patchReservationRequest struct {
	State  string `json:"state"`
	Reason string `json:"reason"`
}

type reservationView struct {
	model.Reservation
	StartTime  string        `json:"start_time"`
	EndTime    string        `json:"end_time"`
	NextStates []model.State `json:"next_states"`
}

func viewOf(r model.Reservation) reservationView {
	return reservationView{
		Reservation: r,
		StartTime:   model.FormatClock(r.StartMinute),
		EndTime:     model.FormatClock(r.EndMinute),
		NextStates:  lifecycle.Allowed(r.State),
	}
}

type reservationResponse struct {
	Reservation reservationView `json:"reservation"`
}

type availabilityResponse struct {
	ProviderID string              `json:"provider_id"`
	Date       model.Day           `json:"date"`
	Slots      []availability.Slot `json:"slots"`
}

// Availability serves GET /api/v1/availability?provider_id&date&service_id[&service_ids].
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providerID := strings.TrimSpace(q.Get("provider_id"))
	if providerID == "" {
		writeMessage(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	day, err := model.ParseDay(strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	serviceIDs := append(splitList(q.Get("service_id")), splitList(q.Get("service_ids"))...)

	slots, err := h.coord.Availability(r.Context(), providerID, day, serviceIDs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{ProviderID: providerID, Date: day, Slots: slots})
}

// Create serves POST /api/v1/reservations. An Idempotency-Key header makes
// retries return the reservation created by the first attempt.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, err := model.ParseDay(strings.TrimSpace(req.Date))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "start_time must be HH:MM")
		return
	}

	services := req.ServiceIDs
	if id := strings.TrimSpace(req.ServiceID); id != "" {
		services = append([]string{id}, without(services, id)...)
	}
	res, err := h.coord.CreateReservation(r.Context(), booking.Request{
		ClientID:       req.ClientID,
		ProviderID:     req.ProviderID,
		ServiceIDs:     services,
		Day:            day,
		StartMinute:    start,
		ClientNotes:    req.ClientNotes,
		InternalNotes:  req.InternalNotes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservationResponse{Reservation: viewOf(res)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.coord.GetReservation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse{Reservation: viewOf(res)})
}

// Patch serves PATCH /api/v1/reservations/{id} with {state, reason?}.
func (h *BookingHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	to := model.State(strings.ToLower(strings.TrimSpace(req.State)))
	if !to.Valid() {
		writeMessage(w, http.StatusBadRequest, "unknown state")
		return
	}
	res, err := h.coord.Transition(r.Context(), r.PathValue("id"), to, req.Reason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse{Reservation: viewOf(res)})
}

// List serves GET /api/v1/reservations?provider_id&date.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := model.ParseDay(strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	list, err := h.coord.ListReservations(r.Context(), q.Get("provider_id"), day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]reservationView, 0, len(list))
	for _, res := range list {
		items = append(items, viewOf(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": items})
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) != drop {
			out = append(out, id)
		}
	}
	return out
}
