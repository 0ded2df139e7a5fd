package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/reserva/libs/httpx"
)

// Routes groups the handlers served under /api/v1.
type Routes struct {
	Booking *BookingHandler
	Blocks  *BlockHandler
	Catalog *CatalogHandler
	// BookLimit throttles the public availability and create endpoints; nil disables it.
	BookLimit httpx.Middleware
}

func (rt Routes) Register(mux *http.ServeMux) {
	public := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, rt.BookLimit)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, RequireRole())
	}

	mux.Handle("GET /api/v1/availability", public(rt.Booking.Availability))
	mux.Handle("POST /api/v1/reservations", public(rt.Booking.Create))
	mux.HandleFunc("GET /api/v1/reservations", rt.Booking.List)
	mux.HandleFunc("GET /api/v1/reservations/{id}", rt.Booking.Get)
	mux.HandleFunc("PATCH /api/v1/reservations/{id}", rt.Booking.Patch)

	mux.Handle("POST /api/v1/blocks", admin(rt.Blocks.Create))
	mux.Handle("DELETE /api/v1/blocks/{id}", admin(rt.Blocks.Delete))
	mux.HandleFunc("GET /api/v1/blocks/exclusions", rt.Blocks.Exclusions)

	mux.Handle("PUT /api/v1/providers/{id}", admin(rt.Catalog.PutProvider))
	mux.Handle("PUT /api/v1/services/{id}", admin(rt.Catalog.PutService))
}
