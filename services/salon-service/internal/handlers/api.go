// Package handlers exposes the salon service over JSON/HTTP.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/services/salon-service/internal/booking"
	"github.com/hawosalon/salon/services/salon-service/internal/reviews"
	"github.com/hawosalon/salon/services/salon-service/internal/store"
)

const maxListLimit = 200

type API struct {
	bookings *booking.Manager
	reviews  *reviews.Manager
	catalog  store.Catalog
	logger   *slog.Logger
	validate *requestValidator
}

func NewAPI(bookings *booking.Manager, rev *reviews.Manager, catalog store.Catalog, logger *slog.Logger) *API {
	return &API{
		bookings: bookings,
		reviews:  rev,
		catalog:  catalog,
		logger:   logger,
		validate: newValidator(),
	}
}

// Register mounts every route on mux. Authentication is expected upstream
// (auth.Authenticate); routes needing a caller are wrapped in RequireActor.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/services", a.ListServices)
	mux.HandleFunc("GET /api/v1/services/{id}", a.GetService)
	mux.HandleFunc("POST /api/v1/services", auth.RequireActor(a.CreateService))
	mux.HandleFunc("PUT /api/v1/services/{id}", auth.RequireActor(a.UpdateService))
	mux.HandleFunc("DELETE /api/v1/services/{id}", auth.RequireActor(a.DeleteService))
	mux.HandleFunc("GET /api/v1/services/{id}/reviews", a.ServiceReviews)

	mux.HandleFunc("GET /api/v1/staff", a.ListStaff)
	mux.HandleFunc("GET /api/v1/staff/{id}", a.GetStaff)
	mux.HandleFunc("POST /api/v1/staff", auth.RequireActor(a.CreateStaff))
	mux.HandleFunc("PUT /api/v1/staff/{id}", auth.RequireActor(a.UpdateStaff))
	mux.HandleFunc("DELETE /api/v1/staff/{id}", auth.RequireActor(a.DeleteStaff))
	mux.HandleFunc("GET /api/v1/staff/{id}/availability", a.Availability)
	mux.HandleFunc("GET /api/v1/staff/{id}/reviews", a.StaffReviews)

	mux.HandleFunc("POST /api/v1/bookings", auth.RequireActor(a.CreateBooking))
	mux.HandleFunc("GET /api/v1/bookings", auth.RequireActor(a.ListBookings))
	mux.HandleFunc("GET /api/v1/bookings/{id}", auth.RequireActor(a.GetBooking))
	mux.HandleFunc("PUT /api/v1/bookings/{id}/reschedule", auth.RequireActor(a.RescheduleBooking))
	mux.HandleFunc("PUT /api/v1/bookings/{id}/cancel", auth.RequireActor(a.CancelBooking))
	mux.HandleFunc("PUT /api/v1/bookings/{id}/status", auth.RequireActor(a.UpdateBookingStatus))
	mux.HandleFunc("POST /api/v1/bookings/{id}/reviews", auth.RequireActor(a.CreateReview))

	mux.HandleFunc("GET /api/v1/reviews/pending", auth.RequireActor(a.PendingReviews))
	mux.HandleFunc("GET /api/v1/reviews/my-reviews", auth.RequireActor(a.MyReviews))
	mux.HandleFunc("GET /api/v1/reviews/{id}", a.GetReview)
	mux.HandleFunc("PUT /api/v1/reviews/{id}", auth.RequireActor(a.UpdateReview))
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", auth.RequireActor(a.DeleteReview))
	mux.HandleFunc("PUT /api/v1/reviews/{id}/approve", auth.RequireActor(a.ApproveReview))
}

// actor is only called behind RequireActor.
func actor(r *http.Request) auth.Actor {
	a, _ := auth.ActorFromContext(r.Context())
	return a
}

// decode reads and validates a JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		badRequest(w, err)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, r, a.logger, err)
		return false
	}
	return true
}

// decodeOptional accepts an absent body and leaves dst untouched.
func (a *API) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		if err := a.validate.Struct(dst); err != nil {
			writeError(w, r, a.logger, err)
			return false
		}
		return true
	}
	return a.decode(w, r, dst)
}

func queryLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
