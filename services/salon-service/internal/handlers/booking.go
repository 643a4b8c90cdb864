package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/services/salon-service/internal/availability"
	"github.com/hawosalon/salon/services/salon-service/internal/booking"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
)

type createBookingRequest struct {
	// UserID lets an admin book on behalf of a customer.
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id" validate:"required"`
	StaffID   string `json:"staff_id"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,clock"`
	Notes     string `json:"notes" validate:"max=500"`
}

type rescheduleRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,clock"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type bookingListResponse struct {
	Bookings []model.Booking `json:"bookings"`
}

type availabilityResponse struct {
	StaffID string              `json:"staff_id"`
	Date    string              `json:"date"`
	Slots   []availability.Slot `json:"slots"`
}

func (a *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !a.decode(w, r, &req) {
		return
	}
	caller := actor(r)
	userID := caller.UserID
	if req.UserID != "" && req.UserID != caller.UserID {
		if !caller.IsAdmin() {
			httpx.WriteError(w, http.StatusForbidden, httpx.CodeForbidden, "only admins may book for another user")
			return
		}
		userID = req.UserID
	}

	b, err := a.bookings.Create(r.Context(), booking.CreateInput{
		Actor:     caller,
		UserID:    userID,
		ServiceID: strings.TrimSpace(req.ServiceID),
		StaffID:   strings.TrimSpace(req.StaffID),
		Date:      req.Date,
		StartTime: req.StartTime,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (a *API) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryLimit(r)
	if !ok {
		badRequest(w, errors.New("limit must be a non-negative integer"))
		return
	}
	f := model.BookingFilter{
		UserID:  q.Get("user_id"),
		StaffID: q.Get("staff_id"),
		From:    q.Get("from"),
		To:      q.Get("to"),
		Limit:   limit,
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidStatus, "unknown status "+strconv.Quote(raw))
			return
		}
		f.Status = st
	}

	list, err := a.bookings.List(r.Context(), f, actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingListResponse{Bookings: list})
}

func (a *API) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := a.bookings.Get(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (a *API) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !a.decode(w, r, &req) {
		return
	}
	b, err := a.bookings.Reschedule(r.Context(), r.PathValue("id"), req.Date, req.StartTime, actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (a *API) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !a.decodeOptional(w, r, &req) {
		return
	}
	b, err := a.bookings.Cancel(r.Context(), r.PathValue("id"), req.Reason, actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (a *API) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	caller := actor(r)
	if caller.Role != auth.RoleStaff && !caller.IsAdmin() {
		httpx.WriteError(w, http.StatusForbidden, httpx.CodeForbidden, "staff or admin role required")
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	b, err := a.bookings.UpdateStatus(r.Context(), r.PathValue("id"), req.Status, req.Reason, caller)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (a *API) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		httpx.WriteFieldErrors(w, map[string]string{"date": "is required"})
		return
	}
	step := availability.DefaultStep
	if raw := q.Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 5 || n > 240 {
			httpx.WriteFieldErrors(w, map[string]string{"step": "must be minutes between 5 and 240"})
			return
		}
		step = time.Duration(n) * time.Minute
	}

	staffID := r.PathValue("id")
	slots, err := a.bookings.Availability(r.Context(), staffID, date, step)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{StaffID: staffID, Date: date, Slots: slots})
}
