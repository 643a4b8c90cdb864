package handlers

import (
	"net/http"
	"strings"

	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/services/salon-service/internal/availability"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/policy"
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

type serviceRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	Description     string `json:"description" validate:"max=2000"`
	Price           string `json:"price" validate:"required,price"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=5,max=720"`
	Category        string `json:"category" validate:"max=60"`
	Active          *bool  `json:"active"`
}

type staffRequest struct {
	UserID         string            `json:"user_id"`
	Name           string            `json:"name" validate:"required,max=120"`
	Email          string            `json:"email" validate:"omitempty,email"`
	Phone          string            `json:"phone" validate:"max=40"`
	Specialization string            `json:"specialization" validate:"max=120"`
	Bio            string            `json:"bio" validate:"max=2000"`
	Active         *bool             `json:"active"`
	WorkingHours   model.WeeklyHours `json:"working_hours"`
	DaysOff        []string          `json:"days_off" validate:"dive,datetime=2006-01-02"`
}

type serviceListResponse struct {
	Services []model.Service `json:"services"`
}

type staffListResponse struct {
	Staff []model.Staff `json:"staff"`
}

// includeInactive honours ?include_inactive=true for admins only.
func includeInactive(r *http.Request) bool {
	if r.URL.Query().Get("include_inactive") != "true" {
		return false
	}
	return policy.RequireAdmin(actor(r)) == nil
}

func (a *API) ListServices(w http.ResponseWriter, r *http.Request) {
	list, err := a.catalog.ListServices(r.Context(), includeInactive(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if list == nil {
		list = []model.Service{}
	}
	httpx.WriteJSON(w, http.StatusOK, serviceListResponse{Services: list})
}

func (a *API) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := a.catalog.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if !svc.Active && policy.RequireAdmin(actor(r)) != nil {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "service not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (a *API) CreateService(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req serviceRequest
	if !a.decode(w, r, &req) {
		return
	}
	svc := model.Service{Active: true}
	req.apply(&svc)
	if err := a.catalog.CreateService(r.Context(), &svc); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	a.logger.InfoContext(r.Context(), "service created", "service_id", svc.ID, "name", svc.Name)
	httpx.WriteJSON(w, http.StatusCreated, svc)
}

func (a *API) UpdateService(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req serviceRequest
	if !a.decode(w, r, &req) {
		return
	}
	svc, err := a.catalog.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	req.apply(&svc)
	if err := a.catalog.UpdateService(r.Context(), &svc); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

// DeleteService deactivates the service. Bookings keep referencing it, so
// the row stays.
func (a *API) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	svc, err := a.catalog.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if svc.Active {
		svc.Active = false
		if err := a.catalog.UpdateService(r.Context(), &svc); err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		a.logger.InfoContext(r.Context(), "service deactivated", "service_id", svc.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req serviceRequest) apply(svc *model.Service) {
	svc.Name = strings.TrimSpace(req.Name)
	svc.Description = strings.TrimSpace(req.Description)
	svc.Price = req.Price
	svc.DurationMinutes = req.DurationMinutes
	svc.Category = strings.TrimSpace(req.Category)
	if req.Active != nil {
		svc.Active = *req.Active
	}
}

func (a *API) ListStaff(w http.ResponseWriter, r *http.Request) {
	list, err := a.catalog.ListStaff(r.Context(), includeInactive(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if list == nil {
		list = []model.Staff{}
	}
	httpx.WriteJSON(w, http.StatusOK, staffListResponse{Staff: list})
}

func (a *API) GetStaff(w http.ResponseWriter, r *http.Request) {
	st, err := a.catalog.GetStaff(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if !st.Active && policy.RequireAdmin(actor(r)) != nil {
		httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "staff member not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (a *API) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req staffRequest
	if !a.decode(w, r, &req) {
		return
	}
	if fields := validateHours(req.WorkingHours); len(fields) > 0 {
		httpx.WriteFieldErrors(w, fields)
		return
	}
	st := model.Staff{Active: true}
	req.apply(&st)
	if err := a.catalog.CreateStaff(r.Context(), &st); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	a.logger.InfoContext(r.Context(), "staff created", "staff_id", st.ID, "name", st.Name)
	httpx.WriteJSON(w, http.StatusCreated, st)
}

func (a *API) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req staffRequest
	if !a.decode(w, r, &req) {
		return
	}
	if fields := validateHours(req.WorkingHours); len(fields) > 0 {
		httpx.WriteFieldErrors(w, fields)
		return
	}
	st, err := a.catalog.GetStaff(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	req.apply(&st)
	if err := a.catalog.UpdateStaff(r.Context(), &st); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

// DeleteStaff deactivates the staff member: no new bookings or
// availability, existing bookings untouched.
func (a *API) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := policy.RequireAdmin(actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	st, err := a.catalog.GetStaff(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if st.Active {
		st.Active = false
		if err := a.catalog.UpdateStaff(r.Context(), &st); err != nil {
			writeError(w, r, a.logger, err)
			return
		}
		a.logger.InfoContext(r.Context(), "staff deactivated", "staff_id", st.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req staffRequest) apply(st *model.Staff) {
	st.UserID = strings.TrimSpace(req.UserID)
	st.Name = strings.TrimSpace(req.Name)
	st.Email = strings.ToLower(strings.TrimSpace(req.Email))
	st.Phone = strings.TrimSpace(req.Phone)
	st.Specialization = strings.TrimSpace(req.Specialization)
	st.Bio = strings.TrimSpace(req.Bio)
	st.WorkingHours = req.WorkingHours
	st.DaysOff = req.DaysOff
	if req.Active != nil {
		st.Active = *req.Active
	}
}

// validateHours checks weekday keys, that each worked day opens before it
// closes, and that breaks fall inside the day.
func validateHours(hours model.WeeklyHours) map[string]string {
	fields := map[string]string{}
	for day, sched := range hours {
		key := "working_hours." + day
		if !weekdays[day] {
			fields[key] = "must be a lowercase weekday name"
			continue
		}
		if !sched.Working {
			continue
		}
		start, errS := availability.ParseClock(sched.Start)
		end, errE := availability.ParseClock(sched.End)
		if errS != nil || errE != nil || start >= end {
			fields[key] = "start and end must be HH:MM with start before end"
			continue
		}
		for _, br := range sched.Breaks {
			bs, errS := availability.ParseClock(br.Start)
			be, errE := availability.ParseClock(br.End)
			if errS != nil || errE != nil || bs >= be || bs < start || be > end {
				fields[key+".breaks"] = "breaks must be HH:MM ranges inside the working day"
				break
			}
		}
	}
	return fields
}
