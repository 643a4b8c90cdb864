package handlers

import (
	"errors"
	"net/http"

	"github.com/hawosalon/salon/libs/auth"
	"github.com/hawosalon/salon/libs/httpx"
	"github.com/hawosalon/salon/services/salon-service/internal/model"
	"github.com/hawosalon/salon/services/salon-service/internal/reviews"
)

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// updateReviewRequest: absent fields stay unchanged. approved is honoured
// for admins only.
type updateReviewRequest struct {
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment  *string `json:"comment" validate:"omitempty,max=2000"`
	Approved *bool   `json:"approved"`
}

type reviewListResponse struct {
	Reviews []model.Review       `json:"reviews"`
	Summary *model.RatingSummary `json:"summary,omitempty"`
}

func (a *API) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !a.decode(w, r, &req) {
		return
	}
	rev, err := a.reviews.Create(r.Context(), reviews.CreateInput{
		BookingID: r.PathValue("id"),
		Rating:    req.Rating,
		Comment:   req.Comment,
	}, actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rev)
}

func (a *API) ApproveReview(w http.ResponseWriter, r *http.Request) {
	rev, err := a.reviews.Approve(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rev)
}

func (a *API) ServiceReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		badRequest(w, errors.New("limit must be a non-negative integer"))
		return
	}
	list, sum, err := a.reviews.ForService(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewListResponse{Reviews: list, Summary: &sum})
}

func (a *API) StaffReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		badRequest(w, errors.New("limit must be a non-negative integer"))
		return
	}
	list, err := a.reviews.ForStaff(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewListResponse{Reviews: list})
}

func (a *API) PendingReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		badRequest(w, errors.New("limit must be a non-negative integer"))
		return
	}
	list, err := a.reviews.Pending(r.Context(), actor(r), limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewListResponse{Reviews: list})
}

func (a *API) MyReviews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		badRequest(w, errors.New("limit must be a non-negative integer"))
		return
	}
	list, err := a.reviews.Mine(r.Context(), actor(r), limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reviewListResponse{Reviews: list})
}

// GetReview is public; the caller, when authenticated, may see their own
// pending review.
func (a *API) GetReview(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.ActorFromContext(r.Context())
	rev, err := a.reviews.Get(r.Context(), r.PathValue("id"), caller)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rev)
}

func (a *API) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req updateReviewRequest
	if !a.decode(w, r, &req) {
		return
	}
	rev, err := a.reviews.Update(r.Context(), r.PathValue("id"), reviews.UpdateInput{
		Rating:   req.Rating,
		Comment:  req.Comment,
		Approved: req.Approved,
	}, actor(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rev)
}

func (a *API) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := a.reviews.Delete(r.Context(), r.PathValue("id"), actor(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
