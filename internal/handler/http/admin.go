package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/httputil"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/pagination"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/validator"
)

// AdminHandler handles the admin console endpoints.
type AdminHandler struct {
	sales   Sales
	reviews Reviews
	ratings Ratings
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(sales Sales, reviews Reviews, ratings Ratings, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		sales:   sales,
		reviews: reviews,
		ratings: ratings,
		logger:  logger,
	}
}

// SetApprovalRequest is the JSON request body for moderating a review.
type SetApprovalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// TransactionsResponse is a page of orders with the revenue of the paid
// orders matching the filter.
type TransactionsResponse struct {
	Transactions pagination.Result[domain.Order] `json:"transactions"`
	TotalRevenue int64                           `json:"total_revenue"`
}

// Dashboard handles GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sales.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// Transactions handles GET /api/v1/admin/transactions
func (h *AdminHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.TransactionFilter{Page: params.Page, PerPage: params.PerPage}

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, false)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("from must be a date (YYYY-MM-DD) or RFC 3339 timestamp"), h.logger)
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, true)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("to must be a date (YYYY-MM-DD) or RFC 3339 timestamp"), h.logger)
			return
		}
		filter.To = &to
	}

	page, err := h.sales.Transactions(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: TransactionsResponse{
		Transactions: pagination.NewResult(page.Orders, page.TotalCount, params),
		TotalRevenue: page.TotalRevenue,
	}})
}

// SetReviewApproval handles PATCH /api/v1/admin/reviews/{id}/approval
func (h *AdminHandler) SetReviewApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SetApprovalRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.SetApproval(r.Context(), actorFrom(r), id.String(), *req.Approved)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// RecomputeRating handles POST /api/v1/admin/products/{productId}/rating/recompute
func (h *AdminHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	agg, err := h.ratings.Recompute(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: agg})
}

// parseDate accepts an RFC 3339 timestamp or a plain date. A plain date used
// as an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
