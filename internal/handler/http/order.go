package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/httputil"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/middleware"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/pagination"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(ledger Ledger, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		ledger: ledger,
		logger: logger,
	}
}

// --- Request DTOs ---

// CreateOrderRequest is the JSON request body for opening a purchase.
type CreateOrderRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// VerifyPaymentRequest is the JSON body of the payment verification callback.
type VerifyPaymentRequest struct {
	ProviderOrderID   string `json:"provider_order_id" validate:"required,max=64"`
	ProviderPaymentID string `json:"provider_payment_id" validate:"required,max=64"`
	Signature         string `json:"signature" validate:"required,max=256"`
}

// --- Handlers ---

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	intent, err := h.ledger.CreateIntent(r.Context(), middleware.UserIDFromContext(r.Context()), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: intent})
}

// VerifyPayment handles POST /api/v1/orders/verify
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.ledger.VerifyPayment(r.Context(), req.ProviderOrderID, req.ProviderPaymentID, req.Signature)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order.Redacted()})
}

// ListMyOrders handles GET /api/v1/orders/mine
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	orders, total, err := h.ledger.ListMyOrders(r.Context(), middleware.UserIDFromContext(r.Context()), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, params))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.ledger.GetOrder(r.Context(), actorFrom(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// Refund handles POST /api/v1/admin/orders/{id}/refund
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.ledger.Refund(r.Context(), actorFrom(r), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
