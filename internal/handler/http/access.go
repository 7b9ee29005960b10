package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/service"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/httputil"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/middleware"
)

// AccessHandler handles entitlement and download endpoints.
type AccessHandler struct {
	access Access
	logger *slog.Logger
}

// NewAccessHandler creates a new access HTTP handler.
func NewAccessHandler(access Access, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		access: access,
		logger: logger,
	}
}

// EntitlementResponse tells the caller whether they own the product.
type EntitlementResponse struct {
	ProductID string `json:"product_id"`
	Entitled  bool   `json:"entitled"`
}

// DownloadLinksResponse lists the download handles of a product.
type DownloadLinksResponse struct {
	ProductID string                 `json:"product_id"`
	Files     []service.DownloadLink `json:"files"`
}

// Entitlement handles GET /api/v1/products/{productId}/entitlement
func (h *AccessHandler) Entitlement(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	entitled, err := h.access.Entitled(r.Context(), middleware.UserIDFromContext(r.Context()), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: EntitlementResponse{ProductID: productID.String(), Entitled: entitled},
	})
}

// DownloadLinks handles GET /api/v1/products/{productId}/files
func (h *AccessHandler) DownloadLinks(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	links, err := h.access.DownloadLinks(r.Context(), middleware.UserIDFromContext(r.Context()), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: DownloadLinksResponse{ProductID: productID.String(), Files: links},
	})
}

// DownloadLink handles GET /api/v1/products/{productId}/files/{fileType}
func (h *AccessHandler) DownloadLink(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	link, err := h.access.DownloadLink(r.Context(), middleware.UserIDFromContext(r.Context()), productID.String(), chi.URLParam(r, "fileType"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: link})
}
