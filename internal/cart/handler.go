// Package cart exposes the per-user cart. Cart rows are transient; checkout
// consumes and deletes them.
package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopflow/storefront/internal/auth"
	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store"
)

type Handler struct {
	store  store.Store
	logger *slog.Logger
}

func NewHandler(st store.Store, logger *slog.Logger) *Handler {
	return &Handler{store: st, logger: logger}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

type setItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// HandleSetItem adds a product to the cart or replaces its quantity.
func (h *Handler) HandleSetItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req setItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
		return
	}

	product, err := h.store.ProductByID(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	cart, err := h.store.EnsureCart(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.store.SetCartItem(r.Context(), cart.ID, req.ProductID, req.Quantity); err != nil {
		h.logger.Error("failed to set cart item", "error", err, "cart_id", cart.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cart, err = h.store.CartForUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to reload cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item set", "cart_id", cart.ID, "product_id", req.ProductID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, cart)
}

// HandleRemoveItem serves DELETE /cart/items/{productId}.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	cart, err := h.store.CartForUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if cart == nil {
		h.writeError(w, http.StatusNotFound, "cart is empty")
		return
	}

	if err := h.store.RemoveCartItem(r.Context(), cart.ID, productID); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to remove cart item", "error", err, "cart_id", cart.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cart, err = h.store.CartForUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to reload cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item removed", "cart_id", cart.ID, "product_id", productID)
	h.writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
