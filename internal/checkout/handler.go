package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopflow/storefront/internal/auth"
	"github.com/shopflow/storefront/internal/domain"
)

// Publisher emits order events. Satisfied by messaging.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	service  *Service
	producer Publisher
	logger   *slog.Logger
}

func NewHandler(service *Service, producer Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		producer: producer,
		logger:   logger,
	}
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var shipping domain.ShippingDetails
	if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), identity.UserID, shipping)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if order == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "Your cart is empty."})
		return
	}

	if h.producer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:     order.ID,
			UserID:      order.UserID,
			Items:       order.Items,
			TotalAmount: order.TotalAmount,
			Timestamp:   time.Now().UTC(),
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var insufficient *domain.InsufficientStockError

	switch {
	case errors.As(err, &validation), errors.As(err, &insufficient):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("checkout failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
