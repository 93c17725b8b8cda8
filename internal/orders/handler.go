package orders

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

// HandleListMine serves GET /orders/myOrder.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// HandleGetMine serves GET /orders/myOrder/{orderId}.
func (h *Handler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), orderID, identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// HandleList serves GET /orders/getOrders (admin).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

// HandleGet serves GET /orders/{orderId} (admin).
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), orderID, "")
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus serves PATCH /orders/{orderId}/status (admin).
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if h.producer != nil && order.Status == domain.OrderStatusCancelled {
		event := domain.OrderCancelledEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			Items:     order.Items,
			Timestamp: time.Now().UTC(),
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order cancelled event", "error", err, "order_id", order.ID)
		}
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var notFound *domain.NotFoundError
	var invalidStatus *domain.InvalidStatusError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidStatus), errors.As(err, &validation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("order operation failed", "error", err)
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
