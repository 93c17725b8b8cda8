// Package worker turns order lifecycle events into customer emails. Stock and
// status are settled transactionally by the API before the event is
// published, so the worker only notifies.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopflow/storefront/internal/domain"
)

type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

// HandleOrderPlaced consumes order.placed events.
func (h *NotificationHandler) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "user_id", event.UserID)

	body := map[string]string{
		"to":      event.UserID,
		"subject": "Order Confirmation: " + event.OrderID,
		"body": fmt.Sprintf("Your order %s with %d items totalling %s is being processed.",
			event.OrderID, len(event.Items), event.TotalAmount.StringFixed(2)),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("confirmation email sent", "order_id", event.OrderID)
	return nil
}

// HandleOrderCancelled consumes order.cancelled events.
func (h *NotificationHandler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	h.logger.Info("processing order cancelled event", "order_id", event.OrderID, "user_id", event.UserID)

	body := map[string]string{
		"to":      event.UserID,
		"subject": "Order Cancelled: " + event.OrderID,
		"body": fmt.Sprintf("Your order %s has been cancelled and its %d items returned to stock.",
			event.OrderID, len(event.Items)),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}

	h.logger.Info("cancellation email sent", "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
