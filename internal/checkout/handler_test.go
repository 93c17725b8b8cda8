package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopflow/storefront/internal/auth"
	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store/storetest"
)

type capturingPublisher struct {
	keys   []string
	events []any
}

func (p *capturingPublisher) Publish(ctx context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *storetest.Store, *capturingPublisher) {
	t.Helper()
	st := storetest.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := &capturingPublisher{}
	return NewHandler(NewService(st, logger), publisher, logger), st, publisher
}

func checkoutRequest(userID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/orders/createOrder", strings.NewReader(body))
	if userID != "" {
		ctx := auth.ContextWithIdentity(req.Context(), auth.Identity{UserID: userID, Role: domain.RoleUser})
		req = req.WithContext(ctx)
	}
	return req
}

const validShippingBody = `{"address_line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"}`

func TestHandleCreateOrder(t *testing.T) {
	t.Run("creates the order and publishes the event", func(t *testing.T) {
		handler, st, publisher := newTestHandler(t)
		seedProduct(t, st, "prod-a", "Widget", "20.00", 3)
		seedCart(t, st, "user-1", map[string]int{"prod-a": 2})

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("user-1", validShippingBody))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Status != domain.OrderStatusProcessing {
			t.Errorf("status = %q, want %q", order.Status, domain.OrderStatusProcessing)
		}

		if len(publisher.events) != 1 {
			t.Fatalf("expected 1 published event, got %d", len(publisher.events))
		}
		event, ok := publisher.events[0].(domain.OrderPlacedEvent)
		if !ok {
			t.Fatalf("published event has type %T", publisher.events[0])
		}
		if event.OrderID != order.ID {
			t.Errorf("event OrderID = %q, want %q", event.OrderID, order.ID)
		}
		if publisher.keys[0] != order.ID {
			t.Errorf("event key = %q, want the order id", publisher.keys[0])
		}
	})

	t.Run("empty cart responds 200 with a message", func(t *testing.T) {
		handler, st, publisher := newTestHandler(t)
		seedCart(t, st, "user-1", nil)

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("user-1", validShippingBody))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["message"] != "Your cart is empty." {
			t.Errorf("message = %q", body["message"])
		}
		if len(publisher.events) != 0 {
			t.Errorf("expected no events, got %d", len(publisher.events))
		}
	})

	t.Run("missing shipping field responds 400", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("user-1", `{"address_line1": "1 Main St"}`))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("insufficient stock responds 400 with the shortfall", func(t *testing.T) {
		handler, st, _ := newTestHandler(t)
		seedProduct(t, st, "prod-a", "Widget", "20.00", 1)
		seedCart(t, st, "user-1", map[string]int{"prod-a": 5})

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("user-1", validShippingBody))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		want := `insufficient stock for "Widget". Available: 1, Requested: 5`
		if body["error"] != want {
			t.Errorf("error = %q, want %q", body["error"], want)
		}
	})

	t.Run("no identity responds 401", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("", validShippingBody))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed body responds 400", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		rec := httptest.NewRecorder()
		handler.HandleCreateOrder(rec, checkoutRequest("user-1", "{not json"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
