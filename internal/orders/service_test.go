package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store/storetest"
)

func newTestService(t *testing.T) (*Service, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	return NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func seedOrder(t *testing.T, st *storetest.Store, userID string, items []domain.OrderItem) *domain.Order {
	t.Helper()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	order := &domain.Order{
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Status:      domain.OrderStatusProcessing,
	}
	if err := st.InsertOrder(context.Background(), order); err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order
}

func seedProduct(t *testing.T, st *storetest.Store, id string, stock int) {
	t.Helper()
	err := st.CreateProduct(context.Background(), &domain.Product{
		ID:            id,
		Title:         "Product " + id,
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
}

func stockOf(t *testing.T, st *storetest.Store, productID string) int {
	t.Helper()
	product, err := st.ProductByID(context.Background(), productID)
	if err != nil || product == nil {
		t.Fatalf("failed to read product %s: %v", productID, err)
	}
	return product.StockQuantity
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling restores stock for every item", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", 3)
		seedProduct(t, st, "prod-b", 0)
		order := seedOrder(t, st, "user-1", []domain.OrderItem{
			{ProductID: "prod-a", Title: "A", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
			{ProductID: "prod-b", Title: "B", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("10.00")},
		})

		updated, err := service.SetStatus(ctx, order.ID, "CANCELLED")
		if err != nil {
			t.Fatalf("SetStatus returned error: %v", err)
		}
		if updated.Status != domain.OrderStatusCancelled {
			t.Errorf("status = %q, want %q", updated.Status, domain.OrderStatusCancelled)
		}

		if got := stockOf(t, st, "prod-a"); got != 5 {
			t.Errorf("prod-a stock = %d, want 5", got)
		}
		if got := stockOf(t, st, "prod-b"); got != 1 {
			t.Errorf("prod-b stock = %d, want 1", got)
		}
	})

	t.Run("cancelling twice restores stock only once", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", 0)
		order := seedOrder(t, st, "user-1", []domain.OrderItem{
			{ProductID: "prod-a", Title: "A", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
		})

		if _, err := service.SetStatus(ctx, order.ID, "CANCELLED"); err != nil {
			t.Fatalf("first cancel failed: %v", err)
		}
		if _, err := service.SetStatus(ctx, order.ID, "CANCELLED"); err != nil {
			t.Fatalf("second cancel failed: %v", err)
		}

		if got := stockOf(t, st, "prod-a"); got != 2 {
			t.Errorf("stock = %d, want 2 after double cancel", got)
		}
	})

	t.Run("non-cancel transitions leave stock alone", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", 4)
		order := seedOrder(t, st, "user-1", []domain.OrderItem{
			{ProductID: "prod-a", Title: "A", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
		})

		updated, err := service.SetStatus(ctx, order.ID, "SHIPPED")
		if err != nil {
			t.Fatalf("SetStatus returned error: %v", err)
		}
		if updated.Status != domain.OrderStatusShipped {
			t.Errorf("status = %q, want %q", updated.Status, domain.OrderStatusShipped)
		}
		if got := stockOf(t, st, "prod-a"); got != 4 {
			t.Errorf("stock = %d, want 4", got)
		}
	})

	t.Run("status matching is case-insensitive", func(t *testing.T) {
		service, st := newTestService(t)
		order := seedOrder(t, st, "user-1", nil)

		updated, err := service.SetStatus(ctx, order.ID, "shipped")
		if err != nil {
			t.Fatalf("SetStatus returned error: %v", err)
		}
		if updated.Status != domain.OrderStatusShipped {
			t.Errorf("status = %q, want %q", updated.Status, domain.OrderStatusShipped)
		}
	})

	t.Run("unknown status is rejected before touching the store", func(t *testing.T) {
		service, st := newTestService(t)

		_, err := service.SetStatus(ctx, "order-1", "DELIVERED")
		var invalid *domain.InvalidStatusError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if len(st.Calls) != 0 {
			t.Errorf("store was accessed: %v", st.Calls)
		}
	})

	t.Run("missing order reports not found", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.SetStatus(ctx, "no-such-order", "SHIPPED")
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		if notFound.Resource != "order" {
			t.Errorf("Resource = %q, want %q", notFound.Resource, "order")
		}
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can read their order", func(t *testing.T) {
		service, st := newTestService(t)
		order := seedOrder(t, st, "user-1", nil)

		got, err := service.Get(ctx, order.ID, "user-1")
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if got.ID != order.ID {
			t.Errorf("got order %s, want %s", got.ID, order.ID)
		}
	})

	t.Run("another user's order reads as not found", func(t *testing.T) {
		service, st := newTestService(t)
		order := seedOrder(t, st, "user-1", nil)

		_, err := service.Get(ctx, order.ID, "user-2")
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("empty owner skips the ownership check", func(t *testing.T) {
		service, st := newTestService(t)
		order := seedOrder(t, st, "user-1", nil)

		got, err := service.Get(ctx, order.ID, "")
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if got.UserID != "user-1" {
			t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
		}
	})
}
