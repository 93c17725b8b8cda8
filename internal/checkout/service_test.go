package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store/storetest"
)

var testShipping = domain.ShippingDetails{
	AddressLine1: "1 Main St",
	City:         "Springfield",
	PostalCode:   "12345",
	Country:      "US",
}

func newTestService(t *testing.T) (*Service, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	return NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func seedProduct(t *testing.T, st *storetest.Store, id, title, price string, stock int) {
	t.Helper()
	err := st.CreateProduct(context.Background(), &domain.Product{
		ID:            id,
		Title:         title,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
}

func seedCart(t *testing.T, st *storetest.Store, userID string, lines map[string]int) string {
	t.Helper()
	ctx := context.Background()
	cart, err := st.EnsureCart(ctx, userID)
	if err != nil {
		t.Fatalf("failed to create cart: %v", err)
	}
	for productID, quantity := range lines {
		if err := st.SetCartItem(ctx, cart.ID, productID, quantity); err != nil {
			t.Fatalf("failed to add cart item: %v", err)
		}
	}
	return cart.ID
}

func stockOf(t *testing.T, st *storetest.Store, productID string) int {
	t.Helper()
	product, err := st.ProductByID(context.Background(), productID)
	if err != nil || product == nil {
		t.Fatalf("failed to read product %s: %v", productID, err)
	}
	return product.StockQuantity
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates order, decrements stock and clears cart", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", "Widget", "59.99", 5)
		seedProduct(t, st, "prod-b", "Gadget", "39.50", 3)
		seedCart(t, st, "user-1", map[string]int{"prod-a": 2, "prod-b": 1})

		order, err := service.PlaceOrder(ctx, "user-1", testShipping)
		if err != nil {
			t.Fatalf("PlaceOrder returned error: %v", err)
		}
		if order == nil {
			t.Fatal("expected an order")
		}

		if order.Status != domain.OrderStatusProcessing {
			t.Errorf("status = %q, want %q", order.Status, domain.OrderStatusProcessing)
		}
		if want := decimal.RequireFromString("159.48"); !order.TotalAmount.Equal(want) {
			t.Errorf("total = %s, want %s", order.TotalAmount, want)
		}
		if len(order.Items) != 2 {
			t.Fatalf("expected 2 order items, got %d", len(order.Items))
		}

		// The total equals the exact sum of the snapshotted line totals.
		sum := decimal.Zero
		for _, item := range order.Items {
			sum = sum.Add(item.Subtotal())
		}
		if !sum.Equal(order.TotalAmount) {
			t.Errorf("sum of items = %s, total = %s", sum, order.TotalAmount)
		}

		if got := stockOf(t, st, "prod-a"); got != 3 {
			t.Errorf("prod-a stock = %d, want 3", got)
		}
		if got := stockOf(t, st, "prod-b"); got != 2 {
			t.Errorf("prod-b stock = %d, want 2", got)
		}

		cart, err := st.CartForUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to reload cart: %v", err)
		}
		if len(cart.Items) != 0 {
			t.Errorf("cart has %d items after checkout, want 0", len(cart.Items))
		}
	})

	t.Run("price is snapshotted from the current catalog row", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", "Widget", "10.00", 5)
		seedCart(t, st, "user-1", map[string]int{"prod-a": 1})

		product, _ := st.ProductByID(ctx, "prod-a")
		product.Price = decimal.RequireFromString("12.50")
		if err := st.UpdateProduct(ctx, product); err != nil {
			t.Fatalf("failed to reprice product: %v", err)
		}

		order, err := service.PlaceOrder(ctx, "user-1", testShipping)
		if err != nil {
			t.Fatalf("PlaceOrder returned error: %v", err)
		}
		if want := decimal.RequireFromString("12.50"); !order.Items[0].PriceAtPurchase.Equal(want) {
			t.Errorf("price_at_purchase = %s, want %s", order.Items[0].PriceAtPurchase, want)
		}
	})

	t.Run("empty cart is a no-op", func(t *testing.T) {
		service, st := newTestService(t)
		seedCart(t, st, "user-1", nil)

		order, err := service.PlaceOrder(ctx, "user-1", testShipping)
		if err != nil {
			t.Fatalf("PlaceOrder returned error: %v", err)
		}
		if order != nil {
			t.Fatalf("expected no order, got %+v", order)
		}

		orders, _ := st.ListOrders(ctx)
		if len(orders) != 0 {
			t.Errorf("expected 0 orders, got %d", len(orders))
		}
	})

	t.Run("missing shipping field fails before any store access", func(t *testing.T) {
		service, st := newTestService(t)

		shipping := testShipping
		shipping.City = ""

		_, err := service.PlaceOrder(ctx, "user-1", shipping)
		var validation *domain.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if validation.Field != "city" {
			t.Errorf("Field = %q, want %q", validation.Field, "city")
		}
		if len(st.Calls) != 0 {
			t.Errorf("store was accessed: %v", st.Calls)
		}
	})

	t.Run("insufficient stock names the shortfall and has no side effects", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-c", "Doohickey", "5.00", 1)
		seedCart(t, st, "user-1", map[string]int{"prod-c": 5})

		_, err := service.PlaceOrder(ctx, "user-1", testShipping)
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if insufficient.Available != 1 || insufficient.Requested != 5 {
			t.Errorf("got Available=%d Requested=%d, want 1 and 5", insufficient.Available, insufficient.Requested)
		}
		if insufficient.Title != "Doohickey" {
			t.Errorf("Title = %q, want %q", insufficient.Title, "Doohickey")
		}

		if got := stockOf(t, st, "prod-c"); got != 1 {
			t.Errorf("stock = %d, want 1", got)
		}
		orders, _ := st.ListOrders(ctx)
		if len(orders) != 0 {
			t.Errorf("expected 0 orders, got %d", len(orders))
		}
		cart, _ := st.CartForUser(ctx, "user-1")
		if len(cart.Items) != 1 {
			t.Errorf("cart was mutated: %+v", cart.Items)
		}
	})

	t.Run("failure inside the transaction rolls everything back", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-a", "Widget", "59.99", 5)
		seedCart(t, st, "user-1", map[string]int{"prod-a": 2})

		st.FailOn["ClearCart"] = true

		_, err := service.PlaceOrder(ctx, "user-1", testShipping)
		if err == nil {
			t.Fatal("expected an error")
		}

		if got := stockOf(t, st, "prod-a"); got != 5 {
			t.Errorf("stock = %d, want 5 after rollback", got)
		}
		orders, _ := st.ListOrders(ctx)
		if len(orders) != 0 {
			t.Errorf("expected 0 orders after rollback, got %d", len(orders))
		}
		cart, _ := st.CartForUser(ctx, "user-1")
		if len(cart.Items) != 1 {
			t.Errorf("cart was mutated after rollback: %+v", cart.Items)
		}
	})

	t.Run("two checkouts racing the last unit produce exactly one order", func(t *testing.T) {
		service, st := newTestService(t)
		seedProduct(t, st, "prod-last", "Last One", "99.99", 1)
		seedCart(t, st, "user-1", map[string]int{"prod-last": 1})
		seedCart(t, st, "user-2", map[string]int{"prod-last": 1})

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for _, userID := range []string{"user-1", "user-2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.PlaceOrder(ctx, userID, testShipping)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, stockFailures int
		for err := range results {
			switch {
			case err == nil:
				successes++
			default:
				var insufficient *domain.InsufficientStockError
				if !errors.As(err, &insufficient) {
					t.Fatalf("unexpected error: %v", err)
				}
				stockFailures++
			}
		}

		if successes != 1 || stockFailures != 1 {
			t.Errorf("got %d successes and %d stock failures, want exactly 1 of each", successes, stockFailures)
		}
		if got := stockOf(t, st, "prod-last"); got != 0 {
			t.Errorf("stock = %d, want 0", got)
		}
	})
}
