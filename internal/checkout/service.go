// Package checkout converts a user's cart into an order while keeping stock
// levels consistent under concurrent access.
package checkout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store"
)

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// PlaceOrder creates exactly one order from the user's current cart,
// decrements stock and clears the cart as a single transaction. An empty cart
// is a benign no-op and returns (nil, nil). On any failure nothing persists:
// no order, no stock change, no cart mutation.
//
// Stock is validated twice: optimistically before the transaction, to fail
// fast with a precise message, and again through the guarded relative
// decrement inside it. A decrement that loses a race surfaces as
// InsufficientStockError rather than being retried.
func (s *Service) PlaceOrder(ctx context.Context, userID string, shipping domain.ShippingDetails) (*domain.Order, error) {
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.store.CartForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, nil
	}

	// Prices are re-read from the catalog at submission time; nothing cached
	// on the cart is trusted.
	total := decimal.Zero
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Product.StockQuantity < line.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Title:     line.Product.Title,
				Requested: line.Quantity,
				Available: line.Product.StockQuantity,
			}
		}
		items = append(items, domain.OrderItem{
			ProductID:       line.ProductID,
			Title:           line.Product.Title,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Product.Price,
		})
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	var placed *domain.Order
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		order := &domain.Order{
			UserID:      userID,
			Items:       items,
			TotalAmount: total,
			Status:      domain.OrderStatusProcessing,
			Shipping:    shipping,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		for _, line := range cart.Items {
			if err := tx.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
				if errors.Is(err, store.ErrStockConflict) {
					return s.stockRaceError(ctx, tx, line)
				}
				return err
			}
		}

		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return err
		}

		// Return the order as it exists inside the transaction, so the
		// response reflects exactly what is committed.
		var err error
		placed, err = tx.OrderByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", placed.ID,
		"user_id", userID,
		"total", placed.TotalAmount,
		"items", len(placed.Items),
	)

	return placed, nil
}

// stockRaceError builds the precise error for a decrement that lost a
// concurrent race, re-reading the row for the now-current availability.
func (s *Service) stockRaceError(ctx context.Context, tx store.Tx, line domain.CartItem) error {
	insufficient := &domain.InsufficientStockError{
		ProductID: line.ProductID,
		Title:     line.Product.Title,
		Requested: line.Quantity,
	}
	if product, err := tx.ProductByID(ctx, line.ProductID); err == nil && product != nil {
		insufficient.Available = product.StockQuantity
	}
	return insufficient
}
