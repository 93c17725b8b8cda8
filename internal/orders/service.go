// Package orders owns order reads and the status state machine, including
// stock restoration when an order is cancelled.
package orders

import (
	"context"
	"log/slog"

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

// SetStatus validates and applies a status change. Transitioning into
// CANCELLED restocks every order item inside the same transaction as the
// status write; the check against the currently stored status means
// re-cancelling an already cancelled order never restocks twice. All other
// transitions only write the status field.
func (s *Service) SetStatus(ctx context.Context, orderID string, requested string) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(requested)
	if err != nil {
		return nil, err
	}

	var updated *domain.Order
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &domain.NotFoundError{Resource: "order", ID: orderID}
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return err
		}

		if status == domain.OrderStatusCancelled && order.Status != domain.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		updated, err = tx.OrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated", "order_id", orderID, "status", updated.Status)

	return updated, nil
}

// Get returns the order, restricted to its owner unless ownerID is empty
// (admin access).
func (s *Service) Get(ctx context.Context, orderID, ownerID string) (*domain.Order, error) {
	order, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (ownerID != "" && order.UserID != ownerID) {
		return nil, &domain.NotFoundError{Resource: "order", ID: orderID}
	}
	return order, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.store.OrdersByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.store.ListOrders(ctx)
}
