package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopflow/storefront/internal/domain"
)

func (s *Store) InsertOrder(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount,
		                    address_line1, address_line2, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, order.ID, order.UserID, order.Status, order.TotalAmount,
		order.Shipping.AddressLine1, order.Shipping.AddressLine2,
		order.Shipping.City, order.Shipping.PostalCode, order.Shipping.Country).
		Scan(&order.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err = s.q.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, title, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), order.ID, item.ProductID, item.Title, item.Quantity, item.PriceAtPurchase)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_amount,
		       address_line1, address_line2, city, postal_code, country, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
		&order.Shipping.AddressLine1, &order.Shipping.AddressLine2,
		&order.Shipping.City, &order.Shipping.PostalCode, &order.Shipping.Country,
		&order.CreatedAt)
	if err != nil {
		return nil, nilOnNoRows(err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT product_id, title, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Title, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return order, rows.Err()
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.listOrders(ctx, `
		SELECT id, user_id, status, total_amount,
		       address_line1, address_line2, city, postal_code, country, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.listOrders(ctx, `
		SELECT id, user_id, status, total_amount,
		       address_line1, address_line2, city, postal_code, country, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
			&order.Shipping.AddressLine1, &order.Shipping.AddressLine2,
			&order.Shipping.City, &order.Shipping.PostalCode, &order.Shipping.Country,
			&order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := s.q.QueryContext(ctx, `
		SELECT order_id, product_id, title, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Title,
			&item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}

	return requireRow(result, &domain.NotFoundError{Resource: "order", ID: id})
}
