package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopflow/storefront/internal/domain"
)

func (s *Store) CartForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := &domain.Cart{}

	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID)
	if err != nil {
		return nil, nilOnNoRows(err)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity,
		       p.id, p.title, p.description, p.price, p.stock_quantity, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at
	`, cart.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity,
			&item.Product.ID, &item.Product.Title, &item.Product.Description,
			&item.Product.Price, &item.Product.StockQuantity,
			&item.Product.CreatedAt, &item.Product.UpdatedAt); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}

	return cart, rows.Err()
}

func (s *Store) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.CartForUser(ctx, userID)
	if err != nil || cart != nil {
		return cart, err
	}

	cart = &domain.Cart{ID: uuid.New().String(), UserID: userID, Items: []domain.CartItem{}}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, cart.ID, cart.UserID)
	if err != nil {
		return nil, err
	}

	// Another request may have created the cart between the read and the
	// insert; re-read to get the winning row.
	return s.CartForUser(ctx, userID)
}

func (s *Store) SetCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, cartID, productID, quantity)
	return err
}

func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID)
	if err != nil {
		return err
	}

	return requireRow(result, &domain.NotFoundError{Resource: "cart item", ID: productID})
}

func (s *Store) ClearCart(ctx context.Context, cartID string) error {
	_, err := s.q.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1
	`, cartID)
	return err
}
