package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store"
)

func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()

	return s.q.QueryRowContext(ctx, `
		INSERT INTO products (id, title, description, price, stock_quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, product.ID, product.Title, product.Description, product.Price, product.StockQuantity).
		Scan(&product.CreatedAt, &product.UpdatedAt)
}

func (s *Store) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := s.q.QueryRowContext(ctx, `
		SELECT id, title, description, price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = $1 AND NOT is_deleted
	`, id).Scan(&product.ID, &product.Title, &product.Description, &product.Price,
		&product.StockQuantity, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, nilOnNoRows(err)
	}

	return product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, title, description, price, stock_quantity, created_at, updated_at
		FROM products
		WHERE NOT is_deleted
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price,
			&p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, product *domain.Product) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET title = $2, description = $3, price = $4, stock_quantity = $5, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, product.ID, product.Title, product.Description, product.Price, product.StockQuantity)
	if err != nil {
		return err
	}

	return requireRow(result, &domain.NotFoundError{Resource: "product", ID: product.ID})
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE products SET is_deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id)
	if err != nil {
		return err
	}

	return requireRow(result, &domain.NotFoundError{Resource: "product", ID: id})
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0
	`, productID, delta)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return store.ErrStockConflict
	}

	return nil
}
