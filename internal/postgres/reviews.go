package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopflow/storefront/internal/domain"
)

func (s *Store) InsertReview(ctx context.Context, review *domain.Review) error {
	review.ID = uuid.New().String()

	return s.q.QueryRowContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, review.ID, review.ProductID, review.UserID, review.Rating, review.Comment).
		Scan(&review.CreatedAt)
}

func (s *Store) ReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	reviews := []domain.Review{}
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}

	return reviews, rows.Err()
}
