package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopflow/storefront/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	user.ID = uuid.New().String()

	return s.q.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.Role).
		Scan(&user.CreatedAt)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.scanUser(ctx, `
		SELECT id, email, name, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (s *Store) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}

	err := s.q.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, nilOnNoRows(err)
	}

	return user, nil
}
