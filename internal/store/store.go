// Package store defines the storage contract the services are written
// against. The postgres package provides the real implementation; storetest
// provides an in-memory one for unit tests.
package store

import (
	"context"
	"errors"

	"github.com/shopflow/storefront/internal/domain"
)

// ErrStockConflict is returned by AdjustStock when a negative delta would
// drive stock_quantity below zero. Inside a unit of work it aborts the whole
// transaction.
var ErrStockConflict = errors.New("stock adjustment would make stock negative")

// Tx is the set of operations available inside one unit of work. Lookups
// return (nil, nil) when the record does not exist.
type Tx interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id string) (*domain.User, error)

	CreateProduct(ctx context.Context, product *domain.Product) error
	ProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock applies a relative stock change: negative delta for a sale,
	// positive for a restock. The decrement and its non-negativity guard are
	// one indivisible statement so concurrent checkouts serialize on the
	// product row instead of losing updates.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// CartForUser returns the user's cart with items joined against the
	// current product rows, or (nil, nil) if the user has no cart yet.
	CartForUser(ctx context.Context, userID string) (*domain.Cart, error)
	EnsureCart(ctx context.Context, userID string) (*domain.Cart, error)
	SetCartItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, cartID, productID string) error
	ClearCart(ctx context.Context, cartID string) error

	// InsertOrder persists the order together with its items.
	InsertOrder(ctx context.Context, order *domain.Order) error
	OrderByID(ctx context.Context, id string) (*domain.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error

	InsertReview(ctx context.Context, review *domain.Review) error
	ReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error)
}

// Store is the full storage contract. WithTx runs fn inside one transaction:
// every operation on the passed Tx commits together or rolls back together.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
