// Package storetest provides an in-memory store.Store for unit tests. WithTx
// snapshots the state and restores it when fn fails, mirroring the rollback
// semantics of the postgres implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopflow/storefront/internal/domain"
	"github.com/shopflow/storefront/internal/store"
)

type state struct {
	users    map[string]domain.User
	products map[string]domain.Product
	carts    map[string]domain.Cart // keyed by user id, Items hold quantities only
	orders   map[string]domain.Order
	reviews  map[string][]domain.Review
}

type Store struct {
	mu sync.Mutex
	st state

	// FailOn forces the named operation to return an error, for exercising
	// rollback paths. Operation names match the store.Tx method names.
	FailOn map[string]bool

	// Calls counts invocations per operation name.
	Calls map[string]int
}

func New() *Store {
	return &Store{
		st: state{
			users:    map[string]domain.User{},
			products: map[string]domain.Product{},
			carts:    map[string]domain.Cart{},
			orders:   map[string]domain.Order{},
			reviews:  map[string][]domain.Review{},
		},
		FailOn: map[string]bool{},
		Calls:  map[string]int{},
	}
}

func (s *Store) op(name string) error {
	s.Calls[name]++
	if s.FailOn[name] {
		return fmt.Errorf("storetest: forced failure in %s", name)
	}
	return nil
}

// WithTx serializes transactions with the store mutex and restores the
// pre-transaction snapshot when fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.op("WithTx"); err != nil {
		return err
	}

	snapshot := s.st.clone()
	if err := fn(ctx, (*txView)(s)); err != nil {
		s.st = snapshot
		return err
	}

	return nil
}

// txView exposes the unlocked operations to the transaction callback while
// the outer WithTx holds the mutex.
type txView Store

func (t *txView) CreateUser(ctx context.Context, user *domain.User) error {
	return (*Store)(t).createUser(user)
}

func (t *txView) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return (*Store)(t).userByEmail(email)
}

func (t *txView) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return (*Store)(t).userByID(id)
}

func (t *txView) CreateProduct(ctx context.Context, product *domain.Product) error {
	return (*Store)(t).createProduct(product)
}

func (t *txView) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return (*Store)(t).productByID(id)
}

func (t *txView) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return (*Store)(t).listProducts()
}

func (t *txView) UpdateProduct(ctx context.Context, product *domain.Product) error {
	return (*Store)(t).updateProduct(product)
}

func (t *txView) DeleteProduct(ctx context.Context, id string) error {
	return (*Store)(t).deleteProduct(id)
}

func (t *txView) AdjustStock(ctx context.Context, productID string, delta int) error {
	return (*Store)(t).adjustStock(productID, delta)
}

func (t *txView) CartForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return (*Store)(t).cartForUser(userID)
}

func (t *txView) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return (*Store)(t).ensureCart(userID)
}

func (t *txView) SetCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	return (*Store)(t).setCartItem(cartID, productID, quantity)
}

func (t *txView) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	return (*Store)(t).removeCartItem(cartID, productID)
}

func (t *txView) ClearCart(ctx context.Context, cartID string) error {
	return (*Store)(t).clearCart(cartID)
}

func (t *txView) InsertOrder(ctx context.Context, order *domain.Order) error {
	return (*Store)(t).insertOrder(order)
}

func (t *txView) OrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return (*Store)(t).orderByID(id)
}

func (t *txView) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return (*Store)(t).ordersByUser(userID)
}

func (t *txView) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return (*Store)(t).listOrders()
}

func (t *txView) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return (*Store)(t).updateOrderStatus(id, status)
}

func (t *txView) InsertReview(ctx context.Context, review *domain.Review) error {
	return (*Store)(t).insertReview(review)
}

func (t *txView) ReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	return (*Store)(t).reviewsByProduct(productID)
}

// Locked variants for direct (non-transactional) use.

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUser(user)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByEmail(email)
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByID(id)
}

func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createProduct(product)
}

func (s *Store) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productByID(id)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listProducts()
}

func (s *Store) UpdateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProduct(product)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteProduct(id)
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStock(productID, delta)
}

func (s *Store) CartForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartForUser(userID)
}

func (s *Store) EnsureCart(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureCart(userID)
}

func (s *Store) SetCartItem(ctx context.Context, cartID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCartItem(cartID, productID, quantity)
}

func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeCartItem(cartID, productID)
}

func (s *Store) ClearCart(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearCart(cartID)
}

func (s *Store) InsertOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertOrder(order)
}

func (s *Store) OrderByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderByID(id)
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordersByUser(userID)
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOrders()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOrderStatus(id, status)
}

func (s *Store) InsertReview(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertReview(review)
}

func (s *Store) ReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewsByProduct(productID)
}

// Unlocked implementations.

func (s *Store) createUser(user *domain.User) error {
	if err := s.op("CreateUser"); err != nil {
		return err
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now().UTC()
	s.st.users[user.ID] = *user
	return nil
}

func (s *Store) userByEmail(email string) (*domain.User, error) {
	if err := s.op("UserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range s.st.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) userByID(id string) (*domain.User, error) {
	if err := s.op("UserByID"); err != nil {
		return nil, err
	}
	u, ok := s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) createProduct(product *domain.Product) error {
	if err := s.op("CreateProduct"); err != nil {
		return err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt
	s.st.products[product.ID] = *product
	return nil
}

func (s *Store) productByID(id string) (*domain.Product, error) {
	if err := s.op("ProductByID"); err != nil {
		return nil, err
	}
	p, ok := s.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) listProducts() ([]domain.Product, error) {
	if err := s.op("ListProducts"); err != nil {
		return nil, err
	}
	products := []domain.Product{}
	for _, p := range s.st.products {
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) updateProduct(product *domain.Product) error {
	if err := s.op("UpdateProduct"); err != nil {
		return err
	}
	if _, ok := s.st.products[product.ID]; !ok {
		return &domain.NotFoundError{Resource: "product", ID: product.ID}
	}
	product.UpdatedAt = time.Now().UTC()
	s.st.products[product.ID] = *product
	return nil
}

func (s *Store) deleteProduct(id string) error {
	if err := s.op("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := s.st.products[id]; !ok {
		return &domain.NotFoundError{Resource: "product", ID: id}
	}
	delete(s.st.products, id)
	return nil
}

func (s *Store) adjustStock(productID string, delta int) error {
	if err := s.op("AdjustStock"); err != nil {
		return err
	}
	p, ok := s.st.products[productID]
	if !ok || p.StockQuantity+delta < 0 {
		return store.ErrStockConflict
	}
	p.StockQuantity += delta
	s.st.products[productID] = p
	return nil
}

func (s *Store) cartForUser(userID string) (*domain.Cart, error) {
	if err := s.op("CartForUser"); err != nil {
		return nil, err
	}
	cart, ok := s.st.carts[userID]
	if !ok {
		return nil, nil
	}

	// Join items against the live product rows.
	out := domain.Cart{ID: cart.ID, UserID: cart.UserID, Items: []domain.CartItem{}}
	for _, item := range cart.Items {
		product, ok := s.st.products[item.ProductID]
		if !ok {
			continue
		}
		out.Items = append(out.Items, domain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   product,
		})
	}
	return &out, nil
}

func (s *Store) ensureCart(userID string) (*domain.Cart, error) {
	if err := s.op("EnsureCart"); err != nil {
		return nil, err
	}
	if _, ok := s.st.carts[userID]; !ok {
		s.st.carts[userID] = domain.Cart{ID: uuid.New().String(), UserID: userID}
	}
	return s.cartForUser(userID)
}

func (s *Store) setCartItem(cartID, productID string, quantity int) error {
	if err := s.op("SetCartItem"); err != nil {
		return err
	}
	userID, cart, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items[i].Quantity = quantity
			s.st.carts[userID] = cart
			return nil
		}
	}
	cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
	s.st.carts[userID] = cart
	return nil
}

func (s *Store) removeCartItem(cartID, productID string) error {
	if err := s.op("RemoveCartItem"); err != nil {
		return err
	}
	userID, cart, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			s.st.carts[userID] = cart
			return nil
		}
	}
	return &domain.NotFoundError{Resource: "cart item", ID: productID}
}

func (s *Store) clearCart(cartID string) error {
	if err := s.op("ClearCart"); err != nil {
		return err
	}
	userID, cart, err := s.cartByID(cartID)
	if err != nil {
		return err
	}
	cart.Items = nil
	s.st.carts[userID] = cart
	return nil
}

func (s *Store) cartByID(cartID string) (string, domain.Cart, error) {
	for userID, cart := range s.st.carts {
		if cart.ID == cartID {
			return userID, cart, nil
		}
	}
	return "", domain.Cart{}, &domain.NotFoundError{Resource: "cart", ID: cartID}
}

func (s *Store) insertOrder(order *domain.Order) error {
	if err := s.op("InsertOrder"); err != nil {
		return err
	}
	order.ID = uuid.New().String()
	order.CreatedAt = time.Now().UTC()
	s.st.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *Store) orderByID(id string) (*domain.Order, error) {
	if err := s.op("OrderByID"); err != nil {
		return nil, err
	}
	o, ok := s.st.orders[id]
	if !ok {
		return nil, nil
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) ordersByUser(userID string) ([]domain.Order, error) {
	if err := s.op("OrdersByUser"); err != nil {
		return nil, err
	}
	orders := []domain.Order{}
	for _, o := range s.st.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	return orders, nil
}

func (s *Store) listOrders() ([]domain.Order, error) {
	if err := s.op("ListOrders"); err != nil {
		return nil, err
	}
	orders := []domain.Order{}
	for _, o := range s.st.orders {
		orders = append(orders, cloneOrder(o))
	}
	return orders, nil
}

func (s *Store) updateOrderStatus(id string, status domain.OrderStatus) error {
	if err := s.op("UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := s.st.orders[id]
	if !ok {
		return &domain.NotFoundError{Resource: "order", ID: id}
	}
	o.Status = status
	s.st.orders[id] = o
	return nil
}

func (s *Store) insertReview(review *domain.Review) error {
	if err := s.op("InsertReview"); err != nil {
		return err
	}
	review.ID = uuid.New().String()
	review.CreatedAt = time.Now().UTC()
	s.st.reviews[review.ProductID] = append(s.st.reviews[review.ProductID], *review)
	return nil
}

func (s *Store) reviewsByProduct(productID string) ([]domain.Review, error) {
	if err := s.op("ReviewsByProduct"); err != nil {
		return nil, err
	}
	return append([]domain.Review{}, s.st.reviews[productID]...), nil
}

func (st state) clone() state {
	out := state{
		users:    make(map[string]domain.User, len(st.users)),
		products: make(map[string]domain.Product, len(st.products)),
		carts:    make(map[string]domain.Cart, len(st.carts)),
		orders:   make(map[string]domain.Order, len(st.orders)),
		reviews:  make(map[string][]domain.Review, len(st.reviews)),
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.carts {
		v.Items = append([]domain.CartItem{}, v.Items...)
		out.carts[k] = v
	}
	for k, v := range st.orders {
		out.orders[k] = cloneOrder(v)
	}
	for k, v := range st.reviews {
		out.reviews[k] = append([]domain.Review{}, v...)
	}
	return out
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem{}, o.Items...)
	return o
}
