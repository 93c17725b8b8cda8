package domain

import "fmt"

// ValidationError reports malformed or missing input. It is raised before any
// storage access happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError reports a missing record, or one the requester may not see.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InsufficientStockError names the failing line item so the caller can adjust
// the cart without guessing.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q. Available: %d, Requested: %d",
		e.Title, e.Available, e.Requested)
}

// InvalidStatusError reports a status value outside the allowed set.
type InvalidStatusError struct {
	Requested string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q: must be one of %s, %s, %s",
		e.Requested, OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled)
}
