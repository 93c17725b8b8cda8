package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ParseOrderStatus normalizes user input to one of the known statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", &InvalidStatusError{Requested: s}
	}
}

type OrderItem struct {
	ProductID       string          `json:"product_id"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// Subtotal is the line total at the snapshotted price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	Shipping    ShippingDetails `json:"shipping"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ShippingDetails struct {
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Validate reports the first missing required field. AddressLine2 may be blank.
func (s ShippingDetails) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"address_line1", s.AddressLine1},
		{"city", s.City},
		{"postal_code", s.PostalCode},
		{"country", s.Country},
	}

	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{
				Field:  f.field,
				Reason: fmt.Sprintf("%s is required", f.field),
			}
		}
	}

	return nil
}
