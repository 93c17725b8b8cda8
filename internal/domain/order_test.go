package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOrderStatus(t *testing.T) {
	t.Run("accepts any casing", func(t *testing.T) {
		for _, input := range []string{"CANCELLED", "cancelled", " Cancelled "} {
			status, err := ParseOrderStatus(input)
			if err != nil {
				t.Fatalf("ParseOrderStatus(%q) returned error: %v", input, err)
			}
			if status != OrderStatusCancelled {
				t.Errorf("ParseOrderStatus(%q) = %q, want %q", input, status, OrderStatusCancelled)
			}
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseOrderStatus("delivered")
		var invalid *InvalidStatusError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if invalid.Requested != "delivered" {
			t.Errorf("Requested = %q, want %q", invalid.Requested, "delivered")
		}
	})
}

func TestShippingDetailsValidate(t *testing.T) {
	valid := ShippingDetails{
		AddressLine1: "1 Main St",
		City:         "Springfield",
		PostalCode:   "12345",
		Country:      "US",
	}

	t.Run("valid details pass", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("address_line2 may be blank", func(t *testing.T) {
		details := valid
		details.AddressLine2 = ""
		if err := details.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("names the missing field", func(t *testing.T) {
		details := valid
		details.City = "  "

		err := details.Validate()
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if validation.Field != "city" {
			t.Errorf("Field = %q, want %q", validation.Field, "city")
		}
	})
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{
		Quantity:        3,
		PriceAtPurchase: decimal.RequireFromString("19.99"),
	}

	if got := item.Subtotal(); !got.Equal(decimal.RequireFromString("59.97")) {
		t.Errorf("Subtotal() = %s, want 59.97", got)
	}
}
