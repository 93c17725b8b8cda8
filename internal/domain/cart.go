package domain

// CartItem is one line of a cart. Product carries the live catalog snapshot
// (price and stock at read time), not a value cached when the item was added.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}
