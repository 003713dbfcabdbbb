package domain

import "time"

// Shipping captures where a checked-out order goes.
type Shipping struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
}

// Payment captures how a checked-out order was paid.
type Payment struct {
	Method    string `bson:"method" json:"method"`
	Reference string `bson:"reference" json:"reference"`
}

// Order is the immutable record produced by checkout. One order per cart,
// enforced by a unique index on CartID.
type Order struct {
	ID        string     `bson:"_id" json:"id"`
	CartID    string     `bson:"cart_id" json:"cart_id"`
	Total     int64      `bson:"total" json:"total"`
	Items     []LineItem `bson:"items" json:"items"`
	Shipping  Shipping   `bson:"shipping" json:"shipping"`
	Payment   Payment    `bson:"payment" json:"payment"`
	CreatedOn time.Time  `bson:"created_on" json:"created_on"`
}

// OrderTotal sums the line totals.
func OrderTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Total()
	}
	return total
}
