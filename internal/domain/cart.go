package domain

import "time"

// LineItem is one reserved resource in a cart. Seats is set only for
// seat-map resources; for those Quantity is the seat count.
type LineItem struct {
	ResourceID string `bson:"resource_id" json:"resource_id"`
	Name       string `bson:"name" json:"name"`
	Quantity   int64  `bson:"quantity" json:"quantity"`
	Price      int64  `bson:"price" json:"price"`
	Seats      []Seat `bson:"seats,omitempty" json:"seats,omitempty"`
}

// Total is the line total in minor units.
func (l LineItem) Total() int64 {
	return l.Price * l.Quantity
}

// Cart is the holder record that owns reservations across resources. A
// hold exists exactly as long as its owning cart says so: resources never
// initiate or retire holds on their own.
type Cart struct {
	ID         string     `bson:"_id" json:"id"`
	State      CartState  `bson:"state" json:"state"`
	Items      []LineItem `bson:"items" json:"items"`
	ModifiedOn time.Time  `bson:"modified_on" json:"modified_on"`
}

// Item returns the cart's line item for the resource, if present.
func (c Cart) Item(resourceID string) (LineItem, bool) {
	for _, item := range c.Items {
		if item.ResourceID == resourceID {
			return item, true
		}
	}
	return LineItem{}, false
}
