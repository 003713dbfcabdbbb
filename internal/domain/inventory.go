package domain

import "time"

// Hold is a tagged, reversible claim on part of a resource's capacity,
// owned by a transaction or cart id.
type Hold struct {
	HolderID  string    `bson:"holder_id" json:"holder_id"`
	Quantity  int64     `bson:"quantity" json:"quantity"`
	CreatedOn time.Time `bson:"created_on" json:"created_on"`
}

// InventoryItem owns a quantity and the open holds against it. The
// invariant available + sum(holds.quantity) == total capacity is
// maintained by the conditional reserve/adjust/release updates.
type InventoryItem struct {
	ID        string `bson:"_id" json:"id"`
	Available int64  `bson:"available" json:"available"`
	Holds     []Hold `bson:"holds" json:"holds"`
}

// HoldFor returns the holder's open hold, if any. A holder has at most
// one.
func (i InventoryItem) HoldFor(holderID string) (Hold, bool) {
	for _, h := range i.Holds {
		if h.HolderID == holderID {
			return h, true
		}
	}
	return Hold{}, false
}
