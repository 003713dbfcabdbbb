package domain

import "time"

// Transaction is the durable record of a two-party transfer. It is the
// single source of truth for recovery: any process may continue the
// forward protocol by reading State, never by trusting call-stack
// position.
type Transaction struct {
	ID          string    `bson:"_id" json:"id"`
	Source      string    `bson:"source" json:"source"`
	Destination string    `bson:"destination" json:"destination"`
	Amount      int64     `bson:"amount" json:"amount"`
	State       TxState   `bson:"state" json:"state"`
	CreatedOn   time.Time `bson:"created_on" json:"created_on"`
}
