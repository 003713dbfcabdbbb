package domain

// Account is a ledger entity. Balances are integral minor units so the
// store's conditional increments stay atomic. Pending carries the ids of
// transactions that have applied a debit or credit but not yet cleared;
// the tags double as the per-transaction idempotency guard.
type Account struct {
	ID      string   `bson:"_id" json:"id"`
	Balance int64    `bson:"balance" json:"balance"`
	Pending []string `bson:"pending" json:"pending"`
}

// HasPending reports whether the transaction has an uncleared tag on the
// account.
func (a Account) HasPending(txnID string) bool {
	for _, id := range a.Pending {
		if id == txnID {
			return true
		}
	}
	return false
}
