package domain

// TxState is a transaction record's position in the forward lattice.
type TxState string

const (
	TxInitial   TxState = "initial"
	TxPending   TxState = "pending"
	TxCommitted TxState = "committed"
	TxDone      TxState = "done"
	TxCanceled  TxState = "canceled"
)

// txNext encodes the forward lattice as data. Cancellation is a side
// transition available from any non-terminal state, never part of the
// forward chain.
var txNext = map[TxState]TxState{
	TxInitial:   TxPending,
	TxPending:   TxCommitted,
	TxCommitted: TxDone,
}

// Next returns the forward successor of s. ok is false when s has none.
func (s TxState) Next() (TxState, bool) {
	next, ok := txNext[s]
	return next, ok
}

// Terminal reports whether no transition at all is allowed from s.
func (s TxState) Terminal() bool {
	return s == TxDone || s == TxCanceled
}

// Cancelable reports whether s may jump to TxCanceled.
func (s TxState) Cancelable() bool {
	return !s.Terminal()
}

// CartState tracks a holder record through its lifecycle.
type CartState string

const (
	CartActive    CartState = "active"
	CartCompleted CartState = "completed"
	CartExpired   CartState = "expired"
	CartCanceled  CartState = "canceled"
)

var cartTransitions = map[CartState][]CartState{
	CartActive:  {CartCompleted, CartExpired, CartCanceled},
	CartExpired: {CartCanceled},
}

// CanTransition reports whether from→to is an allowed cart transition.
// Completed and canceled carts accept none.
func (s CartState) CanTransition(to CartState) bool {
	for _, next := range cartTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
