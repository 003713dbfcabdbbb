package app

import (
	"context"
	"sync"
	"time"

	"github.com/christkv/copernicus/internal/domain"
)

// fakeResourceStore is an in-memory ResourceStore with injectable
// failures. It tracks total capacity per resource so tests can assert
// the conservation invariant directly.
type fakeResourceStore struct {
	mu    sync.Mutex
	items map[string]*fakeResource

	failReserve map[string]error
	failRelease map[string]error
	failAdjust  map[string]error
}

type fakeResource struct {
	total     int64
	available int64
	holds     map[string]int64
}

func newFakeResourceStore(totals map[string]int64) *fakeResourceStore {
	items := make(map[string]*fakeResource, len(totals))
	for id, total := range totals {
		items[id] = &fakeResource{
			total:     total,
			available: total,
			holds:     map[string]int64{},
		}
	}
	return &fakeResourceStore{
		items:       items,
		failReserve: map[string]error{},
		failRelease: map[string]error{},
		failAdjust:  map[string]error{},
	}
}

func (f *fakeResourceStore) Reserve(_ context.Context, holderID string, req ReserveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failReserve[req.ResourceID]; err != nil {
		return err
	}
	item, ok := f.items[req.ResourceID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	if _, ok := item.holds[holderID]; ok {
		return domain.ErrDuplicateHold
	}
	if item.available < req.Quantity {
		return domain.ErrInsufficientResource
	}
	item.available -= req.Quantity
	item.holds[holderID] = req.Quantity
	return nil
}

func (f *fakeResourceStore) Adjust(_ context.Context, holderID, resourceID string, quantity, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failAdjust[resourceID]; err != nil {
		return err
	}
	item, ok := f.items[resourceID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	if _, ok := item.holds[holderID]; !ok {
		return domain.ErrHoldNotFound
	}
	if item.available < delta {
		return domain.ErrInsufficientResource
	}
	item.available -= delta
	item.holds[holderID] = quantity
	return nil
}

func (f *fakeResourceStore) Release(_ context.Context, holderID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failRelease[resourceID]; err != nil {
		return err
	}
	item, ok := f.items[resourceID]
	if !ok {
		return nil
	}
	qty, ok := item.holds[holderID]
	if !ok {
		return nil
	}
	item.available += qty
	delete(item.holds, holderID)
	return nil
}

func (f *fakeResourceStore) ReleaseAll(_ context.Context, holderID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	released := 0
	for _, item := range f.items {
		qty, ok := item.holds[holderID]
		if !ok {
			continue
		}
		item.available += qty
		delete(item.holds, holderID)
		released++
	}
	return released, nil
}

func (f *fakeResourceStore) CommitAll(_ context.Context, holderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range f.items {
		qty, ok := item.holds[holderID]
		if !ok {
			continue
		}
		item.total -= qty
		delete(item.holds, holderID)
	}
	return nil
}

func (f *fakeResourceStore) available(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].available
}

func (f *fakeResourceStore) holdQty(id, holderID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qty, ok := f.items[id].holds[holderID]
	return qty, ok
}

// conserved reports whether available plus the open holds still accounts
// for the full capacity of every resource.
func (f *fakeResourceStore) conserved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, item := range f.items {
		sum := item.available
		for _, qty := range item.holds {
			sum += qty
		}
		if sum != item.total {
			return false
		}
	}
	return true
}

// fakeLedgerRepo is an in-memory LedgerRepository with injectable
// failures at each protocol step.
type fakeLedgerRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	txns     map[string]*domain.Transaction

	failDebit     error
	failCredit    error
	failClearTag  error
	failAdvanceTo map[domain.TxState]error

	// beforeAdvance runs under the lock before an advance is checked,
	// letting a test play a concurrent winner.
	beforeAdvance func(txn *domain.Transaction, from, to domain.TxState)
}

func newFakeLedgerRepo(accounts ...domain.Account) *fakeLedgerRepo {
	f := &fakeLedgerRepo{
		accounts:      map[string]*domain.Account{},
		txns:          map[string]*domain.Transaction{},
		failAdvanceTo: map[domain.TxState]error{},
	}
	for _, account := range accounts {
		a := account
		if a.Pending == nil {
			a.Pending = []string{}
		}
		f.accounts[a.ID] = &a
	}
	return f
}

func (f *fakeLedgerRepo) CreateAccount(_ context.Context, account domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[account.ID]; ok {
		return nil
	}
	a := account
	f.accounts[a.ID] = &a
	return nil
}

func (f *fakeLedgerRepo) GetAccount(_ context.Context, id string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return *account, nil
}

func (f *fakeLedgerRepo) Debit(_ context.Context, accountID, txnID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDebit != nil {
		return f.failDebit
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.HasPending(txnID) {
		return domain.ErrDuplicateHold
	}
	if account.Balance < amount {
		return domain.ErrInsufficientResource
	}
	account.Balance -= amount
	account.Pending = append(account.Pending, txnID)
	return nil
}

func (f *fakeLedgerRepo) Credit(_ context.Context, accountID, txnID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCredit != nil {
		return f.failCredit
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.HasPending(txnID) {
		return domain.ErrDuplicateHold
	}
	account.Balance += amount
	account.Pending = append(account.Pending, txnID)
	return nil
}

func (f *fakeLedgerRepo) ClearTag(_ context.Context, accountID, txnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failClearTag != nil {
		return f.failClearTag
	}
	account, ok := f.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Pending = removeTag(account.Pending, txnID)
	return nil
}

func (f *fakeLedgerRepo) ReverseDebit(_ context.Context, accountID, txnID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, ok := f.accounts[accountID]
	if !ok {
		return nil
	}
	if !account.HasPending(txnID) {
		return nil
	}
	account.Balance += amount
	account.Pending = removeTag(account.Pending, txnID)
	return nil
}

func (f *fakeLedgerRepo) ReverseCredit(_ context.Context, accountID, txnID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, ok := f.accounts[accountID]
	if !ok {
		return nil
	}
	if !account.HasPending(txnID) {
		return nil
	}
	account.Balance -= amount
	account.Pending = removeTag(account.Pending, txnID)
	return nil
}

func (f *fakeLedgerRepo) CreateTransaction(_ context.Context, txn domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := txn
	f.txns[t.ID] = &t
	return nil
}

func (f *fakeLedgerRepo) GetTransaction(_ context.Context, id string) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return *txn, nil
}

func (f *fakeLedgerRepo) AdvanceTransaction(_ context.Context, id string, from, to domain.TxState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failAdvanceTo[to]; err != nil {
		return err
	}
	if next, ok := from.Next(); !ok || next != to {
		return domain.ErrStaleState
	}
	txn, ok := f.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if f.beforeAdvance != nil {
		f.beforeAdvance(txn, from, to)
	}
	if txn.State != from {
		return domain.ErrStaleState
	}
	txn.State = to
	return nil
}

func (f *fakeLedgerRepo) CancelTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	txn, ok := f.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	switch txn.State {
	case domain.TxCanceled:
		return nil
	case domain.TxDone:
		return domain.ErrStaleState
	}
	txn.State = domain.TxCanceled
	return nil
}

func (f *fakeLedgerRepo) balance(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance
}

func (f *fakeLedgerRepo) txnState(id string) domain.TxState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txns[id].State
}

func (f *fakeLedgerRepo) onlyTxnID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.txns {
		return id
	}
	return ""
}

func removeTag(tags []string, txnID string) []string {
	out := tags[:0]
	for _, tag := range tags {
		if tag != txnID {
			out = append(out, tag)
		}
	}
	return out
}

// fakeCartRepo is an in-memory CartRepository.
type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart

	failAddItemAfter int // fail the Nth AddItem call, 0 disables
	addItemCalls     int
	failSetState     error
}

func newFakeCartRepo(carts ...domain.Cart) *fakeCartRepo {
	f := &fakeCartRepo{carts: map[string]*domain.Cart{}}
	for _, cart := range carts {
		c := cart
		if c.Items == nil {
			c.Items = []domain.LineItem{}
		}
		f.carts[c.ID] = &c
	}
	return f
}

func (f *fakeCartRepo) Create(_ context.Context, cart domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[cart.ID]; ok {
		return domain.ErrCartExists
	}
	c := cart
	f.carts[c.ID] = &c
	return nil
}

func (f *fakeCartRepo) Get(_ context.Context, id string) (domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[id]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	out := *cart
	out.Items = append([]domain.LineItem(nil), cart.Items...)
	return out, nil
}

func (f *fakeCartRepo) AddItem(_ context.Context, cartID string, item domain.LineItem, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addItemCalls++
	if f.failAddItemAfter > 0 && f.addItemCalls >= f.failAddItemAfter {
		return domain.ErrCartNotFound
	}
	cart, ok := f.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if cart.State != domain.CartActive {
		return domain.ErrCartNotActive
	}
	cart.Items = append(cart.Items, item)
	cart.ModifiedOn = now
	return nil
}

func (f *fakeCartRepo) SetItemQuantity(_ context.Context, cartID, resourceID string, quantity int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cart, ok := f.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if cart.State != domain.CartActive {
		return domain.ErrCartNotActive
	}
	for i := range cart.Items {
		if cart.Items[i].ResourceID == resourceID {
			cart.Items[i].Quantity = quantity
			cart.ModifiedOn = now
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (f *fakeCartRepo) RemoveItem(_ context.Context, cartID, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cart, ok := f.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if cart.State != domain.CartActive {
		return domain.ErrCartNotActive
	}
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ResourceID != resourceID {
			items = append(items, item)
		}
	}
	cart.Items = items
	return nil
}

func (f *fakeCartRepo) SetState(_ context.Context, cartID string, from, to domain.CartState, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSetState != nil {
		return f.failSetState
	}
	if !from.CanTransition(to) {
		return domain.ErrStaleState
	}
	cart, ok := f.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if cart.State != from {
		return domain.ErrStaleState
	}
	cart.State = to
	cart.ModifiedOn = now
	return nil
}

func (f *fakeCartRepo) FindExpired(_ context.Context) ([]domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Cart
	for _, cart := range f.carts {
		if cart.State == domain.CartExpired {
			out = append(out, *cart)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) MarkExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	marked := 0
	for _, cart := range f.carts {
		if cart.State == domain.CartActive && cart.ModifiedOn.Before(cutoff) {
			cart.State = domain.CartExpired
			marked++
		}
	}
	return marked, nil
}

func (f *fakeCartRepo) state(id string) domain.CartState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.carts[id].State
}

// fakeOrderRepo is an in-memory OrderRepository keyed by cart id.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]domain.Order{}}
}

func (f *fakeOrderRepo) Create(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[order.CartID]; ok {
		return domain.ErrOrderExists
	}
	f.orders[order.CartID] = order
	return nil
}

func (f *fakeOrderRepo) GetByCart(_ context.Context, cartID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[cartID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

// fakeTheaterRepo is an in-memory TheaterRepository.
type fakeTheaterRepo struct {
	mu       sync.Mutex
	theaters map[string]domain.Theater
	sessions map[string]domain.Session
}

func newFakeTheaterRepo() *fakeTheaterRepo {
	return &fakeTheaterRepo{
		theaters: map[string]domain.Theater{},
		sessions: map[string]domain.Session{},
	}
}

func (f *fakeTheaterRepo) CreateTheater(_ context.Context, theater domain.Theater) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.theaters[theater.ID] = theater
	return nil
}

func (f *fakeTheaterRepo) GetTheater(_ context.Context, id string) (domain.Theater, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	theater, ok := f.theaters[id]
	if !ok {
		return domain.Theater{}, domain.ErrTheaterNotFound
	}
	return theater, nil
}

func (f *fakeTheaterRepo) CreateSession(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeTheaterRepo) GetSession(_ context.Context, id string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}
