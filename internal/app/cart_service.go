package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

type CartRepository interface {
	Create(ctx context.Context, cart domain.Cart) error
	Get(ctx context.Context, id string) (domain.Cart, error)
	// AddItem, SetItemQuantity and RemoveItem are conditional on the cart
	// still being active.
	AddItem(ctx context.Context, cartID string, item domain.LineItem, now time.Time) error
	SetItemQuantity(ctx context.Context, cartID, resourceID string, quantity int64, now time.Time) error
	RemoveItem(ctx context.Context, cartID, resourceID string) error
	// SetState succeeds only while the stored state still equals from.
	SetState(ctx context.Context, cartID string, from, to domain.CartState, now time.Time) error
	FindExpired(ctx context.Context) ([]domain.Cart, error)
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type OrderRepository interface {
	// Create returns domain.ErrOrderExists when the cart already has an
	// order.
	Create(ctx context.Context, order domain.Order) error
	GetByCart(ctx context.Context, cartID string) (*domain.Order, error)
}

// CartService owns the holder-record lifecycle for one resource binding:
// carts over inventory items, or bookings over session seat maps. The
// cart id tags every hold the cart owns, which is what ties their
// lifetimes together.
type CartService struct {
	carts  CartRepository
	orders OrderRepository
	store  ResourceStore
	coord  *ReserveCoordinator
	clock  clock.Clock
}

func NewCartService(carts CartRepository, orders OrderRepository, store ResourceStore, coord *ReserveCoordinator, clk clock.Clock) *CartService {
	return &CartService{
		carts:  carts,
		orders: orders,
		store:  store,
		coord:  coord,
		clock:  clk,
	}
}

func (s *CartService) Create(ctx context.Context) (domain.Cart, error) {
	cart := domain.Cart{
		ID:         newID(),
		State:      domain.CartActive,
		Items:      []domain.LineItem{},
		ModifiedOn: s.clock.Now(),
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (s *CartService) Get(ctx context.Context, id string) (domain.Cart, error) {
	return s.carts.Get(ctx, id)
}

type AddItemInput struct {
	CartID string
	Item   domain.LineItem
}

// AddItem records the line item on the cart and then reserves it. If the
// reservation fails, the line item is pulled back off the cart and the
// reservation error is returned.
func (s *CartService) AddItem(ctx context.Context, in AddItemInput) error {
	if err := validateItem(in.Item); err != nil {
		return err
	}

	if err := s.carts.AddItem(ctx, in.CartID, in.Item, s.clock.Now()); err != nil {
		return err
	}

	if err := s.store.Reserve(ctx, in.CartID, requestForItem(in.Item)); err != nil {
		if rbErr := s.carts.RemoveItem(ctx, in.CartID, in.Item.ResourceID); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback cart item: %w", rbErr))
		}
		return err
	}
	return nil
}

// AddItems acquires holds for every item or none, then records the line
// items. Cleanup after a failed append is best effort: anything left
// behind is owned by the cart id and reclaimed by the sweeper.
func (s *CartService) AddItems(ctx context.Context, cartID string, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	reqs := make([]ReserveRequest, 0, len(items))
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
		reqs = append(reqs, requestForItem(item))
	}

	if err := s.coord.ReserveAll(ctx, cartID, reqs); err != nil {
		return err
	}

	now := s.clock.Now()
	for i, item := range items {
		if err := s.carts.AddItem(ctx, cartID, item, now); err != nil {
			for _, req := range reqs {
				_ = s.store.Release(ctx, cartID, req.ResourceID)
			}
			for j := 0; j < i; j++ {
				_ = s.carts.RemoveItem(ctx, cartID, items[j].ResourceID)
			}
			return err
		}
	}
	return nil
}

type UpdateItemInput struct {
	CartID     string
	ResourceID string
	Quantity   int64
}

// UpdateItem sets a line item's quantity and adjusts the hold by the
// delta. A failed adjustment rolls the cart quantity back and returns
// the adjustment error.
func (s *CartService) UpdateItem(ctx context.Context, in UpdateItemInput) error {
	if in.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	cart, err := s.carts.Get(ctx, in.CartID)
	if err != nil {
		return err
	}
	item, ok := cart.Item(in.ResourceID)
	if !ok {
		return domain.ErrItemNotFound
	}

	delta := in.Quantity - item.Quantity
	if delta == 0 {
		return nil
	}

	now := s.clock.Now()
	if err := s.carts.SetItemQuantity(ctx, in.CartID, in.ResourceID, in.Quantity, now); err != nil {
		return err
	}

	if err := s.store.Adjust(ctx, in.CartID, in.ResourceID, in.Quantity, delta); err != nil {
		if rbErr := s.carts.SetItemQuantity(ctx, in.CartID, in.ResourceID, item.Quantity, now); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback quantity: %w", rbErr))
		}
		return err
	}
	return nil
}

// RemoveItem releases the hold and pulls the line item. Release is
// idempotent, so retrying after a partial failure is safe.
func (s *CartService) RemoveItem(ctx context.Context, cartID, resourceID string) error {
	if err := s.store.Release(ctx, cartID, resourceID); err != nil {
		return err
	}
	return s.carts.RemoveItem(ctx, cartID, resourceID)
}

type CheckoutInput struct {
	CartID   string
	Shipping domain.Shipping
	Payment  domain.Payment
}

// Checkout freezes the cart into an immutable order and converts its
// holds into permanent consumption. If the cart record has vanished,
// nothing is committed and every hold is released instead.
//
// A crash strictly between the order insert and the cart transition
// leaves an order next to a still-active cart. The unique index on
// orders.cart_id makes a retry land on ErrOrderExists and finish the
// job rather than duplicate the order; the window itself stays open.
func (s *CartService) Checkout(ctx context.Context, in CheckoutInput) (domain.Order, error) {
	cart, err := s.carts.Get(ctx, in.CartID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			if _, relErr := s.store.ReleaseAll(ctx, in.CartID); relErr != nil {
				return domain.Order{}, errors.Join(err, fmt.Errorf("release holds: %w", relErr))
			}
		}
		return domain.Order{}, err
	}
	if cart.State != domain.CartActive {
		return domain.Order{}, domain.ErrCartNotActive
	}
	if len(cart.Items) == 0 {
		return domain.Order{}, domain.ErrCartEmpty
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:        newID(),
		CartID:    cart.ID,
		Total:     domain.OrderTotal(cart.Items),
		Items:     cart.Items,
		Shipping:  in.Shipping,
		Payment:   in.Payment,
		CreatedOn: now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if !errors.Is(err, domain.ErrOrderExists) {
			return domain.Order{}, fmt.Errorf("create order: %w", err)
		}
		existing, getErr := s.orders.GetByCart(ctx, cart.ID)
		if getErr != nil {
			return domain.Order{}, getErr
		}
		if existing == nil {
			return domain.Order{}, fmt.Errorf("create order: %w", err)
		}
		order = *existing
	}

	if err := s.carts.SetState(ctx, cart.ID, domain.CartActive, domain.CartCompleted, now); err != nil {
		// The cart can vanish between the entry read and this transition;
		// its holds get released rather than left for the sweeper.
		if errors.Is(err, domain.ErrCartNotFound) {
			if _, relErr := s.store.ReleaseAll(ctx, cart.ID); relErr != nil {
				return domain.Order{}, errors.Join(err, fmt.Errorf("release holds: %w", relErr))
			}
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("complete cart: %w", err)
	}

	if err := s.store.CommitAll(ctx, cart.ID); err != nil {
		return domain.Order{}, fmt.Errorf("commit holds: %w", err)
	}

	return order, nil
}

func validateItem(item domain.LineItem) error {
	if item.ResourceID == "" {
		return domain.ErrResourceNotFound
	}
	if len(item.Seats) > 0 {
		if item.Quantity != int64(len(item.Seats)) {
			return domain.ErrInvalidQuantity
		}
		// The same seat twice would collapse into one field predicate
		// downstream while the counters move by two.
		seen := make(map[domain.Seat]struct{}, len(item.Seats))
		for _, seat := range item.Seats {
			if _, ok := seen[seat]; ok {
				return domain.ErrInvalidSeat
			}
			seen[seat] = struct{}{}
		}
		return nil
	}
	if item.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func requestForItem(item domain.LineItem) ReserveRequest {
	return ReserveRequest{
		ResourceID: item.ResourceID,
		Quantity:   item.Quantity,
		Seats:      item.Seats,
	}
}
