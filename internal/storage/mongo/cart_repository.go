package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/christkv/copernicus/internal/domain"
)

// CartRepository stores holder records. Item mutations are conditioned
// on the cart still being active, and state changes on the stored state
// still being what the caller saw, so a sweeper expiring a cart races
// safely against a shopper mutating it.
type CartRepository struct {
	carts *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{carts: db.Collection(collCarts)}
}

func (r *CartRepository) Create(ctx context.Context, cart domain.Cart) error {
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	_, err := r.carts.InsertOne(ctx, cart)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrCartExists
	}
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.carts.FindOne(ctx, bson.M{"_id": id}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("find cart: %w", err)
	}
	return cart, nil
}

func (r *CartRepository) AddItem(ctx context.Context, cartID string, item domain.LineItem, now time.Time) error {
	res, err := r.carts.UpdateOne(ctx,
		bson.M{"_id": cartID, "state": domain.CartActive},
		bson.M{
			"$push": bson.M{"items": item},
			"$set":  bson.M{"modified_on": now},
		},
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.classifyCartFailure(ctx, cartID)
	}
	return nil
}

func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, resourceID string, quantity int64, now time.Time) error {
	res, err := r.carts.UpdateOne(ctx,
		bson.M{
			"_id":               cartID,
			"state":             domain.CartActive,
			"items.resource_id": resourceID,
		},
		bson.M{
			"$set": bson.M{
				"items.$.quantity": quantity,
				"modified_on":      now,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("set item quantity: %w", err)
	}
	if res.MatchedCount == 0 {
		cart, err := r.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.State != domain.CartActive {
			return domain.ErrCartNotActive
		}
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, cartID, resourceID string) error {
	res, err := r.carts.UpdateOne(ctx,
		bson.M{"_id": cartID, "state": domain.CartActive},
		bson.M{"$pull": bson.M{"items": bson.M{"resource_id": resourceID}}},
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.classifyCartFailure(ctx, cartID)
	}
	return nil
}

// classifyCartFailure works out why an active-only update matched
// nothing.
func (r *CartRepository) classifyCartFailure(ctx context.Context, cartID string) error {
	cart, err := r.Get(ctx, cartID)
	if err != nil {
		return err
	}
	if cart.State != domain.CartActive {
		return domain.ErrCartNotActive
	}
	return fmt.Errorf("cart %s: update matched nothing", cartID)
}

// SetState moves the cart from one state to another, guarded on the
// stored state still being from and the transition being allowed.
func (r *CartRepository) SetState(ctx context.Context, cartID string, from, to domain.CartState, now time.Time) error {
	if !from.CanTransition(to) {
		return domain.ErrStaleState
	}

	res, err := r.carts.UpdateOne(ctx,
		bson.M{"_id": cartID, "state": from},
		bson.M{"$set": bson.M{"state": to, "modified_on": now}},
	)
	if err != nil {
		return fmt.Errorf("set cart state: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, cartID); err != nil {
			return err
		}
		return domain.ErrStaleState
	}
	return nil
}

func (r *CartRepository) FindExpired(ctx context.Context) ([]domain.Cart, error) {
	cur, err := r.carts.Find(ctx, bson.M{"state": domain.CartExpired})
	if err != nil {
		return nil, fmt.Errorf("find expired carts: %w", err)
	}
	defer cur.Close(ctx)

	var carts []domain.Cart
	for cur.Next(ctx) {
		var cart domain.Cart
		if err := cur.Decode(&cart); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		carts = append(carts, cart)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("scan expired carts: %w", err)
	}
	return carts, nil
}

// MarkExpiredBefore expires every active cart untouched since cutoff
// and returns how many it marked.
func (r *CartRepository) MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.carts.UpdateMany(ctx,
		bson.M{
			"state":       domain.CartActive,
			"modified_on": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{"state": domain.CartExpired}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark expired carts: %w", err)
	}
	return int(res.ModifiedCount), nil
}
