package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/christkv/copernicus/internal/app"
	"github.com/christkv/copernicus/internal/clock"
	"github.com/christkv/copernicus/internal/domain"
)

// releaseAttempts bounds the read-then-guarded-update retry when a
// concurrent adjust changes the hold between the two steps.
const releaseAttempts = 3

// InventoryRepository stores quantity-based resources. Every hold
// mutation pairs a decrement of available with a hold entry in the same
// update, so available plus the open holds always accounts for the full
// capacity.
type InventoryRepository struct {
	items *mongo.Collection
	clock clock.Clock
}

func NewInventoryRepository(db *mongo.Database, clk clock.Clock) *InventoryRepository {
	return &InventoryRepository{
		items: db.Collection(collInventories),
		clock: clk,
	}
}

func (r *InventoryRepository) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	if item.Holds == nil {
		item.Holds = []domain.Hold{}
	}
	_, err := r.items.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrResourceExists
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *InventoryRepository) GetItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.InventoryItem{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

// Reserve moves quantity from available into a hold owned by holderID,
// provided enough is available and the holder has no hold yet.
func (r *InventoryRepository) Reserve(ctx context.Context, holderID string, req app.ReserveRequest) error {
	hold := domain.Hold{
		HolderID:  holderID,
		Quantity:  req.Quantity,
		CreatedOn: r.clock.Now(),
	}
	res, err := r.items.UpdateOne(ctx,
		bson.M{
			"_id":             req.ResourceID,
			"available":       bson.M{"$gte": req.Quantity},
			"holds.holder_id": bson.M{"$ne": holderID},
		},
		bson.M{
			"$inc":  bson.M{"available": -req.Quantity},
			"$push": bson.M{"holds": hold},
		},
	)
	if err != nil {
		return fmt.Errorf("reserve item: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.classifyReserveFailure(ctx, holderID, req.ResourceID)
	}
	return nil
}

// classifyReserveFailure works out why a guarded reserve matched
// nothing: missing item, a hold this holder already owns, or not enough
// available.
func (r *InventoryRepository) classifyReserveFailure(ctx context.Context, holderID, resourceID string) error {
	item, err := r.GetItem(ctx, resourceID)
	if err != nil {
		return err
	}
	if _, ok := item.HoldFor(holderID); ok {
		return domain.ErrDuplicateHold
	}
	return domain.ErrInsufficientResource
}

// Adjust resizes the holder's hold to quantity, moving delta between
// available and the hold in one update. A positive delta needs that
// much still available.
func (r *InventoryRepository) Adjust(ctx context.Context, holderID, resourceID string, quantity, delta int64) error {
	res, err := r.items.UpdateOne(ctx,
		bson.M{
			"_id":             resourceID,
			"available":       bson.M{"$gte": delta},
			"holds.holder_id": holderID,
		},
		bson.M{
			"$inc": bson.M{"available": -delta},
			"$set": bson.M{"holds.$.quantity": quantity},
		},
	)
	if err != nil {
		return fmt.Errorf("adjust hold: %w", err)
	}
	if res.MatchedCount == 0 {
		item, err := r.GetItem(ctx, resourceID)
		if err != nil {
			return err
		}
		if _, ok := item.HoldFor(holderID); !ok {
			return domain.ErrHoldNotFound
		}
		return domain.ErrInsufficientResource
	}
	return nil
}

// Release gives the hold's quantity back to available and removes the
// hold. Releasing a hold that does not exist is a no-op, which is what
// lets rollback and sweep retries stack safely. The update is guarded
// on the exact quantity read, so a concurrent adjust forces a re-read
// instead of returning the wrong amount.
func (r *InventoryRepository) Release(ctx context.Context, holderID, resourceID string) error {
	for attempt := 0; attempt < releaseAttempts; attempt++ {
		item, err := r.GetItem(ctx, resourceID)
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		hold, ok := item.HoldFor(holderID)
		if !ok {
			return nil
		}

		res, err := r.items.UpdateOne(ctx,
			bson.M{
				"_id": resourceID,
				"holds": bson.M{"$elemMatch": bson.M{
					"holder_id": holderID,
					"quantity":  hold.Quantity,
				}},
			},
			bson.M{
				"$inc":  bson.M{"available": hold.Quantity},
				"$pull": bson.M{"holds": bson.M{"holder_id": holderID}},
			},
		)
		if err != nil {
			return fmt.Errorf("release hold: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return fmt.Errorf("release hold on %s: %w", resourceID, domain.ErrStaleState)
}

// ReleaseAll releases every hold the holder owns across the collection
// and returns how many it released.
func (r *InventoryRepository) ReleaseAll(ctx context.Context, holderID string) (int, error) {
	cur, err := r.items.Find(ctx, bson.M{"holds.holder_id": holderID})
	if err != nil {
		return 0, fmt.Errorf("find holds: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var item domain.InventoryItem
		if err := cur.Decode(&item); err != nil {
			return 0, fmt.Errorf("decode item: %w", err)
		}
		ids = append(ids, item.ID)
	}
	if err := cur.Err(); err != nil {
		return 0, fmt.Errorf("scan holds: %w", err)
	}

	released := 0
	for _, id := range ids {
		if err := r.Release(ctx, holderID, id); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

// CommitAll turns the holder's holds into permanent consumption.
// Available was already decremented at reserve time, so consuming is
// just dropping the hold entries.
func (r *InventoryRepository) CommitAll(ctx context.Context, holderID string) error {
	_, err := r.items.UpdateMany(ctx,
		bson.M{"holds.holder_id": holderID},
		bson.M{"$pull": bson.M{"holds": bson.M{"holder_id": holderID}}},
	)
	if err != nil {
		return fmt.Errorf("commit holds: %w", err)
	}
	return nil
}
