package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/christkv/copernicus/internal/domain"
)

// OrderRepository stores checkout receipts. The unique index on cart_id
// is the duplicate-checkout guard.
type OrderRepository struct {
	orders *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{orders: db.Collection(collOrders)}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	_, err := r.orders.InsertOne(ctx, order)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrOrderExists
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var order domain.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

// GetByCart returns the cart's order, or nil when checkout never
// finished the insert.
func (r *OrderRepository) GetByCart(ctx context.Context, cartID string) (*domain.Order, error) {
	var order domain.Order
	err := r.orders.FindOne(ctx, bson.M{"cart_id": cartID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by cart: %w", err)
	}
	return &order, nil
}
