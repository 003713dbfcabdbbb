// Package mongo persists the ledger, resource and cart collections. All
// writes are single-document conditional updates; nothing here opens a
// multi-document transaction.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collAccounts     = "accounts"
	collTransactions = "transactions"
	collInventories  = "inventories"
	collTheaters     = "theaters"
	collSessions     = "sessions"
	collCarts        = "carts"
	collOrders       = "orders"
)

// Connect dials the server, verifies it with a ping and returns the
// database handle together with a disconnect function.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(database), client.Disconnect, nil
}

// EnsureIndexes creates the indexes the conditional updates and the
// sweeper rely on. The unique index on orders.cart_id is load-bearing:
// it is what turns a checkout replay into a detectable duplicate.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	holderIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "holds.holder_id", Value: 1}},
	}
	for _, coll := range []string{collInventories, collSessions} {
		if _, err := db.Collection(coll).Indexes().CreateOne(ctx, holderIdx); err != nil {
			return fmt.Errorf("index %s holds.holder_id: %w", coll, err)
		}
	}

	if _, err := db.Collection(collCarts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "state", Value: 1}, {Key: "modified_on", Value: 1}},
	}); err != nil {
		return fmt.Errorf("index carts state: %w", err)
	}

	if _, err := db.Collection(collOrders).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "cart_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index orders cart_id: %w", err)
	}

	if _, err := db.Collection(collTransactions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "state", Value: 1}},
	}); err != nil {
		return fmt.Errorf("index transactions state: %w", err)
	}

	return nil
}
