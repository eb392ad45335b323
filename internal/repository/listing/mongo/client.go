package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds listing database connection parameters.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Connect opens a client and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect listing database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping listing database: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the geo and filter indexes the search pipeline relies on.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "address.location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "isAvailable", Value: 1}, {Key: "isActive", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "address.city", Value: 1}, {Key: "address.district", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create listing indexes: %w", err)
	}
	return nil
}
