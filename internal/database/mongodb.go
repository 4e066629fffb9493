package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
	"github.com/lexsite/lexsite/backend/go-services/pkg/retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry tolerates startup races with the database container:
// up to attempts connections, doubling the wait from one second.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int) (*mongo.Client, error) {
	var client *mongo.Client
	policy := retry.Policy{
		Retryer: retry.NewExponentialBackoffRetryer(time.Second, attempts),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		c, err := ConnectMongo(ctx, uri, timeout)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
