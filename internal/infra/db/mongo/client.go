package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	listingsCollection      = "agg_listing"
	calendarsCollection     = "agg_calendar"
	bookingsCollection      = "agg_booking"
	modificationsCollection = "agg_modification"
	outboxCollection        = "app_outbox"
	idempotencyCollection   = "app_idempotency"

	pendingPerBookingIndex = "uniq_pending_per_booking"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. The partial
// unique index is what keeps a booking to one pending change request.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		modificationsCollection: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{
				Keys: bson.D{{Key: "booking_id", Value: 1}},
				Options: options.Index().
					SetName(pendingPerBookingIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "pending"}),
			},
		},
	}
	for name, idx := range models {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
