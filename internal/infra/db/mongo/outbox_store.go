package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "stayride/internal/app/outbox"
	infraoutbox "stayride/internal/infra/outbox"
)

// OutboxStore writes events in the caller's session so they commit with the
// aggregates, and serves the relay through Claim/MarkSent/MarkFailed.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	col := db.Collection(outboxCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &OutboxStore{col: col}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	doc := infraoutbox.Message{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	now := time.Now().UTC()
	filter := bson.M{"state": bson.M{"$in": []string{infraoutbox.StateNew, infraoutbox.StateFailed}}, "next_attempt_at": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"state": infraoutbox.StateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var msg infraoutbox.Message
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": infraoutbox.StateSent, "sent_at": time.Now().UTC()}})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           infraoutbox.StateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
