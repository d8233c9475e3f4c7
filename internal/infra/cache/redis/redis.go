package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"stayride/internal/app/middleware"
)

const keyPrefix = "stayride:idem:"

// NewClient connects and pings once.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// IdempotencyStore keeps command outcomes as JSON strings with an expiry.
type IdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	data, err := s.Client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

func (s IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.Client.Set(ctx, keyPrefix+rec.Key, data, ttl).Err()
}

var _ middleware.IdempotencyStore = IdempotencyStore{}
