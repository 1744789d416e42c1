package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// ReceiptCache stores rendered receipts by transaction code so a repeated
// reconcile of a settled sale replays the first receipt.
type ReceiptCache struct {
	RDB *redis.Client
}

func (c *ReceiptCache) Get(ctx context.Context, code string) ([]byte, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyReceipt, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *ReceiptCache) Put(ctx context.Context, code string, b []byte) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyReceipt, code), b, TTLReceipt).Err()
}

// Dedup marks event ids as processed for one consumer service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// FirstSeen atomically claims id. It reports false when the id was already
// claimed within TTLDedup.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Release drops a claim so a failed message can be retried.
func (d *Dedup) Release(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
