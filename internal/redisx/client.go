package redisx

import (
	"context"
	"encoding/json"
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

// Idempotency remembers which order a member's Idempotency-Key produced.
type Idempotency struct {
	RDB *redis.Client
}

// Begin claims the key. When it was claimed before, Begin returns the order
// id stored by Complete, or "" while the first request is still running.
func (i Idempotency) Begin(ctx context.Context, memberID, key string) (claimed bool, orderID string, err error) {
	k := fmt.Sprintf(KeyIdemOrderPlace, memberID, key)
	ok, err := i.RDB.SetNX(ctx, k, inFlight, TTLIdempotency).Result()
	if err != nil || ok {
		return ok, "", err
	}
	v, err := i.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the caller retry
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if v == inFlight {
		v = ""
	}
	return false, v, nil
}

func (i Idempotency) Complete(ctx context.Context, memberID, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, memberID, key), orderID, TTLIdempotency).Err()
}

// Abort frees the key after a failed request so the client may retry it.
func (i Idempotency) Abort(ctx context.Context, memberID, key string) error {
	return i.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderPlace, memberID, key)).Err()
}

type CachedStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache is a short-lived read-through cache of order status.
type StatusCache struct {
	RDB *redis.Client
}

func (c StatusCache) Put(ctx context.Context, orderID string, s CachedStatus) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

// Get reports ok=false on a miss.
func (c StatusCache) Get(ctx context.Context, orderID string) (CachedStatus, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var s CachedStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return CachedStatus{}, false, err
	}
	return s, true, nil
}

// Dedup drops redelivered events per consumer.
type Dedup struct {
	RDB      *redis.Client
	Consumer string
}

// FirstSeen marks id as processed and reports whether this call was the first.
func (d Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Consumer, id), 1, TTLDedup).Result()
}

// Forget undoes FirstSeen when processing failed and the event will be retried.
func (d Dedup) Forget(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Consumer, id)).Err()
}
