package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	idemPort "flowforge/internal/ports/idempotency"

	"github.com/go-redis/redis/v8"
)

// IdempotencyRepositoryRedis implements the idempotency store port on Redis.
// SetNX gives the atomic check-and-set reserve; the reservation TTL bounds
// how long a crashed caller can hold a key.
type IdempotencyRepositoryRedis struct {
	Client *redis.Client
}

func NewIdempotencyRepositoryRedis(client *redis.Client) *IdempotencyRepositoryRedis {
	return &IdempotencyRepositoryRedis{Client: client}
}

func key(scope, k string) string {
	return "idempotency:" + scope + ":" + k
}

func (r *IdempotencyRepositoryRedis) Reserve(ctx context.Context, k, scope, requestHash string) (idemPort.Result, error) {
	record := idemPort.Record{
		State:       idemPort.StateReserved,
		RequestHash: requestHash,
		CreatedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return idemPort.Result{}, err
	}

	ok, err := r.Client.SetNX(ctx, key(scope, k), raw, idemPort.ReservationTTL).Result()
	if err != nil {
		return idemPort.Result{}, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return idemPort.Result{Fresh: true}, nil
	}

	existing, err := r.Client.Get(ctx, key(scope, k)).Bytes()
	if err == redis.Nil {
		// Reservation expired between SetNX and Get; treat as retryable.
		return idemPort.Result{Fresh: false, Record: nil}, nil
	}
	if err != nil {
		return idemPort.Result{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	var prior idemPort.Record
	if err := json.Unmarshal(existing, &prior); err != nil {
		return idemPort.Result{}, fmt.Errorf("idempotency record decode: %w", err)
	}
	return idemPort.Result{Fresh: false, Record: &prior}, nil
}

func (r *IdempotencyRepositoryRedis) Commit(ctx context.Context, k, scope, requestHash string, httpStatus int, body []byte) error {
	record := idemPort.Record{
		State:       idemPort.StateCommitted,
		RequestHash: requestHash,
		HTTPStatus:  httpStatus,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(scope, k), raw, idemPort.CommitTTL).Err()
}

func (r *IdempotencyRepositoryRedis) Release(ctx context.Context, k, scope string) error {
	return r.Client.Del(ctx, key(scope, k)).Err()
}
