package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"splitbills-backend/ledger"
)

// PlanCache stores computed settle-up plans per group under a generation
// number. Invalidate bumps the generation, so a plan computed from a snapshot
// read before the bump is stored under a key no later reader asks for.
type PlanCache interface {
	Generation(ctx context.Context, groupID uuid.UUID) (int64, error)
	Get(ctx context.Context, groupID uuid.UUID, gen int64) ([]ledger.Transfer, bool, error)
	Set(ctx context.Context, groupID uuid.UUID, gen int64, transfers []ledger.Transfer) error
	Invalidate(ctx context.Context, groupID uuid.UUID) error
}

type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	return &RedisPlanCache{client: client, ttl: ttl}
}

func genKey(groupID uuid.UUID) string {
	return "splitbills:settle-up:" + groupID.String() + ":gen"
}

func planKey(groupID uuid.UUID, gen int64) string {
	return "splitbills:settle-up:" + groupID.String() + ":" + strconv.FormatInt(gen, 10)
}

// Generation returns the group's current plan generation. A group that was
// never invalidated is at generation zero.
func (c *RedisPlanCache) Generation(ctx context.Context, groupID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(groupID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get plan generation: %w", err)
	}
	return gen, nil
}

func (c *RedisPlanCache) Get(ctx context.Context, groupID uuid.UUID, gen int64) ([]ledger.Transfer, bool, error) {
	raw, err := c.client.Get(ctx, planKey(groupID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached plan: %w", err)
	}
	var transfers []ledger.Transfer
	if err := json.Unmarshal(raw, &transfers); err != nil {
		return nil, false, fmt.Errorf("decode cached plan: %w", err)
	}
	return transfers, true, nil
}

func (c *RedisPlanCache) Set(ctx context.Context, groupID uuid.UUID, gen int64, transfers []ledger.Transfer) error {
	raw, err := json.Marshal(transfers)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := c.client.Set(ctx, planKey(groupID, gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache plan: %w", err)
	}
	return nil
}

// Invalidate moves the group to a new generation. Plans stored under older
// generations are left to expire.
func (c *RedisPlanCache) Invalidate(ctx context.Context, groupID uuid.UUID) error {
	if err := c.client.Incr(ctx, genKey(groupID)).Err(); err != nil {
		return fmt.Errorf("bump plan generation: %w", err)
	}
	return nil
}

type nopCache struct{}

func (nopCache) Generation(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (nopCache) Get(context.Context, uuid.UUID, int64) ([]ledger.Transfer, bool, error) {
	return nil, false, nil
}
func (nopCache) Set(context.Context, uuid.UUID, int64, []ledger.Transfer) error { return nil }
func (nopCache) Invalidate(context.Context, uuid.UUID) error                    { return nil }
