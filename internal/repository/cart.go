package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/model"
)

// CartRepository keeps one cart per browsing session. Carts expire with the
// session and are never written to the database.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (*model.Cart, error)
	Save(ctx context.Context, sessionID string, cart *model.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

type redisCartRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartRepository(rdb *redis.Client, ttl time.Duration) CartRepository {
	return &redisCartRepo{rdb: rdb, ttl: ttl}
}

func cartKey(sessionID string) string { return "cart:" + sessionID }

func (r *redisCartRepo) Get(ctx context.Context, sessionID string) (*model.Cart, error) {
	cart := &model.Cart{}
	data, err := r.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cart, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (r *redisCartRepo) Save(ctx context.Context, sessionID string, cart *model.Cart) error {
	if cart.IsEmpty() {
		return r.Clear(ctx, sessionID)
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.rdb.Set(ctx, cartKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *redisCartRepo) Clear(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
