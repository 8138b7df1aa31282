package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/checkout"
)

type CheckoutRepository interface {
	Get(ctx context.Context, sessionID string) (*checkout.Sequencer, error)
	Save(ctx context.Context, sessionID string, seq *checkout.Sequencer) error
	Reset(ctx context.Context, sessionID string) error
	// Lock marks an order submission as in flight and returns the token
	// that owns it. ok is false when another submission holds the lock.
	Lock(ctx context.Context, sessionID string) (token string, ok bool, err error)
	// Unlock releases the lock only while token still owns it.
	Unlock(ctx context.Context, sessionID, token string) error
}

type redisCheckoutRepo struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewCheckoutRepository(rdb *redis.Client, ttl, lockTTL time.Duration) CheckoutRepository {
	return &redisCheckoutRepo{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func checkoutKey(sessionID string) string     { return "checkout:" + sessionID }
func checkoutLockKey(sessionID string) string { return "checkout:lock:" + sessionID }

func (r *redisCheckoutRepo) Get(ctx context.Context, sessionID string) (*checkout.Sequencer, error) {
	data, err := r.rdb.Get(ctx, checkoutKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return checkout.New(), nil
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	seq := checkout.New()
	if err := json.Unmarshal(data, seq); err != nil {
		return nil, fmt.Errorf("decode checkout: %w", err)
	}
	return seq, nil
}

func (r *redisCheckoutRepo) Save(ctx context.Context, sessionID string, seq *checkout.Sequencer) error {
	data, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode checkout: %w", err)
	}
	if err := r.rdb.Set(ctx, checkoutKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save checkout: %w", err)
	}
	return nil
}

func (r *redisCheckoutRepo) Reset(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, checkoutKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("reset checkout: %w", err)
	}
	return nil
}

func (r *redisCheckoutRepo) Lock(ctx context.Context, sessionID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, checkoutLockKey(sessionID), token, r.lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock checkout: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// releaseLock deletes the key only if it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *redisCheckoutRepo) Unlock(ctx context.Context, sessionID, token string) error {
	if err := releaseLock.Run(ctx, r.rdb, []string{checkoutLockKey(sessionID)}, token).Err(); err != nil {
		return fmt.Errorf("unlock checkout: %w", err)
	}
	return nil
}
