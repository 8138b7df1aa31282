package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
)

const orderHistoryTTL = 60 * time.Second

type OrderService struct {
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
}

func NewOrderService(orderRepo repository.OrderRepository, redisClient *redis.Client) *OrderService {
	return &OrderService{orderRepo: orderRepo, redisClient: redisClient}
}

func orderHistoryKey(userID uuid.UUID) string { return "orders:" + userID.String() }

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

// ListByUserID returns the user's orders, newest first.
func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	key := orderHistoryKey(userID)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, key).Bytes(); err == nil {
			var orders []model.Order
			if json.Unmarshal(cached, &orders) == nil {
				return orders, nil
			}
		}
	}

	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(orders); err == nil {
			s.redisClient.Set(ctx, key, data, orderHistoryTTL)
		}
	}
	return orders, nil
}

// InvalidateHistory drops the cached order list for a user.
func (s *OrderService) InvalidateHistory(ctx context.Context, userID uuid.UUID) error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.Del(ctx, orderHistoryKey(userID)).Err()
}
