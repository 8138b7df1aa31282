package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*model.Cart, error) {
	return s.cartRepo.Get(ctx, sessionID)
}

// AddItem adds one unit of the product, creating the line if needed.
func (s *CartService) AddItem(ctx context.Context, sessionID string, productID uuid.UUID) (*model.Cart, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return s.mutate(ctx, sessionID, func(c *model.Cart) { c.Add(*product) })
}

func (s *CartService) UpdateItem(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*model.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *model.Cart) { c.UpdateQuantity(productID, quantity) })
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (*model.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *model.Cart) { c.Remove(productID) })
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.cartRepo.Clear(ctx, sessionID)
}

func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*model.Cart)) (*model.Cart, error) {
	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	fn(cart)
	if err := s.cartRepo.Save(ctx, sessionID, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}
