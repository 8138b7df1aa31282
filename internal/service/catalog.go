package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
)

const (
	storesCacheKey = "stores:all"
	storesCacheTTL = 60 * time.Second
)

type CatalogService struct {
	storeRepo   repository.StoreRepository
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewCatalogService(
	storeRepo repository.StoreRepository,
	productRepo repository.ProductRepository,
	redisClient *redis.Client,
) *CatalogService {
	return &CatalogService{storeRepo: storeRepo, productRepo: productRepo, redisClient: redisClient}
}

// ListStores returns stores ordered by name whose name contains search,
// ignoring case. An empty search matches everything.
func (s *CatalogService) ListStores(ctx context.Context, search string) ([]model.Store, error) {
	stores, err := s.allStores(ctx)
	if err != nil {
		return nil, err
	}
	return FilterStores(stores, search), nil
}

// FilterStores keeps the stores whose name contains query, ignoring case.
func FilterStores(stores []model.Store, query string) []model.Store {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return stores
	}
	out := make([]model.Store, 0, len(stores))
	for _, st := range stores {
		if strings.Contains(strings.ToLower(st.Name), query) {
			out = append(out, st)
		}
	}
	return out
}

func (s *CatalogService) allStores(ctx context.Context) ([]model.Store, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, storesCacheKey).Bytes(); err == nil {
			var stores []model.Store
			if json.Unmarshal(cached, &stores) == nil {
				return stores, nil
			}
		}
	}

	stores, err := s.storeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(stores); err == nil {
			s.redisClient.Set(ctx, storesCacheKey, data, storesCacheTTL)
		}
	}
	return stores, nil
}

func (s *CatalogService) GetStore(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	return store, nil
}

func (s *CatalogService) CreateStore(ctx context.Context, req dto.CreateStoreRequest) (*model.Store, error) {
	storeSlug := slug.Make(req.Name)
	store := &model.Store{
		Name:        req.Name,
		Slug:        storeSlug,
		Description: req.Description,
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/600/400", storeSlug),
		ManagerID:   req.ManagerID,
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	s.invalidate(ctx)
	return store, nil
}

func (s *CatalogService) DeleteStore(ctx context.Context, id uuid.UUID) error {
	if err := s.storeRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStoreNotFound
		}
		return fmt.Errorf("delete store: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) AddProduct(ctx context.Context, storeID uuid.UUID, req dto.CreateProductRequest) (*model.Product, error) {
	if req.Price.LessThan(decimal.Zero) {
		return nil, ErrInvalidPrice
	}
	id := uuid.New()
	product := &model.Product{
		ID:          id,
		StoreID:     storeID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/400/300", id),
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, storeID, productID uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, storeID, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, storesCacheKey)
	}
}
