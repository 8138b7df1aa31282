package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/ai"
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrStoreAccessDenied = errors.New("store access denied")
	ErrForbidden         = errors.New("forbidden")
	ErrEmptyProductName  = errors.New("product name is required")
)

// VisibleStores narrows stores to the ones the profile may administer.
// Super-admins see everything, managers see their own stores and every
// other role sees nothing.
func VisibleStores(profile model.Profile, stores []model.Store) []model.Store {
	switch profile.Role {
	case model.RoleSuperAdmin:
		return stores
	case model.RoleManager:
		out := make([]model.Store, 0)
		for _, st := range stores {
			if st.ManagedBy(profile.ID) {
				out = append(out, st)
			}
		}
		return out
	default:
		return []model.Store{}
	}
}

// CanManage checks that storeID is among the profile's visible stores.
func CanManage(profile model.Profile, storeID uuid.UUID, stores []model.Store) error {
	for _, st := range VisibleStores(profile, stores) {
		if st.ID == storeID {
			return nil
		}
	}
	for _, st := range stores {
		if st.ID == storeID {
			return ErrStoreAccessDenied
		}
	}
	return ErrStoreNotFound
}

// AdminService runs admin panel operations for a given profile. Every write
// re-checks scope against freshly loaded stores.
type AdminService struct {
	catalog     *CatalogService
	storeRepo   repository.StoreRepository
	profileRepo repository.ProfileRepository
	describer   *ai.Describer
}

func NewAdminService(
	catalog *CatalogService,
	storeRepo repository.StoreRepository,
	profileRepo repository.ProfileRepository,
	describer *ai.Describer,
) *AdminService {
	return &AdminService{catalog: catalog, storeRepo: storeRepo, profileRepo: profileRepo, describer: describer}
}

func (s *AdminService) ListStores(ctx context.Context, profile model.Profile) ([]model.Store, error) {
	stores, err := s.storeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return VisibleStores(profile, stores), nil
}

func (s *AdminService) CreateStore(ctx context.Context, profile model.Profile, req dto.CreateStoreRequest) (*model.Store, error) {
	if profile.Role != model.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	if req.ManagerID != nil {
		manager, err := s.profileRepo.GetByID(ctx, *req.ManagerID)
		if err != nil {
			return nil, fmt.Errorf("get manager: %w", err)
		}
		if manager == nil || manager.Role != model.RoleManager {
			return nil, ErrManagerNotFound
		}
	}
	return s.catalog.CreateStore(ctx, req)
}

func (s *AdminService) DeleteStore(ctx context.Context, profile model.Profile, storeID uuid.UUID) error {
	if profile.Role != model.RoleSuperAdmin {
		return ErrForbidden
	}
	return s.catalog.DeleteStore(ctx, storeID)
}

func (s *AdminService) AddProduct(ctx context.Context, profile model.Profile, storeID uuid.UUID, req dto.CreateProductRequest) (*model.Product, error) {
	if err := s.authorize(ctx, profile, storeID); err != nil {
		return nil, err
	}
	return s.catalog.AddProduct(ctx, storeID, req)
}

func (s *AdminService) DeleteProduct(ctx context.Context, profile model.Profile, storeID, productID uuid.UUID) error {
	if err := s.authorize(ctx, profile, storeID); err != nil {
		return err
	}
	return s.catalog.DeleteProduct(ctx, storeID, productID)
}

func (s *AdminService) ListManagers(ctx context.Context, profile model.Profile) ([]model.Profile, error) {
	if profile.Role != model.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	managers, err := s.profileRepo.ListByRole(ctx, model.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	return managers, nil
}

// Describe drafts a product description. Generator failures come back as
// displayable fallback text, never as errors.
func (s *AdminService) Describe(ctx context.Context, productName string) (string, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return "", ErrEmptyProductName
	}
	return s.describer.Generate(ctx, productName), nil
}

func (s *AdminService) authorize(ctx context.Context, profile model.Profile, storeID uuid.UUID) error {
	stores, err := s.storeRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	return CanManage(profile, storeID, stores)
}
