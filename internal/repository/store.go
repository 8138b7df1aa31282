package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/storefront-api/internal/model"
)

type StoreRepository interface {
	// List returns every store ordered by name, products included.
	List(ctx context.Context) ([]model.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error)
	Create(ctx context.Context, store *model.Store) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgStoreRepo struct{ pool *pgxpool.Pool }

func NewStoreRepository(pool *pgxpool.Pool) StoreRepository {
	return &pgStoreRepo{pool: pool}
}

const storeColumns = `id, name, slug, description, image_url, manager_id, created_at`

func scanStore(row pgx.Row, s *model.Store) error {
	return row.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.ImageURL, &s.ManagerID, &s.CreatedAt)
}

func (r *pgStoreRepo) List(ctx context.Context) ([]model.Store, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		var s model.Store
		if err := scanStore(rows, &s); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	if err := r.attachProducts(ctx, stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *pgStoreRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	s := &model.Store{}
	err := scanStore(r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id), s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	stores := []model.Store{*s}
	if err := r.attachProducts(ctx, stores); err != nil {
		return nil, err
	}
	return &stores[0], nil
}

func (r *pgStoreRepo) attachProducts(ctx context.Context, stores []model.Store) error {
	if len(stores) == 0 {
		return nil
	}
	ids := make([]string, len(stores))
	index := make(map[uuid.UUID]int, len(stores))
	for i, s := range stores {
		ids[i] = s.ID.String()
		index[s.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = ANY($1::uuid[]) ORDER BY created_at`, ids,
	)
	if err != nil {
		return fmt.Errorf("list store products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return fmt.Errorf("scan product: %w", err)
		}
		i := index[p.StoreID]
		stores[i].Products = append(stores[i].Products, p)
	}
	return rows.Err()
}

func (r *pgStoreRepo) Create(ctx context.Context, store *model.Store) error {
	store.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stores (id, name, slug, description, image_url, manager_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		store.ID, store.Name, store.Slug, store.Description, store.ImageURL, store.ManagerID,
	).Scan(&store.CreatedAt)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	return nil
}

// Delete removes the store; its products go with it via ON DELETE CASCADE.
func (r *pgStoreRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
