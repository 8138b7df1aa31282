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

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
}

type pgProfileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &pgProfileRepo{pool: pool}
}

func (r *pgProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	profile.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		profile.ID, profile.Email, profile.PasswordHash, string(profile.Role),
	).Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *pgProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, role, created_at FROM profiles WHERE id = $1`, id)
}

func (r *pgProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getOne(ctx, `SELECT id, email, password_hash, role, created_at FROM profiles WHERE email = $1`, email)
}

func (r *pgProfileRepo) getOne(ctx context.Context, query string, arg any) (*model.Profile, error) {
	p := &model.Profile{}
	var role string
	err := r.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Email, &p.PasswordHash, &role, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Role = model.Role(role)
	return p, nil
}

func (r *pgProfileRepo) ListByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, role, created_at FROM profiles WHERE role = $1 ORDER BY email`, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		var roleName string
		if err := rows.Scan(&p.ID, &p.Email, &roleName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Role = model.Role(roleName)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
