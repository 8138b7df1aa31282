package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrManagerNotFound    = errors.New("manager not found")
)

type AuthService struct {
	profileRepo repository.ProfileRepository
	denylist    repository.TokenDenylist
	jwtSecret   []byte
	jwtExpiry   time.Duration
}

func NewAuthService(
	profileRepo repository.ProfileRepository,
	denylist repository.TokenDenylist,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		denylist:    denylist,
		jwtSecret:   []byte(jwtSecret),
		jwtExpiry:   jwtExpiry,
	}
}

// Register creates a customer profile. Admin roles are only assigned out of band.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &model.Profile{Email: email, PasswordHash: string(hashed), Role: model.RoleCustomer}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Profile: ToProfileResponse(profile)}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, Profile: ToProfileResponse(profile)}, nil
}

// Logout revokes the token until it would have expired on its own.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	return s.denylist.Revoke(ctx, tokenID, time.Until(expiresAt))
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (s *AuthService) generateToken(profile *model.Profile) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  profile.ID.String(),
		"role": string(profile.Role),
		"jti":  uuid.NewString(),
		"exp":  now.Add(s.jwtExpiry).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func ToProfileResponse(profile *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{ID: profile.ID, Email: profile.Email, Role: profile.Role}
}
