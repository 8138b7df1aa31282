package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleManager    Role = "manager"
	RoleCustomer   Role = "customer"
)

// IsAdmin reports whether the role may open the admin panel.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

type Profile struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Store struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	ImageURL    string
	ManagerID   *uuid.UUID
	Products    []Product
	CreatedAt   time.Time
}

// ManagedBy reports whether the store is assigned to the given manager.
func (s Store) ManagedBy(managerID uuid.UUID) bool {
	return s.ManagerID != nil && *s.ManagerID == managerID
}

type Product struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CreatedAt   time.Time
}

type Address struct {
	FullName string `json:"full_name" validate:"required"`
	Street   string `json:"street" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state" validate:"required"`
	Zip      string `json:"zip" validate:"required"`
	Country  string `json:"country" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Items           []CartItem
	Total           decimal.Decimal
	ShippingAddress Address
	CreatedAt       time.Time
}

// ItemsTotal recomputes the total from the order's item snapshot.
func (o Order) ItemsTotal() decimal.Decimal {
	return Cart{Items: o.Items}.Subtotal()
}

type OrderMessage struct {
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
}
