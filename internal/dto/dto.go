package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/checkout"
	"github.com/flicky/storefront-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string          `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

type ProfileResponse struct {
	ID    uuid.UUID  `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// --- Catalog ---

type ListStoresRequest struct {
	Search string `form:"search"`
}

type CreateStoreRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description" binding:"required"`
	ManagerID   *uuid.UUID `json:"manager_id"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price"`
}

type DescribeProductRequest struct {
	Name string `json:"name" binding:"required"`
}

type DescribeProductResponse struct {
	Description string `json:"description"`
}

type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	StoreID     uuid.UUID       `json:"store_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
}

type StoreResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	ManagerID   *uuid.UUID        `json:"manager_id"`
	Products    []ProductResponse `json:"products"`
}

type StoreListResponse struct {
	Stores []StoreResponse `json:"stores"`
	Total  int             `json:"total"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

// UpdateCartItemRequest accepts zero and negative quantities; both remove the line.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	TotalItems int                `json:"total_items"`
}

// --- Checkout ---

type CheckoutResponse struct {
	Step      checkout.Step  `json:"step"`
	Address   *model.Address `json:"address,omitempty"`
	CardLast4 string         `json:"card_last4,omitempty"`
	Cart      CartResponse   `json:"cart"`
}

// --- Order ---

type OrderResponse struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Items           []CartItemResponse `json:"items"`
	Total           decimal.Decimal    `json:"total"`
	ShippingAddress model.Address      `json:"shipping_address"`
	CreatedAt       time.Time          `json:"created_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
