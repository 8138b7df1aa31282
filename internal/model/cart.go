package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a product snapshot taken when it was added to the cart.
// Its ID is the product ID; the store reference is not carried over.
type CartItem struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Quantity int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds at most one item per product, each with quantity >= 1.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) Add(p Product) {
	for i := range c.Items {
		if c.Items[i].ID == p.ID {
			c.Items[i].Quantity++
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		Quantity: 1,
	})
}

// UpdateQuantity sets the quantity of a line, removing it when quantity <= 0.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.Items {
		if c.Items[i].ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() { c.Items = nil }

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalItems counts units across all lines.
func (c Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Snapshot returns a copy of the items that later cart mutations cannot reach.
func (c Cart) Snapshot() []CartItem {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}
