package handler

import (
	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/service"
)

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
	}
}

func toStoreResponse(s *model.Store) dto.StoreResponse {
	products := make([]dto.ProductResponse, 0, len(s.Products))
	for i := range s.Products {
		products = append(products, toProductResponse(&s.Products[i]))
	}
	return dto.StoreResponse{
		ID:          s.ID,
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		ManagerID:   s.ManagerID,
		Products:    products,
	}
}

func toStoreListResponse(stores []model.Store) dto.StoreListResponse {
	items := make([]dto.StoreResponse, 0, len(stores))
	for i := range stores {
		items = append(items, toStoreResponse(&stores[i]))
	}
	return dto.StoreListResponse{Stores: items, Total: len(items)}
}

func toCartItems(items []model.CartItem) []dto.CartItemResponse {
	out := make([]dto.CartItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.CartItemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return out
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	return dto.CartResponse{
		Items:      toCartItems(cart.Items),
		Subtotal:   cart.Subtotal(),
		TotalItems: cart.TotalItems(),
	}
}

func toCheckoutResponse(state *service.CheckoutState) dto.CheckoutResponse {
	return dto.CheckoutResponse{
		Step:      state.Sequencer.Current(),
		Address:   state.Sequencer.Address,
		CardLast4: state.Sequencer.CardLast,
		Cart:      toCartResponse(state.Cart),
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           toCartItems(order.Items),
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		CreatedAt:       order.CreatedAt,
	}
}
