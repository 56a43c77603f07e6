package dto

import (
	"time"

	"github.com/mrops-br/shop-cart-api/internal/domain"
)

// CartLineRequest is the body of add, increase and decrease.
type CartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartItemResponse is a line item, joined with its product when available.
type CartItemResponse struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Product   *ProductResponse `json:"product,omitempty"`
}

// CartRemovalResponse signals that a decrease went through zero and the line
// item no longer exists.
type CartRemovalResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartMessageResponse confirms remove and clear.
type CartMessageResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"productId,omitempty"`
}

func ToCartItemResponse(item *domain.CartItem) *CartItemResponse {
	resp := &CartItemResponse{
		ID:        item.ID,
		UserID:    item.OwnerID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Product != nil {
		resp.Product = ToProductResponse(item.Product)
	}
	return resp
}

func ToCartItemResponseList(items []*domain.CartItem) []*CartItemResponse {
	responses := make([]*CartItemResponse, len(items))
	for i, item := range items {
		responses[i] = ToCartItemResponse(item)
	}
	return responses
}
