package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/shop-cart-api/internal/app/dto"
	"github.com/mrops-br/shop-cart-api/internal/app/service"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/middleware"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/response"
)

// CartHandler serves the authenticated owner's cart. It must be mounted
// behind middleware.Authenticate.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, items)
}

// Add handles POST /api/cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.CartLineRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	item, err := h.service.Add(r.Context(), middleware.OwnerID(r.Context()), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// Increase handles POST /api/cart/increase
func (h *CartHandler) Increase(w http.ResponseWriter, r *http.Request) {
	var req dto.CartLineRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	item, err := h.service.Increase(r.Context(), middleware.OwnerID(r.Context()), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, item)
}

// Decrease handles POST /api/cart/decrease. A line item that reaches zero is
// reported as {productId, quantity: 0}.
func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	var req dto.CartLineRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	item, removed, err := h.service.Decrease(r.Context(), middleware.OwnerID(r.Context()), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	if removed {
		response.JSON(w, http.StatusOK, dto.CartRemovalResponse{ProductID: req.ProductID, Quantity: 0})
		return
	}
	response.JSON(w, http.StatusOK, item)
}

// Remove handles DELETE /api/cart/{productId}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	if err := h.service.Remove(r.Context(), middleware.OwnerID(r.Context()), productID); err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.CartMessageResponse{
		Message:   "Product removed from cart",
		ProductID: productID,
	})
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), middleware.OwnerID(r.Context())); err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.CartMessageResponse{Message: "Cart cleared"})
}
