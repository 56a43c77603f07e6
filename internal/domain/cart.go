package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOwnerRequired    = newError(KindUnauthenticated, "unauthorized")
	ErrInvalidProductID = newError(KindValidation, "productId is missing or malformed")
	ErrInvalidQuantity  = newError(KindValidation, "quantity must be a positive integer")
	ErrQuantityTooLarge = newError(KindValidation, "quantity must not exceed 2147483647")
	ErrCartItemNotFound = newError(KindNotFound, "product not in cart")
)

// MaxQuantity bounds a line item's quantity. It matches the INTEGER column
// of the relational store so every backend rejects the same inputs.
const MaxQuantity = math.MaxInt32

// CartItem is one product's presence in one owner's cart. A stored item
// always has Quantity >= 1 and is unique per (OwnerID, ProductID).
type CartItem struct {
	ID        string
	OwnerID   string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Product is joined in for display and is nil until the service loads it.
	Product *Product
}

// NewCartItem builds a fresh line item for the first add of a product.
func NewCartItem(ownerID, productID string, quantity int) *CartItem {
	now := time.Now().UTC()
	return &CartItem{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateProductID rejects empty and non-UUID product identifiers.
func ValidateProductID(productID string) error {
	if productID == "" {
		return ErrInvalidProductID
	}
	if _, err := uuid.Parse(productID); err != nil {
		return ErrInvalidProductID
	}
	return nil
}

// ValidateLineInput checks the (productId, quantity) pair shared by add,
// increase and decrease.
func ValidateLineInput(productID string, quantity int) error {
	if err := ValidateProductID(productID); err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}

// AddQuantities returns current+delta, or ErrQuantityTooLarge when the sum
// would pass MaxQuantity. Both operands must already be valid quantities.
func AddQuantities(current, delta int) (int, error) {
	if current > MaxQuantity-delta {
		return 0, ErrQuantityTooLarge
	}
	return current + delta, nil
}
