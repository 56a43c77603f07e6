package domain

import "context"

// ProductRepository defines the contract for product storage
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
}

// CartRepository stores cart line items. Every mutation is keyed by the full
// (ownerID, productID) pair and must be atomic with respect to other
// mutations of the same pair.
type CartRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*CartItem, error)

	// AddQuantity creates the line item or increments the existing one.
	// Sums past domain.MaxQuantity fail with ErrQuantityTooLarge and leave
	// the item unchanged; IncreaseQuantity behaves the same.
	AddQuantity(ctx context.Context, ownerID, productID string, quantity int) (*CartItem, error)

	// IncreaseQuantity returns ErrCartItemNotFound when there is no line item.
	IncreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (*CartItem, error)

	// DecreaseQuantity deletes the line item when the result would be <= 0
	// and reports removed=true. The returned item then carries the quantity
	// it held before the delete.
	DecreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (item *CartItem, removed bool, err error)

	Remove(ctx context.Context, ownerID, productID string) error
	Clear(ctx context.Context, ownerID string) error
}

// UserRepository defines the contract for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context) ([]*User, error)
}
