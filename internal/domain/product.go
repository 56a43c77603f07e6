package domain

import (
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidProductName  = newError(KindValidation, "product name is required")
	ErrInvalidProductPrice = newError(KindValidation, "product price must be positive")
	ErrProductNotFound     = newError(KindNotFound, "product not found")
)

// Product represents the product entity
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Image       string
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct creates a new product with validation
func NewProduct(name, description, image, category string, price float64) (*Product, error) {
	now := time.Now().UTC()
	product := &Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Price:       price,
		Image:       image,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// Validate performs business validation on the product
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidProductName
	}
	if p.Price <= 0 {
		return ErrInvalidProductPrice
	}
	return nil
}
