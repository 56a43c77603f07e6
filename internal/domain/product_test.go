package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	p, err := NewProduct("Mug", "ceramic", "mug.png", "kitchen", 12.5)
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Mug", p.Name)
	assert.Equal(t, "kitchen", p.Category)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestNewProduct_Validation(t *testing.T) {
	_, err := NewProduct("", "", "", "", 10)
	assert.ErrorIs(t, err, ErrInvalidProductName)

	_, err = NewProduct("Mug", "", "", "", 0)
	assert.ErrorIs(t, err, ErrInvalidProductPrice)
	assert.Equal(t, KindValidation, KindOf(err))
}
