package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mrops-br/shop-cart-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ domain.CartRepository = (*CartRepository)(nil)

// ownerCart holds one owner's line items keyed by product ID. Its mutex
// serializes every read-modify-write on that owner's items.
type ownerCart struct {
	mu    sync.Mutex
	items map[string]*domain.CartItem
}

// CartRepository is an in-memory domain.CartRepository sharded by owner, so
// mutations of different owners never wait on each other.
type CartRepository struct {
	mu     sync.RWMutex
	carts  map[string]*ownerCart
	tracer trace.Tracer
	logger *slog.Logger
}

// NewCartRepository creates a new in-memory cart repository
func NewCartRepository(tracer trace.Tracer, logger *slog.Logger) *CartRepository {
	return &CartRepository{
		carts:  make(map[string]*ownerCart),
		tracer: tracer,
		logger: logger,
	}
}

// lookup returns the owner's cart without creating one.
func (r *CartRepository) lookup(ownerID string) (*ownerCart, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[ownerID]
	return cart, ok
}

func (r *CartRepository) cartFor(ownerID string) *ownerCart {
	r.mu.RLock()
	cart, ok := r.carts[ownerID]
	r.mu.RUnlock()
	if ok {
		return cart
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cart, ok = r.carts[ownerID]; ok {
		return cart
	}
	cart = &ownerCart{items: make(map[string]*domain.CartItem)}
	r.carts[ownerID] = cart
	return cart
}

func (r *CartRepository) startSpan(ctx context.Context, name, ownerID, productID string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("cart.owner_id", ownerID))
	if productID != "" {
		span.SetAttributes(attribute.String("product.id", productID))
	}
	return ctx, span
}

func snapshot(item *domain.CartItem) *domain.CartItem {
	c := *item
	return &c
}

// ListByOwner returns the owner's line items in insertion order.
func (r *CartRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CartItem, error) {
	_, span := r.startSpan(ctx, "CartRepository.ListByOwner", ownerID, "")
	defer span.End()

	cart, ok := r.lookup(ownerID)
	if !ok {
		return []*domain.CartItem{}, nil
	}
	cart.mu.Lock()
	items := make([]*domain.CartItem, 0, len(cart.items))
	for _, item := range cart.items {
		items = append(items, snapshot(item))
	}
	cart.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	span.SetAttributes(attribute.Int("cart.item_count", len(items)))
	return items, nil
}

// AddQuantity creates the line item or increments the existing one.
func (r *CartRepository) AddQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.AddQuantity", ownerID, productID)
	defer span.End()

	cart := r.cartFor(ownerID)
	cart.mu.Lock()
	defer cart.mu.Unlock()

	item, ok := cart.items[productID]
	if !ok {
		item = domain.NewCartItem(ownerID, productID, quantity)
		cart.items[productID] = item
		r.logger.DebugContext(ctx, "Cart item created in repository",
			slog.String("owner_id", ownerID),
			slog.String("product_id", productID),
		)
		return snapshot(item), nil
	}

	sum, err := domain.AddQuantities(item.Quantity, quantity)
	if err != nil {
		return nil, err
	}
	item.Quantity = sum
	item.UpdatedAt = time.Now().UTC()
	return snapshot(item), nil
}

// IncreaseQuantity increments an existing line item.
func (r *CartRepository) IncreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, error) {
	_, span := r.startSpan(ctx, "CartRepository.IncreaseQuantity", ownerID, productID)
	defer span.End()

	cart, ok := r.lookup(ownerID)
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}
	cart.mu.Lock()
	defer cart.mu.Unlock()

	item, ok := cart.items[productID]
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}

	sum, err := domain.AddQuantities(item.Quantity, quantity)
	if err != nil {
		return nil, err
	}
	item.Quantity = sum
	item.UpdatedAt = time.Now().UTC()
	return snapshot(item), nil
}

// DecreaseQuantity decrements an existing line item, deleting it when the
// remainder is not positive. A deleted item is returned as it was before the
// delete.
func (r *CartRepository) DecreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, bool, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.DecreaseQuantity", ownerID, productID)
	defer span.End()

	cart, ok := r.lookup(ownerID)
	if !ok {
		return nil, false, domain.ErrCartItemNotFound
	}
	cart.mu.Lock()
	defer cart.mu.Unlock()

	item, ok := cart.items[productID]
	if !ok {
		return nil, false, domain.ErrCartItemNotFound
	}

	remaining := item.Quantity - quantity
	if remaining <= 0 {
		delete(cart.items, productID)
		r.logger.DebugContext(ctx, "Cart item removed by decrease",
			slog.String("owner_id", ownerID),
			slog.String("product_id", productID),
		)
		return snapshot(item), true, nil
	}

	item.Quantity = remaining
	item.UpdatedAt = time.Now().UTC()
	return snapshot(item), false, nil
}

// Remove deletes the owner's line item for productID.
func (r *CartRepository) Remove(ctx context.Context, ownerID, productID string) error {
	_, span := r.startSpan(ctx, "CartRepository.Remove", ownerID, productID)
	defer span.End()

	cart, ok := r.lookup(ownerID)
	if !ok {
		return domain.ErrCartItemNotFound
	}
	cart.mu.Lock()
	defer cart.mu.Unlock()

	if _, ok := cart.items[productID]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(cart.items, productID)
	return nil
}

// Clear deletes every line item of the owner.
func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	_, span := r.startSpan(ctx, "CartRepository.Clear", ownerID, "")
	defer span.End()

	cart, ok := r.lookup(ownerID)
	if !ok {
		return nil
	}
	cart.mu.Lock()
	span.SetAttributes(attribute.Int("cart.cleared_count", len(cart.items)))
	cart.items = make(map[string]*domain.CartItem)
	cart.mu.Unlock()
	return nil
}
