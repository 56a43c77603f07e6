package memory

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

func newTestCartRepository() *CartRepository {
	return NewCartRepository(noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))
}

func TestCartRepository_AddCoalesces(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	first, err := repo.AddQuantity(ctx, owner, product, 3)
	require.NoError(t, err)
	second, err := repo.AddQuantity(ctx, owner, product, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartRepository_ReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	item, err := repo.AddQuantity(ctx, owner, product, 1)
	require.NoError(t, err)
	item.Quantity = 99

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCartRepository_IncreaseMissing(t *testing.T) {
	repo := newTestCartRepository()

	_, err := repo.IncreaseQuantity(context.Background(), "owner", uuid.NewString(), 1)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
}

func TestCartRepository_DecreaseRemovesAtZeroAndBelow(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner := uuid.NewString()
	exact, past := uuid.NewString(), uuid.NewString()

	_, err := repo.AddQuantity(ctx, owner, exact, 2)
	require.NoError(t, err)
	_, err = repo.AddQuantity(ctx, owner, past, 2)
	require.NoError(t, err)

	item, removed, err := repo.DecreaseQuantity(ctx, owner, exact, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	require.NotNil(t, item)
	assert.Equal(t, 2, item.Quantity)

	item, removed, err = repo.DecreaseQuantity(ctx, owner, past, 10)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, item.Quantity)

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_DecreaseKeepsRemainder(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	_, err := repo.AddQuantity(ctx, owner, product, 5)
	require.NoError(t, err)

	item, removed, err := repo.DecreaseQuantity(ctx, owner, product, 2)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 3, item.Quantity)
}

func TestCartRepository_RemoveIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	alice, bob, product := uuid.NewString(), uuid.NewString(), uuid.NewString()

	_, err := repo.AddQuantity(ctx, alice, product, 1)
	require.NoError(t, err)
	_, err = repo.AddQuantity(ctx, bob, product, 4)
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, alice, product))
	assert.ErrorIs(t, repo.Remove(ctx, alice, product), domain.ErrCartItemNotFound)

	items, err := repo.ListByOwner(ctx, bob)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestCartRepository_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner := uuid.NewString()

	_, err := repo.AddQuantity(ctx, owner, uuid.NewString(), 1)
	require.NoError(t, err)

	require.NoError(t, repo.Clear(ctx, owner))
	require.NoError(t, repo.Clear(ctx, owner))

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_ConcurrentAddIncrement(t *testing.T) {
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	const N = 200
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := repo.AddQuantity(ctx, owner, product, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	items, err := repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, items, 1, "concurrent adds must never create duplicate line items")
	assert.Equal(t, N, items[0].Quantity)
}

func TestCartRepository_ConcurrentAddAndDecrease(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	_, err := repo.AddQuantity(ctx, owner, product, 1000)
	require.NoError(t, err)

	const N = 100
	var wg sync.WaitGroup
	for i := 0; i < N; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = repo.AddQuantity(ctx, owner, product, 3)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = repo.DecreaseQuantity(ctx, owner, product, 2)
		}()
	}
	wg.Wait()

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1000+N*3-N*2, items[0].Quantity)
}

func TestCartRepository_OwnersDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	busy, other := uuid.NewString(), uuid.NewString()

	held := repo.cartFor(busy)
	held.mu.Lock()
	defer held.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := repo.AddQuantity(ctx, other, uuid.NewString(), 1)
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("add for one owner blocked on another owner's cart")
	}
}

func TestCartRepository_QuantityBound(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	_, err := repo.AddQuantity(ctx, owner, product, domain.MaxQuantity)
	require.NoError(t, err)

	_, err = repo.AddQuantity(ctx, owner, product, 1)
	assert.ErrorIs(t, err, domain.ErrQuantityTooLarge)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = repo.IncreaseQuantity(ctx, owner, product, 1)
	assert.ErrorIs(t, err, domain.ErrQuantityTooLarge)

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.MaxQuantity, items[0].Quantity)
}

func TestCartRepository_ReadsDoNotCreateCarts(t *testing.T) {
	ctx := context.Background()
	repo := newTestCartRepository()
	owner, product := uuid.NewString(), uuid.NewString()

	items, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.IncreaseQuantity(ctx, owner, product, 1)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
	_, _, err = repo.DecreaseQuantity(ctx, owner, product, 1)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, owner, product), domain.ErrCartItemNotFound)
	require.NoError(t, repo.Clear(ctx, owner))

	repo.mu.RLock()
	defer repo.mu.RUnlock()
	assert.Empty(t, repo.carts)
}
