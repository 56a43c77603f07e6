package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ domain.CartRepository = (*CartRepository)(nil)

const (
	cartItemsOwnerFK   = "cart_items_owner_id_fkey"
	cartItemsProductFK = "cart_items_product_id_fkey"
)

const cartItemColumns = `id, owner_id, product_id, quantity, created_at, updated_at`

const (
	listCartItemsQuery = `SELECT ` + cartItemColumns + ` FROM cart_items
		WHERE owner_id = $1
		ORDER BY created_at, id`

	upsertCartItemQuery = `INSERT INTO cart_items (` + cartItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT ON CONSTRAINT cart_items_owner_product_key
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
		              updated_at = EXCLUDED.updated_at
		RETURNING ` + cartItemColumns

	increaseCartItemQuery = `UPDATE cart_items
		SET quantity = quantity + $3, updated_at = $4
		WHERE owner_id = $1 AND product_id = $2
		RETURNING ` + cartItemColumns

	lockCartItemQuery = `SELECT ` + cartItemColumns + ` FROM cart_items
		WHERE owner_id = $1 AND product_id = $2
		FOR UPDATE`

	setCartItemQuantityQuery = `UPDATE cart_items
		SET quantity = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + cartItemColumns

	deleteCartItemByIDQuery = `DELETE FROM cart_items WHERE id = $1`

	deleteCartItemQuery = `DELETE FROM cart_items WHERE owner_id = $1 AND product_id = $2`

	clearCartQuery = `DELETE FROM cart_items WHERE owner_id = $1`
)

type cartItemRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	ProductID string    `db:"product_id"`
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r cartItemRow) toDomain() *domain.CartItem {
	return &domain.CartItem{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// CartRepository stores line items in the cart_items table. The
// (owner_id, product_id) unique constraint backs the atomic upsert.
type CartRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewCartRepository creates a Postgres-backed cart repository
func NewCartRepository(db *sqlx.DB, tracer trace.Tracer, logger *slog.Logger) *CartRepository {
	return &CartRepository{db: db, tracer: tracer, logger: logger}
}

func (r *CartRepository) startSpan(ctx context.Context, name, ownerID, productID string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("cart.owner_id", ownerID),
	))
	if productID != "" {
		span.SetAttributes(attribute.String("product.id", productID))
	}
	return ctx, span
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// quantityWriteError maps constraint failures of an insert or increment
// onto domain errors. It returns nil when err carries no such failure.
func quantityWriteError(err error) error {
	switch pqCode(err) {
	case pgNumericOutOfRange:
		return domain.ErrQuantityTooLarge
	case pgForeignKeyViolation:
		switch pqConstraint(err) {
		case cartItemsProductFK:
			return domain.ErrProductNotFound
		case cartItemsOwnerFK:
			// the owner was deleted after its token was resolved
			return domain.ErrOwnerRequired
		}
	}
	return nil
}

func (r *CartRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.CartItem, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.ListByOwner", ownerID, "")
	defer span.End()

	var rows []cartItemRow
	if err := r.db.SelectContext(ctx, &rows, listCartItemsQuery, ownerID); err != nil {
		failSpan(span, err, "list cart items failed")
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	items := make([]*domain.CartItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	span.SetAttributes(attribute.Int("cart.item_count", len(items)))
	return items, nil
}

// AddQuantity issues a single upsert so concurrent first adds of the same
// product coalesce into one row.
func (r *CartRepository) AddQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.AddQuantity", ownerID, productID)
	defer span.End()

	fresh := domain.NewCartItem(ownerID, productID, quantity)

	var row cartItemRow
	err := r.db.GetContext(ctx, &row, upsertCartItemQuery,
		fresh.ID, ownerID, productID, quantity, fresh.CreatedAt)
	if err != nil {
		failSpan(span, err, "upsert cart item failed")
		if mapped := quantityWriteError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return row.toDomain(), nil
}

func (r *CartRepository) IncreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.IncreaseQuantity", ownerID, productID)
	defer span.End()

	var row cartItemRow
	err := r.db.GetContext(ctx, &row, increaseCartItemQuery,
		ownerID, productID, quantity, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		failSpan(span, err, "increase cart item failed")
		if mapped := quantityWriteError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("increase cart item: %w", err)
	}
	return row.toDomain(), nil
}

// DecreaseQuantity locks the row for the duration of the read-modify-write,
// then either updates the remainder or deletes the row. A deleted row is
// returned as it was locked.
func (r *CartRepository) DecreaseQuantity(ctx context.Context, ownerID, productID string, quantity int) (*domain.CartItem, bool, error) {
	ctx, span := r.startSpan(ctx, "CartRepository.DecreaseQuantity", ownerID, productID)
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		failSpan(span, err, "begin transaction failed")
		return nil, false, fmt.Errorf("begin decrease: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current cartItemRow
	err = tx.GetContext(ctx, &current, lockCartItemQuery, ownerID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, domain.ErrCartItemNotFound
	}
	if err != nil {
		failSpan(span, err, "lock cart item failed")
		return nil, false, fmt.Errorf("lock cart item: %w", err)
	}

	remaining := current.Quantity - quantity
	if remaining <= 0 {
		if _, err := tx.ExecContext(ctx, deleteCartItemByIDQuery, current.ID); err != nil {
			failSpan(span, err, "delete cart item failed")
			return nil, false, fmt.Errorf("delete cart item: %w", err)
		}
		if err := tx.Commit(); err != nil {
			failSpan(span, err, "commit failed")
			return nil, false, fmt.Errorf("commit decrease: %w", err)
		}
		r.logger.DebugContext(ctx, "Cart item removed by decrease",
			slog.String("owner_id", ownerID),
			slog.String("product_id", productID),
		)
		return current.toDomain(), true, nil
	}

	var updated cartItemRow
	if err := tx.GetContext(ctx, &updated, setCartItemQuantityQuery, current.ID, remaining, time.Now().UTC()); err != nil {
		failSpan(span, err, "update cart item failed")
		return nil, false, fmt.Errorf("update cart item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		failSpan(span, err, "commit failed")
		return nil, false, fmt.Errorf("commit decrease: %w", err)
	}
	return updated.toDomain(), false, nil
}

func (r *CartRepository) Remove(ctx context.Context, ownerID, productID string) error {
	ctx, span := r.startSpan(ctx, "CartRepository.Remove", ownerID, productID)
	defer span.End()

	res, err := r.db.ExecContext(ctx, deleteCartItemQuery, ownerID, productID)
	if err != nil {
		failSpan(span, err, "delete cart item failed")
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	ctx, span := r.startSpan(ctx, "CartRepository.Clear", ownerID, "")
	defer span.End()

	res, err := r.db.ExecContext(ctx, clearCartQuery, ownerID)
	if err != nil {
		failSpan(span, err, "clear cart failed")
		return fmt.Errorf("clear cart: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		span.SetAttributes(attribute.Int64("cart.cleared_count", n))
	}
	return nil
}
