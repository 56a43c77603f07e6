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
	"go.opentelemetry.io/otel/trace"
)

var _ domain.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, name, description, price, image, category, created_at, updated_at`

type productRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	Image       string    `db:"image"`
	Category    string    `db:"category"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r productRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ProductRepository stores products in the products table
type ProductRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a Postgres-backed product repository
func NewProductRepository(db *sqlx.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer, logger: logger}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", product.ID))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID, product.Name, product.Description, product.Price,
		product.Image, product.Category, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		failSpan(span, err, "insert product failed")
		return fmt.Errorf("insert product: %w", err)
	}

	r.logger.DebugContext(ctx, "Product inserted",
		slog.String("product_id", product.ID),
		slog.String("product_name", product.Name),
	)
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	var row productRow
	err := r.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		failSpan(span, err, "select product failed")
		return nil, fmt.Errorf("select product: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`); err != nil {
		failSpan(span, err, "select products failed")
		return nil, fmt.Errorf("select products: %w", err)
	}

	products := make([]*domain.Product, len(rows))
	for i, row := range rows {
		products[i] = row.toDomain()
	}
	span.SetAttributes(attribute.Int("product.count", len(products)))
	return products, nil
}
