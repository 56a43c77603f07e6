package service

import (
	"context"
	"log/slog"

	"github.com/mrops-br/shop-cart-api/internal/app/dto"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

func (s *ProductService) count(ctx context.Context, operation string, err error) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", resultOf(err)),
		),
	)
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.name", req.Name),
		attribute.Float64("product.price", req.Price),
		attribute.String("product.category", req.Category),
	)

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("name", req.Name),
		slog.Float64("price", req.Price),
	)

	product, err := domain.NewProduct(req.Name, req.Description, req.Image, req.Category, req.Price)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Rejected product",
			slog.String("error", err.Error()),
		)
		s.count(ctx, "create", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", product.ID))

	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		s.logger.ErrorContext(ctx, "Failed to store product",
			slog.String("error", err.Error()),
		)
		s.count(ctx, "create", err)
		return nil, err
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.count(ctx, "create", nil)

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", product.ID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	if err := domain.ValidateProductID(id); err != nil {
		// Ids are UUIDs, so anything else cannot name a product.
		span.SetStatus(codes.Error, "Product not found")
		s.count(ctx, "read", domain.ErrProductNotFound)
		return nil, domain.ErrProductNotFound
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		if domain.KindOf(err) == domain.KindNotFound {
			span.SetStatus(codes.Error, "Product not found")
			s.logger.WarnContext(ctx, "Product not found",
				slog.String("product_id", id),
			)
		} else {
			span.SetStatus(codes.Error, "Failed to load product")
			s.logger.ErrorContext(ctx, "Failed to load product",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
		s.count(ctx, "read", err)
		return nil, err
	}

	s.count(ctx, "read", nil)
	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve products")
		s.logger.ErrorContext(ctx, "Failed to list products",
			slog.String("error", err.Error()),
		)
		s.count(ctx, "list", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.count(ctx, "list", nil)

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductResponseList(products), nil
}
