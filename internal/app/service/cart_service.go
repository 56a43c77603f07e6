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

// CartService is the cart engine. It validates input before any storage
// access and delegates the atomic quantity mutations to the repository.
type CartService struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	tracer   trace.Tracer
	logger   *slog.Logger

	cartOperations metric.Int64Counter
	unitsAdded     metric.Int64Counter
	unitsRemoved   metric.Int64Counter
}

// NewCartService creates a new cart service
func NewCartService(
	carts domain.CartRepository,
	products domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *CartService {
	cartOperations, _ := meter.Int64Counter(
		"cart.operations",
		metric.WithDescription("Total number of cart operations"),
	)
	unitsAdded, _ := meter.Int64Counter(
		"cart.units.added",
		metric.WithDescription("Product units put into carts by add and increase"),
	)
	unitsRemoved, _ := meter.Int64Counter(
		"cart.units.removed",
		metric.WithDescription("Product units taken out of carts by decrease"),
	)

	return &CartService{
		carts:          carts,
		products:       products,
		tracer:         tracer,
		logger:         logger,
		cartOperations: cartOperations,
		unitsAdded:     unitsAdded,
		unitsRemoved:   unitsRemoved,
	}
}

func (s *CartService) start(ctx context.Context, name, ownerID, productID string, quantity int) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("cart.owner_id", ownerID))
	if productID != "" {
		span.SetAttributes(attribute.String("product.id", productID))
	}
	if quantity != 0 {
		span.SetAttributes(attribute.Int("cart.quantity", quantity))
	}
	return ctx, span
}

// finish records the outcome of an operation on the span, the operations
// counter and the log. Storage failures log at error level, domain
// rejections at warn.
func (s *CartService) finish(ctx context.Context, span trace.Span, operation string, err error) {
	s.cartOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", resultOf(err)),
		),
	)

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if domain.KindOf(err) == domain.KindStorage {
		s.logger.ErrorContext(ctx, "Cart operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.WarnContext(ctx, "Cart operation rejected",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// attachProduct joins the product into a line item that was already written.
// The write has happened, so a failed lookup only leaves Product unset.
func (s *CartService) attachProduct(ctx context.Context, item *domain.CartItem) {
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not load product for cart item",
			slog.String("product_id", item.ProductID),
			slog.String("error", err.Error()),
		)
		return
	}
	item.Product = product
}

// List returns the owner's line items, each joined with its product.
func (s *CartService) List(ctx context.Context, ownerID string) ([]*dto.CartItemResponse, error) {
	ctx, span := s.start(ctx, "CartService.List", ownerID, "", 0)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "list", domain.ErrOwnerRequired)
		return nil, domain.ErrOwnerRequired
	}

	items, err := s.carts.ListByOwner(ctx, ownerID)
	if err != nil {
		s.finish(ctx, span, "list", err)
		return nil, err
	}

	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				s.logger.WarnContext(ctx, "Cart item references missing product",
					slog.String("product_id", item.ProductID),
				)
				continue
			}
			s.finish(ctx, span, "list", err)
			return nil, err
		}
		item.Product = product
	}

	span.SetAttributes(attribute.Int("cart.item_count", len(items)))
	s.finish(ctx, span, "list", nil)
	return dto.ToCartItemResponseList(items), nil
}

// Add puts quantity units of a product into the cart, creating the line item
// on first add and coalescing into it afterwards.
func (s *CartService) Add(ctx context.Context, ownerID string, req *dto.CartLineRequest) (*dto.CartItemResponse, error) {
	ctx, span := s.start(ctx, "CartService.Add", ownerID, req.ProductID, req.Quantity)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "add", domain.ErrOwnerRequired)
		return nil, domain.ErrOwnerRequired
	}
	if err := domain.ValidateLineInput(req.ProductID, req.Quantity); err != nil {
		s.finish(ctx, span, "add", err)
		return nil, err
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		s.finish(ctx, span, "add", err)
		return nil, err
	}

	item, err := s.carts.AddQuantity(ctx, ownerID, req.ProductID, req.Quantity)
	if err != nil {
		s.finish(ctx, span, "add", err)
		return nil, err
	}
	item.Product = product

	s.unitsAdded.Add(ctx, int64(req.Quantity))
	s.logger.InfoContext(ctx, "Added product to cart",
		slog.String("product_id", req.ProductID),
		slog.Int("quantity", item.Quantity),
	)
	s.finish(ctx, span, "add", nil)
	return dto.ToCartItemResponse(item), nil
}

// Increase raises the quantity of an existing line item.
func (s *CartService) Increase(ctx context.Context, ownerID string, req *dto.CartLineRequest) (*dto.CartItemResponse, error) {
	ctx, span := s.start(ctx, "CartService.Increase", ownerID, req.ProductID, req.Quantity)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "increase", domain.ErrOwnerRequired)
		return nil, domain.ErrOwnerRequired
	}
	if err := domain.ValidateLineInput(req.ProductID, req.Quantity); err != nil {
		s.finish(ctx, span, "increase", err)
		return nil, err
	}

	item, err := s.carts.IncreaseQuantity(ctx, ownerID, req.ProductID, req.Quantity)
	if err != nil {
		s.finish(ctx, span, "increase", err)
		return nil, err
	}
	s.attachProduct(ctx, item)

	s.unitsAdded.Add(ctx, int64(req.Quantity))
	s.logger.InfoContext(ctx, "Increased cart item",
		slog.String("product_id", req.ProductID),
		slog.Int("quantity", item.Quantity),
	)
	s.finish(ctx, span, "increase", nil)
	return dto.ToCartItemResponse(item), nil
}

// Decrease lowers the quantity of an existing line item. When the result
// would drop to zero or below the line item is deleted and removed is true.
func (s *CartService) Decrease(ctx context.Context, ownerID string, req *dto.CartLineRequest) (item *dto.CartItemResponse, removed bool, err error) {
	ctx, span := s.start(ctx, "CartService.Decrease", ownerID, req.ProductID, req.Quantity)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "decrease", domain.ErrOwnerRequired)
		return nil, false, domain.ErrOwnerRequired
	}
	if err := domain.ValidateLineInput(req.ProductID, req.Quantity); err != nil {
		s.finish(ctx, span, "decrease", err)
		return nil, false, err
	}

	updated, removed, err := s.carts.DecreaseQuantity(ctx, ownerID, req.ProductID, req.Quantity)
	if err != nil {
		s.finish(ctx, span, "decrease", err)
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("cart.item_removed", removed))
	units := req.Quantity
	if removed {
		// a deleted item only gives up what it held
		units = min(units, updated.Quantity)
	}
	s.unitsRemoved.Add(ctx, int64(units))

	if removed {
		s.logger.InfoContext(ctx, "Removed cart item on decrease",
			slog.String("product_id", req.ProductID),
		)
		s.finish(ctx, span, "decrease", nil)
		return nil, true, nil
	}

	s.attachProduct(ctx, updated)
	s.logger.InfoContext(ctx, "Decreased cart item",
		slog.String("product_id", req.ProductID),
		slog.Int("quantity", updated.Quantity),
	)
	s.finish(ctx, span, "decrease", nil)
	return dto.ToCartItemResponse(updated), false, nil
}

// Remove deletes the owner's line item for the product.
func (s *CartService) Remove(ctx context.Context, ownerID, productID string) error {
	ctx, span := s.start(ctx, "CartService.Remove", ownerID, productID, 0)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "remove", domain.ErrOwnerRequired)
		return domain.ErrOwnerRequired
	}
	if err := domain.ValidateProductID(productID); err != nil {
		s.finish(ctx, span, "remove", err)
		return err
	}

	if err := s.carts.Remove(ctx, ownerID, productID); err != nil {
		s.finish(ctx, span, "remove", err)
		return err
	}

	s.logger.InfoContext(ctx, "Removed product from cart",
		slog.String("product_id", productID),
	)
	s.finish(ctx, span, "remove", nil)
	return nil
}

// Clear empties the owner's cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	ctx, span := s.start(ctx, "CartService.Clear", ownerID, "", 0)
	defer span.End()

	if ownerID == "" {
		s.finish(ctx, span, "clear", domain.ErrOwnerRequired)
		return domain.ErrOwnerRequired
	}

	if err := s.carts.Clear(ctx, ownerID); err != nil {
		s.finish(ctx, span, "clear", err)
		return err
	}

	s.logger.InfoContext(ctx, "Cleared cart")
	s.finish(ctx, span, "clear", nil)
	return nil
}
