package telemetry

import (
	"context"
	"io"
	"log/slog"

	"github.com/mrops-br/shop-cart-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	httpRouteKey contextKey = "http.route"
	userIDKey    contextKey = "user.id"
)

// WithHTTPRoute adds the HTTP route to the context
func WithHTTPRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, httpRouteKey, route)
}

// WithHTTPRouteFunc defers route resolution to log time, for routers that
// only know the full pattern once routing has finished.
func WithHTTPRouteFunc(ctx context.Context, route func() string) context.Context {
	return context.WithValue(ctx, httpRouteKey, route)
}

// HTTPRouteFromContext extracts the HTTP route from context
func HTTPRouteFromContext(ctx context.Context) string {
	switch route := ctx.Value(httpRouteKey).(type) {
	case string:
		return route
	case func() string:
		return route()
	}
	return ""
}

// WithUserID tags every log written under ctx with the authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// traceContextHandler injects trace and request context into every record.
type traceContextHandler struct {
	handler slog.Handler
}

func (h *traceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	if route := HTTPRouteFromContext(ctx); route != "" {
		r.AddAttrs(slog.String("http.route", route))
	}
	if userID := UserIDFromContext(ctx); userID != "" {
		r.AddAttrs(slog.String("user.id", userID))
	}

	return h.handler.Handle(ctx, r)
}

func (h *traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *traceContextHandler) WithGroup(name string) slog.Handler {
	return &traceContextHandler{handler: h.handler.WithGroup(name)}
}

// NewLogger builds the JSON logger used across the service.
func NewLogger(cfg *config.OTLPConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		// Unknown names keep the info default.
		_ = level.UnmarshalText([]byte(cfg.LogLevel))
	}

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(&traceContextHandler{handler: jsonHandler}).With(
		slog.String("service.name", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}
