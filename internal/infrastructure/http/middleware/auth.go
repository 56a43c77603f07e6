package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrops-br/shop-cart-api/internal/domain"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/response"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/telemetry"
)

type ownerKey struct{}

// OwnerResolver turns a bearer token into the id of the identity it names.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, token string) (string, error)
}

// OwnerID returns the authenticated owner id, or "" for anonymous requests.
func OwnerID(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey{}).(string)
	return id
}

// WithOwnerID stores the authenticated owner id in ctx.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	ctx = context.WithValue(ctx, ownerKey{}, ownerID)
	return telemetry.WithUserID(ctx, ownerID)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate rejects requests without a valid bearer token with 401 and
// stores the resolved owner id in the request context otherwise.
func Authenticate(resolver OwnerResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Error(w, domain.ErrMissingToken)
				return
			}

			ownerID, err := resolver.ResolveOwner(r.Context(), token)
			if err != nil {
				logger.WarnContext(r.Context(), "Token validation failed",
					slog.String("error", err.Error()),
				)
				response.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}
