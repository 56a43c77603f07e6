package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mrops-br/shop-cart-api/internal/app/dto"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/auth"
	"github.com/mrops-br/shop-cart-api/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService() *UserService {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := slog.New(slog.DiscardHandler)
	return NewUserService(
		memory.NewUserRepository(tracer, logger),
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTManager("test-secret", time.Hour, "shop-cart-api"),
		tracer,
		metricnoop.NewMeterProvider().Meter("test"),
		logger,
	)
}

func TestUserService_RegisterLoginResolve(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Email: "Ada@Example.com", Password: "s3cret", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "User created", reg.Message)
	assert.NotEmpty(t, reg.UserID)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)

	owner, err := svc.ResolveOwner(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, owner)

	me, err := svc.Me(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Equal(t, "Ada", me.Name)
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestUserService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Email: "A@B.C", Password: "y"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUserService_LoginFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@b.c", Password: "right"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, &dto.LoginRequest{Email: "a@b.c", Password: "wrong"})
	_, unknownEmail := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@b.c", Password: "right"})
	_, empty := svc.Login(ctx, &dto.LoginRequest{})

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, empty, domain.ErrInvalidCredentials)
}

func TestUserService_ResolveOwnerRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	_, err := svc.ResolveOwner(ctx, "")
	assert.Equal(t, domain.KindUnauthenticated, domain.KindOf(err))

	_, err = svc.ResolveOwner(ctx, "not.a.token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestUserService_MeUnknownUser(t *testing.T) {
	_, err := newTestUserService().Me(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_ListUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService()

	for _, email := range []string{"a@b.c", "d@e.f"} {
		_, err := svc.Register(ctx, &dto.RegisterRequest{Email: email, Password: "x"})
		require.NoError(t, err)
	}

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
