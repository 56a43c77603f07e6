package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mrops-br/shop-cart-api/internal/app/dto"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// UserService is the identity service: registration, login and resolution
// of bearer tokens to owner ids.
type UserService struct {
	repo   domain.UserRepository
	hasher domain.PasswordHasher
	tokens domain.TokenManager
	tracer trace.Tracer
	logger *slog.Logger

	userOperations metric.Int64Counter
	loginAttempts  metric.Int64Counter
}

// NewUserService creates a new user service
func NewUserService(
	repo domain.UserRepository,
	hasher domain.PasswordHasher,
	tokens domain.TokenManager,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *UserService {
	userOperations, _ := meter.Int64Counter(
		"users.operations",
		metric.WithDescription("Total number of user operations"),
	)
	loginAttempts, _ := meter.Int64Counter(
		"users.login.attempts",
		metric.WithDescription("Login attempts by result"),
	)

	return &UserService{
		repo:           repo,
		hasher:         hasher,
		tokens:         tokens,
		tracer:         tracer,
		logger:         logger,
		userOperations: userOperations,
		loginAttempts:  loginAttempts,
	}
}

func (s *UserService) fail(ctx context.Context, span trace.Span, operation string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.userOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", resultOf(err)),
		),
	)
	if domain.KindOf(err) == domain.KindStorage {
		s.logger.ErrorContext(ctx, "User operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}

func (s *UserService) succeed(ctx context.Context, span trace.Span, operation string) {
	span.SetStatus(codes.Ok, "")
	s.userOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", "success"),
		),
	)
}

// Register creates a user with a hashed password.
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Register")
	defer span.End()

	if strings.TrimSpace(req.Email) == "" {
		s.fail(ctx, span, "register", domain.ErrInvalidEmail)
		return nil, domain.ErrInvalidEmail
	}
	if req.Password == "" {
		s.fail(ctx, span, "register", domain.ErrInvalidPassword)
		return nil, domain.ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.fail(ctx, span, "register", err)
		return nil, err
	}

	user, err := domain.NewUser(req.Email, req.Name, hash)
	if err != nil {
		s.fail(ctx, span, "register", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if err := s.repo.Create(ctx, user); err != nil {
		s.fail(ctx, span, "register", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered",
		slog.String("user_id", user.ID),
	)
	s.succeed(ctx, span, "register")
	return &dto.RegisterResponse{Message: "User created", UserID: user.ID}, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords fail with the same error.
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()

	user, err := s.authenticate(ctx, req)
	if err != nil {
		s.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", resultOf(err))))
		s.fail(ctx, span, "login", err)
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.fail(ctx, span, "login", err)
		return nil, err
	}

	s.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
	s.logger.InfoContext(ctx, "User logged in",
		slog.String("user_id", user.ID),
	)
	s.succeed(ctx, span, "login")
	return &dto.LoginResponse{Token: token}, nil
}

func (s *UserService) authenticate(ctx context.Context, req *dto.LoginRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// ResolveOwner turns a bearer token into the owner id it was issued for.
func (s *UserService) ResolveOwner(ctx context.Context, token string) (string, error) {
	_, span := s.tracer.Start(ctx, "UserService.ResolveOwner")
	defer span.End()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if claims.UserID == "" {
		span.SetStatus(codes.Error, domain.ErrInvalidToken.Error())
		return "", domain.ErrInvalidToken
	}

	span.SetAttributes(attribute.String("user.id", claims.UserID))
	span.SetStatus(codes.Ok, "")
	return claims.UserID, nil
}

// Me returns the public profile of the given user.
func (s *UserService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Me")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID))

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		s.fail(ctx, span, "me", err)
		return nil, err
	}

	s.succeed(ctx, span, "me")
	return dto.ToUserResponse(user), nil
}

// ListUsers returns every user without credentials.
func (s *UserService) ListUsers(ctx context.Context) ([]*dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.ListUsers")
	defer span.End()

	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.fail(ctx, span, "list", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("user.count", len(users)))
	s.succeed(ctx, span, "list")
	return dto.ToUserResponseList(users), nil
}
