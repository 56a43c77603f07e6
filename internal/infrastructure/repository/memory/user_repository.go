package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/mrops-br/shop-cart-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ domain.UserRepository = (*UserRepository)(nil)

// UserRepository is an in-memory implementation of domain.UserRepository
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewUserRepository creates a new in-memory user repository
func NewUserRepository(tracer trace.Tracer, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		tracer:  tracer,
		logger:  logger,
	}
}

// Create stores a user, rejecting a second user with the same email.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", user.ID))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return domain.ErrEmailTaken
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID

	r.logger.DebugContext(ctx, "User created in repository", slog.String("user_id", user.ID))
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	_, span := r.tracer.Start(ctx, "UserRepository.FindByID")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	_, span := r.tracer.Start(ctx, "UserRepository.FindByEmail")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	found := *r.byID[id]
	return &found, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	_, span := r.tracer.Start(ctx, "UserRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	users := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		u := *user
		users = append(users, &u)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}
