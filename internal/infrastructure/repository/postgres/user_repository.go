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

var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, name, password_hash, created_at`

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// UserRepository stores users in the users table
type UserRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewUserRepository creates a Postgres-backed user repository
func NewUserRepository(db *sqlx.DB, tracer trace.Tracer, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, tracer: tracer, logger: logger}
}

// Create inserts a user; the unique email constraint maps to ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", user.ID))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == pgUniqueViolation {
			return domain.ErrEmailTaken
		}
		failSpan(span, err, "insert user failed")
		return fmt.Errorf("insert user: %w", err)
	}

	r.logger.DebugContext(ctx, "User inserted", slog.String("user_id", user.ID))
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "UserRepository.FindByID", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "UserRepository.FindByEmail", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, spanName, query string, arg any) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	var row userRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		failSpan(span, err, "select user failed")
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.FindAll")
	defer span.End()

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at`); err != nil {
		failSpan(span, err, "select users failed")
		return nil, fmt.Errorf("select users: %w", err)
	}

	users := make([]*domain.User, len(rows))
	for i, row := range rows {
		users[i] = row.toDomain()
	}
	return users, nil
}
