package postgres

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mrops-br/shop-cart-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var userCols = []string{"id", "email", "name", "password_hash", "created_at"}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))

	u, err := domain.NewUser("dup@example.com", "Dup", "hash")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "users_email_key"})

	assert.ErrorIs(t, repo.Create(context.Background(), u), domain.ErrEmailTaken)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))

	u, err := domain.NewUser("found@example.com", "Found", "hash")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs(u.Email).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	found, err := repo.FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	_, err = repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
