package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/database"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "is_owner", "created_at", "updated_at"}

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewStore(database.NewFromPool(mock)), mock
}

func TestCreateFirstUserBecomesOwner(t *testing.T) {
	store, mock := setupStore(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "Olivia", "olivia@example.com", pgxmock.AnyArg(), "user", true).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "Olivia", "olivia@example.com", "hash", auth.RoleOwner, true, now, now))

	u, err := store.Create(context.Background(), CreateUserInput{
		Name:     "Olivia",
		Email:    "olivia@example.com",
		Password: "changeme123",
	})

	require.NoError(t, err)
	assert.Equal(t, auth.RoleOwner, u.Role)
	assert.True(t, u.IsOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRetriesAfterLosingOwnerRace(t *testing.T) {
	store, mock := setupStore(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "Bob", "bob@example.com", pgxmock.AnyArg(), "user", true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_single_owner_idx"})

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "Bob", "bob@example.com", pgxmock.AnyArg(), "user", false).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "Bob", "bob@example.com", "hash", auth.RoleUser, false, now, now))

	u, err := store.Create(context.Background(), CreateUserInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "changeme123",
	})

	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)
	assert.False(t, u.IsOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmail(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "Dup", "dup@example.com", pgxmock.AnyArg(), "user", true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := store.Create(context.Background(), CreateUserInput{
		Name:     "Dup",
		Email:    "dup@example.com",
		Password: "changeme123",
	})

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail(t *testing.T) {
	store, mock := setupStore(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("a@b.c").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "A", "a@b.c", "hash", auth.RoleAdmin, false, now, now))

	u, err := store.GetByEmail(context.Background(), "a@b.c")

	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, auth.RoleAdmin, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{PasswordHash: string(hash)}

	assert.True(t, CheckPassword(u, "hunter22"))
	assert.False(t, CheckPassword(u, "hunter23"))
}
