package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken is returned when a registration collides with an existing
// email address.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, name, email, password_hash, role, is_owner, created_at, updated_at`

// Store provides database operations for user accounts.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsOwner, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create registers a user with a bcrypt-hashed password. Whether the new row
// becomes the owner is decided inside the INSERT itself, so two concurrent
// first registrations race on the partial unique owner index rather than on
// an application-level count; the loser is retried as a regular user.
func (s *Store) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = auth.RoleUser
	}

	u, err := s.insert(ctx, uuid.New(), in.Name, in.Email, string(hash), role, true)
	if err == nil {
		return u, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_single_owner_idx":
			// Lost the first-registration race; register as a regular user.
			u, err = s.insert(ctx, uuid.New(), in.Name, in.Email, string(hash), role, false)
			if err == nil {
				return u, nil
			}
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrEmailTaken
			}
		default:
			return nil, ErrEmailTaken
		}
	}
	return nil, fmt.Errorf("creating user: %w", err)
}

func (s *Store) insert(ctx context.Context, id uuid.UUID, name, email, hash string, role auth.Role, allowOwner bool) (*User, error) {
	query := fmt.Sprintf(`INSERT INTO users (id, name, email, password_hash, role, is_owner)
		 VALUES ($1, $2, $3, $4,
		         CASE WHEN $6 AND NOT EXISTS (SELECT 1 FROM users) THEN 'owner' ELSE $5 END,
		         $6 AND NOT EXISTS (SELECT 1 FROM users))
		 RETURNING %s`, userColumns)
	return scanUser(s.db.Pool.QueryRow(ctx, query, id, name, email, hash, string(role), allowOwner))
}

// GetByID retrieves a user by primary key.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(s.db.Pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(s.db.Pool.QueryRow(ctx, query, email))
}

// ListNonElevated returns all users still holding the base role, ordered by
// name. This is what the admin user list shows; admins and the owner are
// never listed as assignable users.
func (s *Store) ListNonElevated(ctx context.Context) ([]*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = 'user' ORDER BY name ASC`, userColumns)
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountMembers returns how many of the given ids exist with the base role.
// Team membership is restricted to role=user, so this doubles as the
// membership validation query.
func (s *Store) CountMembers(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := s.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE id = ANY($1) AND role = 'user'`, ids,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting members: %w", err)
	}
	return n, nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
