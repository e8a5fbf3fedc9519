package adminreq

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mwhited/taskflow/internal/database"
)

var (
	// ErrPendingExists is returned when the user already has an open request.
	ErrPendingExists = errors.New("pending elevation request already exists")

	// ErrAlreadyResolved is returned when the request is not pending anymore,
	// or does not exist.
	ErrAlreadyResolved = errors.New("elevation request already resolved")
)

const requestColumns = `r.id, r.user_id, u.name, u.email, r.reason, r.status, r.reviewed_by, r.reviewed_at, r.review_notes, r.created_at`

// Store provides persistence for admin elevation requests.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.UserEmail, &r.Reason, &r.Status,
		&r.ReviewedBy, &r.ReviewedAt, &r.ReviewNotes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create files a pending elevation request. The partial unique index on
// pending requests turns a duplicate into ErrPendingExists, so concurrent
// submissions cannot produce two open requests.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, reason string) (*Request, error) {
	id := uuid.New()
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO admin_requests (id, user_id, reason, status) VALUES ($1, $2, $3, $4)`,
		id, userID, reason, StatusPending)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrPendingExists
		}
		return nil, fmt.Errorf("insert elevation request: %w", err)
	}
	return s.getByID(ctx, id)
}

func (s *Store) getByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+requestColumns+`
		 FROM admin_requests r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.id = $1`, id)

	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("get elevation request: %w", err)
	}
	return r, nil
}

// List returns all elevation requests newest-first, pending ones first.
func (s *Store) List(ctx context.Context) ([]*Request, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+requestColumns+`
		 FROM admin_requests r
		 JOIN users u ON u.id = r.user_id
		 ORDER BY (r.status = 'pending') DESC, r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list elevation requests: %w", err)
	}
	defer rows.Close()

	requests := []*Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan elevation request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list elevation requests: %w", err)
	}
	return requests, nil
}

// Resolve closes a pending request. Approval elevates the requesting user to
// admin in the same transaction, so the role change and the request status
// can never diverge. Resolving a non-pending request fails with
// ErrAlreadyResolved.
func (s *Store) Resolve(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool, notes string) (*Request, error) {
	status := StatusRejected
	if approve {
		status = StatusApproved
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE admin_requests
		 SET status = $2, reviewed_by = $3, reviewed_at = now(), review_notes = $4
		 WHERE id = $1 AND status = 'pending'
		 RETURNING user_id`,
		requestID, status, reviewerID, notes).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("resolve elevation request: %w", err)
	}

	if approve {
		_, err := tx.Exec(ctx,
			`UPDATE users SET role = 'admin', updated_at = now() WHERE id = $1 AND NOT is_owner`,
			userID)
		if err != nil {
			return nil, fmt.Errorf("elevate user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.getByID(ctx, requestID)
}

// HasElevatedRole reports whether the user already holds admin or owner role.
func (s *Store) HasElevatedRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	var elevated bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role IN ('admin', 'owner'))`,
		userID).Scan(&elevated)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return elevated, nil
}
