package suggestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mwhited/taskflow/internal/database"
)

// ErrNotFound is returned when no suggestion matches the id for the user.
var ErrNotFound = errors.New("suggestion not found")

const suggestionColumns = `id, user_id, title, description, category, impact, is_implemented, created_at`

// Store provides persistence for suggestions.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func scanSuggestion(row pgx.Row) (*Suggestion, error) {
	var s Suggestion
	err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.Category, &s.Impact,
		&s.IsImplemented, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertNew stores drafts the user does not already have, keyed by title,
// and returns how many were inserted. The unique index on (user_id, title)
// makes the dedup safe under concurrent generation.
func (s *Store) InsertNew(ctx context.Context, userID uuid.UUID, drafts []Draft) (int, error) {
	inserted := 0
	for _, d := range drafts {
		tag, err := s.db.Pool.Exec(ctx,
			`INSERT INTO suggestions (id, user_id, title, description, category, impact)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id, title) DO NOTHING`,
			uuid.New(), userID, d.Title, d.Description, d.Category, d.Impact)
		if err != nil {
			return inserted, fmt.Errorf("insert suggestion: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListByUser returns the user's suggestions newest-first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Suggestion, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := []*Suggestion{}
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return suggestions, nil
}

// SetImplemented flips the implementation flag. Ownership is part of the
// update predicate, so a foreign id looks identical to a missing one.
func (s *Store) SetImplemented(ctx context.Context, id, userID uuid.UUID, implemented bool) (*Suggestion, error) {
	row := s.db.Pool.QueryRow(ctx,
		`UPDATE suggestions SET is_implemented = $3
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+suggestionColumns,
		id, userID, implemented)

	sg, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update suggestion: %w", err)
	}
	return sg, nil
}
