package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mwhited/taskflow/internal/database"
)

var (
	// ErrNameTaken is returned when an active team already uses the name.
	ErrNameTaken = errors.New("team name already in use")

	// ErrNotFound is returned when no active team matches the id.
	ErrNotFound = errors.New("team not found")
)

const teamColumns = `id, name, description, created_by, is_active, created_at, updated_at`

// Store provides persistence for teams and their membership.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedBy, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Members = []Member{}
	return &t, nil
}

func isActiveNameConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "teams_active_name_idx"
}

// Create inserts a team with its initial member set in a single transaction.
func (s *Store) Create(ctx context.Context, in CreateTeamInput) (*Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO teams (id, name, description, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+teamColumns,
		uuid.New(), in.Name, in.Description, in.CreatedBy)

	t, err := scanTeam(row)
	if err != nil {
		if isActiveNameConflict(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("insert team: %w", err)
	}

	for _, memberID := range in.MemberIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`,
			t.ID, memberID)
		if err != nil {
			return nil, fmt.Errorf("insert team member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	members, err := s.membersByTeam(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	t.Members = members[t.ID]
	if t.Members == nil {
		t.Members = []Member{}
	}
	return t, nil
}

// GetByID returns an active team with its members.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND is_active`, id)

	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	members, err := s.membersByTeam(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	if m := members[t.ID]; m != nil {
		t.Members = m
	}
	return t, nil
}

// ListVisible returns active teams scoped by role: admins and the owner see
// every active team, regular users only teams they belong to.
func (s *Store) ListVisible(ctx context.Context, userID uuid.UUID, elevated bool) ([]*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE is_active ORDER BY created_at DESC`
	args := []any{}
	if !elevated {
		query = `SELECT ` + teamColumns + ` FROM teams
			 WHERE is_active
			   AND id IN (SELECT team_id FROM team_members WHERE user_id = $1)
			 ORDER BY created_at DESC`
		args = append(args, userID)
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	ids := []uuid.UUID{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	members, err := s.membersByTeam(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range teams {
		if m := members[t.ID]; m != nil {
			t.Members = m
		}
	}
	return teams, nil
}

// Update applies a partial update and, when MemberIDs is set, replaces the
// membership set. Renaming to a name held by another active team fails with
// ErrNameTaken.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateTeamInput) (*Team, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sets := []string{"updated_at = now()"}
	args := []any{id}
	if in.Name != nil {
		args = append(args, *in.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if in.Description != nil {
		args = append(args, *in.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	row := tx.QueryRow(ctx,
		`UPDATE teams SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1 AND is_active
		 RETURNING `+teamColumns, args...)

	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isActiveNameConflict(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("update team: %w", err)
	}

	if in.MemberIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clear team members: %w", err)
		}
		for _, memberID := range *in.MemberIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`,
				id, memberID)
			if err != nil {
				return nil, fmt.Errorf("insert team member: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	members, err := s.membersByTeam(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	if m := members[t.ID]; m != nil {
		t.Members = m
	}
	return t, nil
}

// Deactivate soft-deletes a team. Membership rows are kept for history; the
// visibility queries only follow active teams.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE teams SET is_active = false, updated_at = now() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember reports whether the user belongs to the team.
func (s *Store) IsMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`,
		teamID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ExistsActive reports whether an active team with the id exists.
func (s *Store) ExistsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1 AND is_active)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team: %w", err)
	}
	return exists, nil
}

func (s *Store) membersByTeam(ctx context.Context, teamIDs []uuid.UUID) (map[uuid.UUID][]Member, error) {
	byTeam := map[uuid.UUID][]Member{}
	if len(teamIDs) == 0 {
		return byTeam, nil
	}

	rows, err := s.db.Pool.Query(ctx,
		`SELECT tm.team_id, u.id, u.name, u.email
		 FROM team_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.team_id = ANY($1)
		 ORDER BY u.name`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID uuid.UUID
		var m Member
		if err := rows.Scan(&teamID, &m.ID, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		byTeam[teamID] = append(byTeam[teamID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return byTeam, nil
}
