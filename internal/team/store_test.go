package team

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhited/taskflow/internal/database"
)

var teamCols = []string{"id", "name", "description", "created_by", "is_active", "created_at", "updated_at"}

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewStore(database.NewFromPool(mock)), mock
}

func teamRow(id, createdBy uuid.UUID, name string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(teamCols).AddRow(id, name, "", createdBy, true, now, now)
}

func memberRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"team_id", "id", "name", "email"})
}

func TestCreateWithMembers(t *testing.T) {
	store, mock := setupStore(t)
	teamID := uuid.New()
	creator := uuid.New()
	member := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs(pgxmock.AnyArg(), "Platform", "", creator).
		WillReturnRows(teamRow(teamID, creator, "Platform"))
	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs(teamID, member).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT tm.team_id, u.id, u.name, u.email`).
		WithArgs([]uuid.UUID{teamID}).
		WillReturnRows(memberRows().AddRow(teamID, member, "Uma", "uma@example.com"))

	created, err := store.Create(context.Background(), CreateTeamInput{
		Name:      "Platform",
		MemberIDs: []uuid.UUID{member},
		CreatedBy: creator,
	})

	require.NoError(t, err)
	assert.Equal(t, teamID, created.ID)
	require.Len(t, created.Members, 1)
	assert.Equal(t, "Uma", created.Members[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNameTaken(t *testing.T) {
	store, mock := setupStore(t)
	creator := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs(pgxmock.AnyArg(), "Platform", "", creator).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "teams_active_name_idx"})
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), CreateTeamInput{Name: "Platform", CreatedBy: creator})

	assert.ErrorIs(t, err, ErrNameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVisibleForRegularUser(t *testing.T) {
	store, mock := setupStore(t)
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM teams\s+WHERE is_active\s+AND id IN \(SELECT team_id FROM team_members WHERE user_id = \$1\)`).
		WithArgs(userID).
		WillReturnRows(teamRow(teamID, uuid.New(), "Mine"))
	mock.ExpectQuery(`SELECT tm.team_id, u.id, u.name, u.email`).
		WithArgs([]uuid.UUID{teamID}).
		WillReturnRows(memberRows().AddRow(teamID, userID, "Me", "me@example.com"))

	teams, err := store.ListVisible(context.Background(), userID, false)

	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Mine", teams[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVisibleForAdminSeesAll(t *testing.T) {
	store, mock := setupStore(t)
	teamID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM teams WHERE is_active ORDER BY created_at DESC`).
		WillReturnRows(teamRow(teamID, uuid.New(), "Everything"))
	mock.ExpectQuery(`SELECT tm.team_id, u.id, u.name, u.email`).
		WithArgs([]uuid.UUID{teamID}).
		WillReturnRows(memberRows())

	teams, err := store.ListVisible(context.Background(), uuid.New(), true)

	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Empty(t, teams[0].Members)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivate(t *testing.T) {
	store, mock := setupStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE teams SET is_active = false`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Deactivate(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateMissing(t *testing.T) {
	store, mock := setupStore(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE teams SET is_active = false`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Deactivate(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
