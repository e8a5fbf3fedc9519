package adminreq

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

var requestCols = []string{
	"id", "user_id", "name", "email", "reason", "status",
	"reviewed_by", "reviewed_at", "review_notes", "created_at",
}

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewStore(database.NewFromPool(mock)), mock
}

func requestRow(id, userID uuid.UUID, status string, reviewer *uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	var reviewedAt *time.Time
	if reviewer != nil {
		reviewedAt = &now
	}
	return pgxmock.NewRows(requestCols).
		AddRow(id, userID, "Uma", "uma@example.com", "I run the weekly release", status,
			reviewer, reviewedAt, "", now)
}

func TestCreatePendingConflict(t *testing.T) {
	store, mock := setupStore(t)
	userID := uuid.New()

	mock.ExpectExec(`INSERT INTO admin_requests`).
		WithArgs(pgxmock.AnyArg(), userID, "I run the weekly release", StatusPending).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "admin_requests_pending_idx"})

	_, err := store.Create(context.Background(), userID, "I run the weekly release")

	assert.ErrorIs(t, err, ErrPendingExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveApproveElevatesInOneTransaction(t *testing.T) {
	store, mock := setupStore(t)
	requestID := uuid.New()
	userID := uuid.New()
	reviewerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE admin_requests`).
		WithArgs(requestID, StatusApproved, reviewerID, "ok").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID))
	mock.ExpectExec(`UPDATE users SET role = 'admin'`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT .+ FROM admin_requests r`).
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, userID, StatusApproved, &reviewerID))

	resolved, err := store.Resolve(context.Background(), requestID, reviewerID, true, "ok")

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, resolved.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRejectSkipsElevation(t *testing.T) {
	store, mock := setupStore(t)
	requestID := uuid.New()
	userID := uuid.New()
	reviewerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE admin_requests`).
		WithArgs(requestID, StatusRejected, reviewerID, "not yet").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT .+ FROM admin_requests r`).
		WithArgs(requestID).
		WillReturnRows(requestRow(requestID, userID, StatusRejected, &reviewerID))

	resolved, err := store.Resolve(context.Background(), requestID, reviewerID, false, "not yet")

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlreadyResolved(t *testing.T) {
	store, mock := setupStore(t)
	requestID := uuid.New()
	reviewerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE admin_requests`).
		WithArgs(requestID, StatusApproved, reviewerID, "").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := store.Resolve(context.Background(), requestID, reviewerID, true, "")

	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
