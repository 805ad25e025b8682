package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"pagequiz/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) (domain.SessionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo, err := NewSQLiteSessionRepository(sqlx.NewDb(db, "sqlite"))
	require.NoError(t, err)
	return repo, mock
}

func TestSQLiteSessionRepository_GetNoRowReturnsIdleDefaults(t *testing.T) {
	repo, mock := newSQLiteRepo(t)

	mock.ExpectQuery("SELECT record FROM sessions").
		WithArgs(SessionKey).
		WillReturnError(sql.ErrNoRows)

	session, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, session.State)
	assert.Nil(t, session.QuizData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSessionRepository_GetRoundTrip(t *testing.T) {
	repo, mock := newSQLiteRepo(t)

	stored := readySession(t)
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM sessions").
		WithArgs(SessionKey).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(string(raw)))

	session, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, session.State)
	assert.Equal(t, "Stored Title", session.Title)
	require.Equal(t, 1, session.QuestionCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSessionRepository_SaveUpserts(t *testing.T) {
	repo, mock := newSQLiteRepo(t)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(SessionKey, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), readySession(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
