package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pagequiz/internal/domain"

	"github.com/jmoiron/sqlx"
)

const sessionTableDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	key        TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLiteSessionRepository persists the quiz session in a single-row KV
// table. The upsert replaces the whole record at once, so readers never
// observe a half-updated session; sqlite itself serializes the writes.
type SQLiteSessionRepository struct {
	db *sqlx.DB
}

func NewSQLiteSessionRepository(db *sqlx.DB) (domain.SessionRepository, error) {
	if _, err := db.Exec(sessionTableDDL); err != nil {
		return nil, domain.NewInternalError("failed to create sessions table", err)
	}
	return &SQLiteSessionRepository{db: db}, nil
}

// Get returns the stored session, or idle defaults when none exists yet.
func (r *SQLiteSessionRepository) Get(ctx context.Context) (*domain.QuizSession, error) {
	var raw string
	err := r.db.GetContext(ctx, &raw, "SELECT record FROM sessions WHERE key = ?", SessionKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewIdleSession(), nil
		}
		return nil, domain.NewInternalError("failed to read session", err)
	}

	var session domain.QuizSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, domain.NewInternalError("stored session is corrupt", err)
	}
	return &session, nil
}

// Save upserts the full session record.
func (r *SQLiteSessionRepository) Save(ctx context.Context, session *domain.QuizSession) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return domain.NewInternalError("failed to encode session", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (key, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		SessionKey, string(raw), session.UpdatedAt)
	if err != nil {
		return domain.NewInternalError("failed to persist session", err)
	}
	return nil
}
