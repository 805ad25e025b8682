package domain

import "context"

// SessionRepository is the durable persistence port for the singleton quiz
// session. Get returns idle defaults when no session has been stored yet;
// Save writes the full record atomically, so a reader can never observe a
// half-updated session. The store is assumed to survive process restarts.
type SessionRepository interface {
	Get(ctx context.Context) (*QuizSession, error)
	Save(ctx context.Context, session *QuizSession) error
}
