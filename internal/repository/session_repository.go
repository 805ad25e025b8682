package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pagequiz/internal/domain"
)

// SessionKey is the fixed key the singleton session lives under. A single
// installation owns exactly one session record.
const SessionKey = "pagequiz:session"

// CacheSessionRepository persists the quiz session as JSON through the
// domain.Cache port (the redis adapter in production). The whole record is
// written in one Set, which keeps transitions atomic as far as readers are
// concerned.
type CacheSessionRepository struct {
	cache domain.Cache
}

func NewCacheSessionRepository(cache domain.Cache) domain.SessionRepository {
	return &CacheSessionRepository{cache: cache}
}

// Get returns the stored session, or idle defaults when none exists yet.
func (r *CacheSessionRepository) Get(ctx context.Context) (*domain.QuizSession, error) {
	raw, err := r.cache.Get(ctx, SessionKey)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
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

// Save writes the full session record. No expiration: the session must
// survive process restarts until explicitly reset.
func (r *CacheSessionRepository) Save(ctx context.Context, session *domain.QuizSession) error {
	session.UpdatedAt = time.Now()
	raw, err := json.Marshal(session)
	if err != nil {
		return domain.NewInternalError("failed to encode session", err)
	}
	if err := r.cache.Set(ctx, SessionKey, string(raw), 0); err != nil {
		return domain.NewInternalError("failed to persist session", err)
	}
	return nil
}
