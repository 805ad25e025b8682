package adapter

import (
	"context"
	"sync"

	"pagequiz/internal/domain"

	"go.uber.org/zap"
)

// LogNotifier is the default notification sink: it writes ready/error
// events to the structured log. Fire-and-forget, per the sink contract.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ domain.Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(ctx context.Context, event domain.Notification) {
	fields := []zap.Field{
		zap.String("kind", string(event.Kind)),
		zap.String("message", event.Message),
	}
	if event.QuestionCount > 0 {
		fields = append(fields, zap.Int("question_count", event.QuestionCount))
	}
	switch event.Kind {
	case domain.NotifyQuizFailed:
		n.logger.Warn("quiz notification", fields...)
	default:
		n.logger.Info("quiz notification", fields...)
	}
}

// LatestEventNotifier keeps the most recent event in memory so a polling
// display surface can show it. It wraps another sink and forwards every
// event to it.
type LatestEventNotifier struct {
	next domain.Notifier

	mu     sync.RWMutex
	latest *domain.Notification
}

func NewLatestEventNotifier(next domain.Notifier) *LatestEventNotifier {
	return &LatestEventNotifier{next: next}
}

var _ domain.Notifier = (*LatestEventNotifier)(nil)

func (n *LatestEventNotifier) Notify(ctx context.Context, event domain.Notification) {
	n.mu.Lock()
	copied := event
	n.latest = &copied
	n.mu.Unlock()

	if n.next != nil {
		n.next.Notify(ctx, event)
	}
}

// Latest returns the most recent event, or nil when none has fired yet.
func (n *LatestEventNotifier) Latest() *domain.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.latest == nil {
		return nil
	}
	copied := *n.latest
	return &copied
}
