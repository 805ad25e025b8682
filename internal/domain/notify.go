package domain

import "context"

// NotificationKind distinguishes the two events the orchestrator emits.
type NotificationKind string

const (
	NotifyQuizReady  NotificationKind = "ready"
	NotifyQuizFailed NotificationKind = "error"
)

// Notification is the payload handed to the notification sink.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	Title         string           `json:"title,omitempty"`
	Message       string           `json:"message"`
	QuestionCount int              `json:"question_count,omitempty"`
}

// Notifier is the notification/alerting sink collaborator. Fire-and-forget:
// no acknowledgment is expected and delivery failures are the sink's
// problem, never the orchestrator's.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
