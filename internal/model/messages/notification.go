package messages

import "time"

// NotificationKind classifies outbound messages.
type NotificationKind string

const (
	NotificationUrgent   NotificationKind = "urgent"
	NotificationPositive NotificationKind = "positive"
	NotificationSummary  NotificationKind = "run_summary"
	NotificationFailure  NotificationKind = "run_failure"
)

// NotificationMessage is published on notify/{recipient}.
type NotificationMessage struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	FarmID    string           `json:"farm_id,omitempty"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	Timestamp time.Time        `json:"timestamp"`
}
