package models

// Analytics event types fired from the service worker.
const (
	EventClicked   = "clicked"
	EventOpened    = "opened"
	EventDismissed = "dismissed"
)

// AnalyticsEvent records a user interaction with a displayed notification.
// Delivery is fire-and-forget; these are advisory, never correctness-critical.
type AnalyticsEvent struct {
	NotificationID int    `json:"notification_id"`
	EventType      string `json:"event_type"`
	Timestamp      int64  `json:"timestamp"`
}
