package store

import (
	"context"

	"dealer-desk-go/internal/models"
)

// SubscriptionStore handles push subscription rows (PostgreSQL).
type SubscriptionStore interface {
	// SaveSubscription registers a subscription, reactivating a previously
	// deactivated row for the same (user, endpoint) instead of stacking a
	// duplicate. Returns the row id.
	SaveSubscription(ctx context.Context, sub models.Subscription) (int, error)
	GetSubscription(ctx context.Context, id int) (models.Subscription, error)
	GetActiveSubscriptions(ctx context.Context, userID int) ([]models.Subscription, error)
	DeactivateSubscription(ctx context.Context, id int) error
	DeactivateByEndpoint(ctx context.Context, userID int, endpoint string) error
	TouchSubscription(ctx context.Context, id int) error
	CountActiveSubscriptions(ctx context.Context) (int, error)

	// Cleanup pass. CollapseDuplicates deactivates all but the newest active
	// row per (user, endpoint); PurgeDeadDuplicates is the only hard delete
	// in the system.
	CollapseDuplicates(ctx context.Context) (int64, error)
	PurgeDeadDuplicates(ctx context.Context) (int64, error)
}

// PendingStore handles per-user queued notifications and analytics events
// (Redis). Queued notifications are drained by the background-sync endpoint.
type PendingStore interface {
	EnqueuePending(ctx context.Context, userID int, payload models.NotificationPayload) error
	DrainPending(ctx context.Context, userID int) ([]models.NotificationPayload, error)
	RecordAnalytics(ctx context.Context, event models.AnalyticsEvent) error
}
