package push

import (
	"context"
	"log"
	"time"

	"dealer-desk-go/internal/metrics"
	"dealer-desk-go/internal/store"
)

// CleanupJob periodically collapses duplicate active subscriptions down to
// the most recently created one per (user, endpoint) and prunes long-dead
// duplicate rows. It has no user-facing contract beyond keeping the
// subscription table tidy.
type CleanupJob struct {
	subs     store.SubscriptionStore
	interval time.Duration
}

func NewCleanupJob(subs store.SubscriptionStore, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupJob{subs: subs, interval: interval}
}

// Run blocks until ctx is cancelled, running one cleanup pass per interval.
// Intended to be started as a goroutine from main.
func (j *CleanupJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes a single cleanup pass.
func (j *CleanupJob) RunOnce(ctx context.Context) {
	collapsed, err := j.subs.CollapseDuplicates(ctx)
	if err != nil {
		log.Printf("Cleanup: failed to collapse duplicate subscriptions: %v", err)
	} else if collapsed > 0 {
		log.Printf("Cleanup: deactivated %d duplicate subscriptions", collapsed)
	}

	purged, err := j.subs.PurgeDeadDuplicates(ctx)
	if err != nil {
		log.Printf("Cleanup: failed to purge dead duplicates: %v", err)
	} else if purged > 0 {
		log.Printf("Cleanup: purged %d dead duplicate rows", purged)
	}

	if n, err := j.subs.CountActiveSubscriptions(ctx); err == nil {
		metrics.ActiveSubscriptions.Set(float64(n))
	}
}
