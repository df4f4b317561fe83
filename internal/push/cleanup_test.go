package push

import (
	"context"
	"testing"
	"time"

	"dealer-desk-go/internal/models"
	"dealer-desk-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupCollapsesDuplicateActiveRows(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Two active rows for the same (user, endpoint), as left behind by a
	// re-registration that raced the normal reactivation path.
	base := time.Now().UTC().Add(-time.Hour)
	oldID := st.InsertDuplicate(models.Subscription{
		UserID:    1,
		Endpoint:  "https://push.example/send/abc",
		CreatedAt: base,
	})
	newID := st.InsertDuplicate(models.Subscription{
		UserID:    1,
		Endpoint:  "https://push.example/send/abc",
		CreatedAt: base.Add(time.Minute),
	})

	NewCleanupJob(st, 0).RunOnce(ctx)

	older, err := st.GetSubscription(ctx, oldID)
	require.NoError(t, err)
	assert.False(t, older.IsActive, "older duplicate must lose")

	newer, err := st.GetSubscription(ctx, newID)
	require.NoError(t, err)
	assert.True(t, newer.IsActive, "newest duplicate must stay active")

	n, err := st.CountActiveSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCleanupLeavesDistinctSubscriptionsAlone(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	st.InsertDuplicate(models.Subscription{UserID: 1, Endpoint: "https://push.example/send/a"})
	st.InsertDuplicate(models.Subscription{UserID: 1, Endpoint: "https://push.example/send/b"})
	st.InsertDuplicate(models.Subscription{UserID: 2, Endpoint: "https://push.example/send/a"})

	NewCleanupJob(st, 0).RunOnce(ctx)

	n, err := st.CountActiveSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "different endpoints and different users are not duplicates")
}

func TestCleanupPurgesLongDeadDuplicates(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	stale := time.Now().UTC().Add(-45 * 24 * time.Hour)
	deadID := st.InsertDuplicate(models.Subscription{
		UserID:    1,
		Endpoint:  "https://push.example/send/abc",
		CreatedAt: stale,
	})
	require.NoError(t, st.DeactivateSubscription(ctx, deadID))
	st.InsertDuplicate(models.Subscription{
		UserID:   1,
		Endpoint: "https://push.example/send/abc",
	})

	NewCleanupJob(st, 0).RunOnce(ctx)

	_, err := st.GetSubscription(ctx, deadID)
	assert.ErrorIs(t, err, store.ErrSubscriptionNotFound, "long-dead duplicate row is physically removed")
}

func TestCleanupRunStopsOnContextCancel(t *testing.T) {
	st := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewCleanupJob(st, time.Minute).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
