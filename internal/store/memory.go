package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"dealer-desk-go/internal/models"
)

// MemoryStore is an in-memory SubscriptionStore and PendingStore with the
// same semantics as the Postgres/Redis pair. Used by tests and local
// development without external services.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]models.Subscription
	pending map[int][]models.NotificationPayload
	events  []models.AnalyticsEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:    make(map[int]models.Subscription),
		pending: make(map[int][]models.NotificationPayload),
	}
}

func (s *MemoryStore) SaveSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reactivate the newest existing row for this (user, endpoint).
	var newest *models.Subscription
	for id := range s.subs {
		existing := s.subs[id]
		if existing.UserID == sub.UserID && existing.Endpoint == sub.Endpoint {
			if newest == nil || existing.CreatedAt.After(newest.CreatedAt) ||
				(existing.CreatedAt.Equal(newest.CreatedAt) && existing.ID > newest.ID) {
				copied := existing
				newest = &copied
			}
		}
	}
	if newest != nil {
		newest.P256dh = sub.P256dh
		newest.Auth = sub.Auth
		newest.DeviceType = sub.DeviceType
		newest.UserAgent = sub.UserAgent
		newest.IsActive = true
		newest.LastUsedAt = time.Now().UTC()
		s.subs[newest.ID] = *newest
		return newest.ID, nil
	}

	s.nextID++
	sub.ID = s.nextID
	sub.IsActive = true
	sub.CreatedAt = time.Now().UTC()
	sub.LastUsedAt = sub.CreatedAt
	s.subs[sub.ID] = sub
	return sub.ID, nil
}

// InsertDuplicate bypasses the reactivation path and always inserts a fresh
// active row. Exists so tests can create the duplicate state CleanupJob
// exists to fix.
func (s *MemoryStore) InsertDuplicate(sub models.Subscription) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.ID = s.nextID
	sub.IsActive = true
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	sub.LastUsedAt = sub.CreatedAt
	s.subs[sub.ID] = sub
	return sub.ID
}

func (s *MemoryStore) GetSubscription(ctx context.Context, id int) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return models.Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *MemoryStore) GetActiveSubscriptions(ctx context.Context, userID int) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var subs []models.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.IsActive {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

func (s *MemoryStore) DeactivateSubscription(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		sub.IsActive = false
		s.subs[id] = sub
	}
	return nil
}

func (s *MemoryStore) DeactivateByEndpoint(ctx context.Context, userID int, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		if sub.UserID == userID && sub.Endpoint == endpoint {
			sub.IsActive = false
			s.subs[id] = sub
		}
	}
	return nil
}

func (s *MemoryStore) TouchSubscription(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		sub.LastUsedAt = time.Now().UTC()
		s.subs[id] = sub
	}
	return nil
}

func (s *MemoryStore) CountActiveSubscriptions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if sub.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CollapseDuplicates(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var collapsed int64
	for id, sub := range s.subs {
		if !sub.IsActive {
			continue
		}
		for _, other := range s.subs {
			if other.ID == id || !other.IsActive {
				continue
			}
			if other.UserID == sub.UserID && other.Endpoint == sub.Endpoint &&
				(other.CreatedAt.After(sub.CreatedAt) ||
					(other.CreatedAt.Equal(sub.CreatedAt) && other.ID > sub.ID)) {
				sub.IsActive = false
				s.subs[id] = sub
				collapsed++
				break
			}
		}
	}
	return collapsed, nil
}

func (s *MemoryStore) PurgeDeadDuplicates(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	var purged int64
	for id, sub := range s.subs {
		if sub.IsActive || !sub.LastUsedAt.Before(cutoff) {
			continue
		}
		for _, other := range s.subs {
			if other.ID > id && other.UserID == sub.UserID && other.Endpoint == sub.Endpoint {
				delete(s.subs, id)
				purged++
				break
			}
		}
	}
	return purged, nil
}

func (s *MemoryStore) EnqueuePending(ctx context.Context, userID int, payload models.NotificationPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = append(s.pending[userID], payload)
	return nil
}

func (s *MemoryStore) DrainPending(ctx context.Context, userID int) ([]models.NotificationPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending[userID]
	delete(s.pending, userID)
	return pending, nil
}

func (s *MemoryStore) RecordAnalytics(ctx context.Context, event models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// AnalyticsEvents returns recorded events, for tests.
func (s *MemoryStore) AnalyticsEvents() []models.AnalyticsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnalyticsEvent(nil), s.events...)
}
