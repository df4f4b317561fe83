package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dealer-desk-go/internal/models"
)

// Fetch answers a fetch event. Requests to denylisted third-party hosts get
// an empty blocked response; everything else is served cache-first with a
// network fallback.
func (r *Runtime) Fetch(ctx context.Context, rawURL string) (CachedResponse, error) {
	if u, err := url.Parse(rawURL); err == nil && blockedHosts[u.Host] {
		return CachedResponse{Status: http.StatusForbidden, Header: http.Header{}, Body: nil}, nil
	}

	cache, err := r.caches.Open(CacheName())
	if err == nil {
		key := rawURL
		if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
			key = u.Path
			if u.RawQuery != "" {
				key += "?" + u.RawQuery
			}
		}
		if resp, ok := cache.Match(key); ok {
			return resp, nil
		}
	}

	return r.fetchNetwork(ctx, rawURL)
}

// HandlePush builds the notification for a push event and returns the task
// the host must await until the display settles. An unparseable payload is
// replaced by the default notification rather than dropped.
func (r *Runtime) HandlePush(data []byte) Task {
	payload := parsePushPayload(data)

	if models.IsIOSUserAgent(r.userAgent) {
		payload.ReduceForIOS()
	}

	return func(ctx context.Context) error {
		return r.notifier.ShowNotification(payload.Title, NotificationOptions{
			Body:    payload.Body,
			Icon:    payload.Icon,
			Badge:   payload.Badge,
			Tag:     payload.Tag,
			Vibrate: payload.Vibrate,
			Data:    payload.Data,
			Actions: payload.Actions,
		})
	}
}

func parsePushPayload(data []byte) models.NotificationPayload {
	if len(data) == 0 {
		return models.DefaultPayload()
	}

	var payload models.NotificationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Unparseable push payload, showing default notification: %v", err)
		return models.DefaultPayload()
	}

	payload.Normalize()
	return payload
}

// HandleNotificationClick closes the notification and resolves what the
// click means. The dismiss action stops there: no navigation, no analytics.
// Otherwise the task focuses an existing same-origin client and posts it a
// NAVIGATE_TO message, or opens a new window; the analytics call runs
// alongside without blocking the navigation outcome.
func (r *Runtime) HandleNotificationClick(n Notification, action string) Task {
	n.Close()

	if action == ActionDismiss {
		return func(ctx context.Context) error { return nil }
	}

	data := n.Data()
	targetURL := data.URL
	if targetURL == "" {
		targetURL = models.DefaultURL
	}

	return func(ctx context.Context) error {
		var wg sync.WaitGroup
		if data.NotificationID != 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.postAnalytics(ctx, data.NotificationID, models.EventClicked)
			}()
		}

		navErr := r.navigate(ctx, targetURL)

		// The analytics call is still part of this event's lifetime; only
		// its outcome is ignored.
		wg.Wait()
		return navErr
	}
}

func (r *Runtime) navigate(ctx context.Context, targetURL string) error {
	origin, err := url.Parse(r.serverURL)
	if err != nil {
		return err
	}

	clients, err := r.clients.MatchAll(ctx)
	if err != nil {
		return err
	}

	for _, c := range clients {
		u, err := url.Parse(c.URL())
		if err != nil || u.Scheme != origin.Scheme || u.Host != origin.Host {
			continue
		}
		if err := c.Focus(ctx); err != nil {
			log.Printf("Failed to focus client %s: %v", c.URL(), err)
			continue
		}
		return c.PostMessage(map[string]any{
			"type": MsgNavigateTo,
			"url":  targetURL,
		})
	}

	return r.clients.OpenWindow(ctx, targetURL)
}

// HandleNotificationClose records a dismissal for analytics. Fire-and-forget:
// a network failure is logged and swallowed.
func (r *Runtime) HandleNotificationClose(n Notification) Task {
	data := n.Data()
	return func(ctx context.Context) error {
		if data.NotificationID != 0 {
			r.postAnalytics(ctx, data.NotificationID, models.EventDismissed)
		}
		return nil
	}
}

func (r *Runtime) postAnalytics(ctx context.Context, notificationID int, eventType string) {
	body, err := json.Marshal(models.AnalyticsEvent{
		NotificationID: notificationID,
		EventType:      eventType,
		Timestamp:      time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/api/notifications/analytics", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Printf("Analytics call failed (ignored): %v", err)
		return
	}
	resp.Body.Close()
}

// HandleSync answers a background-sync event. For the push sync tag it pulls
// queued notifications from the server and displays each one independently;
// one failed display must not prevent the others.
func (r *Runtime) HandleSync(tag string) Task {
	if tag != SyncTag {
		return func(ctx context.Context) error { return nil }
	}

	return func(ctx context.Context) error {
		body, err := json.Marshal(map[string]any{
			"timestamp": time.Now().UnixMilli(),
			"sync_type": tag,
		})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/api/notifications/sync", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("sync request: HTTP %d", resp.StatusCode)
		}

		var result struct {
			PendingNotifications []models.NotificationPayload `json:"pending_notifications"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return err
		}

		for _, payload := range result.PendingNotifications {
			payload.Normalize()
			if models.IsIOSUserAgent(r.userAgent) {
				payload.ReduceForIOS()
			}
			if err := r.notifier.ShowNotification(payload.Title, NotificationOptions{
				Body:    payload.Body,
				Icon:    payload.Icon,
				Badge:   payload.Badge,
				Tag:     payload.Tag,
				Vibrate: payload.Vibrate,
				Data:    payload.Data,
				Actions: payload.Actions,
			}); err != nil {
				log.Printf("Failed to display pending notification: %v", err)
			}
		}

		return nil
	}
}

// HandleMessage answers control messages from the page.
func (r *Runtime) HandleMessage(msg Message) Task {
	return func(ctx context.Context) error {
		switch msg.Type {
		case MsgSkipWaiting:
			r.skipWaiting = true
			if r.state == StateInstalled {
				return r.Activate(ctx)
			}
			return nil
		case MsgGetVersion:
			if msg.Port == nil {
				return nil
			}
			return msg.Port.Post(map[string]any{
				"type":    "VERSION",
				"version": CacheVersion,
			})
		case MsgUpdateSubscription:
			if msg.Port == nil {
				return nil
			}
			// The page owns the subscription; signal it to refresh.
			return msg.Port.Post(map[string]any{
				"type": "UPDATE_SUBSCRIPTION_REQUIRED",
			})
		default:
			return nil
		}
	}
}
