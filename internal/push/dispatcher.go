package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"dealer-desk-go/internal/metrics"
	"dealer-desk-go/internal/models"
	"dealer-desk-go/internal/store"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Dispatcher encrypts and transmits notifications to stored subscriptions
// under the server's VAPID credentials, and classifies delivery failures.
type Dispatcher struct {
	subs    store.SubscriptionStore
	pending store.PendingStore

	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string

	// Injected in tests to script push-endpoint responses.
	httpClient webpush.HTTPClient
}

func NewDispatcher(subs store.SubscriptionStore, pending store.PendingStore, vapidPublicKey, vapidPrivateKey, subscriber string) *Dispatcher {
	return &Dispatcher{
		subs:            subs,
		pending:         pending,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
	}
}

// SetHTTPClient overrides the transport used for push endpoint requests.
func (d *Dispatcher) SetHTTPClient(c webpush.HTTPClient) {
	d.httpClient = c
}

// Send delivers one payload to one subscription. An HTTP 404 or 410 from the
// push service means the endpoint is gone for good: the row is deactivated
// and the send is never retried. Any other failure is logged and dropped;
// delivery is best-effort (the payload is queued for background sync instead).
func (d *Dispatcher) Send(ctx context.Context, subscriptionID int, payload models.NotificationPayload) error {
	sub, err := d.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	return d.sendTo(ctx, sub, payload)
}

// SendToUser fans a payload out to every active subscription of a user.
// Sends run concurrently; one dead endpoint never aborts delivery to the
// rest. If the user has no active subscription capable of receiving push,
// the payload is queued for their next background sync.
func (d *Dispatcher) SendToUser(ctx context.Context, userID int, payload models.NotificationPayload) error {
	subs, err := d.subs.GetActiveSubscriptions(ctx, userID)
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		return d.queueForSync(ctx, userID, payload)
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()
			if err := d.sendTo(ctx, sub, payload); err != nil {
				log.Printf("Failed to send push to subscription %d: %v", sub.ID, err)
			}
		}(sub)
	}
	wg.Wait()

	return nil
}

func (d *Dispatcher) sendTo(ctx context.Context, sub models.Subscription, payload models.NotificationPayload) error {
	// iOS Safari ignores actions/badge/vibrate; don't send them.
	if sub.DeviceType == models.DeviceIOS || models.IsIOSUserAgent(sub.UserAgent) {
		payload.ReduceForIOS()
	}

	message, err := json.Marshal(payload)
	if err != nil {
		metrics.PushFailed.WithLabelValues(metrics.ReasonEncode).Inc()
		return err
	}

	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, s, &webpush.Options{
		HTTPClient:      d.httpClient,
		Subscriber:      d.subscriber,
		VAPIDPublicKey:  d.vapidPublicKey,
		VAPIDPrivateKey: d.vapidPrivateKey,
		TTL:             60 * 60 * 24,
	})
	if err != nil {
		metrics.PushFailed.WithLabelValues(metrics.ReasonTransient).Inc()
		d.queueForSync(ctx, sub.UserID, payload)
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Endpoint unregistered. Soft-deactivate so re-registration stays
		// idempotent; this subscription is excluded from all future sends.
		log.Printf("Subscription %d endpoint gone (status %d), deactivating", sub.ID, resp.StatusCode)
		metrics.PushFailed.WithLabelValues(metrics.ReasonGone).Inc()
		metrics.SubscriptionsDeactivated.Inc()
		if err := d.subs.DeactivateSubscription(ctx, sub.ID); err != nil {
			log.Printf("Failed to deactivate subscription %d: %v", sub.ID, err)
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.PushSent.Inc()
		if err := d.subs.TouchSubscription(ctx, sub.ID); err != nil {
			log.Printf("Failed to touch subscription %d: %v", sub.ID, err)
		}
	default:
		log.Printf("Unexpected status %d pushing to subscription %d", resp.StatusCode, sub.ID)
		metrics.PushFailed.WithLabelValues(metrics.ReasonTransient).Inc()
		d.queueForSync(ctx, sub.UserID, payload)
	}

	return nil
}

func (d *Dispatcher) queueForSync(ctx context.Context, userID int, payload models.NotificationPayload) error {
	if d.pending == nil {
		return nil
	}
	if err := d.pending.EnqueuePending(ctx, userID, payload); err != nil {
		log.Printf("Failed to queue pending notification for user %d: %v", userID, err)
		return err
	}
	metrics.PendingQueued.Inc()
	return nil
}
