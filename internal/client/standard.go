package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"dealer-desk-go/internal/models"
)

// standardPush is the Web Push path: service worker plus PushManager plus
// server registration.
type standardPush struct {
	deps Deps
}

func (s *standardPush) Name() string { return "standard" }

func (s *standardPush) IsSubscribed(ctx context.Context) (bool, error) {
	reg, err := s.deps.API.RegisterServiceWorker(ctx, s.deps.WorkerPath)
	if err != nil {
		return false, nil
	}
	sub, err := reg.Subscription(ctx)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

func (s *standardPush) Subscribe(ctx context.Context, userID int) error {
	if !s.deps.API.SupportsPush() {
		return ErrUnsupported
	}

	perm, err := s.deps.API.RequestNotificationPermission(ctx)
	if err != nil {
		return err
	}
	if perm != PermissionGranted {
		// Dismissing the prompt lands here too; terminal, never retried.
		return ErrPermissionDenied
	}

	reg, err := s.deps.API.RegisterServiceWorker(ctx, s.deps.WorkerPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerRegistration, err)
	}
	if err := reg.Ready(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerRegistration, err)
	}

	serverKey, err := DecodeVAPIDKey(s.deps.VAPIDPublicKey)
	if err != nil {
		return err
	}

	sub, err := reg.Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: serverKey,
	})
	if err != nil {
		return fmt.Errorf("push subscribe failed: %w", err)
	}

	// Normalize divergent key encodings exactly once, right where the
	// subscription is obtained.
	p256dhRaw, authRaw := sub.Keys()
	p256dh, err := CanonicalKey(p256dhRaw)
	if err != nil {
		return err
	}
	auth, err := CanonicalKey(authRaw)
	if err != nil {
		return err
	}

	return s.register(ctx, userID, sub.Endpoint(), p256dh, auth)
}

func (s *standardPush) register(ctx context.Context, userID int, endpoint, p256dh, auth string) error {
	body, err := json.Marshal(map[string]any{
		"user_id":  userID,
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": p256dh,
			"auth":   auth,
		},
		"device_type": models.DeviceDesktop,
		"user_agent":  s.deps.API.UserAgent(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.deps.ServerURL+"/api/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.deps.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrServerRejected, resp.StatusCode)
	}

	var result struct {
		Success        bool `json:"success"`
		SubscriptionID int  `json:"subscription_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || !result.Success {
		return ErrServerRejected
	}

	return nil
}

// Unsubscribe drops the browser subscription and asks the server to
// deactivate the matching row. Browser state is authoritative for future
// detection: when the server call fails after a successful browser-side
// unsubscribe, the operation still counts as succeeded locally and the
// server converges later (dead-endpoint classification on its next send).
func (s *standardPush) Unsubscribe(ctx context.Context) error {
	reg, err := s.deps.API.RegisterServiceWorker(ctx, s.deps.WorkerPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerRegistration, err)
	}
	sub, err := reg.Subscription(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}

	endpoint := sub.Endpoint()
	if err := sub.Unsubscribe(ctx); err != nil {
		return err
	}

	if err := s.deactivate(ctx, endpoint); err != nil {
		log.Printf("Server deactivation failed after browser unsubscribe (will reconcile): %v", err)
	}

	return nil
}

func (s *standardPush) deactivate(ctx context.Context, endpoint string) error {
	body, err := json.Marshal(map[string]string{"endpoint": endpoint})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.deps.ServerURL+"/api/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.deps.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
