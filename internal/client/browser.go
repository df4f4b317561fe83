// Package client implements the page-side subscription manager: platform
// capability detection, browser push subscribe/unsubscribe, key
// normalization, and registration against the server's HTTP boundary.
package client

import "context"

// Permission is the outcome of a notification permission prompt. A user
// dismissing the prompt is a terminal "denied", not a retryable error.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// KeyMaterial holds subscription key material as the browser delivered it.
// Some browsers hand back raw byte buffers, others base64 strings; exactly
// one of the fields is set.
type KeyMaterial struct {
	Bytes  []byte
	Base64 string
}

type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushSubscription is a live browser push subscription.
type PushSubscription interface {
	Endpoint() string
	Keys() (p256dh, auth KeyMaterial)
	Unsubscribe(ctx context.Context) error
}

// Registration is an installed service worker registration.
type Registration interface {
	// Ready resolves once the worker is activated and controlling.
	Ready(ctx context.Context) error
	Subscribe(ctx context.Context, opts SubscribeOptions) (PushSubscription, error)
	// Subscription returns the existing subscription, or nil when none.
	Subscription(ctx context.Context) (PushSubscription, error)
}

// BrowserAPI models the browser surfaces the page script can reach. The real
// implementation binds to the host environment; tests inject fakes.
type BrowserAPI interface {
	UserAgent() string
	SupportsServiceWorker() bool
	SupportsPush() bool
	RequestNotificationPermission(ctx context.Context) (Permission, error)
	RegisterServiceWorker(ctx context.Context, scriptURL string) (Registration, error)
	// ShowNotification displays a local (non-push) notification.
	ShowNotification(title, body string) error
}

// Settings is the small durable key/value store backing the iOS fallback
// path's local enabled flag. The offline store provides it.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
