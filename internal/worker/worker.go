// Package worker models the service-worker runtime: cache lifecycle, push
// event handling, notification interaction, background-sync replay, and
// control messages from the page. Browser surfaces (cache storage,
// notification display, window clients) are injected as interfaces; the host
// environment binds them, tests fake them.
package worker

import (
	"context"
	"net/http"

	"dealer-desk-go/internal/models"
)

// Task is an event handler's pending asynchronous work. The runtime awaits
// the task before the event counts as handled, the equivalent of
// event.waitUntil. Work not wrapped in the returned task risks the worker
// being torn down mid-operation, which is the dominant correctness hazard of
// this whole component.
type Task func(ctx context.Context) error

// State is the worker lifecycle state.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	default:
		return "parsed"
	}
}

// CachedResponse is a response body held in a versioned cache.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cache is one named cache inside CacheStorage.
type Cache interface {
	Put(url string, resp CachedResponse) error
	Match(url string) (CachedResponse, bool)
}

// CacheStorage is the browser's cache storage surface.
type CacheStorage interface {
	Open(name string) (Cache, error)
	Names() ([]string, error)
	Delete(name string) error
}

// NotificationOptions mirror the options accepted by showNotification.
type NotificationOptions struct {
	Body    string
	Icon    string
	Badge   string
	Tag     string
	Vibrate []int
	Data    models.NotificationData
	Actions []models.NotificationAction
}

// Notifier displays notifications through the worker's registration.
type Notifier interface {
	ShowNotification(title string, opts NotificationOptions) error
}

// Notification is a displayed notification the user interacted with.
type Notification interface {
	Tag() string
	Data() models.NotificationData
	Close()
}

// WindowClient is an open page under this worker's control.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
	PostMessage(msg map[string]any) error
}

// Clients is the worker's view of its open window clients.
type Clients interface {
	MatchAll(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
	Claim(ctx context.Context) error
}

// MessagePort replies to a page that sent a control message.
type MessagePort interface {
	Post(msg map[string]any) error
}

// Message is a control message from the page.
type Message struct {
	Type string
	Port MessagePort
}

// Control message types.
const (
	MsgSkipWaiting        = "SKIP_WAITING"
	MsgGetVersion         = "GET_VERSION"
	MsgUpdateSubscription = "UPDATE_SUBSCRIPTION"
	MsgNavigateTo         = "NAVIGATE_TO"
)

// SyncTag is the background-sync tag the runtime answers to.
const SyncTag = "push-notification-sync"

// ActionDismiss closes the notification with no navigation and no analytics.
const ActionDismiss = "dismiss"
