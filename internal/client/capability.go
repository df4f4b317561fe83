package client

import (
	"context"
	"errors"
	"net/http"

	"dealer-desk-go/internal/models"
)

// Distinct failure conditions so callers can show an accurate message
// instead of a generic error.
var (
	ErrUnsupported        = errors.New("push notifications are not supported on this platform")
	ErrPermissionDenied   = errors.New("notification permission was denied")
	ErrWorkerRegistration = errors.New("service worker registration failed")
	ErrServerRejected     = errors.New("server rejected the subscription")
)

// Capability is the platform push capability selected once at startup.
// Implementations: standardPush (Web Push), iosFallback (local notifications
// only), unsupported.
type Capability interface {
	Name() string
	Subscribe(ctx context.Context, userID int) error
	Unsubscribe(ctx context.Context) error
	IsSubscribed(ctx context.Context) (bool, error)
}

// Deps is everything a capability needs to do its job.
type Deps struct {
	API            BrowserAPI
	Settings       Settings
	HTTPClient     *http.Client
	ServerURL      string // origin of the HTTP boundary, no trailing slash
	WorkerPath     string // fixed service worker path, e.g. /sw.js
	VAPIDPublicKey string // URL-safe base64, must match the server's key
}

// DetectCapability inspects the platform exactly once and returns the
// matching capability. Call sites never re-detect; they hold the returned
// value for the life of the page.
func DetectCapability(deps Deps) Capability {
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	switch {
	case models.IsIOSUserAgent(deps.API.UserAgent()):
		// iOS Safari cannot deliver true web push to this app; local
		// notifications plus background sync are the best available.
		return &iosFallback{deps: deps}
	case deps.API.SupportsServiceWorker() && deps.API.SupportsPush():
		return &standardPush{deps: deps}
	default:
		return &unsupported{}
	}
}

type unsupported struct{}

func (u *unsupported) Name() string { return "unsupported" }

func (u *unsupported) Subscribe(ctx context.Context, userID int) error { return ErrUnsupported }

func (u *unsupported) Unsubscribe(ctx context.Context) error { return ErrUnsupported }

func (u *unsupported) IsSubscribed(ctx context.Context) (bool, error) { return false, nil }
