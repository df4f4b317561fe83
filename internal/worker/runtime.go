package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// CacheVersion is the single cache invalidation mechanism: bumping it makes
// activate discard every cache created under another version. There is no
// content hashing.
const CacheVersion = "v3"

const cachePrefix = "dealerdesk-"

// CacheName is the versioned cache the runtime owns.
func CacheName() string {
	return cachePrefix + CacheVersion
}

// shellURLs is the small fixed app shell precached on install.
var shellURLs = []string{
	"/",
	"/static/css/app.css",
	"/static/js/app.js",
	"/static/icons/icon-192.png",
	"/offline.html",
}

// blockedHosts are third-party hosts whose requests the worker short-circuits
// with an empty blocked response (CSP hardening).
var blockedHosts = map[string]bool{
	"stats.g.doubleclick.net": true,
	"www.google-analytics.com": true,
}

// Runtime is the service worker. Construct with NewRuntime; the host then
// feeds it lifecycle and functional events and awaits each returned task.
type Runtime struct {
	serverURL string
	userAgent string

	caches     CacheStorage
	notifier   Notifier
	clients    Clients
	httpClient *http.Client

	state       State
	skipWaiting bool
}

func NewRuntime(serverURL, userAgent string, caches CacheStorage, notifier Notifier, clients Clients, httpClient *http.Client) *Runtime {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Runtime{
		serverURL:  serverURL,
		userAgent:  userAgent,
		caches:     caches,
		notifier:   notifier,
		clients:    clients,
		httpClient: httpClient,
		state:      StateParsed,
	}
}

func (r *Runtime) State() State {
	return r.state
}

// WaitUntil runs a handler task and blocks until it settles. Handlers never
// run in true parallel within one worker, but the worker may be suspended
// between events; only work awaited here is guaranteed to finish.
func (r *Runtime) WaitUntil(ctx context.Context, task Task) error {
	return task(ctx)
}

// Install runs the install event: open the versioned cache, populate the app
// shell, then force immediate activation. A precache failure is isolated and
// must never block activation.
func (r *Runtime) Install(ctx context.Context) error {
	r.state = StateInstalling

	err := r.WaitUntil(ctx, r.handleInstall())
	if err != nil {
		log.Printf("Precache failed (continuing to activate): %v", err)
	}

	r.state = StateInstalled
	// Skip the waiting phase so the new worker takes over without waiting
	// for old tabs to close.
	r.skipWaiting = true
	return nil
}

func (r *Runtime) handleInstall() Task {
	return func(ctx context.Context) error {
		cache, err := r.caches.Open(CacheName())
		if err != nil {
			return err
		}

		var firstErr error
		for _, u := range shellURLs {
			resp, err := r.fetchNetwork(ctx, u)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("precache %s: %w", u, err)
				}
				continue
			}
			if err := cache.Put(u, resp); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("precache %s: %w", u, err)
			}
		}
		return firstErr
	}
}

// Activate runs the activate event: drop caches from other versions, then
// claim all open clients so the new worker controls pages without a reload.
func (r *Runtime) Activate(ctx context.Context) error {
	r.state = StateActivating

	if err := r.WaitUntil(ctx, r.handleActivate()); err != nil {
		return err
	}

	r.state = StateActivated
	return nil
}

func (r *Runtime) handleActivate() Task {
	return func(ctx context.Context) error {
		names, err := r.caches.Names()
		if err != nil {
			return err
		}
		for _, name := range names {
			if name != CacheName() {
				if err := r.caches.Delete(name); err != nil {
					log.Printf("Failed to delete old cache %s: %v", name, err)
				}
			}
		}
		return r.clients.Claim(ctx)
	}
}

func (r *Runtime) fetchNetwork(ctx context.Context, url string) (CachedResponse, error) {
	full := url
	if len(url) > 0 && url[0] == '/' {
		full = r.serverURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return CachedResponse{}, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return CachedResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CachedResponse{}, err
	}

	return CachedResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}
