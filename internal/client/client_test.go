package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dealer-desk-go/internal/offline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iosUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari/604.1"
const desktopUA = "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0"

type fakeBrowser struct {
	userAgent  string
	sw         bool
	push       bool
	permission Permission
	permErr    error
	reg        *fakeRegistration
	regErr     error
	shown      []string
}

func (b *fakeBrowser) UserAgent() string          { return b.userAgent }
func (b *fakeBrowser) SupportsServiceWorker() bool { return b.sw }
func (b *fakeBrowser) SupportsPush() bool          { return b.push }

func (b *fakeBrowser) RequestNotificationPermission(ctx context.Context) (Permission, error) {
	return b.permission, b.permErr
}

func (b *fakeBrowser) RegisterServiceWorker(ctx context.Context, scriptURL string) (Registration, error) {
	if b.regErr != nil {
		return nil, b.regErr
	}
	return b.reg, nil
}

func (b *fakeBrowser) ShowNotification(title, body string) error {
	b.shown = append(b.shown, title)
	return nil
}

type fakeRegistration struct {
	readyErr      error
	subscribeOpts SubscribeOptions
	subscribeErr  error
	newSub        *fakePushSub
	existing      *fakePushSub
}

func (r *fakeRegistration) Ready(ctx context.Context) error { return r.readyErr }

func (r *fakeRegistration) Subscribe(ctx context.Context, opts SubscribeOptions) (PushSubscription, error) {
	if r.subscribeErr != nil {
		return nil, r.subscribeErr
	}
	r.subscribeOpts = opts
	return r.newSub, nil
}

func (r *fakeRegistration) Subscription(ctx context.Context) (PushSubscription, error) {
	if r.existing == nil {
		return nil, nil
	}
	return r.existing, nil
}

type fakePushSub struct {
	endpoint     string
	p256dh       KeyMaterial
	auth         KeyMaterial
	unsubscribed bool
	unsubErr     error
}

func (s *fakePushSub) Endpoint() string                 { return s.endpoint }
func (s *fakePushSub) Keys() (KeyMaterial, KeyMaterial) { return s.p256dh, s.auth }

func (s *fakePushSub) Unsubscribe(ctx context.Context) error {
	if s.unsubErr != nil {
		return s.unsubErr
	}
	s.unsubscribed = true
	return nil
}

func testVAPIDKey() string {
	key := make([]byte, 65)
	key[0] = 0x04
	for i := 1; i < len(key); i++ {
		key[i] = byte(i)
	}
	return base64.RawURLEncoding.EncodeToString(key)
}

func testSettings(t *testing.T) Settings {
	t.Helper()
	q, err := offline.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestDetectCapability(t *testing.T) {
	tests := []struct {
		name    string
		browser *fakeBrowser
		want    string
	}{
		{"ios safari", &fakeBrowser{userAgent: iosUA, sw: true, push: false}, "ios-fallback"},
		{"desktop chrome", &fakeBrowser{userAgent: desktopUA, sw: true, push: true}, "standard"},
		{"no service worker", &fakeBrowser{userAgent: desktopUA, sw: false, push: false}, "unsupported"},
		{"worker without push", &fakeBrowser{userAgent: desktopUA, sw: true, push: false}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(Deps{API: tt.browser, Settings: testSettings(t)})
			assert.Equal(t, tt.want, m.CapabilityName())
		})
	}
}

func TestUnsupportedCapability(t *testing.T) {
	m := NewManager(Deps{API: &fakeBrowser{userAgent: desktopUA}})

	assert.ErrorIs(t, m.Subscribe(context.Background(), 1), ErrUnsupported)
	assert.ErrorIs(t, m.Unsubscribe(context.Background()), ErrUnsupported)

	ok, err := m.IsSubscribed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

type capturedRegistration struct {
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceType string `json:"device_type"`
	UserAgent  string `json:"user_agent"`
}

func newRegistrationServer(t *testing.T, captured *capturedRegistration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/subscriptions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		json.NewEncoder(w).Encode(map[string]any{"success": true, "subscription_id": 42})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStandardSubscribeRegistersCanonicalKeys(t *testing.T) {
	p256dhBytes := bytes.Repeat([]byte{0xAB}, 65)
	authBytes := bytes.Repeat([]byte{0xCD}, 16)

	reg := &fakeRegistration{
		newSub: &fakePushSub{
			endpoint: "https://push.example/send/abc",
			p256dh:   KeyMaterial{Bytes: p256dhBytes},
			// Standard padded base64, as some browsers deliver it.
			auth: KeyMaterial{Base64: base64.StdEncoding.EncodeToString(authBytes)},
		},
	}
	browser := &fakeBrowser{userAgent: desktopUA, sw: true, push: true, permission: PermissionGranted, reg: reg}

	var captured capturedRegistration
	srv := newRegistrationServer(t, &captured)

	m := NewManager(Deps{
		API:            browser,
		HTTPClient:     srv.Client(),
		ServerURL:      srv.URL,
		WorkerPath:     "/sw.js",
		VAPIDPublicKey: testVAPIDKey(),
	})

	require.NoError(t, m.Subscribe(context.Background(), 7))

	assert.Equal(t, 7, captured.UserID)
	assert.Equal(t, "https://push.example/send/abc", captured.Endpoint)
	assert.Equal(t, desktopUA, captured.UserAgent)

	// Both keys arrive in the one canonical encoding regardless of how the
	// browser delivered them.
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(p256dhBytes), captured.Keys.P256dh)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(authBytes), captured.Keys.Auth)

	// The browser subscribe got the decoded VAPID key.
	assert.True(t, reg.subscribeOpts.UserVisibleOnly)
	assert.Len(t, reg.subscribeOpts.ApplicationServerKey, 65)
}

func TestStandardSubscribePermissionDenied(t *testing.T) {
	for _, perm := range []Permission{PermissionDenied, PermissionDefault} {
		browser := &fakeBrowser{userAgent: desktopUA, sw: true, push: true, permission: perm}
		m := NewManager(Deps{API: browser, VAPIDPublicKey: testVAPIDKey()})

		err := m.Subscribe(context.Background(), 1)
		assert.ErrorIs(t, err, ErrPermissionDenied, "permission %q", perm)
	}
}

func TestStandardSubscribeWorkerRegistrationFailure(t *testing.T) {
	browser := &fakeBrowser{
		userAgent:  desktopUA,
		sw:         true,
		push:       true,
		permission: PermissionGranted,
		regErr:     assert.AnError,
	}
	m := NewManager(Deps{API: browser, VAPIDPublicKey: testVAPIDKey()})

	err := m.Subscribe(context.Background(), 1)
	assert.ErrorIs(t, err, ErrWorkerRegistration)
}

func TestStandardSubscribeServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := &fakeRegistration{
		newSub: &fakePushSub{
			endpoint: "https://push.example/send/abc",
			p256dh:   KeyMaterial{Bytes: bytes.Repeat([]byte{1}, 65)},
			auth:     KeyMaterial{Bytes: bytes.Repeat([]byte{2}, 16)},
		},
	}
	browser := &fakeBrowser{userAgent: desktopUA, sw: true, push: true, permission: PermissionGranted, reg: reg}
	m := NewManager(Deps{
		API:            browser,
		HTTPClient:     srv.Client(),
		ServerURL:      srv.URL,
		VAPIDPublicKey: testVAPIDKey(),
	})

	err := m.Subscribe(context.Background(), 1)
	assert.ErrorIs(t, err, ErrServerRejected)
}

func TestStandardUnsubscribeSurvivesServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	existing := &fakePushSub{endpoint: "https://push.example/send/abc"}
	browser := &fakeBrowser{
		userAgent:  desktopUA,
		sw:         true,
		push:       true,
		permission: PermissionGranted,
		reg:        &fakeRegistration{existing: existing},
	}
	m := NewManager(Deps{API: browser, HTTPClient: srv.Client(), ServerURL: srv.URL})

	// The browser-side unsubscribe is authoritative; the server reconciles
	// later via dead-endpoint classification.
	require.NoError(t, m.Unsubscribe(context.Background()))
	assert.True(t, existing.unsubscribed)
}

func TestStandardUnsubscribeWithoutSubscription(t *testing.T) {
	browser := &fakeBrowser{
		userAgent:  desktopUA,
		sw:         true,
		push:       true,
		permission: PermissionGranted,
		reg:        &fakeRegistration{},
	}
	m := NewManager(Deps{API: browser})

	assert.NoError(t, m.Unsubscribe(context.Background()))
}

func TestStandardIsSubscribed(t *testing.T) {
	browser := &fakeBrowser{userAgent: desktopUA, sw: true, push: true, reg: &fakeRegistration{}}
	m := NewManager(Deps{API: browser})

	ok, err := m.IsSubscribed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	browser.reg.existing = &fakePushSub{endpoint: "https://push.example/send/abc"}
	ok, err = m.IsSubscribed(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIOSFallbackSubscribeLifecycle(t *testing.T) {
	browser := &fakeBrowser{userAgent: iosUA, sw: true, push: false, permission: PermissionGranted}
	settings := testSettings(t)
	m := NewManager(Deps{API: browser, Settings: settings})
	ctx := context.Background()

	require.Equal(t, "ios-fallback", m.CapabilityName())

	ok, err := m.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Subscribe(ctx, 7))

	ok, err = m.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Enabled flag and owning user land in durable settings; the
	// confirmation notification was shown locally.
	userID, err := settings.GetSetting(ctx, "push_user_id")
	require.NoError(t, err)
	assert.Equal(t, "7", userID)
	assert.Len(t, browser.shown, 1)

	require.NoError(t, m.Unsubscribe(ctx))
	ok, err = m.IsSubscribed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIOSFallbackPermissionDenied(t *testing.T) {
	browser := &fakeBrowser{userAgent: iosUA, permission: PermissionDenied}
	m := NewManager(Deps{API: browser, Settings: testSettings(t)})

	err := m.Subscribe(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ok, err := m.IsSubscribed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeVAPIDKey(t *testing.T) {
	b, err := DecodeVAPIDKey(testVAPIDKey())
	require.NoError(t, err)
	assert.Len(t, b, 65)

	_, err = DecodeVAPIDKey(base64.RawURLEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = DecodeVAPIDKey("!!!not base64!!!")
	assert.Error(t, err)
}

func TestCanonicalKeyNormalizesAllEncodings(t *testing.T) {
	raw := []byte{0xFB, 0xEF, 0xBE, 0x01, 0x02, 0x03}
	want := base64.RawURLEncoding.EncodeToString(raw)

	inputs := []KeyMaterial{
		{Bytes: raw},
		{Base64: base64.StdEncoding.EncodeToString(raw)},
		{Base64: base64.RawStdEncoding.EncodeToString(raw)},
		{Base64: base64.URLEncoding.EncodeToString(raw)},
		{Base64: base64.RawURLEncoding.EncodeToString(raw)},
	}
	for i, in := range inputs {
		got, err := CanonicalKey(in)
		require.NoError(t, err, "input %d", i)
		assert.Equal(t, want, got, "input %d", i)
	}

	_, err := CanonicalKey(KeyMaterial{})
	assert.Error(t, err)
}
