package client

import "context"

// Manager is the page's entry point to push subscriptions. The capability is
// selected once at construction; no call site branches on platform again.
type Manager struct {
	capability Capability
}

func NewManager(deps Deps) *Manager {
	return &Manager{capability: DetectCapability(deps)}
}

// CapabilityName reports which platform path was selected, for diagnostics.
func (m *Manager) CapabilityName() string {
	return m.capability.Name()
}

// IsSubscribed reports whether a live push subscription exists, or on iOS
// whether the local enabled flag is set.
func (m *Manager) IsSubscribed(ctx context.Context) (bool, error) {
	return m.capability.IsSubscribed(ctx)
}

// Subscribe enables notifications for the user on this device. The error is
// one of the distinct failure conditions (ErrUnsupported,
// ErrPermissionDenied, ErrWorkerRegistration, ErrServerRejected) so the UI
// can show an accurate message.
func (m *Manager) Subscribe(ctx context.Context, userID int) error {
	return m.capability.Subscribe(ctx, userID)
}

// Unsubscribe disables notifications on this device.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	return m.capability.Unsubscribe(ctx)
}
