package client

import (
	"context"
	"log"
	"strconv"
)

// Settings keys for the iOS fallback path.
const (
	settingPushEnabled = "push_enabled"
	settingPushUserID  = "push_user_id"
)

// iosFallback covers iOS Safari, which cannot deliver true web push to this
// app. On grant it records a local enabled flag; queued notifications reach
// the device through the worker's background-sync pull instead of push, so
// there is no server registration in this path.
type iosFallback struct {
	deps Deps
}

func (f *iosFallback) Name() string { return "ios-fallback" }

func (f *iosFallback) IsSubscribed(ctx context.Context) (bool, error) {
	enabled, err := f.deps.Settings.GetSetting(ctx, settingPushEnabled)
	if err != nil {
		return false, err
	}
	return enabled == "true", nil
}

func (f *iosFallback) Subscribe(ctx context.Context, userID int) error {
	perm, err := f.deps.API.RequestNotificationPermission(ctx)
	if err != nil {
		return err
	}
	if perm != PermissionGranted {
		return ErrPermissionDenied
	}

	if err := f.deps.Settings.SetSetting(ctx, settingPushEnabled, "true"); err != nil {
		return err
	}
	if err := f.deps.Settings.SetSetting(ctx, settingPushUserID, strconv.Itoa(userID)); err != nil {
		return err
	}

	// One-time confirmation so the user sees notifications actually work.
	if err := f.deps.API.ShowNotification("Notifications enabled", "You'll be notified about updates on this device"); err != nil {
		log.Printf("Confirmation notification failed: %v", err)
	}

	return nil
}

func (f *iosFallback) Unsubscribe(ctx context.Context) error {
	return f.deps.Settings.SetSetting(ctx, settingPushEnabled, "false")
}
