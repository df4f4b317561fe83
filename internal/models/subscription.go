package models

import "time"

// Device types recorded at registration time.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceIOS     = "ios"
)

type Subscription struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dh     string    `json:"keys_p256dh"` // Mapped from keys.p256dh, canonical base64
	Auth       string    `json:"keys_auth"`   // Mapped from keys.auth, canonical base64
	DeviceType string    `json:"device_type"`
	UserAgent  string    `json:"user_agent"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}
