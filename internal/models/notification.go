package models

import (
	"strings"
	"time"
)

// Defaults used when a push payload is missing or unparseable. A broken
// payload still produces a visible notification.
const (
	DefaultTitle = "DealerDesk"
	DefaultBody  = "You have a new notification"
	DefaultIcon  = "/static/icons/icon-192.png"
	DefaultTag   = "dealer-desk"
	DefaultURL   = "/"
	DefaultType  = "general"
)

// NotificationAction is a button rendered on the notification. Not supported
// on iOS Safari.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationData rides inside the payload and is stored on the displayed
// notification so click handling can resolve a target URL later.
type NotificationData struct {
	URL            string `json:"url"`
	NotificationID int    `json:"notification_id,omitempty"`
	Timestamp      int64  `json:"timestamp"`
	Type           string `json:"type"`
}

// NotificationPayload is the wire format pushed to subscribers. It is never
// persisted on the client.
type NotificationPayload struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	Badge   string               `json:"badge,omitempty"`
	Tag     string               `json:"tag,omitempty"`
	Vibrate []int                `json:"vibrate,omitempty"`
	Data    NotificationData     `json:"data"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// DefaultPayload is what gets displayed when a push event carries no usable
// JSON body.
func DefaultPayload() NotificationPayload {
	return NotificationPayload{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		Tag:   DefaultTag,
		Data: NotificationData{
			URL:       DefaultURL,
			Timestamp: time.Now().UnixMilli(),
			Type:      DefaultType,
		},
	}
}

// Normalize fills in defaults for any missing fields so downstream code never
// sees empty titles or a zero timestamp.
func (p *NotificationPayload) Normalize() {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Body == "" {
		p.Body = DefaultBody
	}
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	if p.Data.URL == "" {
		p.Data.URL = DefaultURL
	}
	if p.Data.Type == "" {
		p.Data.Type = DefaultType
	}
	if p.Data.Timestamp == 0 {
		p.Data.Timestamp = time.Now().UnixMilli()
	}
}

// IsIOSUserAgent reports whether ua looks like an iOS browser. Every browser
// on iOS is WebKit underneath, so the reduction rule applies to all of them.
func IsIOSUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	return strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod")
}

// ReduceForIOS strips the notification options iOS Safari does not support.
func (p *NotificationPayload) ReduceForIOS() {
	p.Actions = nil
	p.Badge = ""
	p.Vibrate = nil
}
