package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	var p NotificationPayload
	p.Normalize()

	assert.Equal(t, DefaultTitle, p.Title)
	assert.Equal(t, DefaultBody, p.Body)
	assert.Equal(t, DefaultIcon, p.Icon)
	assert.Equal(t, DefaultTag, p.Tag)
	assert.Equal(t, DefaultURL, p.Data.URL)
	assert.Equal(t, DefaultType, p.Data.Type)
	assert.NotZero(t, p.Data.Timestamp)
}

func TestNormalizeKeepsProvidedFields(t *testing.T) {
	p := NotificationPayload{
		Title: "Trade-in approved",
		Body:  "Stock #4417 cleared appraisal",
		Data:  NotificationData{URL: "/vehicles/4417", Type: "appraisal", Timestamp: 1700000000000},
	}
	p.Normalize()

	assert.Equal(t, "Trade-in approved", p.Title)
	assert.Equal(t, "/vehicles/4417", p.Data.URL)
	assert.Equal(t, "appraisal", p.Data.Type)
	assert.Equal(t, int64(1700000000000), p.Data.Timestamp)
}

func TestReduceForIOS(t *testing.T) {
	p := NotificationPayload{
		Title:   "T",
		Badge:   "/badge.png",
		Vibrate: []int{200, 100, 200},
		Actions: []NotificationAction{{Action: "view", Title: "View"}},
	}
	p.ReduceForIOS()

	assert.Empty(t, p.Actions)
	assert.Empty(t, p.Badge)
	assert.Empty(t, p.Vibrate)
	assert.Equal(t, "T", p.Title)
}

func TestIsIOSUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari/604.1", true},
		{"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) Safari/604.1", true},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) CriOS/120.0 Safari/604.1", true},
		{"Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0", false},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsIOSUserAgent(tt.ua), tt.ua)
	}
}
