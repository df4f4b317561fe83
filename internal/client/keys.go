package client

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeVAPIDKey converts the configured URL-safe base64 VAPID public key
// into the byte array the browser subscribe call expects. The bytes must
// match the server's key exactly or subscribe fails with an opaque browser
// error, so a decode failure here is worth a precise message.
func DecodeVAPIDKey(key string) ([]byte, error) {
	b, err := decodeBase64Loose(key)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID public key: %w", err)
	}
	if len(b) != 65 {
		return nil, fmt.Errorf("invalid VAPID public key: got %d bytes, want 65", len(b))
	}
	return b, nil
}

// CanonicalKey normalizes subscription key material to one URL-safe base64
// string. Browsers diverge here: some deliver raw byte buffers, others
// base64 (standard or URL-safe, padded or not). This is the single place the
// format is detected; everything downstream sees the canonical form.
func CanonicalKey(k KeyMaterial) (string, error) {
	if len(k.Bytes) > 0 {
		return base64.RawURLEncoding.EncodeToString(k.Bytes), nil
	}
	if k.Base64 == "" {
		return "", fmt.Errorf("empty key material")
	}
	b, err := decodeBase64Loose(k.Base64)
	if err != nil {
		return "", fmt.Errorf("undecodable key material: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// decodeBase64Loose accepts standard or URL-safe alphabets, padded or not.
func decodeBase64Loose(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
