package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"dealer-desk-go/internal/models"
)

// SubscriptionsHandler registers or deactivates a push subscription.
func (h *Handler) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.registerSubscription(w, r)
	case http.MethodDelete:
		h.removeSubscription(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) registerSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   int    `json:"user_id"`
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		DeviceType string `json:"device_type"`
		UserAgent  string `json:"user_agent"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// The session is authoritative for identity when present; the body
	// user_id covers callers outside a browser session.
	userID := currentUserID(r)
	if userID == 0 {
		userID = req.UserID
	}
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		http.Error(w, "Missing subscription fields", http.StatusBadRequest)
		return
	}

	if req.DeviceType == "" {
		if models.IsIOSUserAgent(req.UserAgent) {
			req.DeviceType = models.DeviceIOS
		} else {
			req.DeviceType = models.DeviceDesktop
		}
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	id, err := h.Subs.SaveSubscription(r.Context(), models.Subscription{
		UserID:     userID,
		Endpoint:   req.Endpoint,
		P256dh:     req.Keys.P256dh,
		Auth:       req.Keys.Auth,
		DeviceType: req.DeviceType,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		log.Printf("Failed to save subscription: %v", err)
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":         true,
		"subscription_id": id,
	})
}

func (h *Handler) removeSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   int    `json:"user_id"`
		Endpoint string `json:"endpoint"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	userID := currentUserID(r)
	if userID == 0 {
		userID = req.UserID
	}
	if userID == 0 || req.Endpoint == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Subs.DeactivateByEndpoint(r.Context(), userID, req.Endpoint); err != nil {
		log.Printf("Failed to deactivate subscription: %v", err)
		http.Error(w, "Failed to deactivate subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
