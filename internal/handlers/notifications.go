package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"dealer-desk-go/internal/models"
)

// VAPIDKeyHandler returns the public VAPID key the page needs to subscribe.
func (h *Handler) VAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"publicKey": os.Getenv("VAPID_PUBLIC_KEY"),
	})
}

// SyncHandler is hit by the service worker's background-sync handler once
// connectivity is restored. It drains the caller's queued notifications so
// the worker can display them.
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID    int    `json:"user_id"`
		Timestamp int64  `json:"timestamp"`
		SyncType  string `json:"sync_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	userID := currentUserID(r)
	if userID == 0 {
		userID = req.UserID
	}
	if userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pending, err := h.Pending.DrainPending(r.Context(), userID)
	if err != nil {
		log.Printf("Failed to drain pending notifications for user %d: %v", userID, err)
		http.Error(w, "Failed to load pending notifications", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []models.NotificationPayload{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pending_notifications": pending,
	})
}

// AnalyticsHandler records a notification interaction event. Fire-and-forget
// from the worker: the response body is never inspected, so failures are
// logged and a 2xx is still returned.
func (h *Handler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event models.AnalyticsEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	switch event.EventType {
	case models.EventClicked, models.EventOpened, models.EventDismissed:
	default:
		http.Error(w, "Unknown event type", http.StatusBadRequest)
		return
	}

	if err := h.Pending.RecordAnalytics(r.Context(), event); err != nil {
		log.Printf("Failed to record analytics event: %v", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// SendHandler lets the application's event producers push a notification to
// all of a user's devices. Requires an authenticated session.
func (h *Handler) SendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID  int                        `json:"user_id"`
		Payload models.NotificationPayload `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	req.Payload.Normalize()

	if err := h.Dispatcher.SendToUser(r.Context(), req.UserID, req.Payload); err != nil {
		log.Printf("Failed to dispatch notification to user %d: %v", req.UserID, err)
		http.Error(w, "Failed to dispatch notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// ServiceWorkerHandler serves the worker script from a fixed root path. The
// Service-Worker-Allowed header widens its scope to /, and no-cache keeps the
// single version constant inside the script as the only cache invalidator.
func (h *Handler) ServiceWorkerHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "application/javascript")
	http.ServeFile(w, r, "web/static/sw.js")
}
