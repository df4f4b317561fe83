package handlers

import (
	"net/http"

	"dealer-desk-go/internal/push"
	"dealer-desk-go/internal/store"

	"github.com/gorilla/sessions"
)

var (
	sessionStore = sessions.NewCookieStore([]byte("secret-key-change-in-production"))
	sessionName  = "dealerdesk-session"
)

type Handler struct {
	Subs       store.SubscriptionStore
	Pending    store.PendingStore
	Dispatcher *push.Dispatcher
}

func NewHandler(subs store.SubscriptionStore, pending store.PendingStore, dispatcher *push.Dispatcher) *Handler {
	return &Handler{
		Subs:       subs,
		Pending:    pending,
		Dispatcher: dispatcher,
	}
}

// currentUserID returns the user id set on the session by the application's
// auth layer, or 0 when there is none.
func currentUserID(r *http.Request) int {
	session, _ := sessionStore.Get(r, sessionName)
	userID, _ := session.Values["user_id"].(int)
	return userID
}

// AuthMiddleware checks if user is authenticated
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if currentUserID(r) == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
