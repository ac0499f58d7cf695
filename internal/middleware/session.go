package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

const (
	// SessionName is the cookie holding the buyer session
	SessionName    = "ticket_session"
	sessionIDValue = "sid"
)

// SessionMiddleware binds every request to a buyer session id kept in a cookie session.
// The cart, checkout and "my tickets" views are keyed by that id.
type SessionMiddleware struct {
	store  sessions.Store
	logger *logrus.Entry
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, logger *logrus.Entry) *SessionMiddleware {
	return &SessionMiddleware{
		store:  store,
		logger: logger,
	}
}

// Handler loads or creates the session and stores its id in the request context
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An undecodable cookie still yields a fresh session
		session, err := m.store.Get(r, SessionName)
		if err != nil {
			m.logger.WithError(err).Debug("Discarding invalid session cookie")
		}

		sessionID, ok := session.Values[sessionIDValue].(string)
		if !ok || sessionID == "" {
			sessionID = uuid.New().String()
			session.Values[sessionIDValue] = sessionID
			if err := session.Save(r, w); err != nil {
				m.logger.WithError(err).Error("Failed to save session")
				WriteError(w, http.StatusInternalServerError, "session_error", "Could not start a session.")
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID returns the buyer session id from context
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// WithSessionID returns a context carrying sessionID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SecureHeaders adds security headers to responses
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only set HSTS for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
