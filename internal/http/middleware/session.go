package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/palmerclinic/clinic-platform/internal/session"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

type contextKey string

const sessionContextKey contextKey = "clinic_session"

// LoadSession resolves the session cookie against the store and, when valid,
// attaches the session to the request context. Requests without a usable
// session pass through untouched; handlers that require one check for nil.
func LoadSession(store *session.Store, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := session.IDFromRequest(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := store.Get(r.Context(), id)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					logger.Warn("session lookup failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithSession attaches a session the way LoadSession does.
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SessionFromContext returns the session attached by LoadSession, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey).(*session.Session)
	return sess
}
