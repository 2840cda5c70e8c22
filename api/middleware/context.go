package middleware

import (
	"context"

	"github.com/edostavka/backend/internal/auth"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	if ctx == nil {
		return auth.Session{}, false
	}
	session, ok := ctx.Value(ctxSession).(auth.Session)
	return session, ok
}

// WithSession injects the session into the context.
func WithSession(ctx context.Context, session auth.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, session)
}
