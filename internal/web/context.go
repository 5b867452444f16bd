package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/JonMunkholm/passgap/internal/web/middleware"
)

type ctxKey int

const ctxKeySession ctxKey = iota

// WithRequestMetadata adds the client IP and User-Agent to ctx for
// comparison history and logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySession, id)
}

// sessionID returns the id attached by sessionMiddleware.
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeySession).(string)
	return id
}
