package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/web/middleware"
)

// JournalSource marks journal entries made through the web server.
const JournalSource = "web"

// WithRequestMetadata adds the client address, user agent and source to
// ctx for the edit journal.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithSource(ctx, JournalSource)
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
