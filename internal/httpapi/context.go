package httpapi

import (
	"context"
	"net/http"
)

// shutdownCtx parents every generation request so process shutdown can cut
// off work a client is still streaming. Until main wires one in it is
// Background and never fires.
var shutdownCtx = context.Background()

// SetBaseContext installs the process lifetime context. Call once at
// startup, before the server accepts traffic.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx = ctx
}

// requestContext derives the context handlers hand to the manager: it ends
// when the client disconnects or the process shuts down, whichever comes
// first. The returned cancel must run when the handler returns.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(shutdownCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
