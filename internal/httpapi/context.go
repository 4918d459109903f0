package httpapi

import (
	"context"
	"net/http"
)

// baseCtx ends every open event stream when canceled. Defaults to Background.
var baseCtx = context.Background()

// SetBaseContext ties long-lived responses to ctx, typically the command's
// signal context, so shutdown is not held up by /events subscribers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	baseCtx = ctx
}

// streamContext returns a context canceled when either the request or the
// base context ends. The cancel func must be called when the handler returns.
func streamContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
