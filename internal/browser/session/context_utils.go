// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext returns a context derived from ctx1 that is also canceled when
// ctx2 is done. Values come from ctx1 only: it carries the chromedp target, while
// ctx2 carries the caller's deadline. The earlier of the two deadlines applies.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancelCause := context.WithCancelCause(ctx1)
	cancelDeadline := context.CancelFunc(func() {})
	if d, ok := ctx2.Deadline(); ok {
		combined, cancelDeadline = context.WithDeadline(combined, d)
	}

	// The cause is preserved so context.Cause reports why ctx2 ended.
	stop := context.AfterFunc(ctx2, func() {
		cancelCause(context.Cause(ctx2))
	})

	return combined, func() {
		stop()
		cancelDeadline()
		cancelCause(context.Canceled)
	}
}

// Detach returns a context that keeps ctx's values but not its cancellation or
// deadline. Cleanup that must outlive an operation's context uses it.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
