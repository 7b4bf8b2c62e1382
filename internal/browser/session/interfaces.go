// internal/browser/session/interfaces.go
package session

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ActionExecutor runs chromedp actions against the session's current tab.
type ActionExecutor interface {
	// RunActions executes actions within the operational context ctx. The
	// implementation combines ctx with the long-lived tab context so the actions
	// carry the CDP connection.
	RunActions(ctx context.Context, actions ...chromedp.Action) error

	// RunBackgroundActions executes actions in a context detached from ctx's
	// cancellation, for cleanup that must finish after the caller gave up.
	RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error
}

// point is a viewport coordinate in CSS pixels.
type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// remote is the slice of the DevTools protocol elements are built on. Object
// ids handed out by queryAll stay valid until the next navigation.
type remote interface {
	// queryAll evaluates an expression yielding an array of nodes and returns
	// a remote handle per node, in document order.
	queryAll(ctx context.Context, expression string) ([]runtime.RemoteObjectID, error)
	globalObject(ctx context.Context) (runtime.RemoteObjectID, error)
	// callOn invokes fn with this bound to the object. The result is returned by
	// value as JSON. Calls on a node that left the document fail with
	// engine.ErrStaleElement.
	callOn(ctx context.Context, id runtime.RemoteObjectID, fn string, args []*runtime.CallArgument) (json.RawMessage, error)
	click(ctx context.Context, at point) error
	drag(ctx context.Context, from, to point) error
	typeKeys(ctx context.Context, keys string) error
	setFiles(ctx context.Context, id runtime.RemoteObjectID, paths []string) error
}
