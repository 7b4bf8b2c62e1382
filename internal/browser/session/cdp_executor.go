// internal/browser/session/cdp_executor.go
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// objectGroup holds every remote object the session creates so a navigation can
// release them in one call.
const objectGroup = "e2e"

const (
	// dragSteps is the number of intermediate moves between press and release.
	// Sortable libraries ignore a drag that jumps straight to the target.
	dragSteps     = 10
	dragStepDelay = 15 * time.Millisecond
	// defaultOpTimeout bounds a single CDP round trip when the caller set no deadline.
	defaultOpTimeout = 20 * time.Second
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// staleResult is what guarded functions return when the receiver was detached.
var staleResult = []byte(`{"__e2eStale":true}`)

// staleMarkers are CDP error messages meaning the handle outlived its node or document.
var staleMarkers = []string{
	"Could not find object with given id",
	"Cannot find context with specified id",
	"Execution context was destroyed",
	"No node with given id",
	"Node is detached from document",
}

// cdpExecutor implements remote with chromedp actions run through the session.
type cdpExecutor struct {
	logger         *zap.Logger
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error // Points to Session.RunActions
}

var _ remote = (*cdpExecutor)(nil)

func (e *cdpExecutor) run(ctx context.Context, actions ...chromedp.Action) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultOpTimeout)
		defer cancel()
	}
	return classify(e.runActionsFunc(ctx, actions...))
}

func (e *cdpExecutor) queryAll(ctx context.Context, expression string) ([]runtime.RemoteObjectID, error) {
	var ids []runtime.RemoteObjectID
	err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		arr, exc, err := runtime.Evaluate(expression).WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("query failed: %w", exc)
		}
		if arr == nil || arr.ObjectID == "" {
			return nil
		}
		// Only the array wrapper is released; the element handles stay in the group.
		defer func() { _ = runtime.ReleaseObject(arr.ObjectID).Do(ctx) }()

		props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("reading query result: %w", exc)
		}
		ids = indexedObjects(props)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// indexedObjects returns the object ids of an array's index properties in order.
func indexedObjects(props []*runtime.PropertyDescriptor) []runtime.RemoteObjectID {
	type entry struct {
		idx int
		id  runtime.RemoteObjectID
	}
	var entries []entry
	for _, p := range props {
		idx, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		entries = append(entries, entry{idx, p.Value.ObjectID})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	ids := make([]runtime.RemoteObjectID, len(entries))
	for i, en := range entries {
		ids[i] = en.id
	}
	return ids
}

func (e *cdpExecutor) globalObject(ctx context.Context) (runtime.RemoteObjectID, error) {
	var id runtime.RemoteObjectID
	err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.Evaluate("window").WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		id = obj.ObjectID
		return nil
	}))
	return id, err
}

func (e *cdpExecutor) callOn(ctx context.Context, id runtime.RemoteObjectID, fn string, args []*runtime.CallArgument) (json.RawMessage, error) {
	var out json.RawMessage
	err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(guard(fn)).
			WithObjectID(id).
			WithArguments(args).
			WithObjectGroup(objectGroup).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %w", exc)
		}
		out = resultValue(res)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	if bytes.Equal(out, staleResult) {
		return nil, fmt.Errorf("%w: node is no longer attached to the document", engine.ErrStaleElement)
	}
	return out, nil
}

// guard wraps fn so that calling it on a detached node, or passing one as an
// argument, returns staleResult instead of acting on a node the user can no
// longer see.
func guard(fn string) string {
	return "function(...args) {\n" +
		"  const detached = v => v instanceof Node && !v.isConnected;\n" +
		"  if (detached(this) || args.some(detached)) { return " + string(staleResult) + "; }\n" +
		"  return (" + fn + ").apply(this, args);\n" +
		"}"
}

func resultValue(res *runtime.RemoteObject) json.RawMessage {
	if res == nil || res.Type == runtime.TypeUndefined || len(res.Value) == 0 {
		return json.RawMessage("null")
	}
	return append(json.RawMessage(nil), res.Value...)
}

func mouseEvent(typ input.MouseType, at point, buttons int64) *input.DispatchMouseEventParams {
	p := input.DispatchMouseEvent(typ, at.X, at.Y).WithButtons(buttons)
	if typ != input.MouseMoved {
		p = p.WithButton(input.Left).WithClickCount(1)
	}
	return p
}

func (e *cdpExecutor) click(ctx context.Context, at point) error {
	return e.run(ctx,
		mouseEvent(input.MouseMoved, at, 0),
		mouseEvent(input.MousePressed, at, 1),
		mouseEvent(input.MouseReleased, at, 0),
	)
}

func (e *cdpExecutor) drag(ctx context.Context, from, to point) error {
	actions := []chromedp.Action{
		mouseEvent(input.MouseMoved, from, 0),
		mouseEvent(input.MousePressed, from, 1),
	}
	for i := 1; i <= dragSteps; i++ {
		f := float64(i) / dragSteps
		step := point{X: from.X + (to.X-from.X)*f, Y: from.Y + (to.Y-from.Y)*f}
		actions = append(actions, chromedp.Sleep(dragStepDelay), mouseEvent(input.MouseMoved, step, 1))
	}
	actions = append(actions, mouseEvent(input.MouseReleased, to, 0))

	e.logger.Debug("Dispatching drag.",
		zap.Float64("from_x", from.X), zap.Float64("from_y", from.Y),
		zap.Float64("to_x", to.X), zap.Float64("to_y", to.Y))
	return e.run(ctx, actions...)
}

func (e *cdpExecutor) typeKeys(ctx context.Context, keys string) error {
	return e.run(ctx, chromedp.KeyEvent(keys))
}

func (e *cdpExecutor) setFiles(ctx context.Context, id runtime.RemoteObjectID, paths []string) error {
	return e.run(ctx, dom.SetFileInputFiles(paths).WithObjectID(id))
}

// classify maps CDP errors about vanished objects to engine.ErrStaleElement.
func classify(err error) error {
	if err == nil || errors.Is(err, engine.ErrStaleElement) {
		return err
	}
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", engine.ErrStaleElement, err)
		}
	}
	return err
}

// jsonEncode encodes v for embedding in a script.
func jsonEncode(v interface{}) string {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
