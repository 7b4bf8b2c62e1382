// internal/browser/session/element.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

const (
	jsCenter = `function() {
  this.scrollIntoView({block: 'center', inline: 'center'});
  const r = this.getBoundingClientRect();
  return {x: r.left + r.width / 2, y: r.top + r.height / 2};
}`

	jsClear = `function() {
  if (this instanceof HTMLInputElement || this instanceof HTMLTextAreaElement) {
    if (this.type === 'file') { this.value = ''; return; }
    const proto = Object.getPrototypeOf(this);
    const desc = Object.getOwnPropertyDescriptor(proto, 'value');
    if (desc && desc.set) { desc.set.call(this, ''); } else { this.value = ''; }
  } else if (this.isContentEditable) {
    this.textContent = '';
  } else {
    return;
  }
  this.dispatchEvent(new Event('input', {bubbles: true}));
  this.dispatchEvent(new Event('change', {bubbles: true}));
}`

	// jsFocus focuses the node and reports whether it is a file input.
	jsFocus = `function() {
  this.focus();
  return this instanceof HTMLInputElement && this.type === 'file';
}`

	jsText = `function() {
  const t = this.innerText;
  return (t === undefined || t === null) ? (this.textContent || '') : t;
}`

	// jsAttribute prefers the live property, so "value" reflects what was typed.
	jsAttribute = `function(name) {
  if (name in this) {
    const v = this[name];
    if (typeof v === 'boolean') { return v ? 'true' : ''; }
    if (typeof v === 'string' || typeof v === 'number') { return String(v); }
  }
  const a = this.getAttribute(name);
  return a === null ? '' : a;
}`

	jsDisplayed = `function() {
  const s = window.getComputedStyle(this);
  if (s.display === 'none' || s.visibility === 'hidden' || parseFloat(s.opacity) === 0) { return false; }
  const r = this.getBoundingClientRect();
  return r.width > 0 && r.height > 0;
}`

	jsEnabled = `function() {
  return !this.disabled;
}`

	jsReceivesPointer = `function() {
  this.scrollIntoView({block: 'center', inline: 'center'});
  const r = this.getBoundingClientRect();
  if (r.width === 0 || r.height === 0) { return false; }
  const hit = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
  return hit !== null && (hit === this || this.contains(hit));
}`

	// jsDragPoints returns the centres of this and dst after bringing this into
	// view, or null when dst has left the document.
	jsDragPoints = `function(dst) {
  if (!dst || !dst.isConnected) { return null; }
  this.scrollIntoView({block: 'center', inline: 'center'});
  const a = this.getBoundingClientRect();
  const b = dst.getBoundingClientRect();
  return {
    from: {x: a.left + a.width / 2, y: a.top + a.height / 2},
    to: {x: b.left + b.width / 2, y: b.top + b.height / 2}
  };
}`
)

// element is a handle to a node of the current document.
type element struct {
	id     runtime.RemoteObjectID
	remote remote
}

var _ engine.Element = (*element)(nil)

func (e *element) call(ctx context.Context, fn string, args ...interface{}) (json.RawMessage, error) {
	cargs, err := callArguments(args)
	if err != nil {
		return nil, err
	}
	return e.remote.callOn(ctx, e.id, fn, cargs)
}

func (e *element) Click(ctx context.Context) error {
	raw, err := e.call(ctx, jsCenter)
	if err != nil {
		return err
	}
	at, err := decode[point](raw)
	if err != nil {
		return err
	}
	return e.remote.click(ctx, at)
}

func (e *element) Clear(ctx context.Context) error {
	_, err := e.call(ctx, jsClear)
	return err
}

// SendKeys types text into the focused node. For a file input, text is a
// newline separated list of paths to attach instead.
func (e *element) SendKeys(ctx context.Context, text string) error {
	raw, err := e.call(ctx, jsFocus)
	if err != nil {
		return err
	}
	isFile, err := decode[bool](raw)
	if err != nil {
		return err
	}
	if isFile {
		return e.remote.setFiles(ctx, e.id, strings.Split(text, "\n"))
	}
	return e.remote.typeKeys(ctx, text)
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.string(ctx, jsText)
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	return e.string(ctx, jsAttribute, name)
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	return e.bool(ctx, jsDisplayed)
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	return e.bool(ctx, jsEnabled)
}

func (e *element) ReceivesPointer(ctx context.Context) (bool, error) {
	return e.bool(ctx, jsReceivesPointer)
}

func (e *element) string(ctx context.Context, fn string, args ...interface{}) (string, error) {
	raw, err := e.call(ctx, fn, args...)
	if err != nil {
		return "", err
	}
	return decode[string](raw)
}

func (e *element) bool(ctx context.Context, fn string) (bool, error) {
	raw, err := e.call(ctx, fn)
	if err != nil {
		return false, err
	}
	return decode[bool](raw)
}

// dragPoints resolves the press and release coordinates for dragging e onto dst.
func (e *element) dragPoints(ctx context.Context, dst *element) (from, to point, err error) {
	raw, err := e.call(ctx, jsDragPoints, dst)
	if err != nil {
		return point{}, point{}, err
	}
	if string(raw) == "null" {
		return point{}, point{}, fmt.Errorf("%w: drop target is no longer attached to the document", engine.ErrStaleElement)
	}
	pts, err := decode[struct {
		From point `json:"from"`
		To   point `json:"to"`
	}](raw)
	if err != nil {
		return point{}, point{}, err
	}
	return pts.From, pts.To, nil
}

// callArguments converts Go values to CDP call arguments. Elements travel by
// object id; everything else by JSON value.
func callArguments(args []interface{}) ([]*runtime.CallArgument, error) {
	out := make([]*runtime.CallArgument, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case *element:
			out = append(out, &runtime.CallArgument{ObjectID: v.id})
		case engine.Element:
			return nil, fmt.Errorf("argument %d: element %T does not belong to this session", i, arg)
		default:
			b, err := jsonAPI.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out = append(out, &runtime.CallArgument{Value: b})
		}
	}
	return out, nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding script result %s: %w", truncate(string(raw), 120), err)
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
