package engine

import (
	"context"
	"encoding/json"
	"errors"
)

// Errors a Driver reports to the engine. Implementations wrap these so the
// engine can tell transient DOM conditions from real failures.
var (
	ErrNoSuchElement = errors.New("no such element")
	ErrStaleElement  = errors.New("stale element reference")
	ErrNoSuchWindow  = errors.New("no such window")
)

// Key sequences understood by Element.SendKeys.
const (
	KeyEnter  = "\r"
	KeyEscape = "\u001b"
	KeyTab    = "\t"
)

// Driver is the browser capability the engine is built on. The engine borrows a
// Driver for the lifetime of one scenario and never closes it.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// FindElement returns the first match or an error wrapping ErrNoSuchElement.
	FindElement(ctx context.Context, loc Locator) (Element, error)
	// FindElements returns all matches, possibly none.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// ExecuteScript runs script as a function body. Positional args are exposed
	// through `arguments`; Element args are passed as live DOM nodes. The
	// returned value is the JSON encoding of the script's return value.
	ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	CurrentWindowHandle(ctx context.Context) (string, error)
	WindowHandles(ctx context.Context) ([]string, error)
	SwitchToWindow(ctx context.Context, handle string) error
	CloseCurrentWindow(ctx context.Context) error
	// DragAndDrop presses on src, moves onto dst and releases.
	DragAndDrop(ctx context.Context, src, dst Element) error
}

// Element is a handle to a DOM node. Every method returns an error wrapping
// ErrStaleElement once the node is detached from the document.
type Element interface {
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	// ReceivesPointer reports whether a click at the element's centre would land
	// on the element itself rather than an occluding overlay.
	ReceivesPointer(ctx context.Context) (bool, error)
}
