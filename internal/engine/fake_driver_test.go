package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// fakeElement is an in-memory DOM node. staleFor makes the next N operations
// report ErrStaleElement, as a node replaced by a re-render would.
type fakeElement struct {
	mu        sync.Mutex
	text      string
	value     string
	attrs     map[string]string
	displayed bool
	enabled   bool
	pointer   bool
	staleFor  int
	clicks    int
	panicOn   bool
}

func newFakeElement(text string) *fakeElement {
	return &fakeElement{text: text, displayed: true, enabled: true, pointer: true, attrs: map[string]string{}}
}

func (f *fakeElement) stale() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn {
		panic("driver exploded")
	}
	if f.staleFor > 0 {
		f.staleFor--
		return fmt.Errorf("node detached: %w", ErrStaleElement)
	}
	return nil
}

func (f *fakeElement) Click(ctx context.Context) error {
	if err := f.stale(); err != nil {
		return err
	}
	f.mu.Lock()
	f.clicks++
	f.mu.Unlock()
	return nil
}

func (f *fakeElement) Clear(ctx context.Context) error {
	if err := f.stale(); err != nil {
		return err
	}
	f.mu.Lock()
	f.value = ""
	f.mu.Unlock()
	return nil
}

func (f *fakeElement) SendKeys(ctx context.Context, text string) error {
	if err := f.stale(); err != nil {
		return err
	}
	f.mu.Lock()
	f.value += text
	f.mu.Unlock()
	return nil
}

func (f *fakeElement) Text(ctx context.Context) (string, error) {
	if err := f.stale(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	if err := f.stale(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrs[name], nil
}

func (f *fakeElement) IsDisplayed(ctx context.Context) (bool, error) {
	if err := f.stale(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayed, nil
}

func (f *fakeElement) IsEnabled(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, nil
}

func (f *fakeElement) ReceivesPointer(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointer, nil
}

type scriptCall struct {
	script string
	args   []any
}

// fakeDriver resolves locators from a static table plus one mutable list.
type fakeDriver struct {
	mu       sync.Mutex
	static   map[Locator]*fakeElement
	findErr  error
	list     []*fakeElement
	listLoc  Locator
	dragFn   func(d *fakeDriver, src, dst *fakeElement) error
	drags    int
	scripts  []scriptCall
	scriptFn func(script string, args []any) (json.RawMessage, error)

	windows []string
	current string
	closed  []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		static:  map[Locator]*fakeElement{},
		windows: []string{"main"},
		current: "main",
		dragFn:  moveBefore,
	}
}

// moveBefore removes src and re-inserts it at dst's index, the way a sortable
// list settles after a drop.
func moveBefore(d *fakeDriver, src, dst *fakeElement) error {
	from := slices.Index(d.list, src)
	to := slices.Index(d.list, dst)
	if from < 0 || to < 0 {
		return fmt.Errorf("drag endpoints: %w", ErrStaleElement)
	}
	d.list = slices.Delete(d.list, from, from+1)
	d.list = slices.Insert(d.list, to, src)
	return nil
}

func (d *fakeDriver) setList(texts ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listLoc = ByCSS(".item")
	d.list = d.list[:0]
	for _, t := range texts {
		d.list = append(d.list, newFakeElement(t))
	}
}

func (d *fakeDriver) listTexts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.list))
	for i, el := range d.list {
		out[i] = el.text
	}
	return out
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }

func (d *fakeDriver) FindElement(ctx context.Context, loc Locator) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	if el, ok := d.static[loc]; ok {
		return el, nil
	}
	if loc.Strategy == StrategyText {
		for _, el := range d.list {
			if el.text == loc.Value {
				return el, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", loc, ErrNoSuchElement)
}

func (d *fakeDriver) FindElements(ctx context.Context, loc Locator) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	if loc == d.listLoc {
		out := make([]Element, len(d.list))
		for i, el := range d.list {
			out[i] = el
		}
		return out, nil
	}
	if el, ok := d.static[loc]; ok {
		return []Element{el}, nil
	}
	return nil, nil
}

func (d *fakeDriver) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	d.mu.Lock()
	d.scripts = append(d.scripts, scriptCall{script: script, args: args})
	fn := d.scriptFn
	d.mu.Unlock()
	if fn != nil {
		return fn(script, args)
	}
	return json.RawMessage("null"), nil
}

func (d *fakeDriver) CurrentWindowHandle(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *fakeDriver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.windows), nil
}

func (d *fakeDriver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !slices.Contains(d.windows, handle) {
		return fmt.Errorf("%s: %w", handle, ErrNoSuchWindow)
	}
	d.current = handle
	return nil
}

func (d *fakeDriver) CloseCurrentWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = slices.DeleteFunc(d.windows, func(h string) bool { return h == d.current })
	d.closed = append(d.closed, d.current)
	d.current = ""
	return nil
}

func (d *fakeDriver) DragAndDrop(ctx context.Context, src, dst Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drags++
	return d.dragFn(d, src.(*fakeElement), dst.(*fakeElement))
}
