// File: internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// errPollTimeout is the internal signal that a polling loop hit its own deadline.
var errPollTimeout = errors.New("poll timeout")

// Engine performs single logical UI actions against one element at a time,
// tolerating transient DOM instability. One Engine serves one scenario; it is
// not meant to be shared by concurrent flows.
type Engine struct {
	driver Driver
	logger *zap.Logger
	policy WaitPolicy

	mu      sync.Mutex
	primary string
}

// New creates an Engine over a borrowed driver. A zero policy means the defaults.
func New(driver Driver, logger *zap.Logger, policy WaitPolicy) (*Engine, error) {
	if driver == nil {
		return nil, errors.New("driver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		driver: driver,
		logger: logger.Named("engine"),
		policy: policy.normalized(),
	}, nil
}

// Policy returns the engine's default wait policy.
func (e *Engine) Policy() WaitPolicy {
	return e.policy
}

// Driver exposes the borrowed driver for flows that need a raw capability.
func (e *Engine) Driver() Driver {
	return e.driver
}

// Navigate loads url in the current window.
func (e *Engine) Navigate(ctx context.Context, url string) error {
	e.logger.Debug("Navigating", zap.String("url", url))
	if err := e.driver.Navigate(ctx, url); err != nil {
		return e.driverError("navigate", Locator{}, fmt.Errorf("%s: %w", url, err))
	}
	return nil
}

// Click waits until loc is present and interactable, then clicks it. A handle that
// goes stale before the click is re-located, up to the policy's attempt budget.
func (e *Engine) Click(ctx context.Context, loc Locator, opts ...WaitOption) error {
	p := e.policy.with(opts)
	return e.act(ctx, "click", loc, p, e.waitClickable, func(ctx context.Context, el Element) error {
		return el.Click(ctx)
	})
}

// Type waits for presence, clears the field and sends text.
func (e *Engine) Type(ctx context.Context, loc Locator, text string, opts ...WaitOption) error {
	p := e.policy.with(opts)
	return e.act(ctx, "type", loc, p, e.waitPresent, func(ctx context.Context, el Element) error {
		if err := el.Clear(ctx); err != nil {
			return err
		}
		return el.SendKeys(ctx, text)
	})
}

// SendKeys waits for presence and sends text without clearing first.
func (e *Engine) SendKeys(ctx context.Context, loc Locator, text string, opts ...WaitOption) error {
	p := e.policy.with(opts)
	return e.act(ctx, "send_keys", loc, p, e.waitPresent, func(ctx context.Context, el Element) error {
		return el.SendKeys(ctx, text)
	})
}

// ScrollIntoView aligns the element with the top of the viewport.
func (e *Engine) ScrollIntoView(ctx context.Context, loc Locator, opts ...WaitOption) error {
	p := e.policy.with(opts)
	return e.act(ctx, "scroll_into_view", loc, p, e.waitPresent, func(ctx context.Context, el Element) error {
		_, err := e.driver.ExecuteScript(ctx, "arguments[0].scrollIntoView(true);", el)
		return err
	})
}

// JSClick dispatches a click from script, bypassing overlays that occlude the element.
func (e *Engine) JSClick(ctx context.Context, loc Locator, opts ...WaitOption) error {
	p := e.policy.with(opts)
	return e.act(ctx, "js_click", loc, p, e.waitPresent, func(ctx context.Context, el Element) error {
		_, err := e.driver.ExecuteScript(ctx, "arguments[0].click();", el)
		return err
	})
}

// RunScript executes script in the current window. Failures are DriverErrors.
func (e *Engine) RunScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	res, err := e.driver.ExecuteScript(ctx, script, args...)
	if err != nil {
		return nil, e.driverError("run_script", Locator{}, err)
	}
	return res, nil
}

// ReadText waits for presence and returns the element's rendered text.
func (e *Engine) ReadText(ctx context.Context, loc Locator, opts ...WaitOption) (string, error) {
	p := e.policy.with(opts)
	var text string
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		el, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		t, err := el.Text(ctx)
		if err != nil {
			return false, absorb(err)
		}
		text = t
		return true, nil
	})
	if err != nil {
		return "", e.waitFailure("read_text", loc, err, false)
	}
	return text, nil
}

// Attribute waits for presence and returns the named attribute ("" when absent).
func (e *Engine) Attribute(ctx context.Context, loc Locator, name string, opts ...WaitOption) (string, error) {
	p := e.policy.with(opts)
	var value string
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		el, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		v, err := el.Attribute(ctx, name)
		if err != nil {
			return false, absorb(err)
		}
		value = v
		return true, nil
	})
	if err != nil {
		return "", e.waitFailure("attribute", loc, err, false)
	}
	return value, nil
}

// IsVisible reports whether loc resolves to a displayed element within timeout.
// A timeout of zero or less checks once without waiting. It never fails: every
// error, including a panic in the driver, reads as false.
func (e *Engine) IsVisible(ctx context.Context, loc Locator, timeout time.Duration) (visible bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Visibility probe panicked", zap.Stringer("locator", loc), zap.Any("panic", r))
			visible = false
		}
	}()
	return e.probe(ctx, timeout, func(ctx context.Context) (bool, error) {
		el, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		shown, err := el.IsDisplayed(ctx)
		if err != nil {
			return false, absorb(err)
		}
		return shown, nil
	})
}

// IsPresent reports whether loc resolves within timeout, displayed or not.
// Like IsVisible it never fails, and a non-positive timeout checks once.
func (e *Engine) IsPresent(ctx context.Context, loc Locator, timeout time.Duration) (present bool) {
	defer func() {
		if r := recover(); r != nil {
			present = false
		}
	}()
	return e.probe(ctx, timeout, func(ctx context.Context) (bool, error) {
		_, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		return true, nil
	})
}

// probe evaluates cond until it holds or timeout elapses. With no timeout it
// evaluates cond exactly once.
func (e *Engine) probe(ctx context.Context, timeout time.Duration, cond func(context.Context) (bool, error)) bool {
	if timeout <= 0 {
		ok, err := cond(ctx)
		return err == nil && ok
	}
	p := e.policy.with([]WaitOption{WithTimeout(timeout)})
	return e.poll(ctx, p, cond) == nil
}

// FindAll returns every current match without waiting.
func (e *Engine) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	els, err := e.driver.FindElements(ctx, loc)
	if err != nil {
		return nil, e.driverError("find_all", loc, err)
	}
	return els, nil
}

// Count returns the number of current matches without waiting.
func (e *Engine) Count(ctx context.Context, loc Locator) (int, error) {
	els, err := e.FindAll(ctx, loc)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// WaitAll waits until loc matches at least one element and returns all matches.
func (e *Engine) WaitAll(ctx context.Context, loc Locator, opts ...WaitOption) ([]Element, error) {
	p := e.policy.with(opts)
	var found []Element
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		els, err := e.driver.FindElements(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		found = els
		return len(els) > 0, nil
	})
	if err != nil {
		return nil, e.waitFailure("wait_all", loc, err, false)
	}
	return found, nil
}

// Texts waits for at least one match and returns the trimmed, non-empty texts of
// all matches read in a single pass. A pass that hits a detached node is re-read.
func (e *Engine) Texts(ctx context.Context, loc Locator, opts ...WaitOption) ([]string, error) {
	p := e.policy.with(opts)
	var texts []string
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		_, t, err := e.readSequence(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		texts = t
		return len(t) > 0, nil
	})
	if err != nil {
		return nil, e.waitFailure("texts", loc, err, false)
	}
	return texts, nil
}

// Wait polls cond until it holds. desc names the condition in the returned error.
func (e *Engine) Wait(ctx context.Context, desc string, cond func(ctx context.Context) (bool, error), opts ...WaitOption) error {
	p := e.policy.with(opts)
	err := e.poll(ctx, p, cond)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPollTimeout):
		return fmt.Errorf("%s: %w", desc, ErrWaitTimeout)
	default:
		return fmt.Errorf("%s: %w", desc, err)
	}
}

// DragAndDrop drags src onto dst.
func (e *Engine) DragAndDrop(ctx context.Context, src, dst Element) error {
	if err := e.driver.DragAndDrop(ctx, src, dst); err != nil {
		if errors.Is(err, ErrStaleElement) {
			return &ActionError{Op: "drag_and_drop", Kind: ErrStaleElementExhausted, Cause: err}
		}
		return e.driverError("drag_and_drop", Locator{}, err)
	}
	return nil
}

// -- internals --

type waitFunc func(ctx context.Context, op string, loc Locator, p WaitPolicy) (Element, error)

// act locates loc with wait and applies do, re-locating when the handle goes stale.
func (e *Engine) act(ctx context.Context, op string, loc Locator, p WaitPolicy, wait waitFunc, do func(context.Context, Element) error) error {
	if err := loc.Validate(); err != nil {
		return &ActionError{Op: op, Locator: loc, Kind: ErrDriver, Cause: err}
	}
	var lastStale error
	for attempt := 1; attempt <= p.Retries; attempt++ {
		el, err := wait(ctx, op, loc, p)
		if err != nil {
			return err
		}
		err = do(ctx, el)
		if err == nil {
			e.logger.Debug("Action succeeded", zap.String("op", op), zap.Stringer("locator", loc), zap.Int("attempt", attempt))
			return nil
		}
		if !errors.Is(err, ErrStaleElement) {
			return e.driverError(op, loc, err)
		}
		lastStale = err
		e.logger.Warn("Element went stale, re-locating",
			zap.String("op", op),
			zap.Stringer("locator", loc),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.Retries),
		)
	}
	return &ActionError{Op: op, Locator: loc, Kind: ErrStaleElementExhausted, Cause: lastStale}
}

// waitPresent waits until loc resolves.
func (e *Engine) waitPresent(ctx context.Context, op string, loc Locator, p WaitPolicy) (Element, error) {
	var found Element
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		el, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, e.waitFailure(op, loc, err, false)
	}
	return found, nil
}

// waitClickable waits until loc resolves to an element that is displayed, enabled
// and not occluded at its centre.
func (e *Engine) waitClickable(ctx context.Context, op string, loc Locator, p WaitPolicy) (Element, error) {
	var found Element
	seen := false
	err := e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		el, err := e.driver.FindElement(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		seen = true
		ok, err := clickable(ctx, el)
		if err != nil {
			return false, absorb(err)
		}
		if ok {
			found = el
		}
		return ok, nil
	})
	if err != nil {
		return nil, e.waitFailure(op, loc, err, seen)
	}
	return found, nil
}

func clickable(ctx context.Context, el Element) (bool, error) {
	if ok, err := el.IsDisplayed(ctx); err != nil || !ok {
		return false, err
	}
	if ok, err := el.IsEnabled(ctx); err != nil || !ok {
		return false, err
	}
	return el.ReceivesPointer(ctx)
}

// poll evaluates cond on every limiter tick until it holds, returns a hard error,
// or the policy timeout elapses. Transient driver errors must be absorbed by cond.
func (e *Engine) poll(ctx context.Context, p WaitPolicy, cond func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(p.PollInterval), 1)
	for {
		if err := limiter.Wait(waitCtx); err != nil {
			// Wait also fails early when the next tick would land past the deadline.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errPollTimeout
		}
		done, err := cond(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if waitCtx.Err() != nil {
				return errPollTimeout
			}
			return err
		}
		if done {
			return nil
		}
	}
}

// waitFailure maps a polling error onto the taxonomy. seen reports whether the
// locator ever resolved during the wait.
func (e *Engine) waitFailure(op string, loc Locator, err error, seen bool) error {
	if !errors.Is(err, errPollTimeout) {
		return e.driverError(op, loc, err)
	}
	kind := ErrElementNotFound
	if seen {
		kind = ErrElementNotInteractable
	}
	e.logger.Debug("Wait timed out", zap.String("op", op), zap.Stringer("locator", loc), zap.Error(kind))
	return &ActionError{Op: op, Locator: loc, Kind: kind, Cause: context.DeadlineExceeded}
}

func (e *Engine) driverError(op string, loc Locator, err error) error {
	var ae *ActionError
	if errors.As(err, &ae) {
		return err
	}
	e.logger.Error("Driver operation failed", zap.String("op", op), zap.Stringer("locator", loc), zap.Error(err))
	return &ActionError{Op: op, Locator: loc, Kind: ErrDriver, Cause: err}
}

// absorb turns transient driver errors into "not yet" for polling loops.
func absorb(err error) error {
	if transient(err) {
		return nil
	}
	return err
}
