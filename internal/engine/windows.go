package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// TrackPrimaryWindow records the currently active window as the primary one.
// Call it once at session start, before any flow can open a new window.
func (e *Engine) TrackPrimaryWindow(ctx context.Context) error {
	handle, err := e.driver.CurrentWindowHandle(ctx)
	if err != nil {
		return e.driverError("current_window", Locator{}, err)
	}
	e.mu.Lock()
	e.primary = handle
	e.mu.Unlock()
	e.logger.Debug("Tracking primary window", zap.String("handle", handle))
	return nil
}

// PrimaryWindow returns the tracked primary handle, or "" before tracking.
func (e *Engine) PrimaryWindow() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.primary
}

func (e *Engine) ensurePrimary(ctx context.Context) (string, error) {
	if h := e.PrimaryWindow(); h != "" {
		return h, nil
	}
	if err := e.TrackPrimaryWindow(ctx); err != nil {
		return "", err
	}
	return e.PrimaryWindow(), nil
}

// WindowHandles enumerates the open windows and tabs.
func (e *Engine) WindowHandles(ctx context.Context) ([]string, error) {
	handles, err := e.driver.WindowHandles(ctx)
	if err != nil {
		return nil, e.driverError("window_handles", Locator{}, err)
	}
	return handles, nil
}

// WaitForNewWindow waits until a handle other than the primary one exists and
// returns it. No other stable identifier exists for a freshly spawned window.
func (e *Engine) WaitForNewWindow(ctx context.Context, opts ...WaitOption) (string, error) {
	primary, err := e.ensurePrimary(ctx)
	if err != nil {
		return "", err
	}
	p := e.policy.with(opts)
	var handle string
	err = e.poll(ctx, p, func(ctx context.Context) (bool, error) {
		handles, err := e.driver.WindowHandles(ctx)
		if err != nil {
			return false, err
		}
		for _, h := range handles {
			if h != primary {
				handle = h
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, errPollTimeout) {
			return "", &ActionError{Op: "wait_new_window", Kind: ErrElementNotFound, Cause: ErrNoSuchWindow}
		}
		return "", e.driverError("wait_new_window", Locator{}, err)
	}
	return handle, nil
}

// SwitchToNewWindow waits for a non-primary window and makes it current.
func (e *Engine) SwitchToNewWindow(ctx context.Context, opts ...WaitOption) (string, error) {
	handle, err := e.WaitForNewWindow(ctx, opts...)
	if err != nil {
		return "", err
	}
	if err := e.driver.SwitchToWindow(ctx, handle); err != nil {
		return "", e.driverError("switch_window", Locator{}, fmt.Errorf("%s: %w", handle, err))
	}
	e.logger.Debug("Switched to new window", zap.String("handle", handle))
	return handle, nil
}

// SwitchToPrimaryWindow makes the primary window current again.
func (e *Engine) SwitchToPrimaryWindow(ctx context.Context) error {
	primary, err := e.ensurePrimary(ctx)
	if err != nil {
		return err
	}
	if err := e.driver.SwitchToWindow(ctx, primary); err != nil {
		return e.driverError("switch_window", Locator{}, fmt.Errorf("%s: %w", primary, err))
	}
	return nil
}

// CloseWindowAndReturn closes the current window and switches back to the
// primary one. Closing the primary window itself is refused.
func (e *Engine) CloseWindowAndReturn(ctx context.Context) error {
	primary, err := e.ensurePrimary(ctx)
	if err != nil {
		return err
	}
	current, err := e.driver.CurrentWindowHandle(ctx)
	if err != nil {
		return e.driverError("current_window", Locator{}, err)
	}
	if current == primary {
		return &ActionError{Op: "close_window", Kind: ErrDriver, Cause: errors.New("refusing to close the primary window")}
	}
	if err := e.driver.CloseCurrentWindow(ctx); err != nil {
		return e.driverError("close_window", Locator{}, err)
	}
	return e.SwitchToPrimaryWindow(ctx)
}
