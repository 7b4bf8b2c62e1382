package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

const browserWindowsPath = "/browser-windows"

// SampleHeading is the text the page opened by every window button shows.
const SampleHeading = "This is a sample page"

// ErrUnsupportedInteraction is returned for interaction kinds the page cannot drive.
var ErrUnsupportedInteraction = errors.New("unsupported window interaction")

// Interaction names one of the page's window-opening buttons.
type Interaction string

const (
	InteractionWindow Interaction = "window"
	InteractionTab    Interaction = "tab"
	// InteractionMessage opens a message window that has no heading to verify.
	InteractionMessage Interaction = "message"
)

var (
	windowsNewWindow = engine.ByID("windowButton")
	windowsNewTab    = engine.ByID("tabButton")
	windowsHeading   = engine.ByID("sampleHeading")
)

// BrowserWindowsPage opens and verifies child windows.
type BrowserWindowsPage struct {
	base
}

// Open loads the page and records its window as the primary one.
func (p *BrowserWindowsPage) Open(ctx context.Context) error {
	if err := p.open(ctx, browserWindowsPath); err != nil {
		return err
	}
	if err := p.eng.TrackPrimaryWindow(ctx); err != nil {
		return fmt.Errorf("recording main window: %w", err)
	}
	p.logger.Info("Opened Browser Windows page.", zap.String("main_window", p.eng.PrimaryWindow()))
	return nil
}

func (p *BrowserWindowsPage) OpenNewWindow(ctx context.Context) error {
	return p.clickOpener(ctx, windowsNewWindow)
}

func (p *BrowserWindowsPage) OpenNewTab(ctx context.Context) error {
	return p.clickOpener(ctx, windowsNewTab)
}

func (p *BrowserWindowsPage) clickOpener(ctx context.Context, loc engine.Locator) error {
	if err := p.removeOverlays(ctx); err != nil {
		return err
	}
	if err := p.eng.JSClick(ctx, loc); err != nil {
		return fmt.Errorf("opening child window: %w", err)
	}
	p.logger.Info("Clicked window button.", zap.Stringer("locator", loc))
	return nil
}

// ReadNewWindowHeading switches to the child window and returns its heading.
func (p *BrowserWindowsPage) ReadNewWindowHeading(ctx context.Context) (string, error) {
	handle, err := p.eng.SwitchToNewWindow(ctx)
	if err != nil {
		return "", fmt.Errorf("switching to new window: %w", err)
	}
	text, err := p.eng.ReadText(ctx, windowsHeading)
	if err != nil {
		return "", fmt.Errorf("reading heading of %s: %w", handle, err)
	}
	return text, nil
}

// CloseAndReturn closes the child window and goes back to the main one.
func (p *BrowserWindowsPage) CloseAndReturn(ctx context.Context) error {
	if err := p.eng.CloseWindowAndReturn(ctx); err != nil {
		return fmt.Errorf("closing child window: %w", err)
	}
	p.logger.Info("Switched back to main window.", zap.String("main_window", p.eng.PrimaryWindow()))
	return nil
}

// VerifyInteraction opens a child window of the given kind, checks that its
// heading contains expected and closes it again.
func (p *BrowserWindowsPage) VerifyInteraction(ctx context.Context, kind Interaction, expected string) error {
	var open func(context.Context) error
	switch kind {
	case InteractionWindow:
		open = p.OpenNewWindow
	case InteractionTab:
		open = p.OpenNewTab
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedInteraction, kind)
	}

	if err := open(ctx); err != nil {
		return err
	}
	heading, err := p.ReadNewWindowHeading(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(heading, expected) {
		_ = p.CloseAndReturn(ctx)
		return fmt.Errorf("expected %q in new %s, got %q", expected, kind, heading)
	}
	return p.CloseAndReturn(ctx)
}
