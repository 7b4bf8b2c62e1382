// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/demoqa-e2e/internal/browser/session"
	"github.com/xkilldash9x/demoqa-e2e/internal/config"
)

// ErrManagerClosed is returned by NewSession after Shutdown.
var ErrManagerClosed = errors.New("browser manager is shut down")

// Manager owns one Chrome process. Sessions are tabs of that process; at most
// browser.concurrency of them are open at a time.
type Manager struct {
	logger     *zap.Logger
	cfg        config.BrowserConfig
	navTimeout time.Duration

	// allocatorCtx manages the browser process. All tab contexts derive from browserCtx.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	// sem holds one unit per open session. Shutdown drains it to wait for them.
	sem   *semaphore.Weighted
	slots int64

	mu     sync.Mutex
	closed bool
}

// NewManager launches the browser and verifies it responds.
func NewManager(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := cfg.Browser()
	slots := bc.Concurrency
	if slots < 1 {
		slots = 1
	}
	m := &Manager{
		logger:     logger.Named("browser_manager"),
		cfg:        bc,
		navTimeout: cfg.Target().NavigationTimeout,
		sem:        semaphore.NewWeighted(int64(slots)),
		slots:      int64(slots),
	}

	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launchBrowser starts the process and keeps a root browser context alive.
// Canceling the first context of an allocator kills the browser, so the root
// context lives until Shutdown.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, buildAllocatorOptions(m.cfg)...)
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx, m.contextOptions()...)

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	// The first Run allocates the browser and must not be bound to a short-lived context.
	errc := make(chan error, 1)
	go func() {
		errc <- chromedp.Run(m.browserCtx, chromedp.Navigate("about:blank"))
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		if err != nil {
			m.browserCancel()
			m.allocatorCancel()
			return fmt.Errorf("browser failed to start or respond: %w", err)
		}
	case <-timer.C:
		m.browserCancel()
		m.allocatorCancel()
		<-errc
		return fmt.Errorf("browser did not respond within %v", timeout)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

func (m *Manager) contextOptions() []chromedp.ContextOption {
	sugar := m.logger.Sugar()
	opts := []chromedp.ContextOption{chromedp.WithErrorf(sugar.Warnf)}
	if m.cfg.Debug {
		opts = append(opts, chromedp.WithLogf(sugar.Debugf), chromedp.WithDebugf(sugar.Debugf))
	}
	return opts
}

// allocatorFlags returns the Chrome command line flags for cfg. A false boolean
// removes a flag that chromedp would otherwise pass.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                  cfg.Headless,
		"disable-gpu":               cfg.Headless,
		"enable-automation":         false,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"disable-blink-features":    "AutomationControlled",
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(strings.TrimSpace(parts[0]), "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	// Required for running inside containers.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
	}
	return flags
}

// buildAllocatorOptions layers the configured flags over chromedp's defaults.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// markClosed reports whether this call closed the manager.
func (m *Manager) markClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.closed = true
	return true
}

// acquireSlot takes one session slot. A caller that was queued when Shutdown
// started gets ErrManagerClosed once its slot comes free.
func (m *Manager) acquireSlot(ctx context.Context) error {
	if m.isClosed() {
		return ErrManagerClosed
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for a free browser slot: %w", err)
	}
	if m.isClosed() {
		m.sem.Release(1)
		return ErrManagerClosed
	}
	return nil
}

// drainSessions takes every slot, which means no session is open. It reports
// false when ctx ended first; the caller must release the slots otherwise.
func (m *Manager) drainSessions(ctx context.Context) bool {
	if err := m.sem.Acquire(ctx, m.slots); err != nil {
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(err))
		return false
	}
	m.logger.Info("All sessions have completed.")
	return true
}

// NewSession opens a tab, blocking until a session slot is free or ctx ends.
// The caller must Close the session to release its slot.
func (m *Manager) NewSession(ctx context.Context) (*session.Session, error) {
	if err := m.acquireSlot(ctx); err != nil {
		return nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { m.sem.Release(1) })
	}

	s, err := session.NewSession(m.browserCtx, session.Options{
		NavigationTimeout: m.navTimeout,
		WindowWidth:       m.cfg.WindowWidth,
		WindowHeight:      m.cfg.WindowHeight,
		OnClose:           release,
	}, m.logger)
	if err != nil {
		release()
		return nil, err
	}
	return s, nil
}

// Shutdown waits for open sessions to close, then terminates the browser. When
// ctx ends first the browser is terminated anyway.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.markClosed() {
		return nil
	}
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")
	if m.drainSessions(ctx) {
		// Queued NewSession callers take these and see the manager closed.
		defer m.sem.Release(m.slots)
	}

	m.logger.Info("Shutting down main browser process...")
	err := chromedp.Cancel(m.browserCtx)
	m.browserCancel()
	m.allocatorCancel()
	<-m.allocatorCtx.Done()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}
