// internal/browser/session/session.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// Options configures a new Session.
type Options struct {
	NavigationTimeout time.Duration
	WindowWidth       int
	WindowHeight      int
	// OnClose runs once after the session's tabs are closed.
	OnClose func()
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session is one browser tab plus any windows it opened. It implements
// engine.Driver; all operations act on the current window.
type Session struct {
	id         string
	browserCtx context.Context
	logger     *zap.Logger
	opts       Options
	remote     remote

	mu      sync.RWMutex
	primary target.ID
	current target.ID
	tabs    map[target.ID]*tab

	closeOnce sync.Once
}

var (
	_ engine.Driver  = (*Session)(nil)
	_ ActionExecutor = (*Session)(nil)
)

// NewSession opens a new tab in the browser behind browserCtx.
func NewSession(browserCtx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	id := uuid.New().String()
	s := &Session{
		id:         id,
		browserCtx: browserCtx,
		logger:     logger.Named("session").With(zap.String("session_id", id)),
		opts:       opts,
		tabs:       make(map[target.ID]*tab),
	}
	s.remote = &cdpExecutor{logger: s.logger, runActionsFunc: s.RunActions}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	var actions []chromedp.Action
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(opts.WindowWidth), int64(opts.WindowHeight)))
	}
	// The first Run creates the target.
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	tid := chromedp.FromContext(tabCtx).Target.TargetID
	s.tabs[tid] = &tab{ctx: tabCtx, cancel: cancel}
	s.primary, s.current = tid, tid
	s.logger.Debug("Session opened.", zap.String("target_id", string(tid)))
	return s, nil
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) currentContext() (context.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tabs[s.current]
	if !ok {
		return nil, fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	return t.ctx, nil
}

// anyContext returns a live tab context, preferring the primary tab, for
// browser-level commands that do not depend on the current window.
func (s *Session) anyContext() (context.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tabs[s.primary]; ok {
		return t.ctx, nil
	}
	for _, t := range s.tabs {
		return t.ctx, nil
	}
	return nil, fmt.Errorf("%w: session has no open windows", engine.ErrNoSuchWindow)
}

// RunActions executes actions on the current window.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.currentContext()
	if err != nil {
		return err
	}
	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// RunBackgroundActions executes actions on the current window, ignoring ctx's
// cancellation.
func (s *Session) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	return s.RunActions(Detach(ctx), actions...)
}

// Navigate loads url in the current window and waits for the body to be ready.
// Handles from the previous document are released.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.RunActions(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_ = runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *Session) FindElement(ctx context.Context, loc engine.Locator) (engine.Element, error) {
	elems, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoSuchElement, loc)
	}
	return elems[0], nil
}

func (s *Session) FindElements(ctx context.Context, loc engine.Locator) ([]engine.Element, error) {
	expr, err := queryExpression(loc)
	if err != nil {
		return nil, err
	}
	ids, err := s.remote.queryAll(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	elems := make([]engine.Element, len(ids))
	for i, id := range ids {
		elems[i] = &element{id: id, remote: s.remote}
	}
	return elems, nil
}

// ExecuteScript runs script as the body of a function. Arguments are exposed
// through `arguments`; elements of this session are passed as live nodes.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	cargs, err := callArguments(args)
	if err != nil {
		return nil, err
	}
	win, err := s.remote.globalObject(ctx)
	if err != nil {
		return nil, err
	}
	return s.remote.callOn(ctx, win, "function() {\n"+script+"\n}", cargs)
}

func (s *Session) DragAndDrop(ctx context.Context, src, dst engine.Element) error {
	from, ok := src.(*element)
	if !ok {
		return fmt.Errorf("drag source %T does not belong to this session", src)
	}
	to, ok := dst.(*element)
	if !ok {
		return fmt.Errorf("drop target %T does not belong to this session", dst)
	}
	start, end, err := from.dragPoints(ctx, to)
	if err != nil {
		return err
	}
	return s.remote.drag(ctx, start, end)
}

// Close closes every window of the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		tabs := s.tabs
		s.tabs = make(map[target.ID]*tab)
		s.current, s.primary = "", ""
		s.mu.Unlock()

		for _, t := range tabs {
			t.cancel()
		}
		s.logger.Debug("Session closed.", zap.Int("windows", len(tabs)))
		if s.opts.OnClose != nil {
			s.opts.OnClose()
		}
	})
}

// -- Windows --

func (s *Session) CurrentWindowHandle(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tabs[s.current]; !ok {
		return "", fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	return string(s.current), nil
}

// WindowHandles lists this session's tabs plus every page they opened,
// transitively. Tabs of other sessions in the same browser are excluded.
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	tabCtx, err := s.anyContext()
	if err != nil {
		return nil, err
	}
	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	s.mu.RLock()
	roots := make([]target.ID, 0, len(s.tabs))
	for id := range s.tabs {
		roots = append(roots, id)
	}
	primary := s.primary
	s.mu.RUnlock()

	return relatedPages(infos, roots, primary), nil
}

// relatedPages returns the page targets reachable from roots through opener
// links. The primary handle, when present, comes first; the rest are sorted.
func relatedPages(infos []*target.Info, roots []target.ID, primary target.ID) []string {
	known := make(map[target.ID]bool, len(roots))
	for _, id := range roots {
		known[id] = true
	}
	for changed := true; changed; {
		changed = false
		for _, info := range infos {
			if info.Type != "page" || known[info.TargetID] || info.OpenerID == "" {
				continue
			}
			if known[info.OpenerID] {
				known[info.TargetID] = true
				changed = true
			}
		}
	}

	var handles []string
	hasPrimary := false
	for _, info := range infos {
		if info.Type != "page" || !known[info.TargetID] {
			continue
		}
		if info.TargetID == primary {
			hasPrimary = true
			continue
		}
		handles = append(handles, string(info.TargetID))
	}
	slices.Sort(handles)
	if hasPrimary {
		handles = append([]string{string(primary)}, handles...)
	}
	return handles
}

// SwitchToWindow makes handle the current window, attaching to it first when
// the session has not driven it before.
func (s *Session) SwitchToWindow(ctx context.Context, handle string) error {
	id := target.ID(handle)

	s.mu.Lock()
	if _, ok := s.tabs[id]; ok {
		s.current = id
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	handles, err := s.WindowHandles(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(handles, handle) {
		return fmt.Errorf("%w: %s", engine.ErrNoSuchWindow, handle)
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(id))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("attaching to window %s: %w", handle, err)
	}

	s.mu.Lock()
	s.tabs[id] = &tab{ctx: tabCtx, cancel: cancel}
	s.current = id
	s.mu.Unlock()
	s.logger.Debug("Attached to window.", zap.String("target_id", handle))
	return nil
}

// CloseCurrentWindow closes the current window. Afterwards there is no current
// window until SwitchToWindow is called.
func (s *Session) CloseCurrentWindow(ctx context.Context) error {
	s.mu.Lock()
	id := s.current
	t, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	delete(s.tabs, id)
	s.current = ""
	if id == s.primary {
		s.primary = ""
	}
	s.mu.Unlock()

	runCtx, cancel := CombineContext(t.ctx, ctx)
	err := chromedp.Run(runCtx, page.Close())
	cancel()
	t.cancel()
	if err != nil {
		return fmt.Errorf("closing window %s: %w", id, err)
	}
	s.logger.Debug("Closed window.", zap.String("target_id", string(id)))
	return nil
}
