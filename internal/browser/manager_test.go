// internal/browser/manager_test.go
package browser

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/demoqa-e2e/internal/browser/session"
	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// replacingDriver swaps the located node for a fresh copy right after the first
// lookup, the way a re-render does between locate and act.
type replacingDriver struct {
	*session.Session
	replaced atomic.Bool
}

func (d *replacingDriver) FindElement(ctx context.Context, loc engine.Locator) (engine.Element, error) {
	el, err := d.Session.FindElement(ctx, loc)
	if err != nil || d.replaced.Swap(true) {
		return el, err
	}
	_, err = d.Session.ExecuteScript(ctx, "arguments[0].replaceWith(arguments[0].cloneNode(true));", el)
	return el, err
}

func newEngine(t *testing.T, f *testFixture) (*engine.Engine, func()) {
	t.Helper()
	s, err := f.Manager.NewSession(f.Ctx)
	require.NoError(t, err)
	e, err := engine.New(s, f.Logger, engine.WaitPolicy{Timeout: 5 * time.Second, PollInterval: 50 * time.Millisecond, Retries: 3})
	require.NoError(t, err)
	return e, s.Close
}

func TestManager_Integration(t *testing.T) {
	f := newTestFixture(t, 2)
	server := createTestServer(t, fixturePages())

	t.Run("TypeClickAndRead", func(t *testing.T) {
		e, closeSession := newEngine(t, f)
		defer closeSession()
		ctx := f.Ctx

		require.NoError(t, e.Navigate(ctx, server.URL))
		require.NoError(t, e.Type(ctx, engine.ByID("name"), "Ada"))
		require.NoError(t, e.Click(ctx, engine.ByCSS("#go")))

		require.NoError(t, e.Wait(ctx, "greeting", func(ctx context.Context) (bool, error) {
			text, err := e.ReadText(ctx, engine.ByID("out"))
			return text == "Hello Ada", err
		}))

		value, err := e.Attribute(ctx, engine.ByID("name"), "value")
		require.NoError(t, err)
		assert.Equal(t, "Ada", value)
	})

	t.Run("VisibilityAndInteractability", func(t *testing.T) {
		e, closeSession := newEngine(t, f)
		defer closeSession()
		ctx := f.Ctx

		require.NoError(t, e.Navigate(ctx, server.URL))
		assert.False(t, e.IsVisible(ctx, engine.ByID("ghost"), 300*time.Millisecond))
		assert.True(t, e.IsVisible(ctx, engine.ByText("Go"), time.Second))
		assert.True(t, e.IsPresent(ctx, engine.ByXPath("//ul[@id='list']/li"), time.Second))

		err := e.Click(ctx, engine.ByID("disabled"), engine.WithTimeout(500*time.Millisecond))
		assert.ErrorIs(t, err, engine.ErrElementNotInteractable)

		err = e.Click(ctx, engine.ByID("missing"), engine.WithTimeout(300*time.Millisecond))
		assert.ErrorIs(t, err, engine.ErrElementNotFound)
	})

	t.Run("StaleHandleAfterNavigation", func(t *testing.T) {
		s, err := f.Manager.NewSession(f.Ctx)
		require.NoError(t, err)
		defer s.Close()
		ctx := f.Ctx

		require.NoError(t, s.Navigate(ctx, server.URL))
		el, err := s.FindElement(ctx, engine.ByID("go"))
		require.NoError(t, err)
		require.NoError(t, s.Navigate(ctx, server.URL))

		_, err = el.Text(ctx)
		assert.ErrorIs(t, err, engine.ErrStaleElement)
	})

	t.Run("SortByDragAndDrop", func(t *testing.T) {
		e, closeSession := newEngine(t, f)
		defer closeSession()
		ctx := f.Ctx

		require.NoError(t, e.Navigate(ctx, server.URL))
		got, err := e.SortByText(ctx, engine.SortSpec{
			Items: engine.ByCSS("#list li.item"),
			ItemByText: func(text string) engine.Locator {
				return engine.ByXPath("//ul[@id='list']/li[normalize-space(.)=" + engine.XPathLiteral(text) + "]")
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Five", "Four", "One", "Three", "Two"}, got)
	})

	t.Run("ScriptArguments", func(t *testing.T) {
		s, err := f.Manager.NewSession(f.Ctx)
		require.NoError(t, err)
		defer s.Close()
		ctx := f.Ctx

		require.NoError(t, s.Navigate(ctx, server.URL))
		el, err := s.FindElement(ctx, engine.ByID("out"))
		require.NoError(t, err)

		res, err := s.ExecuteScript(ctx, "arguments[0].textContent = arguments[1]; return arguments[0].id;", el, "scripted")
		require.NoError(t, err)
		assert.JSONEq(t, `"out"`, string(res))

		text, err := el.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "scripted", text)
	})

	t.Run("DetachedScriptArgument", func(t *testing.T) {
		s, err := f.Manager.NewSession(f.Ctx)
		require.NoError(t, err)
		defer s.Close()
		ctx := f.Ctx

		require.NoError(t, s.Navigate(ctx, server.URL))
		el, err := s.FindElement(ctx, engine.ByID("replaceable"))
		require.NoError(t, err)
		_, err = s.ExecuteScript(ctx, "arguments[0].remove();", el)
		require.NoError(t, err)

		_, err = s.ExecuteScript(ctx, "arguments[0].click();", el)
		assert.ErrorIs(t, err, engine.ErrStaleElement)
	})

	t.Run("JSClickRelocatesReplacedNode", func(t *testing.T) {
		s, err := f.Manager.NewSession(f.Ctx)
		require.NoError(t, err)
		defer s.Close()
		ctx := f.Ctx

		d := &replacingDriver{Session: s}
		e, err := engine.New(d, f.Logger, engine.WaitPolicy{Timeout: 5 * time.Second, PollInterval: 50 * time.Millisecond, Retries: 3})
		require.NoError(t, err)

		require.NoError(t, e.Navigate(ctx, server.URL))
		require.NoError(t, e.JSClick(ctx, engine.ByID("replaceable")))
		assert.True(t, d.replaced.Load())

		text, err := e.ReadText(ctx, engine.ByID("out"))
		require.NoError(t, err)
		assert.Equal(t, "replaced clicked", text)
	})

	t.Run("NewWindow", func(t *testing.T) {
		e, closeSession := newEngine(t, f)
		defer closeSession()
		ctx := f.Ctx

		require.NoError(t, e.Navigate(ctx, server.URL))
		require.NoError(t, e.TrackPrimaryWindow(ctx))
		require.NoError(t, e.Click(ctx, engine.ByID("open")))

		handle, err := e.SwitchToNewWindow(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, e.PrimaryWindow(), handle)

		heading, err := e.ReadText(ctx, engine.ByID("sampleHeading"))
		require.NoError(t, err)
		assert.True(t, strings.Contains(heading, "This is a sample page"))

		require.NoError(t, e.CloseWindowAndReturn(ctx))
		assert.True(t, e.IsPresent(ctx, engine.ByID("open"), time.Second))
	})
}

func TestManager_SessionSlots(t *testing.T) {
	f := newTestFixture(t, 1)

	first, err := f.Manager.NewSession(f.Ctx)
	require.NoError(t, err)

	// The only slot is taken, so a second session waits until the deadline.
	waitCtx, cancel := context.WithTimeout(f.Ctx, 200*time.Millisecond)
	defer cancel()
	_, err = f.Manager.NewSession(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	first.Close()
	second, err := f.Manager.NewSession(f.Ctx)
	require.NoError(t, err)
	second.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	require.NoError(t, f.Manager.Shutdown(shutdownCtx))

	_, err = f.Manager.NewSession(f.Ctx)
	assert.ErrorIs(t, err, ErrManagerClosed)
}
