package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fastPolicy keeps timeout-driven tests quick.
var fastPolicy = WaitPolicy{Timeout: 150 * time.Millisecond, PollInterval: 10 * time.Millisecond, Retries: 3}

func newTestEngine(t *testing.T, d Driver) *Engine {
	t.Helper()
	e, err := New(d, zaptest.NewLogger(t), fastPolicy)
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	t.Run("NilDriver", func(t *testing.T) {
		_, err := New(nil, zap.NewNop(), WaitPolicy{})
		assert.Error(t, err)
	})

	t.Run("ZeroPolicyUsesDefaults", func(t *testing.T) {
		e, err := New(newFakeDriver(), nil, WaitPolicy{})
		require.NoError(t, err)
		assert.Equal(t, DefaultWaitPolicy(), e.Policy())
	})
}

func TestClick(t *testing.T) {
	t.Run("Succeeds", func(t *testing.T) {
		d := newFakeDriver()
		btn := newFakeElement("Submit")
		d.static[ByID("submit")] = btn
		e := newTestEngine(t, d)

		require.NoError(t, e.Click(context.Background(), ByID("submit")))
		assert.Equal(t, 1, btn.clicks)
	})

	t.Run("NeverResolvingLocatorFailsWithinTimeout", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())

		start := time.Now()
		err := e.Click(context.Background(), ByID("missing"))
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.Less(t, elapsed, fastPolicy.Timeout+200*time.Millisecond, "click must not hang past its timeout")

		var ae *ActionError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "click", ae.Op)
		assert.Equal(t, ByID("missing"), ae.Locator)
	})

	t.Run("HiddenElementIsNotInteractable", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("hidden")
		el.displayed = false
		d.static[ByCSS(".hidden")] = el
		e := newTestEngine(t, d)

		err := e.Click(context.Background(), ByCSS(".hidden"))
		assert.ErrorIs(t, err, ErrElementNotInteractable)
		assert.Zero(t, el.clicks)
	})

	t.Run("OccludedElementIsNotInteractable", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("under an ad")
		el.pointer = false
		d.static[ByID("submit")] = el
		e := newTestEngine(t, d)

		err := e.Click(context.Background(), ByID("submit"))
		assert.ErrorIs(t, err, ErrElementNotInteractable)
	})

	t.Run("DisabledElementIsNotInteractable", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("disabled")
		el.enabled = false
		d.static[ByID("submit")] = el
		e := newTestEngine(t, d)

		assert.ErrorIs(t, e.Click(context.Background(), ByID("submit")), ErrElementNotInteractable)
	})

	t.Run("RecoversFromSingleStaleness", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("flaky")
		d.static[ByID("flaky")] = el
		e := newTestEngine(t, d)

		// The visibility check consumes the first stale response; the engine
		// keeps polling and the click itself then succeeds.
		el.staleFor = 1
		require.NoError(t, e.Click(context.Background(), ByID("flaky")))
		assert.Equal(t, 1, el.clicks)
	})

	t.Run("StaleExhausted", func(t *testing.T) {
		d := newFakeDriver()
		el := &staleOnClick{fakeElement: newFakeElement("gone")}
		d2 := &overrideDriver{fakeDriver: d, el: el}
		e := newTestEngine(t, d2)

		err := e.Click(context.Background(), ByID("gone"))
		assert.ErrorIs(t, err, ErrStaleElementExhausted)
		assert.ErrorIs(t, err, ErrStaleElement)
		assert.Equal(t, fastPolicy.Retries, el.attempts)
	})

	t.Run("RetryBudgetPerCall", func(t *testing.T) {
		d := newFakeDriver()
		el := &staleOnClick{fakeElement: newFakeElement("gone")}
		e := newTestEngine(t, &overrideDriver{fakeDriver: d, el: el})

		err := e.Click(context.Background(), ByID("gone"), WithRetries(5))
		assert.ErrorIs(t, err, ErrStaleElementExhausted)
		assert.Equal(t, 5, el.attempts)
	})

	t.Run("DriverErrorIsLoggedAndPropagated", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		d := newFakeDriver()
		boom := errors.New("websocket closed")
		d.findErr = boom
		e, err := New(d, zap.New(core), fastPolicy)
		require.NoError(t, err)

		err = e.Click(context.Background(), ByID("submit"))
		assert.ErrorIs(t, err, ErrDriver)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, logs.FilterMessage("Driver operation failed").Len())
	})

	t.Run("InvalidLocator", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())
		err := e.Click(context.Background(), Locator{Strategy: "name", Value: "q"})
		assert.ErrorIs(t, err, ErrDriver)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := e.Click(ctx, ByID("missing"))
		assert.ErrorIs(t, err, ErrDriver)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// staleOnClick passes every wait check but detaches on click.
type staleOnClick struct {
	*fakeElement
	attempts int
}

func (s *staleOnClick) Click(ctx context.Context) error {
	s.attempts++
	return ErrStaleElement
}

type overrideDriver struct {
	*fakeDriver
	el Element
}

func (o *overrideDriver) FindElement(ctx context.Context, loc Locator) (Element, error) {
	return o.el, nil
}

func TestType(t *testing.T) {
	t.Run("ClearsThenSends", func(t *testing.T) {
		d := newFakeDriver()
		field := newFakeElement("")
		field.value = "stale input"
		d.static[ByID("firstName")] = field
		e := newTestEngine(t, d)

		require.NoError(t, e.Type(context.Background(), ByID("firstName"), "John"))
		assert.Equal(t, "John", field.value)
	})

	t.Run("RecoversFromStaleness", func(t *testing.T) {
		d := newFakeDriver()
		field := newFakeElement("")
		d.static[ByID("firstName")] = field
		e := newTestEngine(t, d)

		field.staleFor = 1 // the clear hits a detached node once
		require.NoError(t, e.Type(context.Background(), ByID("firstName"), "Jane"))
		assert.Equal(t, "Jane", field.value)
	})

	t.Run("NeverResolvingLocator", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())
		start := time.Now()
		err := e.Type(context.Background(), ByID("nope"), "x")
		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.Less(t, time.Since(start), fastPolicy.Timeout+200*time.Millisecond)
	})

	t.Run("SendKeysAppends", func(t *testing.T) {
		d := newFakeDriver()
		field := newFakeElement("")
		field.value = "Mat"
		d.static[ByID("subjectsInput")] = field
		e := newTestEngine(t, d)

		require.NoError(t, e.SendKeys(context.Background(), ByID("subjectsInput"), "hs"+KeyEnter))
		assert.Equal(t, "Maths\r", field.value)
	})
}

func TestReadText(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		d := newFakeDriver()
		d.static[ByID("sampleHeading")] = newFakeElement("This is a sample page")
		e := newTestEngine(t, d)

		first, err := e.ReadText(context.Background(), ByID("sampleHeading"))
		require.NoError(t, err)
		second, err := e.ReadText(context.Background(), ByID("sampleHeading"))
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, "This is a sample page", first)
	})

	t.Run("NotFound", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())
		_, err := e.ReadText(context.Background(), ByID("sampleHeading"))
		assert.ErrorIs(t, err, ErrElementNotFound)
	})

	t.Run("RereadsAfterStaleness", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("ok")
		el.staleFor = 2
		d.static[ByID("x")] = el
		e := newTestEngine(t, d)

		text, err := e.ReadText(context.Background(), ByID("x"))
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})
}

func TestAttribute(t *testing.T) {
	d := newFakeDriver()
	bar := newFakeElement("24%")
	bar.attrs["aria-valuenow"] = "24"
	d.static[ByCSS(".progress-bar")] = bar
	e := newTestEngine(t, d)

	v, err := e.Attribute(context.Background(), ByCSS(".progress-bar"), "aria-valuenow")
	require.NoError(t, err)
	assert.Equal(t, "24", v)

	v, err = e.Attribute(context.Background(), ByCSS(".progress-bar"), "missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestIsVisible_NeverFails(t *testing.T) {
	visible := newFakeElement("shown")
	hidden := newFakeElement("hidden")
	hidden.displayed = false
	exploding := newFakeElement("boom")
	exploding.panicOn = true

	tests := []struct {
		name  string
		setup func(d *fakeDriver)
		loc   Locator
		want  bool
	}{
		{name: "Visible", setup: func(d *fakeDriver) { d.static[ByID("a")] = visible }, loc: ByID("a"), want: true},
		{name: "Hidden", setup: func(d *fakeDriver) { d.static[ByID("a")] = hidden }, loc: ByID("a"), want: false},
		{name: "Missing", setup: func(d *fakeDriver) {}, loc: ByID("a"), want: false},
		{name: "DriverError", setup: func(d *fakeDriver) { d.findErr = errors.New("connection reset") }, loc: ByID("a"), want: false},
		{name: "DriverPanic", setup: func(d *fakeDriver) { d.static[ByID("a")] = exploding }, loc: ByID("a"), want: false},
		{name: "InvalidLocator", setup: func(d *fakeDriver) {}, loc: Locator{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			tt.setup(d)
			e := newTestEngine(t, d)
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, e.IsVisible(context.Background(), tt.loc, 50*time.Millisecond))
			})
		})
	}
}

func TestProbes_ZeroTimeoutChecksOnce(t *testing.T) {
	d := newFakeDriver()
	d.static[ByID("here")] = newFakeElement("here")
	e := newTestEngine(t, d)
	ctx := context.Background()

	start := time.Now()
	assert.True(t, e.IsVisible(ctx, ByID("here"), 0))
	assert.True(t, e.IsPresent(ctx, ByID("here"), 0))
	assert.False(t, e.IsVisible(ctx, ByID("gone"), 0))
	assert.False(t, e.IsPresent(ctx, ByID("gone"), -time.Second))
	assert.Less(t, time.Since(start), DefaultPollInterval, "a zero timeout must not fall back to the default wait")
}

func TestIsPresent(t *testing.T) {
	d := newFakeDriver()
	hidden := newFakeElement("")
	hidden.displayed = false
	d.static[ByCSS("span[title='Edit']")] = hidden
	e := newTestEngine(t, d)

	assert.True(t, e.IsPresent(context.Background(), ByCSS("span[title='Edit']"), 50*time.Millisecond))
	assert.False(t, e.IsPresent(context.Background(), ByCSS("span[title='Delete']"), 50*time.Millisecond))
}

func TestEscapeHatches(t *testing.T) {
	t.Run("ScrollIntoViewPassesElement", func(t *testing.T) {
		d := newFakeDriver()
		el := newFakeElement("submit")
		d.static[ByID("submit")] = el
		e := newTestEngine(t, d)

		require.NoError(t, e.ScrollIntoView(context.Background(), ByID("submit")))
		require.Len(t, d.scripts, 1)
		assert.Contains(t, d.scripts[0].script, "scrollIntoView(true)")
		assert.Same(t, el, d.scripts[0].args[0])
	})

	t.Run("JSClick", func(t *testing.T) {
		d := newFakeDriver()
		d.static[ByID("closeLargeModal")] = newFakeElement("Close")
		e := newTestEngine(t, d)

		require.NoError(t, e.JSClick(context.Background(), ByID("closeLargeModal")))
		assert.Equal(t, "arguments[0].click();", d.scripts[0].script)
	})

	t.Run("JSClickRetriesStaleScript", func(t *testing.T) {
		d := newFakeDriver()
		d.static[ByID("delete")] = newFakeElement("Delete")
		calls := 0
		d.scriptFn = func(string, []any) (json.RawMessage, error) {
			calls++
			if calls == 1 {
				return nil, ErrStaleElement
			}
			return json.RawMessage("null"), nil
		}
		e := newTestEngine(t, d)

		require.NoError(t, e.JSClick(context.Background(), ByID("delete")))
		assert.Equal(t, 2, calls)
	})

	t.Run("RunScriptReturnsValue", func(t *testing.T) {
		d := newFakeDriver()
		d.scriptFn = func(string, []any) (json.RawMessage, error) { return json.RawMessage(`3`), nil }
		e := newTestEngine(t, d)

		res, err := e.RunScript(context.Background(), "return 1 + 2;")
		require.NoError(t, err)
		assert.JSONEq(t, "3", string(res))
	})

	t.Run("RunScriptError", func(t *testing.T) {
		d := newFakeDriver()
		d.scriptFn = func(string, []any) (json.RawMessage, error) { return nil, errors.New("ReferenceError: foo") }
		e := newTestEngine(t, d)

		_, err := e.RunScript(context.Background(), "return foo;")
		assert.ErrorIs(t, err, ErrDriver)
		assert.Contains(t, err.Error(), "ReferenceError")
	})
}

func TestCollections(t *testing.T) {
	d := newFakeDriver()
	d.setList("One", "Two", " ", "Three")
	e := newTestEngine(t, d)

	n, err := e.Count(context.Background(), ByCSS(".item"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	texts, err := e.Texts(context.Background(), ByCSS(".item"))
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, texts)

	_, err = e.WaitAll(context.Background(), ByCSS(".none"))
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestWait(t *testing.T) {
	e := newTestEngine(t, newFakeDriver())

	calls := 0
	err := e.Wait(context.Background(), "third time lucky", func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)

	err = e.Wait(context.Background(), "never", func(ctx context.Context) (bool, error) { return false, nil })
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Contains(t, err.Error(), "never")

	boom := errors.New("boom")
	err = e.Wait(context.Background(), "hard failure", func(ctx context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
