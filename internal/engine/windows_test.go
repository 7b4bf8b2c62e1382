package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows(t *testing.T) {
	ctx := context.Background()

	t.Run("SwitchToNewAndBack", func(t *testing.T) {
		d := newFakeDriver()
		e := newTestEngine(t, d)
		require.NoError(t, e.TrackPrimaryWindow(ctx))
		assert.Equal(t, "main", e.PrimaryWindow())

		d.windows = append(d.windows, "popup")
		handle, err := e.SwitchToNewWindow(ctx)
		require.NoError(t, err)
		assert.Equal(t, "popup", handle)
		assert.Equal(t, "popup", d.current)

		require.NoError(t, e.CloseWindowAndReturn(ctx))
		assert.Equal(t, []string{"popup"}, d.closed)
		assert.Equal(t, "main", d.current)
	})

	t.Run("WindowOpensLate", func(t *testing.T) {
		d := newFakeDriver()
		e := newTestEngine(t, d)
		require.NoError(t, e.TrackPrimaryWindow(ctx))

		go func() {
			time.Sleep(30 * time.Millisecond)
			d.mu.Lock()
			d.windows = append(d.windows, "late")
			d.mu.Unlock()
		}()

		handle, err := e.WaitForNewWindow(ctx)
		require.NoError(t, err)
		assert.Equal(t, "late", handle)
	})

	t.Run("NoNewWindow", func(t *testing.T) {
		e := newTestEngine(t, newFakeDriver())
		_, err := e.SwitchToNewWindow(ctx)
		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.ErrorIs(t, err, ErrNoSuchWindow)
	})

	t.Run("PrimaryTrackedLazily", func(t *testing.T) {
		d := newFakeDriver()
		e := newTestEngine(t, d)
		require.NoError(t, e.SwitchToPrimaryWindow(ctx))
		assert.Equal(t, "main", e.PrimaryWindow())
	})

	t.Run("RefusesToClosePrimary", func(t *testing.T) {
		d := newFakeDriver()
		e := newTestEngine(t, d)
		require.NoError(t, e.TrackPrimaryWindow(ctx))

		err := e.CloseWindowAndReturn(ctx)
		assert.ErrorIs(t, err, ErrDriver)
		assert.Empty(t, d.closed)
	})

	t.Run("Handles", func(t *testing.T) {
		d := newFakeDriver()
		d.windows = []string{"main", "a", "b"}
		e := newTestEngine(t, d)
		handles, err := e.WindowHandles(ctx)
		require.NoError(t, err)
		assert.Len(t, handles, 3)
	})
}
