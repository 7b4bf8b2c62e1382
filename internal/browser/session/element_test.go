// internal/browser/session/element_test.go
package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

func TestElement(t *testing.T) {
	ctx := context.Background()

	t.Run("ClickDispatchesAtCentre", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsCenter] = `{"x":40,"y":12.5}`
		el := &element{id: "node-1", remote: r}

		require.NoError(t, el.Click(ctx))

		require.Len(t, r.calls, 1)
		assert.Equal(t, runtime.RemoteObjectID("node-1"), r.calls[0].id)
		assert.Equal(t, []point{{X: 40, Y: 12.5}}, r.clicks)
	})

	t.Run("ClickOnStaleNodeDispatchesNothing", func(t *testing.T) {
		r := newFakeRemote()
		r.errs[jsCenter] = fmt.Errorf("%w: detached", engine.ErrStaleElement)
		el := &element{id: "node-1", remote: r}

		err := el.Click(ctx)
		assert.ErrorIs(t, err, engine.ErrStaleElement)
		assert.Empty(t, r.clicks)
	})

	t.Run("SendKeysTypesIntoFocusedInput", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsFocus] = `false`
		el := &element{id: "node-1", remote: r}

		require.NoError(t, el.SendKeys(ctx, "Maths"+engine.KeyEnter))
		assert.Equal(t, []string{"Maths\r"}, r.keys)
		assert.Empty(t, r.files)
	})

	t.Run("SendKeysAttachesFiles", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsFocus] = `true`
		el := &element{id: "upload", remote: r}

		require.NoError(t, el.SendKeys(ctx, "/tmp/a.png\n/tmp/b.png"))
		assert.Equal(t, []string{"/tmp/a.png", "/tmp/b.png"}, r.files["upload"])
		assert.Empty(t, r.keys)
	})

	t.Run("TextAndAttribute", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsText] = `"Thanks for submitting the form"`
		r.results[jsAttribute] = `"42"`
		el := &element{id: "node-1", remote: r}

		text, err := el.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Thanks for submitting the form", text)

		v, err := el.Attribute(ctx, "aria-valuenow")
		require.NoError(t, err)
		assert.Equal(t, "42", v)

		require.Len(t, r.calls, 2)
		require.Len(t, r.calls[1].args, 1)
		assert.JSONEq(t, `"aria-valuenow"`, string(r.calls[1].args[0].Value))
	})

	t.Run("NullTextReadsAsEmpty", func(t *testing.T) {
		el := &element{id: "node-1", remote: newFakeRemote()}
		text, err := el.Text(ctx)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("States", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsDisplayed] = `true`
		r.results[jsEnabled] = `false`
		r.results[jsReceivesPointer] = `true`
		el := &element{id: "node-1", remote: r}

		displayed, err := el.IsDisplayed(ctx)
		require.NoError(t, err)
		assert.True(t, displayed)

		enabled, err := el.IsEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)

		hit, err := el.ReceivesPointer(ctx)
		require.NoError(t, err)
		assert.True(t, hit)
	})

	t.Run("UndecodableResult", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsDisplayed] = `"yes"`
		el := &element{id: "node-1", remote: r}

		_, err := el.IsDisplayed(ctx)
		assert.ErrorContains(t, err, "decoding script result")
	})

	t.Run("DragPoints", func(t *testing.T) {
		r := newFakeRemote()
		r.results[jsDragPoints] = `{"from":{"x":1,"y":2},"to":{"x":3,"y":4}}`
		src := &element{id: "src", remote: r}
		dst := &element{id: "dst", remote: r}

		from, to, err := src.dragPoints(ctx, dst)
		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2}, from)
		assert.Equal(t, point{X: 3, Y: 4}, to)
		require.Len(t, r.calls[0].args, 1)
		assert.Equal(t, runtime.RemoteObjectID("dst"), r.calls[0].args[0].ObjectID)
	})

	t.Run("DragPointsDetachedTarget", func(t *testing.T) {
		r := newFakeRemote()
		src := &element{id: "src", remote: r}
		_, _, err := src.dragPoints(ctx, &element{id: "dst", remote: r})
		assert.ErrorIs(t, err, engine.ErrStaleElement)
	})
}

type foreignElement struct{ engine.Element }

func TestCallArguments(t *testing.T) {
	args, err := callArguments([]interface{}{&element{id: "n1"}, "text", 3, map[string]bool{"ok": true}})
	require.NoError(t, err)
	require.Len(t, args, 4)
	assert.Equal(t, runtime.RemoteObjectID("n1"), args[0].ObjectID)
	assert.Empty(t, args[0].Value)
	assert.JSONEq(t, `"text"`, string(args[1].Value))
	assert.JSONEq(t, `3`, string(args[2].Value))
	assert.JSONEq(t, `{"ok":true}`, string(args[3].Value))

	_, err = callArguments([]interface{}{foreignElement{}})
	assert.ErrorContains(t, err, "does not belong to this session")

	_, err = callArguments([]interface{}{make(chan int)})
	assert.ErrorContains(t, err, "argument 0")
}
