// internal/browser/session/fake_remote_test.go
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chromedp/cdproto/runtime"
)

type remoteCall struct {
	id   runtime.RemoteObjectID
	fn   string
	args []*runtime.CallArgument
}

// fakeRemote answers callOn from canned results keyed by function source.
type fakeRemote struct {
	mu sync.Mutex

	results map[string]string
	errs    map[string]error
	calls   []remoteCall

	queryIDs  []runtime.RemoteObjectID
	queryErr  error
	queryExpr string

	clicks []point
	drags  [][2]point
	keys   []string
	files  map[runtime.RemoteObjectID][]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		results: make(map[string]string),
		errs:    make(map[string]error),
		files:   make(map[runtime.RemoteObjectID][]string),
	}
}

func (f *fakeRemote) queryAll(ctx context.Context, expression string) ([]runtime.RemoteObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryExpr = expression
	return f.queryIDs, f.queryErr
}

func (f *fakeRemote) globalObject(ctx context.Context) (runtime.RemoteObjectID, error) {
	return "window-1", nil
}

func (f *fakeRemote) callOn(ctx context.Context, id runtime.RemoteObjectID, fn string, args []*runtime.CallArgument) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{id: id, fn: fn, args: args})
	if err := f.errs[fn]; err != nil {
		return nil, err
	}
	if res, ok := f.results[fn]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage("null"), nil
}

func (f *fakeRemote) click(ctx context.Context, at point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, at)
	return nil
}

func (f *fakeRemote) drag(ctx context.Context, from, to point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drags = append(f.drags, [2]point{from, to})
	return nil
}

func (f *fakeRemote) typeKeys(ctx context.Context, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys)
	return nil
}

func (f *fakeRemote) setFiles(ctx context.Context, id runtime.RemoteObjectID, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = paths
	return nil
}
