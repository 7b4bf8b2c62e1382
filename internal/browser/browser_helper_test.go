// internal/browser/browser_helper_test.go
package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/demoqa-e2e/internal/config"
)

const (
	defaultBrowserTestTimeout = 120 * time.Second
	shutdownTimeout           = 15 * time.Second
)

// chromeCandidates are the executables tried when DEMOQA_CHROME is unset.
var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}

// findChrome returns a browser executable or skips the test.
func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if p := os.Getenv("DEMOQA_CHROME"); p != "" {
		return p
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium executable found")
	return ""
}

// testFixture is a launched Manager plus the context tests run under.
type testFixture struct {
	Manager *Manager
	Logger  *zap.Logger
	Ctx     context.Context
}

func newTestFixture(t *testing.T, concurrency int) *testFixture {
	t.Helper()
	execPath := findChrome(t)
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))

	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultBrowserTestTimeout)
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline.Add(-time.Second))
	t.Cleanup(cancel)

	cfg := config.NewDefaultConfig()
	cfg.BrowserCfg.ExecPath = execPath
	cfg.BrowserCfg.Headless = true
	cfg.BrowserCfg.Concurrency = concurrency
	cfg.BrowserCfg.Args = []string{"--disable-dev-shm-usage"}
	cfg.BrowserCfg.WindowWidth, cfg.BrowserCfg.WindowHeight = 1280, 800
	cfg.TargetCfg.NavigationTimeout = 30 * time.Second

	m, err := NewManager(ctx, cfg, logger)
	require.NoError(t, err, "browser must launch")

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := m.Shutdown(shutdownCtx); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})
	return &testFixture{Manager: m, Logger: logger, Ctx: ctx}
}

func createTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// fixturePages serves a miniature of the pages the suite drives.
func fixturePages() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/sample", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html><html><body><h1 id="sampleHeading">This is a sample page</h1></body></html>`))
	})
	return mux
}

const indexHTML = `<!doctype html>
<html>
<head>
<style>
  li.item { height: 30px; margin: 4px; background: #eee; list-style: none; user-select: none; }
  #ghost { display: none; }
  #cover { position: fixed; top: 0; left: 0; width: 100%; height: 100%; background: rgba(0,0,0,.3); }
</style>
</head>
<body>
  <input id="name" type="text">
  <button id="go" type="button">Go</button>
  <div id="out"></div>
  <div id="ghost">hidden</div>
  <button id="disabled" disabled>Nope</button>
  <button id="open" type="button" onclick="window.open('/sample')">New Window</button>
  <button id="uncover" type="button">Uncover</button>
  <button id="replaceable" type="button" onclick="document.getElementById('out').textContent = 'replaced clicked'">Replaceable</button>
  <ul id="list">
    <li class="item">Five</li>
    <li class="item">Four</li>
    <li class="item">Three</li>
    <li class="item">Two</li>
    <li class="item">One</li>
  </ul>
<script>
  document.getElementById('go').addEventListener('click', () => {
    const v = document.getElementById('name').value;
    setTimeout(() => { document.getElementById('out').textContent = 'Hello ' + v; }, 300);
  });
  let dragged = null;
  document.addEventListener('mousedown', e => { dragged = e.target.closest('li.item'); });
  document.addEventListener('mouseup', e => {
    const hit = document.elementFromPoint(e.clientX, e.clientY);
    const target = hit && hit.closest('li.item');
    if (dragged && target && dragged !== target) {
      target.parentNode.insertBefore(dragged, target);
    }
    dragged = null;
  });
</script>
</body>
</html>`
