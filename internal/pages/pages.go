// Package pages holds the demoqa page flows. Every flow is a thin composition
// over one shared *engine.Engine; none of them talks to the browser directly.
package pages

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// jsRemoveOverlays strips the fixed ad banner, the footer and ad iframes, all of
// which sit on top of controls near the bottom of the viewport.
const jsRemoveOverlays = `
const banner = document.getElementById('fixedban');
if (banner) { banner.remove(); }
document.querySelectorAll('footer').forEach(f => { f.style.display = 'none'; });
document.querySelectorAll("iframe, [id^='google_ads_iframe']").forEach(f => f.remove());
return null;`

const jsClickArgument = "arguments[0].click();"

// Set is the page flows of one scenario, all sharing one engine.
type Set struct {
	PracticeForm   *PracticeFormPage
	WebTables      *WebTablesPage
	ProgressBar    *ProgressBarPage
	Sortable       *SortablePage
	BrowserWindows *BrowserWindowsPage
}

// New builds every page flow over eng. baseURL is the application root, e.g. https://demoqa.com.
func New(eng *engine.Engine, baseURL string, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pages")
	mk := func(name string) base {
		return base{eng: eng, baseURL: strings.TrimRight(baseURL, "/"), logger: logger.With(zap.String("page", name))}
	}
	return &Set{
		PracticeForm:   &PracticeFormPage{base: mk("practice_form")},
		WebTables:      &WebTablesPage{base: mk("web_tables")},
		ProgressBar:    &ProgressBarPage{base: mk("progress_bar")},
		Sortable:       &SortablePage{base: mk("sortable")},
		BrowserWindows: &BrowserWindowsPage{base: mk("browser_windows")},
	}
}

// base carries what every page needs.
type base struct {
	eng     *engine.Engine
	baseURL string
	logger  *zap.Logger
}

func (b *base) url(path string) string {
	return b.baseURL + path
}

// open navigates to path and clears the overlays.
func (b *base) open(ctx context.Context, path string) error {
	if err := b.eng.Navigate(ctx, b.url(path)); err != nil {
		return err
	}
	b.logger.Info("Opened page.", zap.String("path", path))
	return b.removeOverlays(ctx)
}

func (b *base) removeOverlays(ctx context.Context) error {
	if _, err := b.eng.RunScript(ctx, jsRemoveOverlays); err != nil {
		return fmt.Errorf("removing overlays: %w", err)
	}
	return nil
}

// clickNth dispatches a script click on match i of loc; a negative i counts from
// the end. It reports false when loc has no matches.
func (b *base) clickNth(ctx context.Context, loc engine.Locator, i int) (bool, error) {
	els, err := b.eng.FindAll(ctx, loc)
	if err != nil {
		return false, err
	}
	if len(els) == 0 {
		return false, nil
	}
	if i < 0 {
		i += len(els)
	}
	if i < 0 || i >= len(els) {
		return false, fmt.Errorf("index %d out of range for %s (%d matches)", i, loc, len(els))
	}
	if _, err := b.eng.RunScript(ctx, jsClickArgument, els[i]); err != nil {
		return false, err
	}
	return true, nil
}

// waitGone waits until loc has no matches.
func (b *base) waitGone(ctx context.Context, desc string, loc engine.Locator) error {
	return b.eng.Wait(ctx, desc, func(ctx context.Context) (bool, error) {
		n, err := b.eng.Count(ctx, loc)
		if err != nil {
			return false, err
		}
		return n == 0, nil
	})
}

// labelFor locates the <label> whose "for" attribute starts with prefix and
// whose text is exactly text.
func labelFor(prefix, text string) engine.Locator {
	return engine.ByXPath(fmt.Sprintf("//label[starts-with(@for,%s)][normalize-space(.)=%s]",
		engine.XPathLiteral(prefix), engine.XPathLiteral(text)))
}
