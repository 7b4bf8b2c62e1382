package pages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// LocatorCheck is the outcome of probing one locator on a live page.
type LocatorCheck struct {
	Name    string
	Locator engine.Locator
	Found   bool
}

// Status renders the check as PASS or FAIL.
func (c LocatorCheck) Status() string {
	if c.Found {
		return "PASS"
	}
	return "FAIL"
}

var tableLocatorChecks = []struct {
	name string
	loc  engine.Locator
}{
	{"Add Button", tablesAdd},
	{"Edit Buttons", engine.ByCSS("span[id^='edit-record-']")},
	{"Delete Buttons", engine.ByCSS("span[id^='delete-record-']")},
}

// ValidateLocators opens the table directly and checks that the controls the
// flows depend on are present. A missing control is a FAIL entry, not an error;
// errors mean the page itself could not be loaded.
func (p *WebTablesPage) ValidateLocators(ctx context.Context, timeout time.Duration) ([]LocatorCheck, error) {
	if err := p.open(ctx, webTablesPath); err != nil {
		return nil, err
	}
	checks := make([]LocatorCheck, 0, len(tableLocatorChecks))
	for _, c := range tableLocatorChecks {
		found := p.eng.IsPresent(ctx, c.loc, timeout)
		p.logger.Info("Locator check.", zap.String("name", c.name), zap.Stringer("locator", c.loc), zap.Bool("found", found))
		checks = append(checks, LocatorCheck{Name: c.name, Locator: c.loc, Found: found})
	}
	return checks, nil
}
