package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

const progressBarPath = "/progress-bar"

const (
	// progressPollInterval is how often WaitForValue samples the bar.
	progressPollInterval = 100 * time.Millisecond
	progressTimeout      = 30 * time.Second
)

var (
	progressMenuItem  = engine.ByXPath("//span[text()='Progress Bar']")
	progressStartStop = engine.ByID("startStopButton")
	progressReset     = engine.ByID("resetButton")
	progressBar       = engine.ByCSS(".progress-bar")
)

// ProgressBarPage drives the timed progress bar.
type ProgressBarPage struct {
	base
}

func (p *ProgressBarPage) Open(ctx context.Context) error {
	if err := p.open(ctx, progressBarPath); err != nil {
		return err
	}
	if err := p.eng.Click(ctx, progressMenuItem); err != nil {
		return fmt.Errorf("opening progress bar: %w", err)
	}
	return nil
}

// Start toggles the bar into its running state.
func (p *ProgressBarPage) Start(ctx context.Context) error {
	if err := p.eng.Click(ctx, progressStartStop); err != nil {
		return fmt.Errorf("starting progress bar: %w", err)
	}
	p.logger.Info("Clicked Start/Stop button.")
	return nil
}

// Value returns the bar's current percentage.
func (p *ProgressBarPage) Value(ctx context.Context) (int, error) {
	raw, err := p.eng.Attribute(ctx, progressBar, "aria-valuenow")
	if err != nil {
		return 0, fmt.Errorf("reading progress: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing progress %q: %w", raw, err)
	}
	return v, nil
}

// WaitForValue polls the running bar and stops it once it reaches target-1.
// Stopping one short absorbs the tick that can land between the last sample
// and the stop click, so the bar never overshoots target. It returns the value
// the bar settled at.
func (p *ProgressBarPage) WaitForValue(ctx context.Context, target int) (int, error) {
	var last int
	err := p.eng.Wait(ctx, fmt.Sprintf("progress to reach %d%%", target-1), func(ctx context.Context) (bool, error) {
		v, err := p.Value(ctx)
		if err != nil {
			return false, err
		}
		last = v
		return v >= target-1, nil
	}, engine.WithPollInterval(progressPollInterval), engine.WithTimeout(progressTimeout))
	if err != nil {
		return last, err
	}
	if err := p.eng.Click(ctx, progressStartStop); err != nil {
		return last, fmt.Errorf("stopping progress bar: %w", err)
	}

	settled, err := p.Value(ctx)
	if err != nil {
		return last, err
	}
	p.logger.Info("Stopped progress bar.", zap.Int("target", target), zap.Int("value", settled))
	return settled, nil
}

// Reset returns the bar to its idle state. A bar that completed offers a reset
// button; otherwise the start/stop toggle is used.
func (p *ProgressBarPage) Reset(ctx context.Context) error {
	n, err := p.eng.Count(ctx, progressReset)
	if err != nil {
		return err
	}
	target := progressStartStop
	if n > 0 {
		target = progressReset
	}
	if err := p.eng.Click(ctx, target); err != nil {
		return fmt.Errorf("resetting progress bar: %w", err)
	}
	p.logger.Info("Reset progress bar.")
	return nil
}
