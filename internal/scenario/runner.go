package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
	"github.com/xkilldash9x/demoqa-e2e/internal/pages"
	"github.com/xkilldash9x/demoqa-e2e/internal/reporting"
)

// DriverFactory acquires a fresh browser session for one scenario. release
// must be called exactly once when the scenario is done with it.
type DriverFactory func(ctx context.Context) (drv engine.Driver, release func(), err error)

// Options tune a Runner.
type Options struct {
	BaseURL     string
	Policy      engine.WaitPolicy
	Concurrency int
	FailFast    bool
	// Seed drives random test data. Zero picks a fresh one.
	Seed      int64
	UploadDir string
	// ScenarioTimeout bounds one scenario, session acquisition included.
	ScenarioTimeout time.Duration
}

const defaultScenarioTimeout = 5 * time.Minute

// Runner executes scenarios, each on its own session.
type Runner struct {
	factory DriverFactory
	opts    Options
	logger  *zap.Logger
}

// NewRunner validates its dependencies and returns a Runner.
func NewRunner(factory DriverFactory, opts Options, logger *zap.Logger) (*Runner, error) {
	if factory == nil {
		return nil, errors.New("driver factory cannot be nil")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ScenarioTimeout <= 0 {
		opts.ScenarioTimeout = defaultScenarioTimeout
	}
	return &Runner{
		factory: factory,
		opts:    opts,
		logger:  logger.With(zap.String("component", "scenario_runner")),
	}, nil
}

// Run executes scenarios and reports every one of them, in input order.
// Scenario failures are results, not errors; the returned error is only set
// when ctx ended before the run finished.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*reporting.Report, error) {
	data := fixtures.NewGenerator(r.opts.Seed)
	report := &reporting.Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Seed:      data.Seed(),
		Results:   make([]reporting.Result, len(scenarios)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Starting run",
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", r.opts.Concurrency),
		zap.Int64("seed", report.Seed),
	)

	var failed atomic.Bool
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, sc := range scenarios {
		g.Go(func() error {
			switch {
			case ctx.Err() != nil:
				report.Results[i] = skipped(sc, "run cancelled")
			case r.opts.FailFast && failed.Load():
				report.Results[i] = skipped(sc, "skipped after an earlier failure")
			default:
				report.Results[i] = r.runScenario(ctx, sc, data, logger)
				if report.Results[i].Status == reporting.StatusFailed {
					failed.Store(true)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = time.Now()
	s := report.Summary()
	logger.Info("Run finished",
		zap.Int("passed", s.Passed),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Duration("duration", report.Duration()),
	)
	return report, ctx.Err()
}

func skipped(sc Scenario, reason string) reporting.Result {
	steps := make([]reporting.StepResult, len(sc.Steps))
	for i, st := range sc.Steps {
		steps[i] = reporting.StepResult{Name: st.Name, Status: reporting.StatusSkipped}
	}
	return reporting.Result{Scenario: sc.Name, Tags: sc.Tags, Status: reporting.StatusSkipped, Steps: steps, Error: reason}
}

// runScenario acquires a session, runs the steps in order until one fails and
// always releases the session.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, data *fixtures.Generator, logger *zap.Logger) (res reporting.Result) {
	logger = logger.With(zap.String("scenario", sc.Name))
	start := time.Now()
	res = skipped(sc, "")
	res.Error = ""
	defer func() { res.Duration = time.Since(start) }()

	ctx, cancel := context.WithTimeout(ctx, r.opts.ScenarioTimeout)
	defer cancel()

	drv, release, err := r.factory(ctx)
	if err != nil {
		logger.Error("Failed to acquire a browser session", zap.Error(err))
		res.Status, res.Error = reporting.StatusFailed, fmt.Sprintf("acquiring session: %v", err)
		return res
	}
	defer release()

	eng, err := engine.New(drv, logger, r.opts.Policy)
	if err != nil {
		res.Status, res.Error = reporting.StatusFailed, err.Error()
		return res
	}
	env := &Env{
		Engine:    eng,
		Pages:     pages.New(eng, r.opts.BaseURL, logger),
		Data:      data,
		UploadDir: r.opts.UploadDir,
		Logger:    logger,
	}
	defer env.close()

	logger.Info("Scenario started")
	res.Status = reporting.StatusPassed
	for i, st := range sc.Steps {
		stepStart := time.Now()
		err := runStep(ctx, st, env)
		res.Steps[i].Duration = time.Since(stepStart)
		if err != nil {
			res.Steps[i].Status, res.Steps[i].Error = reporting.StatusFailed, err.Error()
			res.Status, res.Error = reporting.StatusFailed, fmt.Sprintf("%s: %v", st.Name, err)
			logger.Error("Step failed", zap.String("step", st.Name), zap.Error(err))
			return res
		}
		res.Steps[i].Status = reporting.StatusPassed
		logger.Debug("Step passed", zap.String("step", st.Name), zap.Duration("duration", res.Steps[i].Duration))
	}
	logger.Info("Scenario passed", zap.Duration("duration", time.Since(start)))
	return res
}

// runStep turns a panicking step into a failed one so teardown still runs.
func runStep(ctx context.Context, st Step, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			env.Logger.Error("Step panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return st.Run(ctx, env)
}
