package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/config"
	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/observability"
	"github.com/xkilldash9x/demoqa-e2e/internal/reporting"
	"github.com/xkilldash9x/demoqa-e2e/internal/scenario"
)

// shutdownTimeout bounds how long the browser gets to close after a run.
const shutdownTimeout = 30 * time.Second

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios against the target application",
		Long: `Run the named scenarios, or all of them when none are given.
Each scenario gets its own browser session. The command exits non-zero when
any scenario fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := a.cfg.Run()
			if len(args) > 0 {
				rc.Scenarios = args
			}
			a.cfg.SetRunConfig(rc)
			return runSuite(cmd.Context(), a.cfg, a.deps, cmd.OutOrStdout(), observability.GetLogger())
		},
	}

	f := cmd.Flags()
	f.StringSlice("tags", nil, "only run scenarios with any of these tags")
	f.Int("concurrency", 0, "number of scenarios run at once")
	f.Bool("fail-fast", false, "skip remaining scenarios after the first failure")
	f.StringP("format", "f", "", "report format (text, json, junit)")
	f.StringP("output", "o", "", "report file (default stdout)")
	f.Int64("seed", 0, "seed for random test data (0 picks one)")
	f.String("upload-dir", "", "directory for generated upload files")
	a.bind("run.tags", f.Lookup("tags"))
	a.bind("run.concurrency", f.Lookup("concurrency"))
	a.bind("run.fail_fast", f.Lookup("fail-fast"))
	a.bind("run.report_format", f.Lookup("format"))
	a.bind("run.report_path", f.Lookup("output"))
	a.bind("run.seed", f.Lookup("seed"))
	a.bind("run.upload_dir", f.Lookup("upload-dir"))
	return cmd
}

// runSuite selects scenarios, runs them, writes the report and, when a
// database is configured, stores the results.
func runSuite(ctx context.Context, cfg config.Interface, d deps, out io.Writer, logger *zap.Logger) error {
	rc := cfg.Run()
	scenarios, err := scenario.Select(scenario.Registry(), rc.Scenarios, rc.Tags)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios match tags %s", strings.Join(rc.Tags, ","))
	}

	// Open the reporter first so a bad output path fails before the browser starts.
	rep, err := reporting.New(strings.ToLower(rc.ReportFormat), rc.ReportPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := rep.Close(); err != nil {
			logger.Error("Failed to close reporter", zap.Error(err))
		}
	}()

	factory, shutdown, err := d.drivers.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("Browser shutdown reported an error", zap.Error(err))
		}
	}()

	wc := cfg.Wait()
	runner, err := scenario.NewRunner(factory, scenario.Options{
		BaseURL: cfg.Target().BaseURL,
		Policy: engine.WaitPolicy{
			Timeout:      wc.Timeout,
			PollInterval: wc.PollInterval,
			Retries:      wc.Retries,
		},
		Concurrency: rc.Concurrency,
		FailFast:    rc.FailFast,
		Seed:        rc.Seed,
		UploadDir:   rc.UploadDir,
	}, logger)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx, scenarios)
	if err := rep.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.Database().URL != "" {
		saveReport(ctx, cfg, d.stores, report, logger)
	}
	if runErr != nil {
		if report.Failed() {
			return errors.Join(ErrRunFailed, runErr)
		}
		return runErr
	}

	s := report.Summary()
	if rc.ReportPath != "" {
		fmt.Fprintf(out, "Run %s: %d passed, %d failed, %d skipped (seed %d). Report written to %s\n",
			report.RunID, s.Passed, s.Failed, s.Skipped, report.Seed, rc.ReportPath)
	}
	if report.Failed() {
		return ErrRunFailed
	}
	return nil
}

// saveReport stores report. Persistence is best effort and never fails the run.
func saveReport(ctx context.Context, cfg config.Interface, stores storeProvider, report *reporting.Report, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	st, closeStore, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Could not connect to the results database", zap.Error(err))
		return
	}
	defer closeStore()
	if err := st.SaveRun(ctx, report); err != nil {
		logger.Error("Could not store run results", zap.Error(err), zap.String("run_id", report.RunID))
	}
}
