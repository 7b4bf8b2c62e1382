package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/config"
	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/observability"
	"github.com/xkilldash9x/demoqa-e2e/internal/pages"
)

func newLocatorsCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "locators",
		Short: "Check that the web table controls the scenarios rely on are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkLocators(cmd.Context(), a.cfg, a.drivers, timeout, cmd.OutOrStdout(), observability.GetLogger())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for each locator")
	return cmd
}

func checkLocators(ctx context.Context, cfg config.Interface, drivers driverProvider, timeout time.Duration, out io.Writer, logger *zap.Logger) error {
	factory, shutdown, err := drivers.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = shutdown(sctx)
	}()

	drv, release, err := factory(ctx)
	if err != nil {
		return err
	}
	defer release()

	wc := cfg.Wait()
	eng, err := engine.New(drv, logger, engine.WaitPolicy{Timeout: wc.Timeout, PollInterval: wc.PollInterval, Retries: wc.Retries})
	if err != nil {
		return err
	}
	checks, err := pages.New(eng, cfg.Target().BaseURL, logger).WebTables.ValidateLocators(ctx, timeout)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	failed := 0
	for _, c := range checks {
		if !c.Found {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Status(), c.Name, c.Locator)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d locators not found", failed, len(checks))
	}
	return nil
}
