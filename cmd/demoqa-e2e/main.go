package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/demoqa-e2e/cmd"
)

// osExit is swapped in tests.
var osExit = os.Exit

func main() {
	// Cancel scenarios on SIGINT or SIGTERM so sessions are released and the
	// browser is shut down before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := exitCode(cmd.Execute(ctx)); code != 0 {
		stop()
		osExit(code)
	}
}

// exitInterrupted is the status of a run cut short by a signal, following the
// shell convention for SIGINT.
const exitInterrupted = 130

// exitCode maps the command result to the process status: 0 on success, 1 when
// scenarios failed (even if the run was then interrupted), 130 for an
// interrupted run and 2 for any other error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cmd.ErrRunFailed):
		return 1
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return 2
	}
}
