// Package cmd wires the command line interface of the suite.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/demoqa-e2e/internal/config"
	"github.com/xkilldash9x/demoqa-e2e/internal/observability"
)

// ErrRunFailed is returned by the run command when at least one scenario failed.
var ErrRunFailed = errors.New("one or more scenarios failed")

// deps are the pieces of the CLI that tests swap out.
type deps struct {
	drivers driverProvider
	stores  storeProvider
}

// app is the state shared by one command tree: its own viper instance and the
// configuration resolved before any subcommand runs.
type app struct {
	deps
	v       *viper.Viper
	cfgFile string
	headed  bool
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree backed by Chrome and PostgreSQL.
func NewRootCommand() *cobra.Command {
	return newRootCommand(deps{drivers: browserProvider{}, stores: pgStoreProvider{}})
}

func newRootCommand(d deps) *cobra.Command {
	a := &app{deps: d, v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:           "demoqa-e2e",
		Short:         "End-to-end UI scenarios for the demoqa practice site.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	pf.String("base-url", "", "base URL of the application under test")
	pf.BoolVar(&a.headed, "headed", false, "show the browser window")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	a.bind("target.base_url", pf.Lookup("base-url"))
	a.bind("logger.level", pf.Lookup("log-level"))

	rootCmd.AddCommand(
		newRunCmd(a),
		newListCmd(),
		newLocatorsCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// bind ties a flag to a configuration key. Binding only fails for a nil flag,
// which is a programming error.
func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag for %s: %v", key, err))
	}
}

// initialize reads the config file and environment, applies flag overrides,
// and sets up the global logger.
func (a *app) initialize() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("DEMOQA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	if a.headed {
		cfg.BrowserCfg.Headless = false
	}
	a.cfg = cfg

	observability.Initialize(cfg.Logger(), zapcore.Lock(os.Stderr))
	observability.GetLogger().Debug("Configuration loaded", zap.String("version", Version), zap.String("config_file", a.v.ConfigFileUsed()))
	return nil
}

// Execute runs the command tree under ctx. A cancelled context is reported as
// such so the caller can exit cleanly.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	defer observability.Sync()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		observability.GetLogger().Warn("Aborted by signal")
	case errors.Is(err, ErrRunFailed):
		// The report already shows what failed.
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
