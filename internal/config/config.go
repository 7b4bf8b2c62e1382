// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface exposes read access to every configuration section. Components take
// the interface so tests can hand them a Config built in memory.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Wait() WaitConfig
	Target() TargetConfig
	Run() RunConfig
	Database() DatabaseConfig

	SetRunConfig(rc RunConfig)
}

// Config is the root of the application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	WaitCfg     WaitConfig     `mapstructure:"wait" yaml:"wait"`
	TargetCfg   TargetConfig   `mapstructure:"target" yaml:"target"`
	RunCfg      RunConfig      `mapstructure:"run" yaml:"run"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Wait() WaitConfig         { return c.WaitCfg }
func (c *Config) Target() TargetConfig     { return c.TargetCfg }
func (c *Config) Run() RunConfig           { return c.RunCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetRunConfig(rc RunConfig) { c.RunCfg = rc }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how Chrome is launched.
type BrowserConfig struct {
	Headless        bool   `mapstructure:"headless" yaml:"headless"`
	ExecPath        string `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool   `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool   `mapstructure:"debug" yaml:"debug"`
	// Concurrency caps the number of tabs open at once.
	Concurrency   int           `mapstructure:"concurrency" yaml:"concurrency"`
	Args          []string      `mapstructure:"args" yaml:"args"`
	WindowWidth   int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight  int           `mapstructure:"window_height" yaml:"window_height"`
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// WaitConfig is the default wait policy of every engine.
type WaitConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Retries      int           `mapstructure:"retries" yaml:"retries"`
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// RunConfig gets its marching orders mostly from CLI flags.
type RunConfig struct {
	Scenarios    []string `mapstructure:"scenarios" yaml:"scenarios"`
	Tags         []string `mapstructure:"tags" yaml:"tags"`
	Concurrency  int      `mapstructure:"concurrency" yaml:"concurrency"`
	FailFast     bool     `mapstructure:"fail_fast" yaml:"fail_fast"`
	ReportFormat string   `mapstructure:"report_format" yaml:"report_format"`
	ReportPath   string   `mapstructure:"report_path" yaml:"report_path"`
	UploadDir    string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	// Seed drives random test data. Zero picks a fresh seed per run.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// DatabaseConfig holds the database connection details. An empty URL disables
// result persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ReportFormats lists the accepted values of run.report_format.
var ReportFormats = []string{"text", "json", "junit"}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "demoqa-e2e")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 2)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.args", []string{"start-maximized", "disable-infobars", "disable-extensions"})
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.launch_timeout", "45s")

	// -- Wait --
	v.SetDefault("wait.timeout", "10s")
	v.SetDefault("wait.poll_interval", "500ms")
	v.SetDefault("wait.retries", 3)

	// -- Target --
	v.SetDefault("target.base_url", "https://demoqa.com")
	v.SetDefault("target.navigation_timeout", "60s")

	// -- Run --
	v.SetDefault("run.scenarios", []string{})
	v.SetDefault("run.tags", []string{})
	v.SetDefault("run.concurrency", 1)
	v.SetDefault("run.fail_fast", false)
	v.SetDefault("run.report_format", "text")
	v.SetDefault("run.report_path", "")
	v.SetDefault("run.upload_dir", "")
	v.SetDefault("run.seed", 0)

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper unmarshals, expands and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.url", "DEMOQA_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("error expanding paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path-valued setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.ExecPath,
		&c.RunCfg.ReportPath,
		&c.RunCfg.UploadDir,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.RunCfg.Concurrency <= 0 {
		return fmt.Errorf("run.concurrency must be a positive integer")
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if err := c.TargetCfg.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	format := strings.ToLower(c.RunCfg.ReportFormat)
	if !slices.Contains(ReportFormats, format) {
		return fmt.Errorf("run.report_format must be one of %s, got %q", strings.Join(ReportFormats, ", "), c.RunCfg.ReportFormat)
	}
	return nil
}

// Validate checks the wait policy.
func (w *WaitConfig) Validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("wait.timeout must be positive")
	}
	if w.PollInterval <= 0 || w.PollInterval > w.Timeout {
		return fmt.Errorf("wait.poll_interval must be positive and no longer than wait.timeout")
	}
	if w.Retries <= 0 {
		return fmt.Errorf("wait.retries must be a positive integer")
	}
	return nil
}

// Validate checks the target application settings.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("target.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target.base_url must use http or https, got %q", t.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("target.base_url must include a host")
	}
	if t.NavigationTimeout <= 0 {
		return fmt.Errorf("target.navigation_timeout must be positive")
	}
	return nil
}
