// Package config loads scanner configuration from defaults, an optional
// config file, XSSLEECH_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrNoTargets is returned by Validate when neither a URL nor a URL list is configured.
var ErrNoTargets = errors.New("you must specify either -u for single URL or -l for URL list")

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "XSSLEECH"

// Config is the complete run configuration.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// ScanConfig covers target selection and crawl/test pacing.
type ScanConfig struct {
	URL         string  `mapstructure:"url" yaml:"url"`
	List        string  `mapstructure:"list" yaml:"list"`
	Payloads    string  `mapstructure:"payloads" yaml:"payloads"`
	Concurrency int     `mapstructure:"concurrency" yaml:"concurrency"`
	Delay       float64 `mapstructure:"delay" yaml:"delay"`
	Retries     int     `mapstructure:"retries" yaml:"retries"`
	Depth       int     `mapstructure:"depth" yaml:"depth"`
	MaxPages    int     `mapstructure:"max_pages" yaml:"max_pages"`
	VerifyDelay float64 `mapstructure:"verify_delay" yaml:"verify_delay"`
	StartDelay  float64 `mapstructure:"start_delay" yaml:"start_delay"`
	BatchSize   int     `mapstructure:"batch_size" yaml:"batch_size"`
	Tamper      string  `mapstructure:"tamper" yaml:"tamper"`
}

// NetworkConfig configures the HTTP transport.
type NetworkConfig struct {
	Timeout     float64 `mapstructure:"timeout" yaml:"timeout"`
	Proxy       string  `mapstructure:"proxy" yaml:"proxy"`
	RateLimit   float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RandomAgent bool    `mapstructure:"random_agent" yaml:"random_agent"`
	UserAgent   string  `mapstructure:"user_agent" yaml:"user_agent"`
}

// OutputConfig configures where findings go.
type OutputConfig struct {
	File     string `mapstructure:"file" yaml:"file"`
	Format   string `mapstructure:"format" yaml:"format"`
	Database string `mapstructure:"database" yaml:"database"`
}

// LoggerConfig configures console and file logging.
type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	NoColor    bool   `mapstructure:"no_color" yaml:"no_color"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scan.url", "")
	v.SetDefault("scan.list", "")
	v.SetDefault("scan.payloads", "")
	v.SetDefault("scan.concurrency", 15)
	v.SetDefault("scan.delay", 1.0)
	v.SetDefault("scan.retries", 1)
	v.SetDefault("scan.depth", 0)
	v.SetDefault("scan.max_pages", 20)
	v.SetDefault("scan.verify_delay", 3.0)
	v.SetDefault("scan.start_delay", 3.0)
	v.SetDefault("scan.batch_size", 100)
	v.SetDefault("scan.tamper", "")

	v.SetDefault("network.timeout", 15.0)
	v.SetDefault("network.proxy", "")
	v.SetDefault("network.rate_limit", 0.0)
	v.SetDefault("network.random_agent", false)
	v.SetDefault("network.user_agent", "")

	v.SetDefault("output.file", "")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.database", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.no_color", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"url":          "scan.url",
	"list":         "scan.list",
	"payloads":     "scan.payloads",
	"concurrency":  "scan.concurrency",
	"delay":        "scan.delay",
	"retries":      "scan.retries",
	"depth":        "scan.depth",
	"max-pages":    "scan.max_pages",
	"verify-delay": "scan.verify_delay",
	"start-delay":  "scan.start_delay",
	"tamper":       "scan.tamper",
	"timeout":      "network.timeout",
	"proxy":        "network.proxy",
	"rate-limit":   "network.rate_limit",
	"random-agent": "network.random_agent",
	"user-agent":   "network.user_agent",
	"output":       "output.file",
	"format":       "output.format",
	"db":           "output.database",
	"log-level":    "logger.level",
	"log-file":     "logger.log_file",
	"no-color":     "logger.no_color",
}

// Load builds a Config. Precedence, lowest first: defaults, config file,
// environment, flags that were explicitly set. cfgFile may be empty, in which
// case ./xssleech.yaml is used when present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config: expand %q: %w", cfgFile, err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("xssleech")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return &cfg
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Scan.List, &c.Scan.Payloads, &c.Output.File, &c.Output.Database, &c.Logger.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks that the configuration can drive a scan.
func (c *Config) Validate() error {
	if c.Scan.URL == "" && c.Scan.List == "" {
		return ErrNoTargets
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Scan.Concurrency)
	}
	if c.Scan.MaxPages < 1 {
		return fmt.Errorf("max-pages must be at least 1, got %d", c.Scan.MaxPages)
	}
	if c.Scan.Retries < 0 || c.Scan.Depth < 0 {
		return fmt.Errorf("retries and depth must not be negative")
	}
	if c.Scan.Delay < 0 || c.Scan.VerifyDelay < 0 || c.Scan.StartDelay < 0 || c.Network.Timeout < 0 {
		return fmt.Errorf("delays and timeout must not be negative")
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported output format: %q", c.Output.Format)
	}
	return nil
}

// Seconds converts a fractional number of seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
