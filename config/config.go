package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultTokens is the tracked token set used when none is configured.
var DefaultTokens = []string{
	"SOL", "JUP", "BONK", "POPCAT", "WIF", "JITO", "ORCA", "TENSOR",
	"PYTH", "MSOL", "BOME", "W", "CROWN", "RLB", "HADES",
	"SAMO", "GUAC", "FORGE", "USDC",
}

type Config struct {
	Jupiter   JupiterConfig   `mapstructure:"jupiter"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

type JupiterConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SamplerConfig struct {
	Tokens         []string      `mapstructure:"tokens"`
	Interval       time.Duration `mapstructure:"interval"`        // delay between sampling cycles
	RetryDelay     time.Duration `mapstructure:"retry_delay"`     // delay after a failed cycle
	AlertThreshold float64       `mapstructure:"alert_threshold"` // |24h change| in percent that raises an alert
	TopN           int           `mapstructure:"top_n"`           // size of the gainers/losers lists
}

type StoreConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

type AnalyticsConfig struct {
	Window time.Duration `mapstructure:"window"`
}

type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jupiter.base_url", "https://price.jup.ag")
	v.SetDefault("jupiter.timeout", 10*time.Second)

	v.SetDefault("sampler.tokens", DefaultTokens)
	v.SetDefault("sampler.interval", 30*time.Second)
	v.SetDefault("sampler.retry_delay", 5*time.Second)
	v.SetDefault("sampler.alert_threshold", 3.0)
	v.SetDefault("sampler.top_n", 3)

	v.SetDefault("store.path", "data/token_history.json")
	v.SetDefault("store.retention", 24*time.Hour)
	v.SetDefault("analytics.window", 24*time.Hour)

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "logs/market_analysis.log")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
}

// Load loads application configuration using Viper.
// It reads config.yaml from $TOKENWATCH_CONFIG_DIR or the usual relative
// locations, then overrides with environment variables. A missing file is not an error.
func Load() (*Config, error) {
	paths := []string{"./config", "../config", "../../config"}
	if dir := os.Getenv("TOKENWATCH_CONFIG_DIR"); dir != "" {
		paths = append([]string{dir}, paths...)
	}
	if ex, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(ex), "../config"))
	}
	return LoadFrom(paths...)
}

// LoadFrom is Load with explicit config search paths.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	// Support environment variables with dot notation (e.g., STORE_PATH)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the sampling loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case len(c.Sampler.Tokens) == 0:
		return errors.New("config: sampler.tokens must not be empty")
	case c.Sampler.Interval <= 0:
		return errors.New("config: sampler.interval must be positive")
	case c.Store.Path == "":
		return errors.New("config: store.path must be set")
	case c.Store.Retention <= 0:
		return errors.New("config: store.retention must be positive")
	}
	return nil
}
