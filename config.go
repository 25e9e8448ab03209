package caderidflux

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dialect selects the stage ordering emitted by the query builder.
//
// Current ordering emits the final pivot after the targeted filters; the
// legacy ordering pivots first, which some older server deployments expect.
type Dialect string

const (
	// DialectCurrent is the default stage ordering.
	DialectCurrent Dialect = "current"

	// DialectLegacy emits the final pivot before targeted filters.
	DialectLegacy Dialect = "legacy"
)

// Config defines connection settings for an InfluxDB 2.x instance.
type Config struct {
	// IP is the host or base URL of the database, e.g. "http://localhost".
	IP string `yaml:"ip"`

	// Port is the port the database listens on. May be empty when IP
	// already carries the full URL.
	Port string `yaml:"port"`

	// Token is the authorisation token.
	Token string `yaml:"token"`

	// Organisation is the organisation the token belongs to.
	Organisation string `yaml:"organisation"`

	// Timeout bounds each HTTP request. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`

	// Dialect selects the query stage ordering. Empty means current.
	Dialect Dialect `yaml:"dialect"`

	// Retry configures executor-level retry of transient failures.
	Retry RetryConfig `yaml:"retry"`

	// Logger receives chunk progress events. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults for a local
// instance. Token and organisation must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		IP:      "http://localhost",
		Port:    "8086",
		Timeout: 30 * time.Second,
		Dialect: DialectCurrent,
		Retry:   DefaultRetryConfig(),
	}
}

// LoadConfig reads a YAML configuration file, applying defaults for any
// setting the file omits.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// URL joins IP and port into the base URL for API requests.
func (c Config) URL() string {
	if c.Port != "" {
		return c.IP + ":" + c.Port
	}
	return c.IP
}

// Validate checks that the configuration can reach a database at all.
func (c Config) Validate() error {
	if c.IP == "" {
		return fmt.Errorf("config: ip is required")
	}
	switch c.Dialect {
	case "", DialectCurrent, DialectLegacy:
	default:
		return fmt.Errorf("config: unknown dialect %q", c.Dialect)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
