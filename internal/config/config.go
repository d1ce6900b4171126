// Package config loads server settings from COFFEEMON_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"coffeemon-arena/server/internal/session"
	"coffeemon-arena/server/logging"
)

type Config struct {
	Addr string `env:"COFFEEMON_ADDR" envDefault:":8080"`

	SubmissionTimeout time.Duration `env:"COFFEEMON_SUBMISSION_TIMEOUT" envDefault:"60s"`
	SelectionTimeout  time.Duration `env:"COFFEEMON_SELECTION_TIMEOUT" envDefault:"60s"`
	DisconnectGrace   time.Duration `env:"COFFEEMON_DISCONNECT_GRACE" envDefault:"30s"`
	TimeoutPolicy     string        `env:"COFFEEMON_TIMEOUT_POLICY" envDefault:"skip"`

	// Seed fixes every battle's RNG when set.
	Seed     string `env:"COFFEEMON_SEED"`
	Language string `env:"COFFEEMON_LANGUAGE" envDefault:"en-US"`

	RedisAddr string `env:"COFFEEMON_REDIS_ADDR"`
	DBPath    string `env:"COFFEEMON_DB_PATH"`

	LogSinks    []string `env:"COFFEEMON_LOG_SINKS" envDefault:"console" envSeparator:","`
	LogLevel    string   `env:"COFFEEMON_LOG_LEVEL" envDefault:"info"`
	LogJSONPath string   `env:"COFFEEMON_LOG_JSON_PATH"`

	OTelEndpoint string `env:"COFFEEMON_OTEL_ENDPOINT"`

	BotEnabled     bool          `env:"COFFEEMON_BOT_ENABLED" envDefault:"true"`
	BotDelay       time.Duration `env:"COFFEEMON_BOT_DELAY" envDefault:"500ms"`
	RosterSize     int           `env:"COFFEEMON_ROSTER_SIZE" envDefault:"3"`
	DebugTelemetry bool          `env:"COFFEEMON_DEBUG_TELEMETRY"`
}

var knownSinks = []string{"console", "json", "zerolog", "memory"}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.SubmissionTimeout < 0 {
		errs = append(errs, fmt.Errorf("COFFEEMON_SUBMISSION_TIMEOUT must not be negative, got %s", c.SubmissionTimeout))
	}
	if c.SelectionTimeout < 0 {
		errs = append(errs, fmt.Errorf("COFFEEMON_SELECTION_TIMEOUT must not be negative, got %s", c.SelectionTimeout))
	}
	if c.DisconnectGrace < 0 {
		errs = append(errs, fmt.Errorf("COFFEEMON_DISCONNECT_GRACE must not be negative, got %s", c.DisconnectGrace))
	}
	switch session.TimeoutPolicy(c.TimeoutPolicy) {
	case session.PolicySkip, session.PolicyForfeit:
	default:
		errs = append(errs, fmt.Errorf("COFFEEMON_TIMEOUT_POLICY must be skip or forfeit, got %q", c.TimeoutPolicy))
	}
	if c.RosterSize < 1 {
		errs = append(errs, fmt.Errorf("COFFEEMON_ROSTER_SIZE must be positive, got %d", c.RosterSize))
	}
	for _, sink := range c.LogSinks {
		if !known(sink) {
			errs = append(errs, fmt.Errorf("COFFEEMON_LOG_SINKS: unknown sink %q", sink))
		}
	}
	if c.Logging().HasSink("json") && c.LogJSONPath == "" {
		errs = append(errs, errors.New("COFFEEMON_LOG_JSON_PATH is required when the json sink is enabled"))
	}
	return errors.Join(errs...)
}

func known(sink string) bool {
	for _, name := range knownSinks {
		if strings.EqualFold(strings.TrimSpace(sink), name) {
			return true
		}
	}
	return false
}

// Logging maps the log settings onto the router configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if len(c.LogSinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	}
	cfg.MinimumSeverity = logging.ParseSeverity(c.LogLevel)
	cfg.JSON.FilePath = c.LogJSONPath
	return cfg
}
