package config

import (
	"strings"
	"testing"
	"time"

	"coffeemon-arena/server/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.SubmissionTimeout != 60*time.Second || cfg.SelectionTimeout != 60*time.Second {
		t.Fatalf("unexpected turn timeouts %s / %s", cfg.SubmissionTimeout, cfg.SelectionTimeout)
	}
	if cfg.DisconnectGrace != 30*time.Second {
		t.Fatalf("expected 30s grace, got %s", cfg.DisconnectGrace)
	}
	if cfg.TimeoutPolicy != "skip" || !cfg.BotEnabled || cfg.RosterSize != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COFFEEMON_ADDR", ":9090")
	t.Setenv("COFFEEMON_SUBMISSION_TIMEOUT", "5s")
	t.Setenv("COFFEEMON_TIMEOUT_POLICY", "forfeit")
	t.Setenv("COFFEEMON_SEED", "fixed")
	t.Setenv("COFFEEMON_LOG_SINKS", "console,zerolog")
	t.Setenv("COFFEEMON_LOG_LEVEL", "debug")
	t.Setenv("COFFEEMON_BOT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.SubmissionTimeout != 5*time.Second || cfg.Seed != "fixed" || cfg.BotEnabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	logCfg := cfg.Logging()
	if !logCfg.HasSink("zerolog") || logCfg.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("unexpected logging config %+v", logCfg)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("COFFEEMON_DISCONNECT_GRACE", "soon")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "policy", mutate: func(c *Config) { c.TimeoutPolicy = "pause" }, want: "COFFEEMON_TIMEOUT_POLICY"},
		{name: "roster", mutate: func(c *Config) { c.RosterSize = 0 }, want: "COFFEEMON_ROSTER_SIZE"},
		{name: "sink", mutate: func(c *Config) { c.LogSinks = []string{"syslog"} }, want: "unknown sink"},
		{name: "json path", mutate: func(c *Config) { c.LogSinks = []string{"json"} }, want: "COFFEEMON_LOG_JSON_PATH"},
		{name: "grace", mutate: func(c *Config) { c.DisconnectGrace = -time.Second }, want: "COFFEEMON_DISCONNECT_GRACE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Config{TimeoutPolicy: "skip", RosterSize: 3, LogSinks: []string{"console"}}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}

	valid := Config{TimeoutPolicy: "forfeit", RosterSize: 1, LogSinks: []string{"json"}, LogJSONPath: "events.jsonl"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
