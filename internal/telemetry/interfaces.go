// Package telemetry holds the narrow logging and metrics interfaces the
// server components depend on.
package telemetry

import (
	"log"

	"coffeemon-arena/server/logging"
)

// Logger exposes process-level text logging.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Metrics exposes counter updates.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the router metrics into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}

// Nop returns a Logger and Metrics that discard everything.
func Nop() (Logger, Metrics) {
	return LoggerFunc(nil), WrapMetrics(nil)
}

// Metric names shared across packages.
const (
	MetricBattlesStarted    = "battles_started_total"
	MetricBattlesFinished   = "battles_finished_total"
	MetricBattlesCancelled  = "battles_cancelled_total"
	MetricResolutions       = "battle_resolutions_total"
	MetricRejections        = "battle_rejections_total"
	MetricTimeouts          = "battle_timeouts_total"
	MetricQueueLength       = "matchmaking_queue_length"
	MetricPairings          = "matchmaking_pairings_total"
	MetricConnections       = "connections_active"
	MetricBroadcastBytes    = "broadcast_bytes_total"
	MetricBroadcastMessages = "broadcast_messages_total"
)
