package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	server "coffeemon-arena/server"
	"coffeemon-arena/server/internal/config"
	"coffeemon-arena/server/internal/events"
	servernet "coffeemon-arena/server/internal/net"
	"coffeemon-arena/server/internal/observability"
	"coffeemon-arena/server/internal/roster"
	"coffeemon-arena/server/internal/session"
	"coffeemon-arena/server/internal/store/cache"
	"coffeemon-arena/server/internal/store/records"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
	loggingSinks "coffeemon-arena/server/logging/sinks"
)

const (
	serviceName     = "coffeemon-arena"
	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Settings config.Config
	Logger   telemetry.Logger
	// Listener overrides Settings.Addr when set.
	Listener net.Listener
}

// Run serves the battle server until ctx is cancelled, then drains live
// battles and flushes the logging router.
func Run(ctx context.Context, cfg Config) error {
	settings := cfg.Settings
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	shutdownTracing, err := observability.Setup(ctx, serviceName, settings.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to configure tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	router, err := newRouter(settings)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	catalog, err := roster.Default(settings.RosterSize)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	store := records.Store(records.Nop{})
	if settings.DBPath != "" {
		sqlite, err := records.Open(ctx, settings.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open battle records: %w", err)
		}
		defer sqlite.Close()
		store = sqlite
	}

	snapshots := cache.Store(cache.Nop{})
	if settings.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			telemetryLogger.Printf("redis at %s unavailable, continuing without snapshot cache: %v", settings.RedisAddr, err)
		} else {
			snapshots = cache.NewRedis(client, cache.Options{})
		}
	}

	hubCfg := server.DefaultHubConfig()
	hubCfg.SelectionTimeout = settings.SelectionTimeout
	hubCfg.SubmissionTimeout = settings.SubmissionTimeout
	hubCfg.DisconnectGrace = settings.DisconnectGrace
	hubCfg.TimeoutPolicy = session.TimeoutPolicy(settings.TimeoutPolicy)
	hubCfg.Seed = settings.Seed
	hubCfg.Language = events.ParseLanguage(settings.Language)
	hubCfg.BotEnabled = settings.BotEnabled
	hubCfg.BotDelay = settings.BotDelay
	hubCfg.DebugTelemetry = settings.DebugTelemetry
	hubCfg.Roster = catalog
	hubCfg.Records = store
	hubCfg.Cache = snapshots
	hubCfg.Logger = telemetryLogger
	hubCfg.Publisher = router
	hubCfg.Metrics = telemetry.WrapMetrics(router.Metrics())

	hub := server.NewHub(hubCfg)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:      telemetryLogger,
		Publisher:   router,
		Records:     store,
		RouterStats: router.Stats,
		Metrics:     router.Metrics().Snapshot,
	})

	listener := cfg.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", settings.Addr)
		if err != nil {
			hub.Close(context.Background())
			return fmt.Errorf("failed to listen on %s: %w", settings.Addr, err)
		}
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", listener.Addr())
		serveErr <- srv.Serve(listener)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hub.Close(shutdownCtx); err != nil {
		telemetryLogger.Printf("failed to close hub: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}
	<-hubDone
	telemetryLogger.Printf("server stopped")
	return runErr
}

func newRouter(settings config.Config) (*logging.Router, error) {
	logConfig := settings.Logging()
	var sinks []logging.NamedSink
	if logConfig.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logConfig.HasSink("zerolog") {
		sinks = append(sinks, logging.NamedSink{Name: "zerolog", Sink: loggingSinks.NewZerolog(os.Stdout)})
	}
	if logConfig.HasSink("json") {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %s: %w", logConfig.JSON.FilePath, err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
	}
	if logConfig.HasSink("memory") {
		sinks = append(sinks, logging.NamedSink{Name: "memory", Sink: loggingSinks.NewMemorySink()})
	}
	return logging.NewRouter(logging.ClockFunc(time.Now), logConfig, sinks)
}
