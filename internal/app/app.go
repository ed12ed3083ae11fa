package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"age-of-war/server/internal/ai"
	"age-of-war/server/internal/config"
	"age-of-war/server/internal/lobby"
	"age-of-war/server/internal/match"
	servernet "age-of-war/server/internal/net"
	"age-of-war/server/internal/net/datagram"
	"age-of-war/server/internal/net/intake"
	"age-of-war/server/internal/net/ws"
	"age-of-war/server/internal/observability"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/sim"
	"age-of-war/server/internal/store"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/telemetry/influx"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
	loggingSinks "age-of-war/server/logging/sinks"
)

type Config struct {
	Settings      config.Config
	Logger        *zerolog.Logger
	Observability observability.Config
	// Ready, when set, receives the bound HTTP address once serving.
	Ready func(addr string)
}

// NewLogger builds the process logger used outside the event router.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewRouter builds the gameplay event router from the logging settings.
func NewRouter(cfg config.LoggingConfig, logger zerolog.Logger) (*logging.Router, func(), error) {
	logConfig := logging.DefaultConfig()
	if len(cfg.Sinks) > 0 {
		logConfig.EnabledSinks = cfg.Sinks
	}
	logConfig.MinimumSeverity = logging.ParseSeverity(cfg.Level)
	for category, level := range cfg.Categories {
		logConfig.CategorySeverity[category] = logging.ParseSeverity(level)
	}
	logConfig.JSON.FilePath = cfg.JSONPath
	logConfig.GELF.Address = cfg.GELFAddr

	var (
		named   []logging.NamedSink
		closers []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	if logConfig.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)})
	}
	if logConfig.HasSink("json") {
		if logConfig.JSON.FilePath == "" {
			cleanup()
			return nil, nil, errors.New("json sink enabled without logging.jsonPath")
		}
		f, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open json sink: %w", err)
		}
		closers = append(closers, func() { f.Close() })
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, logConfig.JSON.FlushInterval)})
	}
	if logConfig.HasSink("gelf") {
		gelf, err := loggingSinks.NewGELF(logConfig.GELF)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		named = append(named, logging.NamedSink{Name: "gelf", Sink: gelf})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, named, logging.WithFallback(logger))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return router, cleanup, nil
}

// Run hosts one lobby until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	settings := cfg.Settings
	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = NewLogger(settings.Logging.Level, nil)
	}

	router, closeSinks, err := NewRouter(settings.Logging, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close logging router")
		}
	}()

	registry := logging.NewMetrics()
	metrics := telemetry.WrapMetrics(registry)
	if settings.OTel.Enabled {
		metrics = telemetry.Multi(metrics, telemetry.NewOTel(nil, func(err error) {
			logger.Warn().Err(err).Msg("otel instrument")
		}, attribute.String("service", settings.OTel.ServiceName)))
	}

	results, err := store.Open(store.Config{Driver: settings.Store.Driver, DSN: settings.Store.DSN, Logger: logger})
	switch {
	case errors.Is(err, store.ErrDisabled):
		logger.Info().Msg("result store disabled")
	case err != nil:
		return err
	default:
		defer results.Close()
	}

	var recorder *store.Recorder
	if results != nil {
		recorder = store.NewRecorder(results, 8, func(r world.Result, err error) {
			if err != nil {
				logger.Error().Err(err).Str("match", r.MatchID).Msg("failed to record result")
				return
			}
			logger.Info().Str("match", r.MatchID).Str("winner", r.WinnerID).Int("team", r.WinningTeam).Msg("result recorded")
		})
		defer recorder.Close()
	}

	var reporter *influx.Reporter
	if settings.Influx.Enabled {
		reporter = influx.New(influx.Config{
			URL:    settings.Influx.URL,
			Token:  settings.Influx.Token,
			Org:    settings.Influx.Org,
			Bucket: settings.Influx.Bucket,
		}, logger)
		defer reporter.Close()
	}

	slot := &match.Slot{}
	var udp *datagram.Server
	if settings.Server.DatagramAddr != "" {
		udp, err = datagram.Listen(settings.Server.DatagramAddr, slot, datagram.Config{Logger: logger, Metrics: metrics})
		if err != nil {
			return fmt.Errorf("datagram listen: %w", err)
		}
		go func() {
			if err := udp.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("datagram server failed")
			}
		}()
		logger.Info().Str("addr", udp.Addr().String()).Msg("datagram transport listening")
	}

	loopCfg := sim.DefaultLoopConfig()
	if settings.Server.FrameRate > 0 {
		loopCfg.FrameRate = settings.Server.FrameRate
	}
	intakeCfg := intake.DefaultConfig()
	intakeCfg.Rate = settings.Intake.RatePerSecond
	intakeCfg.Burst = settings.Intake.Burst

	template := match.Config{
		Profile:          replication.ParseProfile(settings.Sync.Profile),
		SnapshotInterval: settings.Sync.Interval,
		Loop:             loopCfg,
		Intake:           intakeCfg,
		Deps: sim.Deps{
			Logger:    logger,
			Publisher: router,
			Metrics:   metrics,
			Clock:     logging.SystemClock{},
			Brain:     ai.NewBrain(),
		},
	}
	if udp != nil {
		template.Datagram = udp.Addr().String()
	}

	var resultSink world.ResultSink
	if recorder != nil {
		resultSink = recorder
	}
	host := NewHost(ctx, HostConfig{
		Lobby:     lobby.Config{Name: settings.Server.LobbyName, Settings: settings.Match},
		Slot:      slot,
		Match:     template,
		Results:   resultSink,
		Store:     results,
		Publisher: router,
		Logger:    logger,
		OnMatch: func(m *match.Match) {
			if udp != nil {
				udp.Attach(m)
			}
			if reporter != nil {
				m.OnSnapshot(reporter.Record)
			}
		},
	})
	defer host.Close()

	observabilityCfg := cfg.Observability
	if settings.Server.Pprof {
		observabilityCfg.EnablePprofTrace = true
	}
	if raw := os.Getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprofTrace = value
		} else {
			logger.Warn().Str("value", raw).Err(err).Msg("invalid ENABLE_PPROF_TRACE")
		}
	}

	wsHandler := ws.NewHandler(host.Slot(), ws.HandlerConfig{Logger: logger})
	handler := servernet.NewHTTPHandler(host, servernet.HTTPHandlerConfig{
		Logger:        logger,
		Observability: observabilityCfg,
		Router:        router,
		Websocket:     wsHandler.Handle,
	})

	srv := &http.Server{Addr: settings.Server.Addr, Handler: handler}
	listener, err := net.Listen("tcp", settings.Server.Addr)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	logger.Info().Str("addr", listener.Addr().String()).Str("lobby", host.Lobby().ID).Msg("server listening")
	if cfg.Ready != nil {
		cfg.Ready(listener.Addr().String())
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(listener) }()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
		logger.Info().Interface("metrics", registry.Snapshot()).Msg("server stopped")
		return nil
	}
}
