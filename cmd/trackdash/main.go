package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/seatrace/trackdash/internal/config"
	"github.com/seatrace/trackdash/internal/crossfilter"
	"github.com/seatrace/trackdash/internal/dispatcher"
	"github.com/seatrace/trackdash/internal/influx"
	"github.com/seatrace/trackdash/internal/logging"
	"github.com/seatrace/trackdash/internal/monitor"
	intOtel "github.com/seatrace/trackdash/internal/otel"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/internal/render"
	"github.com/seatrace/trackdash/internal/server"
	"github.com/seatrace/trackdash/internal/session"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"

	AppName = "trackdash"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZeroLogger feeds the dispatcher, storage and InfluxDB writers
	ZeroLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	graylogSink *logging.GraylogSink

	SessionStartTime = time.Now()

	registry *session.Registry
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "import" {
		os.Exit(runImport(args[1:]))
	}
	os.Exit(run(args))
}

// setup loads the config and initializes logging and OTel.
func setup(ctx context.Context, configDir string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(configDir); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	level := config.GetString("logLevel")

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(ctx, intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var sinks []slog.Handler
	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		graylogSink, err = logging.NewGraylogSink(graylogCfg.Address, level)
		if err != nil {
			Logger.Error("Failed to connect Graylog sink", "error", err, "address", graylogCfg.Address)
		} else {
			sinks = append(sinks, graylogSink.Handler())
		}
	}

	SlogManager.SetContextProvider(func() []slog.Attr {
		if registry == nil {
			return nil
		}
		return []slog.Attr{slog.Int("sessions", registry.Len())}
	})

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(LogFile, level, otelLogProvider, sinks...)
	Logger = SlogManager.Logger()
	ZeroLogger = logging.NewZerolog(LogFile, level)

	Logger.Info("Logging to file", "path", LogFilePath, "version", Version, "buildDate", BuildDate)
	return nil
}

// shutdown flushes and closes every log sink.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if graylogSink != nil {
		_ = graylogSink.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

func run(args []string) int {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setup(ctx, *configDir); err != nil {
		fmt.Fprintln(os.Stderr, "trackdash:", err)
		return 1
	}
	defer shutdown()

	ds, err := loadDatasets(ctx)
	if err != nil {
		Logger.Error("Failed to load datasets", "error", err)
		return 1
	}

	pbCfg := config.GetPlaybackConfig()
	engine := playback.NewEngine(ds.Tracks, playback.Config{DriftStep: pbCfg.DriftStep}, Logger)
	vessels := ds.Tracks.VesselIDs()
	serverCfg := config.GetServerConfig()
	registry = session.NewRegistry(engine, session.Defaults{
		Vessels:     vessels[:1],
		Speed:       pbCfg.DefaultSpeed,
		IdleTimeout: serverCfg.SessionIdleTimeout,
		MaxSessions: serverCfg.MaxSessions,
	}, Logger)
	xf := crossfilter.NewEngine(ds.Attributes, Logger)

	influxManager := influx.NewManager(config.GetInfluxConfig(), ZeroLogger)
	defer influxManager.Close()
	var telemetry server.Telemetry
	if err := influxManager.Connect(ctx); err == nil {
		telemetry = influxManager
	} else if !errors.Is(err, influx.ErrDisabled) {
		Logger.Warn("InfluxDB telemetry unavailable", "error", err)
	}

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(ZeroLogger))
	if err != nil {
		Logger.Error("Failed to create dispatcher", "error", err)
		return 1
	}

	commands := &server.Commands{
		Registry:    registry,
		CrossFilter: xf,
		Telemetry:   telemetry,
		MinSpeed:    pbCfg.MinSpeed,
		MaxSpeed:    pbCfg.MaxSpeed,
		Logger:      Logger,
	}
	commands.Register(eventDispatcher)

	monitorCfg := config.GetMonitorConfig()
	if monitorCfg.Enabled {
		monitorService := monitor.NewService(monitor.Dependencies{
			Sessions:   registry,
			Logger:     Logger,
			StatusFile: monitorCfg.StatusFile,
			Interval:   monitorCfg.Interval,
		})
		if err := monitorService.Start(); err != nil {
			Logger.Error("Failed to start status monitor", "error", err)
		} else {
			defer monitorService.Stop()
		}
	}

	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		runTicker(ctx, eventDispatcher, pbCfg.Interval)
	}()
	defer func() {
		stop()
		<-tickerDone
		eventDispatcher.Close()
	}()

	refresh := pbCfg.Interval
	if refresh < time.Second {
		refresh = time.Second
	}

	renderCfg := config.GetRenderConfig()
	srv := server.New(server.Dependencies{
		Registry:    registry,
		Dispatcher:  eventDispatcher,
		CrossFilter: xf,
		Renderer:    render.New(render.Config{AssetsHost: renderCfg.AssetsHost, Theme: renderCfg.Theme}),
		Vessels:     vessels,
		Center:      ds.Tracks.Center(),
		MinSpeed:    pbCfg.MinSpeed,
		MaxSpeed:    pbCfg.MaxSpeed,
		Refresh:     refresh,
		Logger:      Logger,
	})

	httpServer := &http.Server{
		Addr:              serverCfg.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Info("Serving dashboard", "address", serverCfg.Address, "vessels", len(vessels))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		Logger.Info("Shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("HTTP server failed", "error", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		Logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	return 0
}

// runTicker dispatches one playback tick per interval until ctx ends. Ticks
// arriving while the previous one is still running are dropped.
func runTicker(ctx context.Context, d *dispatcher.Dispatcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdTick}); err != nil {
				if errors.Is(err, dispatcher.ErrBusy) {
					Logger.Debug("Tick dropped, previous tick still running")
					continue
				}
				Logger.Error("Tick failed", "error", err)
			}
		}
	}
}
